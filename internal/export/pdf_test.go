/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gocomicgrid/internal/domain"
	"gocomicgrid/internal/storage"
)

func sampleProject(t *testing.T) *storage.ProjectHandle {
	t.Helper()
	proj := domain.Project{
		Name: "Test Project",
		Pages: []domain.Page{
			{Number: 1, Panels: []domain.Panel{
				{ID: "a1b2c3d4e5", Type: domain.PanelImage, URL: "https://example.com/a.png", Position: domain.Position{Row: 0, Col: 0, RowSpan: 1, ColSpan: 2}},
				{ID: "p2", Type: domain.PanelVideo, Caption: "Chase", Position: domain.Position{Row: 1, Col: 1, RowSpan: 1, ColSpan: 1}},
			}},
			{Number: 2, Panels: []domain.Panel{}},
		},
	}
	ph, err := storage.InitProject(t.TempDir(), proj)
	if err != nil {
		t.Fatalf("init project: %v", err)
	}
	return ph
}

func TestExportPDF_CreatesFileInExports(t *testing.T) {
	ph := sampleProject(t)
	out, err := ExportPDF(ph, "layout.pdf", PDFOptions{FrameOptions: FrameOptions{IncludeGrid: true}})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if want := filepath.Join(ph.Root, storage.ExportsDirName, "layout.pdf"); out != want {
		t.Fatalf("out = %s, want %s", out, want)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", b[:min(len(b), 8)])
	}
}

func TestExportPDF_UnknownPage(t *testing.T) {
	ph := sampleProject(t)
	_, err := ExportPDF(ph, "x.pdf", PDFOptions{FrameOptions: FrameOptions{Pages: []int{5}}})
	if !errors.Is(err, storage.ErrPageNotFound) {
		t.Fatalf("want ErrPageNotFound, got %v", err)
	}
}
