/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"gocomicgrid/internal/domain"
)

func TestLayoutFrame_Geometry(t *testing.T) {
	panels := []domain.Panel{
		{ID: "a", Position: domain.Position{Row: 0, Col: 0, RowSpan: 1, ColSpan: 2}},
	}
	fr := LayoutFrame(0, panels, 4, FrameOptions{PageWidth: 200, PageHeight: 200, Margin: 10, Gutter: 10})
	if fr.Size.Rows != 2 || fr.Size.Cols != 2 {
		t.Fatalf("size = %+v", fr.Size)
	}
	// inner 180, two cells of 85 with a 10pt gutter
	b := fr.Boxes[0]
	if b.X != 10 || b.Y != 10 || b.W != 180 || b.H != 85 {
		t.Fatalf("box = %+v", b)
	}
	if len(fr.Cells) != 2 {
		t.Fatalf("free cells = %d, want 2", len(fr.Cells))
	}
	if c := fr.Cells[1]; c.X != 105 || c.Y != 105 {
		t.Fatalf("second free cell at %v,%v", c.X, c.Y)
	}
}

func TestLayoutFrame_GrowsForOutOfBoundsPanels(t *testing.T) {
	panels := []domain.Panel{{ID: "far", Position: domain.Position{Row: 4, Col: 0}}}
	fr := LayoutFrame(0, panels, 4, FrameOptions{})
	if fr.Size.Rows < 5 {
		t.Fatalf("frame must include row 4, size %+v", fr.Size)
	}
}

func TestLabel(t *testing.T) {
	got := Label(domain.Panel{ID: "0123456789", Type: domain.PanelGIF, Caption: "Boom"})
	if got != "gif 01234567 - Boom" {
		t.Fatalf("Label = %q", got)
	}
}

func TestExportPNGPages(t *testing.T) {
	ph := sampleProject(t)
	outDir := filepath.Join(ph.Root, "exports", "pngtest")
	files, err := ExportPNGPages(ph, outDir, PNGOptions{FrameOptions: FrameOptions{IncludeGrid: true}, DPI: 72})
	if err != nil {
		t.Fatalf("export png: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[1]) != "page-2.png" {
		t.Fatalf("files = %v", files)
	}
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 595 || b.Dy() != 842 {
		t.Fatalf("bounds = %v", b)
	}
	// panel border is black at the top-left corner of the first box
	if r, g, bl, _ := img.At(36, 36).RGBA(); r != 0 || g != 0 || bl != 0 {
		t.Fatalf("expected panel stroke at (36,36), got %v %v %v", r, g, bl)
	}
}
