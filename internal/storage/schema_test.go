/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"testing"

	"gocomicgrid/internal/domain"
)

func TestManifestConformsToSchema(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, domain.Project{Name: "Schema Test"})
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	if _, err := AddPanel(ph, 1, domain.Panel{Type: domain.PanelVideo, URL: "https://x/v.mp4", Position: domain.Position{Row: 1, Col: 0}}); err != nil {
		t.Fatalf("AddPanel: %v", err)
	}
	if err := Save(ph); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(ph.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if err := ValidateManifest(data); err != nil {
		t.Fatalf("manifest does not conform to schema: %v", err)
	}
}

func TestValidateManifestRejectsBadPanels(t *testing.T) {
	bad := []string{
		`{"name":"x"}`,
		`{"name":"x","pages":[{"number":1,"panels":[{"id":"","type":"image","position":{"row":0,"col":0}}]}]}`,
		`{"name":"x","pages":[{"number":1,"panels":[{"id":"a","type":"image","position":{"row":-1,"col":0}}]}]}`,
		`{"name":"x","pages":[{"number":1,"panels":[{"id":"a","type":"audio","position":{"row":0,"col":0}}]}]}`,
	}
	for _, doc := range bad {
		if err := ValidateManifest([]byte(doc)); err == nil {
			t.Fatalf("expected schema violation for %s", doc)
		}
	}
}
