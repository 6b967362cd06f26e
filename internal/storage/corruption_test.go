/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gocomicgrid/internal/domain"
)

func TestDetectAndRebuildIndex_OnCorruption(t *testing.T) {
	root := t.TempDir()
	proj := domain.Project{
		Name:  "CorruptTest",
		Pages: []domain.Page{{Number: 1, Panels: []domain.Panel{{ID: "P1", Type: domain.PanelImage}}}},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := BuildIndexIfEmpty(ctx, root, proj); err != nil {
		t.Fatalf("BuildIndexIfEmpty: %v", err)
	}
	idx := IndexPath(root)
	if err := os.WriteFile(idx, []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	rebuilt, err := DetectAndRebuildIndex(ctx, root, proj)
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected rebuild to occur")
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	ps, err := PanelsByType(ctx, db, "")
	if err != nil || len(ps) != 1 {
		t.Fatalf("expected rebuilt panel index, got %d err=%v", len(ps), err)
	}
	bdir := filepath.Join(root, IndexDirName, "backups")
	entries, _ := os.ReadDir(bdir)
	if len(entries) == 0 {
		t.Fatalf("expected backup file in %s", bdir)
	}
}

func TestDetectAndRebuildIndex_HealthyIsNoop(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := BuildIndexIfEmpty(ctx, root, domain.Project{Name: "ok"}); err != nil {
		t.Fatalf("BuildIndexIfEmpty: %v", err)
	}
	rebuilt, err := DetectAndRebuildIndex(ctx, root, domain.Project{Name: "ok"})
	if err != nil || rebuilt {
		t.Fatalf("healthy index must not be rebuilt: rebuilt=%v err=%v", rebuilt, err)
	}
}
