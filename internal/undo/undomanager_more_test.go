/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func TestClearDropsBothStacks(t *testing.T) {
	m := NewManager(Config{MaxPerPage: 10})
	m.Push(layout(7, 4, "a"))
	m.Push(layout(8, 4, "b"))
	if _, ok := m.Undo(7, layout(7, 4, "a", "c")); !ok {
		t.Fatal("expected undo")
	}
	if u, r := m.Depth(7); u != 0 || r != 1 {
		t.Fatalf("depth before clear: undo=%d redo=%d", u, r)
	}
	if err := m.Clear(7); err != nil {
		t.Fatal(err)
	}
	if u, r := m.Depth(7); u != 0 || r != 0 {
		t.Fatalf("page 7 not cleared: undo=%d redo=%d", u, r)
	}
	if u, _ := m.Depth(8); u != 1 {
		t.Fatalf("other pages must be kept, got %d", u)
	}
}

func TestGlobalPruneAcrossPages(t *testing.T) {
	m := NewManager(Config{MaxEntries: 2})
	t0 := time.Now()
	old := layout(1, 4, "a")
	old.TS = t0
	m.Push(old)
	newer := layout(2, 4, "b")
	newer.TS = t0.Add(time.Second)
	m.Push(newer)
	newest := layout(2, 4, "c")
	newest.TS = t0.Add(2 * time.Second)
	m.Push(newest)

	if _, ok := m.Undo(1, layout(1, 4)); ok {
		t.Fatalf("expected page 1 to have been pruned")
	}
	if _, ok := m.Undo(2, layout(2, 4)); !ok {
		t.Fatalf("expected page 2 to have snapshots")
	}
}
