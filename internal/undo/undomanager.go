/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-page layout history: panel positions, spans, the panel
// set itself and the page's cell budget. Media content edits are not tracked.
package undo

import (
	"sync"
	"time"

	"gocomicgrid/internal/domain"
)

// Snapshot is the layout state of one page at a point in time.
type Snapshot struct {
	Page     int            `json:"page"`
	Panels   []domain.Panel `json:"panels"`
	MinCells int            `json:"minCells"`
	TS       time.Time      `json:"ts"`
}

// Clone returns a copy whose panel slice is not shared with s.
func (s Snapshot) Clone() Snapshot {
	s.Panels = append([]domain.Panel(nil), s.Panels...)
	return s
}

// Config controls depth caps and coalescing behavior.
type Config struct {
	// MaxEntries caps the total number of undo entries across pages; oldest are pruned.
	MaxEntries int
	// MaxPerPage limits number of snapshots per page kept in memory (0 means unlimited).
	MaxPerPage int
	// MinInterval coalesces pushes for the same page captured within the interval.
	// The earlier snapshot is kept so one undo reverts the whole burst.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo stack per page.
// It is safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo map[int][]Snapshot
	redo map[int][]Snapshot
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{cfg: cfg, undo: make(map[int][]Snapshot), redo: make(map[int][]Snapshot)}
}

// Push records the state of a page before a change and clears its redo stack.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s = s.Clone()
	if s.TS.IsZero() {
		s.TS = time.Now()
	}
	m.redo[s.Page] = nil
	stack := m.undo[s.Page]
	if n := len(stack); n > 0 && m.cfg.MinInterval > 0 {
		if s.TS.Sub(stack[n-1].TS) < m.cfg.MinInterval {
			return
		}
	}
	m.undo[s.Page] = append(stack, s)
	m.enforceCapsLocked(s.Page)
}

// Undo pops the latest snapshot of the page and parks current on the redo stack.
func (m *Manager) Undo(page int, current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[page]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[page] = stack[:len(stack)-1]
	current = current.Clone()
	current.Page = page
	m.redo[page] = append(m.redo[page], current)
	return s, true
}

// Redo pops the latest redo entry and parks current on the undo stack.
func (m *Manager) Redo(page int, current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[page]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[page] = r[:len(r)-1]
	current = current.Clone()
	current.Page = page
	m.undo[page] = append(m.undo[page], current)
	m.enforceCapsLocked(page)
	return s, true
}

// Depth returns the undo and redo depth of a page.
func (m *Manager) Depth(page int) (undos, redos int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[page]), len(m.redo[page])
}

// Clear drops the undo and redo stacks of a page. It never fails; the error
// result lets Manager stand in for persistent histories.
func (m *Manager) Clear(page int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.undo, page)
	delete(m.redo, page)
	return nil
}

func (m *Manager) enforceCapsLocked(page int) {
	if m.cfg.MaxPerPage > 0 {
		stack := m.undo[page]
		if len(stack) > m.cfg.MaxPerPage {
			toDrop := len(stack) - m.cfg.MaxPerPage
			m.undo[page] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global cap: prune oldest across all pages
	for {
		total := 0
		for _, stack := range m.undo {
			total += len(stack)
		}
		if total <= m.cfg.MaxEntries {
			return
		}
		oldestPage, found := 0, false
		var oldestTS time.Time
		for p, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestPage, oldestTS, found = p, stack[0].TS, true
			}
		}
		if !found {
			return
		}
		m.undo[oldestPage] = m.undo[oldestPage][1:]
		if len(m.undo[oldestPage]) == 0 {
			delete(m.undo, oldestPage)
		}
	}
}
