/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"log/slog"
	"sync"

	"gocomicgrid/internal/domain"
	applog "gocomicgrid/internal/log"
)

// Document adapts a ProjectHandle to the editor's host callbacks. Every
// mutation is written to comic.json immediately unless AutoSave is off.
type Document struct {
	mu       sync.Mutex
	ph       *ProjectHandle
	AutoSave bool
	log      *slog.Logger
}

// NewDocument wraps ph with autosave enabled.
func NewDocument(ph *ProjectHandle) *Document {
	return &Document{ph: ph, AutoSave: true, log: applog.WithComponent("storage").With(slog.String("root", ph.Root))}
}

// Handle returns the underlying project handle.
func (d *Document) Handle() *ProjectHandle { return d.ph }

// PageCount returns the number of pages in the manifest.
func (d *Document) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ph.Project.Pages)
}

func (d *Document) Panels(pageIndex int) []domain.Panel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return PagePanels(d.ph, pageIndex)
}

func (d *Document) UpdatePanel(panel domain.Panel, pageIndex int) error {
	return d.mutate("update_panel", func() error { return UpdatePanel(d.ph, pageIndex, panel) })
}

func (d *Document) RemovePanel(panelID string, pageIndex int) error {
	return d.mutate("remove_panel", func() error { return RemovePanel(d.ph, pageIndex, panelID) })
}

func (d *Document) ReplacePanels(pageIndex int, panels []domain.Panel) error {
	return d.mutate("replace_panels", func() error { return ReplacePanels(d.ph, pageIndex, panels) })
}

// Save writes the manifest regardless of AutoSave.
func (d *Document) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Save(d.ph)
}

// mutate runs fn under the lock and autosaves. When fn or the save fails the
// in-memory pages are restored.
func (d *Document) mutate(op string, fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	before := clonePages(d.ph.Project.Pages)
	if err := fn(); err != nil {
		d.ph.Project.Pages = before
		return err
	}
	if !d.AutoSave {
		return nil
	}
	if err := Save(d.ph); err != nil {
		d.ph.Project.Pages = before
		d.log.Error("autosave failed", slog.String("op", op), slog.Any("err", err))
		return err
	}
	return nil
}

func clonePages(pages []domain.Page) []domain.Page {
	if pages == nil {
		return nil
	}
	out := make([]domain.Page, len(pages))
	for i, pg := range pages {
		out[i] = pg
		out[i].Panels = append([]domain.Panel(nil), pg.Panels...)
	}
	return out
}
