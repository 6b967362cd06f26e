/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"gocomicgrid/internal/domain"
)

var (
	ErrPageNotFound   = errors.New("page not found")
	ErrPanelNotFound  = errors.New("panel not found")
	ErrDuplicatePanel = errors.New("panel id already exists")
)

// EnsurePage returns a pointer to the page at the zero-based index, appending
// empty pages as needed. Page numbers are kept as index+1.
func EnsurePage(ph *ProjectHandle, pageIndex int) (*domain.Page, error) {
	if ph == nil {
		return nil, fmt.Errorf("project handle is nil")
	}
	if pageIndex < 0 {
		return nil, fmt.Errorf("page index must be >= 0, got %d", pageIndex)
	}
	for len(ph.Project.Pages) <= pageIndex {
		ph.Project.Pages = append(ph.Project.Pages, domain.Page{Number: len(ph.Project.Pages) + 1, Panels: []domain.Panel{}})
	}
	return &ph.Project.Pages[pageIndex], nil
}

// page returns the page at pageIndex without creating it.
func page(ph *ProjectHandle, pageIndex int) (*domain.Page, error) {
	if ph == nil {
		return nil, fmt.Errorf("project handle is nil")
	}
	if pageIndex < 0 || pageIndex >= len(ph.Project.Pages) {
		return nil, fmt.Errorf("%w: index %d", ErrPageNotFound, pageIndex)
	}
	return &ph.Project.Pages[pageIndex], nil
}

// PagePanels returns a copy of the panels of a page; a missing page has none.
func PagePanels(ph *ProjectHandle, pageIndex int) []domain.Panel {
	pg, err := page(ph, pageIndex)
	if err != nil {
		return nil
	}
	return append([]domain.Panel(nil), pg.Panels...)
}

// AddPanel appends a panel to the page, generating an id when empty and
// defaulting spans to 1. Returns the stored panel.
func AddPanel(ph *ProjectHandle, pageIndex int, panel domain.Panel) (domain.Panel, error) {
	pg, err := EnsurePage(ph, pageIndex)
	if err != nil {
		return domain.Panel{}, err
	}
	if panel.ID == "" {
		panel.ID = uuid.NewString()
	} else if indexOfPanel(pg, panel.ID) >= 0 {
		return domain.Panel{}, fmt.Errorf("%w: %s on page %d", ErrDuplicatePanel, panel.ID, pg.Number)
	}
	if panel.Type == "" {
		panel.Type = domain.PanelImage
	}
	panel.Position = panel.Position.Normalized()
	pg.Panels = append(pg.Panels, panel)
	return panel, nil
}

// UpdatePanel replaces the panel with the same id, or appends it when new.
func UpdatePanel(ph *ProjectHandle, pageIndex int, panel domain.Panel) error {
	if panel.ID == "" {
		return errors.New("panel id is required")
	}
	pg, err := EnsurePage(ph, pageIndex)
	if err != nil {
		return err
	}
	panel.Position = panel.Position.Normalized()
	if i := indexOfPanel(pg, panel.ID); i >= 0 {
		pg.Panels[i] = panel
		return nil
	}
	_, err = AddPanel(ph, pageIndex, panel)
	return err
}

// RemovePanel deletes a panel from the page.
func RemovePanel(ph *ProjectHandle, pageIndex int, panelID string) error {
	pg, err := page(ph, pageIndex)
	if err != nil {
		return err
	}
	i := indexOfPanel(pg, panelID)
	if i < 0 {
		return fmt.Errorf("%w: %s on page %d", ErrPanelNotFound, panelID, pg.Number)
	}
	pg.Panels = append(pg.Panels[:i], pg.Panels[i+1:]...)
	return nil
}

// FindPanel looks up a panel by id.
func FindPanel(ph *ProjectHandle, pageIndex int, panelID string) (domain.Panel, error) {
	pg, err := page(ph, pageIndex)
	if err != nil {
		return domain.Panel{}, err
	}
	i := indexOfPanel(pg, panelID)
	if i < 0 {
		return domain.Panel{}, fmt.Errorf("%w: %s on page %d", ErrPanelNotFound, panelID, pg.Number)
	}
	return pg.Panels[i], nil
}

// ReplacePanels swaps the whole panel set of a page, keeping the given order.
func ReplacePanels(ph *ProjectHandle, pageIndex int, panels []domain.Panel) error {
	pg, err := EnsurePage(ph, pageIndex)
	if err != nil {
		return err
	}
	seen := map[string]bool{}
	out := make([]domain.Panel, 0, len(panels))
	for _, p := range panels {
		if p.ID == "" || seen[p.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicatePanel, p.ID)
		}
		seen[p.ID] = true
		p.Position = p.Position.Normalized()
		out = append(out, p)
	}
	pg.Panels = out
	return nil
}

func indexOfPanel(pg *domain.Page, id string) int {
	for i := range pg.Panels {
		if pg.Panels[i].ID == id {
			return i
		}
	}
	return -1
}
