/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor holds the page-level editing session: the state container that
// owns the cell budget and the selection, feeds the pure grid engine and applies
// its results to the document through the Host callbacks.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gocomicgrid/internal/domain"
	"gocomicgrid/internal/drop"
	"gocomicgrid/internal/grid"
	applog "gocomicgrid/internal/log"
	"gocomicgrid/internal/telemetry"
	"gocomicgrid/internal/undo"
)

// Host owns the panels of every page. The session never mutates panels itself;
// it asks the host to persist each change.
type Host interface {
	Panels(pageIndex int) []domain.Panel
	UpdatePanel(panel domain.Panel, pageIndex int) error
	RemovePanel(panelID string, pageIndex int) error
}

// Replacer is implemented by hosts that can swap a page's panel set in one step.
// Undo and redo use it to restore panel order exactly.
type Replacer interface {
	ReplacePanels(pageIndex int, panels []domain.Panel) error
}

// History stores layout snapshots for undo and redo.
type History interface {
	Push(s undo.Snapshot)
	Undo(page int, current undo.Snapshot) (undo.Snapshot, bool)
	Redo(page int, current undo.Snapshot) (undo.Snapshot, bool)
	Depth(page int) (undos, redos int)
	Clear(page int) error
}

// Options configures a Session. Zero values select defaults.
type Options struct {
	MinCells    int
	Selected    string
	MaxPasses   int
	History     History
	Interpreter *drop.Interpreter
	Events      telemetry.Emitter
	Log         *slog.Logger
}

// Layout is the derived grid of a page.
type Layout struct {
	Page     int            `json:"page"`
	Size     grid.Size      `json:"size"`
	MinCells int            `json:"minCells"`
	SpanArea int            `json:"spanArea"`
	Selected string         `json:"selected,omitempty"`
	Panels   []domain.Panel `json:"panels"`
}

// State is the session-local state worth persisting between runs.
type State struct {
	Page     int    `json:"page"`
	MinCells int    `json:"minCells"`
	Selected string `json:"selected,omitempty"`
	CanUndo  bool   `json:"canUndo"`
	CanRedo  bool   `json:"canRedo"`
}

// Session edits one page. It is not safe for concurrent use.
type Session struct {
	host     Host
	page     int
	minCells int
	selected string
	opts     grid.Options
	history  History
	interp   *drop.Interpreter
	events   telemetry.Emitter
	log      *slog.Logger
}

// NewSession starts editing page pageIndex of host.
func NewSession(host Host, pageIndex int, o Options) *Session {
	if o.MinCells <= 0 {
		o.MinCells = grid.DefaultMinCells
	}
	if o.History == nil {
		o.History = undo.NewManager(undo.Config{MaxPerPage: 100})
	}
	if o.Interpreter == nil {
		o.Interpreter = drop.NewInterpreter(nil)
	}
	if o.Log == nil {
		o.Log = applog.WithComponent("editor")
	}
	s := &Session{
		host:     host,
		page:     pageIndex,
		minCells: o.MinCells,
		opts:     grid.Options{MaxPasses: o.MaxPasses},
		history:  o.History,
		interp:   o.Interpreter,
		events:   o.Events,
		log:      o.Log.With(slog.Int("page", pageIndex)),
	}
	if o.Selected != "" && s.find(o.Selected) >= 0 {
		s.selected = o.Selected
	}
	return s
}

// Page returns the page index this session edits.
func (s *Session) Page() int { return s.page }

// MinCells returns the current cell budget.
func (s *Session) MinCells() int { return s.minCells }

// Selected returns the selected panel id, or "".
func (s *Session) Selected() string { return s.selected }

// Layout derives the current grid from the panel set and the cell budget.
func (s *Session) Layout() Layout {
	panels := s.host.Panels(s.page)
	size := grid.Fit(grid.ComputeLayout(len(panels), s.minCells), panels)
	return Layout{
		Page:     s.page,
		Size:     size,
		MinCells: s.minCells,
		SpanArea: grid.SpanArea(panels),
		Selected: s.selected,
		Panels:   panels,
	}
}

// State returns the persistable session state.
func (s *Session) State() State {
	u, r := s.history.Depth(s.page)
	return State{Page: s.page, MinCells: s.minCells, Selected: s.selected, CanUndo: u > 0, CanRedo: r > 0}
}

// Select makes id the anchor for the next reflow. An empty id clears the
// selection; an unknown id is ignored and reported as false.
func (s *Session) Select(id string) bool {
	if id == "" {
		s.selected = ""
		return true
	}
	if s.find(id) < 0 {
		return false
	}
	s.selected = id
	return true
}

// Insert interprets a drop payload and adds the resulting panel at the next
// free slot, selecting it. On failure the page is left unchanged and the error
// wraps drop.ErrGridFull, drop.ErrEmptyPayload or drop.ErrInvalidPayload where
// they apply.
func (s *Session) Insert(ctx context.Context, p drop.Payload) (domain.Panel, error) {
	ctx = applog.WithPage(ctx, s.page)
	before := s.snapshot()
	lay := s.Layout()
	panel, err := s.interp.Interpret(ctx, p, lay.Panels, lay.Size)
	if err != nil {
		lvl := slog.LevelWarn
		if errors.Is(err, drop.ErrGridFull) || errors.Is(err, drop.ErrEmptyPayload) {
			lvl = slog.LevelInfo
		}
		s.log.Log(ctx, lvl, "drop ignored", slog.Any("err", err))
		return domain.Panel{}, err
	}
	if err := s.host.UpdatePanel(panel, s.page); err != nil {
		s.log.ErrorContext(ctx, "persist dropped panel failed", slog.String("id", panel.ID), slog.Any("err", err))
		return domain.Panel{}, err
	}
	s.history.Push(before)
	s.selected = panel.ID
	s.emit(telemetry.EventPanelDropped, map[string]any{"type": string(panel.Type), "panels": len(lay.Panels) + 1})
	s.log.InfoContext(applog.WithPanel(ctx, panel.ID), "panel dropped",
		slog.String("type", string(panel.Type)), slog.Int("row", panel.Position.Row), slog.Int("col", panel.Position.Col))
	return panel, nil
}

// Place moves or resizes a panel, selects it and reflows the page around it.
// Negative coordinates are clamped to zero and spans below 1 become 1.
func (s *Session) Place(id string, pos domain.Position) (grid.Result, bool) {
	i := s.find(id)
	if i < 0 {
		return grid.Result{}, false
	}
	before := s.snapshot()
	panel := s.host.Panels(s.page)[i]
	pos = pos.Normalized()
	pos.Row, pos.Col = max(0, pos.Row), max(0, pos.Col)
	panel.Position = pos
	if err := s.host.UpdatePanel(panel, s.page); err != nil {
		s.log.Error("persist placement failed", slog.String("panel", id), slog.Any("err", err))
		return grid.Result{}, false
	}
	s.history.Push(before)
	s.selected = id
	return s.reflow(), true
}

// Reflow moves panels that collide with the selected panel. It is a no-op
// without a selection.
func (s *Session) Reflow() grid.Result {
	before := s.snapshot()
	res := s.reflow()
	if len(res.Updates) > 0 || res.MinCells != before.MinCells {
		s.history.Push(before)
	}
	return res
}

func (s *Session) reflow() grid.Result {
	panels := s.host.Panels(s.page)
	start := s.minCells
	res := grid.Reflow(s.selected, panels, s.minCells, s.opts)
	for _, u := range res.Updates {
		i := indexOf(panels, u.PanelID)
		if i < 0 {
			continue
		}
		p := panels[i]
		p.Position = u.To
		if err := s.host.UpdatePanel(p, s.page); err != nil {
			s.log.Error("persist reflow update failed", slog.String("panel", u.PanelID), slog.Any("err", err))
		}
	}
	s.minCells = res.MinCells
	if grew := res.Grew(start); grew > 0 {
		s.emit(telemetry.EventGridGrown, map[string]any{"minCells": res.MinCells, "grew": grew})
		s.log.Info("grid grown by reflow", slog.Int("from", start), slog.Int("to", res.MinCells))
	}
	if !res.Converged {
		s.emit(telemetry.EventReflowUnconverged, map[string]any{"passes": res.Passes, "panels": len(panels)})
		s.log.Warn("reflow did not converge", slog.Int("passes", res.Passes), slog.String("anchor", s.selected))
	}
	if len(res.Updates) > 0 {
		s.log.Debug("reflow applied", slog.String("anchor", s.selected), slog.Int("moved", len(res.Updates)), slog.Int("passes", res.Passes))
	}
	return res
}

// Remove deletes a panel and clears the selection if it pointed at it.
func (s *Session) Remove(id string) bool {
	if s.find(id) < 0 {
		return false
	}
	before := s.snapshot()
	if err := s.host.RemovePanel(id, s.page); err != nil {
		s.log.Error("remove panel failed", slog.String("panel", id), slog.Any("err", err))
		return false
	}
	s.history.Push(before)
	if s.selected == id {
		s.selected = ""
	}
	return true
}

// ReplaceMedia swaps a panel's media in place, keeping id and position.
// Media edits are not recorded in the layout history.
func (s *Session) ReplaceMedia(id string, typ domain.PanelType, url string) bool {
	i := s.find(id)
	if i < 0 {
		return false
	}
	p := s.host.Panels(s.page)[i]
	if typ != "" {
		p.Type = typ
	}
	p.URL = url
	if err := s.host.UpdatePanel(p, s.page); err != nil {
		s.log.Error("replace media failed", slog.String("panel", id), slog.Any("err", err))
		return false
	}
	return true
}

// Expand grows the cell budget by one step and returns the new budget.
func (s *Session) Expand() int {
	s.history.Push(s.snapshot())
	s.minCells = grid.Expand(s.minCells)
	return s.minCells
}

// Shrink lowers the cell budget by one step when the grid is large enough.
func (s *Session) Shrink() bool {
	m, ok := grid.Shrink(s.minCells, s.Layout().Size)
	if !ok {
		return false
	}
	s.history.Push(s.snapshot())
	s.minCells = m
	return true
}

// Undo restores the previous layout of the page.
func (s *Session) Undo() bool {
	prev, ok := s.history.Undo(s.page, s.snapshot())
	if !ok {
		return false
	}
	s.restore(prev)
	return true
}

// ClearHistory drops the undo and redo stacks of the page. The layout itself
// is not touched.
func (s *Session) ClearHistory() bool {
	if err := s.history.Clear(s.page); err != nil {
		s.log.Error("clear history failed", slog.Any("err", err))
		return false
	}
	s.log.Info("history cleared")
	return true
}

// Redo re-applies the layout undone last.
func (s *Session) Redo() bool {
	next, ok := s.history.Redo(s.page, s.snapshot())
	if !ok {
		return false
	}
	s.restore(next)
	return true
}

func (s *Session) restore(snap undo.Snapshot) {
	if snap.MinCells > 0 {
		s.minCells = snap.MinCells
	}
	if r, ok := s.host.(Replacer); ok {
		if err := r.ReplacePanels(s.page, snap.Panels); err != nil {
			s.log.Error("restore layout failed", slog.Any("err", err))
		}
	} else {
		keep := map[string]bool{}
		for _, p := range snap.Panels {
			keep[p.ID] = true
		}
		for _, p := range s.host.Panels(s.page) {
			if !keep[p.ID] {
				if err := s.host.RemovePanel(p.ID, s.page); err != nil {
					s.log.Error("restore remove failed", slog.String("panel", p.ID), slog.Any("err", err))
				}
			}
		}
		for _, p := range snap.Panels {
			if err := s.host.UpdatePanel(p, s.page); err != nil {
				s.log.Error("restore update failed", slog.String("panel", p.ID), slog.Any("err", err))
			}
		}
	}
	if s.selected != "" && s.find(s.selected) < 0 {
		s.selected = ""
	}
}

func (s *Session) snapshot() undo.Snapshot {
	return undo.Snapshot{Page: s.page, Panels: s.host.Panels(s.page), MinCells: s.minCells, TS: time.Now()}
}

func (s *Session) emit(name string, props map[string]any) {
	if s.events != nil {
		s.events.Event(name, props)
	}
}

func (s *Session) find(id string) int { return indexOf(s.host.Panels(s.page), id) }

func indexOf(panels []domain.Panel, id string) int {
	for i, p := range panels {
		if p.ID == id {
			return i
		}
	}
	return -1
}
