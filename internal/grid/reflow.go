/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package grid

import "gocomicgrid/internal/domain"

// DefaultMaxPasses bounds the grow-and-retry loop of Reflow.
const DefaultMaxPasses = 16

// Update is a desired new position for one panel.
type Update struct {
	PanelID string          `json:"panelId"`
	From    domain.Position `json:"from"`
	To      domain.Position `json:"to"`
}

// Pass is the outcome of a single resolution pass over a fixed grid size.
type Pass struct {
	Updates []Update
	// Blocked lists panels that collide with the anchor but found no room.
	// They keep their position; the caller is expected to grow the grid by
	// one GrowStep and run another pass.
	Blocked []string
}

// Options tunes Reflow.
type Options struct {
	// MaxPasses caps the number of passes; zero means DefaultMaxPasses.
	MaxPasses int
}

// Result is the outcome of Reflow.
type Result struct {
	// Updates holds one entry per moved panel, in the order panels first moved.
	Updates []Update `json:"updates"`
	// MinCells is the cell budget after any growth the resolver needed.
	MinCells int  `json:"minCells"`
	Size     Size `json:"size"`
	Passes   int  `json:"passes"`
	// Converged is false when the pass cap was hit with panels still blocked.
	Converged bool `json:"converged"`
}

// Grew reports how many cells the resolver added to the budget.
func (r Result) Grew(before int) int { return r.MinCells - before }

// FindAvailablePosition returns the first top-left cell, in row-major order, at
// which r fits inside s without overlapping any obstacle.
func FindAvailablePosition(r Rect, obstacles []Rect, s Size) (Cell, bool) {
	r = r.Normalize()
	for row := 0; row+r.RowSpan <= s.Rows; row++ {
		for col := 0; col+r.ColSpan <= s.Cols; col++ {
			cand := r.At(Cell{Row: row, Col: col})
			if !overlapsAny(cand, obstacles) {
				return Cell{Row: row, Col: col}, true
			}
		}
	}
	return Cell{}, false
}

// Resolve runs one collision pass with the anchor pinned in place.
//
// Panels that do not touch the anchor stay where they are and act as obstacles.
// Panels colliding with the anchor are relocated in slice order; each one avoids
// the anchor, the stationary panels and every panel relocated before it. A
// stationary panel that overlaps an earlier stationary panel is relocated too,
// so the pass never leaves an overlap it could have fixed. The anchor never moves.
func Resolve(anchorID string, panels []domain.Panel, s Size) Pass {
	var pass Pass
	ai := indexOf(panels, anchorID)
	if ai < 0 || len(panels) <= 1 {
		return pass
	}
	anchor := RectOf(panels[ai])
	placed := []Rect{anchor}

	var movers []int
	for i, p := range panels {
		if i == ai {
			continue
		}
		r := RectOf(p)
		if Overlaps(anchor, r) || overlapsAny(r, placed) {
			movers = append(movers, i)
			continue
		}
		placed = append(placed, r)
	}

	for _, i := range movers {
		p := panels[i]
		r := RectOf(p)
		c, ok := FindAvailablePosition(r, placed, s)
		if !ok {
			pass.Blocked = append(pass.Blocked, p.ID)
			placed = append(placed, r)
			continue
		}
		nr := r.At(c)
		placed = append(placed, nr)
		pass.Updates = append(pass.Updates, Update{PanelID: p.ID, From: p.Position, To: nr.Position()})
	}
	return pass
}

// Reflow resolves collisions around the anchor, growing the cell budget by
// GrowStep and retrying whenever a pass is blocked, up to opts.MaxPasses.
// It does not touch panels; callers apply Result.Updates in order.
// With no anchor, an unknown anchor, or at most one panel it is a no-op.
func Reflow(anchorID string, panels []domain.Panel, minCells int, opts Options) Result {
	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	res := Result{MinCells: minCells, Converged: true}
	cur := append([]domain.Panel(nil), panels...)
	res.Size = Fit(ComputeLayout(len(cur), minCells), cur)
	if anchorID == "" || len(cur) <= 1 || indexOf(cur, anchorID) < 0 {
		return res
	}

	order := map[string]int{}
	for res.Passes < maxPasses {
		res.Passes++
		pass := Resolve(anchorID, cur, res.Size)
		for _, u := range pass.Updates {
			if k, seen := order[u.PanelID]; seen {
				res.Updates[k].To = u.To
			} else {
				order[u.PanelID] = len(res.Updates)
				res.Updates = append(res.Updates, u)
			}
		}
		cur = Apply(cur, pass.Updates)
		if len(pass.Blocked) == 0 {
			res.Converged = true
			res.Size = Fit(ComputeLayout(len(cur), res.MinCells), cur)
			res.Updates = dropNoops(res.Updates)
			return res
		}
		res.Converged = false
		res.MinCells = max(DefaultMinCells, res.MinCells) + GrowStep
		res.Size = Fit(ComputeLayout(len(cur), res.MinCells), cur)
	}
	res.Updates = dropNoops(res.Updates)
	return res
}

// Apply returns a copy of panels with the updates applied.
func Apply(panels []domain.Panel, updates []Update) []domain.Panel {
	out := append([]domain.Panel(nil), panels...)
	for _, u := range updates {
		if i := indexOf(out, u.PanelID); i >= 0 {
			out[i].Position = u.To
		}
	}
	return out
}

// Collisions returns the ids of panels overlapping the given panel.
func Collisions(panelID string, panels []domain.Panel) []string {
	i := indexOf(panels, panelID)
	if i < 0 {
		return nil
	}
	r := RectOf(panels[i])
	var ids []string
	for j, p := range panels {
		if j != i && Overlaps(r, RectOf(p)) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func dropNoops(us []Update) []Update {
	out := us[:0]
	for _, u := range us {
		if u.From.Normalized() != u.To.Normalized() {
			out = append(out, u)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func indexOf(panels []domain.Panel, id string) int {
	if id == "" {
		return -1
	}
	for i, p := range panels {
		if p.ID == id {
			return i
		}
	}
	return -1
}
