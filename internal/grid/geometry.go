/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package grid implements the discrete page grid: rectangle math over row/col cells,
// the grid sizing policy, the free-slot finder and the collision/reflow engine.
// Everything here is pure and deterministic; callers own the panel list and the
// minimum cell budget and apply the returned positions themselves.
package grid

import "gocomicgrid/internal/domain"

// Cell addresses a single grid cell (zero-based).
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Size is the number of rows and columns of a grid.
type Size struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Cells returns the number of addressable cells.
func (s Size) Cells() int { return s.Rows * s.Cols }

// Rect is the occupied area of a panel: [Row, Row+RowSpan) x [Col, Col+ColSpan).
type Rect struct {
	Row, Col         int
	RowSpan, ColSpan int
}

// RectOf returns the normalized rectangle of a panel.
func RectOf(p domain.Panel) Rect {
	pos := p.Position
	return Rect{Row: pos.Row, Col: pos.Col, RowSpan: pos.RowSpan, ColSpan: pos.ColSpan}.Normalize()
}

// Normalize defaults unset or non-positive spans to 1.
func (r Rect) Normalize() Rect {
	if r.RowSpan < 1 {
		r.RowSpan = 1
	}
	if r.ColSpan < 1 {
		r.ColSpan = 1
	}
	return r
}

// At returns the same span anchored at c.
func (r Rect) At(c Cell) Rect {
	r.Row, r.Col = c.Row, c.Col
	return r
}

// Bottom and Right are exclusive bounds.
func (r Rect) Bottom() int { return r.Row + r.Normalize().RowSpan }
func (r Rect) Right() int  { return r.Col + r.Normalize().ColSpan }

// Contains reports whether cell (row, col) lies inside r.
func (r Rect) Contains(row, col int) bool {
	return row >= r.Row && row < r.Bottom() && col >= r.Col && col < r.Right()
}

// Within reports whether r lies fully inside a grid of size s.
func (r Rect) Within(s Size) bool {
	return r.Row >= 0 && r.Col >= 0 && r.Bottom() <= s.Rows && r.Right() <= s.Cols
}

// Position converts r back into a panel position.
func (r Rect) Position() domain.Position {
	n := r.Normalize()
	return domain.Position{Row: n.Row, Col: n.Col, RowSpan: n.RowSpan, ColSpan: n.ColSpan}
}

// Overlaps reports whether a and b share at least one cell. Two rectangles
// overlap unless one lies entirely above, below, left or right of the other.
func Overlaps(a, b Rect) bool {
	a, b = a.Normalize(), b.Normalize()
	return !(a.Row >= b.Row+b.RowSpan ||
		b.Row >= a.Row+a.RowSpan ||
		a.Col >= b.Col+b.ColSpan ||
		b.Col >= a.Col+a.ColSpan)
}

// overlapsAny reports whether r overlaps any of rs.
func overlapsAny(r Rect, rs []Rect) bool {
	for _, o := range rs {
		if Overlaps(r, o) {
			return true
		}
	}
	return false
}
