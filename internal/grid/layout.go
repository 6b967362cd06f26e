/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package grid

import (
	"math"

	"gocomicgrid/internal/domain"
)

const (
	// DefaultMinCells is the starting cell budget of a fresh editing session.
	DefaultMinCells = 4
	// GrowStep is the amount minCells changes per expand/shrink or resolver growth.
	GrowStep = 2

	minArea = 4
	minDim  = 2
	// widthBias prefers wider-than-tall grids once content exists.
	widthBias = 1.1
	// shrinkFloorCells: shrinking is refused unless the grid has more cells than this.
	shrinkFloorCells = 6
)

// ComputeLayout derives the grid dimensions from the minimum cell budget.
// Sizing is driven only by minCells; adding panels never grows the grid
// implicitly. With panels present the column count is biased towards a wider
// grid. Both dimensions are at least 2 and the area is never below 4.
func ComputeLayout(panelCount, minCells int) Size {
	area := max(minArea, minCells)
	root := math.Sqrt(float64(area))
	var cols int
	if panelCount <= 0 {
		cols = int(math.Ceil(root))
	} else {
		cols = int(math.Round(root * widthBias))
	}
	cols = max(minDim, cols)
	rows := max(minDim, int(math.Ceil(float64(area)/float64(cols))))
	return Size{Rows: rows, Cols: cols}
}

// SpanArea is the total number of cells claimed by panel spans.
// It is diagnostic only and does not influence ComputeLayout.
func SpanArea(panels []domain.Panel) int {
	total := 0
	for _, p := range panels {
		r := RectOf(p)
		total += r.RowSpan * r.ColSpan
	}
	return total
}

// Fit grows s so that every panel rectangle lies within bounds.
func Fit(s Size, panels []domain.Panel) Size {
	for _, p := range panels {
		r := RectOf(p)
		s.Rows = max(s.Rows, r.Bottom())
		s.Cols = max(s.Cols, r.Right())
	}
	return s
}

// Expand returns the cell budget after an expand action.
func Expand(minCells int) int {
	return max(DefaultMinCells, minCells) + GrowStep
}

// Shrink returns the cell budget after a shrink action on a grid currently of size s.
// It is a no-op (returning false) unless the grid has more than 6 cells and the
// budget is above the floor of 4.
func Shrink(minCells int, s Size) (int, bool) {
	if s.Cells() <= shrinkFloorCells || minCells <= DefaultMinCells {
		return minCells, false
	}
	return max(DefaultMinCells, minCells-GrowStep), true
}
