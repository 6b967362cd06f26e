/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package grid

import "gocomicgrid/internal/domain"

// Occupied reports whether any panel covers cell (row, col).
func Occupied(panels []domain.Panel, row, col int) bool {
	for _, p := range panels {
		if RectOf(p).Contains(row, col) {
			return true
		}
	}
	return false
}

// FindFreeSlot scans the grid row by row and returns the first cell not covered
// by any panel. ok is false when every cell is covered; callers must then refuse
// the insertion instead of overwriting or growing.
func FindFreeSlot(panels []domain.Panel, s Size) (c Cell, ok bool) {
	rects := make([]Rect, len(panels))
	for i, p := range panels {
		rects[i] = RectOf(p)
	}
	for row := 0; row < s.Rows; row++ {
		for col := 0; col < s.Cols; col++ {
			if !coveredBy(rects, row, col) {
				return Cell{Row: row, Col: col}, true
			}
		}
	}
	return Cell{}, false
}

func coveredBy(rects []Rect, row, col int) bool {
	for _, r := range rects {
		if r.Contains(row, col) {
			return true
		}
	}
	return false
}
