/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders page layouts as wireframes: one outlined box per
// panel, labelled with its type, id and caption. Media is never rendered.
package export

import (
	"fmt"
	"image/color"

	"gocomicgrid/internal/domain"
	"gocomicgrid/internal/grid"
	"gocomicgrid/internal/storage"
)

// Frame options shared by the PDF and PNG exporters.
// Units are points (pt); page origin is top-left.
type FrameOptions struct {
	PageWidth  float64 // default 595 (A4)
	PageHeight float64 // default 842
	Margin     float64 // default 36
	Gutter     float64 // space between cells, default 8
	// MinCells holds the per-page cell budget keyed by zero-based page index.
	// Missing pages use grid.DefaultMinCells.
	MinCells map[int]int
	// IncludeGrid draws the empty cell lattice as light guides.
	IncludeGrid bool
	Pages       []int // zero-based; if empty, export all pages
}

func (o FrameOptions) withDefaults() FrameOptions {
	if o.PageWidth <= 0 {
		o.PageWidth = 595
	}
	if o.PageHeight <= 0 {
		o.PageHeight = 842
	}
	if o.Margin <= 0 {
		o.Margin = 36
	}
	if o.Margin*2 >= min(o.PageWidth, o.PageHeight) {
		o.Margin = 0
	}
	if o.Gutter <= 0 {
		o.Gutter = 8
	}
	return o
}

// Box is a panel's rectangle on the exported page.
type Box struct {
	X, Y, W, H float64
	Panel      domain.Panel
}

// Frame is the laid-out wireframe of a single page.
type Frame struct {
	PageIndex int
	Size      grid.Size
	// Cells holds the unoccupied lattice rectangles, row-major.
	Cells []Box
	Boxes []Box
}

// Stroke/fill colors per panel type.
var (
	guideColor  = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	strokeColor = color.RGBA{A: 255}
	typeFill    = map[domain.PanelType]color.RGBA{
		domain.PanelImage: {R: 225, G: 238, B: 255, A: 255},
		domain.PanelVideo: {R: 255, G: 228, B: 225, A: 255},
		domain.PanelGIF:   {R: 240, G: 230, B: 255, A: 255},
		domain.Panel3D:    {R: 226, G: 250, B: 230, A: 255},
		domain.PanelText:  {R: 255, G: 250, B: 220, A: 255},
	}
)

func fillFor(t domain.PanelType) color.RGBA {
	if c, ok := typeFill[t]; ok {
		return c
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}

// Label is the text drawn in the top-left corner of a panel box.
func Label(p domain.Panel) string {
	id := p.ID
	if len(id) > 8 {
		id = id[:8]
	}
	s := fmt.Sprintf("%s %s", p.Type, id)
	if p.Caption != "" {
		s += " - " + p.Caption
	}
	return s
}

// LayoutFrame computes the wireframe of one page. Panels keep their stored
// positions; the grid is sized the same way the editor sizes it.
func LayoutFrame(pageIndex int, panels []domain.Panel, minCells int, o FrameOptions) Frame {
	o = o.withDefaults()
	size := grid.Fit(grid.ComputeLayout(len(panels), minCells), panels)
	fr := Frame{PageIndex: pageIndex, Size: size}

	innerW := o.PageWidth - 2*o.Margin
	innerH := o.PageHeight - 2*o.Margin
	cellW := (innerW - float64(size.Cols-1)*o.Gutter) / float64(size.Cols)
	cellH := (innerH - float64(size.Rows-1)*o.Gutter) / float64(size.Rows)
	if cellW <= 0 || cellH <= 0 {
		o.Gutter = 0
		cellW = innerW / float64(size.Cols)
		cellH = innerH / float64(size.Rows)
	}
	place := func(r grid.Rect) (x, y, w, h float64) {
		x = o.Margin + float64(r.Col)*(cellW+o.Gutter)
		y = o.Margin + float64(r.Row)*(cellH+o.Gutter)
		w = float64(r.ColSpan)*cellW + float64(r.ColSpan-1)*o.Gutter
		h = float64(r.RowSpan)*cellH + float64(r.RowSpan-1)*o.Gutter
		return
	}

	for row := 0; row < size.Rows; row++ {
		for col := 0; col < size.Cols; col++ {
			if grid.Occupied(panels, row, col) {
				continue
			}
			x, y, w, h := place(grid.Rect{Row: row, Col: col, RowSpan: 1, ColSpan: 1})
			fr.Cells = append(fr.Cells, Box{X: x, Y: y, W: w, H: h})
		}
	}
	for _, p := range panels {
		x, y, w, h := place(grid.RectOf(p))
		fr.Boxes = append(fr.Boxes, Box{X: x, Y: y, W: w, H: h, Panel: p})
	}
	return fr
}

// projectFrames lays out the requested pages of the project.
func projectFrames(ph *storage.ProjectHandle, o FrameOptions) ([]Frame, error) {
	if ph == nil {
		return nil, fmt.Errorf("project handle is nil")
	}
	total := len(ph.Project.Pages)
	var frames []Frame
	for _, pidx := range pageIndexes(total, o.Pages) {
		if pidx < 0 || pidx >= total {
			return nil, fmt.Errorf("%w: index %d", storage.ErrPageNotFound, pidx)
		}
		m, ok := o.MinCells[pidx]
		if !ok {
			m = grid.DefaultMinCells
		}
		frames = append(frames, LayoutFrame(pidx, ph.Project.Pages[pidx].Panels, m, o))
	}
	return frames, nil
}

func pageIndexes(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return specific
}
