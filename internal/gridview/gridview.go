/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gridview draws a page grid in the terminal with lipgloss.
package gridview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gocomicgrid/internal/domain"
	"gocomicgrid/internal/editor"
	"gocomicgrid/internal/grid"
)

// Options tunes rendering.
type Options struct {
	// CellWidth is the inner width of one cell in columns; default 10.
	CellWidth int
	// Renderer selects the output color profile; nil uses the default renderer.
	Renderer *lipgloss.Renderer
	// Legend appends one line per panel with its position and URL.
	Legend bool
}

var typeColors = map[domain.PanelType]lipgloss.Color{
	domain.PanelImage: lipgloss.Color("39"),
	domain.PanelVideo: lipgloss.Color("203"),
	domain.PanelGIF:   lipgloss.Color("141"),
	domain.Panel3D:    lipgloss.Color("78"),
	domain.PanelText:  lipgloss.Color("221"),
}

// RenderLayout renders an editor layout with its header line.
func RenderLayout(l editor.Layout, o Options) string {
	r := renderer(o)
	head := r.NewStyle().Bold(true).Render(fmt.Sprintf("page %d", l.Page+1)) +
		r.NewStyle().Faint(true).Render(fmt.Sprintf("  %dx%d  minCells=%d  panels=%d  spanArea=%d",
			l.Size.Rows, l.Size.Cols, l.MinCells, len(l.Panels), l.SpanArea))
	return lipgloss.JoinVertical(lipgloss.Left, head, Render(l.Size, l.Panels, l.Selected, o))
}

// Render draws the grid cell by cell. Each cell shows the short id of the
// panel covering it, or a dot when free; the selected panel is highlighted.
func Render(size grid.Size, panels []domain.Panel, selected string, o Options) string {
	r := renderer(o)
	w := o.CellWidth
	if w <= 0 {
		w = 10
	}
	owner := make(map[grid.Cell]int, size.Cells())
	for i, p := range panels {
		pr := grid.RectOf(p)
		for row := pr.Row; row < pr.Bottom(); row++ {
			for col := pr.Col; col < pr.Right(); col++ {
				c := grid.Cell{Row: row, Col: col}
				if _, taken := owner[c]; !taken {
					owner[c] = i
				}
			}
		}
	}

	base := r.NewStyle().Width(w).MaxWidth(w).Align(lipgloss.Center)
	free := base.Foreground(lipgloss.Color("240"))
	rows := make([]string, 0, size.Rows)
	for row := 0; row < size.Rows; row++ {
		cells := make([]string, 0, size.Cols)
		for col := 0; col < size.Cols; col++ {
			i, ok := owner[grid.Cell{Row: row, Col: col}]
			if !ok {
				cells = append(cells, free.Render("."))
				continue
			}
			p := panels[i]
			st := base.Foreground(typeColors[p.Type])
			if p.ID == selected {
				st = st.Reverse(true).Bold(true)
			}
			cells = append(cells, st.Render(ShortID(p.ID, w-2)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	body := r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	if !o.Legend || len(panels) == 0 {
		return body
	}
	var b strings.Builder
	b.WriteString(body)
	for _, p := range panels {
		mark := " "
		if p.ID == selected {
			mark = "*"
		}
		pos := p.Position.Normalized()
		line := fmt.Sprintf("\n%s %-10s %-5s r%d c%d %dx%d %s", mark, ShortID(p.ID, 10), p.Type, pos.Row, pos.Col, pos.RowSpan, pos.ColSpan, p.URL)
		b.WriteString(strings.TrimRight(line, " "))
	}
	return b.String()
}

// ShortID truncates an id to n runes.
func ShortID(id string, n int) string {
	if n <= 0 {
		n = 1
	}
	rs := []rune(id)
	if len(rs) <= n {
		return id
	}
	return string(rs[:n])
}

func renderer(o Options) *lipgloss.Renderer {
	if o.Renderer != nil {
		return o.Renderer
	}
	return lipgloss.DefaultRenderer()
}
