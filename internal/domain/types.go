/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "strings"

// This file defines the data model shared by the layout engine, the editor session
// and the project manifest. Field names follow the JSON used by the browser editor
// so a panel dragged out of another tool (application/json) decodes directly.

// Project represents a comic project and its metadata.
// It serializes to the human-readable JSON manifest.
type Project struct {
	Name     string   `json:"name"`
	Metadata Metadata `json:"metadata,omitempty"`
	Pages    []Page   `json:"pages"`
}

// Metadata contains optional descriptive metadata for a project.
type Metadata struct {
	Series   string `json:"series,omitempty"`
	Creators string `json:"creators,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Page is a single comic page. The grid itself is not stored; it is derived
// from the panel set and the session's minimum cell budget.
type Page struct {
	Number int     `json:"number"`
	Panels []Panel `json:"panels"`
}

// PanelType classifies the media a panel shows.
type PanelType string

const (
	PanelImage PanelType = "image"
	PanelVideo PanelType = "video"
	PanelGIF   PanelType = "gif"
	Panel3D    PanelType = "3d"
	PanelText  PanelType = "text"
)

// ParsePanelType maps a loose type string onto a known PanelType.
// Unknown values fall back to text, which covers "text/other".
func ParsePanelType(s string) PanelType {
	switch PanelType(strings.ToLower(strings.TrimSpace(s))) {
	case PanelImage:
		return PanelImage
	case PanelVideo:
		return PanelVideo
	case PanelGIF:
		return PanelGIF
	case Panel3D:
		return Panel3D
	default:
		return PanelText
	}
}

// Position is the panel's anchor cell and span on the page grid.
// Row/Col are zero-based; spans below 1 are treated as 1.
type Position struct {
	Row     int `json:"row"`
	Col     int `json:"col"`
	RowSpan int `json:"rowSpan,omitempty"`
	ColSpan int `json:"colSpan,omitempty"`
}

// Normalized returns a copy with spans defaulted to 1.
func (p Position) Normalized() Position {
	if p.RowSpan < 1 {
		p.RowSpan = 1
	}
	if p.ColSpan < 1 {
		p.ColSpan = 1
	}
	return p
}

// Panel is a rectangular media cell placed on the page grid.
type Panel struct {
	ID       string    `json:"id"`
	Type     PanelType `json:"type"`
	URL      string    `json:"url"`
	Position Position  `json:"position"`

	// Presentation fields owned by the editing UI; the layout engine ignores them.
	Caption         string        `json:"caption,omitempty"`
	CaptionPosition string        `json:"captionPosition,omitempty"` // top, bottom, overlay
	CaptionStyle    *CaptionStyle `json:"captionStyle,omitempty"`
	ImagePosition   *Offset       `json:"imagePosition,omitempty"`
	ImageZoom       float64       `json:"imageZoom,omitempty"`
}

// CaptionStyle is an opaque bag of caption typography settings.
type CaptionStyle struct {
	Font       string `json:"font,omitempty"`
	Size       int    `json:"size,omitempty"`
	Color      string `json:"color,omitempty"`
	Background string `json:"background,omitempty"`
}

// Offset is the pan of the media inside its panel, in percent.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
