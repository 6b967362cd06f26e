/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package drop turns drag-and-drop payloads into new panels.
//
// A payload mirrors the three formats a browser drop carries: application/json
// (a serialized partial panel), text/plain (a bare URL) and a native file list.
// They are tried in that order and the first one present wins.
package drop

import (
	"io"
	"path/filepath"
	"strings"

	"gocomicgrid/internal/domain"
)

// Payload is one drop event. Drop coordinates are deliberately absent: new
// panels always go to the next free slot.
type Payload struct {
	JSON  []byte
	Text  string
	Files []File
}

// File is a dropped file. Open is called at most once, by the uploader.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Empty reports whether the payload carries nothing usable.
func (p Payload) Empty() bool {
	return len(strings.TrimSpace(string(p.JSON))) == 0 && strings.TrimSpace(p.Text) == "" && len(p.Files) == 0
}

// Classify maps a file to a panel type by MIME type and extension.
func Classify(f File) domain.PanelType {
	ct := strings.ToLower(strings.TrimSpace(f.ContentType))
	ext := strings.ToLower(filepath.Ext(f.Name))
	switch {
	case strings.HasPrefix(ct, "video/"):
		return domain.PanelVideo
	case strings.Contains(ct, "gif"), ct == "" && ext == ".gif":
		return domain.PanelGIF
	case ext == ".glb", ext == ".gltf", strings.HasPrefix(ct, "model/gltf"):
		return domain.Panel3D
	default:
		return domain.PanelImage
	}
}

// IsURL reports whether dropped text should be treated as a media URL.
func IsURL(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "http")
}
