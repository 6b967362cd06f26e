/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"errors"
	"io"
	"mime"
	"strings"

	"github.com/gofiber/fiber/v3"

	"gocomicgrid/internal/domain"
	"gocomicgrid/internal/drop"
	"gocomicgrid/internal/editor"
	"gocomicgrid/internal/grid"
)

// LayoutResponse is the page layout plus the session flags the UI needs.
type LayoutResponse struct {
	editor.Layout
	State editor.State `json:"state"`
}

// ChangeResponse reports whether an operation changed anything.
type ChangeResponse struct {
	Changed bool           `json:"changed"`
	Layout  LayoutResponse `json:"layout"`
}

// DropResponse carries the panel a drop created.
type DropResponse struct {
	Panel  domain.Panel   `json:"panel"`
	Layout LayoutResponse `json:"layout"`
}

// PlaceResponse carries the reflow outcome of a move or resize.
type PlaceResponse struct {
	Reflow grid.Result    `json:"reflow"`
	Layout LayoutResponse `json:"layout"`
}

type mediaRequest struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

func layoutOf(sess *editor.Session) LayoutResponse {
	return LayoutResponse{Layout: sess.Layout(), State: sess.State()}
}

func changed(c fiber.Ctx, sess *editor.Session, ok bool) error {
	return c.JSON(ChangeResponse{Changed: ok, Layout: layoutOf(sess)})
}

func (s *Server) ready(c fiber.Ctx) error {
	if s.o.DB != nil {
		if err := s.o.DB.PingContext(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "index unavailable"})
		}
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

func (s *Server) listPages(c fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.doc.PageCount()
	type pageInfo struct {
		Index  int `json:"index"`
		Number int `json:"number"`
		Panels int `json:"panels"`
	}
	out := make([]pageInfo, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, pageInfo{Index: i, Number: i + 1, Panels: len(s.doc.Panels(i))})
	}
	return c.JSON(fiber.Map{"pages": out})
}

func (s *Server) getLayout(c fiber.Ctx, sess *editor.Session) error {
	return c.JSON(layoutOf(sess))
}

// dropPanel accepts the three drop formats: multipart with a "file" part
// (optionally "json"/"text" fields), application/json and text/plain.
func (s *Server) dropPanel(c fiber.Ctx, sess *editor.Session) error {
	p, err := payloadFrom(c)
	if err != nil {
		return err
	}
	panel, err := sess.Insert(c.Context(), p)
	switch {
	case err == nil:
		return c.Status(fiber.StatusCreated).JSON(DropResponse{Panel: panel, Layout: layoutOf(sess)})
	case errors.Is(err, drop.ErrGridFull):
		return fiber.NewError(fiber.StatusConflict, "grid is full")
	case errors.Is(err, drop.ErrEmptyPayload):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, drop.ErrInvalidPayload):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
}

func payloadFrom(c fiber.Ctx) (drop.Payload, error) {
	mt, _, _ := mime.ParseMediaType(c.Get(fiber.HeaderContentType))
	switch mt {
	case fiber.MIMEMultipartForm:
		var p drop.Payload
		if fh, err := c.FormFile("file"); err == nil {
			p.Files = []drop.File{{
				Name:        fh.Filename,
				ContentType: fh.Header.Get(fiber.HeaderContentType),
				Size:        fh.Size,
				Open:        func() (io.ReadCloser, error) { return fh.Open() },
			}}
		}
		if v := c.FormValue("json"); v != "" {
			p.JSON = []byte(v)
		}
		p.Text = c.FormValue("text")
		return p, nil
	case fiber.MIMEApplicationJSON:
		return drop.Payload{JSON: append([]byte(nil), c.Body()...)}, nil
	case "", fiber.MIMETextPlain:
		return drop.Payload{Text: string(c.Body())}, nil
	default:
		return drop.Payload{}, fiber.NewError(fiber.StatusUnsupportedMediaType, "unsupported drop content type "+mt)
	}
}

func (s *Server) reflow(c fiber.Ctx, sess *editor.Session) error {
	res := sess.Reflow()
	return c.JSON(PlaceResponse{Reflow: res, Layout: layoutOf(sess)})
}

func (s *Server) placePanel(c fiber.Ctx, sess *editor.Session) error {
	var pos domain.Position
	if err := c.Bind().JSON(&pos); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid position: "+err.Error())
	}
	res, ok := sess.Place(c.Params("id"), pos)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "panel not found")
	}
	return c.JSON(PlaceResponse{Reflow: res, Layout: layoutOf(sess)})
}

func (s *Server) selectPanel(c fiber.Ctx, sess *editor.Session) error {
	if !sess.Select(c.Params("id")) {
		return fiber.NewError(fiber.StatusNotFound, "panel not found")
	}
	return changed(c, sess, true)
}

func (s *Server) replaceMedia(c fiber.Ctx, sess *editor.Session) error {
	var req mediaRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid media: "+err.Error())
	}
	if strings.TrimSpace(req.URL) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "url is required")
	}
	var typ domain.PanelType
	if req.Type != "" {
		typ = domain.ParsePanelType(req.Type)
	}
	if !sess.ReplaceMedia(c.Params("id"), typ, strings.TrimSpace(req.URL)) {
		return fiber.NewError(fiber.StatusNotFound, "panel not found")
	}
	return changed(c, sess, true)
}

func (s *Server) removePanel(c fiber.Ctx, sess *editor.Session) error {
	if !sess.Remove(c.Params("id")) {
		return fiber.NewError(fiber.StatusNotFound, "panel not found")
	}
	return changed(c, sess, true)
}

func (s *Server) expand(c fiber.Ctx, sess *editor.Session) error {
	sess.Expand()
	return changed(c, sess, true)
}

func (s *Server) shrink(c fiber.Ctx, sess *editor.Session) error {
	return changed(c, sess, sess.Shrink())
}

func (s *Server) undo(c fiber.Ctx, sess *editor.Session) error {
	return changed(c, sess, sess.Undo())
}

func (s *Server) redo(c fiber.Ctx, sess *editor.Session) error {
	return changed(c, sess, sess.Redo())
}

func (s *Server) clearHistory(c fiber.Ctx, sess *editor.Session) error {
	if !sess.ClearHistory() {
		return fiber.NewError(fiber.StatusInternalServerError, "clear history failed")
	}
	return changed(c, sess, true)
}
