/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"gocomicgrid/internal/domain"
	"gocomicgrid/internal/grid"
	applog "gocomicgrid/internal/log"
)

var (
	// ErrGridFull means no free cell is left; the drop must be refused.
	ErrGridFull = errors.New("drop: grid is full")
	// ErrInvalidPayload means the JSON payload could not be parsed.
	ErrInvalidPayload = errors.New("drop: invalid panel payload")
	// ErrEmptyPayload means the payload carried neither JSON, URL text nor files.
	ErrEmptyPayload = errors.New("drop: empty payload")
)

// Uploader stores a dropped file and returns a durable URL for it.
type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
}

// UploaderFunc adapts a function to Uploader.
type UploaderFunc func(ctx context.Context, f File) (string, error)

func (fn UploaderFunc) Upload(ctx context.Context, f File) (string, error) { return fn(ctx, f) }

// Interpreter converts payloads into panels.
type Interpreter struct {
	Uploader Uploader
	// NewID overrides id generation; uuid.NewString when nil.
	NewID func() string
	Log   *slog.Logger
}

// NewInterpreter returns an Interpreter that uploads files through up.
func NewInterpreter(up Uploader) *Interpreter {
	return &Interpreter{Uploader: up, Log: applog.WithComponent("drop")}
}

// Interpret builds the panel for p, placed at the first free slot of panels on a
// grid of size s with a 1x1 span. The free slot is computed before any upload,
// so a full grid never costs an upload. It never mutates panels.
func (in *Interpreter) Interpret(ctx context.Context, p Payload, panels []domain.Panel, s grid.Size) (domain.Panel, error) {
	l := in.logger()
	if p.Empty() {
		return domain.Panel{}, ErrEmptyPayload
	}
	slot, ok := grid.FindFreeSlot(panels, s)
	if !ok {
		l.Info("drop refused", slog.Int("rows", s.Rows), slog.Int("cols", s.Cols))
		return domain.Panel{}, ErrGridFull
	}
	at := domain.Position{Row: slot.Row, Col: slot.Col, RowSpan: 1, ColSpan: 1}

	switch {
	case len(strings.TrimSpace(string(p.JSON))) > 0:
		panel, err := parsePanel(p.JSON)
		if err != nil {
			l.Warn("drop json rejected", slog.Any("err", err))
			return domain.Panel{}, err
		}
		panel.ID = in.newID()
		panel.Position = at
		l.Debug("drop json", slog.String("id", panel.ID), slog.String("type", string(panel.Type)))
		return panel, nil

	case IsURL(p.Text):
		panel := domain.Panel{ID: in.newID(), Type: domain.PanelImage, URL: strings.TrimSpace(p.Text), Position: at}
		l.Debug("drop url", slog.String("id", panel.ID), slog.String("url", panel.URL))
		return panel, nil

	case len(p.Files) > 0:
		f := p.Files[0]
		typ := Classify(f)
		if in.Uploader == nil {
			return domain.Panel{}, fmt.Errorf("drop: no uploader configured for %q", f.Name)
		}
		url, err := in.Uploader.Upload(ctx, f)
		if err != nil {
			l.Error("upload failed", slog.String("file", f.Name), slog.Any("err", err))
			return domain.Panel{}, fmt.Errorf("drop: upload %q: %w", f.Name, err)
		}
		panel := domain.Panel{ID: in.newID(), Type: typ, URL: url, Position: at}
		l.Info("drop file", slog.String("id", panel.ID), slog.String("file", f.Name), slog.String("type", string(typ)))
		return panel, nil
	}
	// Text that is not a URL and nothing else.
	return domain.Panel{}, ErrEmptyPayload
}

func parsePanel(data []byte) (domain.Panel, error) {
	if err := ValidatePanelJSON(data); err != nil {
		return domain.Panel{}, err
	}
	var panel domain.Panel
	if err := json.Unmarshal(data, &panel); err != nil {
		return domain.Panel{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if strings.TrimSpace(string(panel.Type)) == "" {
		panel.Type = domain.PanelImage
	} else {
		panel.Type = domain.ParsePanelType(string(panel.Type))
	}
	return panel, nil
}

func (in *Interpreter) newID() string {
	if in.NewID != nil {
		return in.NewID()
	}
	return uuid.NewString()
}

func (in *Interpreter) logger() *slog.Logger {
	if in.Log != nil {
		return in.Log
	}
	return applog.WithComponent("drop")
}
