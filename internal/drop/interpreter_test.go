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
	"errors"
	"io"
	"strings"
	"testing"

	"gocomicgrid/internal/domain"
	"gocomicgrid/internal/grid"
)

type fakeUploader struct {
	calls int
	url   string
	err   error
	got   File
}

func (f *fakeUploader) Upload(_ context.Context, file File) (string, error) {
	f.calls++
	f.got = file
	return f.url, f.err
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return "id-" + string(rune('0'+n))
	}
}

func textFile(name, ct string) File {
	return File{Name: name, ContentType: ct, Size: 3, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("abc")), nil
	}}
}

func TestInterpretURLOnEmptyGrid(t *testing.T) {
	in := &Interpreter{NewID: seqIDs()}
	p, err := in.Interpret(context.Background(), Payload{Text: "https://example.com/x.png"}, nil, grid.ComputeLayout(0, 4))
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if p.Type != domain.PanelImage || p.URL != "https://example.com/x.png" {
		t.Fatalf("unexpected panel %+v", p)
	}
	if p.Position != (domain.Position{Row: 0, Col: 0, RowSpan: 1, ColSpan: 1}) || p.ID != "id-1" {
		t.Fatalf("unexpected placement %+v", p)
	}
}

func TestInterpretFileGoesToNextFreeCell(t *testing.T) {
	up := &fakeUploader{url: "https://cdn.example/v.mp4"}
	in := &Interpreter{Uploader: up, NewID: seqIDs()}
	existing := []domain.Panel{{ID: "a", Type: domain.PanelImage, Position: domain.Position{Row: 0, Col: 0, RowSpan: 1, ColSpan: 1}}}
	p, err := in.Interpret(context.Background(), Payload{Files: []File{textFile("clip.mp4", "video/mp4"), textFile("b.png", "image/png")}}, existing, grid.ComputeLayout(1, 4))
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if p.Position.Row != 0 || p.Position.Col != 1 {
		t.Fatalf("expected (0,1), got %+v", p.Position)
	}
	if p.Type != domain.PanelVideo || p.URL != up.url {
		t.Fatalf("unexpected panel %+v", p)
	}
	if up.calls != 1 || up.got.Name != "clip.mp4" {
		t.Fatalf("expected one upload of the first file, got %d (%s)", up.calls, up.got.Name)
	}
}

func TestInterpretGridFullSkipsUpload(t *testing.T) {
	up := &fakeUploader{url: "u"}
	in := &Interpreter{Uploader: up}
	full := []domain.Panel{{ID: "a", Position: domain.Position{RowSpan: 2, ColSpan: 2}}}
	_, err := in.Interpret(context.Background(), Payload{Files: []File{textFile("a.png", "image/png")}}, full, grid.Size{Rows: 2, Cols: 2})
	if !errors.Is(err, ErrGridFull) {
		t.Fatalf("expected ErrGridFull, got %v", err)
	}
	if up.calls != 0 {
		t.Fatalf("upload must not be attempted on a full grid")
	}
}

func TestInterpretUploadFailure(t *testing.T) {
	boom := errors.New("boom")
	in := &Interpreter{Uploader: &fakeUploader{err: boom}}
	_, err := in.Interpret(context.Background(), Payload{Files: []File{textFile("a.png", "image/png")}}, nil, grid.Size{Rows: 2, Cols: 2})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped upload error, got %v", err)
	}
}

func TestInterpretJSONWins(t *testing.T) {
	in := &Interpreter{NewID: seqIDs()}
	payload := Payload{
		JSON: []byte(`{"id":"old","type":"gif","url":"https://x/y.gif","caption":"hi","position":{"row":5,"col":5,"rowSpan":3,"colSpan":3}}`),
		Text: "https://ignored.example",
	}
	p, err := in.Interpret(context.Background(), payload, nil, grid.Size{Rows: 2, Cols: 2})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if p.ID != "id-1" || p.Type != domain.PanelGIF || p.URL != "https://x/y.gif" || p.Caption != "hi" {
		t.Fatalf("unexpected panel %+v", p)
	}
	if p.Position != (domain.Position{Row: 0, Col: 0, RowSpan: 1, ColSpan: 1}) {
		t.Fatalf("json position must be replaced by the free slot, got %+v", p.Position)
	}
}

func TestInterpretJSONDefaultsToImage(t *testing.T) {
	in := &Interpreter{}
	p, err := in.Interpret(context.Background(), Payload{JSON: []byte(`{"url":"https://x/a.png"}`)}, nil, grid.Size{Rows: 2, Cols: 2})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if p.Type != domain.PanelImage || p.ID == "" {
		t.Fatalf("expected image panel with generated id, got %+v", p)
	}
}

func TestInterpretInvalidJSONDoesNotFallThrough(t *testing.T) {
	up := &fakeUploader{url: "u"}
	in := &Interpreter{Uploader: up}
	for _, raw := range []string{`{not json`, `[1,2]`, `{"position":{"row":"x"}}`} {
		payload := Payload{JSON: []byte(raw), Text: "https://example.com/x.png", Files: []File{textFile("a.png", "image/png")}}
		_, err := in.Interpret(context.Background(), payload, nil, grid.Size{Rows: 2, Cols: 2})
		if !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("%s: expected ErrInvalidPayload, got %v", raw, err)
		}
	}
	if up.calls != 0 {
		t.Fatalf("invalid json must not trigger an upload")
	}
}

func TestInterpretEmpty(t *testing.T) {
	in := &Interpreter{}
	for _, p := range []Payload{{}, {Text: "not a url"}, {JSON: []byte("  ")}} {
		if _, err := in.Interpret(context.Background(), p, nil, grid.Size{Rows: 2, Cols: 2}); !errors.Is(err, ErrEmptyPayload) {
			t.Fatalf("payload %+v: expected ErrEmptyPayload, got %v", p, err)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		f    File
		want domain.PanelType
	}{
		{File{Name: "a.mp4", ContentType: "video/mp4"}, domain.PanelVideo},
		{File{Name: "a.webm", ContentType: "VIDEO/WEBM"}, domain.PanelVideo},
		{File{Name: "a.gif", ContentType: "image/gif"}, domain.PanelGIF},
		{File{Name: "a.gif"}, domain.PanelGIF},
		{File{Name: "scene.GLB", ContentType: "application/octet-stream"}, domain.Panel3D},
		{File{Name: "scene", ContentType: "model/gltf-binary"}, domain.Panel3D},
		{File{Name: "scene.gltf"}, domain.Panel3D},
		{File{Name: "a.png", ContentType: "image/png"}, domain.PanelImage},
		{File{Name: "blob"}, domain.PanelImage},
	}
	for _, c := range cases {
		if got := Classify(c.f); got != c.want {
			t.Fatalf("Classify(%s, %s) = %s, want %s", c.f.Name, c.f.ContentType, got, c.want)
		}
	}
}
