/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package media

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocomicgrid/internal/drop"
	"gocomicgrid/internal/storage"
)

func memFile(name, ct, body string) drop.File {
	return drop.File{
		Name:        name,
		ContentType: ct,
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

var (
	_ drop.Uploader = (*HTTPUploader)(nil)
	_ drop.Uploader = (*LocalUploader)(nil)
)

func TestHTTPUploader_Upload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header: %q", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if string(b) != "PNGDATA" || hdr.Filename != "cat.png" {
			t.Errorf("unexpected upload %q %q", hdr.Filename, b)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example/cat.png"})
	}))
	defer srv.Close()

	u := NewHTTPUploader(srv.URL+"/", "tok", time.Second)
	got, err := u.Upload(context.Background(), memFile("cat.png", "image/png", "PNGDATA"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if got != "https://cdn.example/cat.png" {
		t.Fatalf("url = %q", got)
	}
}

func TestHTTPUploader_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()
	u := NewHTTPUploader(srv.URL, "", time.Second)
	if _, err := u.Upload(context.Background(), memFile("a.png", "", "x")); err == nil {
		t.Fatal("expected error on 500")
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write([]byte(`{"url":""}`))
	}))
	defer empty.Close()
	u = NewHTTPUploader(empty.URL, "", time.Second)
	if _, err := u.Upload(context.Background(), memFile("a.png", "", "x")); err != ErrNoURL {
		t.Fatalf("want ErrNoURL, got %v", err)
	}

	if _, err := u.Upload(context.Background(), drop.File{Name: "nothing"}); err == nil {
		t.Fatal("expected error for file without content")
	}
}

func TestLocalUploader_StoresAndCatalogues(t *testing.T) {
	root := t.TempDir()
	db, err := storage.InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	defer db.Close()

	u := NewLocalUploader(root, db)
	ctx := context.Background()
	rel, err := u.Upload(ctx, memFile("Photo.PNG", "image/png", "hello"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(rel, "assets/") || !strings.HasSuffix(rel, ".png") {
		t.Fatalf("unexpected path %q", rel)
	}
	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil || !bytes.Equal(b, []byte("hello")) {
		t.Fatalf("stored content: %q %v", b, err)
	}

	again, err := u.Upload(ctx, memFile("copy.png", "image/png", "hello"))
	if err != nil || again != rel {
		t.Fatalf("duplicate content should map to same asset: %q %v", again, err)
	}
	assets, err := storage.ListAssets(ctx, db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(assets) != 1 || assets[0].Path != rel || assets[0].Size != 5 || assets[0].Type != "image" {
		t.Fatalf("unexpected catalogue: %+v", assets)
	}
	entries, _ := os.ReadDir(filepath.Join(root, storage.AssetsDirName))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".upload-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLocalUploader_ReusesCataloguedContent(t *testing.T) {
	root := t.TempDir()
	db, err := storage.InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	defer db.Close()
	u := NewLocalUploader(root, db)
	ctx := context.Background()

	first, err := u.Upload(ctx, memFile("clip.gif", "image/gif", "GIF89a-frames"))
	if err != nil {
		t.Fatal(err)
	}
	// same bytes under another extension resolve to the catalogued file
	second, err := u.Upload(ctx, memFile("clip-renamed.webp", "image/webp", "GIF89a-frames"))
	if err != nil || second != first {
		t.Fatalf("known content should reuse %q, got %q (%v)", first, second, err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, storage.AssetsDirName))
	if len(entries) != 1 {
		t.Fatalf("expected a single stored file, got %d", len(entries))
	}
	assets, _ := storage.ListAssets(ctx, db)
	if len(assets) != 1 || assets[0].Type != "gif" {
		t.Fatalf("catalogue should keep the first entry: %+v", assets)
	}

	// a catalogued file that vanished from disk is stored again
	if err := os.Remove(filepath.Join(root, filepath.FromSlash(first))); err != nil {
		t.Fatal(err)
	}
	third, err := u.Upload(ctx, memFile("clip.gif", "image/gif", "GIF89a-frames"))
	if err != nil || third != first {
		t.Fatalf("re-store: %q %v", third, err)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(third))); err != nil {
		t.Fatalf("file not restored: %v", err)
	}
}

func TestLocalUploader_CancelledContext(t *testing.T) {
	u := NewLocalUploader(t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := u.Upload(ctx, memFile("a.gif", "image/gif", "GIF89a")); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
