/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package media

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gocomicgrid/internal/drop"
	applog "gocomicgrid/internal/log"
	"gocomicgrid/internal/storage"
)

// LocalUploader copies dropped files into <Root>/assets/<sha256><ext> and
// records them in the project index. Identical content is stored once.
type LocalUploader struct {
	Root string
	// DB is the project index; nil skips cataloguing.
	DB *sql.DB
}

// NewLocalUploader returns an uploader writing into the project at root.
func NewLocalUploader(root string, db *sql.DB) *LocalUploader {
	return &LocalUploader{Root: root, DB: db}
}

// Upload stores f and returns its project-relative path, e.g. "assets/ab12….png".
func (u *LocalUploader) Upload(ctx context.Context, f drop.File) (string, error) {
	if f.Open == nil {
		return "", fmt.Errorf("media: file %q has no content", f.Name)
	}
	src, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("media: open %q: %w", f.Name, err)
	}
	defer src.Close()

	dir := filepath.Join(u.Root, storage.AssetsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), &ctxReader{ctx: ctx, r: src})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("media: copy %q: %w", f.Name, err)
	}

	hash := hex.EncodeToString(h.Sum(nil))
	log := applog.WithComponent("media")
	if known, ok := u.catalogued(ctx, hash); ok {
		log.Debug("asset already stored", "path", known, "name", f.Name)
		return known, nil
	}

	name := hash + strings.ToLower(filepath.Ext(f.Name))
	dst := filepath.Join(dir, name)
	if _, err := os.Stat(dst); err != nil {
		if err := os.Rename(tmpName, dst); err != nil {
			return "", err
		}
	}
	rel := path.Join(storage.AssetsDirName, name)

	if u.DB != nil {
		a := storage.Asset{Hash: hash, Path: rel, Type: string(drop.Classify(f)), Size: n}
		if err := storage.PutAsset(ctx, u.DB, a); err != nil {
			return "", fmt.Errorf("media: catalogue %q: %w", rel, err)
		}
	}
	log.Debug("asset stored", "path", rel, "bytes", n)
	return rel, nil
}

// catalogued returns the stored path of content already in the index whose
// file is still on disk.
func (u *LocalUploader) catalogued(ctx context.Context, hash string) (string, bool) {
	if u.DB == nil {
		return "", false
	}
	a, ok, err := storage.FindAsset(ctx, u.DB, hash)
	if err != nil || !ok {
		return "", false
	}
	if _, err := os.Stat(filepath.Join(u.Root, filepath.FromSlash(a.Path))); err != nil {
		return "", false
	}
	return a.Path, true
}

// ctxReader stops a long copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
