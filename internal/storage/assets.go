/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Asset is a media file copied into the project, keyed by content hash.
type Asset struct {
	Hash      string
	Path      string // relative to the project root, slash separated
	Type      string
	Size      int64
	CreatedAt time.Time
}

// language=SQL
// dialect=SQLite
const upsertAssetSQL = `INSERT INTO assets(hash, path, type, size, created_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(hash) DO UPDATE SET path=excluded.path, type=excluded.type, size=excluded.size`

// language=SQL
// dialect=SQLite
const selectAssetSQL = `SELECT hash, path, type, size, created_at FROM assets WHERE hash = ?`

// language=SQL
// dialect=SQLite
const listAssetsSQL = `SELECT hash, path, type, size, created_at FROM assets ORDER BY created_at, hash`

// PutAsset records an asset, replacing the entry with the same hash.
func PutAsset(ctx context.Context, db *sql.DB, a Asset) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx, upsertAssetSQL, a.Hash, a.Path, a.Type, a.Size, a.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// FindAsset returns the asset with the given hash; ok is false when absent.
func FindAsset(ctx context.Context, db *sql.DB, hash string) (Asset, bool, error) {
	a, err := scanAsset(db.QueryRowContext(ctx, selectAssetSQL, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return Asset{}, false, nil
	}
	if err != nil {
		return Asset{}, false, err
	}
	return a, true, nil
}

// ListAssets returns all catalogued assets, oldest first.
func ListAssets(ctx context.Context, db *sql.DB) ([]Asset, error) {
	rows, err := db.QueryContext(ctx, listAssetsSQL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanAsset(s scanner) (Asset, error) {
	var a Asset
	var typ sql.NullString
	var ts string
	if err := s.Scan(&a.Hash, &a.Path, &typ, &a.Size, &ts); err != nil {
		return Asset{}, err
	}
	a.Type = typ.String
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	return a, nil
}
