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

// SessionState is the editor state of one page that survives between runs.
// It is local to this checkout and never written to comic.json.
type SessionState struct {
	Page      int
	MinCells  int
	Selected  string
	UpdatedAt time.Time
}

// language=SQL
// dialect=SQLite
const upsertSessionSQL = `INSERT INTO sessions(page, min_cells, selected, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(page) DO UPDATE SET min_cells=excluded.min_cells, selected=excluded.selected, updated_at=excluded.updated_at`

// LoadSession returns the stored state of a page; ok is false when none was saved.
func LoadSession(ctx context.Context, db *sql.DB, page int) (SessionState, bool, error) {
	var st SessionState
	var sel sql.NullString
	var ts string
	err := db.QueryRowContext(ctx, `SELECT page, min_cells, selected, updated_at FROM sessions WHERE page = ?`, page).
		Scan(&st.Page, &st.MinCells, &sel, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionState{}, false, nil
	}
	if err != nil {
		return SessionState{}, false, err
	}
	st.Selected = sel.String
	st.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	return st, true, nil
}

// SaveSession stores the state of a page.
func SaveSession(ctx context.Context, db *sql.DB, st SessionState) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	var sel sql.NullString
	if st.Selected != "" {
		sel = sql.NullString{String: st.Selected, Valid: true}
	}
	_, err := db.ExecContext(ctx, upsertSessionSQL, st.Page, st.MinCells, sel, st.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}
