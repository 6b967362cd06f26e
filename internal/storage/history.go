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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	applog "gocomicgrid/internal/log"
	"gocomicgrid/internal/undo"
)

const (
	stackUndo = "undo"
	stackRedo = "redo"
)

// language=SQL
// dialect=SQLite
const insertHistorySQL = `INSERT INTO history(page, stack, ts, blob) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectTopHistorySQL = `SELECT id, blob FROM history WHERE page = ? AND stack = ? ORDER BY id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const pruneHistorySQL = `DELETE FROM history WHERE page = ? AND stack = 'undo' AND id NOT IN (
	SELECT id FROM history WHERE page = ? AND stack = 'undo' ORDER BY id DESC LIMIT ?
)`

// IndexHistory keeps layout undo/redo stacks in the project index so they
// survive between CLI invocations. Failures are logged and reported as "nothing
// to undo"; layout history must never break an edit.
type IndexHistory struct {
	db         *sql.DB
	MaxPerPage int
	log        *slog.Logger
}

// NewIndexHistory returns a history backed by db keeping at most maxPerPage undo entries per page.
func NewIndexHistory(db *sql.DB, maxPerPage int) *IndexHistory {
	if maxPerPage <= 0 {
		maxPerPage = 100
	}
	return &IndexHistory{db: db, MaxPerPage: maxPerPage, log: applog.WithComponent("history")}
}

func (h *IndexHistory) Push(s undo.Snapshot) {
	ctx, cancel := h.ctx()
	defer cancel()
	err := h.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE page = ? AND stack = 'redo'`, s.Page); err != nil {
			return err
		}
		if err := insertHistory(ctx, tx, s.Page, stackUndo, s); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, pruneHistorySQL, s.Page, s.Page, h.MaxPerPage)
		return err
	})
	if err != nil {
		h.log.Error("history push failed", slog.Int("page", s.Page), slog.Any("err", err))
	}
}

func (h *IndexHistory) Undo(page int, current undo.Snapshot) (undo.Snapshot, bool) {
	return h.swap(page, stackUndo, stackRedo, current)
}

func (h *IndexHistory) Redo(page int, current undo.Snapshot) (undo.Snapshot, bool) {
	return h.swap(page, stackRedo, stackUndo, current)
}

// Depth returns the undo and redo depth of a page.
func (h *IndexHistory) Depth(page int) (undos, redos int) {
	ctx, cancel := h.ctx()
	defer cancel()
	rows, err := h.db.QueryContext(ctx, `SELECT stack, COUNT(*) FROM history WHERE page = ? GROUP BY stack`, page)
	if err != nil {
		h.log.Error("history depth failed", slog.Int("page", page), slog.Any("err", err))
		return 0, 0
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var stack string
		var n int
		if err := rows.Scan(&stack, &n); err != nil {
			return 0, 0
		}
		if stack == stackUndo {
			undos = n
		} else {
			redos = n
		}
	}
	return undos, redos
}

// Clear drops both stacks of a page.
func (h *IndexHistory) Clear(page int) error {
	ctx, cancel := h.ctx()
	defer cancel()
	_, err := h.db.ExecContext(ctx, `DELETE FROM history WHERE page = ?`, page)
	return err
}

// swap pops the top of from and parks current on to.
func (h *IndexHistory) swap(page int, from, to string, current undo.Snapshot) (undo.Snapshot, bool) {
	ctx, cancel := h.ctx()
	defer cancel()
	var out undo.Snapshot
	found := false
	err := h.tx(ctx, func(tx *sql.Tx) error {
		var id int64
		var blob []byte
		err := tx.QueryRowContext(ctx, selectTopHistorySQL, page, from).Scan(&id, &blob)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal(blob, &out); err != nil {
			return fmt.Errorf("decode history %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id); err != nil {
			return err
		}
		current.Page = page
		if err := insertHistory(ctx, tx, page, to, current); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		h.log.Error("history "+from+" failed", slog.Int("page", page), slog.Any("err", err))
		return undo.Snapshot{}, false
	}
	return out, found
}

func insertHistory(ctx context.Context, tx *sql.Tx, page int, stack string, s undo.Snapshot) error {
	if s.TS.IsZero() {
		s.TS = time.Now()
	}
	blob, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = tx.ExecContext(ctx, insertHistorySQL, page, stack, s.TS.UTC().Format(time.RFC3339Nano), blob)
	return err
}

func (h *IndexHistory) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (h *IndexHistory) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
