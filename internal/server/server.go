/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package server exposes page editing over HTTP for the browser editor.
// All requests touching a page are serialised through one mutex, so the
// editor sessions behind it see a single-threaded world.
package server

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"gocomicgrid/internal/crash"
	"gocomicgrid/internal/drop"
	"gocomicgrid/internal/editor"
	applog "gocomicgrid/internal/log"
	"gocomicgrid/internal/storage"
	"gocomicgrid/internal/telemetry"
	"gocomicgrid/internal/undo"
)

// Options configures a Server. Zero values select defaults.
type Options struct {
	MinCells     int
	MaxPasses    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
	Uploader     drop.Uploader
	// History defaults to an in-memory undo manager.
	History editor.History
	// DB, when set, persists per-page session state in the project index.
	DB *sql.DB
	Events telemetry.Emitter
	// AccessLog enables the one-line-per-request fiber logger.
	AccessLog bool
	Log       *slog.Logger
}

// Server owns the editor sessions of one open project.
type Server struct {
	mu       sync.Mutex
	doc      *storage.Document
	o        Options
	interp   *drop.Interpreter
	sessions map[int]*editor.Session
	app      *fiber.App
	log      *slog.Logger
}

// New builds the fiber app for doc.
func New(doc *storage.Document, o Options) *Server {
	if o.History == nil {
		o.History = undo.NewManager(undo.Config{MaxPerPage: 200})
	}
	if o.Log == nil {
		o.Log = applog.WithComponent("server")
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 15 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 30 * time.Second
	}
	if o.BodyLimit <= 0 {
		o.BodyLimit = 64 << 20
	}
	s := &Server{
		doc:      doc,
		o:        o,
		interp:   drop.NewInterpreter(o.Uploader),
		sessions: map[int]*editor.Session{},
		log:      o.Log,
	}
	s.app = fiber.New(fiber.Config{
		AppName:      "Go Comic Grid",
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
		BodyLimit:    o.BodyLimit,
		ErrorHandler: s.handleError,
	})
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			crash.Report(doc.Handle(), e, debug.Stack())
		},
	}))
	if o.AccessLog {
		s.app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	s.routes()
	return s
}

// App returns the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	s.log.Info("server listening", slog.String("addr", addr))
	if s.o.Events != nil {
		s.o.Events.Event(telemetry.EventServerStarted, map[string]any{"pages": s.doc.PageCount()})
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(sctx); err != nil {
			return err
		}
		s.log.Info("server stopped")
		return nil
	}
}

func (s *Server) routes() {
	s.app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})
	s.app.Get("/health/ready", s.ready)

	api := s.app.Group("/api")
	api.Get("/pages", s.listPages)
	pg := api.Group("/pages/:page")
	pg.Get("/layout", s.withSession(s.getLayout))
	pg.Post("/drop", s.withSession(s.dropPanel))
	pg.Post("/reflow", s.withSession(s.reflow))
	pg.Put("/panels/:id/position", s.withSession(s.placePanel))
	pg.Post("/panels/:id/select", s.withSession(s.selectPanel))
	pg.Put("/panels/:id/media", s.withSession(s.replaceMedia))
	pg.Delete("/panels/:id", s.withSession(s.removePanel))
	pg.Post("/grid/expand", s.withSession(s.expand))
	pg.Post("/grid/shrink", s.withSession(s.shrink))
	pg.Post("/undo", s.withSession(s.undo))
	pg.Post("/redo", s.withSession(s.redo))
	pg.Delete("/history", s.withSession(s.clearHistory))
}

type sessionHandler func(c fiber.Ctx, sess *editor.Session) error

// withSession resolves :page, locks the server and hands the page session to h.
// Page indexes are zero-based; the index one past the last page addresses a new page.
func (s *Server) withSession(h sessionHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		page, err := strconv.Atoi(c.Params("page"))
		if err != nil || page < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "page must be a non-negative integer")
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if page > s.doc.PageCount() {
			return fiber.NewError(fiber.StatusNotFound, "page not found")
		}
		sess := s.session(c.Context(), page)
		if err := h(c, sess); err != nil {
			return err
		}
		s.persist(c.Context(), sess)
		return nil
	}
}

// session returns the cached session of page, restoring its state from the index.
func (s *Server) session(ctx context.Context, page int) *editor.Session {
	if sess, ok := s.sessions[page]; ok {
		return sess
	}
	o := editor.Options{
		MinCells:    s.o.MinCells,
		MaxPasses:   s.o.MaxPasses,
		History:     s.o.History,
		Interpreter: s.interp,
		Events:      s.o.Events,
	}
	if s.o.DB != nil {
		st, ok, err := storage.LoadSession(ctx, s.o.DB, page)
		if err != nil {
			s.log.Warn("load session state failed", slog.Int("page", page), slog.Any("err", err))
		} else if ok {
			o.MinCells, o.Selected = st.MinCells, st.Selected
		}
	}
	sess := editor.NewSession(s.doc, page, o)
	s.sessions[page] = sess
	return sess
}

func (s *Server) persist(ctx context.Context, sess *editor.Session) {
	if s.o.DB == nil {
		return
	}
	st := sess.State()
	if err := storage.SaveSession(ctx, s.o.DB, storage.SessionState{Page: st.Page, MinCells: st.MinCells, Selected: st.Selected}); err != nil {
		s.log.Warn("save session state failed", slog.Int("page", st.Page), slog.Any("err", err))
	}
}

func (s *Server) handleError(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", slog.String("method", c.Method()), slog.String("path", c.Path()), slog.Any("err", err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
