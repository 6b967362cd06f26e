/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cli implements the gocomicgrid command-line interface.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"gocomicgrid/internal/config"
	"gocomicgrid/internal/crash"
	"gocomicgrid/internal/drop"
	"gocomicgrid/internal/editor"
	applog "gocomicgrid/internal/log"
	"gocomicgrid/internal/media"
	"gocomicgrid/internal/storage"
	"gocomicgrid/internal/telemetry"
	"gocomicgrid/internal/version"
)

// CLI holds shared state for all commands.
type CLI struct {
	Out io.Writer
	Err io.Writer

	projectDir string
	page       int
	verbose    bool

	cfg   config.AppConfig
	token string
	log   *slog.Logger
	ui    *lipgloss.Renderer
}

// New creates a CLI writing results to out and logs to errw.
func New(out, errw io.Writer) *CLI {
	return &CLI{Out: out, Err: errw, ui: lipgloss.NewRenderer(out)}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gocomicgrid",
		Short:         "Lay out comic pages on a self-sizing panel grid",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	root.SetVersionTemplate("gocomicgrid {{.Version}}\n")
	root.SetOut(c.Out)
	root.SetErr(c.Err)

	pf := root.PersistentFlags()
	pf.StringVarP(&c.projectDir, "project", "p", ".", "project directory")
	pf.IntVar(&c.page, "page", 0, "zero-based page index")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.initCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.dropCommand())
	root.AddCommand(c.placeCommand())
	root.AddCommand(c.selectCommand())
	root.AddCommand(c.removeCommand())
	root.AddCommand(c.mediaCommand())
	root.AddCommand(c.reflowCommand())
	root.AddCommand(c.expandCommand())
	root.AddCommand(c.shrinkCommand())
	root.AddCommand(c.undoCommand())
	root.AddCommand(c.redoCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.versionCommand())
	return root
}

// setup loads the user config and initializes logging and telemetry.
func (c *CLI) setup() error {
	cfg, tok, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.cfg, c.token = cfg, tok
	lvl := cfg.Logging.Level
	if c.verbose {
		lvl = "debug"
	}
	applog.Init(applog.Options{
		Level:     lvl,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Console:   c.Err,
	})
	c.log = applog.WithComponent("cli")
	if cfg.General.TelemetryOptIn {
		tc := telemetry.FromEnv()
		tc.OptIn = true
		telemetry.NewDefault(tc)
	}
	return nil
}

// workspace is an open project with its index and the session of one page.
type workspace struct {
	ph   *storage.ProjectHandle
	doc  *storage.Document
	db   *sql.DB
	hist *storage.IndexHistory
	sess *editor.Session
}

// withWorkspace opens the project, runs fn against the selected page and
// writes session state and the panel index back afterwards.
func (c *CLI) withWorkspace(ctx context.Context, fn func(ws *workspace) error) (err error) {
	ws, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.close(ctx, ws); err == nil {
			err = cerr
		}
	}()
	defer crash.Recover(ws.ph)
	return fn(ws)
}

func (c *CLI) open(ctx context.Context) (*workspace, error) {
	root, err := filepath.Abs(c.projectDir)
	if err != nil {
		return nil, err
	}
	ph, err := storage.Open(root)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	ph.MaxBackups = c.cfg.Storage.MaxBackups
	if rebuilt, err := storage.DetectAndRebuildIndex(ctx, root, ph.Project); err != nil {
		c.log.Warn("index check failed", slog.Any("err", err))
	} else if rebuilt {
		c.log.Info("project index rebuilt", slog.String("root", root))
	}
	db, err := storage.InitOrOpenIndex(root)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	ws := &workspace{ph: ph, doc: storage.NewDocument(ph), db: db, hist: storage.NewIndexHistory(db, 200)}

	o := editor.Options{
		MinCells:    c.cfg.Grid.MinCells,
		MaxPasses:   c.cfg.Grid.MaxReflowPasses,
		History:     ws.hist,
		Interpreter: drop.NewInterpreter(c.uploader(root, db)),
		Events:      telemetry.Default(),
	}
	if st, ok, err := storage.LoadSession(ctx, db, c.page); err != nil {
		c.log.Warn("load session state failed", slog.Any("err", err))
	} else if ok {
		o.MinCells, o.Selected = st.MinCells, st.Selected
	}
	ws.sess = editor.NewSession(ws.doc, c.page, o)
	return ws, nil
}

func (c *CLI) close(ctx context.Context, ws *workspace) error {
	defer func() { _ = ws.db.Close() }()
	st := ws.sess.State()
	if err := storage.SaveSession(ctx, ws.db, storage.SessionState{Page: st.Page, MinCells: st.MinCells, Selected: st.Selected}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := storage.UpdateIndex(ctx, ws.db, ws.ph.Project); err != nil {
		return fmt.Errorf("update index: %w", err)
	}
	return nil
}

// uploader picks the media collaborator configured for drops.
func (c *CLI) uploader(root string, db *sql.DB) drop.Uploader {
	if c.cfg.Upload.Mode == config.UploadHTTP {
		return media.NewHTTPUploader(c.cfg.Upload.BaseURL, c.token, c.cfg.Upload.Timeout())
	}
	return media.NewLocalUploader(root, db)
}

var (
	styleOK   = lipgloss.Color("35")
	styleWarn = lipgloss.Color("220")
)

func (c *CLI) success(format string, a ...any) {
	_, _ = fmt.Fprintln(c.Out, c.ui.NewStyle().Foreground(styleOK).Render("✓ "+fmt.Sprintf(format, a...)))
}

func (c *CLI) warn(format string, a ...any) {
	_, _ = fmt.Fprintln(c.Out, c.ui.NewStyle().Foreground(styleWarn).Render("! "+fmt.Sprintf(format, a...)))
}
