/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gocomicgrid/internal/config"
	"gocomicgrid/internal/domain"
	"gocomicgrid/internal/export"
	"gocomicgrid/internal/gridview"
	"gocomicgrid/internal/server"
	"gocomicgrid/internal/storage"
	"gocomicgrid/internal/telemetry"
	"gocomicgrid/internal/version"
)

func (c *CLI) initCommand() *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "init <dir> <name>",
		Short: "Create a new project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			proj := domain.Project{Name: args[1]}
			for i := 0; i < max(1, pages); i++ {
				proj.Pages = append(proj.Pages, domain.Page{Number: i + 1, Panels: []domain.Panel{}})
			}
			c.log.Info("init project", slog.String("root", abs), slog.String("name", args[1]))
			ph, err := storage.InitProject(abs, proj)
			if err != nil {
				return err
			}
			if err := storage.BuildIndexIfEmpty(cmd.Context(), ph.Root, ph.Project); err != nil {
				return fmt.Errorf("build index: %w", err)
			}
			c.success("created project %q at %s", proj.Name, abs)
			return nil
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "number of empty pages to create")
	return cmd
}

func (c *CLI) listCommand() *cobra.Command {
	var typ string
	var assets bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List panels of every page, or the stored assets, from the project index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var pt domain.PanelType
			if typ != "" {
				pt = domain.ParsePanelType(typ)
			}
			return c.withWorkspace(cmd.Context(), func(ws *workspace) error {
				if assets {
					return c.listAssets(cmd.Context(), ws)
				}
				if err := storage.UpdateIndex(cmd.Context(), ws.db, ws.ph.Project); err != nil {
					return err
				}
				rows, err := storage.PanelsByType(cmd.Context(), ws.db, pt)
				if err != nil {
					return err
				}
				for _, r := range rows {
					pos := r.Panel.Position.Normalized()
					_, _ = fmt.Fprintf(c.Out, "%d\t%s\t%s\tr%d c%d %dx%d\t%s\n",
						r.Page, gridview.ShortID(r.Panel.ID, 12), r.Panel.Type, pos.Row, pos.Col, pos.RowSpan, pos.ColSpan, r.Panel.URL)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "only panels of this type")
	cmd.Flags().BoolVar(&assets, "assets", false, "list files stored under assets/ instead of panels")
	return cmd
}

func (c *CLI) listAssets(ctx context.Context, ws *workspace) error {
	list, err := storage.ListAssets(ctx, ws.db)
	if err != nil {
		return err
	}
	for _, a := range list {
		_, _ = fmt.Fprintf(c.Out, "%s\t%s\t%d\t%s\n", gridview.ShortID(a.Hash, 12), a.Type, a.Size, a.Path)
	}
	return nil
}

func (c *CLI) exportCommand() *cobra.Command {
	var out string
	var pages []int
	var withGrid bool
	var dpi int
	cmd := &cobra.Command{
		Use:       "export <pdf|png>",
		Short:     "Export page layouts as wireframes",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"pdf", "png"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWorkspace(cmd.Context(), func(ws *workspace) error {
				fo := export.FrameOptions{Pages: pages, IncludeGrid: withGrid, MinCells: c.pageBudgets(cmd.Context(), ws)}
				switch args[0] {
				case "pdf":
					if out == "" {
						out = "layout.pdf"
					}
					path, err := export.ExportPDF(ws.ph, out, export.PDFOptions{FrameOptions: fo})
					if err != nil {
						return err
					}
					c.success("wrote %s", path)
				case "png":
					if out == "" {
						out = "png"
					}
					files, err := export.ExportPNGPages(ws.ph, out, export.PNGOptions{FrameOptions: fo, DPI: dpi})
					if err != nil {
						return err
					}
					for _, f := range files {
						c.success("wrote %s", f)
					}
				default:
					return fmt.Errorf("unknown export format %q (want pdf or png)", args[0])
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (pdf) or directory (png); relative paths go under exports/")
	cmd.Flags().IntSliceVar(&pages, "pages", nil, "zero-based page indexes to export (default all)")
	cmd.Flags().BoolVar(&withGrid, "grid", false, "draw free grid cells")
	cmd.Flags().IntVar(&dpi, "dpi", 96, "PNG resolution")
	return cmd
}

// pageBudgets reads the stored cell budget of every page; the open session's
// current budget wins for its page.
func (c *CLI) pageBudgets(ctx context.Context, ws *workspace) map[int]int {
	out := map[int]int{}
	for i := range ws.ph.Project.Pages {
		if st, ok, err := storage.LoadSession(ctx, ws.db, i); err == nil && ok {
			out[i] = st.MinCells
		}
	}
	out[ws.sess.Page()] = ws.sess.MinCells()
	return out
}

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var accessLog bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the page editing API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = ws.db.Close() }()
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			srv := server.New(ws.doc, server.Options{
				MinCells:     c.cfg.Grid.MinCells,
				MaxPasses:    c.cfg.Grid.MaxReflowPasses,
				ReadTimeout:  c.cfg.Server.ReadTimeout(),
				WriteTimeout: c.cfg.Server.WriteTimeout(),
				BodyLimit:    c.cfg.Server.BodyLimit(),
				Uploader:     c.uploader(ws.ph.Root, ws.db),
				History:      ws.hist,
				DB:           ws.db,
				Events:       telemetry.Default(),
				AccessLog:    accessLog,
			})
			c.success("serving %s on http://%s", ws.ph.Project.Name, addr)
			err = srv.Serve(ctx, addr)
			if ierr := storage.UpdateIndex(context.Background(), ws.db, ws.ph.Project); ierr != nil {
				c.log.Warn("update index failed", slog.Any("err", ierr))
			}
			telemetry.Default().Flush(context.Background())
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&accessLog, "access-log", true, "log every request")
	return cmd
}

func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the user configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := config.ConfigPath()
			_, _ = fmt.Fprintf(c.Out, "# %s\n", path)
			b, err := yaml.Marshal(c.cfg)
			if err != nil {
				return err
			}
			_, err = c.Out.Write(b)
			for _, k := range []string{"grid.min_cells", "upload.mode", "upload.base_url", "server.addr", "logging.level"} {
				if env, ok := config.EnvOverrideFor(k); ok {
					_, _ = fmt.Fprintf(c.Out, "# %s overridden by %s\n", k, env)
				}
			}
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(c.cfg, ""); err != nil {
				return err
			}
			path, _ := config.ConfigPath()
			c.success("wrote %s", path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-token <token>",
		Short: "Store the upload service token in the OS keychain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(c.cfg, args[0]); err != nil {
				return err
			}
			c.success("token stored")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "forget-token",
		Short: "Remove the upload service token from the OS keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ForgetToken(); err != nil {
				return err
			}
			c.success("token removed")
			return nil
		},
	})
	return cmd
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(c.Out, "gocomicgrid %s\n", version.String())
			return err
		},
	}
}
