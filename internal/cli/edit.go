/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gocomicgrid/internal/domain"
	"gocomicgrid/internal/drop"
	"gocomicgrid/internal/grid"
	"gocomicgrid/internal/gridview"
	"gocomicgrid/internal/storage"
)

func (c *CLI) dropCommand() *cobra.Command {
	var url, file, jsonPanel string
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Add a panel at the next free cell from a URL, a file or panel JSON",
		Example: "  gocomicgrid drop --url https://example.com/x.png\n" +
			"  gocomicgrid drop --file ./shot.mp4\n" +
			"  gocomicgrid drop --json '{\"type\":\"text\",\"caption\":\"Meanwhile\"}'",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := drop.Payload{Text: url}
			if jsonPanel != "" {
				p.JSON = []byte(jsonPanel)
			}
			if file != "" {
				f, err := localFile(file)
				if err != nil {
					return err
				}
				p.Files = []drop.File{f}
			}
			return c.withWorkspace(cmd.Context(), func(ws *workspace) error {
				panel, err := ws.sess.Insert(cmd.Context(), p)
				if errors.Is(err, drop.ErrGridFull) {
					return fmt.Errorf("grid is full; run expand first")
				}
				if err != nil {
					return err
				}
				c.success("added %s panel %s at row %d col %d", panel.Type, panel.ID, panel.Position.Row, panel.Position.Col)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "media URL (text/plain drop)")
	cmd.Flags().StringVar(&file, "file", "", "local media file to upload")
	cmd.Flags().StringVar(&jsonPanel, "json", "", "partial panel JSON (application/json drop)")
	return cmd
}

func localFile(path string) (drop.File, error) {
	st, err := os.Stat(path)
	if err != nil {
		return drop.File{}, err
	}
	if st.IsDir() {
		return drop.File{}, fmt.Errorf("%s is a directory", path)
	}
	return drop.File{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Size:        st.Size(),
		Open:        func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

func (c *CLI) placeCommand() *cobra.Command {
	var rows, cols int
	cmd := &cobra.Command{
		Use:   "place <panel-id> <row> <col>",
		Short: "Move or resize a panel and reflow the page around it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("row: %w", err)
			}
			col, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("col: %w", err)
			}
			return c.withWorkspace(cmd.Context(), func(ws *workspace) error {
				cur, err := storage.FindPanel(ws.ph, c.page, args[0])
				if err != nil {
					return err
				}
				pos := cur.Position.Normalized()
				pos.Row, pos.Col = row, col
				if rows > 0 {
					pos.RowSpan = rows
				}
				if cols > 0 {
					pos.ColSpan = cols
				}
				moved := grid.Apply(ws.sess.Layout().Panels, []grid.Update{{PanelID: cur.ID, To: pos}})
				if hits := grid.Collisions(cur.ID, moved); len(hits) > 0 {
					c.success("%s now overlaps %s", cur.ID, strings.Join(hits, ", "))
				}
				before := ws.sess.MinCells()
				res, _ := ws.sess.Place(args[0], pos)
				c.reportReflow(res, before)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 0, "row span (default: keep)")
	cmd.Flags().IntVar(&cols, "cols", 0, "column span (default: keep)")
	return cmd
}

func (c *CLI) reportReflow(res grid.Result, before int) {
	for _, u := range res.Updates {
		c.success("moved %s to row %d col %d", u.PanelID, u.To.Row, u.To.Col)
	}
	if grew := res.Grew(before); grew > 0 {
		c.success("grid grew by %d cells", grew)
	}
	if !res.Converged {
		c.warn("layout still has collisions after %d passes (minCells=%d)", res.Passes, res.MinCells)
	}
	c.success("grid %dx%d, minCells=%d", res.Size.Rows, res.Size.Cols, res.MinCells)
}

func (c *CLI) reflowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reflow",
		Short: "Resolve collisions around the selected panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWorkspace(cmd.Context(), func(ws *workspace) error {
				if ws.sess.Selected() == "" {
					c.warn("nothing selected")
					return nil
				}
				before := ws.sess.MinCells()
				c.reportReflow(ws.sess.Reflow(), before)
				return nil
			})
		},
	}
}

func (c *CLI) selectCommand() *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "select [panel-id]",
		Short: "Select the reflow anchor panel",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			if id == "" && !clear {
				return fmt.Errorf("give a panel id or --clear")
			}
			return c.withWorkspace(cmd.Context(), func(ws *workspace) error {
				if !ws.sess.Select(id) {
					return fmt.Errorf("panel %q not found on page %d", id, c.page)
				}
				if id == "" {
					c.success("selection cleared")
				} else {
					c.success("selected %s", id)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "clear the selection")
	return cmd
}

func (c *CLI) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <panel-id>",
		Short: "Delete a panel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWorkspace(cmd.Context(), func(ws *workspace) error {
				if !ws.sess.Remove(args[0]) {
					return fmt.Errorf("panel %q not found on page %d", args[0], c.page)
				}
				c.success("removed %s", args[0])
				return nil
			})
		},
	}
}

func (c *CLI) mediaCommand() *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "media <panel-id> <url>",
		Short: "Replace a panel's media URL in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pt domain.PanelType
			if typ != "" {
				pt = domain.ParsePanelType(typ)
			}
			return c.withWorkspace(cmd.Context(), func(ws *workspace) error {
				if !ws.sess.ReplaceMedia(args[0], pt, args[1]) {
					return fmt.Errorf("panel %q not found on page %d", args[0], c.page)
				}
				c.success("updated media of %s", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "new panel type (image, video, gif, 3d, text)")
	return cmd
}

func (c *CLI) expandCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "expand",
		Short: "Add room to the page grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWorkspace(cmd.Context(), func(ws *workspace) error {
				m := ws.sess.Expand()
				s := ws.sess.Layout().Size
				c.success("minCells=%d, grid %dx%d", m, s.Rows, s.Cols)
				return nil
			})
		},
	}
}

func (c *CLI) shrinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shrink",
		Short: "Remove room from the page grid when it is large enough",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWorkspace(cmd.Context(), func(ws *workspace) error {
				if !ws.sess.Shrink() {
					c.warn("grid is already at its minimum")
					return nil
				}
				s := ws.sess.Layout().Size
				c.success("minCells=%d, grid %dx%d", ws.sess.MinCells(), s.Rows, s.Cols)
				return nil
			})
		},
	}
}

func (c *CLI) undoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Restore the previous layout of the page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWorkspace(cmd.Context(), func(ws *workspace) error {
				if !ws.sess.Undo() {
					c.warn("nothing to undo")
					return nil
				}
				c.success("undone")
				return nil
			})
		},
	}
}

func (c *CLI) historyCommand() *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear the undo history of the page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWorkspace(cmd.Context(), func(ws *workspace) error {
				if clear {
					if !ws.sess.ClearHistory() {
						return fmt.Errorf("could not clear the history of page %d", c.page)
					}
					c.success("history of page %d cleared", c.page)
					return nil
				}
				u, r := ws.hist.Depth(c.page)
				_, err := fmt.Fprintf(c.Out, "page %d: %d undo, %d redo\n", c.page, u, r)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "drop the undo and redo stacks")
	return cmd
}

func (c *CLI) redoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "redo",
		Short: "Re-apply the layout change undone last",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWorkspace(cmd.Context(), func(ws *workspace) error {
				if !ws.sess.Redo() {
					c.warn("nothing to redo")
					return nil
				}
				c.success("redone")
				return nil
			})
		},
	}
}

func (c *CLI) showCommand() *cobra.Command {
	var asJSON, legend bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the grid of the selected page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWorkspace(cmd.Context(), func(ws *workspace) error {
				lay := ws.sess.Layout()
				if asJSON {
					enc := json.NewEncoder(c.Out)
					enc.SetIndent("", "  ")
					return enc.Encode(struct {
						Layout any `json:"layout"`
						State  any `json:"state"`
					}{lay, ws.sess.State()})
				}
				_, err := fmt.Fprintln(c.Out, gridview.RenderLayout(lay, gridview.Options{Legend: legend, Renderer: c.ui}))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the layout as JSON")
	cmd.Flags().BoolVar(&legend, "legend", true, "list panels below the grid")
	return cmd
}
