/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"gocomicgrid/internal/storage"
)

// PDFOptions controls PDF export behavior.
// Text uses the built-in Helvetica so nothing is embedded.
type PDFOptions struct {
	FrameOptions
	Title string // defaults to the project name
}

// ExportPDF writes the selected pages of the project to a single multi-page
// PDF at outPath. A relative outPath lands in the project's exports folder.
func ExportPDF(ph *storage.ProjectHandle, outPath string, opt PDFOptions) (string, error) {
	frames, err := projectFrames(ph, opt.FrameOptions)
	if err != nil {
		return "", err
	}
	fo := opt.withDefaults()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: fo.PageWidth, Ht: fo.PageHeight},
	})
	title := opt.Title
	if title == "" {
		title = ph.Project.Name
	}
	pdf.SetTitle(title, true)
	pdf.SetAuthor("Go Comic Grid", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", 9)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, fr := range frames {
		pdf.AddPage()

		setTextColor(pdf, strokeColor)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Text(fo.Margin, fo.Margin-10, tr(fmt.Sprintf("%s - page %d (%dx%d)", title, fr.PageIndex+1, fr.Size.Rows, fr.Size.Cols)))
		pdf.SetFont("Helvetica", "", 9)

		if fo.IncludeGrid {
			setDrawColor(pdf, guideColor)
			pdf.SetLineWidth(0.3)
			pdf.SetDashPattern([]float64{2, 2}, 0)
			for _, c := range fr.Cells {
				pdf.Rect(c.X, c.Y, c.W, c.H, "D")
			}
			pdf.SetDashPattern([]float64{}, 0)
		}

		setDrawColor(pdf, strokeColor)
		pdf.SetLineWidth(1)
		for _, b := range fr.Boxes {
			setFillColor(pdf, fillFor(b.Panel.Type))
			pdf.Rect(b.X, b.Y, b.W, b.H, "FD")
			pdf.ClipRect(b.X, b.Y, b.W, b.H, false)
			pdf.Text(b.X+4, b.Y+12, tr(Label(b.Panel)))
			if b.Panel.URL != "" {
				pdf.SetFont("Helvetica", "I", 7)
				pdf.Text(b.X+4, b.Y+22, tr(b.Panel.URL))
				pdf.SetFont("Helvetica", "", 9)
			}
			pdf.ClipEnd()
		}
	}

	outPath = resolveOut(ph, outPath)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return outPath, nil
}

// resolveOut places relative paths under the project's exports folder.
func resolveOut(ph *storage.ProjectHandle, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ph.Root, storage.ExportsDirName, p)
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}

func setTextColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}
