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
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"gocomicgrid/internal/storage"
)

// PNGOptions controls PNG export behavior.
// DPI maps points to pixels (1pt = 1/72"); zero means 96.
type PNGOptions struct {
	FrameOptions
	DPI int
}

// ExportPNGPages writes one PNG per selected page into outDir, named
// page-<number>.png. A relative outDir lands in the project's exports folder.
// It returns the written file paths in page order.
func ExportPNGPages(ph *storage.ProjectHandle, outDir string, opt PNGOptions) ([]string, error) {
	frames, err := projectFrames(ph, opt.FrameOptions)
	if err != nil {
		return nil, err
	}
	outDir = resolveOut(ph, outDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	var written []string
	for _, fr := range frames {
		img := RenderPNG(fr, opt)
		name := filepath.Join(outDir, fmt.Sprintf("page-%d.png", fr.PageIndex+1))
		if err := writePNG(name, img); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

// RenderPNG rasterizes a frame.
func RenderPNG(fr Frame, opt PNGOptions) *image.RGBA {
	fo := opt.withDefaults()
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = 96
	}
	scale := float64(dpi) / 72.0
	px := func(v float64) int { return int(math.Round(v * scale)) }

	img := image.NewRGBA(image.Rect(0, 0, px(fo.PageWidth), px(fo.PageHeight)))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	if fo.IncludeGrid {
		for _, c := range fr.Cells {
			x, y := px(c.X), px(c.Y)
			strokeRect(img, x, y, x+px(c.W)-1, y+px(c.H)-1, guideColor)
		}
	}
	for _, b := range fr.Boxes {
		x, y := px(b.X), px(b.Y)
		x1, y1 := x+px(b.W)-1, y+px(b.H)-1
		fillRect(img, x, y, x1, y1, fillFor(b.Panel.Type))
		strokeRect(img, x, y, x1, y1, strokeColor)
		drawLabel(img, image.Rect(x+1, y+1, x1, y1), Label(b.Panel))
	}
	return img
}

// drawLabel writes s into clip with the 7x13 bitmap face, wrapped at the
// clip's width. Lines that do not fit vertically are dropped.
func drawLabel(img *image.RGBA, clip image.Rectangle, s string) {
	face := basicfont.Face7x13
	lineH := face.Height + 2
	if clip.Dy() < lineH {
		return
	}
	sub, ok := img.SubImage(clip).(*image.RGBA)
	if !ok {
		return
	}
	d := &font.Drawer{Dst: sub, Src: image.NewUniform(strokeColor), Face: face}
	for i, line := range WrapLabel(face, s, clip.Dx()-6) {
		if (i+1)*lineH > clip.Dy() {
			break
		}
		d.Dot = fixed.P(clip.Min.X+3, clip.Min.Y+face.Ascent+2+i*lineH)
		d.DrawString(line)
	}
}

func writePNG(name string, img image.Image) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	draw.Draw(img, image.Rect(x0, y0, x1+1, y1+1), &image.Uniform{C: col}, image.Point{}, draw.Src)
}
