// Package plot renders simple PNG prediction-curve plots: per-category
// haul-out probability by hour with 95% bounds, one line pair per
// forecasting path.
package plot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	width   = 800
	height  = 480
	marginL = 60
	marginR = 20
	marginT = 40
	marginB = 40
)

var (
	colBackground = color.RGBA{255, 255, 255, 255}
	colAxis       = color.RGBA{60, 60, 60, 255}
	colGLMM       = color.RGBA{31, 119, 180, 255}
	colGAM        = color.RGBA{214, 39, 40, 255}
)

// Series is one path's probability curve over the hour axis with its 95%
// bounds. All slices share the hour axis length.
type Series struct {
	Label string
	Prob  []float64
	Lower []float64
	Upper []float64
	Color color.RGBA
}

// PathColor returns the standard color for a forecasting path name.
func PathColor(path string) color.RGBA {
	if path == "gam" {
		return colGAM
	}
	return colGLMM
}

// RenderHourProfile writes an hour-profile plot (x: 0-23h, y: probability
// 0-1) to a PNG file.
func RenderHourProfile(path, title string, hours []int, series []Series) error {
	if len(hours) == 0 {
		return fmt.Errorf("plot: no hours")
	}
	for _, s := range series {
		if len(s.Prob) != len(hours) || len(s.Lower) != len(hours) || len(s.Upper) != len(hours) {
			return fmt.Errorf("plot: series %s length mismatch", s.Label)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{colBackground}, image.Point{}, draw.Src)

	plotW := width - marginL - marginR
	plotH := height - marginT - marginB

	xAt := func(h float64) int {
		return marginL + int(h/23*float64(plotW)+0.5)
	}
	yAt := func(p float64) int {
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		return marginT + int((1-p)*float64(plotH)+0.5)
	}

	// Axes.
	drawLine(img, marginL, marginT, marginL, height-marginB, colAxis)
	drawLine(img, marginL, height-marginB, width-marginR, height-marginB, colAxis)
	for _, p := range []float64{0, 0.25, 0.5, 0.75, 1} {
		y := yAt(p)
		drawLine(img, marginL-4, y, marginL, y, colAxis)
		drawLabel(img, 8, y+4, fmt.Sprintf("%.2f", p), colAxis)
	}
	for h := 0; h <= 23; h += 6 {
		x := xAt(float64(h))
		drawLine(img, x, height-marginB, x, height-marginB+4, colAxis)
		drawLabel(img, x-6, height-marginB+18, fmt.Sprintf("%dh", h), colAxis)
	}

	for _, s := range series {
		faint := color.RGBA{s.Color.R, s.Color.G, s.Color.B, 90}
		for i := 1; i < len(hours); i++ {
			x0, x1 := xAt(float64(hours[i-1])), xAt(float64(hours[i]))
			drawLine(img, x0, yAt(s.Lower[i-1]), x1, yAt(s.Lower[i]), faint)
			drawLine(img, x0, yAt(s.Upper[i-1]), x1, yAt(s.Upper[i]), faint)
			drawLine(img, x0, yAt(s.Prob[i-1]), x1, yAt(s.Prob[i]), s.Color)
		}
	}

	drawLabel(img, marginL, marginT-16, title, colAxis)
	legendX := width - marginR - 160
	for i, s := range series {
		y := marginT + 16*i
		drawLine(img, legendX, y, legendX+24, y, s.Color)
		drawLabel(img, legendX+30, y+4, s.Label, colAxis)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("plot: create %s: %w", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("plot: encode %s: %w", path, err)
	}
	return nil
}

// drawLine draws a straight segment with a simple DDA walk; good enough
// for axis and curve strokes at this resolution.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := x1 - x0
	dy := y1 - y0
	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	if steps == 0 {
		img.Set(x0, y0, c)
		return
	}
	for i := 0; i <= steps; i++ {
		x := x0 + dx*i/steps
		y := y0 + dy*i/steps
		img.Set(x, y, c)
	}
}

func drawLabel(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
