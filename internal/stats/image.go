package stats

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const (
	imageWidth  = 1800
	imageHeight = 1200
	margin      = 80
)

var (
	backgroundColor = color.White
	axisColor       = color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	gridColor       = color.NRGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	barColor        = color.NRGBA{R: 0x4c, G: 0x72, B: 0xd9, A: 0xff}
	barEdgeColor    = color.NRGBA{R: 0x10, G: 0x10, B: 0x10, A: 0xff}
	meanColor       = color.NRGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	medianColor     = color.NRGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	sd1Color        = color.NRGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	sd2Color        = color.NRGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff}
)

// Marker is a vertical reference line drawn over the histogram.
type Marker struct {
	Value float64
	Color color.Color
}

// Markers returns the mean, median and ±1/±2 standard deviation lines.
func Markers(s Summary) []Marker {
	return []Marker{
		{Value: s.Mean, Color: meanColor},
		{Value: s.Median, Color: medianColor},
		{Value: s.Mean + s.StdDev, Color: sd1Color},
		{Value: s.Mean - s.StdDev, Color: sd1Color},
		{Value: s.Mean + 2*s.StdDev, Color: sd2Color},
		{Value: s.Mean - 2*s.StdDev, Color: sd2Color},
	}
}

// DrawHistogram renders h as a bar chart with markers on top.
func DrawHistogram(h Histogram, markers []Marker) *image.NRGBA {
	img := imaging.New(imageWidth, imageHeight, backgroundColor)

	plot := image.Rect(margin, margin, imageWidth-margin, imageHeight-margin)

	for i := 1; i < 5; i++ {
		y := plot.Max.Y - i*plot.Dy()/5
		fill(img, image.Rect(plot.Min.X, y, plot.Max.X, y+1), gridColor)
	}

	maxCount := h.MaxCount()
	if len(h.Counts) > 0 && maxCount > 0 {
		barWidth := float64(plot.Dx()) / float64(len(h.Counts))
		for i, c := range h.Counts {
			if c <= 0 {
				continue
			}
			x0 := plot.Min.X + int(float64(i)*barWidth)
			x1 := plot.Min.X + int(float64(i+1)*barWidth)
			top := plot.Max.Y - int(c/maxCount*float64(plot.Dy()))
			fill(img, image.Rect(x0, top, x1, plot.Max.Y), barEdgeColor)
			fill(img, image.Rect(x0+1, top+1, x1-1, plot.Max.Y), barColor)
		}
	}

	for _, m := range markers {
		x, ok := xFor(h, plot, m.Value)
		if !ok {
			continue
		}
		dashed(img, x, plot, m.Color)
	}

	// axes
	fill(img, image.Rect(plot.Min.X-2, plot.Max.Y, plot.Max.X, plot.Max.Y+2), axisColor)
	fill(img, image.Rect(plot.Min.X-2, plot.Min.Y, plot.Min.X, plot.Max.Y+2), axisColor)

	return img
}

// WriteHistogramImage draws the histogram and saves it to path. The format
// follows the file extension.
func WriteHistogramImage(path string, h Histogram, s Summary) error {
	img := DrawHistogram(h, Markers(s))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("failed to save histogram image: %w", err)
	}
	return nil
}

func xFor(h Histogram, plot image.Rectangle, v float64) (int, bool) {
	span := h.Max - h.Min
	if span <= 0 || v < h.Min || v > h.Max {
		return 0, false
	}
	return plot.Min.X + int((v-h.Min)/span*float64(plot.Dx()-1)), true
}

func dashed(img draw.Image, x int, plot image.Rectangle, c color.Color) {
	const dash, gap = 14, 8
	for y := plot.Min.Y; y < plot.Max.Y; y += dash + gap {
		fill(img, image.Rect(x-1, y, x+2, min(y+dash, plot.Max.Y)), c)
	}
}

func fill(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}
