// Package plot renders evaluation traces as line charts
package plot

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
)

// Chart dimensions of PNG charts, in pixels
const (
	Width  int = 800
	Height int = 500
	margin     = 60.0
)

// Series is a named sequence of y values plotted against 1, 2, ...
type Series struct {
	Name   string
	Values []float64
}

// Save writes a line chart of the series to filename. The format is
// chosen by extension: ".html" for an interactive chart, ".png" for an
// image.
func Save(filename, title string, series ...Series) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		f, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("save: could not create chart file: %v", err)
		}
		defer f.Close()
		return HTML(f, title, series...)

	case ".png":
		return PNG(filename, title, series...)
	}

	return fmt.Errorf("save: unsupported chart format %q",
		filepath.Ext(filename))
}

// HTML renders an interactive line chart of the series to w
func HTML(w io.Writer, title string, series ...Series) error {
	if err := check(series); err != nil {
		return fmt.Errorf("html: %v", err)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "iteration"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "average return"}),
	)

	var steps []string
	for i := 0; i < longest(series); i++ {
		steps = append(steps, fmt.Sprintf("%d", i+1))
	}
	line.SetXAxis(steps)

	for _, s := range series {
		items := make([]opts.LineData, 0, len(s.Values))
		for _, v := range s.Values {
			items = append(items, opts.LineData{Value: v})
		}
		line.AddSeries(s.Name, items)
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("html: could not render chart: %v", err)
	}
	return nil
}

var palette = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
}

// PNG draws a line chart of the series and saves it to filename
func PNG(filename, title string, series ...Series) error {
	if err := check(series); err != nil {
		return fmt.Errorf("png: %v", err)
	}

	lo, hi := bounds(series)
	n := longest(series)

	dc := gg.NewContext(Width, Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Axes
	left, right := margin, float64(Width)-margin/2
	top, bottom := margin, float64(Height)-margin
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1.5)
	dc.DrawLine(left, bottom, right, bottom)
	dc.DrawLine(left, top, left, bottom)
	dc.Stroke()

	dc.DrawStringAnchored(title, float64(Width)/2, margin/2, 0.5, 0.5)
	dc.DrawStringAnchored("iteration", (left+right)/2, bottom+margin/2, 0.5,
		0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.3g", hi), left-5, top, 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.3g", lo), left-5, bottom, 1, 0.5)
	dc.DrawStringAnchored("1", left, bottom+12, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%d", n), right, bottom+12, 0.5, 0.5)

	x := func(i int) float64 {
		if n == 1 {
			return (left + right) / 2
		}
		return left + float64(i)/float64(n-1)*(right-left)
	}
	y := func(v float64) float64 {
		return bottom - (v-lo)/(hi-lo)*(bottom-top)
	}

	dc.SetLineWidth(2)
	for k, s := range series {
		dc.SetColor(palette[k%len(palette)])
		for i, v := range s.Values {
			if i == 0 {
				dc.MoveTo(x(i), y(v))
			} else {
				dc.LineTo(x(i), y(v))
			}
		}
		dc.Stroke()

		for i, v := range s.Values {
			dc.DrawCircle(x(i), y(v), 3)
		}
		dc.Fill()

		dc.DrawString(s.Name, right-120, top+float64(k+1)*15)
	}

	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("png: could not save chart: %v", err)
	}
	return nil
}

func check(series []Series) error {
	if len(series) == 0 || longest(series) == 0 {
		return fmt.Errorf("nothing to plot")
	}
	return nil
}

func longest(series []Series) int {
	n := 0
	for _, s := range series {
		if len(s.Values) > n {
			n = len(s.Values)
		}
	}
	return n
}

// bounds returns the y range of the chart, padded so flat series are
// still drawn inside the axes
func bounds(series []Series) (float64, float64) {
	var all []float64
	for _, s := range series {
		all = append(all, s.Values...)
	}

	lo, hi := floats.Min(all), floats.Max(all)
	if hi-lo < 1e-12 {
		lo, hi = lo-0.5, hi+0.5
	}
	return lo, hi
}
