package report

import (
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sells-group/vegindex-cli/internal/index"
	"github.com/sells-group/vegindex-cli/internal/model"
)

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 5 * vg.Inch
)

// binColors runs from red for the lowest category to green for the highest.
var binColors = []color.RGBA{
	{R: 0x8b, G: 0x00, B: 0x00, A: 0xff},
	{R: 0xe6, G: 0x55, B: 0x0d, A: 0xff},
	{R: 0xfd, G: 0xd8, B: 0x35, A: 0xff},
	{R: 0xc5, G: 0xe1, B: 0xa5, A: 0xff},
	{R: 0x7c, G: 0xb3, B: 0x42, A: 0xff},
	{R: 0x38, G: 0x8e, B: 0x3c, A: 0xff},
	{R: 0x1b, G: 0x5e, B: 0x20, A: 0xff},
}

// newChart builds the distribution bar chart for a. An analysis without
// valid samples renders empty bars under a "No data available" title.
func newChart(a *model.Analysis) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s distribution (mean %.3f)", a.Layer, a.Stats.Mean)
	if a.Stats.Empty() {
		p.Title.Text = fmt.Sprintf("%s: No data available", a.Layer)
	}
	p.Y.Label.Text = "Share of valid pixels (%)"

	names := make([]string, len(index.Bins))
	for i, b := range index.Bins {
		names[i] = string(b)

		bars, err := plotter.NewBarChart(barValues(a, i), vg.Points(36))
		if err != nil {
			return nil, eris.Wrapf(err, "report: bar chart %s", b)
		}
		bars.Color = binColors[i]
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)
	}
	p.NominalX(names...)
	p.Y.Min = 0
	p.Y.Max = 100
	return p, nil
}

// barValues returns a slice holding only bin i's share so each bin can be
// colored independently.
func barValues(a *model.Analysis, i int) plotter.Values {
	vals := make(plotter.Values, len(index.Bins))
	vals[i] = a.Stats.Fractions[index.Bins[i]]
	return vals
}

// WriteChart renders the distribution bar chart of a as PNG to w.
func WriteChart(w io.Writer, a *model.Analysis) error {
	p, err := newChart(a)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return eris.Wrap(err, "report: render chart")
	}
	_, err = wt.WriteTo(w)
	return eris.Wrap(err, "report: write chart")
}

// SaveChart renders the distribution chart of a into a PNG file.
func SaveChart(path string, a *model.Analysis) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create chart %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = eris.Wrapf(cerr, "report: close chart %s", path)
		}
	}()
	return WriteChart(f, a)
}
