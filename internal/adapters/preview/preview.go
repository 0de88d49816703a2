// Package preview renders exemplars and their augmented samples as a PNG
// line plot, one color per label.
package preview

import (
	"fmt"
	"io"

	"github.com/okian/gestura/internal/domain/trajectory"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// DefaultLimit is the number of samples drawn per label unless WithLimit
// says otherwise.
const DefaultLimit = 20

type renderer struct {
	label  string
	limit  int
	width  vg.Length
	height vg.Length
}

// RenderPNG draws the exemplars as thick lines and up to the limit of samples
// per label as thin lines of the same color, then writes the PNG to w.
// The Y axis is inverted so canvas coordinates appear upright.
func RenderPNG(w io.Writer, title string, exemplars []trajectory.Exemplar, samples []trajectory.Sample, opts ...Option) error {
	r := &renderer{limit: DefaultLimit, width: 8 * vg.Inch, height: 8 * vg.Inch}
	for _, opt := range opts {
		opt(r)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(plotter.NewGrid())

	colors := make(map[string]int)
	colorOf := func(label string) int {
		i, ok := colors[label]
		if !ok {
			i = len(colors)
			colors[label] = i
		}
		return i
	}

	drawn := 0
	perLabel := make(map[string]int)
	for _, s := range samples {
		if !r.keep(s.Label) || perLabel[s.Label] >= r.limit || len(s.Points) == 0 {
			continue
		}
		line, err := newLine(s.Points)
		if err != nil {
			return err
		}
		c := plotutil.Color(colorOf(s.Label))
		line.Color = c
		line.Width = vg.Points(0.5)
		p.Add(line)
		perLabel[s.Label]++
		drawn++
	}

	for _, ex := range exemplars {
		if !r.keep(ex.Label) || len(ex.Points) == 0 {
			continue
		}
		line, err := newLine(ex.Points)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(colorOf(ex.Label))
		line.Width = vg.Points(2.5)
		start, err := plotter.NewScatter(plotter.XYs{{X: ex.Points[0].X, Y: ex.Points[0].Y}})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}
		start.GlyphStyle = draw.GlyphStyle{Color: line.Color, Radius: vg.Points(4), Shape: draw.CircleGlyph{}}
		p.Add(line, start)
		p.Legend.Add(ex.Label, line)
		drawn++
	}

	if drawn == 0 {
		if r.label != "" {
			return fmt.Errorf("%w: no trajectories labeled %q", ErrNothingToPlot, r.label)
		}
		return ErrNothingToPlot
	}

	wt, err := p.WriterTo(r.width, r.height, "png")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

func (r *renderer) keep(label string) bool {
	return r.label == "" || r.label == label
}

func newLine(t trajectory.Trajectory) (*plotter.Line, error) {
	pts := make(plotter.XYs, len(t))
	for i, pt := range t {
		pts[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return line, nil
}
