package keyhist

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// One cell of the figure. Set and Hist are nil for unused cells.
type Panel struct {
	Index int
	Row   int
	Col   int

	Plot *plot.Plot
	Set  *SampleSet
	Hist *plotter.Histogram
}

type Figure struct {
	Options FigureOptions
	Grid    Grid

	// Panels[row][col]
	Panels [][]*Panel

	logger logrus.FieldLogger
}

// Lays out one histogram per sample set, in insertion order. Every cell of
// the grid gets a panel with axis labels whether it holds data or not. If
// there are more sets than cells (and GrowGrid is off) this fails with
// ErrPanelOutOfRange before any panel is built.
func NewFigure(sets *SampleSets, opts FigureOptions) (*Figure, error) {
	if opts.Bins <= 0 {
		return nil, fmt.Errorf("bins must be positive, got %d", opts.Bins)
	}
	if opts.Grid.Rows <= 0 || opts.Grid.Cols <= 0 {
		return nil, fmt.Errorf("invalid grid %dx%d", opts.Grid.Rows, opts.Grid.Cols)
	}

	grid := GridFor(opts.Grid, sets.Len(), opts.GrowGrid)
	if n := sets.Len(); n > grid.Size() {
		_, _, err := grid.Position(n - 1)
		return nil, fmt.Errorf("%d detector types found: %w", n, err)
	}

	f := &Figure{
		Options: opts,
		Grid:    grid,
		Panels:  make([][]*Panel, grid.Rows),
		logger:  logrus.WithField("tag", "Figure"),
	}

	for row := range f.Panels {
		f.Panels[row] = make([]*Panel, grid.Cols)
		for col := range f.Panels[row] {
			f.Panels[row][col] = f.newPanel(row*grid.Cols+col, row, col)
		}
	}

	for i, set := range sets.Sets() {
		row, col, err := grid.Position(i)
		if err != nil {
			return nil, err
		}

		set := set
		if err := f.Panels[row][col].addHistogram(&set, opts.Bins); err != nil {
			return nil, fmt.Errorf("histogram for %s: %w", set.Label, err)
		}

		f.logger.WithFields(logrus.Fields{
			"label": set.Label,
			"row":   row,
			"col":   col,
		}).Debug("assigned panel")
	}

	return f, nil
}

func (f *Figure) newPanel(index, row, col int) *Panel {
	p := plot.New()
	p.X.Label.Text = f.Options.XLabel
	p.Y.Label.Text = f.Options.YLabel
	if index == 0 && f.Options.Title != "" {
		p.Title.Text = f.Options.Title
	}

	return &Panel{
		Index: index,
		Row:   row,
		Col:   col,
		Plot:  p,
	}
}

func (p *Panel) addHistogram(set *SampleSet, bins int) error {
	p.Set = set

	// An empty file still gets its legend entry so the detector shows up.
	if len(set.Values) == 0 {
		p.Plot.Legend.Add(set.Label)
		return nil
	}

	hist, err := newHistogram(set.Values, bins)
	if err != nil {
		return err
	}

	p.Hist = hist
	p.Plot.Add(hist)
	p.Plot.Legend.Add(set.Label, hist)
	p.Plot.Legend.Top = true

	return nil
}

// Bins values over [min, max]. A set holding a single distinct value is
// binned over [v-0.5, v+0.5] so it still gets the requested number of bins
// centered on v.
func newHistogram(values []float64, bins int) (*plotter.Histogram, error) {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("value %d (%v): %w", i, v, ErrNonFiniteSample)
		}
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo < hi || lo-0.5 == lo+0.5 {
		return plotter.NewHist(plotter.Values(values), bins)
	}

	// The two padding points land in the first and last bin and are taken
	// back out once the bins are laid out.
	padded := make(plotter.Values, 0, len(values)+2)
	padded = append(padded, lo-0.5, lo+0.5)
	padded = append(padded, values...)

	hist, err := plotter.NewHist(padded, bins)
	if err != nil {
		return nil, err
	}
	hist.Bins[0].Weight--
	hist.Bins[len(hist.Bins)-1].Weight--

	return hist, nil
}

func (p *Panel) Bins() []Bin {
	if p.Hist == nil {
		return nil
	}

	bins := make([]Bin, len(p.Hist.Bins))
	for i, b := range p.Hist.Bins {
		bins[i] = Bin{Min: b.Min, Max: b.Max, Count: b.Weight}
	}
	return bins
}

// Used panels in assignment order.
func (f *Figure) UsedPanels() []*Panel {
	used := make([]*Panel, 0, f.Grid.Size())
	for _, row := range f.Panels {
		used = append(used, Filter(row, func(p *Panel) bool {
			return p.Set != nil
		})...)
	}
	return used
}

func (f *Figure) Metadata() Metadata {
	m := Metadata{
		Title:  f.Options.Title,
		XLabel: f.Options.XLabel,
		YLabel: f.Options.YLabel,
		Rows:   f.Grid.Rows,
		Cols:   f.Grid.Cols,
		Panels: make([]PanelMetadata, 0),
	}

	for _, p := range f.UsedPanels() {
		m.Panels = append(m.Panels, PanelMetadata{
			Index:   p.Index,
			Row:     p.Row,
			Col:     p.Col,
			Label:   p.Set.Label,
			Path:    p.Set.Path,
			Summary: Summarize(p.Set.Values),
			Bins:    p.Bins(),
		})
	}

	return m
}

// Renders the whole grid in the given format (png, svg, pdf, jpg, eps, tiff).
func (f *Figure) WriteTo(w io.Writer, format string) (int64, error) {
	c, err := draw.NewFormattedCanvas(f.Options.Width, f.Options.Height, format)
	if err != nil {
		return 0, err
	}

	plots := make([][]*plot.Plot, f.Grid.Rows)
	for row := range f.Panels {
		plots[row] = make([]*plot.Plot, f.Grid.Cols)
		for col, p := range f.Panels[row] {
			plots[row][col] = p.Plot
		}
	}

	tiles := draw.Tiles{
		Rows: f.Grid.Rows,
		Cols: f.Grid.Cols,
		PadX: vg.Millimeter * 4,
		PadY: vg.Millimeter * 4,

		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}

	canvases := plot.Align(plots, tiles, draw.New(c))
	for row := range plots {
		for col, p := range plots[row] {
			p.Draw(canvases[row][col])
		}
	}

	return c.WriteTo(w)
}

func (f *Figure) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf, "png"); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Writes the figure to path. The format is taken from the extension.
func (f *Figure) Save(path string) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return fmt.Errorf("%s: cannot derive image format without a file extension", path)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := f.WriteTo(out, format); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("rendering %s: %w", path, err)
	}

	if err := out.Close(); err != nil {
		return err
	}

	f.logger.WithFields(logrus.Fields{
		"path":      path,
		"numPanels": len(f.UsedPanels()),
	}).Info("saved figure")
	return nil
}
