package keyhist

import "gonum.org/v1/plot/vg"

type FigureOptions struct {
	Title    string
	XLabel   string
	YLabel   string
	Bins     int
	Grid     Grid
	GrowGrid bool

	// Size of the whole figure.
	Width  vg.Length
	Height vg.Length
}

func DefaultFigureOptions() FigureOptions {
	return FigureOptions{
		XLabel: "Pixel",
		YLabel: "Count",
		Bins:   100,
		Grid:   DefaultGrid,
		Width:  12 * vg.Inch,
		Height: 9 * vg.Inch,
	}
}

type Bin struct {
	Min   float64
	Max   float64
	Count float64
}

type PanelMetadata struct {
	Index   int
	Row     int
	Col     int
	Label   string
	Path    string
	Summary Summary
	Bins    []Bin `json:",omitempty"`
}

type Metadata struct {
	Title  string
	XLabel string
	YLabel string
	Rows   int
	Cols   int
	Panels []PanelMetadata
}
