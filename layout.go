package keyhist

import (
	"errors"
	"fmt"
)

var ErrPanelOutOfRange = errors.New("panel index out of range")

// A fixed arrangement of panels, filled row by row.
type Grid struct {
	Rows int
	Cols int
}

var DefaultGrid = Grid{Rows: 3, Cols: 3}

func (g Grid) Size() int {
	return g.Rows * g.Cols
}

func (g Grid) Position(index int) (row, col int, err error) {
	if index < 0 || index >= g.Size() {
		return 0, 0, fmt.Errorf("%w: panel %d does not fit a %dx%d grid", ErrPanelOutOfRange, index, g.Rows, g.Cols)
	}

	return index / g.Cols, index % g.Cols, nil
}

// Returns the grid to use for n panels. Without grow this is base itself.
// With grow, rows are added until every panel fits.
func GridFor(base Grid, n int, grow bool) Grid {
	if !grow || base.Cols <= 0 {
		return base
	}

	rows := (n + base.Cols - 1) / base.Cols
	return Grid{Rows: Max(base.Rows, rows), Cols: base.Cols}
}
