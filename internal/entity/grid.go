package entity

import (
	"fmt"

	"github.com/rocketscienceinc/kittycard-backend/internal/apperror"
)

const (
	GridWidth  = 3
	GridHeight = 3
	GridCells  = GridWidth * GridHeight
)

// GridCell is a single placement cell. A cell is empty while Card is nil
// and becomes occupied exactly once per placement; only an undo of that
// placement can empty it again.
type GridCell struct {
	X        int
	Y        int
	Card     *Card
	PlacedBy int // slot number, 0 while empty
}

func (that *GridCell) IsEmpty() bool {
	return that.Card == nil
}

// Grid is the 3x3 placement board, indexed row-major.
type Grid [GridCells]GridCell

func NewGrid() Grid {
	var grid Grid

	for i := range grid {
		grid[i].X = i % GridWidth
		grid[i].Y = i / GridWidth
	}

	return grid
}

// At - returns the cell at (x, y).
func (that *Grid) At(x, y int) (*GridCell, error) {
	if x < 0 || x >= GridWidth || y < 0 || y >= GridHeight {
		return nil, fmt.Errorf("%w: (%d, %d)", apperror.ErrCellOutOfBounds, x, y)
	}

	return &that[y*GridWidth+x], nil
}

// IsFull - reports whether every cell is occupied.
func (that *Grid) IsFull() bool {
	for i := range that {
		if that[i].IsEmpty() {
			return false
		}
	}

	return true
}
