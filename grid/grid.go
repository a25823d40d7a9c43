// Package grid holds the editable table model: a rectangular grid of text
// cells plus the title and caption shown around it.
package grid

import (
	"fmt"

	"github.com/goliatone/go-gridexport/export"
)

const (
	DefaultRows    = 3
	DefaultCols    = 3
	DefaultTitle   = "Tabela 1"
	DefaultCaption = "Fonte: Elaborado pelos autores."
)

// Cell is a single text cell.
type Cell struct {
	Content string `json:"content"`
}

// Grid is a rectangular grid of cells with at least one row and one column.
type Grid struct {
	cells [][]Cell
}

// New creates a rows x cols grid of empty cells.
func New(rows, cols int) (*Grid, error) {
	if rows < 1 || cols < 1 {
		return nil, export.NewError(export.KindValidation, fmt.Sprintf("grid must have at least one row and column, got %dx%d", rows, cols), nil).WithCode("invalid_dimensions")
	}
	cells := make([][]Cell, rows)
	for r := range cells {
		cells[r] = make([]Cell, cols)
	}
	return &Grid{cells: cells}, nil
}

// FromValues builds a grid from string rows. Short rows are padded to the widest row.
func FromValues(values [][]string) (*Grid, error) {
	cols := 0
	for _, row := range values {
		if len(row) > cols {
			cols = len(row)
		}
	}
	g, err := New(len(values), cols)
	if err != nil {
		return nil, err
	}
	for r, row := range values {
		for c, text := range row {
			g.cells[r][c].Content = text
		}
	}
	return g, nil
}

// Rows returns the number of rows.
func (g *Grid) Rows() int {
	return len(g.cells)
}

// Cols returns the number of columns.
func (g *Grid) Cols() int {
	if len(g.cells) == 0 {
		return 0
	}
	return len(g.cells[0])
}

// Cell returns the cell at row, col.
func (g *Grid) Cell(row, col int) (Cell, error) {
	if err := g.checkBounds(row, col); err != nil {
		return Cell{}, err
	}
	return g.cells[row][col], nil
}

// SetCell replaces the content of one cell verbatim.
func (g *Grid) SetCell(row, col int, text string) error {
	if err := g.checkBounds(row, col); err != nil {
		return err
	}
	g.cells[row][col].Content = text
	return nil
}

// AddRow appends a row of empty cells.
func (g *Grid) AddRow() {
	g.cells = append(g.cells, make([]Cell, g.Cols()))
}

// RemoveRow drops the last row. It is a no-op on a single-row grid.
func (g *Grid) RemoveRow() bool {
	if len(g.cells) <= 1 {
		return false
	}
	g.cells = g.cells[:len(g.cells)-1]
	return true
}

// AddColumn appends an empty cell to every row.
func (g *Grid) AddColumn() {
	for r := range g.cells {
		g.cells[r] = append(g.cells[r], Cell{})
	}
}

// RemoveColumn drops the last cell of every row. It is a no-op on a single-column grid.
func (g *Grid) RemoveColumn() bool {
	if g.Cols() <= 1 {
		return false
	}
	for r := range g.cells {
		g.cells[r] = g.cells[r][:len(g.cells[r])-1]
	}
	return true
}

// Values returns a copy of the cell contents.
func (g *Grid) Values() [][]string {
	out := make([][]string, len(g.cells))
	for r, row := range g.cells {
		out[r] = make([]string, len(row))
		for c, cell := range row {
			out[r][c] = cell.Content
		}
	}
	return out
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	cells := make([][]Cell, len(g.cells))
	for r, row := range g.cells {
		cells[r] = append([]Cell(nil), row...)
	}
	return &Grid{cells: cells}
}

func (g *Grid) checkBounds(row, col int) error {
	if row < 0 || row >= g.Rows() || col < 0 || col >= g.Cols() {
		return export.NewError(export.KindValidation, fmt.Sprintf("cell %d,%d is outside the %dx%d grid", row, col, g.Rows(), g.Cols()), nil).WithCode("cell_out_of_range")
	}
	return nil
}
