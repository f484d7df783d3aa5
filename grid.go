package fieldplot

import "github.com/gogpu/fieldplot/plotcore"

// DefaultSlit is the fixed inter-tile margin in normalized device
// coordinates, subtracted symmetrically from each edge of every tile.
const DefaultSlit = 2.0 / 500.0

// TileRect returns the normalized device rectangle of tile index in a
// rows×cols grid, inset by slit on every edge. Tiles are numbered
// row-major starting at the top-left: index 0 is the top-left tile,
// index cols-1 the top-right.
//
// With slit == 0 the rectangles of all rows×cols indices exactly tile
// [-1,1]×[-1,1].
func TileRect(rows, cols, index int, slit float64) plotcore.Rect {
	i := index / cols
	j := index % cols

	x0 := -1 + 2*float64(j)/float64(cols)
	x1 := x0 + 2/float64(cols)
	y1 := 1 - 2*float64(i)/float64(rows)
	y0 := y1 - 2/float64(rows)

	return plotcore.Rect{
		X0: x0 + slit,
		X1: x1 - slit,
		Y0: y0 + slit,
		Y1: y1 - slit,
	}
}

// NextIndex advances the tile counter. It returns index+1, unless index
// is the last tile of the grid, in which case it returns 0 and reports
// that the grid is complete and the surface should be presented.
func NextIndex(rows, cols, index int) (next int, complete bool) {
	if index == rows*cols-1 {
		return 0, true
	}
	return index + 1, false
}

// Grid tracks the multiplot tiling state of a surface: a logical
// rows×cols partition and the index of the tile the next render lands in.
// The index is fully determined by call order; callers never supply
// coordinates.
//
// The zero Grid is not valid; use NewGrid.
type Grid struct {
	rows  int
	cols  int
	index int
	slit  float64
}

// NewGrid creates a grid with the given dimensions and the default slit
// margin. Dimensions below 1 are clamped to 1.
func NewGrid(rows, cols int) Grid {
	g := Grid{slit: DefaultSlit}
	g.Set(rows, cols)
	return g
}

// Set reconfigures the grid dimensions and resets the tile index to 0
// unconditionally: in-flight tiling is discarded, not drained.
// Dimensions below 1 are clamped to 1.
func (g *Grid) Set(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	g.rows = rows
	g.cols = cols
	g.index = 0
}

// SetSlit overrides the inter-tile margin. A slit of 0 makes adjacent
// tiles share edges exactly.
func (g *Grid) SetSlit(slit float64) { g.slit = slit }

// Rows returns the number of grid rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of grid columns.
func (g *Grid) Cols() int { return g.cols }

// Index returns the index of the tile the next render will draw into.
func (g *Grid) Index() int { return g.index }

// CurrentRect returns the rectangle of the current tile.
func (g *Grid) CurrentRect() plotcore.Rect {
	return TileRect(g.rows, g.cols, g.index, g.slit)
}

// Advance moves to the next tile. It reports whether the grid wrapped
// around, i.e. every tile has been drawn and the surface should be
// presented.
func (g *Grid) Advance() (complete bool) {
	g.index, complete = NextIndex(g.rows, g.cols, g.index)
	return complete
}
