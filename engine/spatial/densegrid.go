package spatial

import (
	"fmt"

	"github.com/spaghettifunk/aurora/engine/math"
)

// DenseGrid is a fixed rows×cols bucket grid over a rectangular
// area. Every inserted rectangle is clipped against the cells it
// overlaps and a clipped entry is stored in each such cell, so an
// object covering several cells yields several entries and distinct
// results require set based collection. Suited to areas with a
// roughly uniform object distribution; degenerates gracefully to a
// flat list with a 1×1 grid.
type DenseGrid[T any] struct {
	rect  math.FRect
	rows  int
	cols  int
	cells [][]Item[T]
}

// NewDenseGrid creates an empty grid over the given area.
func NewDenseGrid[T any](rect math.FRect, rows, cols int) (*DenseGrid[T], error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("dense grid needs at least 1x1 cells, got %dx%d", rows, cols)
	}
	return &DenseGrid[T]{
		rect:  rect,
		rows:  rows,
		cols:  cols,
		cells: make([][]Item[T], rows*cols),
	}, nil
}

func (g *DenseGrid[T]) BeginInsert(rect math.FRect) {
	g.rect = rect
	g.cells = make([][]Item[T], g.rows*g.cols)
}

func (g *DenseGrid[T]) Insert(rect math.FRect, object *T) bool {
	if !math.RectContains(g.rect, rect) {
		return false
	}
	col0, col1, row0, row1 := g.cellSpan(rect)
	for row := row0; row <= row1; row++ {
		for col := col0; col <= col1; col++ {
			clipped := math.RectIntersect(rect, g.cellRect(row, col))
			if clipped.IsEmpty() {
				continue
			}
			cell := &g.cells[row*g.cols+col]
			*cell = append(*cell, Item[T]{Rect: clipped, Object: object})
		}
	}
	return true
}

func (g *DenseGrid[T]) EndInsert() {}

func (g *DenseGrid[T]) Clear() {
	g.cells = make([][]Item[T], g.rows*g.cols)
}

// GetRect returns the area currently covered by the grid.
func (g *DenseGrid[T]) GetRect() math.FRect {
	return g.rect
}

func (g *DenseGrid[T]) Erase(killset map[*T]struct{}) {
	if len(killset) == 0 {
		return
	}
	for i := range g.cells {
		kept := g.cells[i][:0]
		for _, item := range g.cells[i] {
			if _, dead := killset[item.Object]; !dead {
				kept = append(kept, item)
			}
		}
		g.cells[i] = kept
	}
}

func (g *DenseGrid[T]) QueryRect(area math.FRect, result Collector[T]) {
	// Clip the query against the grid so the cell span stays in
	// bounds even for an area partially outside the grid.
	area = math.RectIntersect(area, g.rect)
	if area.IsEmpty() {
		return
	}
	col0, col1, row0, row1 := g.cellSpan(area)
	for row := row0; row <= row1; row++ {
		for col := col0; col <= col1; col++ {
			for _, item := range g.cells[row*g.cols+col] {
				if math.DoesIntersect(item.Rect, area) {
					result.Store(item.Object)
				}
			}
		}
	}
}

func (g *DenseGrid[T]) QueryPoint(point math.FPoint, mode QueryMode, result Collector[T]) {
	if !g.rect.TestPoint(point) {
		return
	}
	sink := newQuerySink(mode, result, pointDistance(point))
	row, col := g.cellAt(point)
	for _, item := range g.cells[row*g.cols+col] {
		if item.Rect.TestPoint(point) {
			sink.store(item)
		}
	}
	sink.flush()
}

func (g *DenseGrid[T]) QueryPointRadius(point math.FPoint, radius float32, mode QueryMode, result Collector[T]) {
	area := math.NewFRect(point.X-radius, point.Y-radius, radius*2, radius*2)
	sink := newQuerySink(mode, result, func(r math.FRect) float32 {
		return r.DistanceToPoint(point)
	})
	g.querySpan(area, sink.store, func(r math.FRect) bool {
		return r.IntersectsCircle(point, radius)
	})
	sink.flush()
}

func (g *DenseGrid[T]) QueryLine(a, b math.FPoint, mode QueryMode, result Collector[T]) {
	x0, x1 := math.Min(a.X, b.X), math.Max(a.X, b.X)
	y0, y1 := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	area := math.NewFRect(x0, y0, x1-x0, y1-y0)
	sink := newQuerySink(mode, result, func(r math.FRect) float32 {
		return r.DistanceToPoint(a)
	})
	g.querySpan(area, sink.store, func(r math.FRect) bool {
		return r.IntersectsLine(a, b)
	})
	sink.flush()
}

// querySpan visits the cells overlapped by the bounding area of a
// query shape and yields items passing the exact shape test. The
// area may be degenerate, e.g. the zero height bounds of a
// horizontal line segment.
func (g *DenseGrid[T]) querySpan(area math.FRect, yield func(Item[T]), test func(math.FRect) bool) {
	x0 := math.Max(area.X, g.rect.X)
	y0 := math.Max(area.Y, g.rect.Y)
	x1 := math.Min(area.X+area.Width, g.rect.X+g.rect.Width)
	y1 := math.Min(area.Y+area.Height, g.rect.Y+g.rect.Height)
	if x0 > x1 || y0 > y1 {
		return
	}
	col0, col1, row0, row1 := g.cellSpan(math.NewFRect(x0, y0, x1-x0, y1-y0))
	for row := row0; row <= row1; row++ {
		for col := col0; col <= col1; col++ {
			for _, item := range g.cells[row*g.cols+col] {
				if test(item.Rect) {
					yield(item)
				}
			}
		}
	}
}

func (g *DenseGrid[T]) cellSize() (width, height float32) {
	size := g.rect.GetSize()
	return size.Width / float32(g.cols), size.Height / float32(g.rows)
}

// cellSpan maps a rectangle, already clipped or contained within the
// grid, to the inclusive cell index ranges it overlaps.
func (g *DenseGrid[T]) cellSpan(rect math.FRect) (col0, col1, row0, row1 int) {
	cw, ch := g.cellSize()
	local := rect.Translate(-g.rect.X, -g.rect.Y)
	col0 = clampIndex(int(local.X/cw), g.cols)
	col1 = clampIndex(int((local.X+local.Width)/cw), g.cols)
	row0 = clampIndex(int(local.Y/ch), g.rows)
	row1 = clampIndex(int((local.Y+local.Height)/ch), g.rows)
	return col0, col1, row0, row1
}

func (g *DenseGrid[T]) cellAt(point math.FPoint) (row, col int) {
	cw, ch := g.cellSize()
	local := g.rect.MapToLocal(point)
	return clampIndex(int(local.Y/ch), g.rows), clampIndex(int(local.X/cw), g.cols)
}

func (g *DenseGrid[T]) cellRect(row, col int) math.FRect {
	cw, ch := g.cellSize()
	return math.NewFRect(g.rect.X+float32(col)*cw, g.rect.Y+float32(row)*ch, cw, ch)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
