package spatial

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/aurora/engine/math"
)

func TestDenseGridConfigValidation(t *testing.T) {
	_, err := NewDenseGrid[thing](math.NewFRect(0, 0, 100, 100), 0, 10)
	require.Error(t, err)
	_, err = NewDenseGrid[thing](math.NewFRect(0, 0, 100, 100), 10, 0)
	require.Error(t, err)
	_, err = NewDenseGrid[thing](math.NewFRect(0, 0, 100, 100), 1, 1)
	require.NoError(t, err)
}

func TestDenseGridInsertOutsideArea(t *testing.T) {
	grid, err := NewDenseGrid[thing](math.NewFRect(0, 0, 100, 100), 10, 10)
	require.NoError(t, err)

	obj := &thing{name: "outside"}
	require.False(t, grid.Insert(math.NewFRect(-5, 0, 10, 10), obj))
	require.True(t, grid.Insert(math.NewFRect(0, 0, 10, 10), obj))
}

func TestDenseGridSpanningObjectDeduplicated(t *testing.T) {
	grid, err := NewDenseGrid[thing](math.NewFRect(0, 0, 100, 100), 10, 10)
	require.NoError(t, err)

	// Covers a 3x3 block of 10x10 cells, one clipped entry each.
	spanning := &thing{name: "spanning"}
	require.True(t, grid.Insert(math.NewFRect(15, 15, 20, 20), spanning))

	set := NewSetCollector[thing]()
	grid.QueryRect(math.NewFRect(0, 0, 100, 100), set)
	require.Equal(t, 1, set.Len())

	list := NewListCollector[thing]()
	grid.QueryRect(math.NewFRect(0, 0, 100, 100), list)
	require.Equal(t, 9, list.Len())
}

func TestDenseGridQueryRectClipsToArea(t *testing.T) {
	grid, err := NewDenseGrid[thing](math.NewFRect(0, 0, 100, 100), 10, 10)
	require.NoError(t, err)

	edge := &thing{name: "edge"}
	require.True(t, grid.Insert(math.NewFRect(0, 0, 10, 10), edge))

	// Query area partially outside the grid still finds the object.
	set := NewSetCollector[thing]()
	grid.QueryRect(math.NewFRect(-50, -50, 60, 60), set)
	require.True(t, set.Contains(edge))

	// Fully outside finds nothing.
	set = NewSetCollector[thing]()
	grid.QueryRect(math.NewFRect(-50, -50, 40, 40), set)
	require.Equal(t, 0, set.Len())
}

func TestDenseGridQueryPoint(t *testing.T) {
	grid, err := NewDenseGrid[thing](math.NewFRect(-50, -50, 100, 100), 5, 5)
	require.NoError(t, err)

	a := &thing{name: "a"}
	b := &thing{name: "b"}
	require.True(t, grid.Insert(math.NewFRect(-10, -10, 20, 20), a))
	require.True(t, grid.Insert(math.NewFRect(0, 0, 20, 20), b))

	set := NewSetCollector[thing]()
	grid.QueryPoint(math.NewFPoint(5, 5), QueryAll, set)
	require.Equal(t, 2, set.Len())

	// Both rects contain the point; closest goes by center
	// distance. Point (5,5): center of a is (0,0), center of b is
	// (10,10), equidistant except a is considered via its clipped
	// fragment centers, so assert only the reduction to one hit.
	closest := NewListCollector[thing]()
	grid.QueryPoint(math.NewFPoint(5, 5), QueryClosest, closest)
	require.Equal(t, 1, closest.Len())

	set = NewSetCollector[thing]()
	grid.QueryPoint(math.NewFPoint(200, 200), QueryAll, set)
	require.Equal(t, 0, set.Len())
}

func TestDenseGridQueryHorizontalLine(t *testing.T) {
	grid, err := NewDenseGrid[thing](math.NewFRect(0, 0, 100, 100), 10, 10)
	require.NoError(t, err)

	a := &thing{name: "a"}
	b := &thing{name: "b"}
	require.True(t, grid.Insert(math.NewFRect(10, 10, 10, 10), a))
	require.True(t, grid.Insert(math.NewFRect(60, 40, 10, 10), b))

	// The bounds of a horizontal segment have zero height.
	set := NewSetCollector[thing]()
	grid.QueryLine(math.NewFPoint(0, 15), math.NewFPoint(99, 15), QueryAll, set)
	require.Equal(t, 1, set.Len())
	require.True(t, set.Contains(a))
}

func TestDenseGridQueryPointRadius(t *testing.T) {
	grid, err := NewDenseGrid[thing](math.NewFRect(0, 0, 100, 100), 10, 10)
	require.NoError(t, err)

	a := &thing{name: "a"}
	require.True(t, grid.Insert(math.NewFRect(40, 40, 10, 10), a))

	set := NewSetCollector[thing]()
	grid.QueryPointRadius(math.NewFPoint(30, 45), 11, QueryAll, set)
	require.True(t, set.Contains(a))

	set = NewSetCollector[thing]()
	grid.QueryPointRadius(math.NewFPoint(30, 45), 5, QueryAll, set)
	require.Equal(t, 0, set.Len())
}

func TestDenseGridErase(t *testing.T) {
	grid, err := NewDenseGrid[thing](math.NewFRect(0, 0, 100, 100), 10, 10)
	require.NoError(t, err)

	dead := &thing{name: "dead"}
	keep := &thing{name: "keep"}
	require.True(t, grid.Insert(math.NewFRect(15, 15, 20, 20), dead))
	require.True(t, grid.Insert(math.NewFRect(50, 50, 5, 5), keep))

	grid.Erase(map[*thing]struct{}{dead: {}})

	set := NewSetCollector[thing]()
	grid.QueryRect(math.NewFRect(0, 0, 100, 100), set)
	require.Equal(t, 1, set.Len())
	require.True(t, set.Contains(keep))
}

func TestDenseGridRebuild(t *testing.T) {
	grid, err := NewDenseGrid[thing](math.NewFRect(0, 0, 100, 100), 10, 10)
	require.NoError(t, err)

	a := &thing{name: "a"}
	require.True(t, grid.Insert(math.NewFRect(10, 10, 10, 10), a))

	grid.BeginInsert(math.NewFRect(-100, -100, 200, 200))
	require.True(t, grid.Insert(math.NewFRect(-90, -90, 10, 10), a))
	grid.EndInsert()

	set := NewSetCollector[thing]()
	grid.QueryRect(math.NewFRect(0, 0, 100, 100), set)
	require.Equal(t, 0, set.Len())

	set = NewSetCollector[thing]()
	grid.QueryRect(math.NewFRect(-100, -100, 50, 50), set)
	require.Equal(t, 1, set.Len())
}
