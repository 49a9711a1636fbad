package spatial

import (
	"github.com/spaghettifunk/aurora/engine/math"
)

// QueryMode selects between exhaustive queries and queries that
// reduce the matches to the single object nearest the query point.
type QueryMode int

const (
	// QueryAll collects every matching object.
	QueryAll QueryMode = iota
	// QueryClosest collects only the matching object closest to
	// the query point. For line segment queries the distance is
	// measured from the segment start.
	QueryClosest
)

// Item associates an axis aligned rectangle with the object occupying
// that area. One logical object may be represented by several items
// with clipped sub-rectangles when the index partitions space.
type Item[T any] struct {
	Rect   math.FRect
	Object *T
}

// Collector receives query results. Using a SetCollector deduplicates
// objects that the index stores as multiple clipped fragments; a
// ListCollector preserves traversal order and may contain duplicates
// of such objects.
type Collector[T any] interface {
	Store(object *T)
}

// SetCollector collects distinct objects in no particular order.
type SetCollector[T any] struct {
	Objects map[*T]struct{}
}

func NewSetCollector[T any]() *SetCollector[T] {
	return &SetCollector[T]{Objects: make(map[*T]struct{})}
}

func (c *SetCollector[T]) Store(object *T) {
	c.Objects[object] = struct{}{}
}

func (c *SetCollector[T]) Contains(object *T) bool {
	_, ok := c.Objects[object]
	return ok
}

func (c *SetCollector[T]) Len() int {
	return len(c.Objects)
}

// ListCollector collects objects in traversal order.
type ListCollector[T any] struct {
	Objects []*T
}

func NewListCollector[T any]() *ListCollector[T] {
	return &ListCollector[T]{}
}

func (c *ListCollector[T]) Store(object *T) {
	c.Objects = append(c.Objects, object)
}

func (c *ListCollector[T]) Len() int {
	return len(c.Objects)
}

// Index is a bulk-rebuild spatial index over axis aligned
// rectangles. An index is rebuilt once per frame from scratch with a
// BeginInsert / Insert×N / EndInsert sequence and queried by
// rectangle, point, point+radius or line segment.
type Index[T any] interface {
	// BeginInsert starts a rebuild, discarding prior contents and
	// adopting the given rectangle as the indexed area.
	BeginInsert(rect math.FRect)
	// Insert adds the object with the given bounding rectangle.
	// Returns false when the rectangle is not contained within the
	// indexed area; the caller should treat this as "out of indexed
	// area, skip" rather than a fatal error.
	Insert(rect math.FRect, object *T) bool
	// EndInsert finalizes a rebuild.
	EndInsert()
	// Erase removes every entry whose object is in the killset.
	// Used for same-frame removal of entries belonging to objects
	// that die mid-frame, without a full rebuild.
	Erase(killset map[*T]struct{})
	// Clear discards all entries but keeps the configuration.
	Clear()

	// QueryRect collects the objects whose rectangles intersect the
	// given area.
	QueryRect(area math.FRect, result Collector[T])
	// QueryPoint collects the objects whose rectangles contain the
	// given point.
	QueryPoint(point math.FPoint, mode QueryMode, result Collector[T])
	// QueryPointRadius collects the objects whose rectangles
	// intersect the circle around the given point.
	QueryPointRadius(point math.FPoint, radius float32, mode QueryMode, result Collector[T])
	// QueryLine collects the objects whose rectangles intersect the
	// line segment from a to b.
	QueryLine(a, b math.FPoint, mode QueryMode, result Collector[T])
}

var (
	_ Index[struct{}] = (*QuadTree[struct{}])(nil)
	_ Index[struct{}] = (*DenseGrid[struct{}])(nil)
)

// querySink funnels matching items into the collector. With QueryAll
// every match is stored as seen; with QueryClosest matches are
// reduced to the one with the smallest distance and stored at flush.
// Containment matches have distance 0, so ties between rectangles
// covering the query point fall back to center distance.
type querySink[T any] struct {
	mode   QueryMode
	result Collector[T]
	dist   func(math.FRect) float32
	best   *T
	score  float32
}

func newQuerySink[T any](mode QueryMode, result Collector[T], dist func(math.FRect) float32) *querySink[T] {
	return &querySink[T]{mode: mode, result: result, dist: dist}
}

func (s *querySink[T]) store(item Item[T]) {
	if s.mode == QueryAll {
		s.result.Store(item.Object)
		return
	}
	d := s.dist(item.Rect)
	if s.best == nil || d < s.score {
		s.best = item.Object
		s.score = d
	}
}

func (s *querySink[T]) flush() {
	if s.best != nil {
		s.result.Store(s.best)
	}
}

func pointDistance(point math.FPoint) func(math.FRect) float32 {
	return func(r math.FRect) float32 {
		d := r.DistanceToPoint(point)
		if d > 0 {
			return d
		}
		center := r.GetCenter()
		return math.NewVec2(point.X-center.X, point.Y-center.Y).Length()
	}
}
