package spatial

import (
	"fmt"

	"github.com/spaghettifunk/aurora/engine/math"
)

const (
	DefaultQuadTreeMaxItems  = 4
	DefaultQuadTreeMaxLevels = 3
)

// QuadTree partitions a rectangular area into recursive quadrants.
// A node splits when it holds more than maxItems items and has depth
// budget left; on split every item is re-inserted into each child
// quadrant it overlaps, clipped to that quadrant. An object spanning
// a quadrant boundary therefore yields multiple clipped entries, which
// is why set based result collection is needed for distinct results.
type QuadTree[T any] struct {
	maxItems  int
	maxLevels int
	root      *quadTreeNode[T]
}

type quadTreeNode[T any] struct {
	rect      math.FRect
	items     []Item[T]
	quadrants [4]*quadTreeNode[T]
}

// NewQuadTree creates an empty tree over the given area. maxItems is
// the per-node item count that triggers a split and maxLevels bounds
// the subdivision depth.
func NewQuadTree[T any](rect math.FRect, maxItems, maxLevels int) (*QuadTree[T], error) {
	if maxItems < 1 {
		return nil, fmt.Errorf("quadtree max items must be at least 1, got %d", maxItems)
	}
	if maxLevels < 1 {
		return nil, fmt.Errorf("quadtree max levels must be at least 1, got %d", maxLevels)
	}
	return &QuadTree[T]{
		maxItems:  maxItems,
		maxLevels: maxLevels,
		root:      &quadTreeNode[T]{rect: rect},
	}, nil
}

func (t *QuadTree[T]) BeginInsert(rect math.FRect) {
	t.root = &quadTreeNode[T]{rect: rect}
}

func (t *QuadTree[T]) Insert(rect math.FRect, object *T) bool {
	if !math.RectContains(t.root.rect, rect) {
		return false
	}
	t.insert(t.root, Item[T]{Rect: rect, Object: object}, t.maxLevels-1)
	return true
}

func (t *QuadTree[T]) EndInsert() {}

func (t *QuadTree[T]) Clear() {
	t.root = &quadTreeNode[T]{rect: t.root.rect}
}

// GetRect returns the area currently covered by the tree.
func (t *QuadTree[T]) GetRect() math.FRect {
	return t.root.rect
}

func (t *QuadTree[T]) insert(node *quadTreeNode[T], item Item[T], levels int) {
	if node.quadrants[0] == nil {
		if len(node.items) < t.maxItems || levels == 0 {
			node.items = append(node.items, item)
			return
		}
		t.split(node, levels)
	}
	t.distribute(node, item, levels)
}

func (t *QuadTree[T]) split(node *quadTreeNode[T], levels int) {
	quads := node.rect.GetQuadrants()
	for i := range node.quadrants {
		node.quadrants[i] = &quadTreeNode[T]{rect: quads[i]}
	}
	items := node.items
	node.items = nil
	for _, item := range items {
		t.distribute(node, item, levels)
	}
}

// distribute pushes the item into every quadrant it overlaps, clipped
// to that quadrant. A zero area rect clips to nothing, so it goes to
// the quadrant containing its origin instead of vanishing.
func (t *QuadTree[T]) distribute(node *quadTreeNode[T], item Item[T], levels int) {
	if item.Rect.IsEmpty() {
		origin := item.Rect.GetPosition()
		for _, q := range node.quadrants {
			if q.rect.TestPoint(origin) {
				t.insert(q, item, levels-1)
				return
			}
		}
		// origin on the far edge of the covered area belongs to no
		// quadrant; the item stays on this node.
		node.items = append(node.items, item)
		return
	}
	for _, q := range node.quadrants {
		clipped := math.RectIntersect(item.Rect, q.rect)
		if clipped.IsEmpty() {
			continue
		}
		t.insert(q, Item[T]{Rect: clipped, Object: item.Object}, levels-1)
	}
}

// Erase removes every entry whose object is in the killset. Subtrees
// whose remaining item count fits in a single node are merged back
// into their parent.
func (t *QuadTree[T]) Erase(killset map[*T]struct{}) {
	if len(killset) == 0 {
		return
	}
	t.erase(t.root, killset)
}

func (t *QuadTree[T]) erase(node *quadTreeNode[T], killset map[*T]struct{}) int {
	kept := node.items[:0]
	for _, item := range node.items {
		if _, dead := killset[item.Object]; !dead {
			kept = append(kept, item)
		}
	}
	node.items = kept

	count := len(node.items)
	if node.quadrants[0] == nil {
		return count
	}
	for _, q := range node.quadrants {
		count += t.erase(q, killset)
	}
	if count <= t.maxItems {
		for _, q := range node.quadrants {
			t.collect(q, &node.items)
		}
		node.quadrants = [4]*quadTreeNode[T]{}
	}
	return count
}

func (t *QuadTree[T]) collect(node *quadTreeNode[T], out *[]Item[T]) {
	*out = append(*out, node.items...)
	if node.quadrants[0] == nil {
		return
	}
	for _, q := range node.quadrants {
		t.collect(q, out)
	}
}

func (t *QuadTree[T]) QueryRect(area math.FRect, result Collector[T]) {
	t.search(t.root, func(r math.FRect) bool {
		return math.DoesIntersect(r, area)
	}, func(item Item[T]) {
		result.Store(item.Object)
	})
}

func (t *QuadTree[T]) QueryPoint(point math.FPoint, mode QueryMode, result Collector[T]) {
	sink := newQuerySink(mode, result, pointDistance(point))
	t.search(t.root, func(r math.FRect) bool {
		return r.TestPoint(point)
	}, sink.store)
	sink.flush()
}

func (t *QuadTree[T]) QueryPointRadius(point math.FPoint, radius float32, mode QueryMode, result Collector[T]) {
	sink := newQuerySink(mode, result, func(r math.FRect) float32 {
		return r.DistanceToPoint(point)
	})
	t.search(t.root, func(r math.FRect) bool {
		return r.IntersectsCircle(point, radius)
	}, sink.store)
	sink.flush()
}

func (t *QuadTree[T]) QueryLine(a, b math.FPoint, mode QueryMode, result Collector[T]) {
	sink := newQuerySink(mode, result, func(r math.FRect) float32 {
		return r.DistanceToPoint(a)
	})
	t.search(t.root, func(r math.FRect) bool {
		return r.IntersectsLine(a, b)
	}, sink.store)
	sink.flush()
}

// search walks nodes whose rects pass the predicate and yields every
// item whose rect passes it too.
func (t *QuadTree[T]) search(node *quadTreeNode[T], test func(math.FRect) bool, yield func(Item[T])) {
	if !test(node.rect) {
		return
	}
	for _, item := range node.items {
		if test(item.Rect) {
			yield(item)
		}
	}
	if node.quadrants[0] == nil {
		return
	}
	for _, q := range node.quadrants {
		t.search(q, test, yield)
	}
}
