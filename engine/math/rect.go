package math

// Rectangle and box algebra for the spatial code. All rectangles are
// axis aligned with the position denoting the top left (minimum)
// corner.

func NewFRect(x, y, width, height float32) FRect {
	return FRect{X: x, Y: y, Width: width, Height: height}
}

func NewFRectFromPointSize(pos FPoint, size FSize) FRect {
	return FRect{X: pos.X, Y: pos.Y, Width: size.Width, Height: size.Height}
}

func NewFPoint(x, y float32) FPoint {
	return FPoint{X: x, Y: y}
}

func NewFSize(width, height float32) FSize {
	return FSize{Width: width, Height: height}
}

func (r FRect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r FRect) GetPosition() FPoint {
	return FPoint{X: r.X, Y: r.Y}
}

func (r FRect) GetSize() FSize {
	return FSize{Width: r.Width, Height: r.Height}
}

func (r FRect) GetCenter() FPoint {
	return FPoint{X: r.X + r.Width*0.5, Y: r.Y + r.Height*0.5}
}

// Translate returns a copy of the rectangle moved by dx, dy.
func (r FRect) Translate(dx, dy float32) FRect {
	return FRect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Grow returns a copy expanded by dw, dh around the center.
func (r FRect) Grow(dw, dh float32) FRect {
	return FRect{
		X:      r.X - dw*0.5,
		Y:      r.Y - dh*0.5,
		Width:  r.Width + dw,
		Height: r.Height + dh,
	}
}

// TestPoint returns true when the point is inside the rectangle.
// Inclusive of the min edges, exclusive of the max edges, so a point
// on the seam of two adjacent rectangles belongs to exactly one.
func (r FRect) TestPoint(p FPoint) bool {
	return p.X >= r.X && p.X < r.X+r.Width &&
		p.Y >= r.Y && p.Y < r.Y+r.Height
}

// MapToLocal maps a point into the rectangle's local coordinate
// space where the rect's top left corner is the origin.
func (r FRect) MapToLocal(p FPoint) FPoint {
	return FPoint{X: p.X - r.X, Y: p.Y - r.Y}
}

// GetQuadrants splits the rectangle into its four quadrants in the
// order top-left, top-right, bottom-left, bottom-right.
func (r FRect) GetQuadrants() [4]FRect {
	w := r.Width * 0.5
	h := r.Height * 0.5
	return [4]FRect{
		{X: r.X, Y: r.Y, Width: w, Height: h},
		{X: r.X + w, Y: r.Y, Width: w, Height: h},
		{X: r.X, Y: r.Y + h, Width: w, Height: h},
		{X: r.X + w, Y: r.Y + h, Width: w, Height: h},
	}
}

// RectContains returns true when the inner rectangle is completely
// within the outer rectangle.
func RectContains(outer, inner FRect) bool {
	return inner.X >= outer.X && inner.Y >= outer.Y &&
		inner.X+inner.Width <= outer.X+outer.Width &&
		inner.Y+inner.Height <= outer.Y+outer.Height
}

// RectIntersect returns the intersection of the two rectangles, i.e.
// the rectangle of lhs clipped to rhs. The result is empty when the
// rectangles don't intersect.
func RectIntersect(lhs, rhs FRect) FRect {
	x0 := Max(lhs.X, rhs.X)
	y0 := Max(lhs.Y, rhs.Y)
	x1 := Min(lhs.X+lhs.Width, rhs.X+rhs.Width)
	y1 := Min(lhs.Y+lhs.Height, rhs.Y+rhs.Height)
	if x1 <= x0 || y1 <= y0 {
		return FRect{}
	}
	return FRect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// DoesIntersect returns true when the two rectangles overlap by a
// non-empty area.
func DoesIntersect(lhs, rhs FRect) bool {
	return !RectIntersect(lhs, rhs).IsEmpty()
}

// RectUnion returns the smallest rectangle that contains both
// rectangles. An empty rectangle contributes nothing.
func RectUnion(lhs, rhs FRect) FRect {
	if lhs.IsEmpty() {
		return rhs
	}
	if rhs.IsEmpty() {
		return lhs
	}
	x0 := Min(lhs.X, rhs.X)
	y0 := Min(lhs.Y, rhs.Y)
	x1 := Max(lhs.X+lhs.Width, rhs.X+rhs.Width)
	y1 := Max(lhs.Y+lhs.Height, rhs.Y+rhs.Height)
	return FRect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// IntersectsCircle returns true when the rectangle and the circle
// defined by the center point and radius overlap.
func (r FRect) IntersectsCircle(center FPoint, radius float32) bool {
	// closest point on the rect to the circle center.
	cx := Clamp(center.X, r.X, r.X+r.Width)
	cy := Clamp(center.Y, r.Y, r.Y+r.Height)
	dx := center.X - cx
	dy := center.Y - cy
	return dx*dx+dy*dy <= radius*radius
}

// DistanceToPoint returns the distance from the point to the nearest
// edge of the rectangle, or 0 when the point is inside.
func (r FRect) DistanceToPoint(p FPoint) float32 {
	cx := Clamp(p.X, r.X, r.X+r.Width)
	cy := Clamp(p.Y, r.Y, r.Y+r.Height)
	dx := p.X - cx
	dy := p.Y - cy
	return ksqrt(dx*dx + dy*dy)
}

// IntersectsLine returns true when the line segment from a to b
// passes through the rectangle. Uses the slab clipping method.
func (r FRect) IntersectsLine(a, b FPoint) bool {
	if r.TestPoint(a) || r.TestPoint(b) {
		return true
	}
	dx := b.X - a.X
	dy := b.Y - a.Y

	tmin := float32(0.0)
	tmax := float32(1.0)
	// clip against each slab. a zero direction component means the
	// segment is parallel to that slab and must start inside it.
	if kabs(dx) < Epsilon {
		if a.X < r.X || a.X > r.X+r.Width {
			return false
		}
	} else {
		t0 := (r.X - a.X) / dx
		t1 := (r.X + r.Width - a.X) / dx
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = Max(tmin, t0)
		tmax = Min(tmax, t1)
	}
	if kabs(dy) < Epsilon {
		if a.Y < r.Y || a.Y > r.Y+r.Height {
			return false
		}
	} else {
		t0 := (r.Y - a.Y) / dy
		t1 := (r.Y + r.Height - a.Y) / dy
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = Max(tmin, t0)
		tmax = Min(tmax, t1)
	}
	return tmin <= tmax
}

// ComputeBoundingRect computes the axis aligned bounding rectangle
// of the unit box (0,0)x(1,1) transformed through the matrix.
func ComputeBoundingRect(m Mat4) FRect {
	corners := [4]Vec2{
		NewVec2(0.0, 0.0).Transform(m),
		NewVec2(1.0, 0.0).Transform(m),
		NewVec2(0.0, 1.0).Transform(m),
		NewVec2(1.0, 1.0).Transform(m),
	}
	minX, minY := corners[0].X, corners[0].Y
	maxX, maxY := corners[0].X, corners[0].Y
	for _, c := range corners[1:] {
		minX = Min(minX, c.X)
		minY = Min(minY, c.Y)
		maxX = Max(maxX, c.X)
		maxY = Max(maxY, c.Y)
	}
	return FRect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// NewFBox creates an oriented box by mapping the unit box through
// the transformation matrix.
func NewFBox(m Mat4) FBox {
	return FBox{
		Corners: [4]Vec2{
			NewVec2(0.0, 0.0).Transform(m),
			NewVec2(1.0, 0.0).Transform(m),
			NewVec2(0.0, 1.0).Transform(m),
			NewVec2(1.0, 1.0).Transform(m),
		},
	}
}

func (b FBox) GetTopLeft() Vec2 {
	return b.Corners[0]
}

func (b FBox) GetCenter() Vec2 {
	sum := Vec2{}
	for _, c := range b.Corners {
		sum = sum.Add(c)
	}
	return sum.MulScalar(0.25)
}

func (b FBox) GetWidth() float32 {
	return b.Corners[1].Sub(b.Corners[0]).Length()
}

func (b FBox) GetHeight() float32 {
	return b.Corners[2].Sub(b.Corners[0]).Length()
}

// GetRotation returns the rotation of the box's horizontal edge
// relative to the x axis, in radians.
func (b FBox) GetRotation() float32 {
	edge := b.Corners[1].Sub(b.Corners[0]).Normalized()
	return katan2(edge.Y, edge.X)
}
