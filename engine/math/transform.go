package math

// Transform expresses a series of transformation operations such as
// translation, scaling and rotation as a single composable object.
// The underlying matrices can be "stacked" with Push and Pop. Each
// pushed scope's final transformation is relative to its parent
// scope's transformation. The transform is used as a traversal-scoped
// accumulator while walking a render tree and is never persisted
// across frames.
type Transform struct {
	stack []Mat4
}

func NewTransform() *Transform {
	t := &Transform{}
	t.stack = append(t.stack, NewMat4Identity())
	return t
}

func NewTransformFromMatrix(m Mat4) *Transform {
	t := &Transform{}
	t.stack = append(t.stack, m)
	return t
}

// Push opens a new transformation scope. Operations accumulated in
// the new scope apply to a vertex before the enclosing scopes, i.e.
// in the local space of the current tree node.
func (t *Transform) Push() {
	t.stack = append(t.stack, NewMat4Identity())
}

// PushMatrix opens a new transformation scope seeded with the given
// matrix.
func (t *Transform) PushMatrix(m Mat4) {
	t.stack = append(t.stack, m)
}

// Pop closes the current transformation scope. Popping the last
// scope is a bug.
func (t *Transform) Pop() {
	if len(t.stack) <= 1 {
		panic("transform stack underflow")
	}
	t.stack = t.stack[:len(t.stack)-1]
}

// GetAsMatrix returns the composition of every open scope. Scopes
// are folded innermost first, so a vertex transformed by the result
// passes through the most recently pushed scope before the outer
// ones.
func (t *Transform) GetAsMatrix() Mat4 {
	m := t.top()
	for i := len(t.stack) - 2; i >= 0; i-- {
		m = m.Mul(t.stack[i])
	}
	return m
}

// Depth returns the number of open scopes. Useful for asserting
// balanced Push/Pop pairs in traversal code.
func (t *Transform) Depth() int {
	return len(t.stack)
}

// Translate accumulates a translation in the current scope.
func (t *Transform) Translate(x, y float32) {
	t.accumulate(NewMat4Translation(x, y))
}

// Scale accumulates a scaling operation in the current scope.
func (t *Transform) Scale(sx, sy float32) {
	t.accumulate(NewMat4Scale(sx, sy))
}

// Rotate accumulates a planar rotation (radians) in the current
// scope.
func (t *Transform) Rotate(angle float32) {
	t.accumulate(NewMat4Rotation(angle))
}

// MoveTo overrides the accumulated translation of the current scope.
func (t *Transform) MoveTo(x, y float32) {
	top := &t.stack[len(t.stack)-1]
	top.Data[12] = x
	top.Data[13] = y
}

// accumulate applies the operation after the already accumulated
// operations of the current scope, i.e. v' = v * top * m under the
// row vector convention.
func (t *Transform) accumulate(m Mat4) {
	t.stack[len(t.stack)-1] = t.top().Mul(m)
}

func (t *Transform) top() Mat4 {
	return t.stack[len(t.stack)-1]
}
