package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief a 4x4 matrix, used to represent object transformations.
 * The convention is row vectors, i.e. v' = v * M and the translation
 * lives in elements 12..14. Composition of a local transform L under
 * a parent transform P is therefore L.Mul(P). */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

// FPoint is a position in 2D space.
type FPoint struct {
	X, Y float32
}

// FSize is a 2D extent. Negative dimensions denote an invalid size.
type FSize struct {
	Width, Height float32
}

/**
 * @brief An axis aligned rectangle. X,Y is the position of the
 * top left corner (the minimum corner), width and height grow
 * towards the bottom right.
 */
type FRect struct {
	X, Y          float32
	Width, Height float32
}

/**
 * @brief An oriented box, defined by mapping the unit box (0,0)x(1,1)
 * through a transformation matrix. Used to express an entity node's
 * model box in some other coordinate space.
 */
type FBox struct {
	// the box corners in order: top left, top right,
	// bottom left, bottom right.
	Corners [4]Vec2
}
