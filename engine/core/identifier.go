package core

import (
	"strings"

	"github.com/google/uuid"
)

// NewId returns a new globally unique identifier string. Used for
// entity and node instance ids. The ids are opaque, stable and
// guaranteed unique within a process and across serialization.
func NewId() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")
}

// NewClassId returns a new identifier for a class object. Class ids
// share the same uniqueness guarantees as instance ids but are kept
// separate so call sites document which kind of object they identify.
func NewClassId() string {
	return NewId()
}
