package renderer

import "github.com/spaghettifunk/aurora/engine/math"

// MaterialClass is the shared, immutable description of a surface
// shading setup. The GPU side lives behind the rendering backend;
// this side only carries the identity and the parameters the cache
// logic needs.
type MaterialClass interface {
	GetId() string
	GetName() string
	// CreateInstance returns a fresh per node material instance.
	CreateInstance() Material
}

// Material is a per paint node material instance.
type Material interface {
	GetClassId() string
	// Update advances material time for animated surfaces.
	Update(dt float32)
	// ResetUniforms drops instance uniform state back to the class
	// defaults.
	ResetUniforms()
	// SetUniforms applies the per item material parameters.
	SetUniforms(params map[string]any)
}

// ColorMaterialClass is a minimal material class shading with a
// single base color.
type ColorMaterialClass struct {
	Id        string
	Name      string
	BaseColor math.Vec4
}

func (c *ColorMaterialClass) GetId() string   { return c.Id }
func (c *ColorMaterialClass) GetName() string { return c.Name }

func (c *ColorMaterialClass) CreateInstance() Material {
	return &colorMaterial{class: c}
}

type colorMaterial struct {
	class    *ColorMaterialClass
	time     float32
	uniforms map[string]any
}

func (m *colorMaterial) GetClassId() string { return m.class.Id }

func (m *colorMaterial) Update(dt float32) { m.time += dt }

func (m *colorMaterial) ResetUniforms() { m.uniforms = nil }

func (m *colorMaterial) SetUniforms(params map[string]any) {
	if len(params) == 0 {
		return
	}
	if m.uniforms == nil {
		m.uniforms = make(map[string]any, len(params))
	}
	for name, value := range params {
		m.uniforms[name] = value
	}
}

// textMaterial shades a rasterized text buffer. The raster output is
// produced by the rendering backend; the instance carries the
// parameters keyed by the raster hash so stale rasters are detected.
type textMaterial struct {
	hash  uint64
	color math.Vec4
	time  float32
}

func (m *textMaterial) GetClassId() string { return "" }

func (m *textMaterial) Update(dt float32) { m.time += dt }

func (m *textMaterial) ResetUniforms() {}

func (m *textMaterial) SetUniforms(params map[string]any) {}
