package renderer

import "github.com/spaghettifunk/aurora/engine/scene"

// CullMode selects which triangle winding the rasterizer discards.
type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// DrawableClass is the shared description of a piece of renderable
// geometry.
type DrawableClass interface {
	GetId() string
	GetName() string
	CreateInstance() Drawable
}

// Drawable is a per paint node geometry instance.
type Drawable interface {
	GetClassId() string
	// Update advances drawable time for procedural geometry such as
	// particle systems.
	Update(dt float32)
	// Restart rewinds a finite drawable back to its initial state.
	Restart()
	// IsAlive is false once a finite drawable has run to completion.
	IsAlive() bool
	SetStyle(style scene.RenderStyle)
	SetLineWidth(width float32)
	SetCulling(mode CullMode)
}

// ShapeDrawableClass is a minimal drawable class for simple
// geometric shapes.
type ShapeDrawableClass struct {
	Id   string
	Name string
}

func (c *ShapeDrawableClass) GetId() string   { return c.Id }
func (c *ShapeDrawableClass) GetName() string { return c.Name }

func (c *ShapeDrawableClass) CreateInstance() Drawable {
	return &shapeDrawable{class: c, style: scene.RenderStyleSolid, lineWidth: 1.0}
}

type shapeDrawable struct {
	class     *ShapeDrawableClass
	time      float32
	style     scene.RenderStyle
	lineWidth float32
	culling   CullMode
}

func (d *shapeDrawable) GetClassId() string { return d.class.Id }

func (d *shapeDrawable) Update(dt float32) { d.time += dt }

func (d *shapeDrawable) Restart() { d.time = 0 }

func (d *shapeDrawable) IsAlive() bool { return true }

func (d *shapeDrawable) SetStyle(style scene.RenderStyle) { d.style = style }

func (d *shapeDrawable) SetLineWidth(width float32) { d.lineWidth = width }

func (d *shapeDrawable) SetCulling(mode CullMode) { d.culling = mode }

// unit rectangle shared by every text packet; the text material
// carries the raster output.
var textRectangle = &shapeDrawable{
	class: &ShapeDrawableClass{Id: "_text_rect", Name: "TextRectangle"},
	style: scene.RenderStyleSolid,
}
