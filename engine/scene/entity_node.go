package scene

import (
	"hash/fnv"

	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/math"
)

// RenderPass selects the render pass a drawable item belongs to.
type RenderPass int

const (
	RenderPassDrawColor RenderPass = iota
	RenderPassMaskExpose
	RenderPassMaskCover
)

// RenderStyle selects how a drawable's geometry is rasterized.
type RenderStyle int

const (
	RenderStyleSolid RenderStyle = iota
	RenderStyleWireframe
	RenderStyleOutline
)

// DrawableFlags control per item rendering behavior.
type DrawableFlags uint32

const (
	DrawableVisibleInGame DrawableFlags = 1 << iota
	DrawableUpdateMaterial
	DrawableUpdateDrawable
	DrawableRestartDrawable
	DrawableFlipHorizontally
	DrawableFlipVertically
	DrawableDoubleSided
	DrawableDepthTest
)

func (f DrawableFlags) Test(flag DrawableFlags) bool { return f&flag != 0 }

func (f *DrawableFlags) Set(flag DrawableFlags, on bool) {
	if on {
		*f |= flag
	} else {
		*f &^= flag
	}
}

// DrawableItem attaches renderable shape and material references to
// an entity node. The ids refer to material/drawable classes resolved
// through the class library at draw time.
type DrawableItem struct {
	MaterialId     string
	DrawableId     string
	Layer          int
	RenderPass     RenderPass
	Style          RenderStyle
	LineWidth      float32
	TimeScale      float32
	Flags          DrawableFlags
	MaterialParams map[string]any
}

func NewDrawableItem() *DrawableItem {
	return &DrawableItem{
		LineWidth: 1.0,
		TimeScale: 1.0,
		Flags:     DrawableVisibleInGame | DrawableUpdateMaterial | DrawableUpdateDrawable | DrawableRestartDrawable,
	}
}

func (d *DrawableItem) IsVisible() bool { return d.Flags.Test(DrawableVisibleInGame) }

func (d *DrawableItem) SetMaterialParam(name string, value any) {
	if d.MaterialParams == nil {
		d.MaterialParams = make(map[string]any)
	}
	d.MaterialParams[name] = value
}

// HorizontalTextAlign aligns text inside the node horizontally.
type HorizontalTextAlign int

const (
	HorizontalTextAlignLeft HorizontalTextAlign = iota
	HorizontalTextAlignCenter
	HorizontalTextAlignRight
)

// VerticalTextAlign aligns text inside the node vertically.
type VerticalTextAlign int

const (
	VerticalTextAlignTop VerticalTextAlign = iota
	VerticalTextAlignCenter
	VerticalTextAlignBottom
)

// TextFlags control per text item behavior.
type TextFlags uint32

const (
	TextVisibleInGame TextFlags = 1 << iota
	TextBlink
	TextUnderline
	TextStaticContent
)

func (f TextFlags) Test(flag TextFlags) bool { return f&flag != 0 }

func (f *TextFlags) Set(flag TextFlags, on bool) {
	if on {
		*f |= flag
	} else {
		*f &^= flag
	}
}

// TextItem attaches a text string to an entity node. The rendering
// backend rasterizes the text; this side only carries the parameters
// and a hash over them so the raster output can be cached.
type TextItem struct {
	Text         string
	FontName     string
	FontSize     int
	LineHeight   float32
	HAlign       HorizontalTextAlign
	VAlign       VerticalTextAlign
	Color        math.Vec4
	Layer        int
	RasterWidth  int
	RasterHeight int
	Flags        TextFlags
}

func NewTextItem() *TextItem {
	return &TextItem{
		LineHeight: 1.0,
		HAlign:     HorizontalTextAlignCenter,
		VAlign:     VerticalTextAlignCenter,
		Color:      math.Vec4{X: 1, Y: 1, Z: 1, W: 1},
		Flags:      TextVisibleInGame,
	}
}

func (t *TextItem) IsVisible() bool { return t.Flags.Test(TextVisibleInGame) }

// GetHash returns a hash over the raster parameters. A change in the
// hash means any cached raster output of the text is stale.
func (t *TextItem) GetHash() uint64 {
	h := fnv.New64a()
	write := func(s string) { h.Write([]byte(s)) }
	writeInt := func(v int) {
		h.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
	}
	write(t.Text)
	write(t.FontName)
	writeInt(t.FontSize)
	writeInt(int(t.LineHeight * 1000))
	writeInt(int(t.HAlign))
	writeInt(int(t.VAlign))
	writeInt(int(t.Color.X * 255))
	writeInt(int(t.Color.Y * 255))
	writeInt(int(t.Color.Z * 255))
	writeInt(int(t.Color.W * 255))
	writeInt(t.RasterWidth)
	writeInt(t.RasterHeight)
	writeInt(int(t.Flags & (TextUnderline | TextStaticContent)))
	return h.Sum64()
}

// BasicLightType enumerates the supported light models.
type BasicLightType int

const (
	BasicLightAmbient BasicLightType = iota
	BasicLightDirectional
	BasicLightSpot
	BasicLightPoint
)

// BasicLight attaches a light source to an entity node.
type BasicLight struct {
	Type                 BasicLightType
	AmbientColor         math.Vec4
	DiffuseColor         math.Vec4
	SpecularColor        math.Vec4
	Direction            math.Vec3
	Translation          math.Vec3
	ConstantAttenuation  float32
	LinearAttenuation    float32
	QuadraticAttenuation float32
	SpotHalfAngle        float32
	Layer                int
	Enabled              bool
}

func NewBasicLight() *BasicLight {
	return &BasicLight{
		Type:                BasicLightAmbient,
		AmbientColor:        math.Vec4{X: 1, Y: 1, Z: 1, W: 1},
		DiffuseColor:        math.Vec4{X: 1, Y: 1, Z: 1, W: 1},
		SpecularColor:       math.Vec4{X: 1, Y: 1, Z: 1, W: 1},
		Direction:           math.NewVec3(0, 0, -1),
		ConstantAttenuation: 1.0,
		Enabled:             true,
	}
}

// SpatialShape selects the shape the spatial index uses for a node.
type SpatialShape int

const (
	SpatialShapeAABB SpatialShape = iota
)

// SpatialNode opts an entity node into the scene's spatial index.
type SpatialNode struct {
	Shape         SpatialShape
	Enabled       bool
	ReportOverlap bool
}

func NewSpatialNode() *SpatialNode {
	return &SpatialNode{Shape: SpatialShapeAABB, Enabled: true}
}

// EntityNodeClass is the design time description of one node in an
// entity: its transform relative to the parent node and the optional
// attachment payloads.
type EntityNodeClass struct {
	Id          string
	Name        string
	Translation math.Vec2
	Scale       math.Vec2
	Rotation    float32
	Size        math.Vec2
	Drawable    *DrawableItem
	TextItem    *TextItem
	BasicLight  *BasicLight
	SpatialNode *SpatialNode
}

func NewEntityNodeClass(name string) *EntityNodeClass {
	return &EntityNodeClass{
		Id:    core.NewClassId(),
		Name:  name,
		Scale: math.NewVec2One(),
		Size:  math.NewVec2One(),
	}
}

func (c *EntityNodeClass) GetId() string                { return c.Id }
func (c *EntityNodeClass) GetName() string              { return c.Name }
func (c *EntityNodeClass) GetSize() math.Vec2           { return c.Size }
func (c *EntityNodeClass) HasDrawable() bool            { return c.Drawable != nil }
func (c *EntityNodeClass) HasTextItem() bool            { return c.TextItem != nil }
func (c *EntityNodeClass) HasBasicLight() bool          { return c.BasicLight != nil }
func (c *EntityNodeClass) HasSpatialNode() bool         { return c.SpatialNode != nil }
func (c *EntityNodeClass) GetDrawable() *DrawableItem   { return c.Drawable }
func (c *EntityNodeClass) GetTextItem() *TextItem       { return c.TextItem }
func (c *EntityNodeClass) GetBasicLight() *BasicLight   { return c.BasicLight }
func (c *EntityNodeClass) GetSpatialNode() *SpatialNode { return c.SpatialNode }

func (c *EntityNodeClass) SetName(name string)        { c.Name = name }
func (c *EntityNodeClass) SetTranslation(t math.Vec2) { c.Translation = t }
func (c *EntityNodeClass) SetScale(s math.Vec2)       { c.Scale = s }
func (c *EntityNodeClass) SetRotation(r float32)      { c.Rotation = r }
func (c *EntityNodeClass) SetSize(s math.Vec2)        { c.Size = s }

func (c *EntityNodeClass) GetLayer() int {
	if c.Drawable != nil {
		return c.Drawable.Layer
	}
	return 0
}

// GetNodeTransform returns the node-to-parent transform: scale and
// rotation around the node center, then translation to the parent
// relative position.
func (c *EntityNodeClass) GetNodeTransform() math.Mat4 {
	return nodeTransform(c.Scale, c.Rotation, c.Translation)
}

// GetModelTransform returns the model-to-node transform: the unit
// box scaled to the node size and offset so the box center aligns
// with the node position.
func (c *EntityNodeClass) GetModelTransform() math.Mat4 {
	return modelTransform(c.Size)
}

// Clone returns a copy of the node class under a fresh class id.
func (c *EntityNodeClass) Clone() *EntityNodeClass {
	dup := *c
	dup.Id = core.NewClassId()
	if c.Drawable != nil {
		d := *c.Drawable
		dup.Drawable = &d
	}
	if c.TextItem != nil {
		t := *c.TextItem
		dup.TextItem = &t
	}
	if c.BasicLight != nil {
		l := *c.BasicLight
		dup.BasicLight = &l
	}
	if c.SpatialNode != nil {
		s := *c.SpatialNode
		dup.SpatialNode = &s
	}
	return &dup
}

// EntityNode is the runtime instance of an EntityNodeClass. The
// transform fields start from the class values and can be animated
// independently per instance; the attachment payloads stay shared
// with the class.
type EntityNode struct {
	id          string
	class       *EntityNodeClass
	entity      *Entity
	Translation math.Vec2
	Scale       math.Vec2
	Rotation    float32
	Size        math.Vec2
}

func NewEntityNode(class *EntityNodeClass) *EntityNode {
	return &EntityNode{
		id:          core.NewId(),
		class:       class,
		Translation: class.Translation,
		Scale:       class.Scale,
		Rotation:    class.Rotation,
		Size:        class.Size,
	}
}

func (n *EntityNode) GetId() string              { return n.id }
func (n *EntityNode) GetClassId() string         { return n.class.Id }
func (n *EntityNode) GetClassName() string       { return n.class.Name }
func (n *EntityNode) GetName() string            { return n.class.Name }
func (n *EntityNode) GetClass() *EntityNodeClass { return n.class }
func (n *EntityNode) GetSize() math.Vec2         { return n.Size }
func (n *EntityNode) GetEntity() *Entity         { return n.entity }
func (n *EntityNode) SetEntity(entity *Entity)   { n.entity = entity }

func (n *EntityNode) HasDrawable() bool    { return n.class.Drawable != nil }
func (n *EntityNode) HasTextItem() bool    { return n.class.TextItem != nil }
func (n *EntityNode) HasBasicLight() bool  { return n.class.BasicLight != nil }
func (n *EntityNode) HasSpatialNode() bool { return n.class.SpatialNode != nil }

func (n *EntityNode) GetDrawable() *DrawableItem   { return n.class.Drawable }
func (n *EntityNode) GetTextItem() *TextItem       { return n.class.TextItem }
func (n *EntityNode) GetBasicLight() *BasicLight   { return n.class.BasicLight }
func (n *EntityNode) GetSpatialNode() *SpatialNode { return n.class.SpatialNode }

func (n *EntityNode) SetTranslation(t math.Vec2) { n.Translation = t }
func (n *EntityNode) SetScale(s math.Vec2)       { n.Scale = s }
func (n *EntityNode) SetRotation(r float32)      { n.Rotation = r }
func (n *EntityNode) SetSize(s math.Vec2)        { n.Size = s }

func (n *EntityNode) GetNodeTransform() math.Mat4 {
	return nodeTransform(n.Scale, n.Rotation, n.Translation)
}

func (n *EntityNode) GetModelTransform() math.Mat4 {
	return modelTransform(n.Size)
}

func nodeTransform(scale math.Vec2, rotation float32, translation math.Vec2) math.Mat4 {
	t := math.NewTransform()
	t.Scale(scale.X, scale.Y)
	t.Rotate(rotation)
	t.Translate(translation.X, translation.Y)
	return t.GetAsMatrix()
}

func modelTransform(size math.Vec2) math.Mat4 {
	t := math.NewTransform()
	t.Scale(size.X, size.Y)
	// offset so the center of the shape aligns with the node position
	t.Translate(-size.X*0.5, -size.Y*0.5)
	return t.GetAsMatrix()
}
