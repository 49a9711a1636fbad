package renderer

import (
	"github.com/spaghettifunk/aurora/engine/math"
	"github.com/spaghettifunk/aurora/engine/scene"
)

// DrawPacket is one renderable unit handed to the rendering backend:
// geometry, surface and the model-to-world transform plus the pass
// and depth/culling directives derived from the item flags.
type DrawPacket struct {
	Material  Material
	Drawable  Drawable
	Transform math.Mat4
	Pass      scene.RenderPass
	Layer     int
	Culling   CullMode
	DepthTest bool
}

// EntityDrawHook intercepts the packet stream of an entity walk.
// InspectPacket can veto a packet; AppendPackets can inject extra
// packets for a node, drawable attachment or not.
type EntityDrawHook interface {
	InspectPacket(node EntityNodeLike, packet *DrawPacket) bool
	AppendPackets(node EntityNodeLike, transform *math.Transform, packets *[]DrawPacket)
}

// SceneDrawHook intercepts entities during a scene walk.
type SceneDrawHook interface {
	FilterEntity(entity EntityLike) bool
}

// LightDescriptor is the renderer side cache entry of a basic light
// attachment, positioned in world space.
type LightDescriptor struct {
	Light     *scene.BasicLight
	Transform math.Mat4
	Layer     int
}
