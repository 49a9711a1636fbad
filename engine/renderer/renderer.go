package renderer

import (
	"fmt"
	"sort"

	"github.com/spaghettifunk/aurora/engine/containers"
	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/math"
	"github.com/spaghettifunk/aurora/engine/scene"
)

// EntityNodeLike is the node contract the renderer consumes. Both
// the class and the instance representations satisfy it, so the same
// walk serves the editor (drawing classes directly) and the game
// (drawing spawned entities).
type EntityNodeLike interface {
	GetId() string
	GetName() string
	GetSize() math.Vec2
	GetNodeTransform() math.Mat4
	GetModelTransform() math.Mat4
	GetDrawable() *scene.DrawableItem
	GetTextItem() *scene.TextItem
	GetBasicLight() *scene.BasicLight
}

// EntityLike is the entity contract the renderer consumes.
type EntityLike interface {
	GetId() string
	GetName() string
	IsVisible() bool
	WalkRenderTree(enter, leave func(node EntityNodeLike))
}

type nodeConstraint[T any] interface {
	*T
	EntityNodeLike
}

type walkVisitor[T any, P nodeConstraint[T]] struct {
	enter func(node EntityNodeLike)
	leave func(node EntityNodeLike)
}

func (v *walkVisitor[T, P]) EnterNode(node *T) {
	if node != nil {
		v.enter(P(node))
	}
}

func (v *walkVisitor[T, P]) LeaveNode(node *T) {
	if node != nil {
		v.leave(P(node))
	}
}

func (v *walkVisitor[T, P]) IsDone() bool { return false }

func walkRenderTree[T any, P nodeConstraint[T]](tree *containers.RenderTree[T], enter, leave func(node EntityNodeLike)) {
	tree.PreOrderTraverse(&walkVisitor[T, P]{enter: enter, leave: leave}, nil)
}

type entityAdapter struct {
	entity *scene.Entity
}

func (a entityAdapter) GetId() string   { return a.entity.GetId() }
func (a entityAdapter) GetName() string { return a.entity.GetName() }
func (a entityAdapter) IsVisible() bool { return a.entity.IsVisible() }

func (a entityAdapter) WalkRenderTree(enter, leave func(node EntityNodeLike)) {
	walkRenderTree[scene.EntityNode, *scene.EntityNode](a.entity.GetRenderTree(), enter, leave)
}

type entityClassAdapter struct {
	class *scene.EntityClass
	// cache identity; the placement id when drawn as part of a
	// scene class, the class id when drawn standalone.
	id      string
	visible bool
}

func (a entityClassAdapter) GetId() string   { return a.id }
func (a entityClassAdapter) GetName() string { return a.class.Name }
func (a entityClassAdapter) IsVisible() bool { return a.visible }

func (a entityClassAdapter) WalkRenderTree(enter, leave func(node EntityNodeLike)) {
	walkRenderTree[scene.EntityNodeClass, *scene.EntityNodeClass](a.class.GetRenderTree(), enter, leave)
}

// DrawableEntity adapts a spawned entity for the renderer.
func DrawableEntity(entity *scene.Entity) EntityLike {
	return entityAdapter{entity: entity}
}

// DrawableEntityClass adapts an entity class for the renderer; used
// by tooling that draws classes without instantiating them.
func DrawableEntityClass(class *scene.EntityClass) EntityLike {
	return entityClassAdapter{
		class:   class,
		id:      class.Id,
		visible: class.Flags.Test(scene.EntityVisibleInGame),
	}
}

// paintNode is one cache entry of renderer side state for an entity
// node: the resolved resource instances plus the world transform
// derived fields, refreshed every update regardless of whether the
// resources needed rebuilding.
type paintNode struct {
	visited       bool
	worldPos      math.Vec2
	worldScale    math.Vec2
	worldRotation float32
	nodeToWorld   math.Mat4
	materialId    string
	drawableId    string
	material      Material
	drawable      Drawable
	textHash      uint64
	textMaterial  Material
	entity        EntityLike
	node          EntityNodeLike
}

type lightNode struct {
	visited bool
	desc    LightDescriptor
}

// Renderer owns the paint node cache that carries renderer side
// state across frames. Entries are created on first sight of a node,
// refreshed on every visit and, in editing mode, swept at EndFrame
// when a frame went by without a visit.
type Renderer struct {
	classLib    ClassLibrary
	editingMode bool
	name        string
	time        float64
	paintNodes  map[string]*paintNode
	lightNodes  map[string]*lightNode
}

func NewRenderer(classLib ClassLibrary) *Renderer {
	return &Renderer{
		classLib:   classLib,
		paintNodes: make(map[string]*paintNode),
		lightNodes: make(map[string]*lightNode),
	}
}

func (r *Renderer) SetClassLibrary(classLib ClassLibrary) { r.classLib = classLib }

// SetEditingMode opts into the mark-and-sweep eviction. In game mode
// the tree only mutates through spawn and kill, so stale entries are
// cleared explicitly instead.
func (r *Renderer) SetEditingMode(on bool) { r.editingMode = on }

func (r *Renderer) SetName(name string) { r.name = name }

func (r *Renderer) GetNumPaintNodes() int { return len(r.paintNodes) }

func (r *Renderer) GetNumLightNodes() int { return len(r.lightNodes) }

// BeginFrame starts a new frame. In editing mode all cache entries
// drop their visited mark so EndFrame can sweep the ones no walk
// touched this frame.
func (r *Renderer) BeginFrame() {
	if !r.editingMode {
		return
	}
	for _, node := range r.paintNodes {
		node.visited = false
	}
	for _, node := range r.lightNodes {
		node.visited = false
	}
}

// EndFrame finishes the frame. In editing mode every entry whose
// visited mark is still clear is erased.
func (r *Renderer) EndFrame() {
	if !r.editingMode {
		return
	}
	for key, node := range r.paintNodes {
		if !node.visited {
			delete(r.paintNodes, key)
		}
	}
	for key, node := range r.lightNodes {
		if !node.visited {
			delete(r.lightNodes, key)
		}
	}
}

// ClearPaintState drops every cache entry.
func (r *Renderer) ClearPaintState() {
	r.paintNodes = make(map[string]*paintNode)
	r.lightNodes = make(map[string]*lightNode)
}

// CreateRendererState populates the cache for the scene's current
// entities. Same walk as UpdateRendererState; entries are created on
// demand either way.
func (r *Renderer) CreateRendererState(s *scene.Scene) { r.UpdateRendererState(s) }

// UpdateRendererState refreshes the cache from the scene: every
// attachment carrying node gets its entry marked visited, its world
// transform fields re-derived, and its resources rebuilt if a
// resource id changed.
func (r *Renderer) UpdateRendererState(s *scene.Scene) {
	for _, scn := range s.CollectNodes() {
		r.UpdateEntityState(DrawableEntity(scn.Entity), scn.EntityToScene)
	}
}

// UpdateSceneClassState refreshes the cache from a scene class,
// keyed per placement.
func (r *Renderer) UpdateSceneClassState(class *scene.SceneClass) {
	for _, scn := range class.CollectNodes() {
		p := scn.Placement
		if p.IsBroken() {
			continue
		}
		entity := entityClassAdapter{
			class:   p.EntityClass,
			id:      p.Id,
			visible: p.TestFlag(scene.EntityVisibleInGame),
		}
		r.UpdateEntityState(entity, scn.PlacementToScene)
	}
}

// UpdateEntityState refreshes the cache entries of one entity given
// its entity-to-world transform.
func (r *Renderer) UpdateEntityState(entity EntityLike, entityToWorld math.Mat4) {
	transform := math.NewTransformFromMatrix(entityToWorld)
	entity.WalkRenderTree(
		func(node EntityNodeLike) {
			transform.PushMatrix(node.GetNodeTransform())
			r.updatePaintNode(entity, node, transform.GetAsMatrix())
		},
		func(node EntityNodeLike) {
			transform.Pop()
		})
}

func paintNodeKey(category string, entity EntityLike, node EntityNodeLike) string {
	return fmt.Sprintf("%s/%s/%s", category, entity.GetId(), node.GetId())
}

// updatePaintNode refreshes (creating on demand) the cache entries
// of one node. nodeToWorld is the composed tree transform of the
// node, exclusive of the model transform.
func (r *Renderer) updatePaintNode(entity EntityLike, node EntityNodeLike, nodeToWorld math.Mat4) {
	if item := node.GetDrawable(); item != nil {
		paint := r.fetchPaintNode(paintNodeKey("item", entity, node), entity, node)
		r.refreshWorldState(paint, nodeToWorld)
		r.createDrawableResources(paint, item)
	}
	if text := node.GetTextItem(); text != nil {
		paint := r.fetchPaintNode(paintNodeKey("text", entity, node), entity, node)
		r.refreshWorldState(paint, nodeToWorld)
		r.createTextResources(paint, text)
	}
	if light := node.GetBasicLight(); light != nil {
		key := paintNodeKey("light", entity, node)
		entry, ok := r.lightNodes[key]
		if !ok {
			entry = &lightNode{}
			r.lightNodes[key] = entry
		}
		entry.visited = true
		entry.desc = LightDescriptor{
			Light:     light,
			Transform: nodeToWorld,
			Layer:     light.Layer,
		}
	}
}

func (r *Renderer) fetchPaintNode(key string, entity EntityLike, node EntityNodeLike) *paintNode {
	paint, ok := r.paintNodes[key]
	if !ok {
		paint = &paintNode{}
		r.paintNodes[key] = paint
	}
	paint.visited = true
	paint.entity = entity
	paint.node = node
	return paint
}

func (r *Renderer) refreshWorldState(paint *paintNode, nodeToWorld math.Mat4) {
	paint.nodeToWorld = nodeToWorld
	paint.worldPos = nodeToWorld.GetTranslation()
	paint.worldScale = nodeToWorld.GetScale()
	paint.worldRotation = nodeToWorld.GetRotation()
}

// createDrawableResources resolves material and drawable instances
// through the class library. Only an id change rebuilds a resource;
// a failed lookup logs and leaves the resource nil so the node is
// skipped at packet generation.
func (r *Renderer) createDrawableResources(paint *paintNode, item *scene.DrawableItem) {
	if paint.materialId != item.MaterialId {
		paint.material = nil
		paint.materialId = item.MaterialId
		if r.classLib != nil {
			if class := r.classLib.FindMaterialClassById(item.MaterialId); class != nil {
				paint.material = class.CreateInstance()
			}
		}
		if paint.material == nil {
			core.LogWarn("no such material class '%s' for '%s/%s'",
				item.MaterialId, paint.entity.GetName(), paint.node.GetName())
		}
	}
	if paint.drawableId != item.DrawableId {
		paint.drawable = nil
		paint.drawableId = item.DrawableId
		if r.classLib != nil {
			if class := r.classLib.FindDrawableClassById(item.DrawableId); class != nil {
				paint.drawable = class.CreateInstance()
			}
		}
		if paint.drawable == nil {
			core.LogWarn("no such drawable class '%s' for '%s/%s'",
				item.DrawableId, paint.entity.GetName(), paint.node.GetName())
		}
	}
	if paint.material != nil {
		paint.material.ResetUniforms()
		paint.material.SetUniforms(item.MaterialParams)
	}
	if paint.drawable != nil {
		paint.drawable.SetStyle(item.Style)
		paint.drawable.SetLineWidth(item.LineWidth)
		paint.drawable.SetCulling(itemCulling(item))
	}
}

// createTextResources rebuilds the text material when the raster
// parameter hash changes, covering both the text content and the
// raster buffer size from the node.
func (r *Renderer) createTextResources(paint *paintNode, text *scene.TextItem) {
	size := paint.node.GetSize()
	hash := text.GetHash()
	hash = hash*31 + uint64(int64(size.X*64))
	hash = hash*31 + uint64(int64(size.Y*64))
	if paint.textHash == hash {
		return
	}
	paint.textHash = hash
	paint.textMaterial = &textMaterial{hash: hash, color: text.Color}
}

func itemCulling(item *scene.DrawableItem) CullMode {
	if item.Flags.Test(scene.DrawableDoubleSided) {
		return CullNone
	}
	flipH := item.Flags.Test(scene.DrawableFlipHorizontally)
	flipV := item.Flags.Test(scene.DrawableFlipVertically)
	// a single flip mirrors the winding order.
	if flipH != flipV {
		return CullFront
	}
	return CullBack
}

// Update advances renderer time and the animated resource instances
// of every paint node, honoring the per item update and restart
// flags.
func (r *Renderer) Update(dt float32) {
	r.time += float64(dt)
	for _, paint := range r.paintNodes {
		item := paint.node.GetDrawable()
		if item == nil {
			if paint.textMaterial != nil {
				paint.textMaterial.Update(dt)
			}
			continue
		}
		scale := item.TimeScale
		if paint.material != nil && item.Flags.Test(scene.DrawableUpdateMaterial) {
			paint.material.Update(dt * scale)
		}
		if paint.drawable != nil && item.Flags.Test(scene.DrawableUpdateDrawable) {
			paint.drawable.Update(dt * scale)
			if !paint.drawable.IsAlive() && item.Flags.Test(scene.DrawableRestartDrawable) {
				paint.drawable.Restart()
			}
		}
	}
}

// CollectLights returns the currently cached enabled lights.
func (r *Renderer) CollectLights() []LightDescriptor {
	var result []LightDescriptor
	for _, entry := range r.lightNodes {
		if entry.desc.Light.Enabled {
			result = append(result, entry.desc)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Layer < result[j].Layer
	})
	return result
}

// DrawScene generates the frame's draw packets from the scene.
// Killed entities still draw until their structural removal; the
// scene hook can filter entities out.
func (r *Renderer) DrawScene(s *scene.Scene, sceneHook SceneDrawHook, hook EntityDrawHook) []DrawPacket {
	nodes := s.CollectNodes()
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Entity.GetLayer() < nodes[j].Entity.GetLayer()
	})
	var packets []DrawPacket
	for _, scn := range nodes {
		entity := DrawableEntity(scn.Entity)
		if sceneHook != nil && !sceneHook.FilterEntity(entity) {
			continue
		}
		transform := math.NewTransformFromMatrix(scn.EntityToScene)
		packets = append(packets, r.DrawEntity(entity, transform, hook)...)
	}
	return sortPackets(packets)
}

// DrawSceneClass generates draw packets from a scene class without
// instantiating it.
func (r *Renderer) DrawSceneClass(class *scene.SceneClass, sceneHook SceneDrawHook, hook EntityDrawHook) []DrawPacket {
	var packets []DrawPacket
	for _, scn := range class.CollectNodes() {
		p := scn.Placement
		if p.IsBroken() {
			continue
		}
		entity := entityClassAdapter{
			class:   p.EntityClass,
			id:      p.Id,
			visible: p.TestFlag(scene.EntityVisibleInGame),
		}
		if sceneHook != nil && !sceneHook.FilterEntity(entity) {
			continue
		}
		transform := math.NewTransformFromMatrix(scn.PlacementToScene)
		packets = append(packets, r.DrawEntity(entity, transform, hook)...)
	}
	return sortPackets(packets)
}

// DrawEntity walks the entity's render tree and generates one packet
// per visible drawable or text attachment. Cache entries are created
// or refreshed on the way so a draw without a preceding update still
// works.
func (r *Renderer) DrawEntity(entity EntityLike, transform *math.Transform, hook EntityDrawHook) []DrawPacket {
	var packets []DrawPacket
	entity.WalkRenderTree(
		func(node EntityNodeLike) {
			transform.PushMatrix(node.GetNodeTransform())
			r.updatePaintNode(entity, node, transform.GetAsMatrix())
			r.generatePackets(entity, node, transform, hook, &packets)
			if hook != nil {
				snapshot := math.NewTransformFromMatrix(transform.GetAsMatrix())
				hook.AppendPackets(node, snapshot, &packets)
			}
		},
		func(node EntityNodeLike) {
			transform.Pop()
		})
	return packets
}

func (r *Renderer) generatePackets(entity EntityLike, node EntityNodeLike, transform *math.Transform, hook EntityDrawHook, packets *[]DrawPacket) {
	if item := node.GetDrawable(); item != nil {
		// both the item and the owning entity must be visible or
		// the packet is silently dropped for this frame.
		if item.IsVisible() && entity.IsVisible() {
			paint := r.paintNodes[paintNodeKey("item", entity, node)]
			transform.PushMatrix(node.GetModelTransform())
			pushFlipTransforms(transform, item)
			packet := DrawPacket{
				Material:  paint.material,
				Drawable:  paint.drawable,
				Transform: transform.GetAsMatrix(),
				Pass:      item.RenderPass,
				Layer:     item.Layer,
				Culling:   itemCulling(item),
				DepthTest: item.Flags.Test(scene.DrawableDepthTest),
			}
			popFlipTransforms(transform, item)
			transform.Pop()
			emitPacket(node, packet, hook, packets)
		}
	}
	if text := node.GetTextItem(); text != nil {
		if text.IsVisible() && entity.IsVisible() && r.textVisibleNow(text) {
			paint := r.paintNodes[paintNodeKey("text", entity, node)]
			transform.PushMatrix(node.GetModelTransform())
			packet := DrawPacket{
				Material:  paint.textMaterial,
				Drawable:  textRectangle,
				Transform: transform.GetAsMatrix(),
				Pass:      scene.RenderPassDrawColor,
				Layer:     text.Layer,
				Culling:   CullBack,
			}
			transform.Pop()
			emitPacket(node, packet, hook, packets)
		}
	}
}

func emitPacket(node EntityNodeLike, packet DrawPacket, hook EntityDrawHook, packets *[]DrawPacket) {
	if packet.Drawable == nil {
		return
	}
	if packet.Pass == scene.RenderPassDrawColor && packet.Material == nil {
		return
	}
	if hook != nil && !hook.InspectPacket(node, &packet) {
		return
	}
	*packets = append(*packets, packet)
}

func pushFlipTransforms(transform *math.Transform, item *scene.DrawableItem) {
	if item.Flags.Test(scene.DrawableFlipHorizontally) {
		transform.Push()
		transform.Scale(-1, 1)
		transform.Translate(1, 0)
	}
	if item.Flags.Test(scene.DrawableFlipVertically) {
		transform.Push()
		transform.Scale(1, -1)
		transform.Translate(0, 1)
	}
}

func popFlipTransforms(transform *math.Transform, item *scene.DrawableItem) {
	if item.Flags.Test(scene.DrawableFlipVertically) {
		transform.Pop()
	}
	if item.Flags.Test(scene.DrawableFlipHorizontally) {
		transform.Pop()
	}
}

func (r *Renderer) textVisibleNow(text *scene.TextItem) bool {
	if !text.Flags.Test(scene.TextBlink) {
		return true
	}
	const fps = 1.5
	const fullPeriod = 2.0 / fps
	const halfPeriod = fullPeriod * 0.5
	phase := r.time - float64(int(r.time/fullPeriod))*fullPeriod
	return phase < halfPeriod
}

// sortPackets orders packets back to front by layer, with mask
// passes inside a layer drawn before color.
func sortPackets(packets []DrawPacket) []DrawPacket {
	sort.SliceStable(packets, func(i, j int) bool {
		if packets[i].Layer != packets[j].Layer {
			return packets[i].Layer < packets[j].Layer
		}
		return passOrder(packets[i].Pass) < passOrder(packets[j].Pass)
	})
	return packets
}

func passOrder(pass scene.RenderPass) int {
	switch pass {
	case scene.RenderPassMaskExpose:
		return 0
	case scene.RenderPassMaskCover:
		return 1
	}
	return 2
}
