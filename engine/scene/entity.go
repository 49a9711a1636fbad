package scene

import (
	"github.com/spaghettifunk/aurora/engine/containers"
	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/math"
)

// EntityFlags are the class level behavior flags an entity carries.
// Instances copy them at construction and may override per instance.
type EntityFlags uint32

const (
	EntityVisibleInGame EntityFlags = 1 << iota
	EntityLimitLifetime
	EntityKillAtLifetime
	EntityKillAtBoundary
)

func (f EntityFlags) Test(flag EntityFlags) bool { return f&flag != 0 }

func (f *EntityFlags) Set(flag EntityFlags, on bool) {
	if on {
		*f |= flag
	} else {
		*f &^= flag
	}
}

// ControlFlags are transient per loop iteration lifecycle signals,
// distinct from the class level EntityFlags.
type ControlFlags uint32

const (
	// ControlKilled marks an entity that has been killed and will
	// be structurally removed at the end of the loop iteration.
	ControlKilled ControlFlags = 1 << iota
	// ControlSpawned is on from the BeginLoop that links the
	// entity until the following EndLoop.
	ControlSpawned
	// ControlWantsToDie marks an entity that requested its own
	// death during update.
	ControlWantsToDie
)

func (f ControlFlags) Test(flag ControlFlags) bool { return f&flag != 0 }

func (f *ControlFlags) Set(flag ControlFlags, on bool) {
	if on {
		*f |= flag
	} else {
		*f &^= flag
	}
}

// EntityClass is the design time description of an entity: its node
// classes, their hierarchy and the script variables every instance
// starts with.
type EntityClass struct {
	Id         string
	Name       string
	nodes      []*EntityNodeClass
	renderTree *containers.RenderTree[EntityNodeClass]
	scriptVars []*ScriptVar
	Lifetime   float32
	Flags      EntityFlags
}

func NewEntityClass(name string) *EntityClass {
	return &EntityClass{
		Id:         core.NewClassId(),
		Name:       name,
		renderTree: containers.NewRenderTree[EntityNodeClass](),
		Flags:      EntityVisibleInGame,
	}
}

func (c *EntityClass) GetId() string   { return c.Id }
func (c *EntityClass) GetName() string { return c.Name }

func (c *EntityClass) GetNumNodes() int { return len(c.nodes) }

func (c *EntityClass) GetNode(index int) *EntityNodeClass { return c.nodes[index] }

func (c *EntityClass) GetRenderTree() *containers.RenderTree[EntityNodeClass] {
	return c.renderTree
}

// AddNode adds a node class without linking it into the hierarchy.
// Use LinkChild to place it.
func (c *EntityClass) AddNode(node *EntityNodeClass) *EntityNodeClass {
	c.nodes = append(c.nodes, node)
	return node
}

// LinkChild attaches the node under the parent, nil parent meaning
// the entity root.
func (c *EntityClass) LinkChild(parent, child *EntityNodeClass) {
	c.renderTree.LinkChild(parent, child)
}

func (c *EntityClass) FindNodeById(id string) *EntityNodeClass {
	for _, node := range c.nodes {
		if node.Id == id {
			return node
		}
	}
	return nil
}

func (c *EntityClass) FindNodeByName(name string) *EntityNodeClass {
	for _, node := range c.nodes {
		if node.Name == name {
			return node
		}
	}
	return nil
}

func (c *EntityClass) AddScriptVar(v *ScriptVar) {
	c.scriptVars = append(c.scriptVars, v)
}

func (c *EntityClass) GetNumScriptVars() int { return len(c.scriptVars) }

func (c *EntityClass) GetScriptVar(index int) *ScriptVar { return c.scriptVars[index] }

func (c *EntityClass) FindScriptVarByName(name string) *ScriptVar {
	for _, v := range c.scriptVars {
		if v.GetName() == name {
			return v
		}
	}
	return nil
}

// FindNodeTransform returns the node-to-entity transform of the node.
func (c *EntityClass) FindNodeTransform(node *EntityNodeClass) math.Mat4 {
	return FindNodeTransform(c.renderTree, node)
}

// FindNodeModelTransform returns the model-to-entity transform of
// the node.
func (c *EntityClass) FindNodeModelTransform(node *EntityNodeClass) math.Mat4 {
	return FindNodeModelTransform(c.renderTree, node)
}

// CoarseHitTest tests the point in entity space against every node's
// unit box and returns the nodes hit.
func (c *EntityClass) CoarseHitTest(x, y float32) []*EntityNodeClass {
	hits, _ := CoarseHitTest[EntityNodeClass, *EntityNodeClass](c.renderTree, x, y)
	return hits
}

// GetBoundingRect returns the entity space AABB over all nodes.
func (c *EntityClass) GetBoundingRect() math.FRect {
	return FindTreeBoundingRect[EntityNodeClass, *EntityNodeClass](c.renderTree)
}

// EntityArgs are the parameters for spawning a new entity into a
// scene.
type EntityArgs struct {
	// Class is the entity class to instantiate. Required.
	Class *EntityClass
	// Id is the instance id. Generated when empty.
	Id string
	// Name is the instance name. Not required to be unique.
	Name string
	// Position, Scale and Rotation are baked into the entity's top
	// level nodes at construction.
	Position math.Vec2
	Scale    math.Vec2
	Rotation float32
	// Delay postpones the entity's appearance by the given amount
	// of scene time after the spawn call.
	Delay float64
	// Async constructs the instance on a background worker. The
	// entity becomes visible after a later BeginLoop has merged
	// the result.
	Async bool
	// EnableLogging suppresses per entity lifecycle logging when
	// false, for high volume spawners.
	EnableLogging bool
}

// Entity is a runtime instance of an EntityClass.
type Entity struct {
	id           string
	name         string
	class        *EntityClass
	nodes        []*EntityNode
	renderTree   *containers.RenderTree[EntityNode]
	scriptVars   []*ScriptVar
	flags        EntityFlags
	controlFlags ControlFlags
	lifetime     float32
	currentTime  float64
	// id of the node class in the parent entity this entity is
	// attached to, empty for scene root attachment.
	parentNodeClassId string
	layer             int
	enableLogging     bool
}

// NewEntity constructs an entity instance from the args. The args
// position/scale/rotation are baked into the top level nodes.
func NewEntity(args EntityArgs) *Entity {
	if args.Class == nil {
		core.LogFatal("entity args missing the entity class")
	}
	id := args.Id
	if id == "" {
		id = core.NewId()
	}
	entity := &Entity{
		id:            id,
		name:          args.Name,
		class:         args.Class,
		renderTree:    containers.NewRenderTree[EntityNode](),
		flags:         args.Class.Flags,
		lifetime:      args.Class.Lifetime,
		enableLogging: args.EnableLogging,
	}

	// instantiate the node classes, then copy the class hierarchy
	// over the instances.
	instances := make(map[*EntityNodeClass]*EntityNode, len(args.Class.nodes))
	for _, nodeClass := range args.Class.nodes {
		node := NewEntityNode(nodeClass)
		node.SetEntity(entity)
		instances[nodeClass] = node
		entity.nodes = append(entity.nodes, node)
	}
	containers.BuildFromTree(entity.renderTree, args.Class.renderTree, func(nodeClass *EntityNodeClass) *EntityNode {
		return instances[nodeClass]
	})

	// bake the placement transform into the top level nodes.
	scale := args.Scale
	if scale.X == 0 && scale.Y == 0 {
		scale = math.NewVec2One()
	}
	for _, node := range entity.nodes {
		if entity.renderTree.GetParent(node) != nil {
			continue
		}
		node.SetRotation(node.Rotation + args.Rotation)
		node.SetTranslation(node.Translation.Add(args.Position))
		node.SetScale(node.Scale.Mul(scale))
	}

	// instance copies of the mutable script variables. read-only
	// variables resolve through the class.
	for _, v := range args.Class.scriptVars {
		if !v.IsReadOnly() {
			entity.scriptVars = append(entity.scriptVars, v.Copy())
		}
	}
	return entity
}

func (e *Entity) GetId() string           { return e.id }
func (e *Entity) GetName() string         { return e.name }
func (e *Entity) GetClass() *EntityClass  { return e.class }
func (e *Entity) GetClassId() string      { return e.class.Id }
func (e *Entity) GetClassName() string    { return e.class.Name }
func (e *Entity) GetLayer() int           { return e.layer }
func (e *Entity) SetLayer(layer int)      { e.layer = layer }
func (e *Entity) GetLifetime() float32    { return e.lifetime }
func (e *Entity) SetLifetime(sec float32) { e.lifetime = sec }
func (e *Entity) GetCurrentTime() float64 { return e.currentTime }
func (e *Entity) IsLoggingEnabled() bool  { return e.enableLogging }

func (e *Entity) GetParentNodeClassId() string   { return e.parentNodeClassId }
func (e *Entity) SetParentNodeClassId(id string) { e.parentNodeClassId = id }

func (e *Entity) GetNumNodes() int { return len(e.nodes) }

func (e *Entity) GetNode(index int) *EntityNode { return e.nodes[index] }

func (e *Entity) GetRenderTree() *containers.RenderTree[EntityNode] { return e.renderTree }

func (e *Entity) FindNodeByClassId(id string) *EntityNode {
	for _, node := range e.nodes {
		if node.GetClassId() == id {
			return node
		}
	}
	return nil
}

func (e *Entity) FindNodeByClassName(name string) *EntityNode {
	for _, node := range e.nodes {
		if node.GetClassName() == name {
			return node
		}
	}
	return nil
}

func (e *Entity) FindNodeByInstanceId(id string) *EntityNode {
	for _, node := range e.nodes {
		if node.GetId() == id {
			return node
		}
	}
	return nil
}

func (e *Entity) TestFlag(flag EntityFlags) bool { return e.flags.Test(flag) }

func (e *Entity) SetFlag(flag EntityFlags, on bool) { e.flags.Set(flag, on) }

func (e *Entity) TestControlFlag(flag ControlFlags) bool { return e.controlFlags.Test(flag) }

func (e *Entity) SetControlFlag(flag ControlFlags, on bool) { e.controlFlags.Set(flag, on) }

func (e *Entity) IsVisible() bool { return e.flags.Test(EntityVisibleInGame) }

// HasBeenKilled is true once the entity has been killed from the
// scene. The entity remains queryable through the rest of the loop
// iteration.
func (e *Entity) HasBeenKilled() bool { return e.controlFlags.Test(ControlKilled) }

// HasBeenSpawned is true only during the loop iteration that linked
// the entity into the scene.
func (e *Entity) HasBeenSpawned() bool { return e.controlFlags.Test(ControlSpawned) }

// Die requests the entity's own death. The scene stages the kill at
// the end of the current loop iteration.
func (e *Entity) Die() { e.controlFlags.Set(ControlWantsToDie, true) }

// HasExpired is true once the entity has outlived its class
// lifetime limit.
func (e *Entity) HasExpired() bool {
	if !e.flags.Test(EntityLimitLifetime) {
		return false
	}
	return e.currentTime >= float64(e.lifetime)
}

// Update advances the entity's local time.
func (e *Entity) Update(dt float64) {
	e.currentTime += dt
}

func (e *Entity) FindScriptVarByName(name string) *ScriptVar {
	for _, v := range e.scriptVars {
		if v.GetName() == name {
			return v
		}
	}
	// fall back to the read-only class variables.
	if v := e.class.FindScriptVarByName(name); v != nil && v.IsReadOnly() {
		return v
	}
	return nil
}

// FindNodeTransform returns the node-to-entity transform of the node.
func (e *Entity) FindNodeTransform(node *EntityNode) math.Mat4 {
	return FindNodeTransform(e.renderTree, node)
}

// FindNodeModelTransform returns the model-to-entity transform of
// the node.
func (e *Entity) FindNodeModelTransform(node *EntityNode) math.Mat4 {
	return FindNodeModelTransform(e.renderTree, node)
}

// FindNodeBoundingRect returns the entity space AABB of the node.
func (e *Entity) FindNodeBoundingRect(node *EntityNode) math.FRect {
	return FindBoundingRect(e.renderTree, node)
}

// FindNodeBoundingBox returns the entity space oriented box of the
// node.
func (e *Entity) FindNodeBoundingBox(node *EntityNode) math.FBox {
	return FindBoundingBox(e.renderTree, node)
}

// GetBoundingRect returns the entity space AABB over all nodes.
func (e *Entity) GetBoundingRect() math.FRect {
	return FindTreeBoundingRect[EntityNode, *EntityNode](e.renderTree)
}

// CoarseHitTest tests the point in entity space against every node's
// unit box and returns the nodes hit.
func (e *Entity) CoarseHitTest(x, y float32) []*EntityNode {
	hits, _ := CoarseHitTest[EntityNode, *EntityNode](e.renderTree, x, y)
	return hits
}
