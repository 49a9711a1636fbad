package scene

import (
	"github.com/spaghettifunk/aurora/engine/containers"
	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/math"
)

// IndexKind selects the scene's spatial index implementation.
type IndexKind int

const (
	IndexDisabled IndexKind = iota
	IndexQuadTree
	IndexDenseGrid
)

// QuadTreeArgs parameterize a quadtree spatial index.
type QuadTreeArgs struct {
	MaxItems  int
	MaxLevels int
}

// DenseGridArgs parameterize a dense grid spatial index.
type DenseGridArgs struct {
	NumRows int
	NumCols int
}

// IndexSetting is the scene class level spatial index configuration.
// The indexed area is not part of the setting; it is derived from the
// scene content on every rebuild.
type IndexSetting struct {
	Kind      IndexKind
	QuadTree  QuadTreeArgs
	DenseGrid DenseGridArgs
}

// BoundarySetting holds the optional kill planes of the scene.
// Entities with the kill-at-boundary flag die once their bounding
// rect falls entirely outside every configured plane. Nil sides are
// unbounded.
type BoundarySetting struct {
	Left   *float32
	Right  *float32
	Top    *float32
	Bottom *float32
}

// IsConfigured is true when at least one kill plane is set.
func (b BoundarySetting) IsConfigured() bool {
	return b.Left != nil || b.Right != nil || b.Top != nil || b.Bottom != nil
}

// Contains tests whether the rect is at least partially inside the
// configured planes.
func (b BoundarySetting) Contains(rect math.FRect) bool {
	if b.Left != nil && rect.X+rect.Width < *b.Left {
		return false
	}
	if b.Right != nil && rect.X > *b.Right {
		return false
	}
	if b.Top != nil && rect.Y+rect.Height < *b.Top {
		return false
	}
	if b.Bottom != nil && rect.Y > *b.Bottom {
		return false
	}
	return true
}

// ScriptVarValue overrides the initial value of one of the entity's
// script variables for a particular placement.
type ScriptVarValue struct {
	Name  string
	Value any
}

// EntityPlacement is a scene class level reference to an entity
// class plus the instance specific overrides. Distinct from the
// runtime Entity it spawns.
type EntityPlacement struct {
	Id   string
	Name string
	// EntityClass is nil when the placement references a class that
	// no longer exists; such placements are skipped at scene
	// instantiation.
	EntityClass   *EntityClass
	EntityClassId string
	Position      math.Vec2
	Scale         math.Vec2
	Rotation      float32
	Layer         int
	// ParentNodeClassId names the node of the parent placement's
	// entity this placement attaches to, empty for the parent
	// entity origin.
	ParentNodeClassId string
	Lifetime          *float32
	ScriptVarValues   []ScriptVarValue

	flagVals EntityFlags
	flagSets EntityFlags
}

func NewEntityPlacement(class *EntityClass, name string) *EntityPlacement {
	placement := &EntityPlacement{
		Id:          core.NewClassId(),
		Name:        name,
		EntityClass: class,
		Scale:       math.NewVec2One(),
	}
	if class != nil {
		placement.EntityClassId = class.Id
	}
	return placement
}

func (p *EntityPlacement) GetId() string   { return p.Id }
func (p *EntityPlacement) GetName() string { return p.Name }

// IsBroken is true when the entity class reference failed to
// resolve.
func (p *EntityPlacement) IsBroken() bool { return p.EntityClass == nil }

// SetFlagOverride records a per placement override for one of the
// entity class flags. Flags without an override use the class
// default.
func (p *EntityPlacement) SetFlagOverride(flag EntityFlags, on bool) {
	p.flagSets |= flag
	p.flagVals.Set(flag, on)
}

func (p *EntityPlacement) HasFlagOverride(flag EntityFlags) bool { return p.flagSets.Test(flag) }

func (p *EntityPlacement) TestFlag(flag EntityFlags) bool { return p.flagVals.Test(flag) }

// SetScriptVarValue records an initial value override for one of the
// entity's script variables.
func (p *EntityPlacement) SetScriptVarValue(name string, value any) {
	p.ScriptVarValues = append(p.ScriptVarValues, ScriptVarValue{Name: name, Value: value})
}

// GetNodeTransform returns the placement-to-parent transform.
func (p *EntityPlacement) GetNodeTransform() math.Mat4 {
	return nodeTransform(p.Scale, p.Rotation, p.Position)
}

// SceneClass is the design time description of a scene: entity
// placements, their hierarchy, scene script variables and the
// spatial index and boundary configuration.
type SceneClass struct {
	Id           string
	Name         string
	placements   []*EntityPlacement
	renderTree   *containers.RenderTree[EntityPlacement]
	scriptVars   []*ScriptVar
	IndexSetting IndexSetting
	Boundary     BoundarySetting
}

func NewSceneClass(name string) *SceneClass {
	return &SceneClass{
		Id:         core.NewClassId(),
		Name:       name,
		renderTree: containers.NewRenderTree[EntityPlacement](),
	}
}

func (c *SceneClass) GetId() string   { return c.Id }
func (c *SceneClass) GetName() string { return c.Name }

func (c *SceneClass) GetNumPlacements() int { return len(c.placements) }

func (c *SceneClass) GetPlacement(index int) *EntityPlacement { return c.placements[index] }

func (c *SceneClass) GetRenderTree() *containers.RenderTree[EntityPlacement] {
	return c.renderTree
}

// PlaceEntity adds a placement to the scene. The placement is not
// yet part of the scene graph; link it with LinkChild.
func (c *SceneClass) PlaceEntity(placement *EntityPlacement) *EntityPlacement {
	c.placements = append(c.placements, placement)
	return placement
}

// LinkChild attaches the placement under the parent placement, nil
// parent meaning the scene root.
func (c *SceneClass) LinkChild(parent, child *EntityPlacement) {
	c.renderTree.LinkChild(parent, child)
}

// BreakChild detaches the placement and its subtree from the scene
// graph.
func (c *SceneClass) BreakChild(child *EntityPlacement) {
	c.renderTree.BreakChild(child)
}

// ReparentChild moves the placement under a new parent placement.
func (c *SceneClass) ReparentChild(parent, child *EntityPlacement) {
	c.renderTree.ReparentChild(parent, child)
}

// DeletePlacement removes the placement and its subtree from the
// scene graph and the placement list.
func (c *SceneClass) DeletePlacement(placement *EntityPlacement) {
	graveyard := DeleteNode(c.renderTree, placement)
	kept := c.placements[:0]
	for _, p := range c.placements {
		if _, dead := graveyard[p]; !dead {
			kept = append(kept, p)
		}
	}
	c.placements = kept
}

func (c *SceneClass) FindPlacementById(id string) *EntityPlacement {
	for _, p := range c.placements {
		if p.Id == id {
			return p
		}
	}
	return nil
}

func (c *SceneClass) FindPlacementByName(name string) *EntityPlacement {
	for _, p := range c.placements {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (c *SceneClass) AddScriptVar(v *ScriptVar) {
	c.scriptVars = append(c.scriptVars, v)
}

func (c *SceneClass) GetNumScriptVars() int { return len(c.scriptVars) }

func (c *SceneClass) GetScriptVar(index int) *ScriptVar { return c.scriptVars[index] }

func (c *SceneClass) FindScriptVarByName(name string) *ScriptVar {
	for _, v := range c.scriptVars {
		if v.GetName() == name {
			return v
		}
	}
	return nil
}

// SceneClassNode pairs a placement with its placement-to-scene
// transform, produced by flattening the scene graph.
type SceneClassNode struct {
	Placement        *EntityPlacement
	PlacementToScene math.Mat4
}

// CollectNodes flattens the scene graph into a list of placements
// with their scene space transforms. A placement attached to a node
// of its parent's entity composes through that node's transform.
func (c *SceneClass) CollectNodes() []SceneClassNode {
	var result []SceneClassNode
	transform := math.NewTransform()
	var parents []*EntityPlacement
	var walk func(p *EntityPlacement)
	walk = func(p *EntityPlacement) {
		if p != nil {
			parentNodeTransform := math.NewMat4Identity()
			if len(parents) > 0 {
				parent := parents[len(parents)-1]
				if parent.EntityClass != nil {
					node := parent.EntityClass.FindNodeById(p.ParentNodeClassId)
					parentNodeTransform = parent.EntityClass.FindNodeTransform(node)
				}
			}
			parents = append(parents, p)
			transform.PushMatrix(parentNodeTransform)
			transform.PushMatrix(p.GetNodeTransform())
			result = append(result, SceneClassNode{
				Placement:        p,
				PlacementToScene: transform.GetAsMatrix(),
			})
		}
		c.renderTree.ForEachChild(walk, p)
		if p != nil {
			transform.Pop()
			transform.Pop()
			parents = parents[:len(parents)-1]
		}
	}
	walk(nil)
	return result
}

// GetBoundingRect returns the scene space AABB over every node of
// every placed entity class.
func (c *SceneClass) GetBoundingRect() math.FRect {
	var result math.FRect
	first := true
	for _, scn := range c.CollectNodes() {
		class := scn.Placement.EntityClass
		if class == nil {
			continue
		}
		for _, node := range class.nodes {
			m := class.FindNodeModelTransform(node).Mul(scn.PlacementToScene)
			rect := math.ComputeBoundingRect(m)
			if first {
				result = rect
				first = false
			} else {
				result = math.RectUnion(result, rect)
			}
		}
	}
	return result
}

// CoarseHitTest tests the scene space point against the unit box of
// every node of every placed entity class and returns the placements
// hit.
func (c *SceneClass) CoarseHitTest(x, y float32) []*EntityPlacement {
	var hits []*EntityPlacement
	point := math.NewVec2(x, y)
	for _, scn := range c.CollectNodes() {
		class := scn.Placement.EntityClass
		if class == nil {
			continue
		}
		for _, node := range class.nodes {
			m := class.FindNodeModelTransform(node).Mul(scn.PlacementToScene)
			p := point.Transform(m.Inverse())
			if p.X >= 0 && p.X < 1 && p.Y >= 0 && p.Y < 1 {
				hits = append(hits, scn.Placement)
				break
			}
		}
	}
	return hits
}
