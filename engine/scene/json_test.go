package scene

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/aurora/engine/containers"
	"github.com/spaghettifunk/aurora/engine/math"
)

func TestRenderTreeJsonRoundTrip(t *testing.T) {
	src := containers.NewRenderTree[EntityNodeClass]()
	a := newNodeAt("a", math.Vec2{}, math.NewVec2One())
	a1 := newNodeAt("a1", math.Vec2{}, math.NewVec2One())
	b := newNodeAt("b", math.Vec2{}, math.NewVec2One())
	src.LinkChild(nil, a)
	src.LinkChild(a, a1)
	src.LinkChild(nil, b)

	data, err := RenderTreeIntoJson(src, func(node *EntityNodeClass) string {
		return node.Id
	})
	require.NoError(t, err)

	nodes := map[string]*EntityNodeClass{a.Id: a, a1.Id: a1, b.Id: b}
	dst := containers.NewRenderTree[EntityNodeClass]()
	err = RenderTreeFromJson(dst, data, func(id string) *EntityNodeClass {
		return nodes[id]
	})
	require.NoError(t, err)

	require.Nil(t, dst.GetParent(a))
	require.Equal(t, a, dst.GetParent(a1))
	require.Nil(t, dst.GetParent(b))
}

func TestRenderTreeJsonUnknownId(t *testing.T) {
	src := containers.NewRenderTree[EntityNodeClass]()
	a := newNodeAt("a", math.Vec2{}, math.NewVec2One())
	src.LinkChild(nil, a)

	data, err := RenderTreeIntoJson(src, func(node *EntityNodeClass) string {
		return node.Id
	})
	require.NoError(t, err)

	dst := containers.NewRenderTree[EntityNodeClass]()
	err = RenderTreeFromJson(dst, data, func(id string) *EntityNodeClass {
		return nil
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), a.Id)
}

func TestEntityClassJsonRoundTrip(t *testing.T) {
	class := NewEntityClass("ship")
	class.Lifetime = 5.0
	class.Flags.Set(EntityKillAtLifetime, true)

	body := newNodeAt("body", math.NewVec2(1, 2), math.NewVec2(10, 10))
	body.Rotation = 0.5
	body.Drawable = NewDrawableItem()
	body.Drawable.MaterialId = "mat"
	body.Drawable.DrawableId = "shape"
	body.Drawable.Layer = 2
	body.SpatialNode = NewSpatialNode()
	flame := newNodeAt("flame", math.NewVec2(0, 5), math.NewVec2(2, 2))
	flame.TextItem = NewTextItem()
	flame.TextItem.Text = "hello"
	flame.TextItem.FontName = "fonts/test.otf"
	flame.TextItem.FontSize = 14
	flame.BasicLight = NewBasicLight()
	flame.BasicLight.Type = BasicLightPoint
	class.AddNode(body)
	class.AddNode(flame)
	class.LinkChild(nil, body)
	class.LinkChild(body, flame)

	class.AddScriptVar(NewScriptVar("health", 100, false))
	class.AddScriptVar(NewScriptVar("spawn_point", math.NewVec2(3, 4), true))

	data, err := class.IntoJson()
	require.NoError(t, err)

	loaded, err := EntityClassFromJson(data)
	require.NoError(t, err)
	require.Equal(t, class.Id, loaded.Id)
	require.Equal(t, "ship", loaded.Name)
	require.Equal(t, float32(5.0), loaded.Lifetime)
	require.True(t, loaded.Flags.Test(EntityKillAtLifetime))
	require.Equal(t, 2, loaded.GetNumNodes())

	loadedBody := loaded.FindNodeByName("body")
	require.NotNil(t, loadedBody)
	require.Equal(t, body.Id, loadedBody.Id)
	require.Equal(t, math.NewVec2(1, 2), loadedBody.Translation)
	require.Equal(t, float32(0.5), loadedBody.Rotation)
	require.NotNil(t, loadedBody.Drawable)
	require.Equal(t, "mat", loadedBody.Drawable.MaterialId)
	require.Equal(t, 2, loadedBody.Drawable.Layer)
	require.NotNil(t, loadedBody.SpatialNode)
	require.True(t, loadedBody.SpatialNode.Enabled)

	loadedFlame := loaded.FindNodeByName("flame")
	require.NotNil(t, loadedFlame)
	require.NotNil(t, loadedFlame.TextItem)
	require.Equal(t, "hello", loadedFlame.TextItem.Text)
	// the text raster hash is derived from the parameters only, so
	// it survives the round trip.
	require.Equal(t, flame.TextItem.GetHash(), loadedFlame.TextItem.GetHash())
	require.NotNil(t, loadedFlame.BasicLight)
	require.Equal(t, BasicLightPoint, loadedFlame.BasicLight.Type)

	// hierarchy restored against the stable node ids.
	require.Equal(t, loadedBody, loaded.GetRenderTree().GetParent(loadedFlame))
	require.Nil(t, loaded.GetRenderTree().GetParent(loadedBody))

	health := loaded.FindScriptVarByName("health")
	require.NotNil(t, health)
	require.Equal(t, 100, health.GetValue())
	require.False(t, health.IsReadOnly())

	spawn := loaded.FindScriptVarByName("spawn_point")
	require.NotNil(t, spawn)
	require.Equal(t, math.NewVec2(3, 4), spawn.GetValue())
	require.True(t, spawn.IsReadOnly())
}

func TestSceneClassJsonRoundTrip(t *testing.T) {
	entityClass := newBodyEntityClass("rock")

	right := float32(100)
	bottom := float32(80)
	class := NewSceneClass("level")
	class.IndexSetting = IndexSetting{
		Kind:     IndexQuadTree,
		QuadTree: QuadTreeArgs{MaxItems: 8, MaxLevels: 4},
	}
	class.Boundary = BoundarySetting{Right: &right, Bottom: &bottom}
	class.AddScriptVar(NewScriptVar("score", 0, false))

	parent := class.PlaceEntity(NewEntityPlacement(entityClass, "parent"))
	parent.Position = math.NewVec2(10, 20)
	parent.Layer = 1
	parent.SetFlagOverride(EntityKillAtBoundary, true)
	parent.SetScriptVarValue("health", 50)
	parent.SetScriptVarValue("target", math.NewVec2(7, 8))
	child := class.PlaceEntity(NewEntityPlacement(entityClass, "child"))
	child.ParentNodeClassId = entityClass.GetNode(0).Id
	class.LinkChild(nil, parent)
	class.LinkChild(parent, child)

	data, err := class.IntoJson()
	require.NoError(t, err)

	loaded, err := SceneClassFromJson(data, func(classId string) *EntityClass {
		if classId == entityClass.Id {
			return entityClass
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, class.Id, loaded.Id)
	require.Equal(t, "level", loaded.Name)
	require.Equal(t, IndexQuadTree, loaded.IndexSetting.Kind)
	require.Equal(t, QuadTreeArgs{MaxItems: 8, MaxLevels: 4}, loaded.IndexSetting.QuadTree)
	require.NotNil(t, loaded.Boundary.Right)
	require.Equal(t, float32(100), *loaded.Boundary.Right)
	require.Nil(t, loaded.Boundary.Left)

	require.Equal(t, 2, loaded.GetNumPlacements())
	loadedParent := loaded.FindPlacementByName("parent")
	require.NotNil(t, loadedParent)
	require.Equal(t, parent.Id, loadedParent.Id)
	require.Equal(t, entityClass, loadedParent.EntityClass)
	require.Equal(t, math.NewVec2(10, 20), loadedParent.Position)
	require.True(t, loadedParent.HasFlagOverride(EntityKillAtBoundary))
	require.True(t, loadedParent.TestFlag(EntityKillAtBoundary))
	require.False(t, loadedParent.HasFlagOverride(EntityVisibleInGame))

	// numeric override values come back as float64 and vec2 shaped
	// objects come back as Vec2.
	require.Len(t, loadedParent.ScriptVarValues, 2)
	require.Equal(t, float64(50), loadedParent.ScriptVarValues[0].Value)
	require.Equal(t, math.NewVec2(7, 8), loadedParent.ScriptVarValues[1].Value)

	loadedChild := loaded.FindPlacementByName("child")
	require.NotNil(t, loadedChild)
	require.Equal(t, entityClass.GetNode(0).Id, loadedChild.ParentNodeClassId)
	require.Equal(t, loadedParent, loaded.GetRenderTree().GetParent(loadedChild))

	score := loaded.FindScriptVarByName("score")
	require.NotNil(t, score)
	require.Equal(t, 0, score.GetValue())
}

func TestSceneClassJsonBrokenReference(t *testing.T) {
	entityClass := newBodyEntityClass("rock")
	class := NewSceneClass("level")
	placement := class.PlaceEntity(NewEntityPlacement(entityClass, "rock"))
	class.LinkChild(nil, placement)

	data, err := class.IntoJson()
	require.NoError(t, err)

	// the entity class is gone from the library; the placement loads
	// broken and scene instantiation skips it.
	loaded, err := SceneClassFromJson(data, func(classId string) *EntityClass {
		return nil
	})
	require.NoError(t, err)
	require.True(t, loaded.GetPlacement(0).IsBroken())

	scene := NewScene(loaded)
	require.Equal(t, 0, scene.GetNumEntities())
}
