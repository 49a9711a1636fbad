package scene

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/aurora/engine/math"
	"github.com/spaghettifunk/aurora/engine/spatial"
)

// immediateRunner runs submitted work inline, standing in for the
// background worker in the async spawn tests.
type immediateRunner struct{}

func (immediateRunner) Submit(work func()) { work() }

func newBodyEntityClass(name string) *EntityClass {
	class := NewEntityClass(name)
	body := NewEntityNodeClass("body")
	body.SetSize(math.NewVec2(10, 10))
	body.SpatialNode = NewSpatialNode()
	class.AddNode(body)
	class.LinkChild(nil, body)
	return class
}

func newQuadTreeSceneClass(name string) *SceneClass {
	class := NewSceneClass(name)
	class.IndexSetting = IndexSetting{Kind: IndexQuadTree}
	return class
}

func TestSceneInstantiatesPlacements(t *testing.T) {
	entityClass := newBodyEntityClass("ship")
	entityClass.AddScriptVar(NewScriptVar("health", 100, false))

	sceneClass := newQuadTreeSceneClass("test")
	one := sceneClass.PlaceEntity(NewEntityPlacement(entityClass, "one"))
	one.Position = math.NewVec2(100, 0)
	one.Layer = 3
	one.SetFlagOverride(EntityKillAtBoundary, true)
	one.SetScriptVarValue("health", 50)
	two := sceneClass.PlaceEntity(NewEntityPlacement(entityClass, "two"))
	sceneClass.LinkChild(nil, one)
	sceneClass.LinkChild(nil, two)

	scene := NewScene(sceneClass)
	require.Equal(t, 2, scene.GetNumEntities())

	entity := scene.FindEntityByInstanceName("one")
	require.NotNil(t, entity)
	require.Equal(t, 3, entity.GetLayer())
	require.True(t, entity.TestFlag(EntityKillAtBoundary))
	require.Equal(t, entity, scene.FindEntityByInstanceId(entity.GetId()))

	health := entity.FindScriptVarByName("health")
	require.NotNil(t, health)
	require.Equal(t, 50, health.GetValue())

	// the sibling keeps the class defaults.
	other := scene.FindEntityByInstanceName("two")
	require.NotNil(t, other)
	require.False(t, other.TestFlag(EntityKillAtBoundary))
	require.Equal(t, 100, other.FindScriptVarByName("health").GetValue())
}

func TestSceneSkipsBrokenPlacement(t *testing.T) {
	entityClass := newBodyEntityClass("ship")

	sceneClass := newQuadTreeSceneClass("test")
	broken := sceneClass.PlaceEntity(NewEntityPlacement(nil, "broken"))
	broken.EntityClassId = "gone"
	good := sceneClass.PlaceEntity(NewEntityPlacement(entityClass, "good"))
	// the child of the broken placement survives and resolves to the
	// scene root.
	sceneClass.LinkChild(nil, broken)
	sceneClass.LinkChild(broken, good)

	scene := NewScene(sceneClass)
	require.Equal(t, 1, scene.GetNumEntities())

	entity := scene.FindEntityByInstanceName("good")
	require.NotNil(t, entity)
	require.True(t, scene.GetRenderTree().HasNode(entity))
	require.Nil(t, scene.GetRenderTree().GetParent(entity))
}

func TestSceneCoercesScriptVarOverrides(t *testing.T) {
	entityClass := newBodyEntityClass("ship")
	entityClass.AddScriptVar(NewScriptVar("health", 100, false))
	entityClass.AddScriptVar(NewScriptVar("speed", float32(1.0), false))

	sceneClass := newQuadTreeSceneClass("test")
	placement := sceneClass.PlaceEntity(NewEntityPlacement(entityClass, "ship"))
	// values decoded from content files arrive as float64.
	placement.SetScriptVarValue("health", float64(42))
	placement.SetScriptVarValue("speed", float64(2.5))
	placement.SetScriptVarValue("no_such_var", 1)
	sceneClass.LinkChild(nil, placement)

	scene := NewScene(sceneClass)
	entity := scene.FindEntityByInstanceName("ship")
	require.NotNil(t, entity)
	require.Equal(t, 42, entity.FindScriptVarByName("health").GetValue())
	require.Equal(t, float32(2.5), entity.FindScriptVarByName("speed").GetValue())
}

func TestSceneScriptVars(t *testing.T) {
	sceneClass := newQuadTreeSceneClass("test")
	sceneClass.AddScriptVar(NewScriptVar("score", 0, false))
	sceneClass.AddScriptVar(NewScriptVar("gravity", float32(9.8), true))

	scene := NewScene(sceneClass)

	// mutable variables are instance copies.
	score := scene.FindScriptVarByName("score")
	require.NotNil(t, score)
	require.True(t, score.SetValue(10))
	require.Equal(t, 10, score.GetValue())
	require.Equal(t, 0, sceneClass.FindScriptVarByName("score").GetValue())

	// read-only variables resolve through the class and reject
	// assignment.
	gravity := scene.FindScriptVarByName("gravity")
	require.NotNil(t, gravity)
	require.False(t, gravity.SetValue(float32(1.0)))
	require.Equal(t, float32(9.8), gravity.GetValue())

	require.Nil(t, scene.FindScriptVarByName("no_such_var"))
}

func TestSceneSpawnLatency(t *testing.T) {
	entityClass := newBodyEntityClass("ship")
	scene := NewScene(newQuadTreeSceneClass("test"))

	entity := scene.SpawnEntity(EntityArgs{Class: entityClass, Name: "spawned"}, true)
	require.NotNil(t, entity)
	// not part of the scene until the next loop iteration begins.
	require.Equal(t, 0, scene.GetNumEntities())
	require.Nil(t, scene.FindEntityByInstanceId(entity.GetId()))

	scene.BeginLoop()
	require.Equal(t, 1, scene.GetNumEntities())
	require.Equal(t, entity, scene.FindEntityByInstanceId(entity.GetId()))
	require.Equal(t, entity, scene.FindEntityByInstanceName("spawned"))
	require.True(t, entity.HasBeenSpawned())
	require.True(t, scene.GetRenderTree().HasNode(entity))

	// the spawn flag is only visible during the iteration that
	// linked the entity.
	scene.EndLoop()
	require.False(t, entity.HasBeenSpawned())
	require.Equal(t, 1, scene.GetNumEntities())
}

func TestSceneSpawnDelay(t *testing.T) {
	entityClass := newBodyEntityClass("ship")
	scene := NewScene(newQuadTreeSceneClass("test"))

	entity := scene.SpawnEntity(EntityArgs{Class: entityClass, Name: "later", Delay: 1.0}, true)
	require.NotNil(t, entity)

	scene.BeginLoop()
	require.Equal(t, 0, scene.GetNumEntities())
	scene.Update(0.6)
	scene.EndLoop()

	scene.BeginLoop()
	require.Equal(t, 0, scene.GetNumEntities())
	scene.Update(0.6)
	scene.EndLoop()

	// scene time has passed the spawn time.
	scene.BeginLoop()
	require.Equal(t, 1, scene.GetNumEntities())
	require.Equal(t, entity, scene.FindEntityByInstanceName("later"))
	scene.EndLoop()
}

func TestSceneAsyncSpawn(t *testing.T) {
	entityClass := newBodyEntityClass("ship")
	scene := NewScene(newQuadTreeSceneClass("test"))
	scene.SetTaskRunner(immediateRunner{})

	entity := scene.SpawnEntity(EntityArgs{Class: entityClass, Name: "async", Async: true}, true)
	// async construction happens on the worker; no handle yet.
	require.Nil(t, entity)
	require.Equal(t, 0, scene.GetNumEntities())

	scene.BeginLoop()
	require.Equal(t, 1, scene.GetNumEntities())
	require.NotNil(t, scene.FindEntityByInstanceName("async"))
}

func TestSceneKillLatency(t *testing.T) {
	entityClass := newBodyEntityClass("ship")
	scene := NewScene(newQuadTreeSceneClass("test"))

	entity := scene.SpawnEntity(EntityArgs{Class: entityClass, Name: "victim"}, true)
	scene.BeginLoop()
	scene.EndLoop()

	scene.BeginLoop()
	scene.KillEntity(entity)
	// killed entities stay discoverable through the rest of the
	// iteration.
	require.True(t, entity.HasBeenKilled())
	require.Equal(t, entity, scene.FindEntityByInstanceId(entity.GetId()))
	require.Equal(t, 1, scene.GetNumEntities())

	// re-killing is a no-op.
	scene.KillEntity(entity)
	require.Equal(t, 1, scene.GetNumEntities())

	scene.EndLoop()
	require.Equal(t, 0, scene.GetNumEntities())
	require.Nil(t, scene.FindEntityByInstanceId(entity.GetId()))
	require.Nil(t, scene.FindEntityByInstanceName("victim"))
	require.False(t, scene.GetRenderTree().HasNode(entity))
}

func TestSceneKillPropagatesToChildren(t *testing.T) {
	entityClass := newBodyEntityClass("ship")
	scene := NewScene(newQuadTreeSceneClass("test"))

	parent := scene.SpawnEntity(EntityArgs{Class: entityClass, Name: "parent"}, true)
	child := scene.SpawnEntity(EntityArgs{Class: entityClass, Name: "child"}, false)
	scene.BeginLoop()
	scene.GetRenderTree().LinkChild(parent, child)
	scene.EndLoop()

	scene.BeginLoop()
	scene.KillEntity(parent)
	scene.EndLoop()

	require.True(t, child.HasBeenKilled())
	require.Equal(t, 0, scene.GetNumEntities())
	require.Nil(t, scene.FindEntityByInstanceName("child"))
	require.False(t, scene.GetRenderTree().HasNode(child))
}

func TestSceneKillPendingSpawnCancels(t *testing.T) {
	entityClass := newBodyEntityClass("ship")
	scene := NewScene(newQuadTreeSceneClass("test"))

	entity := scene.SpawnEntity(EntityArgs{Class: entityClass, Name: "unborn", Delay: 5.0}, true)
	scene.KillEntity(entity)
	require.True(t, entity.HasBeenKilled())

	// even after the spawn time passes the entity never appears.
	for i := 0; i < 10; i++ {
		scene.BeginLoop()
		scene.Update(1.0)
		scene.EndLoop()
	}
	require.Equal(t, 0, scene.GetNumEntities())
	require.Nil(t, scene.FindEntityByInstanceId(entity.GetId()))
}

func TestSceneSelfKillGraceIteration(t *testing.T) {
	entityClass := newBodyEntityClass("spark")
	entityClass.Flags.Set(EntityLimitLifetime, true)
	entityClass.Flags.Set(EntityKillAtLifetime, true)
	entityClass.Lifetime = 1.0
	scene := NewScene(newQuadTreeSceneClass("test"))

	entity := scene.SpawnEntity(EntityArgs{Class: entityClass, Name: "spark"}, true)
	scene.BeginLoop()
	scene.EndLoop()

	// the lifetime expires during this iteration; the death is
	// staged at the end of it, not applied.
	scene.BeginLoop()
	scene.Update(1.5)
	scene.EndLoop()
	require.True(t, entity.HasBeenKilled())
	require.Equal(t, 1, scene.GetNumEntities())
	require.Equal(t, entity, scene.FindEntityByInstanceId(entity.GetId()))

	// the next iteration removes it.
	scene.BeginLoop()
	scene.EndLoop()
	require.Equal(t, 0, scene.GetNumEntities())
	require.Nil(t, scene.FindEntityByInstanceId(entity.GetId()))
}

func TestSceneSelfKillDuringConcurrentRemoval(t *testing.T) {
	entityClass := newBodyEntityClass("ship")
	scene := NewScene(newQuadTreeSceneClass("test"))

	victim := scene.SpawnEntity(EntityArgs{Class: entityClass, Name: "victim"}, true)
	dier := scene.SpawnEntity(EntityArgs{Class: entityClass, Name: "dier"}, true)
	scene.BeginLoop()
	scene.EndLoop()

	// one entity is killed outright while another asks to die in the
	// same iteration. Removing the first must not sweep the second out
	// of storage before its grace iteration.
	scene.BeginLoop()
	scene.KillEntity(victim)
	dier.Die()
	scene.EndLoop()
	require.Nil(t, scene.FindEntityByInstanceId(victim.GetId()))
	require.True(t, dier.HasBeenKilled())
	require.Equal(t, 1, scene.GetNumEntities())
	require.Equal(t, dier, scene.FindEntityByInstanceId(dier.GetId()))

	// the next iteration unlinks it everywhere.
	scene.BeginLoop()
	scene.EndLoop()
	require.Equal(t, 0, scene.GetNumEntities())
	require.Nil(t, scene.FindEntityByInstanceId(dier.GetId()))
	require.Nil(t, scene.FindEntityByInstanceName("dier"))
	require.False(t, scene.GetRenderTree().HasNode(dier))
}

func TestSceneRebuildAndQuery(t *testing.T) {
	entityClass := newBodyEntityClass("rock")

	sceneClass := newQuadTreeSceneClass("test")
	near := sceneClass.PlaceEntity(NewEntityPlacement(entityClass, "near"))
	far := sceneClass.PlaceEntity(NewEntityPlacement(entityClass, "far"))
	far.Position = math.NewVec2(200, 200)
	sceneClass.LinkChild(nil, near)
	sceneClass.LinkChild(nil, far)

	scene := NewScene(sceneClass)
	require.True(t, scene.HasSpatialIndex())

	scene.BeginLoop()
	scene.Rebuild()

	// the body node of "near" covers (-5,-5)x(5,5).
	hits := spatial.NewSetCollector[EntityNode]()
	scene.QuerySpatialNodesByRect(math.NewFRect(-10, -10, 20, 20), hits)
	require.Equal(t, 1, hits.Len())
	nearEntity := scene.FindEntityByInstanceName("near")
	require.True(t, hits.Contains(nearEntity.GetNode(0)))

	// point query against "far" whose node covers (195,195)x(205,205).
	hits = spatial.NewSetCollector[EntityNode]()
	scene.QuerySpatialNodesByPoint(math.NewFPoint(200, 200), spatial.QueryAll, hits)
	require.Equal(t, 1, hits.Len())
	farEntity := scene.FindEntityByInstanceName("far")
	require.True(t, hits.Contains(farEntity.GetNode(0)))

	// nothing lives here.
	hits = spatial.NewSetCollector[EntityNode]()
	scene.QuerySpatialNodesByRect(math.NewFRect(50, 50, 10, 10), hits)
	require.Equal(t, 0, hits.Len())

	// radius and line queries see both nodes.
	hits = spatial.NewSetCollector[EntityNode]()
	scene.QuerySpatialNodesByPointRadius(math.NewFPoint(100, 100), 200, spatial.QueryAll, hits)
	require.Equal(t, 2, hits.Len())

	hits = spatial.NewSetCollector[EntityNode]()
	scene.QuerySpatialNodesByLine(math.NewFPoint(-50, -50), math.NewFPoint(250, 250), spatial.QueryAll, hits)
	require.Equal(t, 2, hits.Len())
	scene.EndLoop()
}

func TestSceneEndLoopErasesKilledFromIndex(t *testing.T) {
	entityClass := newBodyEntityClass("rock")
	scene := NewScene(newQuadTreeSceneClass("test"))

	entity := scene.SpawnEntity(EntityArgs{Class: entityClass, Name: "rock"}, true)
	scene.BeginLoop()
	scene.Rebuild()
	scene.EndLoop()

	scene.BeginLoop()
	scene.Rebuild()
	scene.KillEntity(entity)
	scene.EndLoop()

	// killed entity entries are dropped at the end of the loop
	// without waiting for the next rebuild.
	hits := spatial.NewSetCollector[EntityNode]()
	scene.QuerySpatialNodesByRect(math.NewFRect(-100, -100, 200, 200), hits)
	require.Equal(t, 0, hits.Len())
}

func TestSceneBoundaryKill(t *testing.T) {
	entityClass := newBodyEntityClass("rock")
	entityClass.Flags.Set(EntityKillAtBoundary, true)

	right := float32(50)
	sceneClass := newQuadTreeSceneClass("test")
	sceneClass.Boundary = BoundarySetting{Right: &right}
	inside := sceneClass.PlaceEntity(NewEntityPlacement(entityClass, "inside"))
	outside := sceneClass.PlaceEntity(NewEntityPlacement(entityClass, "outside"))
	outside.Position = math.NewVec2(100, 0)
	sceneClass.LinkChild(nil, inside)
	sceneClass.LinkChild(nil, outside)

	scene := NewScene(sceneClass)
	scene.BeginLoop()
	scene.Rebuild()

	// the boundary kill is staged; the entity survives the rest of
	// the iteration.
	gone := scene.FindEntityByInstanceName("outside")
	require.NotNil(t, gone)
	require.True(t, gone.HasBeenKilled())
	require.Equal(t, 2, scene.GetNumEntities())

	scene.EndLoop()
	require.Equal(t, 1, scene.GetNumEntities())
	require.Nil(t, scene.FindEntityByInstanceName("outside"))
	require.NotNil(t, scene.FindEntityByInstanceName("inside"))
}

func TestSceneChildEntityAttachment(t *testing.T) {
	parentClass := NewEntityClass("carrier")
	mount := NewEntityNodeClass("mount")
	mount.SetTranslation(math.NewVec2(30, 40))
	mount.SetSize(math.NewVec2(4, 4))
	parentClass.AddNode(mount)
	parentClass.LinkChild(nil, mount)

	childClass := newBodyEntityClass("pod")

	sceneClass := newQuadTreeSceneClass("test")
	parent := sceneClass.PlaceEntity(NewEntityPlacement(parentClass, "carrier"))
	parent.Position = math.NewVec2(10, 0)
	child := sceneClass.PlaceEntity(NewEntityPlacement(childClass, "pod"))
	child.ParentNodeClassId = mount.Id
	sceneClass.LinkChild(nil, parent)
	sceneClass.LinkChild(parent, child)

	scene := NewScene(sceneClass)
	childEntity := scene.FindEntityByInstanceName("pod")
	require.NotNil(t, childEntity)

	// the child entity composes through the mount node whose world
	// position includes the parent placement offset.
	translation := scene.FindEntityTransform(childEntity).GetTranslation()
	require.InDelta(t, 40, translation.X, 0.001)
	require.InDelta(t, 40, translation.Y, 0.001)

	rect := scene.FindEntityBoundingRect(childEntity)
	require.InDelta(t, 35, rect.X, 0.001)
	require.InDelta(t, 35, rect.Y, 0.001)
	require.InDelta(t, 10, rect.Width, 0.001)
	require.InDelta(t, 10, rect.Height, 0.001)
}

func TestSceneListEntitiesByClassName(t *testing.T) {
	rockClass := newBodyEntityClass("rock")
	shipClass := newBodyEntityClass("ship")
	scene := NewScene(newQuadTreeSceneClass("test"))

	scene.SpawnEntity(EntityArgs{Class: rockClass, Name: "rock_0"}, true)
	scene.SpawnEntity(EntityArgs{Class: rockClass, Name: "rock_1"}, true)
	scene.SpawnEntity(EntityArgs{Class: shipClass, Name: "ship_0"}, true)
	scene.BeginLoop()

	require.Len(t, scene.ListEntitiesByClassName("rock"), 2)
	require.Len(t, scene.ListEntitiesByClassName("ship"), 1)
	require.Empty(t, scene.ListEntitiesByClassName("saucer"))
}
