package scene

import (
	"sync"

	"github.com/spaghettifunk/aurora/engine/containers"
	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/math"
	"github.com/spaghettifunk/aurora/engine/spatial"
)

// Margin added on both axes around the content bounds when the
// spatial index area is derived on rebuild, so rects on the edge
// survive the containment test despite floating point loss.
const indexBoundsMargin = 0.1

// TaskRunner runs work on a background worker. The scene uses it for
// asynchronous entity construction and destruction; a nil runner
// falls back to doing the work inline.
type TaskRunner interface {
	Submit(work func())
}

// SceneNode pairs a live entity with its entity-to-scene transform,
// produced by flattening the scene's render tree.
type SceneNode struct {
	Entity        *Entity
	EntityToScene math.Mat4
}

type spawnRecord struct {
	// scene time at which the pending entity goes live.
	spawnTime  float64
	instance   *Entity
	linkToRoot bool
}

// asyncSpawnState is the rendezvous buffer between spawn workers and
// the main thread. Workers append under the mutex; BeginLoop drains.
type asyncSpawnState struct {
	mu        sync.Mutex
	spawnList []spawnRecord
}

// Scene owns the live entity instances, their render tree, the
// per-frame spatial index and the spawn/kill double buffered
// lifecycle. All scene state is mutated on the main thread only; the
// task runner communicates exclusively through the async spawn
// buffer.
type Scene struct {
	class       *SceneClass
	entities    []*Entity
	renderTree  *containers.RenderTree[Entity]
	idMap       map[string]*Entity
	nameMap     map[string]*Entity
	scriptVars  []*ScriptVar
	spawnList   []spawnRecord
	killSet     map[*Entity]struct{}
	index       spatial.Index[EntityNode]
	currentTime float64
	runner      TaskRunner
	asyncSpawn  *asyncSpawnState
	// when set, EndLoop hands killed entity batches to the runner
	// for teardown instead of doing it inline.
	asyncDestroy bool
}

// NewScene instantiates a scene from its class. Placements whose
// entity class reference is broken are logged and skipped; the scene
// loads with fewer entities rather than failing.
func NewScene(class *SceneClass) *Scene {
	scene := &Scene{
		class:      class,
		renderTree: containers.NewRenderTree[Entity](),
		idMap:      make(map[string]*Entity),
		nameMap:    make(map[string]*Entity),
		killSet:    make(map[*Entity]struct{}),
		asyncSpawn: &asyncSpawnState{},
	}
	scene.index = createIndex(class.IndexSetting)

	instances := make(map[*EntityPlacement]*Entity, len(class.placements))
	for _, placement := range class.placements {
		if placement.IsBroken() {
			core.LogWarn("scene '%s': placement '%s' references missing entity class '%s', skipping",
				class.Name, placement.Name, placement.EntityClassId)
			continue
		}
		entity := NewEntity(EntityArgs{
			Class:         placement.EntityClass,
			Id:            placement.Id,
			Name:          placement.Name,
			Position:      placement.Position,
			Scale:         placement.Scale,
			Rotation:      placement.Rotation,
			EnableLogging: true,
		})
		entity.SetParentNodeClassId(placement.ParentNodeClassId)
		entity.SetLayer(placement.Layer)
		if placement.Lifetime != nil {
			entity.SetLifetime(*placement.Lifetime)
			entity.SetFlag(EntityLimitLifetime, true)
		}
		for _, flag := range []EntityFlags{EntityVisibleInGame, EntityLimitLifetime, EntityKillAtLifetime, EntityKillAtBoundary} {
			if placement.HasFlagOverride(flag) {
				entity.SetFlag(flag, placement.TestFlag(flag))
			}
		}
		for _, value := range placement.ScriptVarValues {
			v := entity.FindScriptVarByName(value.Name)
			if v == nil {
				core.LogWarn("scene '%s': placement '%s' sets unknown script variable '%s', skipping",
					class.Name, placement.Name, value.Name)
				continue
			}
			v.SetValue(CoerceScriptValue(v.GetType(), value.Value))
		}
		instances[placement] = entity
		scene.idMap[entity.GetId()] = entity
		scene.nameMap[entity.GetName()] = entity
		scene.entities = append(scene.entities, entity)
	}

	containers.BuildFromTree(scene.renderTree, class.renderTree, func(placement *EntityPlacement) *Entity {
		return instances[placement]
	})

	// instance copies of the mutable scene script variables.
	for _, v := range class.scriptVars {
		if !v.IsReadOnly() {
			scene.scriptVars = append(scene.scriptVars, v.Copy())
		}
	}
	return scene
}

func createIndex(setting IndexSetting) spatial.Index[EntityNode] {
	switch setting.Kind {
	case IndexQuadTree:
		args := setting.QuadTree
		if args.MaxItems == 0 {
			args.MaxItems = spatial.DefaultQuadTreeMaxItems
		}
		if args.MaxLevels == 0 {
			args.MaxLevels = spatial.DefaultQuadTreeMaxLevels
		}
		index, err := spatial.NewQuadTree[EntityNode](math.FRect{}, args.MaxItems, args.MaxLevels)
		if err != nil {
			core.LogError("invalid quadtree settings, spatial index disabled: %v", err)
			return nil
		}
		return index
	case IndexDenseGrid:
		args := setting.DenseGrid
		if args.NumRows == 0 {
			args.NumRows = 1
		}
		if args.NumCols == 0 {
			args.NumCols = 1
		}
		index, err := spatial.NewDenseGrid[EntityNode](math.FRect{}, args.NumRows, args.NumCols)
		if err != nil {
			core.LogError("invalid dense grid settings, spatial index disabled: %v", err)
			return nil
		}
		return index
	}
	return nil
}

// SetTaskRunner installs the background worker used for async entity
// construction and destruction.
func (s *Scene) SetTaskRunner(runner TaskRunner) { s.runner = runner }

// EnableAsyncDestroy makes EndLoop hand killed entity batches to the
// task runner.
func (s *Scene) EnableAsyncDestroy(on bool) { s.asyncDestroy = on }

func (s *Scene) GetClass() *SceneClass { return s.class }

func (s *Scene) GetClassId() string { return s.class.Id }

func (s *Scene) GetClassName() string { return s.class.Name }

func (s *Scene) GetTime() float64 { return s.currentTime }

func (s *Scene) GetNumEntities() int { return len(s.entities) }

func (s *Scene) GetEntity(index int) *Entity { return s.entities[index] }

func (s *Scene) GetRenderTree() *containers.RenderTree[Entity] { return s.renderTree }

// HasSpatialIndex is true when the scene class configured one.
func (s *Scene) HasSpatialIndex() bool { return s.index != nil }

func (s *Scene) FindEntityByInstanceId(id string) *Entity { return s.idMap[id] }

func (s *Scene) FindEntityByInstanceName(name string) *Entity { return s.nameMap[name] }

// ListEntitiesByClassName returns the live entities instantiated
// from the named class.
func (s *Scene) ListEntitiesByClassName(name string) []*Entity {
	var result []*Entity
	for _, entity := range s.entities {
		if entity.GetClassName() == name {
			result = append(result, entity)
		}
	}
	return result
}

func (s *Scene) FindScriptVarByName(name string) *ScriptVar {
	for _, v := range s.scriptVars {
		if v.GetName() == name {
			return v
		}
	}
	if v := s.class.FindScriptVarByName(name); v != nil && v.IsReadOnly() {
		return v
	}
	return nil
}

// SpawnEntity creates a new entity into the scene. The returned
// pointer is valid for immediate configuration but the entity is not
// linked into the tree before a later BeginLoop; with args.Async the
// construction happens on the task runner and nil is returned. A
// zero args.Delay makes the entity go live on the very next
// BeginLoop.
func (s *Scene) SpawnEntity(args EntityArgs, linkToRoot bool) *Entity {
	if args.Class == nil {
		core.LogFatal("spawn entity args missing the entity class")
	}
	if args.Async && s.runner != nil {
		state := s.asyncSpawn
		// capture the spawn time on the main thread; the worker
		// only constructs and appends.
		spawnTime := s.currentTime + args.Delay
		s.runner.Submit(func() {
			entity := NewEntity(args)
			state.mu.Lock()
			state.spawnList = append(state.spawnList, spawnRecord{
				spawnTime:  spawnTime,
				instance:   entity,
				linkToRoot: linkToRoot,
			})
			state.mu.Unlock()
		})
		return nil
	}
	entity := NewEntity(args)
	s.spawnList = append(s.spawnList, spawnRecord{
		spawnTime:  s.currentTime + args.Delay,
		instance:   entity,
		linkToRoot: linkToRoot,
	})
	if entity.IsLoggingEnabled() {
		core.LogDebug("new entity '%s/%s'", args.Class.Name, args.Name)
	}
	return entity
}

// KillEntity marks the entity for removal. Idempotent; re-killing a
// dead or dying entity is a no-op. The entity stays discoverable and
// drawable through the rest of the current loop iteration and is
// structurally removed when the iteration ends. Killing an entity whose
// spawn is still pending cancels the spawn instead; it never becomes
// visible.
func (s *Scene) KillEntity(entity *Entity) {
	if entity.HasBeenKilled() {
		return
	}
	for i, record := range s.spawnList {
		if record.instance == entity {
			s.spawnList = append(s.spawnList[:i], s.spawnList[i+1:]...)
			entity.SetControlFlag(ControlKilled, true)
			if entity.IsLoggingEnabled() {
				core.LogDebug("cancelled pending spawn of entity '%s/%s'", entity.GetClassName(), entity.GetName())
			}
			return
		}
	}
	entity.SetControlFlag(ControlKilled, true)
	s.killSet[entity] = struct{}{}
	if entity.IsLoggingEnabled() {
		core.LogDebug("entity '%s/%s' was killed", entity.GetClassName(), entity.GetName())
	}
}

// BeginLoop commits the lifecycle transitions staged during the
// previous iteration: kill flags propagate to descendants, completed
// async spawns merge in, and due pending spawns link into the scene.
func (s *Scene) BeginLoop() {
	// propagate the kill flag to the children of killed entities.
	// unlink first if propagation is not wanted.
	for entity := range s.killSet {
		entity.SetControlFlag(ControlKilled, true)
		s.renderTree.PreOrderTraverseForEach(func(child *Entity) {
			if child != nil {
				child.SetControlFlag(ControlKilled, true)
			}
		}, entity)
	}

	// drain spawns completed by the workers.
	s.asyncSpawn.mu.Lock()
	if len(s.asyncSpawn.spawnList) > 0 {
		s.spawnList = append(s.spawnList, s.asyncSpawn.spawnList...)
		s.asyncSpawn.spawnList = nil
	}
	s.asyncSpawn.mu.Unlock()

	// link the pending spawns whose time has come.
	pending := s.spawnList[:0]
	for _, record := range s.spawnList {
		if record.spawnTime > s.currentTime {
			pending = append(pending, record)
			continue
		}
		entity := record.instance
		entity.SetControlFlag(ControlSpawned, true)
		s.idMap[entity.GetId()] = entity
		s.nameMap[entity.GetName()] = entity
		if record.linkToRoot {
			s.renderTree.LinkChild(nil, entity)
		}
		s.entities = append(s.entities, entity)
		if entity.IsLoggingEnabled() {
			core.LogDebug("entity '%s/%s' was spawned", entity.GetClassName(), entity.GetName())
		}
	}
	s.spawnList = pending
	s.killSet = make(map[*Entity]struct{})
}

// Update advances scene and entity time. Entities past their
// lifetime limit request their own death, staged at EndLoop.
func (s *Scene) Update(dt float64) {
	s.currentTime += dt
	for _, entity := range s.entities {
		entity.Update(dt)
		if entity.HasExpired() && entity.TestFlag(EntityKillAtLifetime) {
			entity.Die()
		}
	}
}

// EndLoop finishes the iteration: spawn flags clear, self requested
// deaths are staged for the next iteration, and entities flagged
// killed are unlinked, erased from the spatial index and removed
// from storage.
func (s *Scene) EndLoop() {
	// propagate the kill flag through the tree while it is still
	// intact so child entities are removed with their parents.
	for entity := range s.killSet {
		s.renderTree.PreOrderTraverseForEach(func(child *Entity) {
			if child != nil {
				child.SetControlFlag(ControlKilled, true)
			}
		}, entity)
	}
	// the processed kills must not linger into the next iteration.
	// self requested deaths staged below repopulate the set.
	s.killSet = make(map[*Entity]struct{})

	var graveyard []*Entity
	for _, entity := range s.entities {
		entity.SetControlFlag(ControlSpawned, false)
		if entity.TestControlFlag(ControlWantsToDie) && !entity.HasBeenKilled() {
			s.KillEntity(entity)
			continue
		}
		if !entity.HasBeenKilled() {
			continue
		}
		if entity.IsLoggingEnabled() {
			core.LogDebug("delete entity '%s/%s'", entity.GetClassName(), entity.GetName())
		}
		s.renderTree.DeleteNode(entity)
		delete(s.idMap, entity.GetId())
		delete(s.nameMap, entity.GetName())
		graveyard = append(graveyard, entity)
	}
	if len(graveyard) == 0 {
		return
	}

	// drop the dead entities' nodes from the spatial index now
	// instead of waiting for the next rebuild.
	if s.index != nil {
		nodes := make(map[*EntityNode]struct{})
		for _, entity := range graveyard {
			for _, node := range entity.nodes {
				if node.HasSpatialNode() {
					nodes[node] = struct{}{}
				}
			}
		}
		s.index.Erase(nodes)
	}

	// only unlinked entities leave storage. entities staged through
	// WantsToDie above carry the kill flag already but stay for one
	// more iteration.
	dead := make(map[*Entity]struct{}, len(graveyard))
	for _, entity := range graveyard {
		dead[entity] = struct{}{}
	}
	kept := s.entities[:0]
	for _, entity := range s.entities {
		if _, gone := dead[entity]; !gone {
			kept = append(kept, entity)
		}
	}
	s.entities = kept

	destroy := func() {
		for _, entity := range graveyard {
			entity.renderTree.Clear()
			entity.nodes = nil
		}
	}
	if s.asyncDestroy && s.runner != nil {
		s.runner.Submit(destroy)
	} else {
		destroy()
	}
}

// Rebuild refreshes the spatial index from the current node
// transforms and stages boundary kills. Cheap no-op when neither a
// spatial index nor a boundary is configured.
func (s *Scene) Rebuild() {
	if s.index == nil && !s.class.Boundary.IsConfigured() {
		return
	}

	type indexEntry struct {
		rect math.FRect
		node *EntityNode
	}
	var entries []indexEntry
	var bounds math.FRect
	first := true

	for _, scn := range s.CollectNodes() {
		entity := scn.Entity

		if s.class.Boundary.IsConfigured() && entity.TestFlag(EntityKillAtBoundary) && !entity.HasBeenKilled() {
			rect := s.FindEntityBoundingRect(entity)
			if !s.class.Boundary.Contains(rect) {
				if entity.IsLoggingEnabled() {
					core.LogDebug("entity '%s/%s' crossed the scene boundary", entity.GetClassName(), entity.GetName())
				}
				s.KillEntity(entity)
			}
		}

		if s.index == nil {
			continue
		}
		for _, node := range entity.nodes {
			spatialNode := node.GetSpatialNode()
			if spatialNode == nil || !spatialNode.Enabled {
				continue
			}
			m := entity.FindNodeModelTransform(node).Mul(scn.EntityToScene)
			rect := math.ComputeBoundingRect(m)
			entries = append(entries, indexEntry{rect: rect, node: node})
			if first {
				bounds = rect
				first = false
			} else {
				bounds = math.RectUnion(bounds, rect)
			}
		}
	}

	if s.index == nil {
		return
	}
	bounds = bounds.Grow(indexBoundsMargin, indexBoundsMargin)
	s.index.BeginInsert(bounds)
	for _, entry := range entries {
		if !s.index.Insert(entry.rect, entry.node) {
			core.LogWarn("spatial node '%s' outside the indexed area, skipping", entry.node.GetName())
		}
	}
	s.index.EndInsert()
}

// QuerySpatialNodesByRect collects spatial nodes intersecting the
// area. All queries return empty results when no index is
// configured.
func (s *Scene) QuerySpatialNodesByRect(area math.FRect, result spatial.Collector[EntityNode]) {
	if s.index != nil {
		s.index.QueryRect(area, result)
	}
}

// QuerySpatialNodesByPoint collects spatial nodes containing the
// point.
func (s *Scene) QuerySpatialNodesByPoint(point math.FPoint, mode spatial.QueryMode, result spatial.Collector[EntityNode]) {
	if s.index != nil {
		s.index.QueryPoint(point, mode, result)
	}
}

// QuerySpatialNodesByPointRadius collects spatial nodes intersecting
// the circle.
func (s *Scene) QuerySpatialNodesByPointRadius(point math.FPoint, radius float32, mode spatial.QueryMode, result spatial.Collector[EntityNode]) {
	if s.index != nil {
		s.index.QueryPointRadius(point, radius, mode, result)
	}
}

// QuerySpatialNodesByLine collects spatial nodes intersecting the
// segment from a to b.
func (s *Scene) QuerySpatialNodesByLine(a, b math.FPoint, mode spatial.QueryMode, result spatial.Collector[EntityNode]) {
	if s.index != nil {
		s.index.QueryLine(a, b, mode, result)
	}
}

// CollectNodes flattens the render tree into entities paired with
// their entity-to-scene transforms. Entity placement transforms are
// baked into the entities' top level nodes at construction, so only
// the parent attachment node transforms compose here.
func (s *Scene) CollectNodes() []SceneNode {
	var result []SceneNode
	transform := math.NewTransform()
	var parents []*Entity
	var walk func(entity *Entity)
	walk = func(entity *Entity) {
		if entity != nil {
			parentNodeTransform := math.NewMat4Identity()
			if len(parents) > 0 {
				parent := parents[len(parents)-1]
				node := parent.FindNodeByClassId(entity.GetParentNodeClassId())
				parentNodeTransform = parent.FindNodeTransform(node)
			}
			parents = append(parents, entity)
			transform.PushMatrix(parentNodeTransform)
			result = append(result, SceneNode{
				Entity:        entity,
				EntityToScene: transform.GetAsMatrix(),
			})
		}
		s.renderTree.ForEachChild(walk, entity)
		if entity != nil {
			transform.Pop()
			parents = parents[:len(parents)-1]
		}
	}
	walk(nil)
	return result
}

// FindEntityTransform returns the entity-to-scene transform, the
// identity for root attached entities.
func (s *Scene) FindEntityTransform(entity *Entity) math.Mat4 {
	if !s.renderTree.HasNode(entity) || s.renderTree.GetParent(entity) == nil {
		return math.NewMat4Identity()
	}
	for _, scn := range s.CollectNodes() {
		if scn.Entity == entity {
			return scn.EntityToScene
		}
	}
	return math.NewMat4Identity()
}

// FindEntityNodeTransform returns the node-to-scene transform of one
// of the entity's nodes.
func (s *Scene) FindEntityNodeTransform(entity *Entity, node *EntityNode) math.Mat4 {
	return entity.FindNodeTransform(node).Mul(s.FindEntityTransform(entity))
}

// FindEntityBoundingRect returns the scene space AABB over the
// entity's nodes.
func (s *Scene) FindEntityBoundingRect(entity *Entity) math.FRect {
	var result math.FRect
	first := true
	entityToScene := s.FindEntityTransform(entity)
	for _, node := range entity.nodes {
		m := entity.FindNodeModelTransform(node).Mul(entityToScene)
		rect := math.ComputeBoundingRect(m)
		if first {
			result = rect
			first = false
		} else {
			result = math.RectUnion(result, rect)
		}
	}
	return result
}

// FindEntityNodeBoundingRect returns the scene space AABB of one
// node.
func (s *Scene) FindEntityNodeBoundingRect(entity *Entity, node *EntityNode) math.FRect {
	m := node.GetModelTransform().Mul(s.FindEntityNodeTransform(entity, node))
	return math.ComputeBoundingRect(m)
}

// FindEntityNodeBoundingBox returns the scene space oriented box of
// one node.
func (s *Scene) FindEntityNodeBoundingBox(entity *Entity, node *EntityNode) math.FBox {
	m := node.GetModelTransform().Mul(s.FindEntityNodeTransform(entity, node))
	return math.NewFBox(m)
}
