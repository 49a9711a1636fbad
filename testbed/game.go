package testbed

import (
	"fmt"

	"github.com/spaghettifunk/aurora/engine/config"
	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/math"
	"github.com/spaghettifunk/aurora/engine/renderer"
	"github.com/spaghettifunk/aurora/engine/scene"
	"github.com/spaghettifunk/aurora/engine/spatial"
	"github.com/spaghettifunk/aurora/engine/systems"
)

// Game is a headless driver that steps a scene through the frame
// loop: lifecycle, spatial index rebuild, a probe query and draw
// packet generation. It loads the configured scene from content when
// available and falls back to a built-in demo scene otherwise.
type Game struct {
	manager  *systems.SystemManager
	jobs     *systems.JobSystem
	renderer *renderer.Renderer
	scene    *scene.Scene

	spawnClass *scene.EntityClass
	frame      int
	time       float64
}

func NewGame(cfg *config.Config) (*Game, error) {
	game := &Game{}

	manager, err := systems.NewSystemManager(cfg)
	if err == nil {
		if instance, err := manager.NewSceneInstance(cfg.Scene.Name); err == nil {
			game.manager = manager
			game.jobs = manager.GetJobSystem()
			game.renderer = manager.GetRenderer()
			game.scene = instance
			return game, nil
		}
		core.LogWarn("no loadable scene '%s' in content, using the built-in demo scene", cfg.Scene.Name)
		manager.Shutdown()
	} else {
		core.LogWarn("content manager unavailable (%v), using the built-in demo scene", err)
	}

	jobs, err := systems.NewJobSystem(cfg.Workers.NumWorkers, cfg.Workers.QueueSize)
	if err != nil {
		return nil, err
	}
	library := newDemoLibrary()
	sceneClass := buildDemoScene(library)

	game.jobs = jobs
	game.renderer = renderer.NewRenderer(library)
	game.scene = scene.NewScene(sceneClass)
	game.scene.SetTaskRunner(systems.NewSceneTaskRunner(jobs))
	game.spawnClass = library.FindEntityClassByName("asteroid")
	return game, nil
}

// RunFrame advances the world one frame and returns the frame's draw
// packets.
func (g *Game) RunFrame(dt float64) []renderer.DrawPacket {
	g.frame++
	g.time += dt

	g.scene.BeginLoop()
	g.scene.Update(dt)

	// drop an asteroid in every second or so; the boundary kills
	// the ones that drift out.
	if g.spawnClass != nil && g.frame%60 == 0 {
		g.scene.SpawnEntity(scene.EntityArgs{
			Class:    g.spawnClass,
			Name:     fmt.Sprintf("asteroid_%d", g.frame),
			Position: math.NewVec2(float32(g.frame%7)*120-400, -450),
		}, true)
	}

	g.scene.Rebuild()

	if g.scene.HasSpatialIndex() {
		probe := spatial.NewSetCollector[scene.EntityNode]()
		g.scene.QuerySpatialNodesByRect(math.NewFRect(-100, -100, 200, 200), probe)
		if probe.Len() > 0 {
			core.LogDebug("frame %d: %d spatial nodes near origin", g.frame, probe.Len())
		}
	}

	g.renderer.BeginFrame()
	g.renderer.UpdateRendererState(g.scene)
	g.renderer.Update(float32(dt))
	packets := g.renderer.DrawScene(g.scene, nil, nil)
	g.renderer.EndFrame()

	g.scene.EndLoop()
	return packets
}

func (g *Game) GetScene() *scene.Scene { return g.scene }

func (g *Game) Shutdown() error {
	if g.manager != nil {
		return g.manager.Shutdown()
	}
	return g.jobs.Shutdown()
}

// demoLibrary is an in-memory class library for running without a
// content directory.
type demoLibrary struct {
	materials map[string]renderer.MaterialClass
	drawables map[string]renderer.DrawableClass
	entities  map[string]*scene.EntityClass
	scenes    map[string]*scene.SceneClass
}

func newDemoLibrary() *demoLibrary {
	lib := &demoLibrary{
		materials: make(map[string]renderer.MaterialClass),
		drawables: make(map[string]renderer.DrawableClass),
		entities:  make(map[string]*scene.EntityClass),
		scenes:    make(map[string]*scene.SceneClass),
	}
	lib.addMaterial(&renderer.ColorMaterialClass{
		Id: "mat-hull", Name: "Hull", BaseColor: math.Vec4{X: 0.6, Y: 0.6, Z: 0.7, W: 1},
	})
	lib.addMaterial(&renderer.ColorMaterialClass{
		Id: "mat-rock", Name: "Rock", BaseColor: math.Vec4{X: 0.4, Y: 0.3, Z: 0.2, W: 1},
	})
	lib.addDrawable(&renderer.ShapeDrawableClass{Id: "shape-rect", Name: "Rectangle"})
	lib.addDrawable(&renderer.ShapeDrawableClass{Id: "shape-circle", Name: "Circle"})

	lib.addEntity(buildShipClass())
	lib.addEntity(buildAsteroidClass())
	return lib
}

func (l *demoLibrary) addMaterial(c renderer.MaterialClass) { l.materials[c.GetId()] = c }
func (l *demoLibrary) addDrawable(c renderer.DrawableClass) { l.drawables[c.GetId()] = c }
func (l *demoLibrary) addEntity(c *scene.EntityClass)       { l.entities[c.Id] = c }

func (l *demoLibrary) FindMaterialClassById(id string) renderer.MaterialClass { return l.materials[id] }
func (l *demoLibrary) FindDrawableClassById(id string) renderer.DrawableClass { return l.drawables[id] }
func (l *demoLibrary) FindEntityClassById(id string) *scene.EntityClass       { return l.entities[id] }
func (l *demoLibrary) FindSceneClassById(id string) *scene.SceneClass         { return l.scenes[id] }

func (l *demoLibrary) FindEntityClassByName(name string) *scene.EntityClass {
	for _, class := range l.entities {
		if class.Name == name {
			return class
		}
	}
	return nil
}

func buildShipClass() *scene.EntityClass {
	class := scene.NewEntityClass("ship")

	body := scene.NewEntityNodeClass("body")
	body.SetSize(math.NewVec2(80, 40))
	body.Drawable = scene.NewDrawableItem()
	body.Drawable.MaterialId = "mat-hull"
	body.Drawable.DrawableId = "shape-rect"
	body.SpatialNode = scene.NewSpatialNode()

	flame := scene.NewEntityNodeClass("flame")
	flame.SetTranslation(math.NewVec2(-50, 0))
	flame.SetSize(math.NewVec2(20, 20))
	flame.Drawable = scene.NewDrawableItem()
	flame.Drawable.MaterialId = "mat-hull"
	flame.Drawable.DrawableId = "shape-circle"
	flame.Drawable.Layer = -1

	class.AddNode(body)
	class.AddNode(flame)
	class.LinkChild(nil, body)
	class.LinkChild(body, flame)
	class.AddScriptVar(scene.NewScriptVar("health", 100, false))
	return class
}

func buildAsteroidClass() *scene.EntityClass {
	class := scene.NewEntityClass("asteroid")

	rock := scene.NewEntityNodeClass("rock")
	rock.SetSize(math.NewVec2(60, 60))
	rock.Drawable = scene.NewDrawableItem()
	rock.Drawable.MaterialId = "mat-rock"
	rock.Drawable.DrawableId = "shape-circle"
	rock.SpatialNode = scene.NewSpatialNode()

	class.AddNode(rock)
	class.LinkChild(nil, rock)
	class.Flags.Set(scene.EntityKillAtBoundary, true)
	return class
}

func buildDemoScene(lib *demoLibrary) *scene.SceneClass {
	class := scene.NewSceneClass("demo")
	class.IndexSetting = scene.IndexSetting{
		Kind: scene.IndexQuadTree,
		QuadTree: scene.QuadTreeArgs{
			MaxItems:  spatial.DefaultQuadTreeMaxItems,
			MaxLevels: spatial.DefaultQuadTreeMaxLevels,
		},
	}
	left, right := float32(-600), float32(600)
	top, bottom := float32(-500), float32(500)
	class.Boundary = scene.BoundarySetting{
		Left: &left, Right: &right, Top: &top, Bottom: &bottom,
	}

	ship := lib.FindEntityClassByName("ship")
	for i := 0; i < 3; i++ {
		placement := scene.NewEntityPlacement(ship, fmt.Sprintf("ship_%d", i))
		placement.Position = math.NewVec2(float32(i)*200-200, 0)
		class.PlaceEntity(placement)
		class.LinkChild(nil, placement)
	}
	lib.scenes[class.Id] = class
	return class
}
