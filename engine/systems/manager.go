package systems

import (
	"fmt"

	"github.com/spaghettifunk/aurora/engine/assets"
	"github.com/spaghettifunk/aurora/engine/config"
	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/renderer"
	"github.com/spaghettifunk/aurora/engine/scene"
)

// SystemManager owns the engine subsystems and wires them together:
// config drives the job system and content manager, the content
// manager feeds class lookups to the renderer, and scenes are
// instantiated against the loaded classes.
type SystemManager struct {
	cfg       *config.Config
	jobSystem *JobSystem
	content   *assets.ContentManager
	renderer  *renderer.Renderer
}

func NewSystemManager(cfg *config.Config) (*SystemManager, error) {
	core.SetLogLevel(cfg.LogLevel)

	js, err := NewJobSystem(cfg.Workers.NumWorkers, cfg.Workers.QueueSize)
	if err != nil {
		return nil, err
	}
	cm, err := assets.NewContentManager()
	if err != nil {
		return nil, err
	}
	if err := cm.Initialize(cfg.ContentDir); err != nil {
		return nil, err
	}
	return &SystemManager{
		cfg:       cfg,
		jobSystem: js,
		content:   cm,
		renderer:  renderer.NewRenderer(cm),
	}, nil
}

func (sm *SystemManager) GetJobSystem() *JobSystem { return sm.jobSystem }

func (sm *SystemManager) GetContentManager() *assets.ContentManager { return sm.content }

func (sm *SystemManager) GetRenderer() *renderer.Renderer { return sm.renderer }

// NewSceneInstance instantiates the named scene class with the
// config's index and boundary overrides applied and the job system
// installed for async spawn and destroy.
func (sm *SystemManager) NewSceneInstance(name string) (*scene.Scene, error) {
	class := sm.content.FindSceneClassByName(name)
	if class == nil {
		return nil, fmt.Errorf("no such scene class '%s'", name)
	}
	if sm.cfg.Scene.HasIndexOverride() {
		setting, err := sm.cfg.Scene.IndexSetting()
		if err != nil {
			return nil, err
		}
		class.IndexSetting = setting
	}
	if boundary := sm.cfg.Scene.Boundary(); boundary.IsConfigured() {
		class.Boundary = boundary
	}
	instance := scene.NewScene(class)
	instance.SetTaskRunner(NewSceneTaskRunner(sm.jobSystem))
	return instance, nil
}

func (sm *SystemManager) Shutdown() error {
	sm.content.Close()
	return sm.jobSystem.Shutdown()
}
