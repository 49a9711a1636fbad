package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/aurora/engine/containers"
	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/math"
	"github.com/spaghettifunk/aurora/engine/renderer"
	"github.com/spaghettifunk/aurora/engine/scene"
)

// ClassType identifies what kind of class definition a content file
// holds, determined from the file name suffix.
type ClassType int

const (
	ClassTypeNone ClassType = iota
	ClassTypeEntity
	ClassTypeScene
	ClassTypeMaterial
	ClassTypeDrawable
)

type classRecord struct {
	classType  ClassType
	classId    string
	lastLoaded time.Time
}

// ContentManager loads entity, scene, material and drawable class
// definitions from JSON files under a content directory and watches
// the directory so edited files hot-reload. It implements the
// renderer's ClassLibrary lookup.
type ContentManager struct {
	mutex sync.RWMutex

	entityClasses map[string]*scene.EntityClass
	sceneClasses  map[string]*scene.SceneClass
	materials     map[string]renderer.MaterialClass
	drawables     map[string]renderer.DrawableClass
	files         map[string]classRecord

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

var _ renderer.ClassLibrary = (*ContentManager)(nil)

func NewContentManager() (*ContentManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ContentManager{
		entityClasses: make(map[string]*scene.EntityClass),
		sceneClasses:  make(map[string]*scene.SceneClass),
		materials:     make(map[string]renderer.MaterialClass),
		drawables:     make(map[string]renderer.DrawableClass),
		files:         make(map[string]classRecord),
		fsnotify:      fsWatch,
		done:          make(chan struct{}),
	}, nil
}

// Initialize loads every class file under contentDir and starts the
// watch loop. Invalid files log a warning and are skipped; the
// manager still comes up with whatever loaded.
func (cm *ContentManager) Initialize(contentDir string) error {
	if err := cm.watchRecursive(contentDir); err != nil {
		return fmt.Errorf("watch content dir: %w", err)
	}
	go cm.start()
	return nil
}

func (cm *ContentManager) Close() {
	if cm.isClosed {
		return
	}
	cm.isClosed = true
	close(cm.done)
}

// editors tend to fire several write events per save; reloads are
// queued and drained on a short interval so each burst loads the
// file once.
const reloadInterval = 100 * time.Millisecond

func (cm *ContentManager) start() {
	pending := containers.NewRingQueue[string](64)
	ticker := time.NewTicker(reloadInterval)
	defer ticker.Stop()
	for {
		select {
		case e := <-cm.fsnotify.Events:
			if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					cm.watchRecursive(e.Name)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if pending.IsFull() {
					cm.drainReloads(pending)
				}
				pending.Enqueue(e.Name)
			}
			if e.Op&fsnotify.Remove != 0 {
				cm.removeFile(e.Name)
				cm.fsnotify.Remove(e.Name)
			}

		case <-ticker.C:
			cm.drainReloads(pending)

		case e := <-cm.fsnotify.Errors:
			core.LogError("content watch: %v", e)

		case <-cm.done:
			cm.drainReloads(pending)
			cm.fsnotify.Close()
			return
		}
	}
}

// drainReloads empties the pending queue, loading each distinct path
// once.
func (cm *ContentManager) drainReloads(pending *containers.RingQueue[string]) {
	seen := make(map[string]struct{})
	for !pending.IsEmpty() {
		path, err := pending.Dequeue()
		if err != nil {
			return
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		cm.loadFile(path)
	}
}

// watchRecursive adds all directories under path to the watch list
// and loads the class files found on the way.
func (cm *ContentManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return cm.fsnotify.Add(walkPath)
		}
		cm.loadFile(walkPath)
		return nil
	})
}

// DetermineClassType maps a content file name to the class type it
// defines.
func DetermineClassType(path string) ClassType {
	name := filepath.Base(path)
	switch {
	case strings.HasSuffix(name, ".entity.json"):
		return ClassTypeEntity
	case strings.HasSuffix(name, ".scene.json"):
		return ClassTypeScene
	case strings.HasSuffix(name, ".material.json"):
		return ClassTypeMaterial
	case strings.HasSuffix(name, ".drawable.json"):
		return ClassTypeDrawable
	}
	return ClassTypeNone
}

func (cm *ContentManager) loadFile(path string) {
	classType := DetermineClassType(path)
	if classType == ClassTypeNone {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		core.LogWarn("failed to read class file '%s': %v", path, err)
		return
	}

	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	var classId string
	switch classType {
	case ClassTypeEntity:
		class, err := scene.EntityClassFromJson(data)
		if err != nil {
			core.LogWarn("failed to load entity class '%s': %v", path, err)
			return
		}
		cm.entityClasses[class.Id] = class
		classId = class.Id
	case ClassTypeScene:
		class, err := scene.SceneClassFromJson(data, func(id string) *scene.EntityClass {
			return cm.entityClasses[id]
		})
		if err != nil {
			core.LogWarn("failed to load scene class '%s': %v", path, err)
			return
		}
		cm.sceneClasses[class.Id] = class
		classId = class.Id
	case ClassTypeMaterial:
		class, err := materialClassFromJson(data)
		if err != nil {
			core.LogWarn("failed to load material class '%s': %v", path, err)
			return
		}
		cm.materials[class.GetId()] = class
		classId = class.GetId()
	case ClassTypeDrawable:
		class, err := drawableClassFromJson(data)
		if err != nil {
			core.LogWarn("failed to load drawable class '%s': %v", path, err)
			return
		}
		cm.drawables[class.GetId()] = class
		classId = class.GetId()
	}
	cm.files[path] = classRecord{
		classType:  classType,
		classId:    classId,
		lastLoaded: time.Now(),
	}
	// entity class edits re-resolve scene placements so their
	// entity references stay current (or turn broken).
	if classType == ClassTypeEntity {
		cm.relinkPlacements()
	}
	core.LogDebug("loaded class file '%s'", path)
}

func (cm *ContentManager) removeFile(path string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	record, ok := cm.files[path]
	if !ok {
		return
	}
	delete(cm.files, path)
	switch record.classType {
	case ClassTypeEntity:
		delete(cm.entityClasses, record.classId)
		cm.relinkPlacements()
	case ClassTypeScene:
		delete(cm.sceneClasses, record.classId)
	case ClassTypeMaterial:
		delete(cm.materials, record.classId)
	case ClassTypeDrawable:
		delete(cm.drawables, record.classId)
	}
	core.LogDebug("removed class file '%s'", path)
}

// relinkPlacements re-points every scene placement at the current
// entity class objects. A placement whose class is gone becomes
// broken and is skipped at scene instantiation. Caller holds the
// write lock.
func (cm *ContentManager) relinkPlacements() {
	for _, sceneClass := range cm.sceneClasses {
		for i := 0; i < sceneClass.GetNumPlacements(); i++ {
			placement := sceneClass.GetPlacement(i)
			placement.EntityClass = cm.entityClasses[placement.EntityClassId]
		}
	}
}

func (cm *ContentManager) FindMaterialClassById(id string) renderer.MaterialClass {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	if class, ok := cm.materials[id]; ok {
		return class
	}
	return nil
}

func (cm *ContentManager) FindDrawableClassById(id string) renderer.DrawableClass {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	if class, ok := cm.drawables[id]; ok {
		return class
	}
	return nil
}

func (cm *ContentManager) FindEntityClassById(id string) *scene.EntityClass {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return cm.entityClasses[id]
}

func (cm *ContentManager) FindEntityClassByName(name string) *scene.EntityClass {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	for _, class := range cm.entityClasses {
		if class.Name == name {
			return class
		}
	}
	return nil
}

func (cm *ContentManager) FindSceneClassById(id string) *scene.SceneClass {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return cm.sceneClasses[id]
}

// FindSceneClassByName resolves a scene class by name; used by the
// boot path where the config names the scene to load.
func (cm *ContentManager) FindSceneClassByName(name string) *scene.SceneClass {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	for _, class := range cm.sceneClasses {
		if class.Name == name {
			return class
		}
	}
	return nil
}

type materialClassJson struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Color struct {
		R float32 `json:"r"`
		G float32 `json:"g"`
		B float32 `json:"b"`
		A float32 `json:"a"`
	} `json:"color"`
}

func materialClassFromJson(data []byte) (renderer.MaterialClass, error) {
	var chunk materialClassJson
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, err
	}
	if chunk.Id == "" {
		return nil, fmt.Errorf("material class missing id")
	}
	return &renderer.ColorMaterialClass{
		Id:        chunk.Id,
		Name:      chunk.Name,
		BaseColor: math.Vec4{X: chunk.Color.R, Y: chunk.Color.G, Z: chunk.Color.B, W: chunk.Color.A},
	}, nil
}

type drawableClassJson struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

func drawableClassFromJson(data []byte) (renderer.DrawableClass, error) {
	var chunk drawableClassJson
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, err
	}
	if chunk.Id == "" {
		return nil, fmt.Errorf("drawable class missing id")
	}
	return &renderer.ShapeDrawableClass{Id: chunk.Id, Name: chunk.Name}, nil
}
