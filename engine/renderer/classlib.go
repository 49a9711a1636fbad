package renderer

import "github.com/spaghettifunk/aurora/engine/scene"

// ClassLibrary resolves resource class ids into loaded class
// objects. Lookups return nil for unknown ids; callers log and carry
// on without the resource.
type ClassLibrary interface {
	FindMaterialClassById(id string) MaterialClass
	FindDrawableClassById(id string) DrawableClass
	FindEntityClassById(id string) *scene.EntityClass
	FindEntityClassByName(name string) *scene.EntityClass
	FindSceneClassById(id string) *scene.SceneClass
}
