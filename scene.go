package applier

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform positions one entity in world space.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// SceneEntity is a renderable: a mesh reference plus its transform.
type SceneEntity struct {
	Mesh      MeshHandle
	Transform Transform
}

// Scene is the simulation-side list of renderable entities. A full
// entity-component scheduler is a host concern; the frame graph only needs
// mesh handles and transforms to group instances.
type Scene struct {
	entities []SceneEntity
}

type SceneModule struct{}

func (SceneModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Scene{})
}

// Spawn appends an entity and returns its index.
func (s *Scene) Spawn(mesh MeshHandle, t Transform) int {
	s.entities = append(s.entities, SceneEntity{Mesh: mesh, Transform: t})
	return len(s.entities) - 1
}

func (s *Scene) Len() int {
	return len(s.entities)
}

func (s *Scene) Clear() {
	s.entities = s.entities[:0]
}

func (s *Scene) Transform(i int) Transform {
	return s.entities[i].Transform
}

func (s *Scene) SetTransform(i int, t Transform) {
	s.entities[i].Transform = t
}

// Each visits every entity; returning false stops the walk.
func (s *Scene) Each(fn func(i int, e SceneEntity) bool) {
	for i, e := range s.entities {
		if !fn(i, e) {
			return
		}
	}
}

// SpinModule rotates every entity about the Y axis at DegreesPerSecond.
// A demo system exercising per-frame transform mutation; the changed
// transforms flow through extraction into fresh instance uploads.
type SpinModule struct {
	DegreesPerSecond float32
}

func (mod SpinModule) Install(app *App, cmd *Commands) {
	speed := mod.DegreesPerSecond
	if speed == 0 {
		speed = 30
	}
	cmd.UseSystem(
		System(func(scene *Scene, t *Time) {
			spinScene(scene, speed, float32(t.Dt.Seconds()))
		}).
			InStage(Update),
	)
}

func spinScene(scene *Scene, degreesPerSecond, dtSeconds float32) {
	step := mgl32.QuatRotate(mgl32.DegToRad(degreesPerSecond*dtSeconds), mgl32.Vec3{0, 1, 0})
	for i := 0; i < scene.Len(); i++ {
		tr := scene.Transform(i)
		tr.Rotation = step.Mul(tr.Rotation)
		scene.SetTransform(i, tr)
	}
}
