package applier

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Instance is one draw-time copy of a shared mesh, rebuilt from simulation
// transforms every frame and discarded at frame end.
type Instance struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// InstanceRaw is the flattened model matrix uploaded to the per-instance
// vertex buffer. Locations 5-8 follow the vertex attributes of the mesh.
type InstanceRaw struct {
	Model mgl32.Mat4 `applier:"layout" format:"float4x4" location:"5"`
}

func (i Instance) ToRaw() InstanceRaw {
	return InstanceRaw{
		Model: mgl32.Translate3D(i.Position.X(), i.Position.Y(), i.Position.Z()).Mul4(i.Rotation.Mat4()),
	}
}

func instancesToRaw(instances []Instance) []InstanceRaw {
	raw := make([]InstanceRaw, len(instances))
	for i, inst := range instances {
		raw[i] = inst.ToRaw()
	}
	return raw
}

// BuildInstanceGrid lays out size x size instances spacing units apart on
// the XZ plane, shifted by half the grid size so the arrangement is
// centered near the origin. An instance landing exactly on the origin keeps
// the identity rotation; rotating about a normalized zero vector would
// divide by zero. Every other instance rotates 45 degrees about its own
// normalized position.
func BuildInstanceGrid(size int, spacing float32) []Instance {
	displacement := mgl32.Vec3{float32(size) * 0.5, 0, float32(size) * 0.5}

	instances := make([]Instance, 0, size*size)
	for z := 0; z < size; z++ {
		for x := 0; x < size; x++ {
			position := mgl32.Vec3{float32(x), 0, float32(z)}.Mul(spacing).Sub(displacement)

			var rotation mgl32.Quat
			if position.ApproxEqual(mgl32.Vec3{}) {
				rotation = mgl32.QuatIdent()
			} else {
				rotation = mgl32.QuatRotate(mgl32.DegToRad(45), position.Normalize())
			}

			instances = append(instances, Instance{
				Position: position,
				Rotation: rotation,
			})
		}
	}
	return instances
}
