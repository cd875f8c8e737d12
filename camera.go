package applier

import (
	"github.com/go-gl/mathgl/mgl32"
)

// openglToWGPU remaps clip-space depth from OpenGL's [-1,1] to WGPU's [0,1].
var openglToWGPU = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Camera is the authoritative simulation-side camera. The render side never
// reads it directly; its view-projection matrix is snapshotted into the
// ExtractedFrame once per frame.
type Camera struct {
	Eye        mgl32.Vec3
	Target     mgl32.Vec3
	Up         mgl32.Vec3
	Aspect     float32
	FovDegrees float32
	Near       float32
	Far        float32
}

func (c *Camera) ViewProjection() mgl32.Mat4 {
	view := mgl32.LookAtV(c.Eye, c.Target, c.Up)
	proj := mgl32.Perspective(mgl32.DegToRad(c.FovDegrees), c.Aspect, c.Near, c.Far)
	return openglToWGPU.Mul4(proj).Mul4(view)
}

// CameraUniform is the GPU-side mirror of the camera, recomputed from
// scratch every extraction cycle.
type CameraUniform struct {
	ViewProj mgl32.Mat4
}

const cameraSpeed = 0.2

// cameraMoveSystem applies WASD movement: forward/backward along the view
// direction, left/right orbiting the target at constant distance.
func cameraMoveSystem(cam *Camera, input *Input) {
	forward := cam.Target.Sub(cam.Eye)
	forwardNorm := forward.Normalize()

	if input.Forward {
		cam.Eye = cam.Eye.Add(forwardNorm.Mul(cameraSpeed))
	}
	if input.Backward {
		cam.Eye = cam.Eye.Sub(forwardNorm.Mul(cameraSpeed))
	}

	right := forwardNorm.Cross(cam.Up)

	forward = cam.Target.Sub(cam.Eye)
	forwardMag := forward.Len()

	if input.Right {
		cam.Eye = cam.Target.Sub(forward.Add(right.Mul(cameraSpeed)).Normalize().Mul(forwardMag))
	}
	if input.Left {
		cam.Eye = cam.Target.Sub(forward.Sub(right.Mul(cameraSpeed)).Normalize().Mul(forwardMag))
	}
}
