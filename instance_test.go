package applier

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestBuildInstanceGrid_Count(t *testing.T) {
	instances := BuildInstanceGrid(10, 3.0)
	if len(instances) != 100 {
		t.Errorf("Expected 100 instances for a 10x10 grid, got %d", len(instances))
	}
}

func TestBuildInstanceGrid_Empty(t *testing.T) {
	if got := BuildInstanceGrid(0, 3.0); len(got) != 0 {
		t.Errorf("Expected no instances for size 0, got %d", len(got))
	}
}

func TestBuildInstanceGrid_Placement(t *testing.T) {
	instances := BuildInstanceGrid(10, 3.0)

	// Cell (0,0): scaled to the origin, then shifted by half the grid size.
	first := instances[0]
	expected := mgl32.Vec3{-5, 0, -5}
	if !first.Position.ApproxEqual(expected) {
		t.Errorf("Expected first instance at %v, got %v", expected, first.Position)
	}

	// Cell (9,9): (27,0,27) minus the displacement.
	last := instances[99]
	expected = mgl32.Vec3{22, 0, 22}
	if !last.Position.ApproxEqual(expected) {
		t.Errorf("Expected last instance at %v, got %v", expected, last.Position)
	}
}

func TestBuildInstanceGrid_OriginKeepsIdentityRotation(t *testing.T) {
	// With size 2 and spacing 1, cell (1,1) lands exactly on the origin.
	instances := BuildInstanceGrid(2, 1.0)

	found := false
	for _, inst := range instances {
		if inst.Position.ApproxEqual(mgl32.Vec3{}) {
			found = true
			if !inst.Rotation.ApproxEqual(mgl32.QuatIdent()) {
				t.Errorf("Expected identity rotation at the origin, got %v", inst.Rotation)
			}
		} else {
			if inst.Rotation.ApproxEqual(mgl32.QuatIdent()) {
				t.Errorf("Expected a non-identity rotation at %v", inst.Position)
			}
		}
	}
	if !found {
		t.Fatalf("Expected one instance exactly on the origin")
	}
}

func TestBuildInstanceGrid_RotationAxis(t *testing.T) {
	instances := BuildInstanceGrid(10, 3.0)

	inst := instances[0]
	expected := mgl32.QuatRotate(mgl32.DegToRad(45), inst.Position.Normalize())
	if !inst.Rotation.ApproxEqual(expected) {
		t.Errorf("Expected 45 degree rotation about the normalized position, got %v", inst.Rotation)
	}
}

func TestInstance_ToRaw(t *testing.T) {
	inst := Instance{
		Position: mgl32.Vec3{1, 2, 3},
		Rotation: mgl32.QuatIdent(),
	}

	raw := inst.ToRaw()
	expected := mgl32.Translate3D(1, 2, 3)
	require.True(t, raw.Model.ApproxEqual(expected), "identity rotation reduces the model matrix to a translation")
}

func TestInstance_ToRawComposesRotation(t *testing.T) {
	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	inst := Instance{
		Position: mgl32.Vec3{1, 0, 0},
		Rotation: rot,
	}

	raw := inst.ToRaw()
	expected := mgl32.Translate3D(1, 0, 0).Mul4(rot.Mat4())
	require.True(t, raw.Model.ApproxEqualThreshold(expected, 1e-6))
}

func TestInstancesToRaw(t *testing.T) {
	raw := instancesToRaw(BuildInstanceGrid(3, 2.0))
	if len(raw) != 9 {
		t.Errorf("Expected 9 raw instances, got %d", len(raw))
	}
}
