package applier

// ExtractedFrame is the render-side snapshot of simulation state, rebuilt
// once per frame at the Extract stage. Render-side readers only ever see a
// complete snapshot; the sequential stage walk guarantees extraction
// finishes before any prepare system runs.
type ExtractedFrame struct {
	CursorX float32
	CursorY float32
	Width   uint32
	Height  uint32
	Camera  CameraUniform

	// Instances groups the scene's entities by mesh handle, ready for the
	// per-mesh instance buffer stages.
	Instances map[MeshHandle][]Instance
}

// NewExtractedFrame returns the first-frame snapshot: cursor at (0,0) and
// no instances.
func NewExtractedFrame() *ExtractedFrame {
	return &ExtractedFrame{
		Instances: make(map[MeshHandle][]Instance),
	}
}

// Snapshot copies the simulation state into the frame. Every scene entity
// lands in exactly one per-mesh list; an empty scene produces an empty map
// and the surface pass draws nothing.
func (f *ExtractedFrame) Snapshot(cursor *CursorState, win *WindowState, cam *Camera, scene *Scene) {
	f.CursorX = float32(cursor.X)
	f.CursorY = float32(cursor.Y)
	f.Width = uint32(win.Width)
	f.Height = uint32(win.Height)
	f.Camera = CameraUniform{ViewProj: cam.ViewProjection()}

	f.Instances = make(map[MeshHandle][]Instance, len(f.Instances))
	scene.Each(func(i int, e SceneEntity) bool {
		f.Instances[e.Mesh] = append(f.Instances[e.Mesh], Instance{
			Position: e.Transform.Position,
			Rotation: e.Transform.Rotation,
		})
		return true
	})
}

func extractFrameSystem(frame *ExtractedFrame, cursor *CursorState, win *WindowState, cam *Camera, scene *Scene) {
	frame.Snapshot(cursor, win, cam, scene)
}
