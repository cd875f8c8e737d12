package applier

import (
	"bytes"
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// renderState is the renderer's private wiring: the GPU backend, the asset
// handles the demo material uses, and the depth attachment. Published as a
// resource so the prepare and render systems can reach it.
type renderState struct {
	device   Device
	surfaces []SurfaceTarget
	// resize reconfigures the swapchain when the window size changes; nil
	// for backends without one.
	resize func(width, height uint32)
	log    Logger

	mesh       MeshHandle
	texture    TextureHandle
	sampler    Sampler
	samplerKey SamplerHandle
	pipeline   PipelineHandle
	clearColor ClearColorFunc

	depth       Texture
	depthWidth  uint32
	depthHeight uint32
}

// RendererModule installs the frame pipeline: extraction, resource staging,
// bind group preparation and the frame-graph-driven surface pass. It
// requires WindowModule to be installed first.
//
// Zero-valued fields fall back to the demo defaults: a 10x10 grid
// spaced 3 apart, a 45 degree camera at (0,5,10), and a checkerboard
// material. MeshOBJ and TexturePNG override the pentagon mesh and the
// procedural texture with file contents.
type RendererModule struct {
	GridSize   int
	Spacing    float32
	FovDegrees float32
	Near       float32
	Far        float32
	ClearColor ClearColorFunc
	MeshOBJ    []byte
	TexturePNG []byte
}

func NewRendererModule() RendererModule {
	return RendererModule{}
}

func (mod RendererModule) Install(app *App, cmd *Commands) {
	if mod.GridSize <= 0 {
		mod.GridSize = 10
	}
	if mod.Spacing <= 0 {
		mod.Spacing = 3.0
	}
	if mod.FovDegrees <= 0 {
		mod.FovDegrees = 45.0
	}
	if mod.Near <= 0 {
		mod.Near = 0.1
	}
	if mod.Far <= 0 {
		mod.Far = 100.0
	}
	if mod.ClearColor == nil {
		mod.ClearColor = CursorClearColor
	}

	win := Resource[WindowState](app)
	if win == nil {
		panic("RendererModule requires WindowModule to be installed first")
	}

	log := app.Logger()
	backend := newWGPUBackend(win)

	assets := Resource[AssetServer](app)
	if assets == nil {
		assets = NewAssetServer()
		cmd.AddResources(assets)
	}

	var mesh MeshHandle
	if len(mod.MeshOBJ) > 0 {
		var err error
		mesh, err = assets.LoadMeshOBJ(bytes.NewReader(mod.MeshOBJ))
		if err != nil {
			panic(err)
		}
	} else {
		mesh = assets.AddMesh(PentagonVertices, PentagonIndices)
	}

	var texture TextureHandle
	if len(mod.TexturePNG) > 0 {
		var err error
		texture, err = assets.LoadTexturePNG(bytes.NewReader(mod.TexturePNG))
		if err != nil {
			panic(err)
		}
	} else {
		texture = assets.CreateTexture(CheckerTexels(256), 256, 256, TextureFormatRGBA8Unorm)
	}

	samplerKey := assets.CreateSampler("linear", "wrap")
	samplerDesc, _ := assets.SamplerDesc(samplerKey)
	sampler, err := backend.CreateSampler(&samplerDesc)
	if err != nil {
		panic(err)
	}

	scene := Resource[Scene](app)
	if scene == nil {
		scene = &Scene{}
		cmd.AddResources(scene)
	}
	for _, inst := range BuildInstanceGrid(mod.GridSize, mod.Spacing) {
		scene.Spawn(mesh, Transform{
			Position: inst.Position,
			Rotation: inst.Rotation,
		})
	}

	camera := &Camera{
		Eye:        mgl32.Vec3{0, 5, 10},
		Target:     mgl32.Vec3{0, 0, 0},
		Up:         mgl32.Vec3{0, 1, 0},
		Aspect:     float32(win.Width) / float32(win.Height),
		FovDegrees: mod.FovDegrees,
		Near:       mod.Near,
		Far:        mod.Far,
	}

	pipelines := NewPipelineRegistry()
	pipeline := pipelines.Register(&PipelineDescriptor{
		Label:      "mesh_pipeline",
		ShaderWGSL: shaderWGSL,
		VertexLayouts: []VertexBufferLayout{
			VertexLayoutOf(Vertex{}, VertexStepModeVertex),
			VertexLayoutOf(InstanceRaw{}, VertexStepModeInstance),
		},
		ColorFormat: backend.SurfaceFormat(),
		DepthFormat: TextureFormatDepth32Float,
		CullBack:    true,
	})

	// The renderer takes over the draw schedule from the host's default
	// driver node. A graph without that node is not the graph this module
	// was built against.
	graph := NewFrameGraph()
	if err := graph.RemoveNode(CameraDriverLabel); err != nil {
		panic(err)
	}
	graph.AddSubgraph(SubgraphLabel)
	graph.AddSubgraphNode(SubgraphLabel, SurfaceNodeLabel, NodeSurfaceDraw)
	graph.AddExecuteNode(ExecuteNodeLabel, SubgraphLabel)

	state := &renderState{
		device:     backend,
		surfaces:   []SurfaceTarget{backend.surface},
		resize:     backend.surface.EnsureSize,
		log:        log,
		mesh:       mesh,
		texture:    texture,
		sampler:    sampler,
		samplerKey: samplerKey,
		pipeline:   pipeline,
		clearColor: mod.ClearColor,
	}

	cmd.AddResources(
		camera,
		NewExtractedFrame(),
		NewRenderBuffers(),
		NewBindGroupCache(),
		pipelines,
		&PreparedBindGroups{},
		graph,
		state,
	)

	app.UseSystem(System(cameraAspectSystem).InStage(Update))
	app.UseSystem(System(cameraMoveSystem).InStage(Update))
	app.UseSystem(System(extractFrameSystem).InStage(Extract))
	app.UseSystem(System(prepareResourcesSystem).InStage(PrepareResources))
	app.UseSystem(System(prepareBindGroupsSystem).InStage(PrepareBindGroups))
	app.UseSystem(System(renderSystem).InStage(Render))
}

func cameraAspectSystem(cam *Camera, win *WindowState) {
	if win.Height > 0 {
		cam.Aspect = float32(win.Width) / float32(win.Height)
	}
}

// prepareResourcesSystem mirrors this frame's extracted data into device
// buffers: static mesh geometry on first sight, per-mesh instance arrays
// every frame, the camera uniform, the depth attachment, and any texture
// not yet resident. Unchanged stages upload nothing.
func prepareResourcesSystem(state *renderState, frame *ExtractedFrame, buffers *RenderBuffers, assets *AssetServer) {
	dev := state.device
	if state.resize != nil {
		state.resize(frame.Width, frame.Height)
	}

	for mesh, instances := range frame.Instances {
		vertexStage, ok := buffers.Vertex[mesh]
		if !ok {
			vertexStage = NewBufferStage[Vertex](string(mesh)+"/vertex", BufferUsageVertex)
			buffers.Vertex[mesh] = vertexStage
		}
		indexStage, ok := buffers.Index[mesh]
		if !ok {
			indexStage = NewBufferStage[uint32](string(mesh)+"/index", BufferUsageIndex)
			buffers.Index[mesh] = indexStage
		}
		instanceStage, ok := buffers.Instances[mesh]
		if !ok {
			instanceStage = NewBufferStage[InstanceRaw](string(mesh)+"/instance", BufferUsageVertex)
			buffers.Instances[mesh] = instanceStage
		}

		if asset, ok := assets.Mesh(mesh); ok {
			vertexStage.Write(asset.Vertices)
			indexStage.Write(asset.Indices)
		}
		instanceStage.Write(instancesToRaw(instances))

		if err := vertexStage.Upload(dev); err != nil {
			state.log.Errorf("vertex upload for %q: %v", mesh, err)
		}
		if err := indexStage.Upload(dev); err != nil {
			state.log.Errorf("index upload for %q: %v", mesh, err)
		}
		if err := instanceStage.Upload(dev); err != nil {
			state.log.Errorf("instance upload for %q: %v", mesh, err)
		}
	}

	// A mesh that left the frame must not keep drawing its previous
	// instances; empty its stage so the pass skips it.
	for mesh, instanceStage := range buffers.Instances {
		if _, ok := frame.Instances[mesh]; ok {
			continue
		}
		instanceStage.Write(nil)
		if err := instanceStage.Upload(dev); err != nil {
			state.log.Errorf("instance upload for %q: %v", mesh, err)
		}
	}

	buffers.Camera.WriteUniform(frame.Camera)
	if err := buffers.Camera.Upload(dev); err != nil {
		state.log.Errorf("camera upload: %v", err)
	}

	if frame.Width > 0 && frame.Height > 0 {
		if state.depth == nil || state.depthWidth != frame.Width || state.depthHeight != frame.Height {
			depth, err := dev.CreateTexture(&TextureDescriptor{
				Label:            "depth_texture",
				Width:            frame.Width,
				Height:           frame.Height,
				Format:           TextureFormatDepth32Float,
				RenderAttachment: true,
			}, nil)
			if err != nil {
				state.log.Errorf("depth texture: %v", err)
			} else {
				state.depth = depth
				state.depthWidth = frame.Width
				state.depthHeight = frame.Height
			}
		}
	}

	if err := assets.UploadTexture(state.texture, dev); err != nil {
		state.log.Errorf("texture upload for %q: %v", state.texture, err)
	}
}

// prepareBindGroupsSystem compiles pending pipelines and builds the
// material and camera bind groups through the cache. A bind group whose
// resources are not yet resident stays nil for the frame; the pass then
// clears without drawing.
func prepareBindGroupsSystem(state *renderState, buffers *RenderBuffers, assets *AssetServer, pipelines *PipelineRegistry, cache *BindGroupCache, prepared *PreparedBindGroups) {
	dev := state.device
	pipelines.Compile(dev, state.log)

	pipeline, ok := pipelines.Resolve(state.pipeline)
	if !ok {
		prepared.Material = nil
		prepared.Camera = nil
		return
	}

	materialKey := BindGroupKey{Group: 0, Identity: string(state.texture) + "/" + string(state.samplerKey)}
	material, err := cache.GetOrBuild(materialKey, func() (BindGroup, error) {
		texture, err := assets.DeviceTexture(state.texture)
		if err != nil {
			return nil, err
		}
		return dev.CreateBindGroup(pipeline.BindGroupLayout(0), []BindingEntry{
			{Binding: 0, TextureView: texture.View()},
			{Binding: 1, Sampler: state.sampler},
		})
	})
	if err != nil {
		if !errors.Is(err, ErrNotReady) {
			state.log.Errorf("material bind group: %v", err)
		}
		prepared.Material = nil
	} else {
		prepared.Material = material
	}

	cameraKey := BindGroupKey{Group: 1, Identity: "camera"}
	camera, err := cache.GetOrBuild(cameraKey, func() (BindGroup, error) {
		buf, err := buffers.Camera.Buffer()
		if err != nil {
			return nil, err
		}
		return dev.CreateBindGroup(pipeline.BindGroupLayout(1), []BindingEntry{
			{Binding: 0, Buffer: buf},
		})
	})
	if err != nil {
		if !errors.Is(err, ErrNotReady) {
			state.log.Errorf("camera bind group: %v", err)
		}
		prepared.Camera = nil
	} else {
		prepared.Camera = camera
	}
}

// renderSystem records and submits the frame: one command recorder, the
// frame graph walk, and a present per surface.
func renderSystem(state *renderState, frame *ExtractedFrame, buffers *RenderBuffers, pipelines *PipelineRegistry, prepared *PreparedBindGroups, graph *FrameGraph) {
	recorder, err := state.device.CreateCommandRecorder()
	if err != nil {
		state.log.Errorf("command recorder: %v", err)
		return
	}

	var depthView TextureView
	if state.depth != nil {
		depthView = state.depth.View()
	}

	ctx := &RenderContext{
		Device:     state.device,
		Recorder:   recorder,
		Surfaces:   state.surfaces,
		Frame:      frame,
		Buffers:    buffers,
		Pipelines:  pipelines,
		Pipeline:   state.pipeline,
		BindGroups: prepared,
		DepthView:  depthView,
		ClearColor: state.clearColor,
		Log:        state.log,
	}

	if err := graph.Run(ctx); err != nil {
		state.log.Errorf("frame graph: %v", err)
		return
	}
	if err := recorder.Submit(); err != nil {
		state.log.Errorf("submit: %v", err)
		return
	}
	for _, surface := range ctx.Surfaces {
		surface.Present()
	}
}
