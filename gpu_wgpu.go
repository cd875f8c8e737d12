package applier

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
)

// wgpuBackend is the real GPU backend: device, queue and the window
// surface, created once at renderer install time.
type wgpuBackend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpuSurface
}

func newWGPUBackend(win *WindowState) *wgpuBackend {
	instance := wgpu.CreateInstance(nil)

	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win.windowGlfw))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		panic(err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "Main Device",
		RequiredFeatures: nil,
		RequiredLimits:   nil,
	})
	if err != nil {
		panic(err)
	}
	queue := device.GetQueue()

	caps := surface.GetCapabilities(adapter)
	surfaceConfig := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(win.Width),
		Height:      uint32(win.Height),
		PresentMode: wgpu.PresentModeFifo, // vsync
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, &surfaceConfig)

	return &wgpuBackend{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		surface: &wgpuSurface{
			surface: surface,
			adapter: adapter,
			device:  device,
			config:  surfaceConfig,
		},
	}
}

// SurfaceFormat is the swapchain's color format, which the render pipeline
// descriptor must match.
func (b *wgpuBackend) SurfaceFormat() TextureFormat {
	switch b.surface.config.Format {
	case wgpu.TextureFormatBGRA8Unorm:
		return TextureFormatBGRA8Unorm
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return TextureFormatBGRA8UnormSrgb
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return TextureFormatRGBA8UnormSrgb
	default:
		return TextureFormatRGBA8Unorm
	}
}

type wgpuDeviceBuffer struct {
	buf  *wgpu.Buffer
	size uint64
}

func (b *wgpuDeviceBuffer) Size() uint64 { return b.size }

type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (t *wgpuTexture) View() TextureView { return t.view }

type wgpuPipeline struct {
	pipeline *wgpu.RenderPipeline
}

func (p *wgpuPipeline) BindGroupLayout(group uint32) BindGroupLayout {
	return p.pipeline.GetBindGroupLayout(group)
}

func (b *wgpuBackend) CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            wgpuBufferUsage(usage),
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuDeviceBuffer{buf: buf, size: size}, nil
}

func (b *wgpuBackend) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	return b.queue.WriteBuffer(buf.(*wgpuDeviceBuffer).buf, offset, data)
}

func (b *wgpuBackend) CreateBindGroup(layout BindGroupLayout, entries []BindingEntry) (BindGroup, error) {
	wgpuEntries := make([]wgpu.BindGroupEntry, len(entries))
	for i, e := range entries {
		entry := wgpu.BindGroupEntry{
			Binding: e.Binding,
		}
		switch {
		case e.Buffer != nil:
			entry.Buffer = e.Buffer.(*wgpuDeviceBuffer).buf
			entry.Size = wgpu.WholeSize
		case e.TextureView != nil:
			entry.TextureView = e.TextureView.(*wgpu.TextureView)
			entry.Size = wgpu.WholeSize
		case e.Sampler != nil:
			entry.Sampler = e.Sampler.(*wgpu.Sampler)
			entry.Size = wgpu.WholeSize
		default:
			return nil, fmt.Errorf("binding %d has no resource", e.Binding)
		}
		wgpuEntries[i] = entry
	}

	return b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  layout.(*wgpu.BindGroupLayout),
		Entries: wgpuEntries,
	})
}

func (b *wgpuBackend) CreateRenderPipeline(desc *PipelineDescriptor) (Pipeline, error) {
	shader, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.ShaderWGSL},
	})
	if err != nil {
		return nil, err
	}
	defer shader.Release()

	layouts := make([]wgpu.VertexBufferLayout, len(desc.VertexLayouts))
	for i, l := range desc.VertexLayouts {
		attrs := make([]wgpu.VertexAttribute, len(l.Attributes))
		for j, a := range l.Attributes {
			attrs[j] = wgpu.VertexAttribute{
				ShaderLocation: a.ShaderLocation,
				Offset:         a.Offset,
				Format:         wgpuVertexFormat(a.Format),
			}
		}
		stepMode := wgpu.VertexStepModeVertex
		if l.StepMode == VertexStepModeInstance {
			stepMode = wgpu.VertexStepModeInstance
		}
		layouts[i] = wgpu.VertexBufferLayout{
			ArrayStride: l.ArrayStride,
			StepMode:    stepMode,
			Attributes:  attrs,
		}
	}

	cullMode := wgpu.CullModeNone
	if desc.CullBack {
		cullMode = wgpu.CullModeBack
	}

	var depthStencil *wgpu.DepthStencilState
	if desc.DepthFormat != TextureFormatUndefined {
		depthStencil = &wgpu.DepthStencilState{
			Format:            wgpuTextureFormat(desc.DepthFormat),
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	pipeline, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: desc.Label,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers:    layouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    wgpuTextureFormat(desc.ColorFormat),
					Blend:     nil,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode,
		},
		DepthStencil: depthStencil,
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuPipeline{pipeline: pipeline}, nil
}

func (b *wgpuBackend) CreateTexture(desc *TextureDescriptor, texels []byte) (Texture, error) {
	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if desc.RenderAttachment {
		usage = wgpu.TextureUsageRenderAttachment
	}

	extent := wgpu.Extent3D{
		Width:              desc.Width,
		Height:             desc.Height,
		DepthOrArrayLayers: 1,
	}
	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpuTextureFormat(desc.Format),
		Usage:         usage,
	})
	if err != nil {
		return nil, err
	}

	view, err := texture.CreateView(nil)
	if err != nil {
		return nil, err
	}

	if len(texels) > 0 {
		err = b.queue.WriteTexture(
			texture.AsImageCopy(),
			texels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  desc.Width * 4,
				RowsPerImage: desc.Height,
			},
			&extent,
		)
		if err != nil {
			return nil, err
		}
	}

	return &wgpuTexture{texture: texture, view: view}, nil
}

func (b *wgpuBackend) CreateSampler(desc *SamplerDescriptor) (Sampler, error) {
	filter := wgpu.FilterModeLinear
	if desc.Filter == "nearest" {
		filter = wgpu.FilterModeNearest
	}

	var addressMode wgpu.AddressMode
	switch desc.WrapMode {
	case "mirror":
		addressMode = wgpu.AddressModeMirrorRepeat
	case "clamp":
		addressMode = wgpu.AddressModeClampToEdge
	default:
		addressMode = wgpu.AddressModeRepeat
	}

	return b.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  addressMode,
		AddressModeV:  addressMode,
		AddressModeW:  addressMode,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		Compare:       wgpu.CompareFunctionUndefined,
		MaxAnisotropy: 1,
	})
}

func (b *wgpuBackend) CreateCommandRecorder() (CommandRecorder, error) {
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuRecorder{queue: b.queue, encoder: encoder}, nil
}

type wgpuRecorder struct {
	queue   *wgpu.Queue
	encoder *wgpu.CommandEncoder
}

func (r *wgpuRecorder) BeginRenderPass(desc *RenderPassDescriptor) RenderPass {
	wgpuDesc := &wgpu.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    desc.View.(*wgpu.TextureView),
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: desc.Clear.R,
					G: desc.Clear.G,
					B: desc.Clear.B,
					A: desc.Clear.A,
				},
			},
		},
	}
	if desc.DepthView != nil {
		wgpuDesc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            desc.DepthView.(*wgpu.TextureView),
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}
	}
	return &wgpuRenderPass{pass: r.encoder.BeginRenderPass(wgpuDesc)}
}

func (r *wgpuRecorder) Submit() error {
	defer r.encoder.Release()
	cmdBuffer, err := r.encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer cmdBuffer.Release()
	r.queue.Submit(cmdBuffer)
	return nil
}

type wgpuRenderPass struct {
	pass *wgpu.RenderPassEncoder
}

func (p *wgpuRenderPass) SetPipeline(pipeline Pipeline) {
	p.pass.SetPipeline(pipeline.(*wgpuPipeline).pipeline)
}

func (p *wgpuRenderPass) SetBindGroup(group uint32, bg BindGroup) {
	p.pass.SetBindGroup(group, bg.(*wgpu.BindGroup), nil)
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, buf Buffer) {
	p.pass.SetVertexBuffer(slot, buf.(*wgpuDeviceBuffer).buf, 0, wgpu.WholeSize)
}

func (p *wgpuRenderPass) SetIndexBuffer(buf Buffer, format IndexFormat) {
	wgpuFormat := wgpu.IndexFormatUint32
	if format == IndexFormatUint16 {
		wgpuFormat = wgpu.IndexFormatUint16
	}
	p.pass.SetIndexBuffer(buf.(*wgpuDeviceBuffer).buf, wgpuFormat, 0, wgpu.WholeSize)
}

func (p *wgpuRenderPass) DrawIndexed(indexCount uint32, instanceCount uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (p *wgpuRenderPass) End() error {
	defer p.pass.Release()
	return p.pass.End()
}

// wgpuSurface presents the swapchain. AcquireView reports false instead of
// failing when the surface has no usable texture, e.g. while minimized.
type wgpuSurface struct {
	surface *wgpu.Surface
	adapter *wgpu.Adapter
	device  *wgpu.Device
	config  wgpu.SurfaceConfiguration
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (s *wgpuSurface) AcquireView() (TextureView, bool) {
	texture, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, false
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, false
	}
	s.texture = texture
	s.view = view
	return view, true
}

func (s *wgpuSurface) Size() (uint32, uint32) {
	return s.config.Width, s.config.Height
}

// EnsureSize reconfigures the swapchain when the window size changed.
func (s *wgpuSurface) EnsureSize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	if s.config.Width == width && s.config.Height == height {
		return
	}
	s.config.Width = width
	s.config.Height = height
	s.surface.Configure(s.adapter, s.device, &s.config)
}

func (s *wgpuSurface) Present() {
	if s.view != nil {
		s.view.Release()
		s.view = nil
	}
	s.surface.Present()
	if s.texture != nil {
		s.texture.Release()
		s.texture = nil
	}
}

func wgpuBufferUsage(usage BufferUsage) wgpu.BufferUsage {
	var result wgpu.BufferUsage
	if usage&BufferUsageVertex != 0 {
		result |= wgpu.BufferUsageVertex
	}
	if usage&BufferUsageIndex != 0 {
		result |= wgpu.BufferUsageIndex
	}
	if usage&BufferUsageUniform != 0 {
		result |= wgpu.BufferUsageUniform
	}
	if usage&BufferUsageCopyDst != 0 {
		result |= wgpu.BufferUsageCopyDst
	}
	return result
}

func wgpuVertexFormat(format VertexFormat) wgpu.VertexFormat {
	switch format {
	case VertexFormatFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case VertexFormatFloat32x3:
		return wgpu.VertexFormatFloat32x3
	case VertexFormatFloat32x4:
		return wgpu.VertexFormatFloat32x4
	default:
		panic(fmt.Sprintf("unsupported vertex format %d", format))
	}
}

func wgpuTextureFormat(format TextureFormat) wgpu.TextureFormat {
	switch format {
	case TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case TextureFormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case TextureFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case TextureFormatBGRA8UnormSrgb:
		return wgpu.TextureFormatBGRA8UnormSrgb
	case TextureFormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	default:
		panic(fmt.Sprintf("unsupported texture format %d", format))
	}
}
