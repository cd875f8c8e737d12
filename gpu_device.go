package applier

import (
	"errors"
)

// ErrNotReady marks a GPU resource that has not been built or uploaded yet.
// Callers skip the current pass and retry next frame; it is never fatal.
var ErrNotReady = errors.New("gpu resource not ready")

type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageCopyDst
)

type IndexFormat uint32

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

type TextureFormat uint32

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSrgb
	TextureFormatBGRA8Unorm
	TextureFormatBGRA8UnormSrgb
	TextureFormatDepth32Float
)

type VertexStepMode uint32

const (
	VertexStepModeVertex VertexStepMode = iota
	VertexStepModeInstance
)

type VertexFormat uint32

const (
	VertexFormatFloat32x2 VertexFormat = iota
	VertexFormatFloat32x3
	VertexFormatFloat32x4
)

type VertexAttribute struct {
	ShaderLocation uint32
	Offset         uint64
	Format         VertexFormat
}

type VertexBufferLayout struct {
	ArrayStride uint64
	StepMode    VertexStepMode
	Attributes  []VertexAttribute
}

type Color struct {
	R, G, B, A float64
}

// Buffer is a device-side buffer handle. Size is the allocated byte size,
// which may exceed the bytes last written.
type Buffer interface {
	Size() uint64
}

type TextureView interface{}

type Texture interface {
	View() TextureView
}

type Sampler interface{}

type BindGroup interface{}

type BindGroupLayout interface{}

// Pipeline is a compiled render pipeline. Bind group layouts are derived
// from the pipeline's shader, mirroring wgpu's GetBindGroupLayout.
type Pipeline interface {
	BindGroupLayout(group uint32) BindGroupLayout
}

// BindingEntry binds one resource to a slot. Exactly one of Buffer,
// TextureView, Sampler is set.
type BindingEntry struct {
	Binding     uint32
	Buffer      Buffer
	TextureView TextureView
	Sampler     Sampler
}

type TextureDescriptor struct {
	Label            string
	Width            uint32
	Height           uint32
	Format           TextureFormat
	RenderAttachment bool
}

type SamplerDescriptor struct {
	Filter   string // "linear" or "nearest"
	WrapMode string // "wrap", "mirror" or "clamp"
}

// PipelineDescriptor is immutable after registration. Changing pipeline
// state means registering a new descriptor under a new handle.
type PipelineDescriptor struct {
	Label         string
	ShaderWGSL    string
	VertexLayouts []VertexBufferLayout
	ColorFormat   TextureFormat
	// DepthFormat enables depth testing when not TextureFormatUndefined.
	DepthFormat TextureFormat
	CullBack    bool
}

// Device is the narrow GPU construction surface the staging layer needs.
// The wgpu backend implements it for real hardware; tests supply a double
// with observable write counts.
type Device interface {
	CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error)
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	CreateBindGroup(layout BindGroupLayout, entries []BindingEntry) (BindGroup, error)
	CreateRenderPipeline(desc *PipelineDescriptor) (Pipeline, error)
	CreateTexture(desc *TextureDescriptor, texels []byte) (Texture, error)
	CreateSampler(desc *SamplerDescriptor) (Sampler, error)
	CreateCommandRecorder() (CommandRecorder, error)
}

type RenderPassDescriptor struct {
	Label string
	View  TextureView
	Clear Color
	// DepthView enables the depth attachment when non-nil, cleared to 1.0.
	DepthView TextureView
}

type RenderPass interface {
	SetPipeline(p Pipeline)
	SetBindGroup(group uint32, bg BindGroup)
	SetVertexBuffer(slot uint32, buf Buffer)
	SetIndexBuffer(buf Buffer, format IndexFormat)
	DrawIndexed(indexCount uint32, instanceCount uint32)
	End() error
}

// CommandRecorder records one frame's passes and submits them as a batch.
type CommandRecorder interface {
	BeginRenderPass(desc *RenderPassDescriptor) RenderPass
	Submit() error
}

// SurfaceTarget is one presentable output surface. AcquireView reports
// false when no view is available this frame (e.g. a minimized window);
// the pass skips that surface without failing the frame.
type SurfaceTarget interface {
	AcquireView() (TextureView, bool)
	Size() (width uint32, height uint32)
	Present()
}
