package applier

import (
	"fmt"
)

// fakeDevice implements Device with observable counters, so staging and
// caching behavior can be asserted without GPU hardware.
type fakeDevice struct {
	buffersCreated   int
	bufferWrites     int
	bindGroupsBuilt  int
	pipelinesBuilt   int
	texturesCreated  int
	samplersCreated  int
	recordersCreated int
	recorders        []*fakeRecorder

	failBufferWrite bool
	failPipeline    bool
}

type fakeBuffer struct {
	label string
	size  uint64
	data  []byte
}

func (b *fakeBuffer) Size() uint64 { return b.size }

type fakeView struct{}

type fakeTexture struct {
	desc TextureDescriptor
	view *fakeView
}

func (t *fakeTexture) View() TextureView { return t.view }

type fakeSampler struct{}

type fakeBindGroup struct {
	entries []BindingEntry
}

type fakeLayout struct {
	group uint32
}

type fakePipeline struct {
	desc *PipelineDescriptor
}

func (p *fakePipeline) BindGroupLayout(group uint32) BindGroupLayout {
	return &fakeLayout{group: group}
}

func (d *fakeDevice) CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error) {
	d.buffersCreated++
	return &fakeBuffer{label: label, size: size}, nil
}

func (d *fakeDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	if d.failBufferWrite {
		return fmt.Errorf("write rejected")
	}
	d.bufferWrites++
	fb := buf.(*fakeBuffer)
	fb.data = append(fb.data[:0], data...)
	return nil
}

func (d *fakeDevice) CreateBindGroup(layout BindGroupLayout, entries []BindingEntry) (BindGroup, error) {
	d.bindGroupsBuilt++
	return &fakeBindGroup{entries: entries}, nil
}

func (d *fakeDevice) CreateRenderPipeline(desc *PipelineDescriptor) (Pipeline, error) {
	if d.failPipeline {
		return nil, fmt.Errorf("shader rejected")
	}
	d.pipelinesBuilt++
	return &fakePipeline{desc: desc}, nil
}

func (d *fakeDevice) CreateTexture(desc *TextureDescriptor, texels []byte) (Texture, error) {
	d.texturesCreated++
	return &fakeTexture{desc: *desc, view: &fakeView{}}, nil
}

func (d *fakeDevice) CreateSampler(desc *SamplerDescriptor) (Sampler, error) {
	d.samplersCreated++
	return &fakeSampler{}, nil
}

func (d *fakeDevice) CreateCommandRecorder() (CommandRecorder, error) {
	d.recordersCreated++
	recorder := &fakeRecorder{}
	d.recorders = append(d.recorders, recorder)
	return recorder, nil
}

type drawCall struct {
	indexCount    uint32
	instanceCount uint32
}

type fakePass struct {
	desc          RenderPassDescriptor
	pipelineSets  int
	bindGroupSets int
	draws         []drawCall
	ended         bool
}

func (p *fakePass) SetPipeline(pl Pipeline)                   { p.pipelineSets++ }
func (p *fakePass) SetBindGroup(group uint32, bg BindGroup)   { p.bindGroupSets++ }
func (p *fakePass) SetVertexBuffer(slot uint32, buf Buffer)   {}
func (p *fakePass) SetIndexBuffer(buf Buffer, f IndexFormat)  {}
func (p *fakePass) DrawIndexed(indexCount, instanceCount uint32) {
	p.draws = append(p.draws, drawCall{indexCount: indexCount, instanceCount: instanceCount})
}
func (p *fakePass) End() error {
	p.ended = true
	return nil
}

type fakeRecorder struct {
	passes    []*fakePass
	submitted int
}

func (r *fakeRecorder) BeginRenderPass(desc *RenderPassDescriptor) RenderPass {
	pass := &fakePass{desc: *desc}
	r.passes = append(r.passes, pass)
	return pass
}

func (r *fakeRecorder) Submit() error {
	r.submitted++
	return nil
}

// fakeSurface is a SurfaceTarget whose view availability is scripted.
type fakeSurface struct {
	width     uint32
	height    uint32
	available bool
	presented int
}

func (s *fakeSurface) AcquireView() (TextureView, bool) {
	if !s.available {
		return nil, false
	}
	return &fakeView{}, true
}

func (s *fakeSurface) Size() (uint32, uint32) { return s.width, s.height }

func (s *fakeSurface) Present() { s.presented++ }
