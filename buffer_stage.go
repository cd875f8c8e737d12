package applier

import (
	"bytes"
)

// BufferStage owns CPU-side staging contents and mirrors them into a device
// buffer on demand. One stage exists per mesh-and-usage combination; the
// renderer keeps them in maps keyed by mesh handle.
//
// The device buffer is only valid after Upload following a content change;
// Buffer returns ErrNotReady for a stage that is empty, never uploaded, or
// written since its last upload, so stale device buffers are never read.
type BufferStage[T any] struct {
	label   string
	usage   BufferUsage
	staging []byte
	count   int
	dirty   bool
	buf     Buffer
}

func NewBufferStage[T any](label string, usage BufferUsage) *BufferStage[T] {
	return &BufferStage[T]{
		label: label,
		usage: usage,
	}
}

// Write replaces the staging contents. Writing bytes identical to the
// current staging contents leaves the stage clean, so the next Upload stays
// a no-op.
func (s *BufferStage[T]) Write(contents []T) {
	raw := sliceBytes(contents)
	if s.count == len(contents) && bytes.Equal(raw, s.staging) {
		return
	}
	s.staging = append(s.staging[:0], raw...)
	s.count = len(contents)
	s.dirty = true
}

// WriteUniform stages a single value serialized field by field in
// little-endian order, the layout uniform buffers expect. Like Write, an
// unchanged value leaves the stage clean.
func (s *BufferStage[T]) WriteUniform(v T) {
	raw := uniformBytes(v)
	if s.count == 1 && bytes.Equal(raw, s.staging) {
		return
	}
	s.staging = append(s.staging[:0], raw...)
	s.count = 1
	s.dirty = true
}

// Len reports the number of staged elements.
func (s *BufferStage[T]) Len() int {
	return s.count
}

// Upload mirrors staging contents to the device buffer, reallocating when
// capacity is insufficient. Unchanged contents perform no device write.
func (s *BufferStage[T]) Upload(dev Device) error {
	if !s.dirty {
		return nil
	}
	if len(s.staging) == 0 {
		// An empty stage keeps no device buffer; draws referencing it skip.
		s.buf = nil
		s.dirty = false
		return nil
	}

	if s.buf == nil || s.buf.Size() < uint64(len(s.staging)) {
		buf, err := dev.CreateBuffer(s.label, uint64(len(s.staging)), s.usage|BufferUsageCopyDst)
		if err != nil {
			return err
		}
		s.buf = buf
	}

	if err := dev.WriteBuffer(s.buf, 0, s.staging); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Buffer returns the device buffer, or ErrNotReady when the device copy
// does not reflect the staging contents.
func (s *BufferStage[T]) Buffer() (Buffer, error) {
	if s.buf == nil || s.dirty {
		return nil, ErrNotReady
	}
	return s.buf, nil
}

// RenderBuffers is the render-side set of buffer stages: static vertex and
// index data per mesh, rebuilt-per-frame instance arrays per mesh, and the
// camera uniform.
type RenderBuffers struct {
	Vertex    map[MeshHandle]*BufferStage[Vertex]
	Index     map[MeshHandle]*BufferStage[uint32]
	Instances map[MeshHandle]*BufferStage[InstanceRaw]
	Camera    *BufferStage[CameraUniform]
}

func NewRenderBuffers() *RenderBuffers {
	return &RenderBuffers{
		Vertex:    make(map[MeshHandle]*BufferStage[Vertex]),
		Index:     make(map[MeshHandle]*BufferStage[uint32]),
		Instances: make(map[MeshHandle]*BufferStage[InstanceRaw]),
		Camera:    NewBufferStage[CameraUniform]("camera_uniform", BufferUsageUniform),
	}
}
