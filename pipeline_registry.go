package applier

// PipelineHandle is an opaque index into the PipelineRegistry. Handles are
// created once at module install time and never change afterwards.
type PipelineHandle int

type pipelineSlot struct {
	desc     *PipelineDescriptor
	compiled Pipeline
	err      error
}

// PipelineRegistry queues pipeline compilation and caches the compiled
// objects. Resolve reports false while compilation is pending or failed;
// the pass skips drawing instead of blocking.
type PipelineRegistry struct {
	slots []pipelineSlot
}

func NewPipelineRegistry() *PipelineRegistry {
	return &PipelineRegistry{}
}

// Register queues a descriptor for compilation and returns its handle.
// The descriptor must not be mutated afterwards.
func (r *PipelineRegistry) Register(desc *PipelineDescriptor) PipelineHandle {
	r.slots = append(r.slots, pipelineSlot{desc: desc})
	return PipelineHandle(len(r.slots) - 1)
}

// Compile builds every pending pipeline against the device. A descriptor
// that failed to compile keeps its error and is not retried; pipeline state
// is immutable, so recompiling the same descriptor cannot succeed later.
func (r *PipelineRegistry) Compile(dev Device, log Logger) {
	for i := range r.slots {
		slot := &r.slots[i]
		if slot.compiled != nil || slot.err != nil {
			continue
		}
		p, err := dev.CreateRenderPipeline(slot.desc)
		if err != nil {
			slot.err = err
			log.Errorf("pipeline %q failed to compile: %v", slot.desc.Label, err)
			continue
		}
		slot.compiled = p
	}
}

// Resolve returns the compiled pipeline for a handle, reporting false while
// compilation is in flight or has failed.
func (r *PipelineRegistry) Resolve(h PipelineHandle) (Pipeline, bool) {
	if h < 0 || int(h) >= len(r.slots) {
		return nil, false
	}
	slot := r.slots[h]
	if slot.compiled == nil {
		return nil, false
	}
	return slot.compiled, true
}

// Descriptor returns the registered descriptor for a handle.
func (r *PipelineRegistry) Descriptor(h PipelineHandle) (*PipelineDescriptor, bool) {
	if h < 0 || int(h) >= len(r.slots) {
		return nil, false
	}
	return r.slots[h].desc, true
}
