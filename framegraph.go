package applier

import (
	"errors"
	"fmt"
)

// ErrGraphContract is a host-contract violation: the graph is not in the
// state the renderer requires (e.g. the default driver node is missing when
// taking over the draw schedule). Fatal at install time.
var ErrGraphContract = errors.New("frame graph contract violation")

type NodeLabel string

const (
	// CameraDriverLabel is the host's default execution path. Installing
	// the renderer removes it, an explicit handover of who decides when to
	// draw.
	CameraDriverLabel NodeLabel = "camera_driver"
	ExecuteNodeLabel  NodeLabel = "execute"
	SurfaceNodeLabel  NodeLabel = "surface"
	SubgraphLabel     NodeLabel = "applier_subgraph"
)

// NodeKind is a closed variant; node behavior is a pure function of
// (kind, render context) rather than virtual dispatch.
type NodeKind int

const (
	// NodeCameraDriver is the host's default node. It draws nothing here
	// and exists to be removed by the renderer module.
	NodeCameraDriver NodeKind = iota
	// NodeExecute invokes its subgraph without parameters, propagating any
	// failure upward.
	NodeExecute
	// NodeSurfaceDraw runs the single render pass against every active
	// surface.
	NodeSurfaceDraw
)

type graphNode struct {
	label NodeLabel
	kind  NodeKind
	// subgraph names the target of a NodeExecute node.
	subgraph NodeLabel
}

// FrameGraph is the declared ordering of render passes for one frame: a
// list of top-level nodes plus named subgraphs. The default renderer
// declares one subgraph holding a single surface-draw node.
type FrameGraph struct {
	nodes     []graphNode
	subgraphs map[NodeLabel][]graphNode
}

// NewFrameGraph returns a graph seeded with the host's default
// camera-driver node.
func NewFrameGraph() *FrameGraph {
	return &FrameGraph{
		nodes: []graphNode{
			{label: CameraDriverLabel, kind: NodeCameraDriver},
		},
		subgraphs: make(map[NodeLabel][]graphNode),
	}
}

func (g *FrameGraph) AddNode(label NodeLabel, kind NodeKind) {
	g.nodes = append(g.nodes, graphNode{label: label, kind: kind})
}

// AddExecuteNode appends an entry node that delegates into the named
// subgraph.
func (g *FrameGraph) AddExecuteNode(label NodeLabel, subgraph NodeLabel) {
	g.nodes = append(g.nodes, graphNode{label: label, kind: NodeExecute, subgraph: subgraph})
}

// RemoveNode removes a top-level node. A missing node is a contract
// violation: it means the graph is not the one the caller was built
// against.
func (g *FrameGraph) RemoveNode(label NodeLabel) error {
	for i, n := range g.nodes {
		if n.label == label {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: node %q not present", ErrGraphContract, label)
}

func (g *FrameGraph) AddSubgraph(label NodeLabel) {
	if _, ok := g.subgraphs[label]; !ok {
		g.subgraphs[label] = make([]graphNode, 0, 1)
	}
}

func (g *FrameGraph) AddSubgraphNode(subgraph NodeLabel, label NodeLabel, kind NodeKind) {
	g.subgraphs[subgraph] = append(g.subgraphs[subgraph], graphNode{label: label, kind: kind})
}

func (g *FrameGraph) HasNode(label NodeLabel) bool {
	for _, n := range g.nodes {
		if n.label == label {
			return true
		}
	}
	return false
}

// Run executes the graph's nodes in declared order. There is no retry
// within a frame; a pass whose dependencies are unready is simply absent
// from this frame's output.
func (g *FrameGraph) Run(ctx *RenderContext) error {
	for _, n := range g.nodes {
		if err := g.runNode(n, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (g *FrameGraph) runNode(n graphNode, ctx *RenderContext) error {
	switch n.kind {
	case NodeCameraDriver:
		return nil
	case NodeExecute:
		sub, ok := g.subgraphs[n.subgraph]
		if !ok {
			return fmt.Errorf("%w: subgraph %q not present", ErrGraphContract, n.subgraph)
		}
		for _, sn := range sub {
			if err := g.runNode(sn, ctx); err != nil {
				return err
			}
		}
		return nil
	case NodeSurfaceDraw:
		return runSurfacePass(ctx)
	default:
		return fmt.Errorf("%w: unknown node kind %d", ErrGraphContract, n.kind)
	}
}

// ClearColorFunc derives the pass clear color from the extracted cursor
// position and surface size.
type ClearColorFunc func(cursorX, cursorY float32, width, height uint32) Color

// CursorClearColor is the default policy: red follows the cursor across
// the width, green down the height, blue is the width remainder.
func CursorClearColor(cursorX, cursorY float32, width, height uint32) Color {
	if width == 0 || height == 0 {
		return Color{A: 1}
	}
	return Color{
		R: float64(cursorX) / float64(width),
		G: float64(cursorY) / float64(height),
		B: (float64(width) - float64(cursorX)) / float64(width),
		A: 1,
	}
}

// RenderContext is the per-frame render state threaded through graph
// nodes. It is exclusively owned by the Render stage; no other phase
// mutates it.
type RenderContext struct {
	Device     Device
	Recorder   CommandRecorder
	Surfaces   []SurfaceTarget
	Frame      *ExtractedFrame
	Buffers    *RenderBuffers
	Pipelines  *PipelineRegistry
	Pipeline   PipelineHandle
	BindGroups *PreparedBindGroups
	DepthView  TextureView
	ClearColor ClearColorFunc
	Log        Logger
}

// PreparedBindGroups holds the bind groups the surface pass binds. Nil
// entries mean "not ready this frame" and suppress drawing, never the
// clear.
type PreparedBindGroups struct {
	Material BindGroup
	Camera   BindGroup
}

// runSurfacePass acquires each surface's target view, clears it with the
// cursor-derived color, and draws every mesh whose buffers and bind groups
// are ready. Unready resources skip their draw for this frame only.
func runSurfacePass(ctx *RenderContext) error {
	for _, surface := range ctx.Surfaces {
		view, ok := surface.AcquireView()
		if !ok {
			// Minimized or otherwise unavailable; skip without failing.
			continue
		}

		w, h := surface.Size()
		pass := ctx.Recorder.BeginRenderPass(&RenderPassDescriptor{
			Label:     "applied_pass",
			View:      view,
			Clear:     ctx.ClearColor(ctx.Frame.CursorX, ctx.Frame.CursorY, w, h),
			DepthView: ctx.DepthView,
		})

		drawMeshes(ctx, pass)

		if err := pass.End(); err != nil {
			return err
		}
	}
	return nil
}

func drawMeshes(ctx *RenderContext, pass RenderPass) {
	pipeline, ok := ctx.Pipelines.Resolve(ctx.Pipeline)
	if !ok {
		return
	}
	if ctx.BindGroups.Material == nil || ctx.BindGroups.Camera == nil {
		return
	}

	bound := false
	for mesh, instances := range ctx.Buffers.Instances {
		if instances.Len() == 0 {
			continue
		}
		vertexStage, vok := ctx.Buffers.Vertex[mesh]
		indexStage, iok := ctx.Buffers.Index[mesh]
		if !vok || !iok {
			continue
		}

		vertexBuf, err := vertexStage.Buffer()
		if err != nil {
			continue
		}
		indexBuf, err := indexStage.Buffer()
		if err != nil {
			continue
		}
		instanceBuf, err := instances.Buffer()
		if err != nil {
			continue
		}

		if !bound {
			pass.SetPipeline(pipeline)
			pass.SetBindGroup(0, ctx.BindGroups.Material)
			pass.SetBindGroup(1, ctx.BindGroups.Camera)
			bound = true
		}
		pass.SetVertexBuffer(0, vertexBuf)
		pass.SetVertexBuffer(1, instanceBuf)
		pass.SetIndexBuffer(indexBuf, IndexFormatUint32)
		pass.DrawIndexed(uint32(indexStage.Len()), uint32(instances.Len()))
	}
}
