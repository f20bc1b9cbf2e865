package portals

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownNode     = errors.New("unknown render graph node")
	ErrDuplicateNode   = errors.New("render graph node already exists")
	ErrGraphCycle      = errors.New("render graph edge would create a cycle")
	ErrUnknownSubGraph = errors.New("unknown render sub-graph")
	ErrSlotMismatch    = errors.New("render graph inputs do not match slots")
)

type NodeLabel int

const (
	NodeMainPassDependencies NodeLabel = iota
	NodeMainPassDriver
	NodeSecondaryPassDriver
	NodePortalSwap
	NodeDraw3d
)

func (l NodeLabel) String() string {
	switch l {
	case NodeMainPassDependencies:
		return "main_pass_dependencies"
	case NodeMainPassDriver:
		return "main_pass_driver"
	case NodeSecondaryPassDriver:
		return "secondary_pass_driver"
	case NodePortalSwap:
		return "portal_swap"
	case NodeDraw3d:
		return "draw_3d"
	}
	return fmt.Sprintf("node(%d)", int(l))
}

type SubGraphLabel int

const (
	SubGraphDraw3d SubGraphLabel = iota
)

func (l SubGraphLabel) String() string {
	if l == SubGraphDraw3d {
		return "draw_3d"
	}
	return fmt.Sprintf("subgraph(%d)", int(l))
}

type SlotType int

const (
	SlotEntity SlotType = iota
	SlotTextureView
)

func (t SlotType) String() string {
	if t == SlotEntity {
		return "entity"
	}
	return "texture_view"
}

type SlotValue struct {
	Type   SlotType
	Entity EntityId
	View   TextureView
}

func EntitySlot(eid EntityId) SlotValue { return SlotValue{Type: SlotEntity, Entity: eid} }

func TextureViewSlot(view TextureView) SlotValue {
	return SlotValue{Type: SlotTextureView, View: view}
}

// Node is a unit of render work. Update runs once per frame before any node
// runs; Run may invoke sub-graphs through the context.
type Node interface {
	Update(rw *RenderWorld)
	Run(gc *GraphContext) error
}

// RenderGraph is a DAG of nodes. Nodes run in dependency order; independent
// nodes keep the order they were added in.
type RenderGraph struct {
	nodes     map[NodeLabel]Node
	order     []NodeLabel
	edges     map[NodeLabel][]NodeLabel
	inputs    []SlotType
	subGraphs map[SubGraphLabel]*RenderGraph
	sorted    []NodeLabel
}

func NewRenderGraph(inputs ...SlotType) *RenderGraph {
	return &RenderGraph{
		nodes:     make(map[NodeLabel]Node),
		edges:     make(map[NodeLabel][]NodeLabel),
		inputs:    inputs,
		subGraphs: make(map[SubGraphLabel]*RenderGraph),
	}
}

func (g *RenderGraph) AddNode(label NodeLabel, node Node) error {
	if _, ok := g.nodes[label]; ok {
		return fmt.Errorf("add %s: %w", label, ErrDuplicateNode)
	}
	g.nodes[label] = node
	g.order = append(g.order, label)
	g.sorted = nil
	return nil
}

func (g *RenderGraph) Node(label NodeLabel) (Node, bool) {
	n, ok := g.nodes[label]
	return n, ok
}

// AddNodeEdge makes after run only once before has finished.
func (g *RenderGraph) AddNodeEdge(before, after NodeLabel) error {
	for _, l := range []NodeLabel{before, after} {
		if _, ok := g.nodes[l]; !ok {
			return fmt.Errorf("edge %s -> %s: %s: %w", before, after, l, ErrUnknownNode)
		}
	}
	if before == after || g.reachable(after, before) {
		return fmt.Errorf("edge %s -> %s: %w", before, after, ErrGraphCycle)
	}
	for _, e := range g.edges[before] {
		if e == after {
			return nil
		}
	}
	g.edges[before] = append(g.edges[before], after)
	g.sorted = nil
	return nil
}

func (g *RenderGraph) reachable(from, to NodeLabel) bool {
	seen := make(map[NodeLabel]bool)
	stack := []NodeLabel{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, g.edges[n]...)
	}
	return false
}

func (g *RenderGraph) AddSubGraph(label SubGraphLabel, sub *RenderGraph) error {
	if _, ok := g.subGraphs[label]; ok {
		return fmt.Errorf("add sub-graph %s: %w", label, ErrDuplicateNode)
	}
	g.subGraphs[label] = sub
	return nil
}

func (g *RenderGraph) SubGraph(label SubGraphLabel) (*RenderGraph, bool) {
	sub, ok := g.subGraphs[label]
	return sub, ok
}

// Inputs lists the slot types a sub-graph expects.
func (g *RenderGraph) Inputs() []SlotType { return g.inputs }

// Order returns the labels in the order Run executes them.
func (g *RenderGraph) Order() []NodeLabel {
	if g.sorted != nil {
		return g.sorted
	}

	indegree := make(map[NodeLabel]int, len(g.order))
	for _, from := range g.order {
		for _, to := range g.edges[from] {
			indegree[to]++
		}
	}

	sorted := make([]NodeLabel, 0, len(g.order))
	done := make(map[NodeLabel]bool, len(g.order))
	for len(sorted) < len(g.order) {
		for _, l := range g.order {
			if done[l] || indegree[l] > 0 {
				continue
			}
			done[l] = true
			sorted = append(sorted, l)
			for _, to := range g.edges[l] {
				indegree[to]--
			}
			break
		}
	}
	g.sorted = sorted
	return sorted
}

// Update calls Update on every node, sub-graphs included.
func (g *RenderGraph) Update(rw *RenderWorld) {
	for _, l := range g.order {
		g.nodes[l].Update(rw)
	}
	for _, sub := range g.subGraphs {
		sub.Update(rw)
	}
}

// Run executes the graph once. The first node error aborts the run.
func (g *RenderGraph) Run(ctx RenderContext, rw *RenderWorld, log Logger) error {
	return g.run(&GraphContext{graph: g, ctx: ctx, rw: rw, log: log})
}

func (g *RenderGraph) run(gc *GraphContext) error {
	for _, l := range g.Order() {
		if err := g.nodes[l].Run(gc); err != nil {
			return fmt.Errorf("node %s: %w", l, err)
		}
	}
	return nil
}

// GraphContext is handed to a running node.
type GraphContext struct {
	graph  *RenderGraph
	parent *GraphContext
	inputs []SlotValue
	ctx    RenderContext
	rw     *RenderWorld
	log    Logger
}

func (gc *GraphContext) RenderContext() RenderContext { return gc.ctx }
func (gc *GraphContext) World() *RenderWorld          { return gc.rw }
func (gc *GraphContext) Logger() Logger               { return gc.log }

func (gc *GraphContext) Input(i int) SlotValue {
	return gc.inputs[i]
}

// RunSubGraph runs a sub-graph of the top-level graph to completion with the given inputs.
func (gc *GraphContext) RunSubGraph(label SubGraphLabel, inputs []SlotValue) error {
	root := gc
	for root.parent != nil {
		root = root.parent
	}
	sub, ok := root.graph.subGraphs[label]
	if !ok {
		return fmt.Errorf("%s: %w", label, ErrUnknownSubGraph)
	}
	if len(inputs) != len(sub.inputs) {
		return fmt.Errorf("%s: got %d inputs, want %d: %w", label, len(inputs), len(sub.inputs), ErrSlotMismatch)
	}
	for i, in := range inputs {
		if in.Type != sub.inputs[i] {
			return fmt.Errorf("%s: input %d is %s, want %s: %w", label, i, in.Type, sub.inputs[i], ErrSlotMismatch)
		}
		if in.Type == SlotTextureView && in.View == nil {
			return fmt.Errorf("%s: input %d has no view: %w", label, i, ErrSlotMismatch)
		}
	}

	return sub.run(&GraphContext{
		graph:  sub,
		parent: gc,
		inputs: inputs,
		ctx:    gc.ctx,
		rw:     gc.rw,
		log:    gc.log,
	})
}
