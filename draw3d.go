package portals

import (
	"fmt"
)

// Draw3dNode is the single node of the draw_3d sub-graph: one pass of a view's
// phase into the given color and depth attachments.
type Draw3dNode struct{}

func (n *Draw3dNode) Update(rw *RenderWorld) {}

func (n *Draw3dNode) Run(gc *GraphContext) error {
	viewId := gc.Input(0).Entity
	color := gc.Input(1).View
	depth := gc.Input(2).View

	rw := gc.World()
	view, ok := RenderGet[ExtractedView](rw, viewId)
	if !ok {
		return fmt.Errorf("view %d has no extracted camera", viewId)
	}
	phase, ok := RenderGet[RenderPhase](rw, viewId)
	if !ok {
		return fmt.Errorf("view %d has no render phase", viewId)
	}

	pass, err := gc.RenderContext().BeginPass(PassDescriptor{
		Label:      view.Label,
		Color:      color,
		Depth:      depth,
		ClearColor: view.ClearColor,
	})
	if err != nil {
		return fmt.Errorf("view %d: begin pass: %w", viewId, err)
	}

	dc := &DrawContext{World: rw, Pass: pass, View: view, Logger: gc.Logger()}
	for _, item := range phase.Items {
		item.Draw(dc, item)
	}
	phase.Items = phase.Items[:0]

	if err := pass.End(); err != nil {
		return fmt.Errorf("view %d: end pass: %w", viewId, err)
	}
	return nil
}

// mainPassDependenciesNode does no work; passes that must finish before the
// on-screen cameras draw order themselves before it.
type mainPassDependenciesNode struct{}

func (n *mainPassDependenciesNode) Update(rw *RenderWorld)     {}
func (n *mainPassDependenciesNode) Run(gc *GraphContext) error { return nil }

// MainPassDriverNode draws every on-screen camera into its window's surface.
type MainPassDriverNode struct {
	views []EntityId
}

func (n *MainPassDriverNode) Update(rw *RenderWorld) {
	n.views = n.views[:0]
	RenderQuery1[ExtractedView](rw).Map(func(eid EntityId, view *ExtractedView) bool {
		if !view.Offscreen {
			n.views = append(n.views, eid)
		}
		return true
	})
}

func (n *MainPassDriverNode) Run(gc *GraphContext) error {
	rw := gc.World()
	for _, eid := range n.views {
		view, _ := RenderGet[ExtractedView](rw, eid)
		surface, ok := gc.RenderContext().SurfaceView(view.Window)
		if !ok {
			continue
		}
		depth, ok := rw.DepthTextures.Get(eid)
		if !ok || depth.Size != view.Size {
			gc.Logger().Debugf("view %d: depth texture not ready", eid)
			continue
		}
		err := gc.RunSubGraph(SubGraphDraw3d, []SlotValue{
			EntitySlot(eid),
			TextureViewSlot(surface),
			TextureViewSlot(depth.View),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
