package portals

// SecondaryPassDriverNode renders every render-to-texture camera into its
// current target through the draw_3d sub-graph, in registration order. A camera
// whose target or depth buffer is not ready is skipped for this frame; it is
// retried next frame once preparation catches up.
type SecondaryPassDriverNode struct {
	cameras []EntityId
}

func (n *SecondaryPassDriverNode) Update(rw *RenderWorld) {
	n.cameras = append(n.cameras[:0], rw.SecondaryViews.Views()...)
}

func (n *SecondaryPassDriverNode) Run(gc *GraphContext) error {
	rw := gc.World()
	log := gc.Logger()

	for _, eid := range n.cameras {
		rtt, ok := RenderGet[ExtractedRenderToTexture](rw, eid)
		if !ok {
			continue
		}
		view, ok := RenderGet[ExtractedView](rw, eid)
		if !ok {
			rw.Diagnostics.SkippedPasses++
			log.Debugf("camera %d: no extracted view, skipping", eid)
			continue
		}
		target, ok := rw.Images.Ready(rtt.Image)
		if !ok {
			rw.Diagnostics.SkippedPasses++
			log.Debugf("camera %d: render target %s not ready, skipping", eid, rtt.Image)
			continue
		}
		depth, ok := rw.DepthTextures.Get(eid)
		if !ok || depth.Size != target.Size {
			rw.Diagnostics.SkippedPasses++
			log.Debugf("camera %d: depth texture not ready for %s, skipping", eid, target.Size)
			continue
		}
		if view.Size != target.Size {
			rw.Diagnostics.SkippedPasses++
			log.Debugf("camera %d: view %s does not match target %s, skipping", eid, view.Size, target.Size)
			continue
		}

		target.rendering = true
		err := gc.RunSubGraph(SubGraphDraw3d, []SlotValue{
			EntitySlot(eid),
			TextureViewSlot(target.View),
			TextureViewSlot(depth.View),
		})
		target.rendering = false
		if err != nil {
			return err
		}

		target.ContentFrame = rw.Frame
		rw.SecondaryViews.MarkCompleted(eid)
	}
	return nil
}
