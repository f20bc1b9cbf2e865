package portals

// RenderToTexture redirects a camera's output into an image instead of its
// window. The handle is exchanged with a display's texture after every
// completed pass, so it always names the texture the next pass writes into.
type RenderToTexture struct {
	Image ImageHandle
}

// ExtractedRenderToTexture is the render-world copy of RenderToTexture.
type ExtractedRenderToTexture struct {
	Image WeakImageHandle
}

// ResizeRenderTargetsSystem keeps every render target at its camera's viewport
// size. Cameras without a resolvable viewport are left alone this frame.
func ResizeRenderTargetsSystem(cmd *Commands, windows *Windows, images *Images, diag *PortalDiagnostics, log Logger) {
	MakeQuery2[Camera, RenderToTexture](cmd).Map(func(eid EntityId, cam *Camera, rtt *RenderToTexture) bool {
		size, err := windows.ViewportSize(cam)
		if err != nil {
			diag.UnresolvedViewports++
			log.Debugf("camera %d: %v, not resizing", eid, err)
			return true
		}
		resized, err := images.Resize(rtt.Image, size)
		if err != nil {
			log.Warnf("camera %d: resize render target: %v", eid, err)
			return true
		}
		if resized {
			log.Debugf("camera %d: render target %s resized to %s", eid, rtt.Image.Weak(), size)
		}
		return true
	})
}

// ExtractRenderToTextureSystem mirrors each active render-to-texture camera
// with a weak copy of its target and a fresh phase, and registers it as a
// secondary view. The main-world component is left untouched.
func ExtractRenderToTextureSystem(cmd *Commands, rw *RenderWorld) {
	MakeQuery2[Camera, RenderToTexture](cmd).Map(func(eid EntityId, cam *Camera, rtt *RenderToTexture) bool {
		if !cam.Active {
			return true
		}
		rw.Insert(eid, ExtractedRenderToTexture{Image: rtt.Image.Weak()}, RenderPhase{})
		rw.SecondaryViews.Register(eid)
		return true
	})
}

// RenderToTextureModule adds render-to-texture cameras. It needs RenderModule.
type RenderToTextureModule struct{}

func (m RenderToTextureModule) Install(app *App, cmd *Commands) {
	renderer, ok := Resource[Renderer](app)
	if !ok {
		panic("RenderToTextureModule requires RenderModule")
	}

	app.UseSystem(
		System(ResizeRenderTargetsSystem).
			InStage(PostUpdate).
			Label(LabelResizeRenderTargets),
	)
	app.UseSystem(
		System(ExtractRenderToTextureSystem).
			InStage(Extract).
			After(LabelExtractCameras),
	)

	mustGraph(renderer.Graph.AddNode(NodeSecondaryPassDriver, &SecondaryPassDriverNode{}))
	mustGraph(renderer.Graph.AddNodeEdge(NodeSecondaryPassDriver, NodeMainPassDependencies))
}
