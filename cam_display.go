package portals

// CamDisplay marks a mesh that shows what another camera sees. The entity's
// DisplayMaterial texture is exchanged with the camera's render target after
// each pass the camera completes.
type CamDisplay struct {
	CorrespondingCamera EntityId
}

// DisplayMaterial samples Texture; BaseColor tints it.
type DisplayMaterial struct {
	Texture     ImageHandle
	BaseColor   [4]float32
	Unlit       bool
	Screenspace bool
}

type ExtractedDisplay struct {
	Camera EntityId
	// Dangling is set when the camera entity no longer renders to a texture.
	Dangling bool
}

// PortalSwap records one exchange: before it, the display showed Displayed and
// the camera had just rendered into Rendered.
type PortalSwap struct {
	Display   EntityId
	Camera    EntityId
	Displayed WeakImageHandle
	Rendered  WeakImageHandle
}

// ResizeDisplayTexturesSystem keeps display textures at their camera's viewport
// size so both textures of a portal always have the same extent.
func ResizeDisplayTexturesSystem(cmd *Commands, windows *Windows, images *Images, log Logger) {
	MakeQuery2[CamDisplay, DisplayMaterial](cmd).Map(func(eid EntityId, disp *CamDisplay, mat *DisplayMaterial) bool {
		cam, ok := GetComponent[Camera](cmd, disp.CorrespondingCamera)
		if !ok {
			return true
		}
		size, err := windows.ViewportSize(cam)
		if err != nil {
			return true
		}
		if _, err := images.Resize(mat.Texture, size); err != nil {
			log.Warnf("display %d: resize texture: %v", eid, err)
		}
		return true
	})
}

func ExtractDisplaysSystem(cmd *Commands, rw *RenderWorld) {
	MakeQuery2[CamDisplay, DisplayMaterial](cmd).Map(func(eid EntityId, disp *CamDisplay, mat *DisplayMaterial) bool {
		_, ok := GetComponent[RenderToTexture](cmd, disp.CorrespondingCamera)
		rw.Insert(eid, ExtractedDisplay{Camera: disp.CorrespondingCamera, Dangling: !ok})
		return true
	})
}

// PortalSwapNode runs between the secondary passes and the main pass. For each
// display whose camera completed a pass this frame it exchanges the render-world
// handles, so the main pass samples the finished image and the next pass writes
// into the texture that was on display.
type PortalSwapNode struct {
	warned set[EntityId]
}

func (n *PortalSwapNode) Update(rw *RenderWorld) {}

func (n *PortalSwapNode) Run(gc *GraphContext) error {
	rw := gc.World()
	log := gc.Logger()
	swapped := make(set[EntityId])

	RenderQuery2[ExtractedDisplay, ExtractedMaterial](rw).Map(func(eid EntityId, disp *ExtractedDisplay, mat *ExtractedMaterial) bool {
		if disp.Dangling {
			rw.Diagnostics.DanglingCameras++
			n.reportDangling(log, eid, disp.Camera)
			return true
		}
		rtt, ok := RenderGet[ExtractedRenderToTexture](rw, disp.Camera)
		if !ok || !rw.SecondaryViews.Completed(disp.Camera) {
			return true
		}
		if _, ok := swapped[disp.Camera]; ok {
			log.Warnf("display %d: camera %d already swapped with another display this frame", eid, disp.Camera)
			return true
		}
		swapped[disp.Camera] = struct{}{}

		rw.Swaps = append(rw.Swaps, PortalSwap{
			Display:   eid,
			Camera:    disp.Camera,
			Displayed: mat.Texture,
			Rendered:  rtt.Image,
		})
		mat.Texture, rtt.Image = rtt.Image, mat.Texture
		rw.Diagnostics.Swaps++
		log.Debugf("frame %d: display %d now shows %s, camera %d renders into %s",
			rw.Frame, eid, mat.Texture, disp.Camera, rtt.Image)
		return true
	})
	return nil
}

func (n *PortalSwapNode) reportDangling(log Logger, display, camera EntityId) {
	if n.warned == nil {
		n.warned = make(set[EntityId])
	}
	if _, ok := n.warned[display]; ok {
		log.Debugf("display %d: camera %d is gone, keeping last texture", display, camera)
		return
	}
	n.warned[display] = struct{}{}
	log.Warnf("display %d: camera %d is gone, keeping last texture", display, camera)
}

// ApplyPortalSwapsSystem carries the render graph's exchanges over to the
// owning handles in the main world. An exchange whose handles changed since
// extraction is dropped.
func ApplyPortalSwapsSystem(cmd *Commands, rw *RenderWorld, log Logger) {
	for _, s := range rw.Swaps {
		mat, ok := GetComponent[DisplayMaterial](cmd, s.Display)
		if !ok {
			log.Warnf("display %d vanished before its swap was applied", s.Display)
			continue
		}
		rtt, ok := GetComponent[RenderToTexture](cmd, s.Camera)
		if !ok {
			log.Warnf("camera %d vanished before its swap was applied", s.Camera)
			continue
		}
		if mat.Texture.Weak() != s.Displayed || rtt.Image.Weak() != s.Rendered {
			log.Warnf("display %d: textures changed since extraction, swap dropped", s.Display)
			continue
		}
		mat.Texture, rtt.Image = rtt.Image, mat.Texture
	}
}

// CamDisplayModule swaps display textures with their cameras' render targets.
// It needs RenderModule and RenderToTextureModule.
type CamDisplayModule struct{}

func (m CamDisplayModule) Install(app *App, cmd *Commands) {
	renderer, ok := Resource[Renderer](app)
	if !ok {
		panic("CamDisplayModule requires RenderModule")
	}
	if _, ok := renderer.Graph.Node(NodeSecondaryPassDriver); !ok {
		panic("CamDisplayModule requires RenderToTextureModule")
	}

	app.UseSystem(
		System(ResizeDisplayTexturesSystem).
			InStage(PostUpdate).
			After(LabelResizeRenderTargets),
	)
	app.UseSystem(
		System(ExtractDisplaysSystem).
			InStage(Extract).
			After(LabelExtractMeshes),
	)
	app.UseSystem(
		System(ApplyPortalSwapsSystem).
			InStage(PostRender),
	)

	mustGraph(renderer.Graph.AddNode(NodePortalSwap, &PortalSwapNode{}))
	mustGraph(renderer.Graph.AddNodeEdge(NodeSecondaryPassDriver, NodePortalSwap))
	mustGraph(renderer.Graph.AddNodeEdge(NodePortalSwap, NodeMainPassDependencies))
}
