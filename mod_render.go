package portals

import (
	"errors"
	"fmt"
)

const (
	LabelBeginExtract        SystemLabel = "begin_extract"
	LabelExtractCameras      SystemLabel = "extract_cameras"
	LabelExtractMeshes       SystemLabel = "extract_meshes"
	LabelResizeRenderTargets SystemLabel = "resize_render_targets"
	LabelPrepareGpuImages    SystemLabel = "prepare_gpu_images"
)

// Renderer is the render-side resource: the backend and the frame graph.
type Renderer struct {
	Backend GpuBackend
	Graph   *RenderGraph
}

// RenderModule sets up the render world, asset stores, the base frame graph
// and the Extract, Prepare, Queue and Render systems.
type RenderModule struct {
	Backend GpuBackend
}

func (m RenderModule) Install(app *App, cmd *Commands) {
	if m.Backend == nil {
		panic("RenderModule needs a Backend")
	}

	graph := NewRenderGraph()
	mustGraph(graph.AddNode(NodeMainPassDependencies, &mainPassDependenciesNode{}))
	mustGraph(graph.AddNode(NodeMainPassDriver, &MainPassDriverNode{}))
	mustGraph(graph.AddNodeEdge(NodeMainPassDependencies, NodeMainPassDriver))

	draw3d := NewRenderGraph(SlotEntity, SlotTextureView, SlotTextureView)
	mustGraph(draw3d.AddNode(NodeDraw3d, &Draw3dNode{}))
	mustGraph(graph.AddSubGraph(SubGraphDraw3d, draw3d))

	rw := NewRenderWorld()
	cmd.AddResources(
		&Renderer{Backend: m.Backend, Graph: graph},
		rw,
		rw.Diagnostics,
		NewImageHolders(),
	)
	if _, ok := Resource[Images](app); !ok {
		cmd.AddResources(NewImages())
	}
	if _, ok := Resource[Meshes](app); !ok {
		cmd.AddResources(NewMeshes())
	}
	if _, ok := Resource[Windows](app); !ok {
		cmd.AddResources(NewWindows())
	}

	app.UseSystem(System(BeginExtractSystem).InStage(Extract).Label(LabelBeginExtract))
	app.UseSystem(System(ExtractCamerasSystem).InStage(Extract).Label(LabelExtractCameras).After(LabelBeginExtract))
	app.UseSystem(System(ExtractMeshesSystem).InStage(Extract).Label(LabelExtractMeshes).After(LabelBeginExtract))
	app.UseSystem(System(ExtractImagesSystem).InStage(Extract).After(LabelBeginExtract))

	app.UseSystem(System(PrepareGpuImagesSystem).InStage(Prepare).Label(LabelPrepareGpuImages))
	app.UseSystem(System(PrepareViewDepthTexturesSystem).InStage(Prepare).After(LabelPrepareGpuImages))

	app.UseSystem(System(QueueMeshesSystem).InStage(Queue))

	app.UseSystem(System(RenderGraphSystem).InStage(Render))

	app.UseSystem(System(ReleaseUnheldImagesSystem).InStage(Finale))
}

// mustGraph panics on graph wiring errors; they are programming errors found at install time.
func mustGraph(err error) {
	if err != nil {
		panic(err)
	}
}

func BeginExtractSystem(rw *RenderWorld) {
	rw.begin(rw.Frame + 1)
}

// ExtractCamerasSystem mirrors active cameras. A render-to-texture camera takes
// the size of its target image; any other camera the size of its window.
func ExtractCamerasSystem(cmd *Commands, rw *RenderWorld, windows *Windows, images *Images, log Logger) {
	MakeQuery3[Camera, Transform, RenderToTexture](cmd).Map(func(eid EntityId, cam *Camera, tr *Transform, rtt *RenderToTexture) bool {
		if !cam.Active {
			return true
		}

		var size Extent
		if rtt != nil {
			img, err := images.Get(rtt.Image)
			if err != nil {
				log.Warnf("camera %d: %v", eid, err)
				return true
			}
			size = img.Size
		} else {
			s, err := windows.ViewportSize(cam)
			if err != nil {
				log.Debugf("camera %d: %v, not extracted", eid, err)
				return true
			}
			size = s
		}

		rw.Insert(eid,
			ExtractedView{
				Label:      cam.Label,
				Window:     cam.Window,
				ViewProj:   cam.ViewProjection(*tr, size),
				Position:   tr.Translation,
				Size:       size,
				ClearColor: cam.ClearColor,
				Offscreen:  rtt != nil,
			},
			RenderPhase{},
		)
		return true
	}, RenderToTexture{})
}

func ExtractMeshesSystem(cmd *Commands, rw *RenderWorld, meshes *Meshes, log Logger) {
	MakeQuery3[MeshRenderer, Transform, DisplayMaterial](cmd).Map(func(eid EntityId, mr *MeshRenderer, tr *Transform, mat *DisplayMaterial) bool {
		mesh, ok := meshes.Get(mr.Mesh)
		if !ok {
			log.Warnf("entity %d: unknown mesh %s", eid, mr.Mesh)
			return true
		}
		extracted := ExtractedMesh{
			Mesh:     mr.Mesh,
			Geometry: mesh,
			Model:    tr.Matrix(),
			Position: tr.Translation,
			Color:    mr.Color,
		}
		if mat == nil {
			rw.Insert(eid, extracted)
			return true
		}
		rw.Insert(eid, extracted, ExtractedMaterial{
			Texture:     mat.Texture.Weak(),
			BaseColor:   mat.BaseColor,
			Unlit:       mat.Unlit,
			Screenspace: mat.Screenspace,
		})
		return true
	}, DisplayMaterial{})
}

// ExtractImagesSystem queues new and reallocated images for upload and drops
// the GPU copies of freed ones.
func ExtractImagesSystem(images *Images, rw *RenderWorld) {
	modified, removed := images.DrainChanges()
	for _, h := range removed {
		rw.Images.remove(h)
	}
	for _, h := range modified {
		img, err := images.GetWeak(h)
		if err != nil {
			continue
		}
		rw.Images.queue(h, img)
	}
}

// RenderGraphSystem runs the frame graph once. A graph error drops the frame.
func RenderGraphSystem(rw *RenderWorld, renderer *Renderer, log Logger) error {
	renderer.Graph.Update(rw)

	ctx, err := renderer.Backend.BeginFrame()
	if errors.Is(err, ErrRetryNextUpdate) {
		log.Debugf("frame %d: no surface, skipping", rw.Frame)
		return nil
	}
	if err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}

	runErr := renderer.Graph.Run(ctx, rw, log)
	endErr := renderer.Backend.EndFrame()
	if runErr != nil {
		return errors.Join(runErr, endErr)
	}
	if endErr != nil {
		return fmt.Errorf("end frame: %w", endErr)
	}
	return nil
}
