package portals

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// ExtractedView is the render-side copy of an active camera.
type ExtractedView struct {
	Label      string
	Window     WindowId
	ViewProj   mgl32.Mat4
	Position   mgl32.Vec3
	Size       Extent
	ClearColor [4]float32
	Offscreen  bool
}

type ExtractedMesh struct {
	Mesh     MeshHandle
	Geometry Mesh
	Model    mgl32.Mat4
	Position mgl32.Vec3
	Color    [4]float32
}

type ExtractedMaterial struct {
	Texture     WeakImageHandle
	BaseColor   [4]float32
	Unlit       bool
	Screenspace bool
}

type DrawContext struct {
	World  *RenderWorld
	Pass   PassEncoder
	View   *ExtractedView
	Logger Logger
}

type DrawFunction func(dc *DrawContext, item PhaseItem)

type PhaseItem struct {
	Entity   EntityId
	Draw     DrawFunction
	Distance float32
}

// RenderPhase is the ordered draw list of one view for the current frame.
type RenderPhase struct {
	Items []PhaseItem
}

func (p *RenderPhase) Add(item PhaseItem) {
	p.Items = append(p.Items, item)
}

// Sort orders items back to front.
func (p *RenderPhase) Sort() {
	slices.SortStableFunc(p.Items, func(a, b PhaseItem) int {
		switch {
		case a.Distance > b.Distance:
			return -1
		case a.Distance < b.Distance:
			return 1
		}
		return 0
	})
}

// QueueMeshesSystem fills every view's phase with the extracted meshes.
func QueueMeshesSystem(rw *RenderWorld) {
	RenderQuery2[ExtractedView, RenderPhase](rw).Map(func(viewId EntityId, view *ExtractedView, phase *RenderPhase) bool {
		RenderQuery2[ExtractedMesh, ExtractedMaterial](rw).Map(func(eid EntityId, mesh *ExtractedMesh, mat *ExtractedMaterial) bool {
			draw := DrawMesh
			if mat != nil {
				draw = DrawDisplay
			}
			phase.Add(PhaseItem{
				Entity:   eid,
				Draw:     draw,
				Distance: mesh.Position.Sub(view.Position).Len(),
			})
			return true
		}, ExtractedMaterial{})
		phase.Sort()
		return true
	})
}

func DrawMesh(dc *DrawContext, item PhaseItem) {
	mesh, ok := RenderGet[ExtractedMesh](dc.World, item.Entity)
	if !ok {
		return
	}
	dc.Pass.Draw(DrawCall{
		Mesh:     mesh.Mesh,
		Geometry: mesh.Geometry,
		Model:    mesh.Model,
		ViewProj: dc.View.ViewProj,
		Color:    mesh.Color,
		ViewSize: dc.View.Size,
	})
}

// DrawDisplay draws a textured mesh. The texture is resolved now rather than
// at queue time so it sees swaps made earlier in the graph. A texture that is
// not materialized yet is skipped; one that a pass is writing into is never sampled.
func DrawDisplay(dc *DrawContext, item PhaseItem) {
	mesh, ok := RenderGet[ExtractedMesh](dc.World, item.Entity)
	if !ok {
		return
	}
	mat, ok := RenderGet[ExtractedMaterial](dc.World, item.Entity)
	if !ok {
		return
	}
	tex, ok := dc.World.Images.Get(mat.Texture)
	if !ok {
		dc.Logger.Debugf("entity %d: texture %s not materialized", item.Entity, mat.Texture)
		return
	}
	if tex.rendering {
		dc.World.Diagnostics.SamplingHazards++
		dc.Logger.Warnf("entity %d: texture %s is the current render target, not sampled", item.Entity, mat.Texture)
		return
	}
	dc.Pass.Draw(DrawCall{
		Mesh:        mesh.Mesh,
		Geometry:    mesh.Geometry,
		Model:       mesh.Model,
		ViewProj:    dc.View.ViewProj,
		Color:       mat.BaseColor,
		Texture:     tex,
		Unlit:       mat.Unlit,
		Screenspace: mat.Screenspace,
		ViewSize:    dc.View.Size,
	})
}
