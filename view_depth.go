package portals

import (
	"fmt"
)

type ViewDepth struct {
	Texture GpuTexture
	View    TextureView
	Size    Extent
}

// ViewDepthTextures keeps one depth buffer per extracted view, reallocated when
// the view's size changes.
type ViewDepthTextures struct {
	textures map[EntityId]*ViewDepth
}

func NewViewDepthTextures() *ViewDepthTextures {
	return &ViewDepthTextures{textures: make(map[EntityId]*ViewDepth)}
}

func (v *ViewDepthTextures) Get(eid EntityId) (*ViewDepth, bool) {
	d, ok := v.textures[eid]
	return d, ok
}

func (v *ViewDepthTextures) ensure(alloc TextureAllocator, eid EntityId, size Extent) error {
	if d, ok := v.textures[eid]; ok {
		if d.Size == size {
			return nil
		}
		d.release()
		delete(v.textures, eid)
	}

	tex, view, err := alloc.CreateTexture(TextureDescriptor{
		Label:  fmt.Sprintf("view %d depth", eid),
		Size:   size,
		Format: FormatDepth32Float,
		Usage:  UsageRenderAttachment,
	})
	if err != nil {
		return err
	}
	v.textures[eid] = &ViewDepth{Texture: tex, View: view, Size: size}
	return nil
}

func (v *ViewDepthTextures) retain(live set[EntityId]) {
	for eid, d := range v.textures {
		if _, ok := live[eid]; !ok {
			d.release()
			delete(v.textures, eid)
		}
	}
}

func (d *ViewDepth) release() {
	if d.View != nil {
		d.View.Release()
	}
	if d.Texture != nil {
		d.Texture.Release()
	}
}

// PrepareViewDepthTexturesSystem provisions a depth buffer for every view
// extracted this frame. A view whose allocation fails has none and its pass is skipped.
func PrepareViewDepthTexturesSystem(rw *RenderWorld, renderer *Renderer, log Logger) {
	live := make(set[EntityId])
	RenderQuery1[ExtractedView](rw).Map(func(eid EntityId, view *ExtractedView) bool {
		live[eid] = struct{}{}
		if err := rw.DepthTextures.ensure(renderer.Backend, eid, view.Size); err != nil {
			log.Debugf("view %d: depth texture %s not ready: %v", eid, view.Size, err)
		}
		return true
	})
	rw.DepthTextures.retain(live)
}
