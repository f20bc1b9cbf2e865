package portals

import (
	"errors"
)

// GpuImage is the device-side copy of an Image.
type GpuImage struct {
	Texture GpuTexture
	View    TextureView
	Size    Extent
	Format  TextureFormat
	Version uint64

	// ContentFrame is the frame whose render pass last completed into this
	// texture; 0 while it only holds uploaded data.
	ContentFrame uint64

	rendering bool
}

// Rendering reports whether a pass is currently writing into the texture.
func (g *GpuImage) Rendering() bool { return g.rendering }

type pendingImage struct {
	handle  WeakImageHandle
	desc    TextureDescriptor
	version uint64
}

// GpuImages caches materialized images. A queued reallocation leaves the
// previous texture in place, so it can still be sampled until the new one exists.
type GpuImages struct {
	images  map[WeakImageHandle]*GpuImage
	latest  map[WeakImageHandle]uint64
	pending []pendingImage
}

func NewGpuImages() *GpuImages {
	return &GpuImages{
		images: make(map[WeakImageHandle]*GpuImage),
		latest: make(map[WeakImageHandle]uint64),
	}
}

// Get returns the current texture for the handle, fresh or not.
func (g *GpuImages) Get(h WeakImageHandle) (*GpuImage, bool) {
	img, ok := g.images[h]
	return img, ok
}

// Ready returns the texture only when it matches the latest version of the image.
func (g *GpuImages) Ready(h WeakImageHandle) (*GpuImage, bool) {
	img, ok := g.images[h]
	if !ok || img.Version < g.latest[h] {
		return nil, false
	}
	return img, true
}

func (g *GpuImages) Pending() int { return len(g.pending) }

func (g *GpuImages) queue(h WeakImageHandle, img *Image) {
	p := pendingImage{
		handle: h,
		desc: TextureDescriptor{
			Label:  img.Label,
			Size:   img.Size,
			Format: img.Format,
			Usage:  img.Usage,
			Data:   img.Data,
		},
		version: img.Version(),
	}
	g.latest[h] = p.version
	for i := range g.pending {
		if g.pending[i].handle == h {
			g.pending[i] = p
			return
		}
	}
	g.pending = append(g.pending, p)
}

func (g *GpuImages) remove(h WeakImageHandle) {
	if img, ok := g.images[h]; ok {
		img.release()
		delete(g.images, h)
	}
	delete(g.latest, h)
	for i := range g.pending {
		if g.pending[i].handle == h {
			g.pending = append(g.pending[:i], g.pending[i+1:]...)
			break
		}
	}
}

// prepare materializes queued images. Failed allocations stay queued.
func (g *GpuImages) prepare(alloc TextureAllocator, log Logger) (prepared int) {
	remaining := g.pending[:0]
	for _, p := range g.pending {
		tex, view, err := alloc.CreateTexture(p.desc)
		if err != nil {
			if errors.Is(err, ErrRetryNextUpdate) {
				log.Debugf("image %s (%s): retrying next frame", p.handle, p.desc.Size)
			} else {
				log.Warnf("image %s (%s): allocation failed: %v", p.handle, p.desc.Size, err)
			}
			remaining = append(remaining, p)
			continue
		}

		if old, ok := g.images[p.handle]; ok {
			old.release()
		}
		g.images[p.handle] = &GpuImage{
			Texture: tex,
			View:    view,
			Size:    p.desc.Size,
			Format:  p.desc.Format,
			Version: p.version,
		}
		prepared++
	}
	g.pending = remaining
	return prepared
}

func (g *GpuImage) release() {
	if g.View != nil {
		g.View.Release()
	}
	if g.Texture != nil {
		g.Texture.Release()
	}
}

// PrepareGpuImagesSystem uploads images queued during Extract.
func PrepareGpuImagesSystem(rw *RenderWorld, renderer *Renderer, log Logger) {
	if rw.Images.Pending() == 0 {
		return
	}
	n := rw.Images.prepare(renderer.Backend, log)
	if n > 0 {
		log.Debugf("frame %d: prepared %d images, %d pending", rw.Frame, n, rw.Images.Pending())
	}
}
