package portals

// ImageHolders tracks the image references owned by RenderToTexture and
// DisplayMaterial components. A component owns the reference it holds, so a
// handle placed in one must come from Images.Add or Images.Clone.
type ImageHolders struct {
	held map[WeakImageHandle]heldImage
}

type heldImage struct {
	handle ImageHandle
	count  int
}

func NewImageHolders() *ImageHolders {
	return &ImageHolders{held: make(map[WeakImageHandle]heldImage)}
}

// Held reports how many components hold the image as of the last sweep.
func (ih *ImageHolders) Held(h ImageHandle) int {
	return ih.held[h.Weak()].count
}

// ReleaseUnheldImagesSystem drops the references of components that were
// despawned, removed or repointed since the previous frame. Swaps only move
// handles between holders and leave the counts unchanged.
func ReleaseUnheldImagesSystem(cmd *Commands, images *Images, holders *ImageHolders, log Logger) {
	current := make(map[WeakImageHandle]heldImage, len(holders.held))
	hold := func(h ImageHandle) {
		if h.IsZero() {
			return
		}
		e := current[h.Weak()]
		e.handle = h
		e.count++
		current[h.Weak()] = e
	}
	MakeQuery1[RenderToTexture](cmd).Map(func(_ EntityId, rtt *RenderToTexture) bool {
		hold(rtt.Image)
		return true
	})
	MakeQuery1[DisplayMaterial](cmd).Map(func(_ EntityId, mat *DisplayMaterial) bool {
		hold(mat.Texture)
		return true
	})

	for weak, prev := range holders.held {
		lost := prev.count - current[weak].count
		if lost <= 0 {
			continue
		}
		for range lost {
			images.Drop(prev.handle)
		}
		log.Debugf("image %s: %d holder(s) gone, dropped", weak, lost)
	}
	holders.held = current
}
