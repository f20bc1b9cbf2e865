package portals

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnknownImage = errors.New("unknown image handle")
	ErrEmptyExtent  = errors.New("image extent must be non-zero")
)

type Extent struct {
	Width  uint32
	Height uint32
}

func (e Extent) IsZero() bool { return e.Width == 0 || e.Height == 0 }

func (e Extent) String() string { return fmt.Sprintf("%dx%d", e.Width, e.Height) }

type TextureFormat uint8

const (
	FormatRGBA8UnormSrgb TextureFormat = iota
	FormatBGRA8UnormSrgb
	FormatDepth32Float
)

func (f TextureFormat) BytesPerPixel() int {
	return 4
}

type TextureUsage uint32

const (
	UsageCopySrc TextureUsage = 1 << iota
	UsageCopyDst
	UsageSampled
	UsageStorage
	UsageRenderAttachment
)

func (u TextureUsage) Has(flags TextureUsage) bool { return u&flags == flags }

// Image is the CPU-side description of a 2D texture. Data may be empty for
// render targets; when present it holds Width*Height texels.
type Image struct {
	Label  string
	Size   Extent
	Format TextureFormat
	Usage  TextureUsage
	Data   []byte

	version uint64
}

// Version increases every time the image's storage is reallocated.
func (img *Image) Version() uint64 { return img.version }

// NewPlaceholderImage returns the 1x1 white image portals start with.
func NewPlaceholderImage() Image {
	return Image{
		Size:   Extent{Width: 1, Height: 1},
		Format: FormatRGBA8UnormSrgb,
		Usage:  UsageRenderAttachment | UsageSampled | UsageCopyDst,
		Data:   []byte{1, 1, 1, 1},
	}
}

// ImageHandle is an owning reference into Images. The zero value refers to nothing.
type ImageHandle struct {
	index      uint32
	generation uint32
}

// WeakImageHandle identifies an image without keeping it alive.
type WeakImageHandle struct {
	index      uint32
	generation uint32
}

func (h ImageHandle) Weak() WeakImageHandle {
	return WeakImageHandle(h)
}

func (h ImageHandle) IsZero() bool { return h.generation == 0 }

func (h WeakImageHandle) IsZero() bool { return h.generation == 0 }

func (h WeakImageHandle) String() string {
	return fmt.Sprintf("image(%d:%d)", h.index, h.generation)
}

type imageSlot struct {
	image      *Image
	generation uint32
	refs       int
}

// Images owns every image. Slots are recycled; a recycled slot gets a new
// generation so old handles stop resolving.
type Images struct {
	slots []imageSlot
	free  []uint32

	modified []WeakImageHandle
	removed  []WeakImageHandle
}

func NewImages() *Images {
	return &Images{}
}

func (images *Images) Add(img Image) ImageHandle {
	if img.Label == "" {
		img.Label = uuid.NewString()
	}
	img.version = 1

	var idx uint32
	if n := len(images.free); n > 0 {
		idx = images.free[n-1]
		images.free = images.free[:n-1]
	} else {
		idx = uint32(len(images.slots))
		images.slots = append(images.slots, imageSlot{})
	}

	slot := &images.slots[idx]
	slot.generation++
	slot.image = &img
	slot.refs = 1

	h := ImageHandle{index: idx, generation: slot.generation}
	images.markModified(h.Weak())
	return h
}

func (images *Images) slot(h WeakImageHandle) (*imageSlot, bool) {
	if h.generation == 0 || int(h.index) >= len(images.slots) {
		return nil, false
	}
	s := &images.slots[h.index]
	if s.generation != h.generation || s.image == nil {
		return nil, false
	}
	return s, true
}

func (images *Images) Get(h ImageHandle) (*Image, error) {
	return images.GetWeak(h.Weak())
}

func (images *Images) GetWeak(h WeakImageHandle) (*Image, error) {
	s, ok := images.slot(h)
	if !ok {
		return nil, fmt.Errorf("%s: %w", h, ErrUnknownImage)
	}
	return s.image, nil
}

// Clone returns another owning reference to the same image.
func (images *Images) Clone(h ImageHandle) (ImageHandle, error) {
	s, ok := images.slot(h.Weak())
	if !ok {
		return ImageHandle{}, fmt.Errorf("%s: %w", h.Weak(), ErrUnknownImage)
	}
	s.refs++
	return h, nil
}

// Drop releases an owning reference; the image is freed with the last one.
func (images *Images) Drop(h ImageHandle) {
	s, ok := images.slot(h.Weak())
	if !ok {
		return
	}
	s.refs--
	if s.refs > 0 {
		return
	}
	s.image = nil
	images.free = append(images.free, h.index)
	images.removed = append(images.removed, h.Weak())
}

// Resize reallocates the image's storage for the new size, keeping format,
// usage and handle. Returns false without touching the image when the size is
// already current.
func (images *Images) Resize(h ImageHandle, size Extent) (bool, error) {
	img, err := images.Get(h)
	if err != nil {
		return false, err
	}
	if size.IsZero() {
		return false, fmt.Errorf("resize %s to %s: %w", h.Weak(), size, ErrEmptyExtent)
	}
	if img.Size == size {
		return false, nil
	}

	img.Size = size
	if img.Data != nil {
		img.Data = make([]byte, int(size.Width)*int(size.Height)*img.Format.BytesPerPixel())
	}
	img.version++
	images.markModified(h.Weak())
	return true, nil
}

// MarkModified queues the image for re-upload after its Data was edited in place.
func (images *Images) MarkModified(h ImageHandle) error {
	img, err := images.Get(h)
	if err != nil {
		return err
	}
	img.version++
	images.markModified(h.Weak())
	return nil
}

func (images *Images) markModified(h WeakImageHandle) {
	for _, m := range images.modified {
		if m == h {
			return
		}
	}
	images.modified = append(images.modified, h)
}

// DrainChanges returns the images modified and removed since the last call.
// A handle removed after being modified is only reported as removed.
func (images *Images) DrainChanges() (modified, removed []WeakImageHandle) {
	for _, h := range images.modified {
		if _, ok := images.slot(h); ok {
			modified = append(modified, h)
		}
	}
	removed = images.removed
	images.modified = nil
	images.removed = nil
	return modified, removed
}

func (images *Images) Len() int {
	n := 0
	for _, s := range images.slots {
		if s.image != nil {
			n++
		}
	}
	return n
}
