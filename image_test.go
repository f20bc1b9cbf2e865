package portals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImages_AddAndGet(t *testing.T) {
	images := NewImages()
	h := images.Add(NewPlaceholderImage())

	require.False(t, h.IsZero())
	img, err := images.Get(h)
	require.NoError(t, err)
	assert.NotEmpty(t, img.Label, "unlabelled images get a generated label")
	assert.Equal(t, uint64(1), img.Version())
	assert.Equal(t, 1, images.Len())

	weak, err := images.GetWeak(h.Weak())
	require.NoError(t, err)
	assert.Same(t, img, weak)

	_, err = images.Get(ImageHandle{})
	assert.ErrorIs(t, err, ErrUnknownImage)
}

func TestImages_ResizeIsIdempotent(t *testing.T) {
	images := NewImages()
	h := images.Add(NewPlaceholderImage())
	images.DrainChanges()

	sizes := []Extent{{1280, 720}, {1280, 720}, {800, 600}, {1280, 720}, {1280, 720}, {1, 1}}
	wantResized := []bool{true, false, true, true, false, true}

	for i, size := range sizes {
		resized, err := images.Resize(h, size)
		require.NoError(t, err)
		assert.Equal(t, wantResized[i], resized, "step %d to %s", i, size)

		img, err := images.Get(h)
		require.NoError(t, err)
		assert.Equal(t, size, img.Size)
		assert.Len(t, img.Data, int(size.Width*size.Height)*4)

		modified, _ := images.DrainChanges()
		if resized {
			assert.Equal(t, []WeakImageHandle{h.Weak()}, modified)
		} else {
			assert.Empty(t, modified)
		}
	}
}

func TestImages_ResizeKeepsFormatUsageAndHandle(t *testing.T) {
	images := NewImages()
	placeholder := NewPlaceholderImage()
	h := images.Add(placeholder)
	before, _ := images.Get(h)
	label := before.Label

	_, err := images.Resize(h, Extent{Width: 64, Height: 32})
	require.NoError(t, err)

	img, err := images.Get(h)
	require.NoError(t, err)
	assert.Equal(t, label, img.Label)
	assert.Equal(t, placeholder.Format, img.Format)
	assert.Equal(t, placeholder.Usage, img.Usage)
	assert.Equal(t, uint64(2), img.Version())
}

func TestImages_ResizeErrors(t *testing.T) {
	images := NewImages()
	h := images.Add(NewPlaceholderImage())

	_, err := images.Resize(h, Extent{Width: 0, Height: 10})
	assert.ErrorIs(t, err, ErrEmptyExtent)

	_, err = images.Resize(ImageHandle{index: 7, generation: 1}, Extent{Width: 1, Height: 1})
	assert.ErrorIs(t, err, ErrUnknownImage)
}

func TestImages_ResizeWithoutData(t *testing.T) {
	images := NewImages()
	h := images.Add(Image{Size: Extent{Width: 1, Height: 1}, Usage: UsageRenderAttachment})

	_, err := images.Resize(h, Extent{Width: 16, Height: 16})
	require.NoError(t, err)
	img, _ := images.Get(h)
	assert.Nil(t, img.Data)
}

func TestImages_CloneAndDrop(t *testing.T) {
	images := NewImages()
	h := images.Add(NewPlaceholderImage())
	images.DrainChanges()

	clone, err := images.Clone(h)
	require.NoError(t, err)
	assert.Equal(t, h, clone)

	images.Drop(h)
	_, err = images.Get(clone)
	require.NoError(t, err, "a clone keeps the image alive")

	images.Drop(clone)
	_, err = images.Get(h)
	assert.ErrorIs(t, err, ErrUnknownImage)
	assert.Equal(t, 0, images.Len())

	_, removed := images.DrainChanges()
	assert.Equal(t, []WeakImageHandle{h.Weak()}, removed)
}

func TestImages_RecycledSlotInvalidatesOldHandles(t *testing.T) {
	images := NewImages()
	old := images.Add(NewPlaceholderImage())
	images.Drop(old)

	fresh := images.Add(NewPlaceholderImage())
	assert.Equal(t, old.index, fresh.index)
	assert.NotEqual(t, old, fresh)

	_, err := images.Get(old)
	assert.ErrorIs(t, err, ErrUnknownImage)
	_, err = images.Get(fresh)
	assert.NoError(t, err)

	// Dropping a stale handle must not free the new occupant.
	images.Drop(old)
	_, err = images.Get(fresh)
	assert.NoError(t, err)
}

func TestImages_DrainChanges(t *testing.T) {
	images := NewImages()
	a := images.Add(NewPlaceholderImage())
	b := images.Add(NewPlaceholderImage())
	require.NoError(t, images.MarkModified(a))

	images.Drop(b)
	modified, removed := images.DrainChanges()
	assert.Equal(t, []WeakImageHandle{a.Weak()}, modified)
	assert.Equal(t, []WeakImageHandle{b.Weak()}, removed)

	modified, removed = images.DrainChanges()
	assert.Empty(t, modified)
	assert.Empty(t, removed)
}

func TestExtent(t *testing.T) {
	assert.True(t, Extent{}.IsZero())
	assert.True(t, Extent{Width: 3}.IsZero())
	assert.False(t, Extent{Width: 3, Height: 2}.IsZero())
	assert.Equal(t, "3x2", Extent{Width: 3, Height: 2}.String())
}
