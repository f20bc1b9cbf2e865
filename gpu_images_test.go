package portals

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGpuImages_PrepareAndReady(t *testing.T) {
	images := NewImages()
	h := images.Add(NewPlaceholderImage())
	img, _ := images.Get(h)

	gpu := NewGpuImages()
	gpu.queue(h.Weak(), img)
	_, ok := gpu.Ready(h.Weak())
	assert.False(t, ok)

	backend := newFakeBackend()
	assert.Equal(t, 1, gpu.prepare(backend, NewNopLogger()))
	assert.Equal(t, 0, gpu.Pending())

	ready, ok := gpu.Ready(h.Weak())
	require.True(t, ok)
	assert.Equal(t, Extent{Width: 1, Height: 1}, ready.Size)
	assert.Equal(t, img.Version(), ready.Version)
	assert.Equal(t, []byte{1, 1, 1, 1}, backend.textures[0].desc.Data)
}

func TestGpuImages_RetryKeepsStaleEntry(t *testing.T) {
	images := NewImages()
	h := images.Add(NewPlaceholderImage())
	img, _ := images.Get(h)

	backend := newFakeBackend()
	gpu := NewGpuImages()
	gpu.queue(h.Weak(), img)
	gpu.prepare(backend, NewNopLogger())
	old, _ := gpu.Get(h.Weak())

	_, err := images.Resize(h, Extent{Width: 32, Height: 32})
	require.NoError(t, err)
	gpu.queue(h.Weak(), img)

	backend.deferAlloc = true
	assert.Equal(t, 0, gpu.prepare(backend, NewNopLogger()))
	assert.Equal(t, 1, gpu.Pending())

	_, ok := gpu.Ready(h.Weak())
	assert.False(t, ok, "stale entry is not ready")
	stale, ok := gpu.Get(h.Weak())
	require.True(t, ok, "stale entry can still be sampled")
	assert.Same(t, old, stale)

	assert.Equal(t, 1, gpu.prepare(backend, NewNopLogger()))
	fresh, ok := gpu.Ready(h.Weak())
	require.True(t, ok)
	assert.Equal(t, Extent{Width: 32, Height: 32}, fresh.Size)
	assert.True(t, old.Texture.(*fakeTexture).released)
}

func TestGpuImages_FailedAllocationStaysQueued(t *testing.T) {
	images := NewImages()
	h := images.Add(NewPlaceholderImage())
	img, _ := images.Get(h)

	backend := newFakeBackend()
	backend.failAlloc = errors.New("out of memory")
	gpu := NewGpuImages()
	gpu.queue(h.Weak(), img)

	assert.Equal(t, 0, gpu.prepare(backend, NewNopLogger()))
	assert.Equal(t, 1, gpu.Pending())

	backend.failAlloc = nil
	assert.Equal(t, 1, gpu.prepare(backend, NewNopLogger()))
}

func TestGpuImages_QueueReplacesPending(t *testing.T) {
	images := NewImages()
	h := images.Add(NewPlaceholderImage())
	img, _ := images.Get(h)

	gpu := NewGpuImages()
	gpu.queue(h.Weak(), img)
	_, err := images.Resize(h, Extent{Width: 4, Height: 4})
	require.NoError(t, err)
	gpu.queue(h.Weak(), img)
	assert.Equal(t, 1, gpu.Pending())

	gpu.prepare(newFakeBackend(), NewNopLogger())
	ready, ok := gpu.Ready(h.Weak())
	require.True(t, ok)
	assert.Equal(t, Extent{Width: 4, Height: 4}, ready.Size)
}

func TestGpuImages_Remove(t *testing.T) {
	images := NewImages()
	h := images.Add(NewPlaceholderImage())
	img, _ := images.Get(h)

	gpu := NewGpuImages()
	gpu.queue(h.Weak(), img)
	gpu.prepare(newFakeBackend(), NewNopLogger())
	entry, _ := gpu.Get(h.Weak())

	gpu.remove(h.Weak())
	_, ok := gpu.Get(h.Weak())
	assert.False(t, ok)
	assert.True(t, entry.Texture.(*fakeTexture).released)
}

func TestViewDepthTextures(t *testing.T) {
	backend := newFakeBackend()
	depth := NewViewDepthTextures()

	require.NoError(t, depth.ensure(backend, 1, Extent{Width: 8, Height: 8}))
	first, ok := depth.Get(1)
	require.True(t, ok)
	assert.Equal(t, FormatDepth32Float, first.Texture.(*fakeTexture).desc.Format)

	require.NoError(t, depth.ensure(backend, 1, Extent{Width: 8, Height: 8}))
	same, _ := depth.Get(1)
	assert.Same(t, first, same, "unchanged size reuses the texture")

	require.NoError(t, depth.ensure(backend, 1, Extent{Width: 16, Height: 8}))
	resized, _ := depth.Get(1)
	assert.Equal(t, Extent{Width: 16, Height: 8}, resized.Size)
	assert.True(t, first.Texture.(*fakeTexture).released)

	depth.retain(set[EntityId]{})
	_, ok = depth.Get(1)
	assert.False(t, ok)
	assert.True(t, resized.Texture.(*fakeTexture).released)
}
