package portals

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrRetryNextUpdate signals that a GPU resource cannot be prepared yet; the
// request stays queued and is attempted again next frame.
var ErrRetryNextUpdate = errors.New("retry next update")

type GpuTexture interface {
	Release()
}

type TextureView interface {
	Release()
}

type TextureDescriptor struct {
	Label  string
	Size   Extent
	Format TextureFormat
	Usage  TextureUsage
	Data   []byte
}

type TextureAllocator interface {
	// CreateTexture allocates a texture and a default view, uploading Data when present.
	CreateTexture(desc TextureDescriptor) (GpuTexture, TextureView, error)
}

type PassDescriptor struct {
	Label      string
	Color      TextureView
	Depth      TextureView
	ClearColor [4]float32
}

// DrawCall is one mesh draw. Texture is nil for untextured meshes.
type DrawCall struct {
	Mesh        MeshHandle
	Geometry    Mesh
	Model       mgl32.Mat4
	ViewProj    mgl32.Mat4
	Color       [4]float32
	Texture     *GpuImage
	Unlit       bool
	Screenspace bool
	ViewSize    Extent
}

type PassEncoder interface {
	Draw(call DrawCall)
	End() error
}

type RenderContext interface {
	BeginPass(desc PassDescriptor) (PassEncoder, error)
	// SurfaceView returns the current swapchain view of a window, if it has one this frame.
	SurfaceView(window WindowId) (TextureView, bool)
}

// GpuBackend is the device the render stages drive. BeginFrame may return
// ErrRetryNextUpdate when no surface texture is available (e.g. minimized window).
type GpuBackend interface {
	TextureAllocator
	BeginFrame() (RenderContext, error)
	EndFrame() error
}
