package portals

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTexture struct {
	desc     TextureDescriptor
	released bool
}

func (t *fakeTexture) Release() { t.released = true }

type fakeView struct {
	tex     *fakeTexture
	surface bool
	window  WindowId
}

func (v *fakeView) Release() {}

func (v *fakeView) label() string {
	if v.surface {
		return fmt.Sprintf("surface %d", v.window)
	}
	return v.tex.desc.Label
}

// fakeDraw is a snapshot of a textured draw, taken when the draw was issued.
type fakeDraw struct {
	Texture      string
	TextureSize  Extent
	ContentFrame uint64
	Rendering    bool
	Screenspace  bool
	ViewSize     Extent
}

type fakePass struct {
	Label  string
	Target string
	Size   Extent
	Draws  []fakeDraw
	Plain  int
}

// fakeBackend records passes and draws instead of talking to a GPU.
type fakeBackend struct {
	// deferAlloc makes the first allocation of every (label, size) color texture
	// fail with ErrRetryNextUpdate.
	deferAlloc bool
	deferred   map[string]bool
	failAlloc  error
	noSurface  bool
	failPass   error

	textures []*fakeTexture
	frames   int
	passes   []fakePass
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{deferred: make(map[string]bool)}
}

func (b *fakeBackend) CreateTexture(desc TextureDescriptor) (GpuTexture, TextureView, error) {
	if b.failAlloc != nil {
		return nil, nil, b.failAlloc
	}
	if desc.Size.IsZero() {
		return nil, nil, ErrEmptyExtent
	}
	if b.deferAlloc && desc.Format != FormatDepth32Float {
		key := fmt.Sprintf("%s@%s", desc.Label, desc.Size)
		if !b.deferred[key] {
			b.deferred[key] = true
			return nil, nil, ErrRetryNextUpdate
		}
	}
	tex := &fakeTexture{desc: desc}
	b.textures = append(b.textures, tex)
	return tex, &fakeView{tex: tex}, nil
}

func (b *fakeBackend) BeginFrame() (RenderContext, error) {
	if b.noSurface {
		return nil, ErrRetryNextUpdate
	}
	b.frames++
	b.passes = b.passes[:0]
	return b, nil
}

func (b *fakeBackend) EndFrame() error { return nil }

func (b *fakeBackend) SurfaceView(window WindowId) (TextureView, bool) {
	return &fakeView{surface: true, window: window}, true
}

func (b *fakeBackend) BeginPass(desc PassDescriptor) (PassEncoder, error) {
	if b.failPass != nil {
		return nil, b.failPass
	}
	target := desc.Color.(*fakeView)
	rec := fakePass{Label: desc.Label, Target: target.label()}
	if !target.surface {
		rec.Size = target.tex.desc.Size
	}
	return &fakePassEncoder{backend: b, rec: rec}, nil
}

type fakePassEncoder struct {
	backend *fakeBackend
	rec     fakePass
}

func (p *fakePassEncoder) Draw(call DrawCall) {
	if call.Texture == nil {
		p.rec.Plain++
		return
	}
	p.rec.Draws = append(p.rec.Draws, fakeDraw{
		Texture:      call.Texture.View.(*fakeView).label(),
		TextureSize:  call.Texture.Size,
		ContentFrame: call.Texture.ContentFrame,
		Rendering:    call.Texture.Rendering(),
		Screenspace:  call.Screenspace,
		ViewSize:     call.ViewSize,
	})
}

func (p *fakePassEncoder) End() error {
	p.backend.passes = append(p.backend.passes, p.rec)
	return nil
}

func (b *fakeBackend) pass(t *testing.T, label string) fakePass {
	t.Helper()
	for _, p := range b.passes {
		if p.Label == label {
			return p
		}
	}
	require.Failf(t, "pass not recorded", "no pass %q in frame %d", label, b.frames)
	return fakePass{}
}

func (b *fakeBackend) hasPass(label string) bool {
	for _, p := range b.passes {
		if p.Label == label {
			return true
		}
	}
	return false
}

// portalHarness is an app with the render, render-to-texture and display
// modules on a fake backend, and a primary window of 1280x720.
type portalHarness struct {
	app     *App
	backend *fakeBackend
	images  *Images
	meshes  *Meshes
	windows *Windows
	rw      *RenderWorld
	diag    *PortalDiagnostics
}

func newPortalHarness(t *testing.T, backend *fakeBackend) *portalHarness {
	t.Helper()

	windows := NewWindows()
	windows.Add(PrimaryWindow, &Window{Title: "test", PhysicalWidth: 1280, PhysicalHeight: 720})

	app := NewApp()
	app.Commands().AddResources(windows)
	app.UseModules(
		RenderModule{Backend: backend},
		RenderToTextureModule{},
		CamDisplayModule{},
	)

	h := &portalHarness{app: app, backend: backend, windows: windows}
	var ok bool
	h.images, ok = Resource[Images](app)
	require.True(t, ok)
	h.meshes, ok = Resource[Meshes](app)
	require.True(t, ok)
	h.rw, ok = Resource[RenderWorld](app)
	require.True(t, ok)
	h.diag, ok = Resource[PortalDiagnostics](app)
	require.True(t, ok)
	return h
}

func (h *portalHarness) spawnMainCamera() EntityId {
	eid := h.app.Commands().AddEntity(NewCamera("main"), TransformFromXYZ(-2, 2.5, 5))
	h.app.FlushCommands()
	return eid
}

func (h *portalHarness) spawnPortal(label string, x float32) Portal {
	p := SpawnPortal(h.app.Commands(), h.images, PortalDescriptor{
		Label:     label,
		Window:    PrimaryWindow,
		Camera:    TransformFromXYZ(x, 2.5, -5),
		Mesh:      h.meshes.Add(PlaneMesh(1)),
		Display:   TransformFromXYZ(x, 1.5, -1),
		BaseColor: [4]float32{1, 1, 1, 1},
	})
	h.app.FlushCommands()
	return p
}

func (h *portalHarness) label(t *testing.T, handle ImageHandle) string {
	t.Helper()
	img, err := h.images.Get(handle)
	require.NoError(t, err)
	return img.Label
}

func (h *portalHarness) renderTarget(t *testing.T, p Portal) ImageHandle {
	t.Helper()
	rtt, ok := GetComponent[RenderToTexture](h.app.Commands(), p.Camera)
	require.True(t, ok)
	return rtt.Image
}

func (h *portalHarness) displayTexture(t *testing.T, p Portal) ImageHandle {
	t.Helper()
	mat, ok := GetComponent[DisplayMaterial](h.app.Commands(), p.Display)
	require.True(t, ok)
	return mat.Texture
}

// sampled returns the draw of the given texture in the named pass.
func (h *portalHarness) sampled(t *testing.T, passLabel, texture string) (fakeDraw, bool) {
	t.Helper()
	for _, d := range h.backend.pass(t, passLabel).Draws {
		if d.Texture == texture {
			return d, true
		}
	}
	return fakeDraw{}, false
}
