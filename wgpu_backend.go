package portals

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
)

const meshShader = `
struct Uniforms {
	model: mat4x4<f32>,
	view_proj: mat4x4<f32>,
	color: vec4<f32>,
	view_size: vec2<f32>,
	screenspace: f32,
	_pad: f32,
};

@group(0) @binding(0) var<uniform> u: Uniforms;
@group(0) @binding(1) var t_color: texture_2d<f32>;
@group(0) @binding(2) var s_color: sampler;

struct VertexOutput {
	@builtin(position) clip: vec4<f32>,
	@location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@location(0) position: vec3<f32>, @location(1) uv: vec2<f32>) -> VertexOutput {
	var out: VertexOutput;
	out.clip = u.view_proj * u.model * vec4<f32>(position, 1.0);
	out.uv = uv;
	return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
	var uv = in.uv;
	if (u.screenspace > 0.5) {
		uv = in.clip.xy / u.view_size;
	}
	return u.color * textureSample(t_color, s_color, uv);
}
`

type releaser interface {
	Release()
}

type wgpuTexture struct {
	texture *wgpu.Texture
}

func (t *wgpuTexture) Release() { t.texture.Release() }

type wgpuView struct {
	view   *wgpu.TextureView
	format wgpu.TextureFormat
	owned  bool
}

func (v *wgpuView) Release() {
	if v.owned {
		v.view.Release()
	}
}

type meshBuffer struct {
	buffer *wgpu.Buffer
	count  uint32
}

// WgpuBackend renders through WebGPU into the primary GLFW window.
type WgpuBackend struct {
	surface *wgpu.Surface
	adapter *wgpu.Adapter
	device  *wgpu.Device
	queue   *wgpu.Queue
	config  *wgpu.SurfaceConfiguration
	windows *Windows

	shader    *wgpu.ShaderModule
	sampler   *wgpu.Sampler
	white     *wgpuView
	whiteTex  *wgpu.Texture
	pipelines map[wgpu.TextureFormat]*wgpu.RenderPipeline
	meshes    map[MeshHandle]*meshBuffer

	frame *wgpuFrame
}

type wgpuFrame struct {
	backend   *WgpuBackend
	texture   *wgpu.Texture
	view      *wgpuView
	encoder   *wgpu.CommandEncoder
	transient []releaser
}

// NewWgpuBackend creates the device and surface for the window opened by WindowModule.
func NewWgpuBackend(app *App) (*WgpuBackend, error) {
	pw, ok := Resource[platformWindows](app)
	if !ok {
		return nil, errors.New("wgpu backend needs WindowModule")
	}
	windows, _ := Resource[Windows](app)
	handle := pw.handles[PrimaryWindow]

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(handle))
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "Portals Device"})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}

	width, height := handle.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	config := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(max(width, 1)),
		Height:      uint32(max(height, 1)),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, config)

	b := &WgpuBackend{
		surface:   surface,
		adapter:   adapter,
		device:    device,
		queue:     device.GetQueue(),
		config:    config,
		windows:   windows,
		pipelines: make(map[wgpu.TextureFormat]*wgpu.RenderPipeline),
		meshes:    make(map[MeshHandle]*meshBuffer),
	}
	if err := b.init(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *WgpuBackend) init() error {
	shader, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "mesh",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: meshShader},
	})
	if err != nil {
		return fmt.Errorf("mesh shader: %w", err)
	}
	b.shader = shader

	b.sampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("sampler: %w", err)
	}

	white := Image{
		Label:  "white",
		Size:   Extent{Width: 1, Height: 1},
		Format: FormatRGBA8UnormSrgb,
		Usage:  UsageSampled | UsageCopyDst,
		Data:   []byte{255, 255, 255, 255},
	}
	tex, view, err := b.CreateTexture(TextureDescriptor{
		Label: white.Label, Size: white.Size, Format: white.Format, Usage: white.Usage, Data: white.Data,
	})
	if err != nil {
		return fmt.Errorf("white texture: %w", err)
	}
	b.whiteTex = tex.(*wgpuTexture).texture
	b.white = view.(*wgpuView)
	return nil
}

func toWgpuFormat(f TextureFormat) wgpu.TextureFormat {
	switch f {
	case FormatBGRA8UnormSrgb:
		return wgpu.TextureFormatBGRA8UnormSrgb
	case FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	}
	return wgpu.TextureFormatRGBA8UnormSrgb
}

func toWgpuUsage(u TextureUsage) wgpu.TextureUsage {
	var res wgpu.TextureUsage
	if u.Has(UsageCopySrc) {
		res |= wgpu.TextureUsageCopySrc
	}
	if u.Has(UsageCopyDst) {
		res |= wgpu.TextureUsageCopyDst
	}
	if u.Has(UsageSampled) {
		res |= wgpu.TextureUsageTextureBinding
	}
	if u.Has(UsageStorage) {
		res |= wgpu.TextureUsageStorageBinding
	}
	if u.Has(UsageRenderAttachment) {
		res |= wgpu.TextureUsageRenderAttachment
	}
	return res
}

func (b *WgpuBackend) CreateTexture(desc TextureDescriptor) (GpuTexture, TextureView, error) {
	if desc.Size.IsZero() {
		return nil, nil, fmt.Errorf("texture %s: %w", desc.Label, ErrEmptyExtent)
	}
	format := toWgpuFormat(desc.Format)
	extent := wgpu.Extent3D{Width: desc.Size.Width, Height: desc.Size.Height, DepthOrArrayLayers: 1}

	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         toWgpuUsage(desc.Usage),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create texture %s: %w", desc.Label, err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, nil, fmt.Errorf("create view %s: %w", desc.Label, err)
	}

	if len(desc.Data) > 0 && desc.Usage.Has(UsageCopyDst) {
		b.queue.WriteTexture(
			texture.AsImageCopy(),
			desc.Data,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  desc.Size.Width * uint32(desc.Format.BytesPerPixel()),
				RowsPerImage: desc.Size.Height,
			},
			&extent,
		)
	}

	return &wgpuTexture{texture: texture}, &wgpuView{view: view, format: format, owned: true}, nil
}

// BeginFrame acquires the next surface texture, reconfiguring the surface
// when the window's framebuffer changed size.
func (b *WgpuBackend) BeginFrame() (RenderContext, error) {
	if w, ok := b.windows.Primary(); ok {
		if w.PhysicalWidth <= 0 || w.PhysicalHeight <= 0 {
			return nil, ErrRetryNextUpdate
		}
		if uint32(w.PhysicalWidth) != b.config.Width || uint32(w.PhysicalHeight) != b.config.Height {
			b.config.Width = uint32(w.PhysicalWidth)
			b.config.Height = uint32(w.PhysicalHeight)
			b.surface.Configure(b.adapter, b.device, b.config)
		}
	}

	texture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("%w: surface texture: %v", ErrRetryNextUpdate, err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("surface view: %w", err)
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		texture.Release()
		return nil, fmt.Errorf("command encoder: %w", err)
	}

	b.frame = &wgpuFrame{
		backend: b,
		texture: texture,
		view:    &wgpuView{view: view, format: b.config.Format},
		encoder: encoder,
	}
	return b.frame, nil
}

func (b *WgpuBackend) EndFrame() error {
	f := b.frame
	if f == nil {
		return nil
	}
	b.frame = nil
	defer func() {
		for _, r := range f.transient {
			r.Release()
		}
		f.view.view.Release()
		f.texture.Release()
	}()

	cmdBuffer, err := f.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	b.queue.Submit(cmdBuffer)
	b.surface.Present()
	return nil
}

func (f *wgpuFrame) SurfaceView(window WindowId) (TextureView, bool) {
	if window != PrimaryWindow {
		return nil, false
	}
	return f.view, true
}

func (f *wgpuFrame) BeginPass(desc PassDescriptor) (PassEncoder, error) {
	color, ok := desc.Color.(*wgpuView)
	if !ok {
		return nil, fmt.Errorf("pass %s: color target is not a wgpu view", desc.Label)
	}
	depth, ok := desc.Depth.(*wgpuView)
	if !ok {
		return nil, fmt.Errorf("pass %s: depth target is not a wgpu view", desc.Label)
	}

	pipeline, err := f.backend.pipeline(color.format)
	if err != nil {
		return nil, err
	}

	pass := f.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    color.view,
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: float64(desc.ClearColor[0]),
				G: float64(desc.ClearColor[1]),
				B: float64(desc.ClearColor[2]),
				A: float64(desc.ClearColor[3]),
			},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	pass.SetPipeline(pipeline)
	return &wgpuPass{frame: f, pass: pass, pipeline: pipeline}, nil
}

type wgpuPass struct {
	frame    *wgpuFrame
	pass     *wgpu.RenderPassEncoder
	pipeline *wgpu.RenderPipeline
	err      error
}

func (p *wgpuPass) Draw(call DrawCall) {
	if p.err != nil {
		return
	}
	b := p.frame.backend

	mesh, err := b.mesh(call.Mesh, call.Geometry)
	if err != nil {
		p.err = err
		return
	}

	var uniforms [40]float32
	copy(uniforms[0:16], call.Model[:])
	copy(uniforms[16:32], call.ViewProj[:])
	copy(uniforms[32:36], call.Color[:])
	uniforms[36] = float32(call.ViewSize.Width)
	uniforms[37] = float32(call.ViewSize.Height)
	if call.Screenspace {
		uniforms[38] = 1
	}

	buffer, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "mesh uniforms",
		Contents: wgpu.ToBytes(uniforms[:]),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		p.err = fmt.Errorf("uniform buffer: %w", err)
		return
	}
	p.frame.transient = append(p.frame.transient, buffer)

	view := b.white.view
	if call.Texture != nil {
		if v, ok := call.Texture.View.(*wgpuView); ok {
			view = v.view
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buffer, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: view},
			{Binding: 2, Sampler: b.sampler},
		},
	})
	if err != nil {
		p.err = fmt.Errorf("bind group: %w", err)
		return
	}
	p.frame.transient = append(p.frame.transient, bindGroup)

	p.pass.SetBindGroup(0, bindGroup, nil)
	p.pass.SetVertexBuffer(0, mesh.buffer, 0, wgpu.WholeSize)
	p.pass.Draw(mesh.count, 1, 0, 0)
}

func (p *wgpuPass) End() error {
	err := p.pass.End()
	p.pass.Release()
	if p.err != nil {
		return p.err
	}
	return err
}

func (b *WgpuBackend) mesh(h MeshHandle, geometry Mesh) (*meshBuffer, error) {
	if m, ok := b.meshes[h]; ok {
		return m, nil
	}
	vertices := geometry.Geometry()
	buffer, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "mesh " + h.String(),
		Contents: wgpu.ToBytes(vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, fmt.Errorf("mesh %s: %w", h, err)
	}
	m := &meshBuffer{buffer: buffer, count: uint32(len(vertices))}
	b.meshes[h] = m
	return m, nil
}

func (b *WgpuBackend) pipeline(format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	if p, ok := b.pipelines[format]; ok {
		return p, nil
	}

	p, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "mesh",
		Vertex: wgpu.VertexState{
			Module:     b.shader,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(Vertex{})),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     b.shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mesh pipeline: %w", err)
	}
	b.pipelines[format] = p
	return p, nil
}

// Release frees every device resource held by the backend.
func (b *WgpuBackend) Release() {
	for _, m := range b.meshes {
		m.buffer.Release()
	}
	for _, p := range b.pipelines {
		p.Release()
	}
	b.white.Release()
	b.whiteTex.Release()
	b.sampler.Release()
	b.shader.Release()
	b.surface.Release()
	b.device.Release()
	b.adapter.Release()
}
