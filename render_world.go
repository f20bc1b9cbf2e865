package portals

// RenderWorld is the render-side working set. Its entities mirror main-world
// entities by id and are rebuilt every frame during Extract; GPU caches and
// diagnostics persist across frames.
type RenderWorld struct {
	ecs *Ecs

	Frame          uint64
	Images         *GpuImages
	DepthTextures  *ViewDepthTextures
	SecondaryViews *SecondaryViews
	Diagnostics    *PortalDiagnostics

	// Swaps performed by the render graph this frame, applied to the main world in PostRender.
	Swaps []PortalSwap
}

func NewRenderWorld() *RenderWorld {
	ecs := MakeEcs()
	return &RenderWorld{
		ecs:            &ecs,
		Images:         NewGpuImages(),
		DepthTextures:  NewViewDepthTextures(),
		SecondaryViews: &SecondaryViews{},
		Diagnostics:    &PortalDiagnostics{},
	}
}

// begin starts a new frame: the mirror is emptied and per-frame records reset.
func (rw *RenderWorld) begin(frame uint64) {
	rw.Frame = frame
	rw.ecs.clear()
	rw.SecondaryViews.reset()
	rw.Swaps = rw.Swaps[:0]
}

// Insert writes components onto the mirror of a main-world entity, spawning it if needed.
func (rw *RenderWorld) Insert(eid EntityId, components ...any) {
	rw.ecs.insertEntity(eid, components...)
}

func (rw *RenderWorld) Has(eid EntityId) bool {
	return rw.ecs.hasEntity(eid)
}

func RenderGet[T any](rw *RenderWorld, eid EntityId) (*T, bool) {
	return getComponent[T](rw.ecs, eid)
}

func RenderQuery1[A any](rw *RenderWorld) Query1[A]       { return Query1[A]{ecs: rw.ecs} }
func RenderQuery2[A, B any](rw *RenderWorld) Query2[A, B] { return Query2[A, B]{ecs: rw.ecs} }
func RenderQuery3[A, B, C any](rw *RenderWorld) Query3[A, B, C] {
	return Query3[A, B, C]{ecs: rw.ecs}
}

// SecondaryViews lists the render-to-texture cameras of the current frame in
// registration order, and which of them completed their pass.
type SecondaryViews struct {
	views     []EntityId
	completed map[EntityId]bool
}

func (sv *SecondaryViews) reset() {
	sv.views = sv.views[:0]
	sv.completed = make(map[EntityId]bool)
}

func (sv *SecondaryViews) Register(eid EntityId) {
	sv.views = append(sv.views, eid)
}

func (sv *SecondaryViews) Views() []EntityId {
	return sv.views
}

func (sv *SecondaryViews) MarkCompleted(eid EntityId) {
	if sv.completed == nil {
		sv.completed = make(map[EntityId]bool)
	}
	sv.completed[eid] = true
}

// Completed reports whether the camera produced a full image this frame.
func (sv *SecondaryViews) Completed(eid EntityId) bool {
	return sv.completed[eid]
}

// PortalDiagnostics counts the recoverable anomalies seen since startup. It is
// shared by the main world (as a resource) and the RenderWorld.
type PortalDiagnostics struct {
	UnresolvedViewports uint64
	SkippedPasses       uint64
	DanglingCameras     uint64
	SamplingHazards     uint64
	Swaps               uint64
}
