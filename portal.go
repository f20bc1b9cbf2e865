package portals

// PortalDescriptor describes a secondary camera and the surface showing its view.
type PortalDescriptor struct {
	Label      string
	Window     WindowId
	Camera     Transform
	ClearColor [4]float32

	Mesh      MeshHandle
	Display   Transform
	BaseColor [4]float32
}

// Portal names the entities and textures created by SpawnPortal. The texture
// fields reflect the assignment at spawn time; roles alternate every frame.
type Portal struct {
	Camera        EntityId
	Display       EntityId
	RenderTarget  ImageHandle
	DisplaySource ImageHandle
}

// SpawnPortal creates a render-to-texture camera and a display surface linked
// to it, each holding its own placeholder texture.
func SpawnPortal(cmd *Commands, images *Images, d PortalDescriptor) Portal {
	renderTarget := images.Add(NewPlaceholderImage())
	displaySource := images.Add(NewPlaceholderImage())

	cam := NewCamera(d.Label)
	cam.Window = d.Window
	if d.ClearColor != [4]float32{} {
		cam.ClearColor = d.ClearColor
	}

	camId := cmd.AddEntity(cam, d.Camera, RenderToTexture{Image: renderTarget})
	displayId := cmd.AddEntity(
		d.Display,
		MeshRenderer{Mesh: d.Mesh, Color: d.BaseColor},
		DisplayMaterial{Texture: displaySource, BaseColor: d.BaseColor, Unlit: true},
		CamDisplay{CorrespondingCamera: camId},
	)

	return Portal{
		Camera:        camId,
		Display:       displayId,
		RenderTarget:  renderTarget,
		DisplaySource: displaySource,
	}
}

// Scene lists what SpawnScene created.
type Scene struct {
	Camera  EntityId
	Objects []EntityId
	Portals []Portal
}

// SpawnScene spawns the configured main camera (driven by the flycam), objects and portals.
func SpawnScene(cmd *Commands, images *Images, meshes *Meshes, cfg SceneConfig) (Scene, error) {
	var scene Scene

	scene.Camera = cmd.AddEntity(NewCamera("main camera"), cfg.Camera.Transform(), Flycam{})

	for _, o := range cfg.Objects {
		mesh, err := o.Mesh()
		if err != nil {
			return Scene{}, err
		}
		t := TransformFromXYZ(o.Position[0], o.Position[1], o.Position[2])
		eid := cmd.AddEntity(t, MeshRenderer{Mesh: meshes.Add(mesh), Color: o.Color})
		scene.Objects = append(scene.Objects, eid)
	}

	for _, p := range cfg.Portals {
		scene.Portals = append(scene.Portals, SpawnPortal(cmd, images, PortalDescriptor{
			Label:     p.Name,
			Window:    PrimaryWindow,
			Camera:    p.Camera.Transform(),
			Mesh:      meshes.Add(PlaneMesh(p.Display.Size)),
			Display:   p.Display.Transform(),
			BaseColor: p.Display.Color,
		}))
	}
	return scene, nil
}
