package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gekko3d/portals"
)

var (
	flagImage = flag.String("image", "", "Image sampled in screen space (png, jpeg, bmp, tiff or webp)")
	flagDebug = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := portals.DefaultConfig()
	cfg.Window.Title = "Screen-space texture"
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}

	app := portals.NewApp().UseModules(
		portals.LoggingModule{Config: cfg.Logging},
		portals.TimeModule{},
		portals.WindowModule{Config: cfg.Window},
	)
	defer portals.CloseWindows(app)
	log := app.Logger()
	if zl, ok := log.(*portals.ZapLogger); ok {
		defer zl.Sync()
	}

	backend, err := portals.NewWgpuBackend(app)
	if err != nil {
		return fmt.Errorf("gpu setup: %w", err)
	}
	defer backend.Release()

	app.UseModules(
		portals.RenderModule{Backend: backend},
		portals.FlycamModule{Config: cfg.Flycam},
	)

	img := portals.NewPlaceholderImage()
	if *flagImage != "" {
		loaded, err := portals.LoadImage(*flagImage)
		if err != nil {
			log.Warnf("using placeholder texture: %v", err)
		} else {
			img = loaded
		}
	}

	images, _ := portals.Resource[portals.Images](app)
	meshes, _ := portals.Resource[portals.Meshes](app)
	texture := images.Add(img)

	cmd := app.Commands()
	origin := [3]float32{0, 0, 0}
	camera := portals.CameraConfig{Position: [3]float32{-2, 2.5, 5}, LookAt: &origin}
	cmd.AddEntity(portals.NewCamera("main camera"), camera.Transform(), portals.Flycam{})
	cmd.AddEntity(
		portals.TransformFromXYZ(0, 0.5, 0),
		portals.MeshRenderer{Mesh: meshes.Add(portals.CubeMesh(1)), Color: [4]float32{1, 1, 1, 1}},
		portals.DisplayMaterial{Texture: texture, BaseColor: [4]float32{1, 1, 1, 1}, Unlit: true, Screenspace: true},
	)
	app.FlushCommands()

	app.Run()
	return nil
}
