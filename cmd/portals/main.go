package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gekko3d/portals"
)

var (
	flagConfig = flag.String("config", "", "Path to a YAML scene config")
	flagDebug  = flag.Bool("debug", false, "Enable debug logging")
	flagWidth  = flag.Int("width", 0, "Window width")
	flagHeight = flag.Int("height", 0, "Window height")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := portals.LoadConfig(*flagConfig)
	if err != nil {
		return err
	}
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
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
		portals.RenderToTextureModule{},
		portals.CamDisplayModule{},
		portals.FlycamModule{Config: cfg.Flycam},
	)

	images, _ := portals.Resource[portals.Images](app)
	meshes, _ := portals.Resource[portals.Meshes](app)
	scene, err := portals.SpawnScene(app.Commands(), images, meshes, cfg.Scene)
	if err != nil {
		return fmt.Errorf("spawning scene: %w", err)
	}
	app.FlushCommands()
	log.Infof("Spawned %d objects and %d portals", len(scene.Objects), len(scene.Portals))

	app.Run()
	return nil
}
