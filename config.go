package portals

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of a portals scene.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Logging LoggingConfig `yaml:"logging"`
	Flycam  FlycamConfig  `yaml:"flycam"`
	Scene   SceneConfig   `yaml:"scene"`
}

type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

func (c WindowConfig) withDefaults() WindowConfig {
	if c.Width <= 0 {
		c.Width = 1280
	}
	if c.Height <= 0 {
		c.Height = 720
	}
	if c.Title == "" {
		c.Title = "Portals"
	}
	return c
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	Prefix     string `yaml:"prefix"`
	// Quiet disables console output.
	Quiet bool `yaml:"quiet"`
}

type FlycamConfig struct {
	Speed       float32 `yaml:"speed"`
	BoostSpeed  float32 `yaml:"boost_speed"`
	Sensitivity float32 `yaml:"sensitivity"`
}

func (c FlycamConfig) withDefaults() FlycamConfig {
	if c.Speed <= 0 {
		c.Speed = 5
	}
	if c.BoostSpeed <= 0 {
		c.BoostSpeed = 20
	}
	if c.Sensitivity <= 0 {
		c.Sensitivity = 3
	}
	return c
}

type SceneConfig struct {
	Camera  CameraConfig   `yaml:"camera"`
	Objects []ObjectConfig `yaml:"objects"`
	Portals []PortalConfig `yaml:"portals"`
}

// CameraConfig places a camera. LookAt is ignored when nil.
type CameraConfig struct {
	Position [3]float32  `yaml:"position"`
	LookAt   *[3]float32 `yaml:"look_at"`
}

type ObjectConfig struct {
	Name     string     `yaml:"name"`
	Shape    string     `yaml:"shape"` // plane, cube or box
	Size     [3]float32 `yaml:"size"`
	Position [3]float32 `yaml:"position"`
	Color    [4]float32 `yaml:"color"`
}

type PortalConfig struct {
	Name    string        `yaml:"name"`
	Camera  CameraConfig  `yaml:"camera"`
	Display DisplayConfig `yaml:"display"`
}

type DisplayConfig struct {
	Size     float32    `yaml:"size"`
	Position [3]float32 `yaml:"position"`
	Rotation [3]float32 `yaml:"rotation"` // XYZ euler angles, radians
	Scale    [3]float32 `yaml:"scale"`
	Color    [4]float32 `yaml:"color"`
}

// DefaultConfig is the two-portal demo scene.
func DefaultConfig() *Config {
	quarter := float32(math.Pi / 2)
	half := float32(math.Pi)
	origin := [3]float32{0, 0, 0}
	cam1 := [3]float32{-2, 2.5, -5}
	displayColor := [4]float32{242.0 / 255, 240.0 / 255, 240.0 / 255, 1}

	return &Config{
		Window:  WindowConfig{Title: "Portals", Width: 1280, Height: 720},
		Logging: LoggingConfig{Level: "info", MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 7},
		Flycam:  FlycamConfig{Speed: 5, BoostSpeed: 20, Sensitivity: 3},
		Scene: SceneConfig{
			Camera: CameraConfig{Position: [3]float32{-2, 2.5, 5}},
			Objects: []ObjectConfig{
				{Name: "floor", Shape: "plane", Size: [3]float32{5, 0, 5}, Color: [4]float32{0.3, 0.5, 0.3, 1}},
				{Name: "cube", Shape: "cube", Size: [3]float32{1, 1, 1}, Position: [3]float32{0, 0.5, 0}, Color: [4]float32{0.8, 0.7, 0.6, 1}},
			},
			Portals: []PortalConfig{
				{
					Name:   "camera 1",
					Camera: CameraConfig{Position: cam1, LookAt: &origin},
					Display: DisplayConfig{
						Size:     1,
						Position: [3]float32{-1.3, 1.5, -1},
						Rotation: [3]float32{quarter, half, 0},
						Scale:    [3]float32{1.77, 1, 1},
						Color:    displayColor,
					},
				},
				{
					Name:   "camera 2",
					Camera: CameraConfig{Position: [3]float32{-2, 2.5, 5}, LookAt: &cam1},
					Display: DisplayConfig{
						Size:     1,
						Position: [3]float32{1.5, 1.5, -0.2},
						Rotation: [3]float32{quarter, half, -0.5},
						Scale:    [3]float32{1.77, 1, 1},
						Color:    displayColor,
					},
				},
			},
		},
	}
}

// LoadConfig layers the file at path over DefaultConfig. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

var ErrInvalidConfig = errors.New("invalid config")

func (c *Config) Validate() error {
	var errs []error
	for i, o := range c.Scene.Objects {
		if _, err := o.Mesh(); err != nil {
			errs = append(errs, fmt.Errorf("object %d (%s): %w", i, o.Name, err))
		}
	}
	for i, p := range c.Scene.Portals {
		if p.Display.Size <= 0 {
			errs = append(errs, fmt.Errorf("portal %d (%s): display size must be positive: %w", i, p.Name, ErrInvalidConfig))
		}
	}
	return errors.Join(errs...)
}

func (o ObjectConfig) Mesh() (Mesh, error) {
	switch o.Shape {
	case "plane":
		return PlaneMesh(o.Size[0]), nil
	case "cube":
		return CubeMesh(o.Size[0]), nil
	case "box":
		return BoxMesh(o.Size[0], o.Size[1], o.Size[2]), nil
	}
	return Mesh{}, fmt.Errorf("unknown shape %q: %w", o.Shape, ErrInvalidConfig)
}

func (c CameraConfig) Transform() Transform {
	t := TransformFromXYZ(c.Position[0], c.Position[1], c.Position[2])
	if c.LookAt != nil {
		t = t.LookingAt(vec3(*c.LookAt), vec3([3]float32{0, 1, 0}))
	}
	return t
}

func (d DisplayConfig) Transform() Transform {
	t := TransformFromXYZ(d.Position[0], d.Position[1], d.Position[2])
	t.Rotation = QuatFromEulerXYZ(d.Rotation[0], d.Rotation[1], d.Rotation[2])
	if d.Scale != [3]float32{} {
		t.Scale = vec3(d.Scale)
	}
	return t
}
