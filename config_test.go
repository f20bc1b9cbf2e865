package portals

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.Len(t, cfg.Scene.Objects, 2)
	require.Len(t, cfg.Scene.Portals, 2)
	assert.Equal(t, "camera 1", cfg.Scene.Portals[0].Name)
	assert.Equal(t, [3]float32{1.77, 1, 1}, cfg.Scene.Portals[0].Display.Scale)
}

func TestLoadConfig_EmptyPathIsDefault(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_LayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
window:
  title: Mirrors
  width: 800
logging:
  level: debug
  file: portals.log
flycam:
  speed: 2
scene:
  portals:
    - name: mirror
      camera:
        position: [0, 2, -4]
        look_at: [0, 0, 0]
      display:
        size: 2
        position: [0, 1, 0]
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Mirrors", cfg.Window.Title)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height, "unset keys keep their default")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 50, cfg.Logging.MaxSizeMB)
	assert.Equal(t, float32(2), cfg.Flycam.Speed)
	assert.Equal(t, float32(20), cfg.Flycam.BoostSpeed)

	require.Len(t, cfg.Scene.Portals, 1)
	p := cfg.Scene.Portals[0]
	assert.Equal(t, "mirror", p.Name)
	require.NotNil(t, p.Camera.LookAt)
	assert.Equal(t, [3]float32{0, 0, 0}, *p.Camera.LookAt)
	assert.Len(t, cfg.Scene.Objects, 2)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("window: [1, 2"), 0o644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte(`
scene:
  objects:
    - name: blob
      shape: sphere
  portals:
    - name: flat
      display:
        size: 0
`), 0o644))
	_, err = LoadConfig(invalid)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "blob")
	assert.Contains(t, err.Error(), "flat")
}

func TestConfigDefaults(t *testing.T) {
	w := WindowConfig{}.withDefaults()
	assert.Equal(t, WindowConfig{Title: "Portals", Width: 1280, Height: 720}, w)

	f := FlycamConfig{Speed: 1}.withDefaults()
	assert.Equal(t, FlycamConfig{Speed: 1, BoostSpeed: 20, Sensitivity: 3}, f)
}

func TestObjectConfig_Mesh(t *testing.T) {
	m, err := ObjectConfig{Shape: "box", Size: [3]float32{1, 2, 3}}.Mesh()
	require.NoError(t, err)
	assert.Equal(t, BoxMesh(1, 2, 3), m)

	m, err = ObjectConfig{Shape: "plane", Size: [3]float32{5}}.Mesh()
	require.NoError(t, err)
	assert.Equal(t, PlaneMesh(5), m)
}

func TestCameraConfig_Transform(t *testing.T) {
	target := [3]float32{0, 0, 0}
	tr := CameraConfig{Position: [3]float32{0, 0, 5}, LookAt: &target}.Transform()

	fwd := tr.Forward()
	assert.InDelta(t, 0, fwd.X(), 1e-5)
	assert.InDelta(t, 0, fwd.Y(), 1e-5)
	assert.InDelta(t, -1, fwd.Z(), 1e-5)
}
