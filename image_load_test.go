package portals

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writeTestImage(t *testing.T, name string, encode func(*os.File, image.Image) error) string {
	t.Helper()
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})
	src.Set(2, 1, color.NRGBA{B: 255, A: 255})

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, encode(f, src))
	return path
}

func TestLoadImage(t *testing.T) {
	encoders := map[string]func(*os.File, image.Image) error{
		"texture.png": func(f *os.File, img image.Image) error { return png.Encode(f, img) },
		"texture.bmp": func(f *os.File, img image.Image) error { return bmp.Encode(f, img) },
	}

	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			path := writeTestImage(t, name, encode)

			img, err := LoadImage(path)
			require.NoError(t, err)
			assert.Equal(t, name, img.Label)
			assert.Equal(t, Extent{Width: 3, Height: 2}, img.Size)
			assert.Equal(t, FormatRGBA8UnormSrgb, img.Format)
			assert.True(t, img.Usage.Has(UsageSampled|UsageCopyDst))
			require.Len(t, img.Data, 3*2*4)

			assert.Equal(t, []byte{255, 0, 0, 255}, img.Data[0:4])
			last := (1*3 + 2) * 4
			assert.Equal(t, []byte{0, 0, 255, 255}, img.Data[last:last+4])
		})
	}
}

func TestLoadImage_Errors(t *testing.T) {
	_, err := LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err = LoadImage(path)
	assert.ErrorIs(t, err, image.ErrFormat)
}

func TestToRGBA_OffsetBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 7, 6))
	src.Set(5, 5, color.RGBA{G: 255, A: 255})

	rgba := toRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 2, 1), rgba.Bounds())
	assert.Equal(t, color.RGBA{G: 255, A: 255}, rgba.RGBAAt(0, 0))
}
