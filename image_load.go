package portals

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadImage decodes a PNG, JPEG, BMP, TIFF or WebP file into a sampled RGBA8 image.
func LoadImage(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("load image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return Image{}, fmt.Errorf("decode %s: %w", path, err)
	}

	img := ImageFromRGBA(toRGBA(src))
	img.Label = filepath.Base(path)
	return img, nil
}

// ImageFromRGBA wraps decoded pixels as a sampled texture.
func ImageFromRGBA(rgba *image.RGBA) Image {
	b := rgba.Bounds()
	return Image{
		Size:   Extent{Width: uint32(b.Dx()), Height: uint32(b.Dy())},
		Format: FormatRGBA8UnormSrgb,
		Usage:  UsageSampled | UsageCopyDst,
		Data:   rgba.Pix,
	}
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Stride == 4*rgba.Bounds().Dx() && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
