// Package export reads rendered pixels back from a backend surface: the
// seamlessly tileable crop, thumbnails of it and video recordings.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/richinsley/goshadertexture/backend"
)

// DefaultThumbnailWidth is used when Thumbnail is given no width.
const DefaultThumbnailWidth = 128

// FragmentSize is the pixel size of one repeat of a pattern of the given
// normalized scale on a canvas of canvasSize pixels.
func FragmentSize(noiseScale float64, canvasSize int) int {
	return int(math.Ceil(math.Max(noiseScale*float64(canvasSize)/16, 1)))
}

// TileSize is the side of the exported square: the largest whole number of
// repeats that fits the canvas for periodic patterns, and the full canvas
// otherwise.
func TileSize(noiseScale float64, canvasSize int, periodic bool) int {
	if !periodic {
		return canvasSize
	}
	f := FragmentSize(noiseScale, canvasSize)
	return f * (canvasSize / f)
}

// Tile reads the tileable square from the bottom-left corner of the
// surface and returns it with row 0 at the top. The square is clamped to
// the surface size.
func Tile(b backend.Backend, noiseScale float64, canvasSize int, periodic bool) (*image.RGBA, error) {
	if canvasSize <= 0 {
		return nil, fmt.Errorf("export: invalid canvas size %d", canvasSize)
	}
	tile := TileSize(noiseScale, canvasSize, periodic)
	if tile <= 0 {
		return nil, fmt.Errorf("export: noise scale %g leaves no whole repeat unit in a %dpx canvas (fragment size %dpx)",
			noiseScale, canvasSize, FragmentSize(noiseScale, canvasSize))
	}
	w, h := b.SurfaceSize()
	size := min(tile, w, h)
	if size <= 0 {
		return nil, errors.New("export: surface has no area")
	}
	b.BindFramebuffer(nil)
	pixels := make([]byte, size*size*4)
	if err := b.ReadPixels(0, 0, size, size, pixels); err != nil {
		return nil, fmt.Errorf("export: read pixels: %w", err)
	}
	return backend.ReverseRows(pixels, size, size), nil
}

// Thumbnail scales img to width pixels wide, keeping its aspect ratio.
func Thumbnail(img image.Image, width int) *image.RGBA {
	if width <= 0 {
		width = DefaultThumbnailWidth
	}
	b := img.Bounds()
	height := 1
	if b.Dx() > 0 {
		height = max(int(math.Round(float64(width)*float64(b.Dy())/float64(b.Dx()))), 1)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	return enc.Encode(w, img)
}

// WritePNG writes img to a PNG file at path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodePNG(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
