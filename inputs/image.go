package inputs

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/richinsley/goshadertexture/backend"
	"github.com/richinsley/goshadertexture/logging"
)

// Image is a still image uploaded once when created.
type Image struct {
	tex     backend.Texture
	width   int
	height  int
	uploads int
}

var _ Source = (*Image)(nil)

// ToRGBA converts img to a tightly packed *image.RGBA anchored at (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == rgba.Rect.Dx()*4 {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// NewImage uploads img into a new texture.
func NewImage(b backend.Backend, img image.Image) (*Image, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrDecode)
	}
	rgba := ToRGBA(img)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}
	tex, err := b.NewTexture(w, h)
	if err != nil {
		return nil, fmt.Errorf("create image texture: %w", err)
	}
	tex.Upload(rgba)
	logging.Logger().Info("image uploaded", "width", w, "height", h)
	return &Image{tex: tex, width: w, height: h, uploads: 1}, nil
}

func (i *Image) Texture() backend.Texture { return i.tex }

func (i *Image) Resolution() (int, int) { return i.width, i.height }

// Update never uploads; the image was uploaded by NewImage.
func (i *Image) Update() bool { return false }

// Uploads returns how many times the texture was written.
func (i *Image) Uploads() int { return i.uploads }

func (i *Image) Destroy() {
	if i.tex != nil {
		i.tex.Release()
		i.tex = nil
	}
}
