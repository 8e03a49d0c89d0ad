package soft

import (
	"fmt"
	"image"

	"github.com/richinsley/goshadertexture/backend"
)

// Texture is an RGBA8 buffer stored bottom row first.
type Texture struct {
	b      *Backend
	id     int
	width  int
	height int
	pix    []byte
}

func (t *Texture) alloc(width, height int) {
	t.width, t.height = width, height
	t.pix = make([]byte, width*height*4)
}

// ID identifies the texture within its backend. The surface has id -1.
func (t *Texture) ID() int {
	return t.id
}

func (t *Texture) Size() (int, int) {
	return t.width, t.height
}

func (t *Texture) Upload(img *image.RGBA) {
	flipped := backend.FlipRows(img)
	w, h := flipped.Rect.Dx(), flipped.Rect.Dy()
	if w != t.width || h != t.height {
		t.alloc(w, h)
	}
	copy(t.pix, flipped.Pix)
}

func (t *Texture) Release() {
	if t.pix == nil {
		return
	}
	t.pix = nil
	t.width, t.height = 0, 0
	if _, ok := t.b.textures[t.id]; ok {
		delete(t.b.textures, t.id)
		t.b.stats.LiveTextures--
	}
}

// at returns the texel at (x, y) counted from the bottom-left corner,
// clamped to the edges.
func (t *Texture) at(x, y int) Vec4 {
	if t.width == 0 || t.height == 0 {
		return Vec4{}
	}
	x = min(max(x, 0), t.width-1)
	y = min(max(y, 0), t.height-1)
	off := (y*t.width + x) * 4
	return Vec4{
		float32(t.pix[off+0]) / 255,
		float32(t.pix[off+1]) / 255,
		float32(t.pix[off+2]) / 255,
		float32(t.pix[off+3]) / 255,
	}
}

// Framebuffer renders into a Texture.
type Framebuffer struct {
	b        *Backend
	tex      *Texture
	released bool
}

func (f *Framebuffer) Texture() backend.Texture {
	return f.tex
}

func (f *Framebuffer) IsComplete() error {
	switch {
	case f.released:
		return fmt.Errorf("%w: released", backend.ErrFramebufferIncomplete)
	case f.b.ForceIncomplete:
		return fmt.Errorf("%w: forced", backend.ErrFramebufferIncomplete)
	case f.tex.pix == nil:
		return fmt.Errorf("%w: missing color attachment", backend.ErrFramebufferIncomplete)
	}
	return nil
}

func (f *Framebuffer) Release() {
	if f.released {
		return
	}
	f.released = true
	f.b.stats.LiveFramebuffers--
	if f.b.target == f {
		f.b.target = nil
	}
}
