// Package soft is a CPU implementation of backend.Backend. Fragment
// programs are Go kernels selected by a "#pragma kernel <name>" line in the
// fragment source; everything else about the source is only scanned for
// uniform declarations. It renders deterministically and is used for tests
// and headless rendering without a GPU.
package soft

import (
	"errors"
	"fmt"
	"slices"

	"github.com/richinsley/goshadertexture/backend"
)

// Stats counts live handles and work done by a Backend.
type Stats struct {
	ProgramsCreated  int
	LivePrograms     int
	LiveTextures     int
	LiveFramebuffers int
	Draws            int
}

// Backend renders into in-memory RGBA8 buffers.
type Backend struct {
	// LinkHook, when set, is called after both stages compile and may fail
	// the link.
	LinkHook func(vertexSrc, fragmentSrc string) error
	// ForceIncomplete makes every framebuffer report itself incomplete.
	ForceIncomplete bool

	kernels map[string]Kernel

	surface  *Texture
	target   *Framebuffer
	program  *Program
	units    map[int]*Texture
	viewport [4]int

	nextID   int
	textures map[int]*Texture
	stats    Stats
	released bool
}

var _ backend.Backend = (*Backend)(nil)
var _ backend.SurfaceResizer = (*Backend)(nil)

// New returns a Backend with a surface of the given size.
func New(width, height int) *Backend {
	b := &Backend{
		kernels:  make(map[string]Kernel),
		units:    make(map[int]*Texture),
		textures: make(map[int]*Texture),
	}
	b.surface = &Texture{b: b, id: -1}
	b.surface.alloc(width, height)
	b.viewport = [4]int{0, 0, width, height}
	return b
}

// AddKernel registers a kernel visible to this backend only. It shadows a
// global kernel of the same name.
func (b *Backend) AddKernel(name string, k Kernel) {
	b.kernels[name] = k
}

func (b *Backend) lookupKernel(name string) (Kernel, bool) {
	if k, ok := b.kernels[name]; ok {
		return k, true
	}
	return LookupKernel(name)
}

func (b *Backend) NewProgram(vertexSrc, fragmentSrc string) (backend.Program, error) {
	if b.released {
		return nil, errors.New("soft: backend released")
	}
	if msg := errorDirective(vertexSrc); msg != "" {
		return nil, &backend.CompileError{Stage: "vertex", Pass: -1, Source: vertexSrc, Log: msg}
	}
	if msg := errorDirective(fragmentSrc); msg != "" {
		return nil, &backend.CompileError{Stage: "fragment", Pass: -1, Source: fragmentSrc, Log: msg}
	}
	name := kernelName(fragmentSrc)
	if name == "" {
		return nil, &backend.CompileError{Stage: "fragment", Pass: -1, Source: fragmentSrc, Log: "no #pragma kernel directive"}
	}
	k, ok := b.lookupKernel(name)
	if !ok {
		return nil, &backend.CompileError{Stage: "fragment", Pass: -1, Source: fragmentSrc, Log: fmt.Sprintf("unknown kernel %q", name)}
	}
	if b.LinkHook != nil {
		if err := b.LinkHook(vertexSrc, fragmentSrc); err != nil {
			return nil, &backend.LinkError{Pass: -1, VertexSource: vertexSrc, FragmentSource: fragmentSrc, Log: err.Error()}
		}
	}
	p := newProgram(b, k, vertexSrc, fragmentSrc)
	b.stats.ProgramsCreated++
	b.stats.LivePrograms++
	return p, nil
}

func (b *Backend) NewTexture(width, height int) (backend.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("soft: invalid texture size %dx%d", width, height)
	}
	t := &Texture{b: b, id: b.nextID}
	b.nextID++
	t.alloc(width, height)
	b.textures[t.id] = t
	b.stats.LiveTextures++
	return t, nil
}

func (b *Backend) NewFramebuffer(tex backend.Texture) (backend.Framebuffer, error) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return nil, errors.New("soft: framebuffer needs a soft texture")
	}
	b.stats.LiveFramebuffers++
	return &Framebuffer{b: b, tex: t}, nil
}

func (b *Backend) BindFramebuffer(fb backend.Framebuffer) {
	if fb == nil {
		b.target = nil
		return
	}
	b.target = fb.(*Framebuffer)
}

func (b *Backend) BindProgram(p backend.Program) {
	if p == nil {
		b.program = nil
		return
	}
	b.program = p.(*Program)
}

func (b *Backend) BindTexture(unit int, tex backend.Texture) {
	if tex == nil {
		delete(b.units, unit)
		return
	}
	b.units[unit] = tex.(*Texture)
}

func (b *Backend) Viewport(x, y, width, height int) {
	b.viewport = [4]int{x, y, width, height}
}

func (b *Backend) targetTexture() *Texture {
	if b.target != nil {
		return b.target.tex
	}
	return b.surface
}

func (b *Backend) Clear(r, g, bl, a float32) {
	t := b.targetTexture()
	px := [4]uint8{toByte(r), toByte(g), toByte(bl), toByte(a)}
	for i := 0; i < len(t.pix); i += 4 {
		copy(t.pix[i:i+4], px[:])
	}
}

func (b *Backend) DrawQuad() {
	if b.program == nil {
		return
	}
	if b.target != nil && b.target.IsComplete() != nil {
		return
	}
	dst := b.targetTexture()
	b.stats.Draws++

	vx, vy, vw, vh := b.viewport[0], b.viewport[1], b.viewport[2], b.viewport[3]
	if vw <= 0 || vh <= 0 {
		return
	}
	shade := b.program.kernel(&Inputs{b: b, p: b.program})
	x0, y0 := max(vx, 0), max(vy, 0)
	x1, y1 := min(vx+vw, dst.width), min(vy+vh, dst.height)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			frag := Vec2{float32(x) + 0.5, float32(y) + 0.5}
			uv := Vec2{(frag[0] - float32(vx)) / float32(vw), (frag[1] - float32(vy)) / float32(vh)}
			c := shade(frag, uv)
			off := (y*dst.width + x) * 4
			dst.pix[off+0] = toByte(c[0])
			dst.pix[off+1] = toByte(c[1])
			dst.pix[off+2] = toByte(c[2])
			dst.pix[off+3] = toByte(c[3])
		}
	}
}

func (b *Backend) ReadPixels(x, y, width, height int, pixels []byte) error {
	t := b.targetTexture()
	if x < 0 || y < 0 || width < 0 || height < 0 || x+width > t.width || y+height > t.height {
		return fmt.Errorf("soft: read region %d,%d %dx%d outside %dx%d target", x, y, width, height, t.width, t.height)
	}
	if len(pixels) < width*height*4 {
		return errors.New("soft: pixel buffer too small")
	}
	for row := 0; row < height; row++ {
		src := ((y+row)*t.width + x) * 4
		copy(pixels[row*width*4:(row+1)*width*4], t.pix[src:src+width*4])
	}
	return nil
}

func (b *Backend) SurfaceSize() (int, int) {
	return b.surface.width, b.surface.height
}

// ResizeSurface reallocates the surface. Its contents are cleared.
func (b *Backend) ResizeSurface(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("soft: invalid surface size %dx%d", width, height)
	}
	b.surface.alloc(width, height)
	return nil
}

func (b *Backend) Release() {
	b.released = true
	b.units = map[int]*Texture{}
	b.program = nil
	b.target = nil
}

// Stats returns a snapshot of handle counts.
func (b *Backend) Stats() Stats {
	return b.stats
}

// LiveTextureIDs lists the ids of textures not yet released, ascending.
func (b *Backend) LiveTextureIDs() []int {
	ids := make([]int, 0, len(b.textures))
	for id := range b.textures {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Surface returns a copy of the surface pixels, bottom-up.
func (b *Backend) Surface() []byte {
	return slices.Clone(b.surface.pix)
}

func toByte(f float32) uint8 {
	if !(f > 0) {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(f*255 + 0.5)
}
