package soft

import (
	"strings"
	"sync"

	"github.com/chewxy/math32"

	"github.com/richinsley/goshadertexture/shader"
)

type (
	Vec2 = [2]float32
	Vec4 = [4]float32
)

// ShadeFunc computes the color of one fragment. fragCoord matches
// gl_FragCoord.xy and uv the interpolated texture coordinate.
type ShadeFunc func(fragCoord, uv Vec2) Vec4

// Kernel prepares a ShadeFunc for one draw call, reading uniforms and
// samplers from in. The returned function must not retain in.
type Kernel func(in *Inputs) ShadeFunc

var (
	kernelsMu sync.RWMutex
	kernels   = map[string]Kernel{}
)

// RegisterKernel makes k available to every Backend under name.
func RegisterKernel(name string, k Kernel) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	kernels[name] = k
}

// LookupKernel returns the globally registered kernel called name.
func LookupKernel(name string) (Kernel, bool) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	k, ok := kernels[name]
	return k, ok
}

func kernelName(src string) string {
	return shader.KernelName(src)
}

// errorDirective returns the message of the first #error line in src.
func errorDirective(src string) string {
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#error") {
			msg := strings.TrimSpace(strings.TrimPrefix(line, "#error"))
			if msg == "" {
				msg = "#error"
			}
			return msg
		}
	}
	return ""
}

// Inputs gives a kernel access to the uniforms of the bound program and
// the textures bound to each unit.
type Inputs struct {
	b *Backend
	p *Program
}

func (in *Inputs) raw(name string) []float32 {
	loc := in.p.UniformFor(name)
	if !loc.Valid() {
		return nil
	}
	return in.p.values[loc]
}

// Float returns the first component of a uniform, 0 when unset.
func (in *Inputs) Float(name string) float32 {
	if v := in.raw(name); len(v) > 0 {
		return v[0]
	}
	return 0
}

// Int returns a uniform truncated to an integer.
func (in *Inputs) Int(name string) int {
	return int(in.Float(name))
}

// Bool returns whether a uniform is non-zero.
func (in *Inputs) Bool(name string) bool {
	return in.Float(name) != 0
}

// Vec returns n components of a uniform, zero filled.
func (in *Inputs) Vec(name string, n int) []float32 {
	out := make([]float32, n)
	copy(out, in.raw(name))
	return out
}

// Floats returns every stored component of a uniform.
func (in *Inputs) Floats(name string) []float32 {
	return append([]float32(nil), in.raw(name)...)
}

// Sampler returns the texture bound to the unit held by a sampler uniform.
func (in *Inputs) Sampler(name string) Sampler {
	return Sampler{tex: in.b.units[in.Int(name)]}
}

// Sampler reads a texture with nearest filtering and clamp-to-edge
// wrapping. A Sampler with no texture reads transparent black.
type Sampler struct {
	tex *Texture
}

// Size returns the bound texture size, 0x0 when nothing is bound.
func (s Sampler) Size() (int, int) {
	if s.tex == nil {
		return 0, 0
	}
	return s.tex.width, s.tex.height
}

func (s Sampler) Sample(uv Vec2) Vec4 {
	if s.tex == nil || s.tex.width == 0 {
		return Vec4{}
	}
	x := int(math32.Floor(uv[0] * float32(s.tex.width)))
	y := int(math32.Floor(uv[1] * float32(s.tex.height)))
	return s.tex.at(x, y)
}

func init() {
	RegisterKernel("passthrough", passthroughKernel)
	RegisterKernel("solid", solidKernel)
	RegisterKernel("invert", invertKernel)
	RegisterKernel("uv", uvKernel)
}

// passthroughKernel shows u_texture when u_has_texture is set.
func passthroughKernel(in *Inputs) ShadeFunc {
	if !in.Bool(shader.UniformHasTexture) {
		return func(Vec2, Vec2) Vec4 { return Vec4{} }
	}
	tex := in.Sampler(shader.UniformTexture)
	return func(_, uv Vec2) Vec4 { return tex.Sample(uv) }
}

// solidKernel fills with u_color, a vec3 or vec4.
func solidKernel(in *Inputs) ShadeFunc {
	c := in.Floats("u_color")
	out := Vec4{0, 0, 0, 1}
	copy(out[:], c)
	return func(Vec2, Vec2) Vec4 { return out }
}

// invertKernel outputs 1 - rgb of u_texture, keeping alpha.
func invertKernel(in *Inputs) ShadeFunc {
	tex := in.Sampler(shader.UniformTexture)
	return func(_, uv Vec2) Vec4 {
		c := tex.Sample(uv)
		return Vec4{1 - c[0], 1 - c[1], 1 - c[2], c[3]}
	}
}

// uvKernel writes the texture coordinate to red and green.
func uvKernel(*Inputs) ShadeFunc {
	return func(_, uv Vec2) Vec4 { return Vec4{uv[0], uv[1], 0, 1} }
}
