package renderer

import (
	"github.com/richinsley/goshadertexture/backend"
	"github.com/richinsley/goshadertexture/logging"
	"github.com/richinsley/goshadertexture/shader"
	"github.com/richinsley/goshadertexture/uniforms"
)

// RenderPass is one compiled program and the target it draws into. The
// last pass of a pipeline has no framebuffer and draws to the surface.
type RenderPass struct {
	index       int
	program     backend.Program
	framebuffer backend.Framebuffer
	schema      []shader.UniformDescriptor
	locations   map[string]backend.Uniform
	warned      map[string]bool
	overrides   []uniforms.Binding
}

func newRenderPass(index int, program backend.Program, fragmentSrc string) *RenderPass {
	return &RenderPass{
		index:     index,
		program:   program,
		schema:    shader.Analyze(fragmentSrc),
		locations: make(map[string]backend.Uniform),
		warned:    make(map[string]bool),
	}
}

// Index is the position of the pass in its pipeline.
func (p *RenderPass) Index() int { return p.index }

// Program returns the compiled program of the pass.
func (p *RenderPass) Program() backend.Program { return p.program }

// Framebuffer returns the render target, nil for the surface.
func (p *RenderPass) Framebuffer() backend.Framebuffer { return p.framebuffer }

// location returns the cached location of name.
func (p *RenderPass) location(name string) backend.Uniform {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := p.program.UniformFor(name)
	p.locations[name] = loc
	return loc
}

// builtin looks up a reserved uniform. Shaders are free to omit them.
func (p *RenderPass) builtin(name string) (backend.Uniform, bool) {
	loc := p.location(name)
	return loc, loc.Valid()
}

// userLocation looks up an option uniform, warning once per name when the
// program does not use it.
func (p *RenderPass) userLocation(name string) (backend.Uniform, bool) {
	loc := p.location(name)
	if !loc.Valid() {
		if !p.warned[name] {
			p.warned[name] = true
			logging.Logger().Warn("uniform location missing, value dropped", "pass", p.index, "uniform", name)
		}
		return loc, false
	}
	return loc, true
}

// apply uploads one binding to the bound program. Image refs are bound
// through texture units instead.
func (p *RenderPass) apply(b uniforms.Binding) {
	if _, ok := b.Value.(uniforms.ImageRef); ok {
		return
	}
	loc, ok := p.userLocation(b.Name())
	if !ok {
		return
	}
	prog := p.program
	switch v := b.Value.(type) {
	case uniforms.Scalar:
		prog.Uniform1f(loc, float32(v))
	case uniforms.Integer:
		prog.Uniform1i(loc, int(v))
	case uniforms.Boolean:
		prog.Uniform1i(loc, boolToInt(bool(v)))
	case uniforms.Vector:
		switch len(v) {
		case 2:
			prog.Uniform2f(loc, v[0], v[1])
		case 3:
			prog.Uniform3f(loc, v[0], v[1], v[2])
		case 4:
			prog.Uniform4f(loc, v[0], v[1], v[2], v[3])
		}
	case uniforms.VectorArray:
		flat := uniforms.Flatten(v)
		switch b.Descriptor.Type.Components() {
		case 2:
			prog.Uniform2fv(loc, flat)
		case 3:
			prog.Uniform3fv(loc, flat)
		case 4:
			prog.Uniform4fv(loc, flat)
		}
	case uniforms.ScalarArray:
		prog.Uniform1fv(loc, uniforms.Flatten(v))
	case uniforms.IntegerArray:
		ints := make([]int32, len(v))
		for i, n := range v {
			ints[i] = int32(n)
		}
		prog.Uniform1iv(loc, ints)
	}
}

func (p *RenderPass) release() {
	if p.framebuffer != nil {
		tex := p.framebuffer.Texture()
		p.framebuffer.Release()
		tex.Release()
		p.framebuffer = nil
	}
	if p.program != nil {
		p.program.Release()
		p.program = nil
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
