package renderer

import (
	"errors"
	"fmt"
	"image"
	"slices"

	"github.com/richinsley/goshadertexture/backend"
	"github.com/richinsley/goshadertexture/inputs"
	"github.com/richinsley/goshadertexture/logging"
	"github.com/richinsley/goshadertexture/shader"
	"github.com/richinsley/goshadertexture/uniforms"
)

// Pipeline runs an ordered list of passes. Passes 0..N-2 draw into
// framebuffers sized to the surface and the last pass draws to the surface.
// Pass i > 0 samples the output of pass i-1 on texture unit 0; pass 0
// samples the media texture, or a transparent 1x1 texture when none is
// bound. Sampler uniforms of the schema use units 1..N in declaration
// order.
//
// A Pipeline is not safe for concurrent use; all calls must happen on the
// goroutine that owns the backend.
type Pipeline struct {
	b        backend.Backend
	passes   []*RenderPass
	schema   []shader.UniformDescriptor
	samplers []string
	dummy    backend.Texture
	media    inputs.Source
	images   map[string]inputs.Source
	globals  []uniforms.Binding

	width     int
	height    int
	allocated bool
	disposed  bool
}

// Build compiles one program per fragment source, all sharing vertexSrc.
// Compile and link failures are returned as *backend.CompileError or
// *backend.LinkError with Pass set; nothing is left allocated in that case.
func Build(b backend.Backend, vertexSrc string, fragmentSrcs []string) (*Pipeline, error) {
	if len(fragmentSrcs) == 0 {
		return nil, errors.New("renderer: pipeline needs at least one fragment source")
	}
	p := &Pipeline{b: b, images: make(map[string]inputs.Source)}
	for i, src := range fragmentSrcs {
		prog, err := b.NewProgram(vertexSrc, src)
		if err != nil {
			p.Dispose()
			return nil, withPass(err, i)
		}
		p.passes = append(p.passes, newRenderPass(i, prog, src))
	}

	seen := map[string]bool{}
	for _, pass := range p.passes {
		for _, d := range pass.schema {
			if seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			p.schema = append(p.schema, d)
			if d.Type == shader.Sampler2D && !d.IsArray() {
				p.samplers = append(p.samplers, d.Name)
			}
		}
	}

	dummy, err := b.NewTexture(1, 1)
	if err != nil {
		p.Dispose()
		return nil, fmt.Errorf("create placeholder texture: %w", err)
	}
	dummy.Upload(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	p.dummy = dummy

	w, h := b.SurfaceSize()
	if err := p.Resize(w, h); err != nil {
		p.Dispose()
		return nil, err
	}
	logging.Logger().Info("pipeline built", "passes", len(p.passes), "uniforms", len(p.schema))
	return p, nil
}

func withPass(err error, pass int) error {
	var ce *backend.CompileError
	if errors.As(err, &ce) {
		c := *ce
		c.Pass = pass
		return &c
	}
	var le *backend.LinkError
	if errors.As(err, &le) {
		l := *le
		l.Pass = pass
		return &l
	}
	return fmt.Errorf("pass %d: %w", pass, err)
}

// Passes returns the passes in execution order.
func (p *Pipeline) Passes() []*RenderPass { return p.passes }

// Schema is the union of the option uniforms of every pass, in first
// declaration order.
func (p *Pipeline) Schema() []shader.UniformDescriptor { return slices.Clone(p.schema) }

// Size returns the size framebuffers are allocated for.
func (p *Pipeline) Size() (int, int) { return p.width, p.height }

// Resize reallocates the intermediate framebuffers for a surface of the
// given size. A zero-area size defers allocation until a positive size is
// seen.
func (p *Pipeline) Resize(width, height int) error {
	if p.disposed {
		return nil
	}
	if width <= 0 || height <= 0 {
		logging.Logger().Debug("resize deferred", "width", width, "height", height)
		return nil
	}
	if p.allocated && width == p.width && height == p.height {
		return nil
	}
	if r, ok := p.b.(backend.SurfaceResizer); ok {
		if sw, sh := p.b.SurfaceSize(); sw != width || sh != height {
			if err := r.ResizeSurface(width, height); err != nil {
				return fmt.Errorf("resize surface: %w", err)
			}
		}
	}

	for _, pass := range p.passes[:len(p.passes)-1] {
		if pass.framebuffer != nil {
			tex := pass.framebuffer.Texture()
			pass.framebuffer.Release()
			tex.Release()
			pass.framebuffer = nil
		}
		tex, err := p.b.NewTexture(width, height)
		if err != nil {
			p.allocated = false
			return fmt.Errorf("pass %d: create target texture: %w", pass.index, err)
		}
		fb, err := p.b.NewFramebuffer(tex)
		if err != nil {
			tex.Release()
			p.allocated = false
			return fmt.Errorf("pass %d: create framebuffer: %w", pass.index, err)
		}
		pass.framebuffer = fb
	}
	p.width, p.height = width, height
	p.allocated = true
	logging.Logger().Debug("pipeline resized", "width", width, "height", height)
	return nil
}

// SetMedia sets the source sampled by pass 0. nil clears it.
func (p *Pipeline) SetMedia(src inputs.Source) {
	p.media = src
}

// SetImage binds src to the sampler uniform called name. nil binds the
// placeholder texture and a (0, 0) resolution.
func (p *Pipeline) SetImage(name string, src inputs.Source) error {
	if p.disposed {
		return nil
	}
	if !slices.Contains(p.samplers, name) {
		return fmt.Errorf("renderer: %q is not a sampler uniform of the pipeline", name)
	}
	if src == nil {
		delete(p.images, name)
		return nil
	}
	p.images[name] = src
	return nil
}

// ApplyUniforms records values for every pass. They are uploaded by the
// next RenderFrame and persist until replaced. An ImageRef that clears its
// slot unbinds the image; other image refs are bound with SetImage once
// decoded.
func (p *Pipeline) ApplyUniforms(values []uniforms.Binding) {
	p.globals = mergeBindings(p.globals, values)
	for _, v := range values {
		if ref, ok := v.Value.(uniforms.ImageRef); ok && ref.None() {
			delete(p.images, v.Name())
		}
	}
}

// ApplyPassUniforms records values for one pass only. They take precedence
// over values given to ApplyUniforms.
func (p *Pipeline) ApplyPassUniforms(pass int, values []uniforms.Binding) error {
	if pass < 0 || pass >= len(p.passes) {
		return fmt.Errorf("renderer: pass %d out of range [0, %d)", pass, len(p.passes))
	}
	rp := p.passes[pass]
	rp.overrides = mergeBindings(rp.overrides, values)
	return nil
}

func mergeBindings(dst, src []uniforms.Binding) []uniforms.Binding {
	for _, v := range src {
		i := slices.IndexFunc(dst, func(b uniforms.Binding) bool { return b.Name() == v.Name() })
		if i >= 0 {
			dst[i] = v
		} else {
			dst = append(dst, v)
		}
	}
	return dst
}

// RenderFrame draws every pass in order. clock is the time in seconds since
// the pipeline started and mouse the u_mouse vector. hasTexture reports
// whether the media source should be sampled by pass 0.
func (p *Pipeline) RenderFrame(clock float64, mouse [4]float32, hasTexture bool) {
	if p.disposed || !p.allocated {
		return
	}
	b := p.b
	for i, pass := range p.passes {
		if fb := pass.framebuffer; fb != nil {
			if err := fb.IsComplete(); err != nil {
				logging.Logger().Warn("pass skipped", "pass", i, "err", err)
				continue
			}
		}
		b.BindFramebuffer(pass.framebuffer)
		b.Viewport(0, 0, p.width, p.height)
		b.BindProgram(pass.program)

		input, has := p.dummy, false
		if i == 0 {
			if hasTexture && p.media != nil && p.media.Texture() != nil {
				input, has = p.media.Texture(), true
			}
		} else if prev := p.passes[i-1].framebuffer; prev != nil {
			input, has = prev.Texture(), true
		}
		b.BindTexture(0, input)
		p.setBuiltins(pass, clock, mouse, has)

		for _, v := range p.globals {
			pass.apply(v)
		}
		for _, v := range pass.overrides {
			pass.apply(v)
		}
		p.bindImages(pass)

		b.Clear(0, 0, 0, 0)
		b.DrawQuad()
	}
	b.BindFramebuffer(nil)
}

func (p *Pipeline) setBuiltins(pass *RenderPass, clock float64, mouse [4]float32, hasTexture bool) {
	prog := pass.program
	if loc, ok := pass.builtin(shader.UniformResolution); ok {
		prog.Uniform2f(loc, float32(p.width), float32(p.height))
	}
	if loc, ok := pass.builtin(shader.UniformTime); ok {
		prog.Uniform1f(loc, float32(clock))
	}
	if loc, ok := pass.builtin(shader.UniformMouse); ok {
		prog.Uniform4f(loc, mouse[0], mouse[1], mouse[2], mouse[3])
	}
	if loc, ok := pass.builtin(shader.UniformHasTexture); ok {
		prog.Uniform1i(loc, boolToInt(hasTexture))
	}
	if loc, ok := pass.builtin(shader.UniformTexture); ok {
		prog.Uniform1i(loc, 0)
	}
}

func (p *Pipeline) bindImages(pass *RenderPass) {
	for i, name := range p.samplers {
		unit := i + 1
		tex, w, h := p.dummy, 0, 0
		if src := p.images[name]; src != nil && src.Texture() != nil {
			tex = src.Texture()
			w, h = src.Resolution()
		}
		p.b.BindTexture(unit, tex)
		if loc, ok := pass.builtin(name); ok {
			pass.program.Uniform1i(loc, unit)
		}
		if loc, ok := pass.builtin(uniforms.ResolutionName(name)); ok {
			pass.program.Uniform2f(loc, float32(w), float32(h))
		}
	}
}

// Dispose releases every program, framebuffer and texture the pipeline
// owns. Media and image sources belong to the caller. Dispose is
// idempotent.
func (p *Pipeline) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	for _, pass := range p.passes {
		pass.release()
	}
	if p.dummy != nil {
		p.dummy.Release()
		p.dummy = nil
	}
	p.media = nil
	p.images = nil
	logging.Logger().Debug("pipeline disposed")
}
