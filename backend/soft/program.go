package soft

import (
	"strings"

	"github.com/richinsley/goshadertexture/backend"
	"github.com/richinsley/goshadertexture/shader"
)

// Program holds the kernel and the uniform storage of a linked program.
type Program struct {
	b        *Backend
	kernel   Kernel
	names    map[string]backend.Uniform
	values   [][]float32
	released bool
}

func newProgram(b *Backend, k Kernel, vertexSrc, fragmentSrc string) *Program {
	p := &Program{b: b, kernel: k, names: make(map[string]backend.Uniform)}
	for _, src := range []string{vertexSrc, fragmentSrc} {
		for _, d := range shader.ParseDeclarations(src) {
			if _, ok := p.names[d.Name]; ok {
				continue
			}
			loc := backend.Uniform(len(p.values))
			p.names[d.Name] = loc
			if d.ArrayLength > 0 {
				p.names[d.Name+"[0]"] = loc
			}
			p.values = append(p.values, nil)
		}
	}
	return p
}

func (p *Program) UniformFor(name string) backend.Uniform {
	if loc, ok := p.names[name]; ok {
		return loc
	}
	return backend.NoUniform
}

func (p *Program) set(u backend.Uniform, v ...float32) {
	if !u.Valid() || int(u) >= len(p.values) {
		return
	}
	p.values[u] = append(p.values[u][:0], v...)
}

func (p *Program) Uniform1i(u backend.Uniform, v int)              { p.set(u, float32(v)) }
func (p *Program) Uniform1f(u backend.Uniform, v float32)          { p.set(u, v) }
func (p *Program) Uniform2f(u backend.Uniform, v0, v1 float32)     { p.set(u, v0, v1) }
func (p *Program) Uniform3f(u backend.Uniform, v0, v1, v2 float32) { p.set(u, v0, v1, v2) }
func (p *Program) Uniform4f(u backend.Uniform, v0, v1, v2, v3 float32) {
	p.set(u, v0, v1, v2, v3)
}
func (p *Program) Uniform1fv(u backend.Uniform, v []float32) { p.set(u, v...) }
func (p *Program) Uniform2fv(u backend.Uniform, v []float32) { p.set(u, v...) }
func (p *Program) Uniform3fv(u backend.Uniform, v []float32) { p.set(u, v...) }
func (p *Program) Uniform4fv(u backend.Uniform, v []float32) { p.set(u, v...) }

func (p *Program) Uniform1iv(u backend.Uniform, v []int32) {
	f := make([]float32, len(v))
	for i, n := range v {
		f[i] = float32(n)
	}
	p.set(u, f...)
}

// Value returns the last value stored for a uniform name, for inspection.
func (p *Program) Value(name string) []float32 {
	loc := p.UniformFor(strings.TrimSuffix(name, "[0]"))
	if !loc.Valid() {
		return nil
	}
	return p.values[loc]
}

func (p *Program) Release() {
	if p.released {
		return
	}
	p.released = true
	p.b.stats.LivePrograms--
	if p.b.program == p {
		p.b.program = nil
	}
}
