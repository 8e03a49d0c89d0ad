// Package opengl implements backend.Backend on an OpenGL 4.1 core context.
// Sources are WebGL2 GLSL and are translated to GLSL 4.10 before compiling.
package opengl

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/richinsley/goshadertexture/backend"
	"github.com/richinsley/goshadertexture/graphics"
	"github.com/richinsley/goshadertexture/shader"
	"github.com/richinsley/goshadertexture/translator"
)

var glInitOnce sync.Once

const (
	attribPosition = 0
	attribTexCoord = 1
)

// Backend draws with the OpenGL context of a graphics.Context. All methods
// must be called on the goroutine that owns the current context.
type Backend struct {
	ctx      graphics.Context
	vao      uint32
	vbos     [2]uint32
	released bool
}

var _ backend.Backend = (*Backend)(nil)

// New makes ctx current, loads the GL entry points and creates the quad
// geometry.
func New(ctx graphics.Context) (*Backend, error) {
	ctx.MakeCurrent()

	var initErr error
	glInitOnce.Do(func() {
		initErr = gl.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", initErr)
	}

	b := &Backend{ctx: ctx}
	gl.GenVertexArrays(1, &b.vao)
	gl.GenBuffers(2, &b.vbos[0])
	gl.BindVertexArray(b.vao)

	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbos[0])
	gl.BufferData(gl.ARRAY_BUFFER, len(shader.QuadPositions)*4, gl.Ptr(shader.QuadPositions), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(attribPosition)
	gl.VertexAttribPointer(attribPosition, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))

	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbos[1])
	gl.BufferData(gl.ARRAY_BUFFER, len(shader.QuadTexCoords)*4, gl.Ptr(shader.QuadTexCoords), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(attribTexCoord)
	gl.VertexAttribPointer(attribTexCoord, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	return b, nil
}

func (b *Backend) NewProgram(vertexSrc, fragmentSrc string) (backend.Program, error) {
	vsCode, vsNames, err := translator.Translate(vertexSrc, translator.StageVertex)
	if err != nil {
		return nil, &backend.CompileError{Stage: "vertex", Pass: -1, Source: vertexSrc, Log: err.Error()}
	}
	fsCode, fsNames, err := translator.Translate(fragmentSrc, translator.StageFragment)
	if err != nil {
		return nil, &backend.CompileError{Stage: "fragment", Pass: -1, Source: fragmentSrc, Log: err.Error()}
	}

	vs, err := compileShader(vsCode, gl.VERTEX_SHADER)
	if err != nil {
		return nil, &backend.CompileError{Stage: "vertex", Pass: -1, Source: vertexSrc, Log: err.Error()}
	}
	defer gl.DeleteShader(vs)
	fs, err := compileShader(fsCode, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, &backend.CompileError{Stage: "fragment", Pass: -1, Source: fragmentSrc, Log: err.Error()}
	}
	defer gl.DeleteShader(fs)

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	bindAttrib(program, attribPosition, vsNames, shader.AttribPosition)
	bindAttrib(program, attribTexCoord, vsNames, shader.AttribTexCoord)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return nil, &backend.LinkError{
			Pass:           -1,
			VertexSource:   vertexSrc,
			FragmentSource: fragmentSrc,
			Log:            strings.TrimRight(log, "\x00"),
		}
	}

	names := make(map[string]string, len(vsNames)+len(fsNames))
	for k, v := range vsNames {
		names[k] = v
	}
	for k, v := range fsNames {
		names[k] = v
	}
	return &Program{obj: program, names: names, locs: make(map[string]backend.Uniform)}, nil
}

func bindAttrib(program, index uint32, names map[string]string, name string) {
	mapped, ok := names[name]
	if !ok {
		mapped = name
	}
	gl.BindAttribLocation(program, index, gl.Str(mapped+"\x00"))
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, errors.New(strings.TrimRight(logText, "\x00"))
	}
	return shader, nil
}

func (b *Backend) NewTexture(width, height int) (backend.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid texture size %dx%d", width, height)
	}
	t := &Texture{width: width, height: height}
	gl.GenTextures(1, &t.obj)
	gl.BindTexture(gl.TEXTURE_2D, t.obj)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &t.obj)
		return nil, fmt.Errorf("allocate %dx%d texture: gl error 0x%x", width, height, code)
	}
	return t, nil
}

func (b *Backend) NewFramebuffer(tex backend.Texture) (backend.Framebuffer, error) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return nil, errors.New("framebuffer needs an OpenGL texture")
	}
	fb := &Framebuffer{tex: t}
	gl.GenFramebuffers(1, &fb.obj)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.obj)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.obj, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return fb, nil
}

func (b *Backend) BindFramebuffer(fb backend.Framebuffer) {
	if fb == nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.(*Framebuffer).obj)
}

func (b *Backend) BindProgram(p backend.Program) {
	if p == nil {
		gl.UseProgram(0)
		return
	}
	gl.UseProgram(p.(*Program).obj)
}

func (b *Backend) BindTexture(unit int, tex backend.Texture) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	if tex == nil {
		gl.BindTexture(gl.TEXTURE_2D, 0)
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, tex.(*Texture).obj)
}

func (b *Backend) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (b *Backend) Clear(r, g, bl, a float32) {
	gl.ClearColor(r, g, bl, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (b *Backend) DrawQuad() {
	gl.BindVertexArray(b.vao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	gl.BindVertexArray(0)
}

func (b *Backend) ReadPixels(x, y, width, height int, pixels []byte) error {
	if len(pixels) < width*height*4 {
		return errors.New("unexpected RGBA size")
	}
	if width == 0 || height == 0 {
		return nil
	}
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&pixels[0]))
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("read pixels: gl error 0x%x", code)
	}
	return nil
}

func (b *Backend) SurfaceSize() (int, int) {
	return b.ctx.GetFramebufferSize()
}

func (b *Backend) Release() {
	if b.released {
		return
	}
	b.released = true
	gl.DeleteBuffers(2, &b.vbos[0])
	gl.DeleteVertexArrays(1, &b.vao)
}

// Program is a linked GL program. Uniform names are resolved through the
// translator's name map.
type Program struct {
	obj   uint32
	names map[string]string
	locs  map[string]backend.Uniform
}

func (p *Program) UniformFor(name string) backend.Uniform {
	if loc, ok := p.locs[name]; ok {
		return loc
	}
	base, suffix, _ := strings.Cut(name, "[")
	mapped, ok := p.names[base]
	if !ok {
		mapped = base
	}
	if suffix != "" {
		mapped += "[" + suffix
	}
	loc := backend.Uniform(gl.GetUniformLocation(p.obj, gl.Str(mapped+"\x00")))
	p.locs[name] = loc
	return loc
}

func (p *Program) Uniform1i(u backend.Uniform, v int) { gl.Uniform1i(int32(u), int32(v)) }

func (p *Program) Uniform1f(u backend.Uniform, v float32) { gl.Uniform1f(int32(u), v) }

func (p *Program) Uniform2f(u backend.Uniform, v0, v1 float32) { gl.Uniform2f(int32(u), v0, v1) }

func (p *Program) Uniform3f(u backend.Uniform, v0, v1, v2 float32) {
	gl.Uniform3f(int32(u), v0, v1, v2)
}

func (p *Program) Uniform4f(u backend.Uniform, v0, v1, v2, v3 float32) {
	gl.Uniform4f(int32(u), v0, v1, v2, v3)
}

func (p *Program) Uniform1fv(u backend.Uniform, v []float32) {
	if len(v) > 0 {
		gl.Uniform1fv(int32(u), int32(len(v)), &v[0])
	}
}

func (p *Program) Uniform2fv(u backend.Uniform, v []float32) {
	if len(v) >= 2 {
		gl.Uniform2fv(int32(u), int32(len(v)/2), &v[0])
	}
}

func (p *Program) Uniform3fv(u backend.Uniform, v []float32) {
	if len(v) >= 3 {
		gl.Uniform3fv(int32(u), int32(len(v)/3), &v[0])
	}
}

func (p *Program) Uniform4fv(u backend.Uniform, v []float32) {
	if len(v) >= 4 {
		gl.Uniform4fv(int32(u), int32(len(v)/4), &v[0])
	}
}

func (p *Program) Uniform1iv(u backend.Uniform, v []int32) {
	if len(v) > 0 {
		gl.Uniform1iv(int32(u), int32(len(v)), &v[0])
	}
}

func (p *Program) Release() {
	if p.obj != 0 {
		gl.DeleteProgram(p.obj)
		p.obj = 0
	}
}

// Texture is an RGBA8 GL texture.
type Texture struct {
	obj           uint32
	width, height int
}

func (t *Texture) Size() (int, int) {
	return t.width, t.height
}

func (t *Texture) Upload(img *image.RGBA) {
	flipped := backend.FlipRows(img)
	t.width, t.height = flipped.Rect.Dx(), flipped.Rect.Dy()
	gl.BindTexture(gl.TEXTURE_2D, t.obj)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(t.width), int32(t.height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(flipped.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (t *Texture) Release() {
	if t.obj != 0 {
		gl.DeleteTextures(1, &t.obj)
		t.obj = 0
	}
}

// Framebuffer is a GL framebuffer with a single color attachment.
type Framebuffer struct {
	obj uint32
	tex *Texture
}

func (f *Framebuffer) Texture() backend.Texture {
	return f.tex
}

func (f *Framebuffer) IsComplete() error {
	if f.obj == 0 || f.tex.obj == 0 {
		return fmt.Errorf("%w: released", backend.ErrFramebufferIncomplete)
	}
	var prev int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prev)
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.obj)
	st := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prev))
	if st != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: status 0x%x", backend.ErrFramebufferIncomplete, st)
	}
	return nil
}

func (f *Framebuffer) Release() {
	if f.obj != 0 {
		gl.DeleteFramebuffers(1, &f.obj)
		f.obj = 0
	}
}
