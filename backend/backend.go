// Package backend defines the GPU abstraction the renderer draws through.
// Implementations live in backend/opengl and backend/soft.
package backend

import (
	"errors"
	"fmt"
	"image"
)

// Backend exposes the primitives needed to run full-screen fragment passes.
// A Backend is bound to a single context and is not safe for concurrent use.
type Backend interface {
	NewProgram(vertexSrc, fragmentSrc string) (Program, error)
	// NewTexture allocates an RGBA8 texture with undefined contents.
	NewTexture(width, height int) (Texture, error)
	// NewFramebuffer wraps tex as a color render target. The returned
	// framebuffer may still be incomplete; check IsComplete before drawing.
	NewFramebuffer(tex Texture) (Framebuffer, error)

	// BindFramebuffer selects the render and readback target. nil selects
	// the surface.
	BindFramebuffer(fb Framebuffer)
	BindProgram(p Program)
	// BindTexture binds tex to a texture unit. nil unbinds the unit.
	BindTexture(unit int, tex Texture)
	Viewport(x, y, width, height int)
	Clear(r, g, b, a float32)
	// DrawQuad draws the full-screen quad with the bound program.
	DrawQuad()
	// ReadPixels copies an RGBA8 region of the bound target into pixels.
	// Rows are ordered bottom-up.
	ReadPixels(x, y, width, height int, pixels []byte) error

	// SurfaceSize returns the size of the surface in device pixels.
	SurfaceSize() (width, height int)
	Release()
}

// SurfaceResizer is implemented by backends that own their surface storage.
// Window-backed surfaces are resized by the window system instead.
type SurfaceResizer interface {
	ResizeSurface(width, height int) error
}

// Uniform is a uniform location within a program.
type Uniform int32

// NoUniform is returned for names the program does not use.
const NoUniform Uniform = -1

// Valid reports whether u refers to an active uniform.
func (u Uniform) Valid() bool {
	return u >= 0
}

type Program interface {
	UniformFor(name string) Uniform
	Uniform1i(u Uniform, v int)
	Uniform1f(u Uniform, v float32)
	Uniform2f(u Uniform, v0, v1 float32)
	Uniform3f(u Uniform, v0, v1, v2 float32)
	Uniform4f(u Uniform, v0, v1, v2, v3 float32)
	Uniform1fv(u Uniform, v []float32)
	Uniform2fv(u Uniform, v []float32)
	Uniform3fv(u Uniform, v []float32)
	Uniform4fv(u Uniform, v []float32)
	Uniform1iv(u Uniform, v []int32)
	Release()
}

type Texture interface {
	Size() (width, height int)
	// Upload replaces the texture contents with img, resizing the texture to
	// the image bounds. Image row 0 lands at the top of the texture (v = 1).
	Upload(img *image.RGBA)
	Release()
}

type Framebuffer interface {
	Texture() Texture
	IsComplete() error
	Release()
}

// ErrFramebufferIncomplete is wrapped by IsComplete failures.
var ErrFramebufferIncomplete = errors.New("framebuffer incomplete")

// CompileError reports a shader that failed to compile. Source is the text
// handed to the compiler and Log the compiler diagnostics.
type CompileError struct {
	Stage  string // "vertex" or "fragment"
	Pass   int    // -1 when not compiled as part of a pipeline
	Source string
	Log    string
}

func (e *CompileError) Error() string {
	if e.Pass >= 0 {
		return fmt.Sprintf("pass %d: %s shader compile failed: %s", e.Pass, e.Stage, e.Log)
	}
	return fmt.Sprintf("%s shader compile failed: %s", e.Stage, e.Log)
}

// LinkError reports a program that failed to link, with both sources
// handed to the linker.
type LinkError struct {
	Pass           int
	VertexSource   string
	FragmentSource string
	Log            string
}

func (e *LinkError) Error() string {
	if e.Pass >= 0 {
		return fmt.Sprintf("pass %d: program link failed: %s", e.Pass, e.Log)
	}
	return fmt.Sprintf("program link failed: %s", e.Log)
}

// FlipRows returns a copy of src with its rows in reverse order.
func FlipRows(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	flipped := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	rowSize := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		srcOff := src.PixOffset(b.Min.X, b.Max.Y-1-y)
		copy(flipped.Pix[y*flipped.Stride:y*flipped.Stride+rowSize], src.Pix[srcOff:srcOff+rowSize])
	}
	return flipped
}

// ReverseRows converts a bottom-up pixel buffer of the given size into a
// top-down *image.RGBA.
func ReverseRows(pixels []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := pixels[(height-1-y)*rowSize : (height-y)*rowSize]
		copy(img.Pix[y*img.Stride:], src)
	}
	return img
}
