package renderer

import (
	"image"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/goshadertexture/backend"
	"github.com/richinsley/goshadertexture/backend/soft"
	"github.com/richinsley/goshadertexture/inputs"
	"github.com/richinsley/goshadertexture/shader"
	"github.com/richinsley/goshadertexture/uniforms"
)

const solidFrag = `#version 300 es
#pragma kernel solid
precision highp float;
uniform vec4 u_color;
uniform float u_time;
uniform vec2 u_resolution;
uniform vec4 u_mouse;
uniform bool u_has_texture;
out vec4 outColor;
void main() { outColor = u_color; }
`

const invertFrag = `#version 300 es
#pragma kernel invert
precision highp float;
uniform sampler2D u_texture;
uniform bool u_has_texture;
in vec2 v_tex_coord;
out vec4 outColor;
void main() {
	vec4 c = texture(u_texture, v_tex_coord);
	outColor = vec4(1.0 - c.rgb, c.a);
}
`

const imageFrag = `#version 300 es
#pragma kernel passthrough
precision highp float;
uniform sampler2D u_texture;
uniform bool u_has_texture;
uniform sampler2D u_image; // label:Image
uniform vec2 u_image_resolution;
out vec4 outColor;
void main() { outColor = texture(u_texture, vec2(0.0)); }
`

func build(t *testing.T, b *soft.Backend, frags ...string) *Pipeline {
	t.Helper()
	p, err := Build(b, shader.DefaultVertexSource(), frags)
	require.NoError(t, err)
	return p
}

func bind(t *testing.T, p *Pipeline, options map[string]any) []uniforms.Binding {
	t.Helper()
	values, err := uniforms.Map(p.Schema(), options)
	require.NoError(t, err)
	return values
}

func assertSurface(t *testing.T, b *soft.Backend, want []byte) {
	t.Helper()
	px := b.Surface()
	for i := 0; i < len(px); i += 4 {
		if !assert.Equal(t, want, px[i:i+4], "pixel %d", i/4) {
			return
		}
	}
}

func value(p *Pipeline, pass int, name string) []float32 {
	return p.Passes()[pass].Program().(*soft.Program).Value(name)
}

func TestPipelineTwoPasses(t *testing.T) {
	b := soft.New(8, 8)
	p := build(t, b, solidFrag, invertFrag)
	defer p.Dispose()

	require.Len(t, p.Passes(), 2)
	assert.NotNil(t, p.Passes()[0].Framebuffer())
	assert.Nil(t, p.Passes()[1].Framebuffer())

	// u_color only exists in pass 0; pass 1 skips it.
	p.ApplyUniforms(bind(t, p, map[string]any{"u_color": []float64{1, 0, 0, 1}}))
	p.RenderFrame(0, [4]float32{}, false)

	assertSurface(t, b, []byte{0, 255, 255, 255})
	assert.Equal(t, []float32{1}, value(p, 1, shader.UniformHasTexture))
	assert.Equal(t, []float32{0}, value(p, 0, shader.UniformHasTexture))
	assert.Equal(t, 2, b.Stats().Draws)
}

func TestPipelineBuiltins(t *testing.T) {
	b := soft.New(16, 8)
	p := build(t, b, solidFrag)
	defer p.Dispose()

	p.RenderFrame(1.5, [4]float32{0.25, 0.5, -0.25, -0.5}, false)
	assert.Equal(t, []float32{16, 8}, value(p, 0, shader.UniformResolution))
	assert.Equal(t, []float32{1.5}, value(p, 0, shader.UniformTime))
	assert.Equal(t, []float32{0.25, 0.5, -0.25, -0.5}, value(p, 0, shader.UniformMouse))
}

func TestPipelineSchemaUnion(t *testing.T) {
	b := soft.New(4, 4)
	p := build(t, b, solidFrag, imageFrag, solidFrag)
	defer p.Dispose()

	var names []string
	for _, d := range p.Schema() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"u_color", "u_image", "u_image_resolution"}, names)
}

func TestPipelineResize(t *testing.T) {
	b := soft.New(256, 256)
	p := build(t, b, solidFrag, invertFrag, invertFrag)
	defer p.Dispose()

	before := b.LiveTextureIDs()
	live := b.Stats().LiveTextures
	require.Equal(t, 3, live) // placeholder and two targets

	require.NoError(t, p.Resize(512, 512))
	assert.Equal(t, live, b.Stats().LiveTextures)
	w, h := p.Size()
	assert.Equal(t, [2]int{512, 512}, [2]int{w, h})
	sw, sh := b.SurfaceSize()
	assert.Equal(t, [2]int{512, 512}, [2]int{sw, sh})
	for _, pass := range p.Passes()[:2] {
		tw, th := pass.Framebuffer().Texture().Size()
		assert.Equal(t, [2]int{512, 512}, [2]int{tw, th})
		id := pass.Framebuffer().Texture().(*soft.Texture).ID()
		assert.False(t, slices.Contains(before, id), "target %d was reused", id)
	}

	// A zero-area size keeps the current allocation.
	require.NoError(t, p.Resize(0, 100))
	w, h = p.Size()
	assert.Equal(t, [2]int{512, 512}, [2]int{w, h})

	p.ApplyUniforms(bind(t, p, map[string]any{"u_color": "#0000FF"}))
	p.RenderFrame(0, [4]float32{}, false)
	assertSurface(t, b, []byte{0, 0, 255, 255})
}

func TestPipelineCompileError(t *testing.T) {
	b := soft.New(4, 4)
	_, err := Build(b, shader.DefaultVertexSource(), []string{solidFrag, "#version 300 es\n#error missing semicolon\n"})

	var ce *backend.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Pass)
	assert.Equal(t, "fragment", ce.Stage)
	assert.Contains(t, ce.Log, "missing semicolon")
	assert.Equal(t, 0, b.Stats().LivePrograms)
	assert.Equal(t, 0, b.Stats().LiveTextures)

	_, err = Build(b, shader.DefaultVertexSource(), nil)
	assert.Error(t, err)
}

func TestPipelineLinkError(t *testing.T) {
	b := soft.New(4, 4)
	b.LinkHook = func(string, string) error { return assert.AnError }
	_, err := Build(b, shader.DefaultVertexSource(), []string{solidFrag})

	var le *backend.LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 0, le.Pass)
	assert.Equal(t, shader.DefaultVertexSource(), le.VertexSource)
	assert.Equal(t, solidFrag, le.FragmentSource)
	assert.Contains(t, le.Log, assert.AnError.Error())
}

func TestPipelineIncompleteFramebufferSkipped(t *testing.T) {
	b := soft.New(4, 4)
	b.ForceIncomplete = true
	p := build(t, b, solidFrag, invertFrag)
	defer p.Dispose()

	p.RenderFrame(0, [4]float32{}, false)
	assert.Equal(t, 1, b.Stats().Draws)
}

func TestPipelinePassOverride(t *testing.T) {
	b := soft.New(4, 4)
	p := build(t, b, solidFrag)
	defer p.Dispose()

	p.ApplyUniforms(bind(t, p, map[string]any{"u_color": "#FF0000"}))
	require.NoError(t, p.ApplyPassUniforms(0, bind(t, p, map[string]any{"u_color": "#00FF00"})))
	p.RenderFrame(0, [4]float32{}, false)
	assertSurface(t, b, []byte{0, 255, 0, 255})

	// Later global values do not replace the override.
	p.ApplyUniforms(bind(t, p, map[string]any{"u_color": "#0000FF"}))
	p.RenderFrame(0, [4]float32{}, false)
	assertSurface(t, b, []byte{0, 255, 0, 255})

	assert.Error(t, p.ApplyPassUniforms(3, nil))
}

func TestPipelineImages(t *testing.T) {
	b := soft.New(4, 4)
	p := build(t, b, imageFrag)
	defer p.Dispose()

	img, err := inputs.NewImage(b, image.NewRGBA(image.Rect(0, 0, 2, 3)))
	require.NoError(t, err)
	defer img.Destroy()

	require.NoError(t, p.SetImage("u_image", img))
	p.RenderFrame(0, [4]float32{}, false)
	assert.Equal(t, []float32{1}, value(p, 0, "u_image"))
	assert.Equal(t, []float32{2, 3}, value(p, 0, "u_image_resolution"))

	p.ApplyUniforms(bind(t, p, map[string]any{"u_image": uniforms.NoImage}))
	p.RenderFrame(0, [4]float32{}, false)
	assert.Equal(t, []float32{0, 0}, value(p, 0, "u_image_resolution"))

	assert.Error(t, p.SetImage("u_color", img))
}

func TestPipelineMedia(t *testing.T) {
	b := soft.New(4, 4)
	p := build(t, b, imageFrag)
	defer p.Dispose()

	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.Pix = []byte{10, 20, 30, 255}
	media, err := inputs.NewImage(b, src)
	require.NoError(t, err)
	defer media.Destroy()

	p.SetMedia(media)
	p.RenderFrame(0, [4]float32{}, true)
	assert.Equal(t, []float32{1}, value(p, 0, shader.UniformHasTexture))
	assertSurface(t, b, []byte{10, 20, 30, 255})

	p.RenderFrame(0, [4]float32{}, false)
	assert.Equal(t, []float32{0}, value(p, 0, shader.UniformHasTexture))
	assertSurface(t, b, []byte{0, 0, 0, 0})
}

func TestPipelineDispose(t *testing.T) {
	b := soft.New(4, 4)
	p := build(t, b, solidFrag, invertFrag)

	p.Dispose()
	p.Dispose()
	st := b.Stats()
	assert.Equal(t, 0, st.LivePrograms)
	assert.Equal(t, 0, st.LiveTextures)
	assert.Equal(t, 0, st.LiveFramebuffers)
	assert.NoError(t, p.SetImage("u_image", nil))
	p.RenderFrame(0, [4]float32{}, false)
	assert.Equal(t, 0, b.Stats().Draws)
}
