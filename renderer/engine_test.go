package renderer

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/goshadertexture/backend"
	"github.com/richinsley/goshadertexture/backend/soft"
	"github.com/richinsley/goshadertexture/export"
	"github.com/richinsley/goshadertexture/inputs"
	"github.com/richinsley/goshadertexture/shader"
	"github.com/richinsley/goshadertexture/uniforms"
)

func newEngine(t *testing.T, b *soft.Backend, opts Options) (*Engine, *ManualRequester) {
	t.Helper()
	m := &ManualRequester{}
	e, err := NewEngine(b, m, opts)
	require.NoError(t, err)
	t.Cleanup(e.Dispose)
	return e, m
}

// flushUntil runs posted work until cond holds.
func flushUntil(t *testing.T, m *ManualRequester, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		m.Flush()
		return cond()
	}, 2*time.Second, time.Millisecond)
}

func TestNewEngineNoContext(t *testing.T) {
	_, err := NewEngine(nil, &ManualRequester{}, Options{})
	assert.ErrorIs(t, err, ErrNoContext)
}

func TestEngineRendersOptions(t *testing.T) {
	b := soft.New(4, 4)
	e, m := newEngine(t, b, Options{})

	require.NoError(t, e.Init("", []string{solidFrag, invertFrag}, map[string]any{"u_color": "#FF0000"}))
	assert.Equal(t, Running, e.Scheduler().State())
	require.Len(t, e.Schema(), 1)

	m.Step()
	assertSurface(t, b, []byte{0, 255, 255, 255})

	require.NoError(t, e.OnOptionChanged("u_color", "#FFFFFF"))
	m.Step()
	assertSurface(t, b, []byte{0, 0, 0, 255})
	assert.Equal(t, "#FFFFFF", e.Options()["u_color"])

	err := e.OnOptionChanged("u_color", true)
	assert.ErrorIs(t, err, uniforms.ErrInvalidValue)
	m.Step()
	assertSurface(t, b, []byte{0, 0, 0, 255})

	vertex, frags := e.Sources()
	assert.Equal(t, shader.DefaultVertexSource(), vertex)
	assert.Equal(t, []string{solidFrag, invertFrag}, frags)
}

func TestEngineSetShaderKeepsPipelineOnFailure(t *testing.T) {
	b := soft.New(4, 4)
	e, m := newEngine(t, b, Options{})
	require.NoError(t, e.Init("", []string{solidFrag}, map[string]any{"u_color": "#00FF00"}))
	live := e.Pipeline()

	err := e.SetShader("", []string{solidFrag, "#version 300 es\n#error boom\n"})
	var ce *backend.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Pass)
	assert.Same(t, live, e.Pipeline())

	m.Step()
	assertSurface(t, b, []byte{0, 255, 0, 255})

	// A successful rebuild keeps the options.
	require.NoError(t, e.SetShader("", []string{invertFrag, solidFrag}))
	assert.NotSame(t, live, e.Pipeline())
	m.Step()
	assertSurface(t, b, []byte{0, 255, 0, 255})
	assert.Equal(t, 2, b.Stats().LivePrograms)
}

func TestEngineRenderConfig(t *testing.T) {
	b := soft.New(4, 4)
	e, _ := newEngine(t, b, Options{})
	frag := "// antialias: true\n// camera-fov: 45\n" + solidFrag
	require.NoError(t, e.Init("", []string{frag}, nil))
	assert.True(t, e.RenderConfig().Bool("antialias", false))
	assert.Equal(t, 45.0, e.RenderConfig().Float("camera-fov", 0))
}

func TestEngineImageOption(t *testing.T) {
	b := soft.New(4, 4)
	var decodes atomic.Int32
	decode := func(payload string) (image.Image, error) {
		decodes.Add(1)
		if payload == "bad" {
			return nil, errors.New("not an image")
		}
		return image.NewRGBA(image.Rect(0, 0, 2, 3)), nil
	}
	e, m := newEngine(t, b, Options{DecodeImage: decode})
	require.NoError(t, e.Init("", []string{imageFrag}, nil))

	require.NoError(t, e.OnOptionChanged("u_image", "data:image/png;base64,AAAA"))
	assert.Equal(t, 1, e.Pending())
	flushUntil(t, m, func() bool {
		e.RenderNow()
		res := value(e.Pipeline(), 0, "u_image_resolution")
		return len(res) == 2 && res[0] == 2
	})
	assert.Equal(t, []float32{2, 3}, value(e.Pipeline(), 0, "u_image_resolution"))
	assert.Zero(t, e.Pending())
	textures := b.Stats().LiveTextures

	// Same payload is not decoded again.
	require.NoError(t, e.OnOptionChanged("u_image", "data:image/png;base64,AAAA"))
	assert.Equal(t, int32(1), decodes.Load())

	require.NoError(t, e.OnOptionChanged("u_image", uniforms.NoImage))
	e.RenderNow()
	assert.Equal(t, []float32{0, 0}, value(e.Pipeline(), 0, "u_image_resolution"))
	assert.Equal(t, textures-1, b.Stats().LiveTextures)

	require.NoError(t, e.OnOptionChanged("u_image", "bad"))
	flushUntil(t, m, func() bool { return decodes.Load() == 2 })
	e.RenderNow()
	assert.Equal(t, []float32{0, 0}, value(e.Pipeline(), 0, "u_image_resolution"))
}

func TestEngineLoadMedia(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.Set(0, 0, color.RGBA{40, 80, 120, 255})
	path := filepath.Join(t.TempDir(), "media.png")
	require.NoError(t, export.WritePNG(path, src))

	b := soft.New(4, 4)
	e, m := newEngine(t, b, Options{})
	require.NoError(t, e.Init("", []string{shader.DefaultFragmentSource()}, nil))

	e.LoadMedia(path)
	flushUntil(t, m, func() bool { return m.Step() > 0 && b.Surface()[0] == 40 })
	assertSurface(t, b, []byte{40, 80, 120, 255})

	e.LoadMedia(filepath.Join(t.TempDir(), "missing.png"))
	flushUntil(t, m, func() bool { return m.Step() > 0 && b.Surface()[3] == 0 })
	assertSurface(t, b, []byte{0, 0, 0, 0})
}

func TestEngineVideoBeforeInit(t *testing.T) {
	b := soft.New(4, 4)
	e, m := newEngine(t, b, Options{})

	r := &solidReader{frames: 2}
	v, err := inputs.NewVideo(b, r, 0)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return r.reads.Load() >= 2 }, time.Second, time.Millisecond)

	e.SetMedia(v)
	require.NoError(t, e.Init("", []string{imageFrag}, nil))
	flushUntil(t, m, func() bool { return m.Step() > 0 && v.Uploads() == 2 })
	m.Step()
	assertSurface(t, b, []byte{20, 20, 30, 255})

	e.Dispose()
	assert.Nil(t, v.Texture())
}

func TestEngineExportTile(t *testing.T) {
	b := soft.New(40, 40)
	e, _ := newEngine(t, b, Options{})
	_, err := e.ExportTile(0.25, 40, true)
	assert.Error(t, err)

	require.NoError(t, e.Init("", []string{solidFrag}, map[string]any{"u_color": "#0000FF"}))
	e.RenderNow()
	tile, err := e.ExportTile(1.2, 40, true)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 39, 39), tile.Bounds())
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, tile.RGBAAt(20, 20))
}

func TestEngineResizeAndPointer(t *testing.T) {
	b := soft.New(4, 4)
	e, m := newEngine(t, b, Options{})
	require.NoError(t, e.Init("", []string{solidFrag}, nil))

	require.NoError(t, e.Resize(8, 2))
	e.PointerDown(0.5, 0.5)
	e.PointerUp(0.75, 0.25)
	m.Step()
	assert.Equal(t, []float32{8, 2}, value(e.Pipeline(), 0, shader.UniformResolution))
	assert.Equal(t, []float32{0.75, 0.25, -0.5, -0.5}, value(e.Pipeline(), 0, shader.UniformMouse))

	e.SetVisible(false)
	assert.Equal(t, Paused, e.Scheduler().State())
	assert.Equal(t, 0, m.Step())
	e.SetVisible(true)
	assert.Equal(t, 1, m.Step())
}

func TestEngineDispose(t *testing.T) {
	b := soft.New(4, 4)
	e, m := newEngine(t, b, Options{DecodeImage: func(string) (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	}})
	require.NoError(t, e.Init("", []string{imageFrag, solidFrag}, map[string]any{"u_image": "x"}))
	flushUntil(t, m, func() bool { return b.Stats().LiveTextures == 3 })

	e.Dispose()
	e.Dispose()
	st := b.Stats()
	assert.Equal(t, 0, st.LivePrograms)
	assert.Equal(t, 0, st.LiveTextures)
	assert.Equal(t, 0, st.LiveFramebuffers)
	assert.Equal(t, Stopped, e.Scheduler().State())
	assert.Equal(t, 0, m.Step())
	assert.Error(t, e.SetOptions(nil))
	assert.Error(t, e.SetShader("", []string{solidFrag}))
}
