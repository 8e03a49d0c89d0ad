package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/goshadertexture/backend/soft"
	"github.com/richinsley/goshadertexture/shader"
)

const uvSource = `#version 300 es
#pragma kernel uv
precision highp float;
in vec2 v_tex_coord;
out vec4 outColor;
void main() { outColor = vec4(v_tex_coord, 0.0, 1.0); }
`

func drawUV(t *testing.T, w, h int) *soft.Backend {
	t.Helper()
	b := soft.New(w, h)
	p, err := b.NewProgram(shader.DefaultVertexSource(), uvSource)
	require.NoError(t, err)
	b.BindProgram(p)
	b.DrawQuad()
	return b
}

func TestTileSize(t *testing.T) {
	tests := []struct {
		scale    float64
		canvas   int
		periodic bool
		fragment int
		tile     int
	}{
		{0.25, 1024, true, 16, 1024},
		{0.3, 1000, true, 19, 988},
		{0.3, 1000, false, 19, 1000},
		{0, 64, true, 1, 64},
		{1.2, 40, true, 3, 39},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.fragment, FragmentSize(tt.scale, tt.canvas), "fragment %v/%d", tt.scale, tt.canvas)
		assert.Equal(t, tt.tile, TileSize(tt.scale, tt.canvas, tt.periodic), "tile %v/%d", tt.scale, tt.canvas)
	}
}

func TestTileOrientation(t *testing.T) {
	b := drawUV(t, 40, 40)

	img, err := Tile(b, 1.2, 40, true)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 39, 39), img.Bounds())

	// Row 0 of the tile is surface row 38.
	top := img.RGBAAt(0, 0)
	assert.Equal(t, color.RGBA{3, 245, 0, 255}, top)
	bottom := img.RGBAAt(0, 38)
	assert.Equal(t, color.RGBA{3, 3, 0, 255}, bottom)
}

func TestTileDeterministic(t *testing.T) {
	b := drawUV(t, 32, 32)
	a, err := Tile(b, 0.5, 32, false)
	require.NoError(t, err)
	c, err := Tile(b, 0.5, 32, false)
	require.NoError(t, err)
	assert.Equal(t, a.Pix, c.Pix)
}

func TestTileClampsToSurface(t *testing.T) {
	b := drawUV(t, 20, 10)
	img, err := Tile(b, 0.25, 64, false)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 10), img.Bounds())

	_, err = Tile(b, 0.25, 0, true)
	assert.Error(t, err)
}

func TestTileScaleLargerThanCanvas(t *testing.T) {
	assert.Equal(t, 20, FragmentSize(20, 16))
	assert.Zero(t, TileSize(20, 16, true))

	b := drawUV(t, 16, 16)
	_, err := Tile(b, 20, 16, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no whole repeat unit")
	assert.NotContains(t, err.Error(), "no area")
}

func TestThumbnail(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 256, 128))
	for i := range src.Pix {
		src.Pix[i] = 200
	}

	thumb := Thumbnail(src, 0)
	assert.Equal(t, image.Rect(0, 0, DefaultThumbnailWidth, 64), thumb.Bounds())
	assert.InDelta(t, 200, int(thumb.RGBAAt(10, 10).R), 1)

	assert.Equal(t, image.Rect(0, 0, 32, 16), Thumbnail(src, 32).Bounds())
	assert.Equal(t, image.Rect(0, 0, 8, 1), Thumbnail(image.NewRGBA(image.Rect(0, 0, 100, 1)), 8).Bounds())
}

func TestEncodePNG(t *testing.T) {
	b := drawUV(t, 8, 8)
	img, err := Tile(b, 1, 8, false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, img))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
	assert.Equal(t, color.NRGBAModel.Convert(img.At(3, 4)), color.NRGBAModel.Convert(decoded.At(3, 4)))
}

func TestRecorderCodec(t *testing.T) {
	args := RecorderOptions{Output: "out.webm"}.outputArgs()
	assert.Equal(t, "libvpx-vp9", args["c:v"])

	args = RecorderOptions{Output: "out.mp4", Codec: "hevc"}.outputArgs()
	assert.Equal(t, "libx265", args["c:v"])
	assert.Equal(t, "hvc1", args["tag:v"])

	args = RecorderOptions{Output: "out.mkv"}.outputArgs()
	assert.Equal(t, "libx264", args["c:v"])
	assert.Equal(t, "yuv420p", args["pix_fmt"])
}

func TestRecorderWritesTopRowFirst(t *testing.T) {
	pr, pw := io.Pipe()
	r := &Recorder{opts: RecorderOptions{Width: 2, Height: 2}, pw: pw, errc: make(chan error, 1)}

	got := make(chan []byte, 1)
	go func() {
		data, _ := io.ReadAll(pr)
		got <- data
	}()

	bottomUp := []byte{
		1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4,
	}
	require.NoError(t, r.write(bottomUp))
	assert.Equal(t, 1, r.Frames())
	r.errc <- nil
	require.NoError(t, r.Close())

	assert.Equal(t, []byte{
		3, 3, 3, 3, 4, 4, 4, 4,
		1, 1, 1, 1, 2, 2, 2, 2,
	}, <-got)
	assert.Error(t, r.WriteFrame(soft.New(2, 2)))
}

func TestNewRecorderValidates(t *testing.T) {
	_, err := NewRecorder(RecorderOptions{Output: "x.mp4"})
	assert.Error(t, err)
	_, err = NewRecorder(RecorderOptions{Width: 2, Height: 2})
	assert.Error(t, err)
}
