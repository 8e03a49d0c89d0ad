package inputs

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeDataURL(t *testing.T) {
	data := encodePNG(t, 3, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	url := EncodeDataURL(data)
	assert.Contains(t, url, "data:image/png;base64,")

	img, err := DecodePayload(url)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, []uint32{10, 20, 30}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, 4, 4, color.RGBA{A: 255}), 0o644))

	img, err := DecodePayload(path)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, KindImage, KindOfPath(path))
	assert.Equal(t, KindVideo, KindOfPath("clip.WebM"))
}

func TestDecodeFailures(t *testing.T) {
	for name, payload := range map[string]string{
		"not base64":   "data:image/png,abc",
		"bad base64":   "data:image/png;base64,!!!",
		"garbage":      EncodeDataURL([]byte("definitely not an image")),
		"missing file": filepath.Join(t.TempDir(), "nope.png"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePayload(payload)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}

	_, err := DecodeBytes(nil)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestSniff(t *testing.T) {
	assert.Equal(t, KindImage, Sniff(encodePNG(t, 1, 1, color.RGBA{})))
	assert.Equal(t, KindUnknown, Sniff([]byte("hello")))
	assert.Equal(t, "video", KindVideo.String())
}

func TestFrameInterval(t *testing.T) {
	assert.InDelta(t, 33366666, int64(frameInterval("30000/1001")), 1)
	assert.EqualValues(t, 40_000_000, frameInterval("25/1"))
	assert.EqualValues(t, 0, frameInterval("0/0"))
	assert.EqualValues(t, 0, frameInterval(""))
}
