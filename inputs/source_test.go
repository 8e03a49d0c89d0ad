package inputs

import (
	"errors"
	"image"
	"image/color"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/goshadertexture/backend/soft"
)

func TestImageUploadsOnce(t *testing.T) {
	b := soft.New(2, 2)
	src := image.NewNRGBA(image.Rect(0, 0, 5, 3))
	img, err := NewImage(b, src)
	require.NoError(t, err)

	w, h := img.Resolution()
	assert.Equal(t, []int{5, 3}, []int{w, h})
	assert.False(t, img.Update())
	assert.False(t, img.Update())
	assert.Equal(t, 1, img.Uploads())
	assert.Equal(t, 1, b.Stats().LiveTextures)

	img.Destroy()
	img.Destroy()
	assert.Nil(t, img.Texture())
	assert.Equal(t, 0, b.Stats().LiveTextures)
}

func TestImageRejectsEmpty(t *testing.T) {
	_, err := NewImage(soft.New(1, 1), image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrDecode)
}

type fakeReader struct {
	frames int
	read   int
	err    error
	closed atomic.Bool
}

func (f *fakeReader) Size() (int, int) { return 2, 2 }

func (f *fakeReader) ReadFrame() (*image.RGBA, error) {
	if f.read == f.frames {
		if f.err != nil {
			return nil, f.err
		}
		return nil, io.EOF
	}
	f.read++
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{R: uint8(f.read), A: 255})
	return img, nil
}

func (f *fakeReader) Close() error {
	f.closed.Store(true)
	return nil
}

func TestVideoUploadsEachFrameOnce(t *testing.T) {
	b := soft.New(2, 2)
	r := &fakeReader{frames: 3}
	v, err := NewVideo(b, r, 0)
	require.NoError(t, err)
	defer v.Destroy()
	assert.Nil(t, v.Texture())

	var notified atomic.Int32
	v.OnFrame(func() { notified.Add(1) })

	require.Eventually(t, func() bool {
		v.Update()
		return v.Uploads() == 3
	}, time.Second, time.Millisecond)
	assert.NotNil(t, v.Texture())

	<-v.Done()
	assert.False(t, v.Update())
	assert.Equal(t, 3, v.Uploads())
	assert.NoError(t, v.Err())
	assert.LessOrEqual(t, notified.Load(), int32(3))
}

func TestVideoDecodeError(t *testing.T) {
	b := soft.New(2, 2)
	v, err := NewVideo(b, &fakeReader{err: errors.New("corrupt stream")}, 0)
	require.NoError(t, err)
	defer v.Destroy()

	<-v.Done()
	assert.ErrorIs(t, v.Err(), ErrDecode)
	assert.False(t, v.Update())
	assert.Nil(t, v.Texture())
	assert.Equal(t, 1, b.Stats().LiveTextures)
}

func TestVideoDestroy(t *testing.T) {
	b := soft.New(2, 2)
	r := &fakeReader{frames: 100}
	v, err := NewVideo(b, r, 0)
	require.NoError(t, err)

	cancel := v.OnFrame(func() {})
	cancel()

	v.Destroy()
	v.Destroy()
	<-v.Done()
	assert.True(t, r.closed.Load())
	assert.Nil(t, v.Texture())
	assert.False(t, v.Update())
	assert.Equal(t, 0, b.Stats().LiveTextures)
}
