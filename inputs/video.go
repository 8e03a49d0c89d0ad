package inputs

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/richinsley/goshadertexture/backend"
	"github.com/richinsley/goshadertexture/logging"
)

// FrameReader yields decoded video frames in order. ReadFrame returns
// io.EOF after the last frame.
type FrameReader interface {
	Size() (width, height int)
	ReadFrame() (*image.RGBA, error)
	Close() error
}

// Video uploads frames produced by a FrameReader. Decoding runs on its own
// goroutine and holds at most one frame ahead of the uploader, so every
// decoded frame is uploaded by exactly one Update call.
type Video struct {
	b      backend.Backend
	r      FrameReader
	tex    backend.Texture
	width  int
	height int

	frames   chan *image.RGBA
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	subs    map[int]func()
	nextSub int
	err     error
	uploads int
}

var (
	_ Source        = (*Video)(nil)
	_ FrameNotifier = (*Video)(nil)
)

// NewVideo starts decoding from r. interval paces decoding to the media
// frame rate; zero decodes as fast as frames are consumed.
func NewVideo(b backend.Backend, r FrameReader, interval time.Duration) (*Video, error) {
	w, h := r.Size()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: invalid video size %dx%d", ErrDecode, w, h)
	}
	tex, err := b.NewTexture(w, h)
	if err != nil {
		return nil, fmt.Errorf("create video texture: %w", err)
	}
	v := &Video{
		b:      b,
		r:      r,
		tex:    tex,
		width:  w,
		height: h,
		frames: make(chan *image.RGBA, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		subs:   make(map[int]func()),
	}
	go v.decode(interval)
	return v, nil
}

func (v *Video) decode(interval time.Duration) {
	defer close(v.done)
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		img, err := v.r.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w: %w", ErrDecode, err)
				logging.Logger().Warn("video decode stopped", "err", err)
				v.mu.Lock()
				v.err = err
				v.mu.Unlock()
			}
			return
		}
		if tick != nil {
			select {
			case <-tick:
			case <-v.stop:
				return
			}
		}
		select {
		case v.frames <- img:
		case <-v.stop:
			return
		}
		v.notify()
	}
}

func (v *Video) notify() {
	v.mu.Lock()
	fns := make([]func(), 0, len(v.subs))
	for _, fn := range v.subs {
		fns = append(fns, fn)
	}
	v.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// OnFrame registers fn to run after each frame is handed over.
func (v *Video) OnFrame(fn func()) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextSub
	v.nextSub++
	v.subs[id] = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.subs, id)
	}
}

// Texture returns nil until the first frame is uploaded, so a video that
// fails before producing a frame is treated as absent.
func (v *Video) Texture() backend.Texture {
	if v.uploads == 0 {
		return nil
	}
	return v.tex
}

func (v *Video) Resolution() (int, int) { return v.width, v.height }

// Update uploads the next decoded frame if one is waiting.
func (v *Video) Update() bool {
	if v.tex == nil {
		return false
	}
	select {
	case img := <-v.frames:
		v.tex.Upload(img)
		v.uploads++
		return true
	default:
		return false
	}
}

// Uploads returns how many frames were uploaded.
func (v *Video) Uploads() int { return v.uploads }

// Done is closed when decoding has finished.
func (v *Video) Done() <-chan struct{} { return v.done }

// Err returns the decoding error, if decoding failed.
func (v *Video) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *Video) Destroy() {
	v.stopOnce.Do(func() {
		close(v.stop)
		v.mu.Lock()
		v.subs = map[int]func(){}
		v.mu.Unlock()
		if err := v.r.Close(); err != nil {
			logging.Logger().Debug("video reader close", "err", err)
		}
		if v.tex != nil {
			v.tex.Release()
			v.tex = nil
		}
	})
}
