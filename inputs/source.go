package inputs

import (
	"errors"

	"github.com/richinsley/goshadertexture/backend"
)

// ErrDecode is wrapped by every media decoding failure.
var ErrDecode = errors.New("media decode failed")

// Source is a media input that owns the texture sampled by the first pass.
// Methods other than OnFrame must be called on the goroutine that owns the
// backend.
type Source interface {
	// Texture returns the current texture, nil until the first upload.
	Texture() backend.Texture
	// Resolution is the media size in pixels.
	Resolution() (width, height int)
	// Update uploads a pending frame, if any, and reports whether it did.
	Update() bool
	Destroy()
}

// FrameNotifier is implemented by sources that produce new frames over time.
type FrameNotifier interface {
	// OnFrame registers fn to be called, from any goroutine, when a new
	// frame is ready for Update. The returned func unsubscribes.
	OnFrame(fn func()) (cancel func())
}
