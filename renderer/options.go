package renderer

import (
	"image"
	"time"

	"github.com/richinsley/goshadertexture/inputs"
)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	// Now is the clock behind u_time. Defaults to time.Now.
	Now func() time.Time
	// DecodeImage decodes image option payloads off the frame loop.
	// Defaults to inputs.DecodePayload.
	DecodeImage func(payload string) (image.Image, error)
	// FFmpeg configures video media sources.
	FFmpeg inputs.FFmpegOptions
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.DecodeImage == nil {
		o.DecodeImage = inputs.DecodePayload
	}
	return o
}
