package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/richinsley/goshadertexture/backend"
	"github.com/richinsley/goshadertexture/logging"
)

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	Width  int
	Height int
	FPS    int
	Output string
	// Codec is "h264", "hevc" or "vp9". Empty picks vp9 for .webm outputs
	// and h264 otherwise.
	Codec      string
	FFmpegPath string
}

func (o RecorderOptions) outputArgs() ffmpeg.KwArgs {
	ext := strings.ToLower(filepath.Ext(o.Output))
	codec := o.Codec
	if codec == "" {
		codec = "h264"
		if ext == ".webm" {
			codec = "vp9"
		}
	}
	args := ffmpeg.KwArgs{"pix_fmt": "yuv420p"}
	switch codec {
	case "hevc":
		args["c:v"] = "libx265"
		if ext == ".mp4" {
			args["tag:v"] = "hvc1"
		}
	case "vp9":
		args["c:v"] = "libvpx-vp9"
		args["b:v"] = "0"
		args["crf"] = "30"
	default:
		args["c:v"] = "libx264"
	}
	return args
}

// Recorder streams surface frames to an ffmpeg process as raw RGBA.
type Recorder struct {
	opts   RecorderOptions
	pw     *io.PipeWriter
	errc   chan error
	pixels []byte
	frames int
	closed bool
}

// NewRecorder starts ffmpeg writing to opts.Output.
func NewRecorder(opts RecorderOptions) (*Recorder, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("export: invalid recording size %dx%d", opts.Width, opts.Height)
	}
	if opts.Output == "" {
		return nil, errors.New("export: recording needs an output file")
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}

	pr, pw := io.Pipe()
	inputArgs := ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"r":       opts.FPS,
	}
	cmd := ffmpeg.Input("pipe:", inputArgs).
		Output(opts.Output, opts.outputArgs()).
		OverWriteOutput().WithInput(pr).ErrorToStdOut()
	if opts.FFmpegPath != "" {
		cmd = cmd.SetFfmpegPath(opts.FFmpegPath)
	}

	r := &Recorder{
		opts:   opts,
		pw:     pw,
		errc:   make(chan error, 1),
		pixels: make([]byte, opts.Width*opts.Height*4),
	}
	go func() {
		err := cmd.Run()
		pr.CloseWithError(err)
		r.errc <- err
	}()
	logging.Logger().Info("recording started", "output", opts.Output, "width", opts.Width, "height", opts.Height, "fps", opts.FPS)
	return r, nil
}

// Frames returns the number of frames written.
func (r *Recorder) Frames() int { return r.frames }

// WriteFrame reads the bottom-left Width x Height region of the surface
// and appends it to the recording.
func (r *Recorder) WriteFrame(b backend.Backend) error {
	if r.closed {
		return errors.New("export: recorder closed")
	}
	b.BindFramebuffer(nil)
	if err := b.ReadPixels(0, 0, r.opts.Width, r.opts.Height, r.pixels); err != nil {
		return fmt.Errorf("export: read frame: %w", err)
	}
	return r.write(r.pixels)
}

// write sends one bottom-up RGBA frame, top row first.
func (r *Recorder) write(pixels []byte) error {
	row := r.opts.Width * 4
	for y := r.opts.Height - 1; y >= 0; y-- {
		if _, err := r.pw.Write(pixels[y*row : (y+1)*row]); err != nil {
			return fmt.Errorf("export: write frame %d: %w", r.frames, err)
		}
	}
	r.frames++
	return nil
}

// Close finishes the recording and waits for ffmpeg to exit.
func (r *Recorder) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.pw.Close()
	err := <-r.errc
	logging.Logger().Info("recording finished", "output", r.opts.Output, "frames", r.frames, "err", err)
	return err
}
