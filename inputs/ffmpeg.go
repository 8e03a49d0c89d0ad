package inputs

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/richinsley/goshadertexture/logging"
)

// FFmpegOptions configures FFmpegReader.
type FFmpegOptions struct {
	FFmpegPath string
	Loop       bool
}

// FFmpegReader decodes a video file to raw RGBA frames with an ffmpeg
// process writing into a pipe.
type FFmpegReader struct {
	width    int
	height   int
	interval time.Duration
	pr       *io.PipeReader
	errc     chan error
}

var _ FrameReader = (*FFmpegReader)(nil)

type probeResult struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
	} `json:"streams"`
}

// ProbeVideo returns the size and frame interval of the first video stream.
func ProbeVideo(path string) (width, height int, interval time.Duration, err error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: probe %s: %w", ErrDecode, path, err)
	}
	var res probeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: parse probe output: %w", ErrDecode, err)
	}
	for _, s := range res.Streams {
		if s.CodecType != "video" {
			continue
		}
		rate := s.AvgFrameRate
		if rate == "" || rate == "0/0" {
			rate = s.RFrameRate
		}
		return s.Width, s.Height, frameInterval(rate), nil
	}
	return 0, 0, 0, fmt.Errorf("%w: %s has no video stream", ErrDecode, path)
}

// frameInterval parses an ffprobe rate such as "30000/1001".
func frameInterval(rate string) time.Duration {
	num, den, ok := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil || n <= 0 {
		return 0
	}
	d := 1.0
	if ok {
		if d, err = strconv.ParseFloat(den, 64); err != nil || d <= 0 {
			return 0
		}
	}
	return time.Duration(float64(time.Second) * d / n)
}

// OpenFFmpeg probes path and starts decoding it.
func OpenFFmpeg(path string, opts FFmpegOptions) (*FFmpegReader, error) {
	w, h, interval, err := ProbeVideo(path)
	if err != nil {
		return nil, err
	}

	inputArgs := ffmpeg.KwArgs{}
	if opts.Loop {
		inputArgs["stream_loop"] = "-1"
	}
	pr, pw := io.Pipe()
	cmd := ffmpeg.Input(path, inputArgs).
		Output("pipe:", ffmpeg.KwArgs{"format": "rawvideo", "pix_fmt": "rgba"}).
		WithOutput(pw).
		ErrorToStdOut()
	if opts.FFmpegPath != "" {
		cmd = cmd.SetFfmpegPath(opts.FFmpegPath)
	}

	r := &FFmpegReader{width: w, height: h, interval: interval, pr: pr, errc: make(chan error, 1)}
	go func() {
		err := cmd.Run()
		if err != nil {
			logging.Logger().Debug("ffmpeg decode finished", "path", path, "err", err)
		}
		pw.CloseWithError(err)
		r.errc <- err
	}()
	logging.Logger().Info("video opened", "path", path, "width", w, "height", h, "interval", interval)
	return r, nil
}

func (r *FFmpegReader) Size() (int, int) { return r.width, r.height }

// Interval is the probed duration of one frame, 0 when unknown.
func (r *FFmpegReader) Interval() time.Duration { return r.interval }

func (r *FFmpegReader) ReadFrame() (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	if _, err := io.ReadFull(r.pr, img.Pix); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return nil, err
	}
	return img, nil
}

// Close stops reading; ffmpeg exits on the broken pipe.
func (r *FFmpegReader) Close() error {
	return r.pr.Close()
}
