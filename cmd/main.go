package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/richinsley/goshadertexture/backend"
	"github.com/richinsley/goshadertexture/backend/opengl"
	"github.com/richinsley/goshadertexture/backend/soft"
	"github.com/richinsley/goshadertexture/export"
	"github.com/richinsley/goshadertexture/glfwcontext"
	"github.com/richinsley/goshadertexture/headless"
	"github.com/richinsley/goshadertexture/inputs"
	"github.com/richinsley/goshadertexture/logging"
	"github.com/richinsley/goshadertexture/noise"
	"github.com/richinsley/goshadertexture/options"
	"github.com/richinsley/goshadertexture/renderer"
	"github.com/richinsley/goshadertexture/uniforms"
)

func init() {
	runtime.LockOSThread()
}

// surface is the backend together with the context that owns it. win is
// set only for glfw windows.
type surface struct {
	b      backend.Backend
	win    *glfwcontext.Context
	closer func()
}

func (s *surface) close() {
	if s.closer != nil {
		s.closer()
	}
}

func openSurface(cfg *options.Config, visible bool) (*surface, error) {
	w, h := cfg.Surface.Width, cfg.Surface.Height
	switch cfg.Backend {
	case "soft":
		return &surface{b: soft.New(w, h)}, nil
	case "egl":
		ctx, err := headless.New(w, h)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", renderer.ErrNoContext, err)
		}
		b, err := opengl.New(ctx)
		if err != nil {
			ctx.Shutdown()
			return nil, fmt.Errorf("%w: %v", renderer.ErrNoContext, err)
		}
		return &surface{b: b, closer: ctx.Shutdown}, nil
	}

	if err := glfwcontext.InitGraphics(); err != nil {
		return nil, fmt.Errorf("%w: %v", renderer.ErrNoContext, err)
	}
	ctx, err := glfwcontext.New(glfwcontext.Options{Width: w, Height: h, Visible: visible})
	if err != nil {
		glfwcontext.TerminateGraphics()
		return nil, fmt.Errorf("%w: %v", renderer.ErrNoContext, err)
	}
	closer := func() {
		ctx.Shutdown()
		glfwcontext.TerminateGraphics()
	}
	b, err := opengl.New(ctx)
	if err != nil {
		closer()
		return nil, fmt.Errorf("%w: %v", renderer.ErrNoContext, err)
	}
	return &surface{b: b, win: ctx, closer: closer}, nil
}

// program is what the engine runs: the shader sources and the uniform
// option map derived from the config.
type program struct {
	vertex    string
	fragments []string
	options   map[string]any
	periodic  bool
	scale     float64
}

func loadProgram(cfg *options.Config) (*program, error) {
	if cfg.Custom() {
		p := &program{options: cfg.Options, scale: cfg.Export.NoiseScale}
		if cfg.Shader.Vertex != "" {
			data, err := os.ReadFile(cfg.Shader.Vertex)
			if err != nil {
				return nil, fmt.Errorf("reading vertex shader: %w", err)
			}
			p.vertex = string(data)
		}
		for _, path := range cfg.Shader.Fragments {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading fragment shader: %w", err)
			}
			p.fragments = append(p.fragments, string(data))
		}
		return p, nil
	}

	kind := cfg.Pattern.Kind
	designer := map[string]any{"shape": cfg.Pattern.Shape}
	for k, v := range cfg.Options {
		designer[k] = v
	}
	src, err := noise.FragmentSource(kind, designer)
	if err != nil {
		return nil, err
	}
	p := &program{
		fragments: []string{src},
		options: noise.ToOptions(kind, designer, noise.Settings{
			Resolution: cfg.Surface.Width,
			AAPasses:   cfg.Pattern.AAPasses,
			Seed:       cfg.Pattern.Seed,
		}),
		periodic: noise.IsPeriodic(kind),
		scale:    cfg.Export.NoiseScale,
	}
	if p.scale == 0 {
		defaults, _ := noise.DefaultOptions(kind)
		if size, ok := uniforms.Number(designer["size"]); ok {
			p.scale = size
		} else if size, ok := uniforms.Number(defaults["size"]); ok {
			p.scale = size
		}
	}
	return p, nil
}

func openMedia(b backend.Backend, cfg *options.Config) (inputs.Source, error) {
	if inputs.KindOfPath(cfg.Media) == inputs.KindVideo {
		r, err := inputs.OpenFFmpeg(cfg.Media, inputs.FFmpegOptions{FFmpegPath: cfg.FFmpeg, Loop: true})
		if err != nil {
			return nil, err
		}
		v, err := inputs.NewVideo(b, r, r.Interval())
		if err != nil {
			r.Close()
			return nil, err
		}
		return v, nil
	}
	img, err := inputs.DecodePayload(cfg.Media)
	if err != nil {
		return nil, err
	}
	return inputs.NewImage(b, img)
}

// waitImages hands posted decode results to the engine until none are
// outstanding.
func waitImages(e *renderer.Engine, m *renderer.ManualRequester) {
	for e.Pending() > 0 {
		if m.Flush() == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}

func render(cfg *options.Config) error {
	prog, err := loadProgram(cfg)
	if err != nil {
		return err
	}
	surf, err := openSurface(cfg, false)
	if err != nil {
		return err
	}
	defer surf.close()

	// Offline frames advance the clock by exactly one frame interval.
	start := time.Now()
	frame := 0
	dt := time.Second / time.Duration(cfg.Surface.FPS)
	now := func() time.Time { return start.Add(time.Duration(frame) * dt) }

	m := &renderer.ManualRequester{}
	e, err := renderer.NewEngine(surf.b, m, renderer.Options{
		Now:    now,
		FFmpeg: inputs.FFmpegOptions{FFmpegPath: cfg.FFmpeg},
	})
	if err != nil {
		return err
	}
	defer e.Dispose()

	if err := e.Init(prog.vertex, prog.fragments, prog.options); err != nil {
		if e.Pipeline() == nil {
			return err
		}
		logging.Logger().Warn("some options were ignored", "err", err)
	}
	if cfg.Media != "" {
		src, err := openMedia(surf.b, cfg)
		if err != nil {
			logging.Logger().Warn("media unavailable", "path", cfg.Media, "err", err)
		} else {
			e.SetMedia(src)
		}
	}
	waitImages(e, m)

	frames := max(cfg.Frames, 1)
	var rec *export.Recorder
	if cfg.Export.Video != "" {
		rec, err = export.NewRecorder(export.RecorderOptions{
			Width:      cfg.Surface.Width,
			Height:     cfg.Surface.Height,
			FPS:        cfg.Surface.FPS,
			Output:     cfg.Export.Video,
			Codec:      cfg.Export.Codec,
			FFmpegPath: cfg.FFmpeg,
		})
		if err != nil {
			return err
		}
		frames = max(frames, int(cfg.Export.VideoSeconds*float64(cfg.Surface.FPS)))
	}

	for ; frame < frames; frame++ {
		m.Step()
		if rec != nil {
			if err := rec.WriteFrame(surf.b); err != nil {
				rec.Close()
				return err
			}
		}
	}
	if rec != nil {
		if err := rec.Close(); err != nil {
			return fmt.Errorf("recording %s: %w", cfg.Export.Video, err)
		}
		fmt.Printf("wrote %s (%d frames)\n", cfg.Export.Video, rec.Frames())
	}
	return writeTile(e, cfg, prog)
}

func writeTile(e *renderer.Engine, cfg *options.Config, prog *program) error {
	if cfg.Export.Tile == "" && cfg.Export.Thumbnail == "" {
		return nil
	}
	tile, err := e.ExportTile(prog.scale, cfg.Surface.Width, prog.periodic)
	if err != nil {
		return err
	}
	if cfg.Export.Tile != "" {
		if err := export.WritePNG(cfg.Export.Tile, tile); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%dx%d)\n", cfg.Export.Tile, tile.Rect.Dx(), tile.Rect.Dy())
	}
	if cfg.Export.Thumbnail != "" {
		thumb := export.Thumbnail(tile, cfg.Export.ThumbnailWidth)
		if err := export.WritePNG(cfg.Export.Thumbnail, thumb); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", cfg.Export.Thumbnail)
	}
	return nil
}

// overrides are the flags that replace values of the loaded config.
type overrides struct {
	verbose    *bool
	soft       *bool
	backend    *string
	kind       *string
	shape      *string
	frag       *string
	media      *string
	frames     *int
	width      *int
	height     *int
	tile       *string
	thumbnail  *string
	video      *string
	ffmpegPath *string
}

func newOverrides(fs *flag.FlagSet) *overrides {
	return &overrides{
		verbose:    fs.Bool("v", false, "Debug logging"),
		soft:       fs.Bool("soft", false, "Shorthand for -backend soft"),
		backend:    fs.String("backend", "", "Backend: "+strings.Join(options.Backends, ", ")),
		kind:       fs.String("kind", "", "Built-in pattern: "+strings.Join(noise.Kinds(), ", ")),
		shape:      fs.String("shape", "", "Shape of the random pattern: "+strings.Join(noise.Shapes, ", ")),
		frag:       fs.String("frag", "", "Comma separated fragment shader files, one per pass"),
		media:      fs.String("media", "", "Image or video sampled by the first pass"),
		frames:     fs.Int("frames", 0, "Frames to render before exporting"),
		width:      fs.Int("width", 0, "Surface width"),
		height:     fs.Int("height", 0, "Surface height"),
		tile:       fs.String("tile", "", "Output PNG for the tileable texture"),
		thumbnail:  fs.String("thumbnail", "", "Output PNG for the thumbnail"),
		video:      fs.String("video", "", "Record the surface to this video file"),
		ffmpegPath: fs.String("ffmpeg", "", "Path to ffmpeg executable"),
	}
}

// apply copies the flags given on the command line into cfg.
func (o *overrides) apply(fs *flag.FlagSet, cfg *options.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			if *o.verbose {
				cfg.LogLevel = "debug"
			}
		case "soft":
			if *o.soft {
				cfg.Backend = "soft"
			}
		case "backend":
			cfg.Backend = *o.backend
		case "kind":
			cfg.Pattern.Kind = *o.kind
		case "shape":
			cfg.Pattern.Shape = *o.shape
		case "frag":
			cfg.Shader.Fragments = strings.Split(*o.frag, ",")
		case "media":
			cfg.Media = *o.media
		case "frames":
			cfg.Frames = *o.frames
		case "width":
			cfg.Surface.Width = *o.width
		case "height":
			cfg.Surface.Height = *o.height
		case "tile":
			cfg.Export.Tile = *o.tile
		case "thumbnail":
			cfg.Export.Thumbnail = *o.thumbnail
		case "video":
			cfg.Export.Video = *o.video
		case "ffmpeg":
			cfg.FFmpeg = *o.ffmpegPath
		}
	})
}

func main() {
	var configPath = flag.String("config", "", "YAML config file (embedded defaults when empty)")
	var help = flag.Bool("help", false, "Show help message")
	var printConfig = flag.Bool("print-config", false, "Print the effective config and exit")
	var watch = flag.Bool("watch", false, "Show a window and rebuild when shader files change")
	ov := newOverrides(flag.CommandLine)

	flag.Parse()

	if *help {
		fmt.Println("Procedural texture renderer")
		flag.PrintDefaults()
		return
	}

	cfg, err := options.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	ov.apply(flag.CommandLine, cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *printConfig {
		data, err := cfg.Marshal()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		return
	}

	level, _ := cfg.Level()
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *watch {
		err = runWatch(cfg)
	} else {
		err = render(cfg)
	}
	if err != nil {
		if errors.Is(err, renderer.ErrNoContext) {
			logging.Logger().Error("no GPU context, try -backend egl or -soft", "err", err)
		} else {
			logging.Logger().Error("render failed", "err", err)
		}
		os.Exit(1)
	}
}
