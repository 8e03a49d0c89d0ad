package renderer

import (
	"errors"
	"fmt"
	"image"
	"maps"
	"strings"

	"github.com/richinsley/goshadertexture/backend"
	"github.com/richinsley/goshadertexture/export"
	"github.com/richinsley/goshadertexture/inputs"
	"github.com/richinsley/goshadertexture/logging"
	"github.com/richinsley/goshadertexture/shader"
	"github.com/richinsley/goshadertexture/uniforms"
)

// ErrNoContext is returned when no GPU context could be acquired. It is the
// only condition that prevents an Engine from starting.
var ErrNoContext = errors.New("renderer: no GPU context")

var errDisposed = errors.New("renderer: engine disposed")

type imageSlot struct {
	payload string
	gen     int
	loading bool
	src     inputs.Source
}

// Engine owns one surface: its backend, pipeline, scheduler, media and
// option state. Methods must be called on the dispatcher goroutine; slow
// work such as image decoding runs elsewhere and is posted back.
type Engine struct {
	b       backend.Backend
	d       Dispatcher
	opts    Options
	pointer Pointer
	sched   *Scheduler

	vertex    string
	fragments []string
	pipeline  *Pipeline
	schema    []shader.UniformDescriptor
	config    shader.RenderConfig
	options   map[string]any
	media     inputs.Source
	mediaGen  int
	images    map[string]*imageSlot
	disposed  bool
}

// NewEngine creates an engine drawing through b and scheduling frames on d.
// The engine takes ownership of b.
func NewEngine(b backend.Backend, d Dispatcher, opts Options) (*Engine, error) {
	if b == nil {
		return nil, ErrNoContext
	}
	if d == nil {
		return nil, errors.New("renderer: nil dispatcher")
	}
	e := &Engine{
		b:       b,
		d:       d,
		opts:    opts.withDefaults(),
		options: map[string]any{},
		images:  map[string]*imageSlot{},
	}
	e.sched = NewScheduler(d, e.opts.Now, &e.pointer)
	return e, nil
}

// Backend returns the backend the engine draws through.
func (e *Engine) Backend() backend.Backend { return e.b }

// Scheduler returns the frame scheduler.
func (e *Engine) Scheduler() *Scheduler { return e.sched }

// Pipeline returns the live pipeline, nil before Init.
func (e *Engine) Pipeline() *Pipeline { return e.pipeline }

// Schema returns the option uniforms of the live pipeline.
func (e *Engine) Schema() []shader.UniformDescriptor { return e.schema }

// RenderConfig returns the render configuration comments of the live
// shader.
func (e *Engine) RenderConfig() shader.RenderConfig { return e.config }

// Sources returns the vertex and fragment sources of the live pipeline.
func (e *Engine) Sources() (string, []string) {
	return e.vertex, append([]string(nil), e.fragments...)
}

// Options returns a copy of the current option map.
func (e *Engine) Options() map[string]any { return maps.Clone(e.options) }

// Init builds the pipeline, applies options and starts the scheduler. An
// empty vertexSrc selects shader.DefaultVertexSource.
func (e *Engine) Init(vertexSrc string, fragmentSrcs []string, options map[string]any) error {
	if e.disposed {
		return errDisposed
	}
	if e.pipeline != nil {
		return errors.New("renderer: engine already initialized")
	}
	if err := e.SetShader(vertexSrc, fragmentSrcs); err != nil {
		return err
	}
	optErr := e.SetOptions(options)
	if err := e.sched.Start(e.pipeline, e.media); err != nil {
		return err
	}
	return optErr
}

// SetShader rebuilds the pipeline. On failure the live pipeline is kept and
// the compile or link error returned. On success the current options,
// images and media are applied to the new pipeline.
func (e *Engine) SetShader(vertexSrc string, fragmentSrcs []string) error {
	if e.disposed {
		return errDisposed
	}
	if vertexSrc == "" {
		vertexSrc = shader.DefaultVertexSource()
	}
	p, err := Build(e.b, vertexSrc, fragmentSrcs)
	if err != nil {
		logging.Logger().Warn("shader rebuild failed, keeping previous pipeline", "err", err)
		return err
	}
	if e.pipeline != nil {
		e.pipeline.Dispose()
	}
	e.pipeline = p
	e.vertex = vertexSrc
	e.fragments = append([]string(nil), fragmentSrcs...)
	e.schema = p.Schema()
	e.config = shader.ParseRenderConfig(strings.Join(fragmentSrcs, "\n"))
	p.SetMedia(e.media)
	for name, slot := range e.images {
		if shader.IsReserved(name) {
			continue
		}
		if _, ok := shader.Lookup(e.schema, name); !ok {
			e.dropImage(name)
			continue
		}
		if slot.src != nil {
			if err := p.SetImage(name, slot.src); err != nil {
				logging.Logger().Warn("rebind image", "uniform", name, "err", err)
			}
		}
	}
	if err := e.apply(e.options); err != nil {
		logging.Logger().Warn("options not applicable to new shader", "err", err)
	}
	e.sched.SetPipeline(p)
	return nil
}

// SetOptions replaces the option map.
func (e *Engine) SetOptions(options map[string]any) error {
	if e.disposed {
		return errDisposed
	}
	e.options = maps.Clone(options)
	if e.options == nil {
		e.options = map[string]any{}
	}
	return e.apply(e.options)
}

// OnOptionChanged updates a single option. Uniform updates made before a
// frame starts are visible in that frame.
func (e *Engine) OnOptionChanged(name string, value any) error {
	if e.disposed {
		return errDisposed
	}
	e.options[name] = value
	return e.apply(map[string]any{name: value})
}

func (e *Engine) apply(options map[string]any) error {
	if e.pipeline == nil {
		return nil
	}
	bindings, err := uniforms.Map(e.schema, options)
	if err != nil {
		logging.Logger().Warn("invalid option values dropped", "err", err)
	}
	e.pipeline.ApplyUniforms(bindings)
	for _, b := range bindings {
		ref, ok := b.Value.(uniforms.ImageRef)
		if !ok {
			continue
		}
		if ref.None() {
			e.dropImage(b.Name())
		} else {
			e.loadImage(b.Name(), ref.Payload)
		}
	}
	return err
}

// loadImage decodes payload off the loop and binds the result to the
// sampler called name. Stale decodes are discarded.
func (e *Engine) loadImage(name, payload string) {
	slot := e.images[name]
	if slot == nil {
		slot = &imageSlot{}
		e.images[name] = slot
	}
	if slot.payload == payload {
		return
	}
	slot.payload = payload
	slot.loading = true
	slot.gen++
	gen := slot.gen
	decode := e.opts.DecodeImage
	go func() {
		img, err := decode(payload)
		e.d.Post(func() { e.finishImage(name, gen, img, err) })
	}()
}

func (e *Engine) finishImage(name string, gen int, img image.Image, err error) {
	slot := e.images[name]
	if e.disposed || slot == nil || slot.gen != gen {
		return
	}
	slot.loading = false
	if err != nil {
		logging.Logger().Warn("image decode failed, treated as absent", "uniform", name, "err", err)
		e.releaseImage(name, slot)
		return
	}
	src, err := inputs.NewImage(e.b, img)
	if err != nil {
		logging.Logger().Warn("image upload failed, treated as absent", "uniform", name, "err", err)
		e.releaseImage(name, slot)
		return
	}
	old := slot.src
	slot.src = src
	if e.pipeline != nil {
		if err := e.pipeline.SetImage(name, src); err != nil {
			logging.Logger().Warn("bind image", "uniform", name, "err", err)
		}
	}
	if old != nil {
		old.Destroy()
	}
}

func (e *Engine) releaseImage(name string, slot *imageSlot) {
	if e.pipeline != nil {
		_ = e.pipeline.SetImage(name, nil)
	}
	if slot.src != nil {
		slot.src.Destroy()
		slot.src = nil
	}
}

func (e *Engine) dropImage(name string) {
	slot := e.images[name]
	if slot == nil {
		return
	}
	delete(e.images, name)
	e.releaseImage(name, slot)
}

// Pending returns the number of image options still decoding.
func (e *Engine) Pending() int {
	n := 0
	for _, slot := range e.images {
		if slot.loading {
			n++
		}
	}
	return n
}

// SetMedia replaces the media sampled by pass 0. The engine takes ownership
// of src; nil clears the media.
func (e *Engine) SetMedia(src inputs.Source) {
	if e.disposed {
		if src != nil {
			src.Destroy()
		}
		return
	}
	e.mediaGen++
	old := e.media
	e.media = src
	if e.pipeline != nil {
		e.pipeline.SetMedia(src)
	}
	e.sched.SetMedia(src)
	if old != nil && old != src {
		old.Destroy()
	}
}

// LoadMedia opens a still image or video file off the loop and installs it
// with SetMedia. Failures leave the engine without media.
func (e *Engine) LoadMedia(path string) {
	e.mediaGen++
	gen := e.mediaGen
	decode := e.opts.DecodeImage
	ffopts := e.opts.FFmpeg
	go func() {
		if inputs.KindOfPath(path) == inputs.KindVideo {
			r, err := inputs.OpenFFmpeg(path, ffopts)
			e.d.Post(func() { e.finishVideo(gen, r, err) })
			return
		}
		img, err := decode(path)
		e.d.Post(func() { e.finishMedia(gen, img, err) })
	}()
}

func (e *Engine) finishMedia(gen int, img image.Image, err error) {
	if e.disposed || gen != e.mediaGen {
		return
	}
	if err == nil {
		var src *inputs.Image
		if src, err = inputs.NewImage(e.b, img); err == nil {
			e.SetMedia(src)
			return
		}
	}
	logging.Logger().Warn("media decode failed, treated as absent", "err", err)
	e.SetMedia(nil)
}

func (e *Engine) finishVideo(gen int, r *inputs.FFmpegReader, err error) {
	if e.disposed || gen != e.mediaGen {
		if r != nil {
			_ = r.Close()
		}
		return
	}
	if err == nil {
		var v *inputs.Video
		if v, err = inputs.NewVideo(e.b, r, r.Interval()); err == nil {
			e.SetMedia(v)
			return
		}
		_ = r.Close()
	}
	logging.Logger().Warn("video open failed, treated as absent", "err", err)
	e.SetMedia(nil)
}

// SetVisible pauses or resumes frame production.
func (e *Engine) SetVisible(visible bool) {
	e.sched.SetVisible(visible)
}

// Resize reallocates surface-sized resources.
func (e *Engine) Resize(width, height int) error {
	if e.pipeline == nil {
		return nil
	}
	return e.pipeline.Resize(width, height)
}

// PointerMove, PointerDown and PointerUp take positions normalized to
// [0, 1] from the bottom left of the surface.
func (e *Engine) PointerMove(x, y float32) { e.pointer.Move(x, y) }

func (e *Engine) PointerDown(x, y float32) { e.pointer.Down(x, y) }

func (e *Engine) PointerUp(x, y float32) { e.pointer.Up(x, y) }

// RenderNow draws one frame immediately, outside the scheduler.
func (e *Engine) RenderNow() {
	if e.pipeline == nil {
		return
	}
	if e.media != nil {
		e.media.Update()
	}
	e.pipeline.RenderFrame(e.sched.Clock(), e.pointer.State(), e.media != nil && e.media.Texture() != nil)
}

// ExportTile reads the tileable region of the surface. See export.Tile.
func (e *Engine) ExportTile(noiseScale float64, canvasSize int, periodic bool) (*image.RGBA, error) {
	if e.disposed {
		return nil, errDisposed
	}
	if e.pipeline == nil {
		return nil, errors.New("renderer: engine not initialized")
	}
	tile, err := export.Tile(e.b, noiseScale, canvasSize, periodic)
	if err != nil {
		return nil, fmt.Errorf("export tile: %w", err)
	}
	return tile, nil
}

// Dispose stops the scheduler and releases every GPU resource, including
// the backend. Dispose is idempotent.
func (e *Engine) Dispose() {
	if e.disposed {
		return
	}
	e.sched.Stop()
	if e.pipeline != nil {
		e.pipeline.Dispose()
		e.pipeline = nil
	}
	for name, slot := range e.images {
		e.releaseImage(name, slot)
	}
	e.images = map[string]*imageSlot{}
	if e.media != nil {
		e.media.Destroy()
		e.media = nil
	}
	e.disposed = true
	e.b.Release()
	logging.Logger().Info("engine disposed")
}
