package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	glfw "github.com/go-gl/glfw/v3.3/glfw"

	"github.com/richinsley/goshadertexture/graphics"
	"github.com/richinsley/goshadertexture/inputs"
	"github.com/richinsley/goshadertexture/logging"
	"github.com/richinsley/goshadertexture/options"
	"github.com/richinsley/goshadertexture/renderer"
)

const reloadDelay = 100 * time.Millisecond

// watchFiles calls reload once the files in paths stop changing. Whole
// directories are watched so editors that replace files are seen.
func watchFiles(ctx context.Context, w *fsnotify.Watcher, paths []string, reload func()) {
	wanted := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		wanted[abs] = true
	}
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !wanted[abs] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logging.Logger().Debug("shader changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.AfterFunc(reloadDelay, reload)
			} else {
				timer.Reset(reloadDelay)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logging.Logger().Warn("watcher error", "err", err)
		}
	}
}

// runWatch renders continuously in a window and rebuilds the pipeline when
// a shader file changes. A failed rebuild keeps the last good pipeline.
// Without a window the tile is rewritten after every rebuild instead.
func runWatch(cfg *options.Config) error {
	prog, err := loadProgram(cfg)
	if err != nil {
		return err
	}
	surf, err := openSurface(cfg, true)
	if err != nil {
		return err
	}
	defer surf.close()

	loop := renderer.NewLoop(cfg.Surface.FPS)
	e, err := renderer.NewEngine(surf.b, loop, renderer.Options{
		FFmpeg: inputs.FFmpegOptions{FFmpegPath: cfg.FFmpeg, Loop: true},
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
		e.LoadMedia(cfg.Media)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	saveTile := func() {
		if err := writeTile(e, cfg, prog); err != nil {
			logging.Logger().Warn("export failed", "err", err)
		}
	}
	if surf.win != nil {
		surf.win.SetEvents(graphics.Events{
			PointerMove: e.PointerMove,
			PointerDown: e.PointerDown,
			PointerUp:   e.PointerUp,
			Visibility:  e.SetVisible,
			Resize: func(width, height int) {
				if err := e.Resize(width, height); err != nil {
					logging.Logger().Warn("resize failed", "err", err)
				}
			},
			Close: cancel,
		})
		surf.win.RegisterKeyCallback(glfw.KeyS, saveTile)
		loop.AfterTick = func() {
			surf.win.EndFrame()
			if surf.win.ShouldClose() {
				cancel()
			}
		}
	}

	reload := func() {
		p, err := loadProgram(cfg)
		if err != nil {
			logging.Logger().Warn("reload failed", "err", err)
			return
		}
		if err := e.SetShader(p.vertex, p.fragments); err != nil {
			logging.Logger().Warn("rebuild failed, keeping last good shader", "err", err)
			return
		}
		prog = p
		logging.Logger().Info("shader reloaded", "passes", len(p.fragments))
		if surf.win == nil {
			e.RenderNow()
			saveTile()
		}
	}

	paths := append([]string(nil), cfg.Shader.Fragments...)
	if cfg.Shader.Vertex != "" {
		paths = append(paths, cfg.Shader.Vertex)
	}
	if len(paths) == 0 {
		logging.Logger().Info("built-in pattern, nothing to watch")
	} else {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer w.Close()
		dirs := map[string]bool{}
		for _, p := range paths {
			dir := filepath.Dir(p)
			if dirs[dir] {
				continue
			}
			dirs[dir] = true
			if err := w.Add(dir); err != nil {
				return err
			}
		}
		go watchFiles(ctx, w, paths, func() { loop.Post(reload) })
	}

	if surf.win == nil {
		e.RenderNow()
		saveTile()
	}
	if err := loop.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
