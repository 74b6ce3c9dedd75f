package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Carmen-Shannon/shaderview/common"
	"github.com/Carmen-Shannon/shaderview/engine/config"
	"github.com/Carmen-Shannon/shaderview/engine/profiler"
	"github.com/Carmen-Shannon/shaderview/engine/program"
	"github.com/Carmen-Shannon/shaderview/engine/program/compiler"
	"github.com/Carmen-Shannon/shaderview/engine/program/hotswap"
	"github.com/Carmen-Shannon/shaderview/engine/program/watcher"
	"github.com/Carmen-Shannon/shaderview/engine/renderer"
	"github.com/Carmen-Shannon/shaderview/engine/window"
)

// engine implements the Engine interface.
// Owns the window thread and the watcher, compiler and coordinator goroutines.
type engine struct {
	shaderPath string
	config     *config.Config
	logger     *slog.Logger
	now        func() time.Time

	window   window.Window
	renderer renderer.Renderer

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once
}

// Engine is the main entry point for the preview.
// It runs the reload pipeline in background goroutines and the render loop on the calling thread.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer drawing the active Program.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Run starts the watcher, compiler and coordinator, then runs the window message loop on
	// the calling thread, rendering one frame per iteration. It blocks until the window is
	// closed, ctx is cancelled, or a pipeline goroutine fails. Every goroutine has stopped and
	// every GPU object is released when Run returns.
	//
	// Parameters:
	//   - ctx: stops the preview when cancelled
	//
	// Returns:
	//   - error: the first fatal pipeline error, or nil after a normal close
	Run(ctx context.Context) error

	// Quit stops a running preview. Safe to call multiple times and from any goroutine.
	Quit()
}

// NewEngine creates the window and renderer for previewing a fragment shader. Must be called
// on the thread that will call Run, since both the window and the GPU device bind to it.
//
// Parameters:
//   - shaderPath: the fragment shader to preview
//   - cfg: the settings; nil uses config.Default()
//   - options: functional options applied before the window is created
//
// Returns:
//   - Engine: the engine, not yet running
func NewEngine(shaderPath string, cfg *config.Config, options ...EngineBuilderOption) Engine {
	e := &engine{
		shaderPath: shaderPath,
		config:     common.Coalesce(cfg, config.Default()),
		logger:     slog.Default(),
		now:        time.Now,

		quitChannel: make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		e.window = window.NewWindow(
			window.WithTitle(common.Coalesce(e.config.Window.Title, "shaderview - "+filepath.Base(shaderPath))),
			window.WithWidth(e.config.Window.Width),
			window.WithHeight(e.config.Window.Height),
		)
	}

	presentMode, err := renderer.ParsePresentMode(e.config.Render.PresentMode)
	if err != nil {
		e.logger.Warn("using vsync", "error", err)
	}
	e.renderer = renderer.NewRenderer(renderer.BackendTypeWGPU, e.window,
		renderer.WithCell(hotswap.NewCell()),
		renderer.WithLogger(e.logger),
		renderer.WithPresentMode(presentMode),
		renderer.WithForceSoftwareRenderer(e.config.Render.ForceFallbackAdapter),
		renderer.WithProfiler(profiler.NewProfiler(
			profiler.WithLogger(e.logger),
			profiler.WithLogging(e.config.Profile),
		)),
	)
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.quitChannel:
			cancel()
		case <-ctx.Done():
		}
	}()

	glslcArgs, err := e.config.GlslcArgs()
	if err != nil {
		e.release(nil)
		return fmt.Errorf("compiler.glslc_args: %w", err)
	}

	w, err := watcher.NewWatcher(e.shaderPath,
		watcher.WithBackend(watcher.Backend(e.config.Watch.Backend)),
		watcher.WithDebounce(e.config.Debounce()),
		watcher.WithLogger(e.logger),
	)
	if err != nil {
		e.release(nil)
		return err
	}

	frontend := compiler.NewFrontend(e.shaderPath,
		compiler.WithGlslc(e.config.Compiler.Glslc),
		compiler.WithGlslcArgs(glslcArgs...),
		compiler.WithTargetEnv(e.config.Compiler.TargetEnv),
	)
	assembler := program.NewAssembler(e.renderer.Backend(),
		program.WithLogger(e.logger),
		program.WithEntryPoint(e.config.Compiler.EntryPoint),
	)
	comp := compiler.NewCompiler(e.shaderPath, frontend, assembler, w.Signals(), compiler.WithLogger(e.logger))
	coord := hotswap.NewCoordinator(comp.Programs(), e.renderer.Cell(), hotswap.WithLogger(e.logger))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error { return comp.Run(gctx) })
	g.Go(func() error { return coord.Run(gctx) })

	e.bindInput(gctx)
	e.window.ProcessMessages()

	cancel()
	err = g.Wait()
	e.release(assembler)
	return err
}

// bindInput registers the window callbacks that feed the constants block and draws one frame
// per message loop iteration until ctx is done.
func (e *engine) bindInput(ctx context.Context) {
	in := newFrameInput(e.now(), e.window.Width(), e.window.Height())

	e.window.SetResizeCallback(func(width, height int) {
		in.resize(width, height)
		e.renderer.Resize(width, height)
	})
	e.window.SetMouseMoveCallback(in.move)
	e.window.SetMouseDownCallback(in.click)
	e.window.SetKeyDownCallback(func(keyCode uint32) {
		if keyCode == window.KeyU {
			logUniforms(e.logger, e.renderer.Uniforms())
		}
	})
	e.window.SetUpdateCallback(func() {
		if ctx.Err() != nil {
			e.window.Quit()
			return
		}
		if err := e.renderer.RenderFrame(in.at(e.now())); err != nil {
			e.logger.Debug("frame skipped", "error", err)
		}
	})
}

// release frees the GPU objects and the window once every goroutine has stopped. The vertex
// module belongs to the assembler and goes before the device.
func (e *engine) release(assembler program.Assembler) {
	if assembler != nil {
		assembler.Release()
	}
	e.renderer.Release()
	if err := e.window.Close(); err != nil {
		e.logger.Debug("close window", "error", err)
	}
}
