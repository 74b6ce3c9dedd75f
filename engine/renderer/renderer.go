package renderer

import (
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/shaderview/engine/profiler"
	"github.com/Carmen-Shannon/shaderview/engine/program"
	"github.com/Carmen-Shannon/shaderview/engine/program/hotswap"
	"github.com/Carmen-Shannon/shaderview/engine/window"
)

// Stats is a read-only snapshot of what the last frame drew.
type Stats struct {
	// Constants is the constants block of the last frame.
	Constants program.Constants

	// FPS is the frame rate over the last profiler interval.
	FPS float64

	// Program is the label of the active Program, empty before the first successful compile.
	Program string

	// Generation counts the Programs installed so far.
	Generation uint64

	// Uploads is the number of uniform buffers written in the last frame.
	Uploads int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	cell        hotswap.Cell
	profiler    *profiler.Profiler
	logger      *slog.Logger
	stats       Stats

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

// Renderer draws the active Program of a hotswap.Cell full-screen once per frame.
//
// The Renderer is driven from the window thread. Program construction on other goroutines goes
// through Backend, which is safe to use concurrently with frame submission.
type Renderer interface {
	// RenderFrame draws one frame. Under the cell lock it stores constants in the active
	// Program, uploads dirty uniforms and records the draw; the recorded commands are submitted
	// and presented after the lock is released. Before the first Program is installed the frame
	// is only cleared.
	//
	// Parameters:
	//   - constants: the per-frame constants block
	//
	// Returns:
	//   - error: an error if no swapchain image could be acquired; the frame is skipped
	RenderFrame(constants program.Constants) error

	// Cell returns the cell holding the active Program.
	//
	// Returns:
	//   - hotswap.Cell: the active Program cell
	Cell() hotswap.Cell

	// Backend returns the GPU backend Programs are assembled with.
	//
	// Returns:
	//   - program.Backend: the backend
	Backend() program.Backend

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode changes the present mode. Takes effect on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode
	SetPresentMode(mode PresentMode)

	// Stats returns a snapshot of the last frame.
	//
	// Returns:
	//   - Stats: the snapshot
	Stats() Stats

	// Uniforms copies every uniform value of the active Program.
	//
	// Returns:
	//   - []UniformSnapshot: the uniforms ordered by group and binding, nil without a Program
	Uniforms() []UniformSnapshot

	// Release releases the active Program and the GPU device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer presenting to the given window. The GPU adapter and device are
// acquired on the calling thread; failure to acquire them panics.
//
// Parameters:
//   - backendType: the GPU backend implementation
//   - window: the window whose surface is rendered to
//   - options: functional options applied before the backend is created
//
// Returns:
//   - Renderer: the renderer with its surface configured to the window size
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		logger:      slog.Default(),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}
	if r.cell == nil {
		r.cell = hotswap.NewCell()
	}
	if r.profiler == nil {
		r.profiler = profiler.NewProfiler(profiler.WithLogger(r.logger))
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(window.Width(), window.Height())
	return r
}

func (r *renderer) RenderFrame(constants program.Constants) error {
	pass, err := r.backend.BeginFrame()
	if err != nil {
		return err
	}

	var label string
	uploads := 0
	gen := r.cell.With(func(p program.Program) {
		if p == nil {
			return
		}
		label = p.Label()
		p.SetConstants(constants)
		uploads = uploadUniforms(r.backend, p)
		drawProgram(pass, p)
	})

	r.backend.EndFrame()
	r.profiler.Tick()

	r.mu.Lock()
	r.stats = Stats{
		Constants:  constants,
		FPS:        r.profiler.Stats().FPS,
		Program:    label,
		Generation: gen,
		Uploads:    uploads,
	}
	r.mu.Unlock()
	return nil
}

func (r *renderer) Cell() hotswap.Cell {
	return r.cell
}

func (r *renderer) Backend() program.Backend {
	return r.backend
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) Uniforms() []UniformSnapshot {
	var out []UniformSnapshot
	r.cell.With(func(p program.Program) {
		if p != nil {
			out = snapshotUniforms(p)
		}
	})
	return out
}

func (r *renderer) Release() {
	r.cell.Release()
	r.backend.Release()
}
