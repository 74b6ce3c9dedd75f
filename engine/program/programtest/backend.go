// Package programtest provides an in-memory program.Backend and SPIR-V fixture builders for tests
// that exercise program assembly, migration, and hot swapping without a GPU.
package programtest

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/shaderview/engine/program"
)

// Handle is the fake GPU object handed out by Backend.
type Handle struct {
	// Kind is "module", "buffer", "layout", "bindgroup" or "pipeline".
	Kind string

	// Label is the label the object was created with.
	Label string

	// Generation is the backend generation at creation time.
	Generation int64

	// Size is the buffer size for buffers.
	Size uint64

	// Layouts holds the pipeline layouts for pipelines, indexed by group.
	Layouts []program.Handle

	// EntryPoint is the fragment entry point for pipelines.
	EntryPoint string

	released atomic.Bool
}

// Release marks the handle released. Releasing twice panics so double frees fail tests.
func (h *Handle) Release() {
	if !h.released.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("programtest: %s %q released twice", h.Kind, h.Label))
	}
}

// Released reports whether Release was called.
func (h *Handle) Released() bool {
	return h.released.Load()
}

// Backend records every created object and buffer write.
type Backend struct {
	mu sync.Mutex

	// Generation is stamped onto every created handle.
	Generation atomic.Int64

	// FailOn makes the named creation kind return an error.
	FailOn string

	// RejectModules makes CreateShaderModule fail for every label except "vertex".
	RejectModules bool

	created []*Handle
	writes  map[*Handle][]byte
}

var _ program.Backend = &Backend{}

// NewBackend returns an empty fake backend.
func NewBackend() *Backend {
	return &Backend{writes: make(map[*Handle][]byte)}
}

func (b *Backend) create(kind, label string) (*Handle, error) {
	if b.FailOn == kind {
		return nil, fmt.Errorf("programtest: %s creation failed", kind)
	}
	h := &Handle{Kind: kind, Label: label, Generation: b.Generation.Load()}
	b.mu.Lock()
	b.created = append(b.created, h)
	b.mu.Unlock()
	return h, nil
}

func (b *Backend) CreateShaderModule(label string, code []byte) (program.Handle, error) {
	if b.RejectModules && label != "vertex" {
		return nil, fmt.Errorf("programtest: module %q rejected", label)
	}
	return b.create("module", label)
}

func (b *Backend) CreateUniformBuffer(label string, size uint64) (program.Handle, error) {
	h, err := b.create("buffer", label)
	if err != nil {
		return nil, err
	}
	h.Size = size
	return h, nil
}

func (b *Backend) CreateBindGroup(group uint32, entries []program.BindGroupEntry) (program.Handle, program.Handle, error) {
	layout, err := b.create("layout", fmt.Sprintf("group %d", group))
	if err != nil {
		return nil, nil, err
	}
	bg, err := b.create("bindgroup", fmt.Sprintf("group %d", group))
	if err != nil {
		layout.Release()
		return nil, nil, err
	}
	return layout, bg, nil
}

func (b *Backend) CreatePipeline(desc program.PipelineDescriptor) (program.Handle, error) {
	h, err := b.create("pipeline", desc.Label)
	if err != nil {
		return nil, err
	}
	h.Layouts = desc.GroupLayouts
	h.EntryPoint = desc.EntryPoint
	return h, nil
}

func (b *Backend) WriteBuffer(buffer program.Handle, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes[buffer.(*Handle)] = append([]byte(nil), data...)
}

// Written returns the last bytes written to a buffer, or nil if it was never written.
func (b *Backend) Written(buffer program.Handle) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes[buffer.(*Handle)]
}

// Created returns every handle created so far, optionally filtered by kind.
func (b *Backend) Created(kind string) []*Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Handle
	for _, h := range b.created {
		if kind == "" || h.Kind == kind {
			out = append(out, h)
		}
	}
	return out
}

// Live returns the handles that have not been released.
func (b *Backend) Live() []*Handle {
	var out []*Handle
	for _, h := range b.Created("") {
		if !h.Released() {
			out = append(out, h)
		}
	}
	return out
}
