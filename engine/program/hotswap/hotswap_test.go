package hotswap_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/shaderview/engine/program"
	"github.com/Carmen-Shannon/shaderview/engine/program/hotswap"
	"github.com/Carmen-Shannon/shaderview/engine/program/programtest"
)

var light = programtest.Binding{
	Set: 0, Binding: 0, Var: "light", Struct: "Light",
	Fields: []programtest.Field{{Name: "color", Type: programtest.Vec3}, {Name: "intensity", Type: programtest.F32}},
}

var params = programtest.Binding{
	Set: 1, Binding: 0, Var: "params", Struct: "Params",
	Fields: []programtest.Field{{Name: "speed", Type: programtest.F32}},
}

type fixture struct {
	backend   *programtest.Backend
	assembler program.Assembler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := programtest.NewBackend()
	a := program.NewAssembler(backend)
	require.NoError(t, a.SetVertex(programtest.Vertex()))
	return &fixture{backend: backend, assembler: a}
}

// build assembles a program whose handles are all stamped with gen.
func (f *fixture) build(t *testing.T, gen int64, bindings ...programtest.Binding) program.Program {
	t.Helper()
	f.backend.Generation.Store(gen)
	p, err := f.assembler.Assemble("test", programtest.Fragment(bindings...))
	require.NoError(t, err)
	return p
}

func TestCellInstallMigrates(t *testing.T) {
	f := newFixture(t)
	cell := hotswap.NewCell()
	assert.Equal(t, uint64(0), cell.With(func(p program.Program) { assert.Nil(t, p) }))

	first := f.build(t, 1, light)
	assert.Equal(t, uint64(1), cell.Install(first))
	cell.With(func(p program.Program) {
		u, _ := p.Uniform(0, 0)
		require.NoError(t, u.Set("intensity", program.Float(6.5)))
		c := p.Constants()
		c.Time = 12
		p.SetConstants(c)
	})

	edited := light
	edited.Fields = []programtest.Field{{Name: "color", Type: programtest.Vec3}, {Name: "intensity", Type: programtest.I32}}
	second := f.build(t, 2, edited)
	assert.Equal(t, uint64(2), cell.Install(second))
	assert.True(t, first.Released())
	assert.False(t, second.Released())

	gen := cell.With(func(p program.Program) {
		assert.Same(t, second, p)
		u, _ := p.Uniform(0, 0)
		v, _ := u.Get("intensity")
		assert.Equal(t, program.Int(6), v)
		assert.Equal(t, float32(12), p.Constants().Time)
	})
	assert.Equal(t, uint64(2), gen)
	assert.Equal(t, uint64(2), cell.Generation())
}

func TestCellRelease(t *testing.T) {
	f := newFixture(t)
	cell := hotswap.NewCell()
	p := f.build(t, 1, light)
	cell.Install(p)

	cell.Release()
	assert.True(t, p.Released())
	cell.With(func(p program.Program) { assert.Nil(t, p) })

	late := f.build(t, 2, light)
	assert.Equal(t, uint64(0), cell.Install(late))
	assert.True(t, late.Released())
}

func TestRejectedShaderLeavesActiveProgram(t *testing.T) {
	f := newFixture(t)
	cell := hotswap.NewCell()
	good := f.build(t, 1, light)
	cell.Install(good)

	_, err := f.assembler.Assemble("bad", programtest.Fragment(light, programtest.Binding{Set: 0, Binding: 1, Var: "tex", Kind: programtest.Sampler}))
	var be *program.BindingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, uint32(0), be.Set)
	assert.Equal(t, uint32(1), be.Binding)

	cell.With(func(p program.Program) { assert.Same(t, good, p) })
	assert.False(t, good.Released())
}

// consistent reports whether every GPU object of p comes from the same build.
func consistent(p program.Program) bool {
	want := p.Pipeline().(*programtest.Handle).Generation
	for _, g := range p.Groups() {
		if g.BindGroup.(*programtest.Handle).Generation != want || g.Layout.(*programtest.Handle).Generation != want {
			return false
		}
		for _, u := range g.Uniforms {
			if u.Buffer().(*programtest.Handle).Generation != want {
				return false
			}
		}
	}
	return !p.Released()
}

func TestCoordinatorSwapIsAtomic(t *testing.T) {
	f := newFixture(t)
	cell := hotswap.NewCell()
	programs := make(chan program.Program)
	var logs bytes.Buffer
	coord := hotswap.NewCoordinator(programs, cell, hotswap.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- coord.Run(ctx) }()

	var stop atomic.Bool
	var torn atomic.Int64
	var reads atomic.Int64
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				cell.With(func(p program.Program) {
					if p == nil {
						return
					}
					reads.Add(1)
					if !consistent(p) {
						torn.Add(1)
					}
				})
			}
		}()
	}

	const swaps = 50
	for i := 1; i <= swaps; i++ {
		bindings := []programtest.Binding{light}
		if i%2 == 0 {
			bindings = append(bindings, params)
		}
		programs <- f.build(t, int64(i), bindings...)
	}
	close(programs)
	require.NoError(t, <-done)
	stop.Store(true)
	wg.Wait()

	assert.Zero(t, torn.Load())
	assert.Positive(t, reads.Load())
	assert.Equal(t, uint64(swaps), cell.Generation())
	assert.Contains(t, logs.String(), "shader reloaded")
	assert.Contains(t, logs.String(), "generation=50")

	cell.Release()
	var live []string
	for _, h := range f.backend.Live() {
		if h.Label != "vertex" {
			live = append(live, h.Kind)
		}
	}
	assert.Empty(t, live)
}

func TestCoordinatorCancelReleasesQueued(t *testing.T) {
	f := newFixture(t)
	programs := make(chan program.Program, 2)
	coord := hotswap.NewCoordinator(programs, hotswap.NewCell())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	queued := f.build(t, 1, light)
	programs <- queued
	// Run may install the queued program or release it; either way nothing leaks after Release.
	require.NoError(t, coord.Run(ctx))
	coord.Cell().Release()
	assert.True(t, queued.Released())
}

func TestCoordinatorStopsOnCancel(t *testing.T) {
	coord := hotswap.NewCoordinator(make(chan program.Program), hotswap.NewCell())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- coord.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop")
	}
}
