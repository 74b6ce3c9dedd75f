package compiler_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/shaderview/engine/program"
	"github.com/Carmen-Shannon/shaderview/engine/program/compiler"
	"github.com/Carmen-Shannon/shaderview/engine/program/programtest"
)

const paramsShader = `
struct Params {
    tint: vec4<f32>,
    speed: f32,
}

@group(0) @binding(0) var<uniform> params: Params;

@fragment
fn main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return params.tint * params.speed;
}
`

const textureShader = `
@group(0) @binding(0) var tex: texture_2d<f32>;

@fragment
fn main(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    return textureLoad(tex, vec2<i32>(0, 0), 0);
}
`

// syncBuffer is a log sink that is safe to write from the compile goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	path    string
	backend *programtest.Backend
	signals chan struct{}
	logs    *syncBuffer
	c       compiler.Compiler
	done    chan error
	cancel  context.CancelFunc
}

func start(t *testing.T, frontend compiler.Frontend, path string) *harness {
	t.Helper()
	h := &harness{
		path:    path,
		backend: programtest.NewBackend(),
		signals: make(chan struct{}, 1),
		logs:    &syncBuffer{},
		done:    make(chan error, 1),
	}
	if frontend == nil {
		frontend = compiler.NewFrontend(path)
	}
	logger := slog.New(slog.NewTextHandler(h.logs, nil))
	h.c = compiler.NewCompiler(path, frontend, program.NewAssembler(h.backend), h.signals, compiler.WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.c.Run(ctx) }()
	t.Cleanup(cancel)
	return h
}

func (h *harness) next(t *testing.T) program.Program {
	t.Helper()
	select {
	case p := <-h.c.Programs():
		require.NotNil(t, p)
		return p
	case err := <-h.done:
		t.Fatalf("compiler stopped: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a program")
	}
	return nil
}

func (h *harness) none(t *testing.T) {
	t.Helper()
	select {
	case p := <-h.c.Programs():
		t.Fatalf("unexpected program %s", p.Label())
	case <-time.After(200 * time.Millisecond):
	}
}

func (h *harness) write(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(h.path, []byte(content), 0o644))
	h.signals <- struct{}{}
}

func TestCompilerReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(paramsShader), 0o644))
	h := start(t, nil, path)

	first := h.next(t)
	assert.Equal(t, "preview.wgsl#1", first.Label())
	u, ok := first.Uniform(0, 0)
	require.True(t, ok)
	assert.Equal(t, "Params", u.Name())
	assert.Equal(t, 2, u.Len())

	h.write(t, "this is not wgsl")
	h.none(t)
	assert.Contains(t, h.logs.String(), "level=ERROR")

	h.write(t, textureShader)
	h.none(t)
	assert.Contains(t, h.logs.String(), "shader rejected")
	assert.Contains(t, h.logs.String(), "kind=\"sampled image\"")

	h.write(t, paramsShader)
	second := h.next(t)
	assert.Equal(t, "preview.wgsl#3", second.Label())

	close(h.signals)
	require.NoError(t, <-h.done)
	_, open := <-h.c.Programs()
	assert.False(t, open)
}

func TestCompilerCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preview.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(paramsShader), 0o644))
	h := start(t, nil, path)
	h.next(t)

	h.cancel()
	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// fakeFrontend returns canned results.
type fakeFrontend struct {
	vertexErr   error
	fragment    []byte
	fragmentErr error
}

func (f *fakeFrontend) Name() string { return "fake" }

func (f *fakeFrontend) CompileVertex(ctx context.Context) ([]byte, error) {
	if f.vertexErr != nil {
		return nil, f.vertexErr
	}
	return programtest.Vertex(), nil
}

func (f *fakeFrontend) CompileFragment(ctx context.Context, path string) ([]byte, error) {
	return f.fragment, f.fragmentErr
}

func TestCompilerVertexFailureIsFatal(t *testing.T) {
	broken := &compiler.ToolchainError{Op: "glslc", Err: errors.New("exit status 2")}
	h := start(t, &fakeFrontend{vertexErr: broken}, "x.frag")
	err := <-h.done
	assert.ErrorIs(t, err, broken)
	assert.Empty(t, h.backend.Created("module"))
}

func TestCompilerToolchainFailureIsFatal(t *testing.T) {
	broken := &compiler.ToolchainError{Op: "glslc", Err: errors.New("signal: killed")}
	h := start(t, &fakeFrontend{fragmentErr: broken}, "x.frag")
	err := <-h.done
	var te *compiler.ToolchainError
	assert.ErrorAs(t, err, &te)
}

func TestCompilerInvalidBytecodeIsFatal(t *testing.T) {
	h := start(t, &fakeFrontend{fragment: []byte("not spirv")}, "x.frag")
	err := <-h.done
	var te *compiler.ToolchainError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "fake", te.Op)
}

func TestCompilerCompileErrorIsRecoverable(t *testing.T) {
	ce := &compiler.CompileError{Path: "x.frag", Diagnostics: []compiler.Diagnostic{
		{File: "x.frag", Line: 3, Severity: compiler.SeverityError, Message: "undeclared identifier"},
	}}
	h := start(t, &fakeFrontend{fragmentErr: ce}, "x.frag")
	h.none(t)
	assert.Contains(t, h.logs.String(), "undeclared identifier")
	assert.Contains(t, h.logs.String(), "line=3")

	close(h.signals)
	assert.NoError(t, <-h.done)
}

func TestCompileMissingFile(t *testing.T) {
	f := compiler.NewFrontend("gone.wgsl")
	_, err := f.CompileFragment(context.Background(), filepath.Join(t.TempDir(), "gone.wgsl"))
	var ce *compiler.CompileError
	assert.ErrorAs(t, err, &ce)
}

func TestCompileWGSLInclude(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "params.wgsl"), []byte("struct Params {\n    tint: vec4<f32>,\n}\n"), 0o644))
	path := filepath.Join(dir, "main.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(`#include "params.wgsl"
@group(1) @binding(2) var<uniform> params: Params;

@fragment
fn main() -> @location(0) vec4<f32> {
    return params.tint;
}
`), 0o644))

	f := compiler.NewFrontend(path)
	assert.Equal(t, "naga", f.Name())
	code, err := f.CompileFragment(context.Background(), path)
	require.NoError(t, err)
	assert.NotEmpty(t, code)

	vertex, err := f.CompileVertex(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, vertex)
}

func TestNewFrontendByExtension(t *testing.T) {
	assert.Equal(t, "naga", compiler.NewFrontend("a.WGSL").Name())
	assert.Equal(t, "glslc", compiler.NewFrontend("a.frag").Name())
	assert.Equal(t, "glslc", compiler.NewFrontend("a.glsl").Name())
}

func TestSplitArgs(t *testing.T) {
	args, err := compiler.SplitArgs(`-O -DNAME="two words"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"-O", "-DNAME=two words"}, args)
}
