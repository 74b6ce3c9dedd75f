package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Carmen-Shannon/shaderview/engine/program"
	"github.com/Carmen-Shannon/shaderview/engine/program/spvreflect"
)

// compiler is the implementation of the Compiler interface.
type compiler struct {
	path      string
	frontend  Frontend
	assembler program.Assembler
	signals   <-chan struct{}
	programs  chan program.Program
	logger    *slog.Logger
	builds    int
}

// Compiler is the build loop of the preview. It compiles the fixed vertex stage once, then
// compiles the fragment shader on startup and again after every change signal, handing each
// successfully assembled Program to the consumer of Programs.
type Compiler interface {
	// Run compiles until ctx is cancelled or the signal channel is closed. Authoring errors are
	// logged and the loop keeps waiting for the next change.
	//
	// Parameters:
	//   - ctx: stops the loop; a Program not yet handed off is released
	//
	// Returns:
	//   - error: nil on cancellation, or a *ToolchainError (or vertex assembly error) that makes
	//     further compiles pointless
	Run(ctx context.Context) error

	// Programs returns the channel that receives every successfully assembled Program. The
	// receiver takes ownership. The channel is closed when Run returns.
	//
	// Returns:
	//   - <-chan program.Program: the output channel
	Programs() <-chan program.Program
}

var _ Compiler = &compiler{}

// NewCompiler creates a Compiler for the shader at path.
//
// Parameters:
//   - path: the fragment shader file
//   - frontend: the front-end that compiles both stages
//   - assembler: builds Programs from the compiled bytecode
//   - signals: change notifications from the watcher
//   - options: functional options applied after defaults
//
// Returns:
//   - Compiler: the compile loop, not yet running
func NewCompiler(path string, frontend Frontend, assembler program.Assembler, signals <-chan struct{}, options ...CompilerBuilderOption) Compiler {
	c := &compiler{
		path:      path,
		frontend:  frontend,
		assembler: assembler,
		signals:   signals,
		programs:  make(chan program.Program, 1),
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *compiler) Programs() <-chan program.Program {
	return c.programs
}

func (c *compiler) Run(ctx context.Context) error {
	defer close(c.programs)

	vertex, err := c.frontend.CompileVertex(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("compile vertex stage: %w", err)
	}
	if err := c.assembler.SetVertex(vertex); err != nil {
		return err
	}
	c.logger.Debug("vertex stage ready", "frontend", c.frontend.Name(), "bytes", len(vertex))

	for {
		if err := c.build(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-c.signals:
			if !ok {
				return nil
			}
		}
	}
}

// build runs one compile and assembly. Only toolchain failures are returned.
func (c *compiler) build(ctx context.Context) error {
	code, err := c.frontend.CompileFragment(ctx, c.path)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		var ce *CompileError
		if errors.As(err, &ce) {
			c.logCompileError(ce)
			return nil
		}
		return err
	}

	c.builds++
	label := fmt.Sprintf("%s#%d", filepath.Base(c.path), c.builds)
	p, err := c.assembler.Assemble(label, code)
	if err != nil {
		if errors.Is(err, spvreflect.ErrInvalidModule) {
			return &ToolchainError{Op: c.frontend.Name(), Err: err}
		}
		c.logAssembleError(err)
		return nil
	}

	select {
	case c.programs <- p:
		return nil
	case <-ctx.Done():
		p.Release()
		return nil
	}
}

func (c *compiler) logCompileError(ce *CompileError) {
	if len(ce.Diagnostics) == 0 {
		c.logger.Error("shader compilation failed", "file", ce.Path, "output", ce.Output)
		return
	}
	for _, d := range ce.Diagnostics {
		level := slog.LevelError
		if d.Severity == SeverityWarning {
			level = slog.LevelWarn
		}
		c.logger.Log(context.Background(), level, d.Message, "file", d.File, "line", d.Line, "severity", string(d.Severity))
	}
}

func (c *compiler) logAssembleError(err error) {
	var be *program.BindingError
	var fe *program.FieldError
	switch {
	case errors.As(err, &be):
		c.logger.Error("shader rejected", "set", be.Set, "binding", be.Binding, "name", be.Name, "kind", be.Kind.String())
	case errors.As(err, &fe):
		c.logger.Error("shader rejected", "struct", fe.Struct, "field", fe.Field, "type", fe.Type)
	default:
		c.logger.Error("shader rejected", "file", c.path, "error", err)
	}
}
