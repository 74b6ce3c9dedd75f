package compiler

import (
	"log/slog"

	"github.com/Carmen-Shannon/shaderview/engine/program"
)

// CompilerBuilderOption is a functional option applied to a compiler during construction via NewCompiler.
type CompilerBuilderOption func(*compiler)

// WithLogger sets the logger for diagnostics and rejections.
//
// Parameters:
//   - logger: the logger to use; nil keeps slog.Default()
//
// Returns:
//   - CompilerBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) CompilerBuilderOption {
	return func(c *compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBuffer sets how many assembled Programs may wait for the consumer before Run blocks.
//
// Parameters:
//   - n: the channel capacity (default 1)
//
// Returns:
//   - CompilerBuilderOption: option function to apply
func WithBuffer(n int) CompilerBuilderOption {
	return func(c *compiler) {
		if n >= 0 {
			c.programs = make(chan program.Program, n)
		}
	}
}
