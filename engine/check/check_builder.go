package check

import (
	"log/slog"

	"github.com/Carmen-Shannon/shaderview/engine/program/compiler"
)

// CheckerBuilderOption is a functional option applied by NewChecker.
type CheckerBuilderOption func(*checker)

// WithWorkers sets the maximum number of files compiled at once. Values <= 0 keep the default of 4.
//
// Parameters:
//   - n: the worker limit
//
// Returns:
//   - CheckerBuilderOption: option function to apply
func WithWorkers(n int) CheckerBuilderOption {
	return func(c *checker) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithEntryPoint sets the fragment entry point reflected from every file.
//
// Parameters:
//   - name: the entry point; "" keeps "main"
//
// Returns:
//   - CheckerBuilderOption: option function to apply
func WithEntryPoint(name string) CheckerBuilderOption {
	return func(c *checker) {
		if name != "" {
			c.entry = name
		}
	}
}

// WithFrontendOptions sets the options passed to compiler.NewFrontend for every file.
//
// Parameters:
//   - options: the front-end options
//
// Returns:
//   - CheckerBuilderOption: option function to apply
func WithFrontendOptions(options ...compiler.FrontendBuilderOption) CheckerBuilderOption {
	return func(c *checker) {
		c.frontend = append(c.frontend, options...)
	}
}

// WithLogger sets the checker logger.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - CheckerBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) CheckerBuilderOption {
	return func(c *checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}
