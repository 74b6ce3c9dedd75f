package program

import "log/slog"

// AssemblerBuilderOption is a functional option applied to an assembler during construction via NewAssembler.
type AssemblerBuilderOption func(*assembler)

// WithLogger sets the logger used for layout diagnostics.
//
// Parameters:
//   - logger: the logger to use; nil keeps slog.Default()
//
// Returns:
//   - AssemblerBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) AssemblerBuilderOption {
	return func(a *assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithEntryPoint sets the fragment entry point name reflected from each shader.
//
// Parameters:
//   - name: the entry point name (default "main")
//
// Returns:
//   - AssemblerBuilderOption: option function to apply
func WithEntryPoint(name string) AssemblerBuilderOption {
	return func(a *assembler) {
		if name != "" {
			a.entryPoint = name
		}
	}
}
