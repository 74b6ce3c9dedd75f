package hotswap

import "log/slog"

// CoordinatorBuilderOption is a functional option applied to a coordinator during construction via NewCoordinator.
type CoordinatorBuilderOption func(*coordinator)

// WithLogger sets the logger for swap notices.
//
// Parameters:
//   - logger: the logger to use; nil keeps slog.Default()
//
// Returns:
//   - CoordinatorBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) CoordinatorBuilderOption {
	return func(c *coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}
