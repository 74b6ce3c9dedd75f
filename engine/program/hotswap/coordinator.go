package hotswap

import (
	"context"
	"log/slog"

	"github.com/Carmen-Shannon/shaderview/engine/program"
)

// coordinator is the implementation of the Coordinator interface.
type coordinator struct {
	programs <-chan program.Program
	cell     Cell
	logger   *slog.Logger
}

// Coordinator receives Programs from the compiler and installs each one into the Cell.
type Coordinator interface {
	// Run installs Programs until ctx is cancelled or the program channel is closed. Programs
	// still queued at cancellation are released.
	//
	// Parameters:
	//   - ctx: stops the loop
	//
	// Returns:
	//   - error: always nil; the signature matches the other pipeline workers
	Run(ctx context.Context) error

	// Cell returns the cell Programs are installed into.
	//
	// Returns:
	//   - Cell: the active Program cell
	Cell() Cell
}

var _ Coordinator = &coordinator{}

// NewCoordinator creates a Coordinator.
//
// Parameters:
//   - programs: the compiler's output channel
//   - cell: the cell to install into
//   - options: functional options applied after defaults
//
// Returns:
//   - Coordinator: the coordinator, not yet running
func NewCoordinator(programs <-chan program.Program, cell Cell, options ...CoordinatorBuilderOption) Coordinator {
	c := &coordinator{
		programs: programs,
		cell:     cell,
		logger:   slog.Default(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *coordinator) Cell() Cell {
	return c.cell
}

func (c *coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.drain()
			return nil
		case p, ok := <-c.programs:
			if !ok {
				return nil
			}
			uniforms := 0
			for _, g := range p.Groups() {
				uniforms += len(g.Uniforms)
			}
			label := p.Label()
			gen := c.cell.Install(p)
			if gen == 0 {
				continue
			}
			c.logger.Info("shader reloaded", "program", label, "generation", gen, "uniforms", uniforms)
		}
	}
}

func (c *coordinator) drain() {
	for {
		select {
		case p, ok := <-c.programs:
			if !ok {
				return
			}
			p.Release()
		default:
			return
		}
	}
}
