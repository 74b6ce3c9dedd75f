// Package hotswap publishes newly built Programs to the renderer. The active Program lives in a
// Cell guarded by a mutex that the render loop holds while it reads the Program each frame, and
// the Coordinator replaces it as a whole under the same mutex.
package hotswap

import (
	"sync"

	"github.com/Carmen-Shannon/shaderview/engine/program"
)

// cell is the implementation of the Cell interface.
type cell struct {
	mu         sync.Mutex
	active     program.Program
	generation uint64
	released   bool
}

// Cell holds the single active Program.
type Cell interface {
	// With runs fn while holding the cell lock. fn receives the active Program, or nil before the
	// first install. fn must not retain the Program after it returns.
	//
	// Parameters:
	//   - fn: the function to run under the lock
	//
	// Returns:
	//   - uint64: the generation of the Program fn saw, 0 if there was none
	With(fn func(p program.Program)) uint64

	// Install makes next the active Program. If a Program was active, user-edited uniform values
	// and the constants block are migrated into next and the old Program is released, all within
	// one critical section. After Release, Install releases next instead.
	//
	// Parameters:
	//   - next: the new Program; the cell takes ownership
	//
	// Returns:
	//   - uint64: the new generation, starting at 1, or 0 if next was discarded
	Install(next program.Program) uint64

	// Generation returns the number of Programs installed so far.
	//
	// Returns:
	//   - uint64: the current generation
	Generation() uint64

	// Release releases the active Program and rejects later installs.
	Release()
}

var _ Cell = &cell{}

// NewCell creates an empty Cell.
//
// Returns:
//   - Cell: a cell with no active Program
func NewCell() Cell {
	return &cell{}
}

func (c *cell) With(fn func(p program.Program)) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.active)
	if c.active == nil {
		return 0
	}
	return c.generation
}

func (c *cell) Install(next program.Program) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		next.Release()
		return 0
	}
	if old := c.active; old != nil {
		program.Migrate(next, old)
		next.SetConstants(old.Constants())
		old.Release()
	}
	c.active = next
	c.generation++
	return c.generation
}

func (c *cell) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *cell) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
	if c.active != nil {
		c.active.Release()
		c.active = nil
	}
}
