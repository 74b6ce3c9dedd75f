package program

import (
	"maps"
	"slices"
)

// UniformGroup holds every Uniform that shares one bind group index, together with the bind
// group layout and bind group created for them.
type UniformGroup struct {
	// Index is the bind group index reflected from the shader.
	Index uint32

	// Uniforms maps binding index to Uniform.
	Uniforms map[uint32]Uniform

	// Layout is the bind group layout.
	Layout Handle

	// BindGroup is the bind group binding every uniform buffer of the group.
	BindGroup Handle
}

// Bindings returns the binding indices of the group in ascending order.
//
// Returns:
//   - []uint32: the sorted binding indices
func (g *UniformGroup) Bindings() []uint32 {
	return slices.Sorted(maps.Keys(g.Uniforms))
}

// program is the implementation of the Program interface.
type program struct {
	label     string
	pipeline  Handle
	fragment  Handle
	groups    map[uint32]*UniformGroup
	constants Constants
	released  bool
}

// Program is one compiled fragment shader ready to draw: the render pipeline, its uniform
// groups and the per-frame Constants block. The pipeline and group set never change after
// construction; uniform values and constants are mutated under the active program lock.
type Program interface {
	// Label returns the debug label the program was assembled with.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Pipeline returns the render pipeline.
	//
	// Returns:
	//   - Handle: the render pipeline handle
	Pipeline() Handle

	// Groups returns every uniform group ordered by bind group index.
	//
	// Returns:
	//   - []*UniformGroup: the groups
	Groups() []*UniformGroup

	// Group looks up a uniform group by bind group index.
	//
	// Parameters:
	//   - index: the bind group index
	//
	// Returns:
	//   - *UniformGroup: the group, or nil if the shader does not use the index
	//   - bool: true if the group exists
	Group(index uint32) (*UniformGroup, bool)

	// Uniform looks up a uniform by bind group and binding index.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index
	//
	// Returns:
	//   - Uniform: the uniform, or nil if not found
	//   - bool: true if the uniform exists
	Uniform(group, binding uint32) (Uniform, bool)

	// Constants returns a copy of the current per-frame constants.
	//
	// Returns:
	//   - Constants: the constants block
	Constants() Constants

	// SetConstants replaces the per-frame constants.
	//
	// Parameters:
	//   - c: the new constants block
	SetConstants(c Constants)

	// Release releases every GPU object owned by the program. Safe to call more than once.
	Release()

	// Released reports whether Release has been called.
	//
	// Returns:
	//   - bool: true once the program's GPU objects are released
	Released() bool
}

var _ Program = &program{}

func (p *program) Label() string {
	return p.label
}

func (p *program) Pipeline() Handle {
	return p.pipeline
}

func (p *program) Groups() []*UniformGroup {
	out := make([]*UniformGroup, 0, len(p.groups))
	for _, idx := range slices.Sorted(maps.Keys(p.groups)) {
		out = append(out, p.groups[idx])
	}
	return out
}

func (p *program) Group(index uint32) (*UniformGroup, bool) {
	g, ok := p.groups[index]
	return g, ok
}

func (p *program) Uniform(group, binding uint32) (Uniform, bool) {
	g, ok := p.groups[group]
	if !ok {
		return nil, false
	}
	u, ok := g.Uniforms[binding]
	return u, ok
}

func (p *program) Constants() Constants {
	return p.constants
}

func (p *program) SetConstants(c Constants) {
	p.constants = c
}

func (p *program) Release() {
	if p.released {
		return
	}
	p.released = true

	handles := []Handle{p.fragment}
	for _, g := range p.Groups() {
		for _, binding := range g.Bindings() {
			handles = append(handles, g.Uniforms[binding].Buffer())
		}
		handles = append(handles, g.Layout, g.BindGroup)
	}
	handles = append(handles, p.pipeline)
	releaseAll(handles)
}

func (p *program) Released() bool {
	return p.released
}
