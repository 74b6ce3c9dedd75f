package program

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/Carmen-Shannon/shaderview/engine/program/spvreflect"
)

// ErrNoVertexStage is returned by Assemble when SetVertex has not succeeded yet.
var ErrNoVertexStage = errors.New("vertex stage not set")

// assembler is the implementation of the Assembler interface.
type assembler struct {
	backend    Backend
	logger     *slog.Logger
	entryPoint string
	vertex     Handle
}

// Assembler turns fragment-shader bytecode into a Program: it reflects the bindings,
// validates and lays out every uniform, and only then creates the GPU objects. A failed
// Assemble releases anything it created and returns no Program.
type Assembler interface {
	// SetVertex creates the shader module for the fixed vertex stage shared by all programs.
	// Any previously set vertex module is released.
	//
	// Parameters:
	//   - code: the vertex-stage SPIR-V bytes
	//
	// Returns:
	//   - error: an error if the module could not be created
	SetVertex(code []byte) error

	// Assemble builds a Program from fragment-stage bytecode.
	//
	// Parameters:
	//   - label: a debug label for the program's GPU objects
	//   - fragment: the fragment-stage SPIR-V bytes
	//
	// Returns:
	//   - Program: the fully constructed program
	//   - error: a *BindingError or *FieldError for an unsupported shader, a reflection error,
	//     ErrNoVertexStage, or a GPU object creation error
	Assemble(label string, fragment []byte) (Program, error)

	// Release releases the vertex module.
	Release()
}

var _ Assembler = &assembler{}

// NewAssembler creates a new Assembler that allocates through the given Backend.
//
// Parameters:
//   - backend: the GPU backend used to create program objects
//   - options: functional options applied after defaults
//
// Returns:
//   - Assembler: the assembler
func NewAssembler(backend Backend, options ...AssemblerBuilderOption) Assembler {
	a := &assembler{
		backend:    backend,
		logger:     slog.Default(),
		entryPoint: "main",
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *assembler) SetVertex(code []byte) error {
	m, err := a.backend.CreateShaderModule("vertex", code)
	if err != nil {
		return fmt.Errorf("create vertex module: %w", err)
	}
	if a.vertex != nil {
		a.vertex.Release()
	}
	a.vertex = m
	return nil
}

func (a *assembler) Assemble(label string, fragment []byte) (Program, error) {
	if a.vertex == nil {
		return nil, ErrNoVertexStage
	}

	mod, err := spvreflect.Reflect(fragment, a.entryPoint)
	if err != nil {
		return nil, fmt.Errorf("reflect %s: %w", label, err)
	}
	layouts, err := Describe(mod)
	if err != nil {
		return nil, err
	}
	for _, l := range layouts {
		for _, f := range l.Mismatched() {
			a.logger.Debug("packed offset differs from declared offset",
				"uniform", l.Name, "field", f.Name, "offset", f.Offset, "declared", f.Declared)
		}
	}

	var created []Handle
	fail := func(err error) (Program, error) {
		releaseAll(created)
		return nil, err
	}

	frag, err := a.backend.CreateShaderModule(label, fragment)
	if err != nil {
		return fail(fmt.Errorf("create fragment module: %w", err))
	}
	created = append(created, frag)

	p := &program{
		label:     label,
		fragment:  frag,
		groups:    make(map[uint32]*UniformGroup),
		constants: NewConstants(),
	}
	for _, l := range layouts {
		fields := make([]Field, len(l.Fields))
		for i, f := range l.Fields {
			fields[i] = Field{Name: f.Name, Value: DefaultVariable(f.Kind)}
		}
		u := newUniform(l.Name, fields)
		buf, err := a.backend.CreateUniformBuffer(fmt.Sprintf("%s %s (%d, %d)", label, l.Name, l.Set, l.Binding), u.Size())
		if err != nil {
			return fail(fmt.Errorf("create buffer for %q at set %d binding %d: %w", l.Name, l.Set, l.Binding, err))
		}
		created = append(created, buf)
		u.buffer = buf

		g, ok := p.groups[l.Set]
		if !ok {
			g = &UniformGroup{Index: l.Set, Uniforms: make(map[uint32]Uniform)}
			p.groups[l.Set] = g
		}
		g.Uniforms[l.Binding] = u
	}

	var layoutsByIndex []Handle
	if len(p.groups) > 0 {
		layoutsByIndex = make([]Handle, slices.Max(slices.Collect(maps.Keys(p.groups)))+1)
	}
	for _, g := range p.Groups() {
		entries := make([]BindGroupEntry, 0, len(g.Uniforms))
		for _, binding := range g.Bindings() {
			u := g.Uniforms[binding]
			entries = append(entries, BindGroupEntry{Binding: binding, Buffer: u.Buffer(), Size: u.Size()})
		}
		layout, group, err := a.backend.CreateBindGroup(g.Index, entries)
		if err != nil {
			return fail(fmt.Errorf("create bind group %d: %w", g.Index, err))
		}
		created = append(created, layout, group)
		g.Layout = layout
		g.BindGroup = group
		layoutsByIndex[g.Index] = layout
	}

	pipeline, err := a.backend.CreatePipeline(PipelineDescriptor{
		Label:        label,
		Vertex:       a.vertex,
		Fragment:     frag,
		EntryPoint:   a.entryPoint,
		GroupLayouts: layoutsByIndex,
	})
	if err != nil {
		return fail(fmt.Errorf("create pipeline: %w", err))
	}
	p.pipeline = pipeline
	return p, nil
}

func (a *assembler) Release() {
	if a.vertex != nil {
		a.vertex.Release()
		a.vertex = nil
	}
}
