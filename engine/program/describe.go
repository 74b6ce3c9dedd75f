package program

import (
	"fmt"

	"github.com/Carmen-Shannon/shaderview/common"
	"github.com/Carmen-Shannon/shaderview/engine/program/spvreflect"
)

// BindingError reports a reachable binding that is not a single uniform buffer.
type BindingError struct {
	Set     uint32
	Binding uint32
	Name    string
	Kind    spvreflect.DescriptorKind

	// Count is the descriptor count of a rejected descriptor array; zero for other rejections.
	Count uint32
}

func (e *BindingError) Error() string {
	if e.Kind == spvreflect.DescriptorUniformBuffer {
		size := "a runtime-sized array"
		if e.Count > 1 {
			size = fmt.Sprintf("an array of %d", e.Count)
		}
		return fmt.Sprintf("binding %d in set %d (%q) is %s uniform buffers; only single uniform buffers are supported", e.Binding, e.Set, e.Name, size)
	}
	return fmt.Sprintf("binding %d in set %d (%q) is a %s; only uniform buffers are supported", e.Binding, e.Set, e.Name, e.Kind)
}

// FieldError reports a uniform member whose type has no Variable kind.
type FieldError struct {
	Struct string
	Field  string
	Type   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("variable %q in uniform %q has unsupported type %s", e.Field, e.Struct, e.Type)
}

// FieldLayout is the packed placement of one uniform member.
type FieldLayout struct {
	Name   string
	Kind   VariableKind
	Offset uint64

	// Declared is the Offset decoration the compiler emitted for the member, when present.
	Declared    uint32
	HasDeclared bool
}

// UniformLayout describes one uniform binding after classification and layout synthesis.
type UniformLayout struct {
	Set      uint32
	Binding  uint32
	Name     string
	Variable string
	Fields   []FieldLayout
	Size     uint64
}

// Mismatched returns the fields whose packed offset differs from the compiler's declared offset.
//
// Returns:
//   - []FieldLayout: the fields with a differing declared offset, in declaration order
func (l UniformLayout) Mismatched() []FieldLayout {
	var out []FieldLayout
	for _, f := range l.Fields {
		if f.HasDeclared && uint64(f.Declared) != f.Offset {
			out = append(out, f)
		}
	}
	return out
}

// Describe validates every reflected binding and synthesizes the packed uniform layouts. It
// creates no GPU objects, so a rejected shader is detected before anything is allocated.
//
// Parameters:
//   - mod: the reflected fragment module
//
// Returns:
//   - []UniformLayout: one layout per binding, ordered by set then binding
//   - error: a *BindingError or *FieldError for the first unsupported binding or member
func Describe(mod *spvreflect.Module) ([]UniformLayout, error) {
	layouts := make([]UniformLayout, 0, len(mod.Bindings))
	for _, b := range mod.Bindings {
		if b.Kind != spvreflect.DescriptorUniformBuffer {
			return nil, &BindingError{Set: b.Set, Binding: b.Binding, Name: b.Name, Kind: b.Kind}
		}
		if b.Count != 1 {
			return nil, &BindingError{Set: b.Set, Binding: b.Binding, Name: b.Name, Kind: b.Kind, Count: b.Count}
		}
		l, err := describeBinding(b)
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, l)
	}
	return layouts, nil
}

func describeBinding(b spvreflect.Binding) (UniformLayout, error) {
	block := b.Type
	if block == nil || block.Kind != spvreflect.TypeStruct {
		return UniformLayout{}, &FieldError{Struct: b.Name, Field: b.Name, Type: block.String()}
	}

	// Stripped modules carry no names at all.
	variable := common.Coalesce(b.Name, fmt.Sprintf("set%d_binding%d", b.Set, b.Binding))
	members := block.Members
	name := common.Coalesce(block.Name, variable)
	// Some compilers wrap the declared type in an anonymous single-member block.
	if block.Name == "" && len(members) == 1 && members[0].Name == "" {
		inner := members[0].Type
		if inner != nil && inner.Kind == spvreflect.TypeStruct {
			members = inner.Members
			name = common.Coalesce(inner.Name, variable)
		} else {
			members = []spvreflect.Member{{Name: variable, Type: inner, Offset: members[0].Offset, HasOffset: members[0].HasOffset}}
		}
	}

	l := UniformLayout{Set: b.Set, Binding: b.Binding, Name: name, Variable: variable}
	kinds := make([]VariableKind, len(members))
	for i, m := range members {
		fieldName := common.Coalesce(m.Name, fmt.Sprintf("_%d", i))
		kind, ok := classify(m.Type)
		if !ok {
			return UniformLayout{}, &FieldError{Struct: name, Field: fieldName, Type: m.Type.String()}
		}
		kinds[i] = kind
		l.Fields = append(l.Fields, FieldLayout{Name: fieldName, Kind: kind, Declared: m.Offset, HasDeclared: m.HasOffset})
	}

	offsets, size := Layout(kinds)
	for i := range l.Fields {
		l.Fields[i].Offset = offsets[i]
	}
	l.Size = size
	return l, nil
}

// classify maps a member type onto a Variable kind. Only 32-bit signed integers, 32-bit floats,
// and 2, 3 or 4 component vectors of 32-bit floats are accepted.
func classify(t *spvreflect.Type) (VariableKind, bool) {
	if t == nil {
		return 0, false
	}
	switch t.Kind {
	case spvreflect.TypeInt:
		if t.Width == 32 && t.Signed {
			return KindInt, true
		}
	case spvreflect.TypeFloat:
		if t.Width == 32 {
			return KindFloat, true
		}
	case spvreflect.TypeVector:
		if t.Elem == nil || t.Elem.Kind != spvreflect.TypeFloat || t.Elem.Width != 32 {
			return 0, false
		}
		switch t.Count {
		case 2:
			return KindVec2, true
		case 3:
			return KindVec3, true
		case 4:
			return KindVec4, true
		}
	}
	return 0, false
}
