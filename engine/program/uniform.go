package program

import (
	"fmt"
	"slices"
)

// Field is one named member of a Uniform together with its current value and packed offset.
type Field struct {
	// Name is the member name as declared in the shader.
	Name string

	// Value is the current value of the member.
	Value Variable

	// Offset is the byte offset of the member inside the uniform buffer.
	Offset uint64
}

// uniform is the implementation of the Uniform interface.
type uniform struct {
	name   string
	fields []Field
	index  map[string]int
	size   uint64
	buffer Handle
	dirty  bool
}

// Uniform is one reflected uniform-buffer struct bound at a single binding slot. Field order is
// the declaration order in the shader and drives the packed layout.
//
// A Uniform is not safe for concurrent use; callers hold the active program lock while reading or
// writing values.
type Uniform interface {
	// Name returns the display name of the uniform: the struct type name, or the variable name
	// when the shader did not name the type.
	//
	// Returns:
	//   - string: the display name
	Name() string

	// Len returns the number of fields.
	//
	// Returns:
	//   - int: the field count
	Len() int

	// Field returns the field at the given declaration index.
	//
	// Parameters:
	//   - i: the zero-based field index
	//
	// Returns:
	//   - Field: the field name, value and offset
	Field(i int) Field

	// Fields returns a copy of all fields in declaration order.
	//
	// Returns:
	//   - []Field: the fields
	Fields() []Field

	// Get looks up a field value by name.
	//
	// Parameters:
	//   - name: the member name
	//
	// Returns:
	//   - Variable: the current value, or nil if not found
	//   - bool: true if the field exists
	Get(name string) (Variable, bool)

	// Set replaces a field value by name. The new value must have the same kind as the field.
	// A successful Set marks the uniform dirty.
	//
	// Parameters:
	//   - name: the member name
	//   - v: the new value
	//
	// Returns:
	//   - error: an error if the field does not exist or the kind differs
	Set(name string, v Variable) error

	// SetAt replaces the value at a declaration index. The new value must have the same kind.
	//
	// Parameters:
	//   - i: the zero-based field index
	//   - v: the new value
	//
	// Returns:
	//   - error: an error if the index is out of range or the kind differs
	SetAt(i int, v Variable) error

	// Size returns the packed buffer size in bytes.
	//
	// Returns:
	//   - uint64: the size of the GPU buffer backing this uniform
	Size() uint64

	// Bytes encodes all fields into a buffer of Size() bytes with padding zeroed.
	//
	// Returns:
	//   - []byte: the encoded buffer contents
	Bytes() []byte

	// Buffer returns the GPU buffer handle created for this uniform.
	//
	// Returns:
	//   - Handle: the buffer handle
	Buffer() Handle

	// Dirty reports whether any value changed since the last upload.
	//
	// Returns:
	//   - bool: true if the buffer needs to be written
	Dirty() bool

	// MarkClean clears the dirty flag after the buffer contents were uploaded.
	MarkClean()
}

var _ Uniform = &uniform{}

// newUniform lays out the given fields, assigning each its packed offset. The field values
// must already be set. New uniforms start dirty so the first frame uploads them.
func newUniform(name string, fields []Field) *uniform {
	kinds := make([]VariableKind, len(fields))
	for i, f := range fields {
		kinds[i] = f.Value.Kind()
	}
	offsets, size := Layout(kinds)

	u := &uniform{
		name:   name,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
		size:   size,
		dirty:  true,
	}
	for i, f := range fields {
		f.Offset = offsets[i]
		u.fields[i] = f
		u.index[f.Name] = i
	}
	return u
}

func (u *uniform) Name() string {
	return u.name
}

func (u *uniform) Len() int {
	return len(u.fields)
}

func (u *uniform) Field(i int) Field {
	return u.fields[i]
}

func (u *uniform) Fields() []Field {
	return slices.Clone(u.fields)
}

func (u *uniform) Get(name string) (Variable, bool) {
	i, ok := u.index[name]
	if !ok {
		return nil, false
	}
	return u.fields[i].Value, true
}

func (u *uniform) Set(name string, v Variable) error {
	i, ok := u.index[name]
	if !ok {
		return fmt.Errorf("uniform %q has no field %q", u.name, name)
	}
	return u.SetAt(i, v)
}

func (u *uniform) SetAt(i int, v Variable) error {
	if i < 0 || i >= len(u.fields) {
		return fmt.Errorf("uniform %q: field index %d out of range", u.name, i)
	}
	if v == nil || v.Kind() != u.fields[i].Value.Kind() {
		return fmt.Errorf("uniform %q: field %q is %s, got %v", u.name, u.fields[i].Name, u.fields[i].Value.Kind(), v)
	}
	u.fields[i].Value = v
	u.dirty = true
	return nil
}

func (u *uniform) Size() uint64 {
	return u.size
}

func (u *uniform) Bytes() []byte {
	out := make([]byte, u.size)
	for _, f := range u.fields {
		copy(out[f.Offset:], f.Value.Bytes())
	}
	return out
}

func (u *uniform) Buffer() Handle {
	return u.buffer
}

func (u *uniform) Dirty() bool {
	return u.dirty
}

func (u *uniform) MarkClean() {
	u.dirty = false
}
