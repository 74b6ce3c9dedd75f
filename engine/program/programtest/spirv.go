package programtest

import (
	"github.com/gogpu/naga/spirv"
)

// FieldType selects the SPIR-V type of a fixture struct member.
type FieldType int

const (
	F32 FieldType = iota
	I32
	U32
	F64
	Bool
	Vec2
	Vec3
	Vec4
	IVec2
	DVec3
	Mat4
	ArrayF32
	Nested
)

// Field is one fixture struct member.
type Field struct {
	Name string
	Type FieldType
}

// BindingKind selects the resource kind of a fixture binding.
type BindingKind int

const (
	UniformBlock BindingKind = iota
	StorageBlock
	Sampler
)

// Binding describes one resource variable of a fixture module.
type Binding struct {
	Set     uint32
	Binding uint32
	Var     string

	// Struct is the struct type name. Leave empty for an anonymous block.
	Struct string
	Fields []Field
	Kind   BindingKind

	// Unused leaves the variable unreferenced by any function.
	Unused bool

	// ViaHelper references the variable only from a helper function that main calls.
	ViaHelper bool

	// Wrapped nests the struct inside an anonymous single-member block.
	Wrapped bool

	// Array declares a descriptor array of that many blocks when greater than 1.
	Array uint32
}

type fixture struct {
	b     *spirv.ModuleBuilder
	void  uint32
	fn    uint32
	types map[FieldType]uint32
	f32   uint32
	u32   uint32
}

// Fragment builds a fragment module with entry point "main" that declares the given bindings.
//
// Parameters:
//   - bindings: the resource variables to declare
//
// Returns:
//   - []byte: the SPIR-V module bytes
func Fragment(bindings ...Binding) []byte {
	return build(spirv.ExecutionModelFragment, bindings)
}

// Vertex builds a vertex module with entry point "main" and no bindings.
//
// Returns:
//   - []byte: the SPIR-V module bytes
func Vertex() []byte {
	return build(spirv.ExecutionModelVertex, nil)
}

func build(model spirv.ExecutionModel, bindings []Binding) []byte {
	f := &fixture{b: spirv.NewModuleBuilder(spirv.Version1_3), types: make(map[FieldType]uint32)}
	b := f.b
	b.AddCapability(spirv.CapabilityShader)
	b.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
	f.void = b.AddTypeVoid()
	f.fn = b.AddTypeFunction(f.void)
	f.f32 = f.typeOf(F32)
	f.u32 = f.typeOf(U32)

	type declared struct {
		variable uint32
		base     uint32
		binding  Binding
	}
	vars := make([]declared, 0, len(bindings))
	for _, binding := range bindings {
		base, storage := f.resource(binding)
		ptr := b.AddTypePointer(storage, base)
		v := b.AddVariable(ptr, storage)
		if binding.Var != "" {
			b.AddName(v, binding.Var)
		}
		b.AddDecorate(v, spirv.DecorationDescriptorSet, binding.Set)
		b.AddDecorate(v, spirv.DecorationBinding, binding.Binding)
		vars = append(vars, declared{variable: v, base: base, binding: binding})
	}

	var helper uint32
	for _, d := range vars {
		if !d.binding.ViaHelper || d.binding.Unused {
			continue
		}
		if helper == 0 {
			helper = b.AddFunction(f.fn, f.void, spirv.FunctionControlNone)
			b.AddName(helper, "helper")
			b.AddLabel()
		}
		b.AddLoad(d.base, d.variable)
	}
	if helper != 0 {
		b.AddReturn()
		b.AddFunctionEnd()
	}

	main := b.AddFunction(f.fn, f.void, spirv.FunctionControlNone)
	b.AddName(main, "main")
	b.AddLabel()
	for _, d := range vars {
		if d.binding.Unused || d.binding.ViaHelper {
			continue
		}
		b.AddLoad(d.base, d.variable)
	}
	if helper != 0 {
		// OpFunctionCall has the same operand shape as a unary op with no arguments.
		b.AddUnaryOp(spirv.OpFunctionCall, f.void, helper)
	}
	b.AddReturn()
	b.AddFunctionEnd()

	b.AddEntryPoint(model, main, "main", nil)
	if model == spirv.ExecutionModelFragment {
		b.AddExecutionMode(main, spirv.ExecutionModeOriginUpperLeft)
	}
	return b.Build()
}

// resource declares the pointee type of a binding and returns it with its storage class.
func (f *fixture) resource(binding Binding) (uint32, spirv.StorageClass) {
	b := f.b
	if binding.Kind == Sampler {
		return b.AddTypeSampler(), spirv.StorageClassUniformConstant
	}

	members := make([]uint32, len(binding.Fields))
	for i, field := range binding.Fields {
		members[i] = f.typeOf(field.Type)
	}
	st := b.AddTypeStruct(members...)
	if binding.Struct != "" {
		b.AddName(st, binding.Struct)
	}
	for i, field := range binding.Fields {
		b.AddMemberName(st, uint32(i), field.Name)
		b.AddMemberDecorate(st, uint32(i), spirv.DecorationOffset, uint32(i)*16)
	}

	base := st
	if binding.Wrapped {
		base = b.AddTypeStruct(st)
		b.AddMemberDecorate(base, 0, spirv.DecorationOffset, 0)
	}
	b.AddDecorate(base, spirv.DecorationBlock)
	if binding.Array > 1 {
		base = b.AddTypeArray(base, b.AddConstant(f.typeOf(U32), binding.Array))
	}

	storage := spirv.StorageClassUniform
	if binding.Kind == StorageBlock {
		storage = spirv.StorageClassStorageBuffer
	}
	return base, storage
}

func (f *fixture) typeOf(t FieldType) uint32 {
	if id, ok := f.types[t]; ok {
		return id
	}
	b := f.b
	var id uint32
	switch t {
	case F32:
		id = b.AddTypeFloat(32)
	case I32:
		id = b.AddTypeInt(32, true)
	case U32:
		id = b.AddTypeInt(32, false)
	case F64:
		id = b.AddTypeFloat(64)
	case Bool:
		id = b.AddTypeBool()
	case Vec2:
		id = b.AddTypeVector(f.typeOf(F32), 2)
	case Vec3:
		id = b.AddTypeVector(f.typeOf(F32), 3)
	case Vec4:
		id = b.AddTypeVector(f.typeOf(F32), 4)
	case IVec2:
		id = b.AddTypeVector(f.typeOf(I32), 2)
	case DVec3:
		id = b.AddTypeVector(f.typeOf(F64), 3)
	case Mat4:
		id = b.AddTypeMatrix(f.typeOf(Vec4), 4)
	case ArrayF32:
		id = b.AddTypeArray(f.typeOf(F32), b.AddConstant(f.typeOf(U32), 4))
	case Nested:
		id = b.AddTypeStruct(f.typeOf(F32))
		b.AddName(id, "Inner")
		b.AddMemberName(id, 0, "value")
	}
	f.types[t] = id
	return id
}
