package spvreflect

import "fmt"

// TypeKind classifies a reflected SPIR-V type declaration.
type TypeKind int

const (
	TypeUnknown TypeKind = iota
	TypeVoid
	TypeBool
	TypeInt
	TypeFloat
	TypeVector
	TypeMatrix
	TypeArray
	TypeRuntimeArray
	TypeStruct
	TypePointer
	TypeImage
	TypeSampler
	TypeSampledImage
	TypeAccelerationStructure
)

var typeKindNames = map[TypeKind]string{
	TypeUnknown:               "unknown",
	TypeVoid:                  "void",
	TypeBool:                  "bool",
	TypeInt:                   "int",
	TypeFloat:                 "float",
	TypeVector:                "vector",
	TypeMatrix:                "matrix",
	TypeArray:                 "array",
	TypeRuntimeArray:          "runtime array",
	TypeStruct:                "struct",
	TypePointer:               "pointer",
	TypeImage:                 "image",
	TypeSampler:               "sampler",
	TypeSampledImage:          "sampled image",
	TypeAccelerationStructure: "acceleration structure",
}

func (k TypeKind) String() string {
	if s, ok := typeKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// Image dimensionalities that change the descriptor kind of an image binding.
const (
	DimBuffer  uint32 = 5
	DimSubpass uint32 = 6
)

// Type is a resolved SPIR-V type. Only the fields relevant to Kind are set.
type Type struct {
	// ID is the SPIR-V result id of the declaration.
	ID uint32

	// Kind is the declaration kind.
	Kind TypeKind

	// Name is the debug name attached with OpName, if any.
	Name string

	// Width is the bit width of Int and Float types.
	Width uint32

	// Signed is set for signed Int types.
	Signed bool

	// Count is the component count of a Vector, the column count of a Matrix, or the
	// length of an Array when the length is a literal constant.
	Count uint32

	// Elem is the component, column, element, pointee, or image type.
	Elem *Type

	// Members lists the members of a Struct in declaration order.
	Members []Member

	// Block and BufferBlock record the struct block decorations.
	Block       bool
	BufferBlock bool

	// Dim and Sampled are the Image operands that select the descriptor kind.
	Dim     uint32
	Sampled uint32
}

// Member is one struct member.
type Member struct {
	Name string
	Type *Type

	// Offset is the Offset decoration; HasOffset is false when the member was not decorated.
	Offset    uint32
	HasOffset bool
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypeInt:
		if t.Signed {
			return fmt.Sprintf("i%d", t.Width)
		}
		return fmt.Sprintf("u%d", t.Width)
	case TypeFloat:
		return fmt.Sprintf("f%d", t.Width)
	case TypeVector:
		return fmt.Sprintf("vec%d<%s>", t.Count, t.Elem)
	case TypeMatrix:
		return fmt.Sprintf("mat%d<%s>", t.Count, t.Elem)
	case TypeArray:
		return fmt.Sprintf("array<%s, %d>", t.Elem, t.Count)
	case TypeRuntimeArray:
		return fmt.Sprintf("array<%s>", t.Elem)
	case TypeStruct:
		if t.Name != "" {
			return "struct " + t.Name
		}
		return "struct"
	default:
		return t.Kind.String()
	}
}

// DescriptorKind is the resource kind of a binding, as seen by a pipeline layout.
type DescriptorKind int

const (
	DescriptorUnknown DescriptorKind = iota
	DescriptorUniformBuffer
	DescriptorStorageBuffer
	DescriptorSampler
	DescriptorCombinedImageSampler
	DescriptorSampledImage
	DescriptorStorageImage
	DescriptorUniformTexelBuffer
	DescriptorStorageTexelBuffer
	DescriptorInputAttachment
	DescriptorAccelerationStructure
)

var descriptorKindNames = map[DescriptorKind]string{
	DescriptorUnknown:               "unknown",
	DescriptorUniformBuffer:         "uniform buffer",
	DescriptorStorageBuffer:         "storage buffer",
	DescriptorSampler:               "sampler",
	DescriptorCombinedImageSampler:  "combined image sampler",
	DescriptorSampledImage:          "sampled image",
	DescriptorStorageImage:          "storage image",
	DescriptorUniformTexelBuffer:    "uniform texel buffer",
	DescriptorStorageTexelBuffer:    "storage texel buffer",
	DescriptorInputAttachment:       "input attachment",
	DescriptorAccelerationStructure: "acceleration structure",
}

func (k DescriptorKind) String() string {
	if s, ok := descriptorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("DescriptorKind(%d)", int(k))
}

// Binding is one resource variable reachable from the entry point.
type Binding struct {
	// Set is the DescriptorSet decoration, i.e. the bind group index.
	Set uint32

	// Binding is the Binding decoration.
	Binding uint32

	// Name is the debug name of the variable.
	Name string

	// Kind is the descriptor kind derived from the storage class and type.
	Kind DescriptorKind

	// Type is the variable's pointee type with any descriptor arrays unwrapped.
	Type *Type

	// Count is the number of descriptors: 1 for a plain binding, the product of the array
	// lengths for a descriptor array, and 0 when an array is runtime-sized.
	Count uint32
}

// Module is the reflection result for a single entry point.
type Module struct {
	// EntryPoint is the name of the reflected entry point.
	EntryPoint string

	// Bindings lists every resource binding statically used by the entry point,
	// ordered by set then binding.
	Bindings []Binding
}
