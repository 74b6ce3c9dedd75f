package program

import (
	"encoding/binary"
	"fmt"
	"math"
)

// VariableKind identifies which leaf shape a Variable holds.
type VariableKind int

const (
	// KindInt is a 32-bit signed integer scalar.
	KindInt VariableKind = iota

	// KindFloat is a 32-bit float scalar.
	KindFloat

	// KindVec2 is a 2-component float vector.
	KindVec2

	// KindVec3 is a 3-component float vector. It occupies 16 bytes.
	KindVec3

	// KindVec4 is a 4-component float vector.
	KindVec4
)

func (k VariableKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindVec2:
		return "vec2"
	case KindVec3:
		return "vec3"
	case KindVec4:
		return "vec4"
	default:
		return fmt.Sprintf("VariableKind(%d)", int(k))
	}
}

// Size returns the byte size of the kind. The size doubles as the alignment
// step used by layout synthesis.
//
// Returns:
//   - uint64: 4 for Int and Float, 8 for Vec2, 16 for Vec3 and Vec4
func (k VariableKind) Size() uint64 {
	switch k {
	case KindInt, KindFloat:
		return 4
	case KindVec2:
		return 8
	case KindVec3, KindVec4:
		return 16
	default:
		return 0
	}
}

// Variable is a single uniform leaf value. The concrete types Int, Float,
// Vec2, Vec3 and Vec4 are the only implementations.
type Variable interface {
	// Kind reports which leaf shape the value holds.
	//
	// Returns:
	//   - VariableKind: the kind tag of the value
	Kind() VariableKind

	// Size returns the number of bytes the value occupies in a uniform buffer.
	//
	// Returns:
	//   - uint64: the fixed size for the kind
	Size() uint64

	// Bytes encodes the value little-endian. The returned slice is always Size() bytes long,
	// so a Vec3 carries four trailing zero bytes.
	//
	// Returns:
	//   - []byte: the encoded value
	Bytes() []byte

	// String formats the value for logs and the check command.
	String() string
}

// Int is a 32-bit signed integer uniform field.
type Int int32

// Float is a 32-bit float uniform field.
type Float float32

// Vec2 is a 2-component float vector uniform field.
type Vec2 [2]float32

// Vec3 is a 3-component float vector uniform field.
type Vec3 [3]float32

// Vec4 is a 4-component float vector uniform field.
type Vec4 [4]float32

var (
	_ Variable = Int(0)
	_ Variable = Float(0)
	_ Variable = Vec2{}
	_ Variable = Vec3{}
	_ Variable = Vec4{}
)

// DefaultVariable returns the freshly reflected value for a kind: integers start at 1
// and every float component starts at 1.0.
//
// Parameters:
//   - kind: the kind to build a default for
//
// Returns:
//   - Variable: the default value, or nil for an unknown kind
func DefaultVariable(kind VariableKind) Variable {
	switch kind {
	case KindInt:
		return Int(1)
	case KindFloat:
		return Float(1)
	case KindVec2:
		return Vec2{1, 1}
	case KindVec3:
		return Vec3{1, 1, 1}
	case KindVec4:
		return Vec4{1, 1, 1, 1}
	default:
		return nil
	}
}

func (v Int) Kind() VariableKind { return KindInt }
func (v Int) Size() uint64       { return KindInt.Size() }
func (v Int) Bytes() []byte {
	return binary.LittleEndian.AppendUint32(make([]byte, 0, 4), uint32(v))
}
func (v Int) String() string { return fmt.Sprintf("%d", int32(v)) }

func (v Float) Kind() VariableKind { return KindFloat }
func (v Float) Size() uint64       { return KindFloat.Size() }
func (v Float) Bytes() []byte      { return encodeFloats(4, float32(v)) }
func (v Float) String() string     { return fmt.Sprintf("%g", float32(v)) }

func (v Vec2) Kind() VariableKind { return KindVec2 }
func (v Vec2) Size() uint64       { return KindVec2.Size() }
func (v Vec2) Bytes() []byte      { return encodeFloats(8, v[:]...) }
func (v Vec2) String() string     { return fmt.Sprintf("(%g, %g)", v[0], v[1]) }

func (v Vec3) Kind() VariableKind { return KindVec3 }
func (v Vec3) Size() uint64       { return KindVec3.Size() }
func (v Vec3) Bytes() []byte      { return encodeFloats(16, v[:]...) }
func (v Vec3) String() string     { return fmt.Sprintf("(%g, %g, %g)", v[0], v[1], v[2]) }

func (v Vec4) Kind() VariableKind { return KindVec4 }
func (v Vec4) Size() uint64       { return KindVec4.Size() }
func (v Vec4) Bytes() []byte      { return encodeFloats(16, v[:]...) }
func (v Vec4) String() string     { return fmt.Sprintf("(%g, %g, %g, %g)", v[0], v[1], v[2], v[3]) }

// encodeFloats writes the components little-endian into a zeroed slice of size bytes.
func encodeFloats(size int, components ...float32) []byte {
	out := make([]byte, size)
	for i, c := range components {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(c))
	}
	return out
}
