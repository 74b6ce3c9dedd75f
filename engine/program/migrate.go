package program

import "math"

// Migrate copies user-edited values from src into dst. Fields are matched by bind group index,
// binding index and field name; matched values are converted with Coerce. Fields that do not
// match, or whose kinds do not convert, keep the value dst was built with. Every uniform that
// received a value is marked dirty.
//
// Parameters:
//   - dst: the newly assembled program
//   - src: the program being replaced
//
// Returns:
//   - int: the number of fields that received a value from src
func Migrate(dst, src Program) int {
	if dst == nil || src == nil {
		return 0
	}
	carried := 0
	for _, g := range dst.Groups() {
		for _, binding := range g.Bindings() {
			old, ok := src.Uniform(g.Index, binding)
			if !ok {
				continue
			}
			carried += migrateUniform(g.Uniforms[binding], old)
		}
	}
	return carried
}

func migrateUniform(dst, src Uniform) int {
	carried := 0
	for i := range dst.Len() {
		f := dst.Field(i)
		prev, ok := src.Get(f.Name)
		if !ok {
			continue
		}
		v, ok := Coerce(f.Value.Kind(), prev)
		if !ok {
			continue
		}
		if err := dst.SetAt(i, v); err != nil {
			continue
		}
		carried++
	}
	return carried
}

// Coerce converts a value to the given kind:
//
//	new <- old | Int      Float    Vec2       Vec3      Vec4
//	Int        | copy     truncate -          -         -
//	Float      | cast     copy     -          -         -
//	Vec2       | -        -        copy       first 2   first 2
//	Vec3       | -        -        pad z=0    copy      first 3
//	Vec4       | -        -        pad z=w=0  pad w=0   copy
//
// Parameters:
//   - kind: the target kind
//   - old: the value to convert
//
// Returns:
//   - Variable: the converted value
//   - bool: false for the combinations marked "-", in which case the target keeps its value
func Coerce(kind VariableKind, old Variable) (Variable, bool) {
	switch kind {
	case KindInt:
		switch o := old.(type) {
		case Int:
			return o, true
		case Float:
			return truncate(o), true
		}
	case KindFloat:
		switch o := old.(type) {
		case Int:
			return Float(float32(o)), true
		case Float:
			return o, true
		}
	case KindVec2:
		switch o := old.(type) {
		case Vec2:
			return o, true
		case Vec3:
			return Vec2{o[0], o[1]}, true
		case Vec4:
			return Vec2{o[0], o[1]}, true
		}
	case KindVec3:
		switch o := old.(type) {
		case Vec2:
			return Vec3{o[0], o[1], 0}, true
		case Vec3:
			return o, true
		case Vec4:
			return Vec3{o[0], o[1], o[2]}, true
		}
	case KindVec4:
		switch o := old.(type) {
		case Vec2:
			return Vec4{o[0], o[1], 0, 0}, true
		case Vec3:
			return Vec4{o[0], o[1], o[2], 0}, true
		case Vec4:
			return o, true
		}
	}
	return nil, false
}

// truncate converts toward zero, saturating at the int32 range and mapping NaN to 0.
func truncate(f Float) Int {
	switch v := float64(f); {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	default:
		return Int(int32(v))
	}
}
