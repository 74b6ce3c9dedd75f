package program

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariableSizes(t *testing.T) {
	cases := []struct {
		v    Variable
		kind VariableKind
		size uint64
	}{
		{Int(3), KindInt, 4},
		{Float(2.5), KindFloat, 4},
		{Vec2{1, 2}, KindVec2, 8},
		{Vec3{1, 2, 3}, KindVec3, 16},
		{Vec4{1, 2, 3, 4}, KindVec4, 16},
	}
	for _, c := range cases {
		t.Run(c.kind.String(), func(t *testing.T) {
			assert.Equal(t, c.kind, c.v.Kind())
			assert.Equal(t, c.size, c.v.Size())
			assert.Equal(t, c.size, c.kind.Size())
			assert.Len(t, c.v.Bytes(), int(c.size))
		})
	}
}

func TestVariableBytes(t *testing.T) {
	assert.Equal(t, []byte{0xfe, 0xff, 0xff, 0xff}, Int(-2).Bytes())
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, Float(1).Bytes())
	assert.Equal(t, []byte{
		0x00, 0x00, 0x80, 0x3f,
		0x00, 0x00, 0x00, 0x40,
		0x00, 0x00, 0x40, 0x40,
		0x00, 0x00, 0x00, 0x00,
	}, Vec3{1, 2, 3}.Bytes())
}

func TestDefaultVariable(t *testing.T) {
	assert.Equal(t, Int(1), DefaultVariable(KindInt))
	assert.Equal(t, Float(1), DefaultVariable(KindFloat))
	assert.Equal(t, Vec2{1, 1}, DefaultVariable(KindVec2))
	assert.Equal(t, Vec3{1, 1, 1}, DefaultVariable(KindVec3))
	assert.Equal(t, Vec4{1, 1, 1, 1}, DefaultVariable(KindVec4))
	assert.Nil(t, DefaultVariable(VariableKind(42)))
}

func TestVariableString(t *testing.T) {
	assert.Equal(t, "-7", Int(-7).String())
	assert.Equal(t, "0.5", Float(0.5).String())
	assert.Equal(t, "(1, 2, 3)", Vec3{1, 2, 3}.String())
	assert.Equal(t, "VariableKind(9)", VariableKind(9).String())
}
