package program

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayout(t *testing.T) {
	cases := []struct {
		name    string
		kinds   []VariableKind
		offsets []uint64
		size    uint64
	}{
		{"empty", nil, []uint64{}, 0},
		{"float then vec2", []VariableKind{KindFloat, KindVec2}, []uint64{0, 8}, 16},
		{"float then vec3", []VariableKind{KindFloat, KindVec3}, []uint64{0, 16}, 32},
		{"vec3 then float", []VariableKind{KindVec3, KindFloat}, []uint64{0, 16}, 20},
		{"scalars pack", []VariableKind{KindInt, KindFloat, KindInt}, []uint64{0, 4, 8}, 12},
		{"vec2 after two scalars", []VariableKind{KindFloat, KindFloat, KindVec2}, []uint64{0, 4, 8}, 16},
		{"mixed", []VariableKind{KindVec2, KindFloat, KindVec4, KindInt}, []uint64{0, 8, 16, 32}, 36},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			offsets, size := Layout(c.kinds)
			assert.Equal(t, c.offsets, offsets)
			assert.Equal(t, c.size, size)
		})
	}
}

func TestLayoutInvariants(t *testing.T) {
	all := []VariableKind{KindInt, KindFloat, KindVec2, KindVec3, KindVec4}
	// every ordered pair and triple of kinds
	var inputs [][]VariableKind
	for _, a := range all {
		for _, b := range all {
			inputs = append(inputs, []VariableKind{a, b})
			for _, c := range all {
				inputs = append(inputs, []VariableKind{a, b, c})
			}
		}
	}

	for _, kinds := range inputs {
		offsets, size := Layout(kinds)
		var end uint64
		for i, k := range kinds {
			assert.Zero(t, offsets[i]%k.Size(), "kinds %v field %d misaligned", kinds, i)
			assert.GreaterOrEqual(t, offsets[i], end, "kinds %v field %d overlaps", kinds, i)
			end = offsets[i] + k.Size()
		}
		assert.Equal(t, end, size)
	}
}
