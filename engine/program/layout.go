package program

import "github.com/Carmen-Shannon/shaderview/common"

// Layout packs kinds in declaration order. Each field starts at an offset that is a
// multiple of its own size; there is no global 16-byte rule, so a Vec2 after a Float
// lands at offset 8 rather than 16.
//
// Parameters:
//   - kinds: the field kinds in declaration order
//
// Returns:
//   - []uint64: the byte offset of each field
//   - uint64: the total packed size, i.e. the end of the last field
func Layout(kinds []VariableKind) ([]uint64, uint64) {
	offsets := make([]uint64, len(kinds))
	var size uint64
	for i, k := range kinds {
		size = common.AlignUp(size, k.Size())
		offsets[i] = size
		size += k.Size()
	}
	return offsets, size
}
