package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, "", Coalesce[string]())
	assert.Equal(t, 3, Coalesce(0, 0, 3))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(0), AlignUp[uint64](0, 16))
	assert.Equal(t, uint64(16), AlignUp[uint64](4, 16))
	assert.Equal(t, uint64(16), AlignUp[uint64](16, 16))
	assert.Equal(t, uint32(12), AlignUp[uint32](9, 4))
	assert.Equal(t, uint64(7), AlignUp[uint64](7, 0))
}
