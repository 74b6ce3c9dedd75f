package program

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantsBytes(t *testing.T) {
	c := NewConstants()
	c.Time = 1.5
	c.SetResolution(800, 400)
	c.Mouse = [2]float32{0.25, -0.25}
	c.Click = [2]float32{0.5, 0.75}

	b := c.Bytes()
	require.Len(t, b, ConstantsSize)
	at := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
	}
	assert.Equal(t, float32(1.5), at(0))
	assert.Equal(t, float32(800), at(8))
	assert.Equal(t, float32(400), at(12))
	assert.Equal(t, float32(2), at(16))
	assert.Equal(t, float32(0.25), at(24))
	assert.Equal(t, float32(-0.25), at(28))
	assert.Equal(t, float32(0.5), at(32))
	assert.Equal(t, float32(0.75), at(36))
}

func TestSetResolutionZeroHeight(t *testing.T) {
	c := NewConstants()
	c.SetResolution(640, 0)
	assert.Equal(t, [2]float32{640, 0}, c.Resolution)
	assert.Equal(t, float32(1), c.Aspect)
}

func TestCursorToUV(t *testing.T) {
	assert.Equal(t, [2]float32{0, 0}, CursorToUV(400, 200, 800, 400))
	assert.Equal(t, [2]float32{-1, 0.5}, CursorToUV(0, 0, 800, 400))
	assert.Equal(t, [2]float32{1, -0.5}, CursorToUV(800, 400, 800, 400))
	assert.Equal(t, [2]float32{0.5, -1}, CursorToUV(400, 800, 400, 800))
	assert.Equal(t, [2]float32{}, CursorToUV(10, 10, 0, 0))
}
