package program

import (
	"encoding/binary"
	"math"
)

// ConstantsSize is the byte size of the push-constant block shared by both shader stages.
const ConstantsSize = 40

// Byte offsets of each member inside the push-constant block.
const (
	constantsTimeOffset       = 0
	constantsResolutionOffset = 8
	constantsAspectOffset     = 16
	constantsMouseOffset      = 24
	constantsClickOffset      = 32
)

// Constants are the per-frame globals pushed to every draw. Mouse and Click are in centered
// UV space, see CursorToUV.
type Constants struct {
	// Time is the number of seconds since the preview started.
	Time float32

	// Resolution is the framebuffer size in pixels.
	Resolution [2]float32

	// Aspect is Resolution.x / Resolution.y.
	Aspect float32

	// Mouse is the current cursor position.
	Mouse [2]float32

	// Click is the position of the last left click.
	Click [2]float32
}

// NewConstants returns a Constants block with an aspect ratio of 1 and every other member zero,
// which places the mouse and click at the center of the view.
//
// Returns:
//   - Constants: the initial constants
func NewConstants() Constants {
	return Constants{Aspect: 1}
}

// SetResolution updates the resolution and derived aspect ratio. A zero height leaves the
// aspect ratio unchanged.
//
// Parameters:
//   - width: framebuffer width in pixels
//   - height: framebuffer height in pixels
func (c *Constants) SetResolution(width, height int) {
	c.Resolution = [2]float32{float32(width), float32(height)}
	if height > 0 {
		c.Aspect = float32(width) / float32(height)
	}
}

// Bytes encodes the block into its ConstantsSize push-constant layout.
//
// Returns:
//   - []byte: the encoded block
func (c Constants) Bytes() []byte {
	out := make([]byte, ConstantsSize)
	putFloat := func(off int, v float32) {
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(v))
	}
	putFloat(constantsTimeOffset, c.Time)
	putFloat(constantsResolutionOffset, c.Resolution[0])
	putFloat(constantsResolutionOffset+4, c.Resolution[1])
	putFloat(constantsAspectOffset, c.Aspect)
	putFloat(constantsMouseOffset, c.Mouse[0])
	putFloat(constantsMouseOffset+4, c.Mouse[1])
	putFloat(constantsClickOffset, c.Click[0])
	putFloat(constantsClickOffset+4, c.Click[1])
	return out
}

// CursorToUV maps a cursor position in window pixels (origin top-left) to centered UV space:
// the view center is (0, 0), y grows upward, and the longer axis is stretched by the aspect
// ratio so that a circle in UV space stays round on screen.
//
// Parameters:
//   - x: cursor x in pixels
//   - y: cursor y in pixels
//   - width: framebuffer width in pixels
//   - height: framebuffer height in pixels
//
// Returns:
//   - [2]float32: the cursor position in centered UV space, or (0, 0) for an empty framebuffer
func CursorToUV(x, y float64, width, height int) [2]float32 {
	if width <= 0 || height <= 0 {
		return [2]float32{}
	}
	aspect := float32(width) / float32(height)
	u := float32(x/float64(width)) - 0.5
	v := (1 - float32(y/float64(height))) - 0.5
	if aspect > 1 {
		u *= aspect
	} else {
		v /= aspect
	}
	return [2]float32{u, v}
}
