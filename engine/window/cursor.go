package window

// scaleCursor maps a position in a window of size ww x wh to a framebuffer of size fw x fh.
// A degenerate window size returns the position unchanged.
func scaleCursor(x, y float64, ww, wh, fw, fh int) (float64, float64) {
	if ww <= 0 || wh <= 0 {
		return x, y
	}
	return x * float64(fw) / float64(ww), y * float64(fh) / float64(wh)
}
