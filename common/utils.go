package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// AlignUp rounds n up to the next multiple of step. A zero step returns n unchanged.
//
// Parameters:
//   - n: the value to round
//   - step: the alignment
//
// Returns:
//   - T: the smallest multiple of step that is >= n
func AlignUp[T ~uint32 | ~uint64](n, step T) T {
	if step == 0 {
		return n
	}
	if rem := n % step; rem != 0 {
		return n + step - rem
	}
	return n
}
