package runtime

import "math"

// Arithmetic helpers backing operations the target has no single
// instruction for: 64-bit division and shifts, float to integer
// conversion, and three-way float comparison. Generated code calls them
// through the first symbol tier. All are pure.

// idiv64 divides with the language's wrapping semantics: the minimum value
// divided by -1 is itself. Zero divisors are excluded at the call site.
func idiv64(num, den int64) int64 {
	if den == -1 {
		return -num
	}
	return num / den
}

func irem64(num, den int64) int64 {
	if den == -1 {
		return 0
	}
	return num % den
}

// Shift amounts are masked to the operand width.

func shl64(v int64, shift uint32) int64 {
	return v << (shift & 63)
}

func shr64(v int64, shift uint32) int64 {
	return v >> (shift & 63)
}

func ushr64(v int64, shift uint32) int64 {
	return int64(uint64(v) >> (shift & 63))
}

// Conversions saturate at the integer bounds and map NaN to zero.

func d2i(v float64) int32 {
	switch {
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	case v != v:
		return 0
	default:
		return int32(v)
	}
}

func d2l(v float64) int64 {
	switch {
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	case v != v:
		return 0
	default:
		return int64(v)
	}
}

func f2i(v float32) int32 {
	return d2i(float64(v))
}

func f2l(v float32) int64 {
	return d2l(float64(v))
}

// Three-way comparisons. The l and g variants differ only in how they
// order an unordered pair: l ranks it below, g above.

func fcmpl(a, b float32) int32 {
	switch {
	case a > b:
		return 1
	case a == b:
		return 0
	case a < b:
		return -1
	default:
		return -1
	}
}

func fcmpg(a, b float32) int32 {
	switch {
	case a > b:
		return 1
	case a == b:
		return 0
	case a < b:
		return -1
	default:
		return 1
	}
}

func dcmpl(a, b float64) int32 {
	switch {
	case a > b:
		return 1
	case a == b:
		return 0
	case a < b:
		return -1
	default:
		return -1
	}
}

func dcmpg(a, b float64) int32 {
	switch {
	case a > b:
		return 1
	case a == b:
		return 0
	case a < b:
		return -1
	default:
		return 1
	}
}
