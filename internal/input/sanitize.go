package input

import "math"

// sanitizeCoord converts a floating point coordinate for a native int32 API:
// NaN and infinities become 0, finite values are clamped to the int32 range
// and rounded half away from zero.
func sanitizeCoord(v float64) int32 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	v = math.Max(v, math.MinInt32)
	v = math.Min(v, math.MaxInt32)
	return int32(math.Round(v))
}

// addClamped adds d to v, saturating at the int32 limits.
func addClamped(v, d int32) int32 {
	sum := int64(v) + int64(d)
	switch {
	case sum > math.MaxInt32:
		return math.MaxInt32
	case sum < math.MinInt32:
		return math.MinInt32
	}
	return int32(sum)
}

func abs64(v int64) uint64 {
	if v < 0 {
		return uint64(-(v + 1)) + 1
	}
	return uint64(v)
}
