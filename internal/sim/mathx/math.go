package mathx

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// SmoothStep maps linear progress to an ease-in/ease-out curve.
// Zero slope at both ends, monotonic on [0,1].
func SmoothStep(t float64) float64 {
	t = Clamp01(t)
	return t * t * (3 - 2*t)
}
