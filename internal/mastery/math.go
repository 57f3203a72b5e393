package mastery

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// confidenceFor grows with evidence and saturates at 1: 1 - 1/(1+attempts).
func confidenceFor(attempts int) float64 {
	if attempts <= 0 {
		return 0
	}
	return clamp(1-1/(1+float64(attempts)), 0, 1)
}
