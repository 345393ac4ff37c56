package indicators

import "math"

// EMASeries computes a per-bar exponential moving average seeded at the
// first value, so it is defined from the very first bar with no warm-up
// gap:
//
//	alpha  = 2 / (span + 1)
//	ema[0] = x[0]
//	ema[i] = x[i]*alpha + ema[i-1]*(1-alpha)
func EMASeries(xs []float64, span int) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = xs[i]*alpha + out[i-1]*(1-alpha)
	}
	return out
}

// SMASeries computes a per-bar simple moving average over a trailing
// window. Values before the window fills are NaN.
func SMASeries(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	sum := 0.0
	for i, x := range xs {
		sum += x
		if i >= window {
			sum -= xs[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// RollingMeanLast returns the mean of the trailing window ending at the
// last element, or NaN when fewer than window values exist.
func RollingMeanLast(xs []float64, window int) float64 {
	if len(xs) < window {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs[len(xs)-window:] {
		sum += x
	}
	return sum / float64(window)
}
