// Package stats provides the descriptive statistics shared by the outlier
// and sweep stages: single-pass summaries, a streaming accumulator, and
// rank-based quantile helpers.
package stats

import "math"

// Summary holds descriptive statistics of a sample.
//
// Variance and Std are population moments (divide by N, not N-1); CV is the
// coefficient of variation in percent, 100·Std/|Mean|, and 0 when the mean
// is zero.
type Summary struct {
	N        int
	Mean     float64
	Variance float64
	Std      float64
	Min      float64
	Max      float64
	CV       float64
}

// Describe computes a Summary in a single pass using Welford's online
// algorithm for numerical stability.
func Describe(xs []float64) Summary {
	n := len(xs)
	if n == 0 {
		return Summary{}
	}

	var (
		mean   float64
		m2     float64
		minVal = xs[0]
		maxVal = xs[0]
	)

	for i, x := range xs {
		delta := x - mean
		mean += delta / float64(i+1)
		m2 += delta * (x - mean)

		if x < minVal {
			minVal = x
		}

		if x > maxVal {
			maxVal = x
		}
	}

	variance := m2 / float64(n)
	std := math.Sqrt(variance)

	return Summary{
		N:        n,
		Mean:     mean,
		Variance: variance,
		Std:      std,
		Min:      minVal,
		Max:      maxVal,
		CV:       cv(mean, std),
	}
}

func cv(mean, std float64) float64 {
	if mean == 0 {
		return 0
	}

	return 100 * std / math.Abs(mean)
}

// Streaming accumulates a Summary incrementally across multiple values or
// blocks. It processes each value individually to guarantee bit-for-bit
// identical results with [Describe].
type Streaming struct {
	n      int
	mean   float64
	m2     float64
	minVal float64
	maxVal float64
}

// NewStreaming creates an empty streaming accumulator.
func NewStreaming() *Streaming {
	return &Streaming{}
}

// Push adds one value to the running statistics.
func (s *Streaming) Push(x float64) {
	s.n++

	delta := x - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (x - s.mean)

	if s.n == 1 {
		s.minVal = x
		s.maxVal = x

		return
	}

	if x < s.minVal {
		s.minVal = x
	}

	if x > s.maxVal {
		s.maxVal = x
	}
}

// PushAll adds a block of values.
func (s *Streaming) PushAll(xs []float64) {
	for _, x := range xs {
		s.Push(x)
	}
}

// N returns the number of accumulated values.
func (s *Streaming) N() int {
	return s.n
}

// Result computes the final Summary from the accumulated values.
func (s *Streaming) Result() Summary {
	if s.n == 0 {
		return Summary{}
	}

	variance := s.m2 / float64(s.n)
	std := math.Sqrt(variance)

	return Summary{
		N:        s.n,
		Mean:     s.mean,
		Variance: variance,
		Std:      std,
		Min:      s.minVal,
		Max:      s.maxVal,
		CV:       cv(s.mean, std),
	}
}

// Reset clears the accumulator for reuse.
func (s *Streaming) Reset() {
	*s = Streaming{}
}
