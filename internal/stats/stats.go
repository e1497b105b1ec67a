// Package stats computes summary statistics and empirical distributions over
// sample values. All functions are pure and never modify their input.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrEmptyDataset is returned when a statistic is requested over no values.
var ErrEmptyDataset = errors.New("empty dataset")

// Quantiles are the percentiles reported for every sample kind.
var Quantiles = []float64{0, 25, 50, 75, 90, 99, 100}

// sorted returns an ascending copy of values.
func sorted(values []float64) []float64 {
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	return s
}

// Percentile returns the p-th percentile (0 <= p <= 100) of values.
//
// The estimate is the median-unbiased one (Hyndman and Fan type 8): with n
// values the rank is h = (n + 1/3)·p/100 + 1/3 and the result interpolates
// between the order statistics around h, clamped to the minimum below rank
// 1 and to the maximum at rank n or above.
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyDataset
	}
	if p < 0 || p > 100 || math.IsNaN(p) {
		return 0, fmt.Errorf("percentile %v out of range [0, 100]", p)
	}
	return percentileSorted(sorted(values), p), nil
}

// percentileSorted expects a non-empty ascending slice.
func percentileSorted(s []float64, p float64) float64 {
	n := len(s)
	tau := p / 100
	h := (float64(n)+1.0/3)*tau + 1.0/3
	hf := int(math.Floor(h))

	switch {
	case tau == 0 || hf <= 0:
		return s[0]
	case tau == 1 || hf >= n:
		return s[n-1]
	}
	lo, hi := s[hf-1], s[hf]
	return lo + (h-float64(hf))*(hi-lo)
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyDataset
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values)), nil
}
