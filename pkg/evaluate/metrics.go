package evaluate

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrUndefinedCorrelation = errors.New("correlation undefined")

// Spearman computes the rank correlation of x and y. Ties get the average of
// the ranks they span.
func Spearman(x, y []int) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("%w: %d vs %d values", ErrUndefinedCorrelation, len(x), len(y))
	}
	if len(x) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 values", ErrUndefinedCorrelation)
	}
	return pearson(ranks(toFloats(x)), ranks(toFloats(y)))
}

func toFloats(v []int) []float64 {
	ret := make([]float64, len(v))
	for i := range v {
		ret[i] = float64(v[i])
	}
	return ret
}

func ranks(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })
	ret := make([]float64, len(values))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		// ranks are 1 based, ties share the average
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ret[idx[k]] = avg
		}
		i = j + 1
	}
	return ret
}

func pearson(x, y []float64) (float64, error) {
	n := float64(len(x))
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n
	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, fmt.Errorf("%w: constant input", ErrUndefinedCorrelation)
	}
	return sxy / math.Sqrt(sxx*syy), nil
}
