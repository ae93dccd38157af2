// Package aggregate computes bounded window statistics over historical
// results and fills missing values batch wise.
package aggregate

import (
	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
)

const (
	DriverWindow      = 3
	ConstructorWindow = 6 // two cars per team
)

// Sample is one historical observation. Streams are ordered most recent first.
type Sample struct {
	Event model.Event
	Value null.Val[float64]
}

// RollingMean returns the mean of the first k samples which took place before
// target and carry a value. If no such sample exists the result is null.
func RollingMean(stream []Sample, target model.Event, k int) null.Val[float64] {
	return mean(stream, k, func(s Sample) bool {
		return s.Event.Before(target)
	})
}

// CircuitMean is RollingMean restricted to samples at the circuit of target.
// If there are none, fallback is returned.
func CircuitMean(
	stream []Sample,
	target model.Event,
	k int,
	fallback null.Val[float64],
) null.Val[float64] {
	ret := mean(stream, k, func(s Sample) bool {
		return s.Event.CircuitID == target.CircuitID && s.Event.Before(target)
	})
	if ret.IsNull() {
		return fallback
	}
	return ret
}

func mean(stream []Sample, k int, accept func(Sample) bool) null.Val[float64] {
	if k <= 0 {
		return null.Val[float64]{}
	}
	sum, n := 0.0, 0
	for _, s := range stream {
		v, ok := s.Value.Get()
		if !ok || !accept(s) {
			continue
		}
		sum += v
		n++
		if n == k {
			break
		}
	}
	if n == 0 {
		return null.Val[float64]{}
	}
	return null.From(sum / float64(n))
}

// Impute replaces missing values by the mean of the present values of the
// batch. The mean is computed before any value is filled. If all values are
// missing they become 0.
func Impute(values []null.Val[float64]) []float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if x, ok := v.Get(); ok {
			sum += x
			n++
		}
	}
	fill := 0.0
	if n > 0 {
		fill = sum / float64(n)
	}
	ret := make([]float64, len(values))
	for i, v := range values {
		ret[i] = v.GetOr(fill)
	}
	return ret
}
