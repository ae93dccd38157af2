// Package ranking turns oracle output into a complete ranking.
package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
)

var (
	ErrInvalidScore   = errors.New("invalid score")
	ErrShortRow       = errors.New("probability row shorter than number of drivers")
	ErrLengthMismatch = model.ErrLengthMismatch
)

// FromScores ranks drivers by ascending score. The margin of each entry is
// its score relative to the lowest score, rounded to 3 decimals. Equal scores
// keep the driver order.
func FromScores(drivers []model.Driver, scores []float64) (model.Ranking, error) {
	if len(drivers) != len(scores) {
		return nil, fmt.Errorf("%w: %d drivers, %d scores",
			ErrLengthMismatch, len(drivers), len(scores))
	}
	idx := make([]int, len(scores))
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: driver %d", ErrInvalidScore, drivers[i].ID)
		}
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] < scores[idx[b]]
	})
	ret := make(model.Ranking, len(idx))
	if len(idx) == 0 {
		return ret, nil
	}
	lowest := scores[idx[0]]
	for pos, i := range idx {
		ret[pos] = model.RankingEntry{
			Driver:   drivers[i],
			Position: pos + 1,
			Margin:   null.From(model.Round3(scores[i] - lowest)),
		}
	}
	return ret, nil
}

type candidate struct {
	position int
	driver   int
	weight   float64
}

// FromProbabilities assigns every position to exactly one driver.
// probs[d][p] is the probability of driver d finishing at position p+1; only
// the first len(drivers) columns are used. Each column is normalized by its
// sum (a zero column yields weight 0). Then the candidate with the highest
// weight among unassigned positions and drivers is picked repeatedly. Ties
// go to the candidate enumerated first, positions first then drivers.
// The margin of an entry is the weight of its assignment.
func FromProbabilities(drivers []model.Driver, probs [][]float64) (model.Ranking, error) {
	n := len(drivers)
	if len(probs) != n {
		return nil, fmt.Errorf("%w: %d drivers, %d probability rows",
			ErrLengthMismatch, n, len(probs))
	}
	for d, row := range probs {
		if len(row) < n {
			return nil, fmt.Errorf("%w: driver %d has %d values, want %d",
				ErrShortRow, drivers[d].ID, len(row), n)
		}
		for _, v := range row[:n] {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("%w: driver %d", ErrInvalidScore, drivers[d].ID)
			}
		}
	}

	candidates := make([]candidate, 0, n*n)
	for p := 0; p < n; p++ {
		sum := 0.0
		for d := 0; d < n; d++ {
			sum += probs[d][p]
		}
		for d := 0; d < n; d++ {
			w := 0.0
			if sum > 0 {
				w = probs[d][p] / sum
			}
			candidates = append(candidates, candidate{position: p, driver: d, weight: w})
		}
	}

	positionTaken := make([]bool, n)
	driverTaken := make([]bool, n)
	ret := make(model.Ranking, n)
	for assigned := 0; assigned < n; assigned++ {
		best := -1
		for i, c := range candidates {
			if positionTaken[c.position] || driverTaken[c.driver] {
				continue
			}
			if best == -1 || c.weight > candidates[best].weight {
				best = i
			}
		}
		c := candidates[best]
		positionTaken[c.position] = true
		driverTaken[c.driver] = true
		ret[c.position] = model.RankingEntry{
			Driver:   drivers[c.driver],
			Position: c.position + 1,
			Margin:   null.From(c.weight),
		}
	}
	return ret, nil
}
