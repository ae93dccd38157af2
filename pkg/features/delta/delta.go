// Package delta converts lap times into gaps relative to a reference.
package delta

import (
	"context"
	"fmt"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
)

// IntraEvent returns the gap of every lap to the fastest lap of the session,
// rounded to 3 decimals. Missing laps stay missing and do not take part in
// finding the reference.
func IntraEvent(laps []model.LapTime) (deltas []null.Val[float64], reference model.LapTime) {
	for _, l := range laps {
		v, ok := l.Get()
		if !ok {
			continue
		}
		if reference.IsNull() || v < reference.MustGet() {
			reference = null.From(v)
		}
	}
	deltas = make([]null.Val[float64], len(laps))
	ref, ok := reference.Get()
	if !ok {
		return deltas, reference
	}
	for i, l := range laps {
		if v, ok := l.Get(); ok {
			deltas[i] = null.From(model.Round3(v - ref))
		}
	}
	return deltas, reference
}

type seasonKey struct {
	DriverID  int
	CircuitID int
}

// SeasonIndex holds the laps of one season by driver and circuit.
type SeasonIndex map[seasonKey]model.LapTime

// NewSeasonIndex indexes the final laps. The first valid lap of a driver at a
// circuit wins; a null lap never shadows a later valid lap at the same
// circuit in the season.
func NewSeasonIndex(laps []model.QualifyingLap) SeasonIndex {
	ret := SeasonIndex{}
	for _, l := range laps {
		if l.Final.IsNull() {
			continue
		}
		k := seasonKey{DriverID: l.DriverID, CircuitID: l.CircuitID}
		if _, ok := ret[k]; !ok {
			ret[k] = l.Final
		}
	}
	return ret
}

// Lap returns the lap of driverID at circuitID, null if there is none
func (s SeasonIndex) Lap(driverID, circuitID int) model.LapTime {
	return s[seasonKey{DriverID: driverID, CircuitID: circuitID}]
}

// SeasonChange compares the current laps of a driver with the laps of standIn
// at the same circuits in the prior season. The result is the mean gap rounded
// to 3 decimals, 0 if there is nothing to compare.
func SeasonChange(current []model.QualifyingLap, standIn int, prior SeasonIndex) float64 {
	sum, n := 0.0, 0
	for _, c := range current {
		cur, ok := c.Final.Get()
		if !ok {
			continue
		}
		prev, ok := prior.Lap(standIn, c.CircuitID).Get()
		if !ok {
			continue
		}
		sum += cur - prev
		n++
	}
	if n == 0 {
		return 0
	}
	return model.Round3(sum / float64(n))
}

// SeasonSource provides all qualifying laps of a season.
type SeasonSource interface {
	SeasonLaps(ctx context.Context, year int) ([]model.QualifyingLap, error)
}

// StandIns resolves the driver whose prior season laps represent a driver.
type StandIns interface {
	StandIn(id int) (int, bool)
}

// SeasonChanges computes SeasonChange for every driver of the batch. Only
// laps of the target season before the target event are considered.
// Drivers without a stand in are compared with their own prior season.
//
//nolint:whitespace // can't make both editor and linter happy
func SeasonChanges(
	ctx context.Context,
	src SeasonSource,
	target model.Event,
	drivers []int,
	standIns StandIns,
) ([]float64, error) {
	current, err := src.SeasonLaps(ctx, target.Year)
	if err != nil {
		return nil, fmt.Errorf("season laps %d: %w", target.Year, err)
	}
	priorLaps, err := src.SeasonLaps(ctx, target.Year-1)
	if err != nil {
		return nil, fmt.Errorf("season laps %d: %w", target.Year-1, err)
	}
	prior := NewSeasonIndex(priorLaps)

	byDriver := map[int][]model.QualifyingLap{}
	for _, l := range current {
		if l.Event().Before(target) {
			byDriver[l.DriverID] = append(byDriver[l.DriverID], l)
		}
	}
	ret := make([]float64, len(drivers))
	for i, id := range drivers {
		other := id
		if s, ok := standIns.StandIn(id); ok {
			other = s
		}
		ret[i] = SeasonChange(byDriver[id], other, prior)
	}
	return ret, nil
}

// Mean returns the mean of values rounded to 3 decimals, 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return model.Round3(sum / float64(len(values)))
}
