package model

import (
	"errors"
	"fmt"
)

var (
	ErrLengthMismatch  = errors.New("length mismatch")
	ErrMissingFeature  = errors.New("missing feature value")
	ErrDuplicateDriver = errors.New("duplicate driver")
)

// feature keys used by the prediction pipelines
const (
	KeyRace                   = "race" // identity key, carries the event name
	KeyDriver                 = "driver"
	KeyConstructor            = "constructor"
	KeyLap                    = "lap"
	KeyChange                 = "change"
	KeyFastestLap             = "fastest_lap"
	KeySeasonChange           = "season_change"
	KeyQualifying             = "qualifying"
	KeyGrid                   = "grid"
	KeyAverageForm            = "average_form"
	KeyAverageFormTeam        = "average_form_team"
	KeyCircuitAverageForm     = "circuit_average_form"
	KeyCircuitAverageFormTeam = "circuit_average_form_team"
	KeyPositionChanges        = "position_changes"
	KeyChampionshipStanding   = "championship_standing"
)

// FeatureRow holds all feature values of one driver.
type FeatureRow struct {
	Driver Driver
	Values map[string]float64
}

// FeatureSet is the oracle input for one event. Rows keep the driver order
// of the event; Keys define the iteration order of the features.
type FeatureSet struct {
	EventName string
	Keys      []string
	Rows      []FeatureRow
}

// NewFeatureSet creates an empty feature set for the given drivers.
func NewFeatureSet(eventName string, drivers []Driver) (*FeatureSet, error) {
	seen := make(map[int]struct{}, len(drivers))
	rows := make([]FeatureRow, len(drivers))
	for i, d := range drivers {
		if _, ok := seen[d.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateDriver, d.ID)
		}
		seen[d.ID] = struct{}{}
		rows[i] = FeatureRow{Driver: d, Values: map[string]float64{}}
	}
	return &FeatureSet{EventName: eventName, Rows: rows}, nil
}

// Set assigns one value per driver for key. The values must follow the row order.
func (fs *FeatureSet) Set(key string, values []float64) error {
	if len(values) != len(fs.Rows) {
		return fmt.Errorf("%w: feature %s has %d values, want %d",
			ErrLengthMismatch, key, len(values), len(fs.Rows))
	}
	if !fs.HasKey(key) {
		fs.Keys = append(fs.Keys, key)
	}
	for i := range fs.Rows {
		fs.Rows[i].Values[key] = values[i]
	}
	return nil
}

// Fill assigns the same value to every driver
func (fs *FeatureSet) Fill(key string, value float64) error {
	values := make([]float64, len(fs.Rows))
	for i := range values {
		values[i] = value
	}
	return fs.Set(key, values)
}

func (fs *FeatureSet) HasKey(key string) bool {
	for _, k := range fs.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Column returns the values of key in row order.
func (fs *FeatureSet) Column(key string) []float64 {
	ret := make([]float64, len(fs.Rows))
	for i, r := range fs.Rows {
		ret[i] = r.Values[key]
	}
	return ret
}

func (fs *FeatureSet) Drivers() []Driver {
	ret := make([]Driver, len(fs.Rows))
	for i, r := range fs.Rows {
		ret[i] = r.Driver
	}
	return ret
}

func (fs *FeatureSet) Len() int {
	return len(fs.Rows)
}

// Validate checks that every row carries a value for every key.
func (fs *FeatureSet) Validate() error {
	for _, r := range fs.Rows {
		for _, k := range fs.Keys {
			if _, ok := r.Values[k]; !ok {
				return fmt.Errorf("%w: driver %d, feature %s", ErrMissingFeature, r.Driver.ID, k)
			}
		}
	}
	return nil
}
