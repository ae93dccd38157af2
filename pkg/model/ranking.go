package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"
)

var ErrInvalidRanking = errors.New("invalid ranking")

type SessionKind string

const (
	Qualifying SessionKind = "qualifying"
	Race       SessionKind = "race"
)

func (k SessionKind) Valid() bool {
	return k == Qualifying || k == Race
}

// RankingEntry is a predicted position of a driver. For qualifying the margin
// is the gap to the fastest driver, for races the weight of the assignment.
type RankingEntry struct {
	Driver   Driver
	Position int
	Margin   null.Val[float64]
}

type rankingEntryJSON struct {
	Driver   Driver   `json:"driver"`
	Position int      `json:"position"`
	Margin   *float64 `json:"margin,omitempty"`
}

func (e RankingEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(rankingEntryJSON{
		Driver:   e.Driver,
		Position: e.Position,
		Margin:   e.Margin.Ptr(),
	})
}

func (e *RankingEntry) UnmarshalJSON(data []byte) error {
	var raw rankingEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Driver = raw.Driver
	e.Position = raw.Position
	e.Margin = null.FromPtr(raw.Margin)
	return nil
}

// Ranking is ordered by position
type Ranking []RankingEntry

// Validate ensures the positions are a permutation of 1..N and no driver
// appears twice.
func (r Ranking) Validate() error {
	positions := make([]bool, len(r)+1)
	drivers := make(map[int]struct{}, len(r))
	for _, e := range r {
		if e.Position < 1 || e.Position > len(r) {
			return fmt.Errorf("%w: position %d out of range 1..%d",
				ErrInvalidRanking, e.Position, len(r))
		}
		if positions[e.Position] {
			return fmt.Errorf("%w: duplicate position %d", ErrInvalidRanking, e.Position)
		}
		positions[e.Position] = true
		if _, ok := drivers[e.Driver.ID]; ok {
			return fmt.Errorf("%w: duplicate driver %d", ErrInvalidRanking, e.Driver.ID)
		}
		drivers[e.Driver.ID] = struct{}{}
	}
	return nil
}

// DriverIDs returns the driver ids in ranking order
func (r Ranking) DriverIDs() []int {
	ret := make([]int, len(r))
	for i, e := range r {
		ret[i] = e.Driver.ID
	}
	return ret
}

// LogEntry is an archived prediction.
type LogEntry struct {
	ID          uuid.UUID   `json:"id"`
	Kind        SessionKind `json:"kind"`
	Fingerprint string      `json:"fingerprint"`
	// canonical feature string the fingerprint was computed from
	Features  string    `json:"features"`
	Ranking   Ranking   `json:"ranking"`
	CreatedAt time.Time `json:"createdAt"`
}
