package api

import (
	"context"
	"errors"
	"time"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
)

var ErrNotFound = errors.New("not found")

// EventRepository provides event metadata and the relations between events.
type EventRepository interface {
	EventByID(ctx context.Context, id int) (*model.Event, error)
	// PreviousEvent is the event immediately before id (may be in the prior season)
	PreviousEvent(ctx context.Context, id int) (*model.Event, error)
	// PreviousYearEventAtCircuit is the event at the same circuit one season before
	PreviousYearEventAtCircuit(ctx context.Context, id int) (*model.Event, error)
	// EvaluationEvents lists the events flagged for evaluation
	EvaluationEvents(ctx context.Context) ([]int, error)
	// NextEvent is the first event after the last one with data for kind
	NextEvent(ctx context.Context, kind model.SessionKind) (*model.Event, error)
}

// EntrantRepository provides the participants of an event.
type EntrantRepository interface {
	// EntrantsForEvent returns the qualifying entrants of the event. The order
	// is stable: qualifying position, unclassified last, then driver id.
	EntrantsForEvent(ctx context.Context, eventID int) ([]model.Entrant, error)
	// ActualResults returns the classified outcome of the session ordered by position
	ActualResults(
		ctx context.Context, kind model.SessionKind, eventID int) ([]model.Placing, error)
}

// HistoryRepository provides the historical streams, most recent first.
type HistoryRepository interface {
	ResultsForDriver(ctx context.Context, driverID int) ([]model.Result, error)
	ResultsForConstructor(ctx context.Context, constructorID int) ([]model.Result, error)
	QualifyingLapsForDriver(ctx context.Context, driverID int) ([]model.QualifyingLap, error)
	QualifyingLapsForConstructor(
		ctx context.Context, constructorID int) ([]model.QualifyingLap, error)
	SeasonLaps(ctx context.Context, year int) ([]model.QualifyingLap, error)
	DriverStandings(ctx context.Context, eventID int) (map[int]int, error)
}

// SubstitutionRepository finds team mates standing in for absent drivers.
type SubstitutionRepository interface {
	SubstituteCandidates(
		ctx context.Context,
		missing []int,
		referenceEventID, neededEventID int,
	) (map[int][]int, error)
}

// Source is the reference data needed to build predictions.
type Source interface {
	EventRepository
	EntrantRepository
	HistoryRepository
	SubstitutionRepository
}

// PredictionLog is an append only log of predictions used as cache.
type PredictionLog interface {
	// Latest returns the most recent entry for fingerprint created at or after
	// notBefore. ErrNotFound is returned if there is none.
	Latest(
		ctx context.Context,
		kind model.SessionKind,
		fingerprint string,
		notBefore time.Time,
	) (*model.LogEntry, error)
	// Append adds an entry. Existing entries are never modified.
	Append(ctx context.Context, entry *model.LogEntry) error
}
