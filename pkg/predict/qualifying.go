package predict

import (
	"context"
	"errors"
	"fmt"

	"github.com/aarondl/opt/null"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/pkg/features/aggregate"
	"github.com/mpapenbr/f1-prediction-engine/pkg/features/delta"
	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/ranking"
)

// PredictQualifying predicts the qualifying order of an event. The drivers
// are the entrants of the previous event, their lap feature is taken from
// the previous year's event at the same circuit.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) PredictQualifying(
	ctx context.Context,
	eventID int,
	disableCache bool,
) (ret *Prediction, err error) {
	ctx, span := s.tracer.Start(ctx, "predict qualifying",
		trace.WithAttributes(attribute.Int("event", eventID)))
	defer func() { endSpan(span, err) }()

	if s.regressor == nil {
		return nil, ErrNoOracle
	}
	l := s.requestLogger(model.Qualifying, eventID)
	event, fs, err := s.QualifyingFeatures(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, l, model.Qualifying, event, fs, disableCache,
		func(ctx context.Context) (model.Ranking, error) {
			scores, err := s.regressor.Score(ctx, fs)
			if err != nil {
				return nil, fmt.Errorf("score event %d: %w", eventID, err)
			}
			return ranking.FromScores(fs.Drivers(), scores)
		})
}

// QualifyingFeatures assembles the feature set of a qualifying prediction.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) QualifyingFeatures(
	ctx context.Context,
	eventID int,
) (*model.Event, *model.FeatureSet, error) {
	ctx, span := s.tracer.Start(ctx, "qualifying features")
	defer span.End()

	event, err := s.src.EventByID(ctx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("event %d: %w", eventID, err)
	}
	prev, err := s.src.PreviousEvent(ctx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("previous event of %d: %w", eventID, err)
	}
	ref, err := s.referenceEvent(ctx, event, prev)
	if err != nil {
		return nil, nil, err
	}
	entrants, err := s.src.EntrantsForEvent(ctx, prev.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("entrants of %d: %w", prev.ID, err)
	}
	if len(entrants) == 0 {
		return nil, nil, fmt.Errorf("%w: event %d", ErrNoEntrants, prev.ID)
	}
	refEntrants, err := s.src.EntrantsForEvent(ctx, ref.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("entrants of %d: %w", ref.ID, err)
	}

	drivers := driversOf(entrants)
	ids := driverIDs(drivers)
	subs, err := s.resolver.Resolve(ctx, ids, driverIDs(driversOf(refEntrants)),
		ref.ID, prev.ID)
	if err != nil {
		return nil, nil, err
	}

	refLaps := make([]model.LapTime, len(refEntrants))
	for i, e := range refEntrants {
		refLaps[i] = e.Lap
	}
	refDeltas, fastest := delta.IntraEvent(refLaps)
	byDriver := make(map[int]null.Val[float64], len(refEntrants))
	for i, e := range refEntrants {
		byDriver[e.Driver.ID] = refDeltas[i]
	}
	laps := make([]null.Val[float64], len(drivers))
	for i, id := range ids {
		if standIn, ok := subs.StandIn(id); ok {
			laps[i] = byDriver[standIn]
		}
	}

	changes, err := delta.SeasonChanges(ctx, s.src, *event, ids, subs)
	if err != nil {
		return nil, nil, err
	}
	form, err := s.forms.QualifyingForm(ctx, *event, prev.ID, drivers)
	if err != nil {
		return nil, nil, err
	}

	fs, err := model.NewFeatureSet(model.NormalizeEventName(event.Name), drivers)
	if err != nil {
		return nil, nil, err
	}
	err = errors.Join(
		fs.Set(model.KeyLap, aggregate.Impute(laps)),
		fs.Set(model.KeyChange, changes),
		fs.Fill(model.KeyFastestLap, fastest.GetOr(0)),
		fs.Fill(model.KeySeasonChange, delta.Mean(changes)),
		form.Apply(fs),
	)
	if err != nil {
		return nil, nil, err
	}
	s.l.Debug("qualifying features assembled",
		log.Int("event", eventID),
		log.Int("previous", prev.ID),
		log.Int("reference", ref.ID),
		log.Int("drivers", fs.Len()),
		log.Int("substituted", len(subs.Replaced())))
	return event, fs, nil
}

func driversOf(entrants []model.Entrant) []model.Driver {
	ret := make([]model.Driver, len(entrants))
	for i, e := range entrants {
		ret[i] = e.Driver
	}
	return ret
}

func driverIDs(drivers []model.Driver) []int {
	ret := make([]int, len(drivers))
	for i, d := range drivers {
		ret[i] = d.ID
	}
	return ret
}
