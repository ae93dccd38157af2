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

// PredictRace predicts the finishing order of an event. If the qualifying
// of the event is not known yet, a qualifying prediction provides grid and
// qualifying gap.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) PredictRace(
	ctx context.Context,
	eventID int,
	disableCache bool,
) (ret *Prediction, err error) {
	ctx, span := s.tracer.Start(ctx, "predict race",
		trace.WithAttributes(attribute.Int("event", eventID)))
	defer func() { endSpan(span, err) }()

	if s.classifier == nil {
		return nil, ErrNoOracle
	}
	l := s.requestLogger(model.Race, eventID)
	event, fs, err := s.RaceFeatures(ctx, eventID, disableCache)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, l, model.Race, event, fs, disableCache,
		func(ctx context.Context) (model.Ranking, error) {
			probs, err := s.classifier.Classify(ctx, fs)
			if err != nil {
				return nil, fmt.Errorf("classify event %d: %w", eventID, err)
			}
			return ranking.FromProbabilities(fs.Drivers(), probs)
		})
}

// RaceFeatures assembles the feature set of a race prediction.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) RaceFeatures(
	ctx context.Context,
	eventID int,
	disableCache bool,
) (*model.Event, *model.FeatureSet, error) {
	ctx, span := s.tracer.Start(ctx, "race features")
	defer span.End()

	event, err := s.src.EventByID(ctx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("event %d: %w", eventID, err)
	}
	entrants, err := s.src.EntrantsForEvent(ctx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("entrants of %d: %w", eventID, err)
	}

	var drivers []model.Driver
	var grid, gap []float64
	if hasQualifying(entrants) {
		drivers, grid, gap = qualifyingOutcome(entrants)
	} else {
		s.l.Debug("no qualifying data, predicting qualifying first",
			log.Int("event", eventID))
		q, err := s.PredictQualifying(ctx, eventID, disableCache)
		if err != nil {
			return nil, nil, fmt.Errorf("qualifying for race %d: %w", eventID, err)
		}
		drivers, grid, gap = predictedOutcome(q.Ranking)
	}

	prev, err := s.standingsEvent(ctx, event)
	if err != nil {
		return nil, nil, err
	}
	form, err := s.forms.RaceForm(ctx, *event, prev.ID, drivers)
	if err != nil {
		return nil, nil, err
	}

	fs, err := model.NewFeatureSet(model.NormalizeEventName(event.Name), drivers)
	if err != nil {
		return nil, nil, err
	}
	err = errors.Join(
		fs.Set(model.KeyQualifying, gap),
		fs.Set(model.KeyGrid, grid),
		form.Apply(fs),
	)
	if err != nil {
		return nil, nil, err
	}
	s.l.Debug("race features assembled",
		log.Int("event", eventID),
		log.Int("drivers", fs.Len()))
	return event, fs, nil
}

func hasQualifying(entrants []model.Entrant) bool {
	for _, e := range entrants {
		if e.QualifyingPosition > 0 {
			return true
		}
	}
	return false
}

// qualifyingOutcome extracts grid and gap to the pole lap, missing values are
// imputed batch wise.
func qualifyingOutcome(entrants []model.Entrant) (drivers []model.Driver, grid, gap []float64) {
	laps := make([]model.LapTime, len(entrants))
	positions := make([]null.Val[float64], len(entrants))
	for i, e := range entrants {
		laps[i] = e.Lap
		if e.QualifyingPosition > 0 {
			positions[i] = null.From(float64(e.QualifyingPosition))
		}
	}
	deltas, _ := delta.IntraEvent(laps)
	return driversOf(entrants), aggregate.Impute(positions), aggregate.Impute(deltas)
}

func predictedOutcome(r model.Ranking) (drivers []model.Driver, grid, gap []float64) {
	drivers = make([]model.Driver, len(r))
	grid = make([]float64, len(r))
	gap = make([]float64, len(r))
	for i, e := range r {
		drivers[i] = e.Driver
		grid[i] = float64(e.Position)
		gap[i] = e.Margin.GetOr(0)
	}
	return drivers, grid, gap
}
