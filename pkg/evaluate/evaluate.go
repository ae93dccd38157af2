// Package evaluate compares predicted rankings with actual results.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
)

var (
	ErrEmptyEvaluationSet = errors.New("no events to evaluate")
	ErrNoPredictor        = errors.New("no archived prediction and no predictor")
)

// Metrics summarize the evaluated events. All fractions are rounded to 3
// decimals.
type Metrics struct {
	Events             int
	WinnersCorrect     float64
	PodiumsCorrect     float64
	PodiumsAnyOrder    float64
	PositionsCorrect   float64
	AverageCoefficient float64
}

// EventScore is the comparison of one event.
type EventScore struct {
	EventID          int
	Drivers          int
	Coefficient      float64
	WinnerCorrect    bool
	PodiumCorrect    bool
	PodiumAnyOrder   bool
	PositionsCorrect int
}

type Report struct {
	Metrics Metrics
	Scores  []EventScore
	Skipped []int
}

// Predictor recomputes a prediction for an event.
type Predictor interface {
	Predict(ctx context.Context, kind model.SessionKind, eventID int) (model.Ranking, error)
}

// ResultSource provides the actual outcomes.
type ResultSource interface {
	ActualResults(
		ctx context.Context, kind model.SessionKind, eventID int) ([]model.Placing, error)
	EvaluationEvents(ctx context.Context) ([]int, error)
}

type Option func(*Harness)

func WithPredictor(p Predictor) Option {
	return func(h *Harness) { h.predictor = p }
}

// WithParallel limits the number of concurrent live predictions
func WithParallel(n int) Option {
	return func(h *Harness) {
		if n > 0 {
			h.parallel = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(h *Harness) { h.l = l }
}

type Harness struct {
	results   ResultSource
	predictor Predictor
	parallel  int
	l         *log.Logger
}

func NewHarness(results ResultSource, opts ...Option) *Harness {
	ret := &Harness{
		results:  results,
		parallel: 4,
		l:        log.Default().Named("evaluate"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Evaluate compares predictions of the given events with the actual results.
// Without eventIDs the events of overrides are used, without those the
// default evaluation events of the result source.
//
//nolint:whitespace // can't make both editor and linter happy
func (h *Harness) Evaluate(
	ctx context.Context,
	kind model.SessionKind,
	eventIDs []int,
	overrides Overrides,
) (*Report, error) {
	events, err := h.selectEvents(ctx, eventIDs, overrides)
	if err != nil {
		return nil, err
	}
	predicted, err := h.predictions(ctx, kind, events, overrides)
	if err != nil {
		return nil, err
	}

	ret := &Report{}
	for i, eventID := range events {
		actual, err := h.results.ActualResults(ctx, kind, eventID)
		if err != nil {
			return nil, fmt.Errorf("actual results of event %d: %w", eventID, err)
		}
		score, ok := Compare(predicted[i], actual)
		if !ok {
			h.l.Info("skipping event, not enough common drivers",
				log.Int("event", eventID))
			ret.Skipped = append(ret.Skipped, eventID)
			continue
		}
		score.EventID = eventID
		ret.Scores = append(ret.Scores, score)
	}
	if len(ret.Scores) == 0 {
		return nil, fmt.Errorf("%w: all %d events skipped",
			ErrEmptyEvaluationSet, len(ret.Skipped))
	}
	ret.Metrics = Summarize(ret.Scores)
	h.l.Debug("evaluation done",
		log.String("kind", string(kind)),
		log.Int("events", ret.Metrics.Events),
		log.Int("skipped", len(ret.Skipped)))
	return ret, nil
}

//nolint:whitespace // can't make both editor and linter happy
func (h *Harness) selectEvents(
	ctx context.Context,
	eventIDs []int,
	overrides Overrides,
) ([]int, error) {
	events := eventIDs
	if len(events) == 0 {
		events = overrides.Events()
	}
	if len(events) == 0 {
		var err error
		if events, err = h.results.EvaluationEvents(ctx); err != nil {
			return nil, fmt.Errorf("evaluation events: %w", err)
		}
	}
	if len(events) == 0 {
		return nil, ErrEmptyEvaluationSet
	}
	return events, nil
}

// predictions returns the predicted driver order per event, index aligned
// with events. Live predictions run concurrently.
//
//nolint:whitespace // can't make both editor and linter happy
func (h *Harness) predictions(
	ctx context.Context,
	kind model.SessionKind,
	events []int,
	overrides Overrides,
) ([][]int, error) {
	ret := make([][]int, len(events))
	if h.predictor == nil {
		for _, eventID := range events {
			if _, ok := overrides[eventID]; !ok {
				return nil, fmt.Errorf("event %d: %w", eventID, ErrNoPredictor)
			}
		}
	}
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(h.parallel)
	for i, eventID := range events {
		if o, ok := overrides[eventID]; ok {
			ret[i] = o
			continue
		}
		g.Go(func() error {
			r, err := h.predictor.Predict(gCtx, kind, eventID)
			if err != nil {
				return fmt.Errorf("predict event %d: %w", eventID, err)
			}
			ret[i] = r.DriverIDs()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Compare scores a predicted driver order against the actual placings.
// Only drivers present in both are compared, their actual positions are
// ranked again to 1..n. The second return value is false if less than two
// drivers could be compared.
func Compare(predicted []int, actual []model.Placing) (EventScore, bool) {
	positions := make(map[int]int, len(actual))
	for _, p := range actual {
		positions[p.DriverID] = p.Position
	}
	common := make([]int, 0, len(predicted))
	for _, id := range predicted {
		if pos, ok := positions[id]; ok {
			common = append(common, pos)
		}
	}
	if len(common) < 2 {
		return EventScore{}, false
	}
	actualRanks := rerank(common)
	system := make([]int, len(actualRanks))
	for i := range system {
		system[i] = i + 1
	}
	// both inputs are permutations of 1..n, the correlation is always defined
	coeff, _ := Spearman(actualRanks, system)

	ret := EventScore{
		Drivers:     len(actualRanks),
		Coefficient: coeff,
	}
	ret.WinnerCorrect = actualRanks[0] == 1
	podium := actualRanks[:min(3, len(actualRanks))]
	ret.PodiumCorrect = slices.Equal(podium, system[:len(podium)])
	sorted := slices.Clone(podium)
	slices.Sort(sorted)
	ret.PodiumAnyOrder = slices.Equal(sorted, system[:len(podium)])
	for i, r := range actualRanks {
		if r == i+1 {
			ret.PositionsCorrect++
		}
	}
	return ret, true
}

// Summarize aggregates event scores into metrics
func Summarize(scores []EventScore) Metrics {
	ret := Metrics{Events: len(scores)}
	if len(scores) == 0 {
		return ret
	}
	var winners, podiums, anyOrder, correct, drivers int
	var coeff float64
	for _, s := range scores {
		if s.WinnerCorrect {
			winners++
		}
		if s.PodiumCorrect {
			podiums++
		}
		if s.PodiumAnyOrder {
			anyOrder++
		}
		correct += s.PositionsCorrect
		drivers += s.Drivers
		coeff += s.Coefficient
	}
	n := float64(len(scores))
	ret.WinnersCorrect = model.Round3(float64(winners) / n)
	ret.PodiumsCorrect = model.Round3(float64(podiums) / n)
	ret.PodiumsAnyOrder = model.Round3(float64(anyOrder) / n)
	ret.PositionsCorrect = model.Round3(float64(correct) / float64(drivers))
	ret.AverageCoefficient = model.Round3(coeff / n)
	return ret
}

// rerank maps distinct positions onto 1..n keeping their order
func rerank(positions []int) []int {
	sorted := slices.Clone(positions)
	slices.Sort(sorted)
	ret := make([]int, len(positions))
	for i, p := range positions {
		ret[i], _ = slices.BinarySearch(sorted, p)
		ret[i]++
	}
	return ret
}

// PredictorFunc adapts a function to Predictor
type PredictorFunc func(
	ctx context.Context, kind model.SessionKind, eventID int) (model.Ranking, error)

//nolint:whitespace // can't make both editor and linter happy
func (f PredictorFunc) Predict(
	ctx context.Context,
	kind model.SessionKind,
	eventID int,
) (model.Ranking, error) {
	return f(ctx, kind, eventID)
}
