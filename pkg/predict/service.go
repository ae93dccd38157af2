// Package predict assembles feature sets, consults the prediction log and
// turns oracle output into rankings.
package predict

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/pkg/features/aggregate"
	"github.com/mpapenbr/f1-prediction-engine/pkg/features/substitution"
	"github.com/mpapenbr/f1-prediction-engine/pkg/fingerprint"
	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/oracle"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/api"
)

var (
	ErrNoSource    = errors.New("no data source configured")
	ErrNoOracle    = errors.New("no oracle configured")
	ErrUnknownKind = errors.New("unknown session kind")
	ErrNoEntrants  = errors.New("no entrants")
)

const instrumentation = "github.com/mpapenbr/f1-prediction-engine/pkg/predict"

// Prediction is the outcome of a pipeline run.
type Prediction struct {
	Event       model.Event
	Kind        model.SessionKind
	Ranking     model.Ranking
	CacheHit    bool
	Fingerprint string
}

type Option func(*Service)

func WithSource(src api.Source) Option {
	return func(s *Service) { s.src = src }
}

// WithOracle sets the models used for qualifying and race predictions
func WithOracle(qualifying oracle.Regressor, race oracle.Classifier) Option {
	return func(s *Service) {
		s.regressor = qualifying
		s.classifier = race
	}
}

// WithCache enables the prediction log. Without a cache every request calls
// the oracle.
func WithCache(c *fingerprint.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

func WithMeter(meter metric.Meter) Option {
	return func(s *Service) { s.meter = meter }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.l = l }
}

type Service struct {
	src        api.Source
	regressor  oracle.Regressor
	classifier oracle.Classifier
	cache      *fingerprint.Cache
	tracer     trace.Tracer
	meter      metric.Meter
	l          *log.Logger

	forms       *aggregate.Builder
	resolver    *substitution.Resolver
	cacheLookup metric.Int64Counter
	oracleCalls metric.Int64Counter
}

func NewService(opts ...Option) (*Service, error) {
	ret := &Service{l: log.Default().Named("predict")}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.src == nil {
		return nil, ErrNoSource
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer(instrumentation)
	}
	if ret.meter == nil {
		ret.meter = otel.Meter(instrumentation)
	}
	var err error
	if ret.cacheLookup, err = ret.meter.Int64Counter("fpe.prediction.cache",
		metric.WithDescription("prediction log lookups by result")); err != nil {
		return nil, err
	}
	if ret.oracleCalls, err = ret.meter.Int64Counter("fpe.oracle.calls",
		metric.WithDescription("oracle requests by session kind")); err != nil {
		return nil, err
	}
	ret.forms = aggregate.NewBuilder(ret.src)
	ret.resolver = substitution.NewResolver(ret.src)
	return ret, nil
}

// Predict dispatches to the pipeline of kind
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) Predict(
	ctx context.Context,
	kind model.SessionKind,
	eventID int,
	disableCache bool,
) (*Prediction, error) {
	switch kind {
	case model.Qualifying:
		return s.PredictQualifying(ctx, eventID, disableCache)
	case model.Race:
		return s.PredictRace(ctx, eventID, disableCache)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// run executes the cache and oracle part shared by both pipelines.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) run(
	ctx context.Context,
	l *log.Logger,
	kind model.SessionKind,
	event *model.Event,
	fs *model.FeatureSet,
	disableCache bool,
	predict func(ctx context.Context) (model.Ranking, error),
) (*Prediction, error) {
	if err := fs.Validate(); err != nil {
		return nil, err
	}
	hash, canonical := fingerprint.Fingerprint(fs)
	ret := &Prediction{Event: *event, Kind: kind, Fingerprint: hash}
	l = l.With(log.String("fingerprint", hash))

	if s.cache != nil && !disableCache {
		entry, err := s.lookup(ctx, kind, hash)
		switch {
		case err == nil:
			l.Debug("using archived prediction", log.Time("created", entry.CreatedAt))
			ret.Ranking = entry.Ranking
			ret.CacheHit = true
			return ret, nil
		case !errors.Is(err, fingerprint.ErrCacheMiss):
			return nil, err
		}
	}

	oracleCtx, span := s.tracer.Start(ctx, "oracle",
		trace.WithAttributes(attribute.String("kind", string(kind))))
	s.oracleCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	ranking, err := predict(oracleCtx)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	ret.Ranking = ranking

	if s.cache != nil {
		if _, err := s.cache.Store(ctx, kind, hash, canonical, ranking); err != nil {
			l.Warn("could not archive prediction", log.ErrorField(err))
		}
	}
	l.Debug("prediction computed", log.Int("drivers", len(ranking)))
	return ret, nil
}

//nolint:whitespace // can't make both editor and linter happy
func (s *Service) lookup(
	ctx context.Context,
	kind model.SessionKind,
	hash string,
) (*model.LogEntry, error) {
	ctx, span := s.tracer.Start(ctx, "cache lookup")
	defer span.End()
	entry, err := s.cache.Lookup(ctx, kind, hash)
	result := "hit"
	switch {
	case errors.Is(err, fingerprint.ErrCacheMiss):
		result = "miss"
	case err != nil:
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.cacheLookup.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("result", result)))
	return entry, err
}

//nolint:whitespace // can't make both editor and linter happy
func (s *Service) requestLogger(
	kind model.SessionKind,
	eventID int,
) *log.Logger {
	return s.l.With(
		log.String("request", uuid.NewString()),
		log.String("kind", string(kind)),
		log.Int("event", eventID))
}

// referenceEvent is the previous year's event at the same circuit, the
// previous event if there is none.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) referenceEvent(
	ctx context.Context,
	target *model.Event,
	previous *model.Event,
) (*model.Event, error) {
	ref, err := s.src.PreviousYearEventAtCircuit(ctx, target.ID)
	if errors.Is(err, api.ErrNotFound) {
		return previous, nil
	}
	if err != nil {
		return nil, fmt.Errorf("previous year event of %d: %w", target.ID, err)
	}
	return ref, nil
}

// standingsEvent returns the id of the event whose standings apply to target.
// 0 is returned for the first event of the data.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) standingsEvent(
	ctx context.Context,
	target *model.Event,
) (*model.Event, error) {
	prev, err := s.src.PreviousEvent(ctx, target.ID)
	if errors.Is(err, api.ErrNotFound) {
		return &model.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("previous event of %d: %w", target.ID, err)
	}
	return prev, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
