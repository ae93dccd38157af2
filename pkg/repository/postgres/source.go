// Package postgres provides the reference data of the prediction pipelines
// from a PostgreSQL database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/api"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/entrant"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/event"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/history"
	"github.com/mpapenbr/f1-prediction-engine/pkg/utils/cache"
	"github.com/mpapenbr/f1-prediction-engine/pkg/utils/cache/loadercache"
)

// Connector creates a new pool, used by Reconnect
type Connector func(ctx context.Context) (*pgxpool.Pool, error)

type Option func(*Client)

func WithConnector(c Connector) Option {
	return func(cl *Client) { cl.connect = c }
}

// WithEventCacheDuration sets how long event metadata is kept
func WithEventCacheDuration(d time.Duration) Option {
	return func(cl *Client) { cl.eventTTL = d }
}

func WithLogger(l *log.Logger) Option {
	return func(cl *Client) { cl.l = l }
}

// Client implements api.Source. The pool is owned by the client and may be
// replaced by Reconnect.
type Client struct {
	mu       sync.RWMutex
	pool     *pgxpool.Pool
	connect  Connector
	eventTTL time.Duration
	events   cache.Cache[int, model.Event]
	l        *log.Logger
}

var _ api.Source = (*Client)(nil)

func New(pool *pgxpool.Pool, opts ...Option) *Client {
	ret := &Client{
		pool:     pool,
		eventTTL: time.Hour,
		l:        log.Default().Named("source"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.events = loadercache.New(
		loadercache.WithLoader[int, model.Event](func(ctx context.Context, id int) (*model.Event, error) {
			return withQuerier(ctx, ret, func(q repository.Querier) (*model.Event, error) {
				return event.LoadByID(ctx, q, id)
			})
		}),
		loadercache.WithExpiration[int, model.Event](ret.eventTTL),
		loadercache.WithLogger[int, model.Event](ret.l.Named("events")),
	)
	return ret
}

// Reconnect replaces the pool with a new one created by the connector. The
// old pool is closed after the new one is in place.
func (c *Client) Reconnect(ctx context.Context) error {
	if c.connect == nil {
		return errors.New("no connector configured")
	}
	pool, err := c.connect(ctx)
	if err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	c.mu.Lock()
	old := c.pool
	c.pool = pool
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}
	c.events.InvalidateAll(ctx)
	c.l.Info("reconnected to database")
	return nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}

func (c *Client) querier() (repository.Querier, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pool == nil {
		return nil, errors.New("client is closed")
	}
	return c.pool, nil
}

// withQuerier runs f with the current pool and maps pgx.ErrNoRows to api.ErrNotFound
//
//nolint:whitespace // can't make both editor and linter happy
func withQuerier[T any](
	ctx context.Context,
	c *Client,
	f func(q repository.Querier) (T, error),
) (T, error) {
	var zero T
	q, err := c.querier()
	if err != nil {
		return zero, err
	}
	ret, err := f(q)
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, api.ErrNotFound
	}
	return ret, err
}

func (c *Client) EventByID(ctx context.Context, id int) (*model.Event, error) {
	e, err := c.events.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *e
	return &cp, nil
}

func (c *Client) PreviousEvent(ctx context.Context, id int) (*model.Event, error) {
	return withQuerier(ctx, c, func(q repository.Querier) (*model.Event, error) {
		return event.LoadPrevious(ctx, q, id)
	})
}

//nolint:whitespace // can't make both editor and linter happy
func (c *Client) PreviousYearEventAtCircuit(
	ctx context.Context,
	id int,
) (*model.Event, error) {
	return withQuerier(ctx, c, func(q repository.Querier) (*model.Event, error) {
		return event.LoadPreviousYearAtCircuit(ctx, q, id)
	})
}

//nolint:whitespace // can't make both editor and linter happy
func (c *Client) NextEvent(
	ctx context.Context,
	kind model.SessionKind,
) (*model.Event, error) {
	return withQuerier(ctx, c, func(q repository.Querier) (*model.Event, error) {
		return event.LoadNext(ctx, q, kind)
	})
}

func (c *Client) EvaluationEvents(ctx context.Context) ([]int, error) {
	return withQuerier(ctx, c, func(q repository.Querier) ([]int, error) {
		return event.LoadEvaluationIDs(ctx, q)
	})
}

//nolint:whitespace // can't make both editor and linter happy
func (c *Client) EntrantsForEvent(
	ctx context.Context,
	eventID int,
) ([]model.Entrant, error) {
	return withQuerier(ctx, c, func(q repository.Querier) ([]model.Entrant, error) {
		return entrant.LoadByEvent(ctx, q, eventID)
	})
}

//nolint:whitespace // can't make both editor and linter happy
func (c *Client) ActualResults(
	ctx context.Context,
	kind model.SessionKind,
	eventID int,
) ([]model.Placing, error) {
	return withQuerier(ctx, c, func(q repository.Querier) ([]model.Placing, error) {
		return entrant.LoadPlacings(ctx, q, kind, eventID)
	})
}

//nolint:whitespace // can't make both editor and linter happy
func (c *Client) SubstituteCandidates(
	ctx context.Context,
	missing []int,
	referenceEventID, neededEventID int,
) (map[int][]int, error) {
	return withQuerier(ctx, c, func(q repository.Querier) (map[int][]int, error) {
		return entrant.LoadSubstituteCandidates(ctx, q, missing,
			referenceEventID, neededEventID)
	})
}

//nolint:whitespace // can't make both editor and linter happy
func (c *Client) ResultsForDriver(
	ctx context.Context,
	driverID int,
) ([]model.Result, error) {
	return withQuerier(ctx, c, func(q repository.Querier) ([]model.Result, error) {
		return history.ResultsByDriver(ctx, q, driverID)
	})
}

//nolint:whitespace // can't make both editor and linter happy
func (c *Client) ResultsForConstructor(
	ctx context.Context,
	constructorID int,
) ([]model.Result, error) {
	return withQuerier(ctx, c, func(q repository.Querier) ([]model.Result, error) {
		return history.ResultsByConstructor(ctx, q, constructorID)
	})
}

//nolint:whitespace // can't make both editor and linter happy
func (c *Client) QualifyingLapsForDriver(
	ctx context.Context,
	driverID int,
) ([]model.QualifyingLap, error) {
	return withQuerier(ctx, c, func(q repository.Querier) ([]model.QualifyingLap, error) {
		return history.QualifyingByDriver(ctx, q, driverID)
	})
}

//nolint:whitespace // can't make both editor and linter happy
func (c *Client) QualifyingLapsForConstructor(
	ctx context.Context,
	constructorID int,
) ([]model.QualifyingLap, error) {
	return withQuerier(ctx, c, func(q repository.Querier) ([]model.QualifyingLap, error) {
		return history.QualifyingByConstructor(ctx, q, constructorID)
	})
}

//nolint:whitespace // can't make both editor and linter happy
func (c *Client) SeasonLaps(
	ctx context.Context,
	year int,
) ([]model.QualifyingLap, error) {
	return withQuerier(ctx, c, func(q repository.Querier) ([]model.QualifyingLap, error) {
		return history.QualifyingBySeason(ctx, q, year)
	})
}

//nolint:whitespace // can't make both editor and linter happy
func (c *Client) DriverStandings(
	ctx context.Context,
	eventID int,
) (map[int]int, error) {
	return withQuerier(ctx, c, func(q repository.Querier) (map[int]int, error) {
		return history.DriverStandings(ctx, q, eventID)
	})
}
