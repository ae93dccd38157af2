package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/api"
)

// ErrCacheMiss signals that no valid entry exists. Store failures are
// reported as different errors.
var ErrCacheMiss = errors.New("cache miss")

const DefaultValidity = 14 * 24 * time.Hour

type (
	Option func(*Cache)
	Cache  struct {
		store    api.PredictionLog
		validity time.Duration
		now      func() time.Time
		l        *log.Logger
	}
)

func WithValidity(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.validity = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		c.l = l
	}
}

func NewCache(store api.PredictionLog, opts ...Option) *Cache {
	ret := &Cache{
		store:    store,
		validity: DefaultValidity,
		now:      time.Now,
		l:        log.Default().Named("fingerprint"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (c *Cache) Validity() time.Duration {
	return c.validity
}

// Lookup returns the archived ranking for hash. Entries older than the
// validity window are treated as absent.
//
//nolint:whitespace // can't make both editor and linter happy
func (c *Cache) Lookup(
	ctx context.Context,
	kind model.SessionKind,
	hash string,
) (*model.LogEntry, error) {
	notBefore := c.now().Add(-c.validity)
	entry, err := c.store.Latest(ctx, kind, hash, notBefore)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache lookup %s: %w", hash, err)
	}
	// stores with coarse expiry may return entries slightly outside the window
	if entry.CreatedAt.Before(notBefore) {
		return nil, ErrCacheMiss
	}
	if err := entry.Ranking.Validate(); err != nil {
		c.l.Warn("ignoring invalid archived ranking",
			log.String("fingerprint", hash), log.ErrorField(err))
		return nil, ErrCacheMiss
	}
	return entry, nil
}

// Store appends a new entry for hash.
//
//nolint:whitespace // can't make both editor and linter happy
func (c *Cache) Store(
	ctx context.Context,
	kind model.SessionKind,
	hash, canonical string,
	ranking model.Ranking,
) (*model.LogEntry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	entry := &model.LogEntry{
		ID:          id,
		Kind:        kind,
		Fingerprint: hash,
		Features:    canonical,
		Ranking:     ranking,
		CreatedAt:   c.now().UTC(),
	}
	if err := c.store.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("cache store %s: %w", hash, err)
	}
	c.l.Debug("stored prediction",
		log.String("fingerprint", hash),
		log.String("kind", string(kind)),
		log.Int("entries", len(ranking)))
	return entry, nil
}
