package fingerprint

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog/impl/memory"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/api"
)

type failingStore struct{ err error }

//nolint:whitespace // test code
func (f failingStore) Latest(
	context.Context, model.SessionKind, string, time.Time,
) (*model.LogEntry, error) {
	return nil, f.err
}

func (f failingStore) Append(context.Context, *model.LogEntry) error {
	return f.err
}

var sampleRanking = model.Ranking{
	{Driver: model.Driver{ID: 1}, Position: 1, Margin: null.From(0.0)},
	{Driver: model.Driver{ID: 20}, Position: 2, Margin: null.From(0.2)},
}

func TestCacheStoreAndLookup(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New(nil, nil)
	require.NoError(t, err)
	now := time.Date(2019, 3, 15, 10, 0, 0, 0, time.UTC)
	cache := NewCache(store, WithClock(func() time.Time { return now }))

	_, err = cache.Lookup(ctx, model.Qualifying, "abc")
	assert.ErrorIs(t, err, ErrCacheMiss)

	stored, err := cache.Store(ctx, model.Qualifying, "abc", "canonical", sampleRanking)
	require.NoError(t, err)
	assert.False(t, stored.ID.IsNil())

	got, err := cache.Lookup(ctx, model.Qualifying, "abc")
	require.NoError(t, err)
	assert.Equal(t, sampleRanking, got.Ranking)
	assert.Equal(t, "canonical", got.Features)

	_, err = cache.Lookup(ctx, model.Race, "abc")
	assert.ErrorIs(t, err, ErrCacheMiss, "kinds do not share entries")
}

func TestCacheValidityWindow(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	store, err := memory.New(nil, []memory.Option{memory.WithEntries(&model.LogEntry{
		Kind:        model.Race,
		Fingerprint: "abc",
		Ranking:     sampleRanking,
		CreatedAt:   created,
	})})
	require.NoError(t, err)

	tests := []struct {
		name    string
		now     time.Time
		wantHit bool
	}{
		{name: "inside window", now: created.Add(13 * 24 * time.Hour), wantHit: true},
		{name: "at the boundary", now: created.Add(DefaultValidity), wantHit: true},
		{name: "expired", now: created.Add(DefaultValidity + time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewCache(store, WithClock(func() time.Time { return tt.now }))
			_, err := cache.Lookup(ctx, model.Race, "abc")
			if tt.wantHit {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrCacheMiss)
			}
		})
	}
}

func TestCacheDistinguishesStoreFailures(t *testing.T) {
	boom := errors.New("connection refused")
	cache := NewCache(failingStore{err: boom})

	_, err := cache.Lookup(context.Background(), model.Race, "abc")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	_, err = NewCache(failingStore{err: api.ErrNotFound}).
		Lookup(context.Background(), model.Race, "abc")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = cache.Store(context.Background(), model.Race, "abc", "c", sampleRanking)
	assert.ErrorIs(t, err, boom)
}

func TestCacheIgnoresInvalidRanking(t *testing.T) {
	store, err := memory.New(nil, []memory.Option{memory.WithEntries(&model.LogEntry{
		Kind:        model.Race,
		Fingerprint: "abc",
		Ranking:     model.Ranking{{Position: 1}, {Position: 1}},
		CreatedAt:   time.Now(),
	})})
	require.NoError(t, err)
	_, err = NewCache(store).Lookup(context.Background(), model.Race, "abc")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
