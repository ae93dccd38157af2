// Package storetest checks the behavior shared by all prediction log stores.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/api"
)

func entry(kind model.SessionKind, fp string, created time.Time, ids ...int) *model.LogEntry {
	r := make(model.Ranking, len(ids))
	for i, id := range ids {
		r[i] = model.RankingEntry{
			Driver:   model.Driver{ID: id, Ref: "d", ConstructorID: 10, ConstructorRef: "c"},
			Position: i + 1,
		}
	}
	r[0].Margin = null.From(0.25)
	return &model.LogEntry{
		Kind:        kind,
		Fingerprint: fp,
		Features:    "lap=0.1,0.2",
		Ranking:     r,
		CreatedAt:   created,
	}
}

// Run exercises store. Every store must start without entries for the
// fingerprints used here.
//
//nolint:funlen // ok for test code
func Run(t *testing.T, store api.PredictionLog) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)
	const fp = "3f2a9c"

	t.Run("empty", func(t *testing.T) {
		_, err := store.Latest(ctx, model.Qualifying, fp, base.Add(-time.Hour))
		assert.ErrorIs(t, err, api.ErrNotFound)
	})

	older := entry(model.Qualifying, fp, base.Add(-2*time.Hour), 1, 2, 3)
	newer := entry(model.Qualifying, fp, base.Add(-time.Hour), 3, 2, 1)
	require.NoError(t, store.Append(ctx, older))
	require.NoError(t, store.Append(ctx, newer))
	assert.False(t, newer.ID.IsNil(), "append assigns an id")

	t.Run("latest wins", func(t *testing.T) {
		got, err := store.Latest(ctx, model.Qualifying, fp, base.Add(-3*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, newer.ID, got.ID)
		assert.Equal(t, []int{3, 2, 1}, got.Ranking.DriverIDs())
		assert.Equal(t, 0.25, got.Ranking[0].Margin.MustGet())
		assert.True(t, got.Ranking[1].Margin.IsNull())
		assert.Equal(t, "lap=0.1,0.2", got.Features)
		assert.True(t, newer.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("not before", func(t *testing.T) {
		_, err := store.Latest(ctx, model.Qualifying, fp, base.Add(-30*time.Minute))
		assert.ErrorIs(t, err, api.ErrNotFound)
	})

	t.Run("kinds are separate", func(t *testing.T) {
		_, err := store.Latest(ctx, model.Race, fp, base.Add(-3*time.Hour))
		assert.ErrorIs(t, err, api.ErrNotFound)
	})

	t.Run("fingerprints are separate", func(t *testing.T) {
		_, err := store.Latest(ctx, model.Qualifying, "other", base.Add(-3*time.Hour))
		assert.ErrorIs(t, err, api.ErrNotFound)
	})
}
