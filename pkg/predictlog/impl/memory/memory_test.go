package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog/factory"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/api"
	"github.com/mpapenbr/f1-prediction-engine/testsupport/storetest"
)

func TestMemoryStore(t *testing.T) {
	store, err := factory.New[Option](StoreTypeMemory, nil, nil)
	require.NoError(t, err)
	storetest.Run(t, store)
}

func TestMemoryStoreDropsExpired(t *testing.T) {
	now := time.Now()
	old := &model.LogEntry{
		Kind:        model.Race,
		Fingerprint: "fp",
		CreatedAt:   now.Add(-2 * time.Hour),
	}
	store, err := New(
		[]predictlog.Option{predictlog.WithValidity(time.Hour)},
		[]Option{WithEntries(old)})
	require.NoError(t, err)

	_, err = store.Latest(context.Background(), model.Race, "fp", time.Time{})
	require.NoError(t, err)

	require.NoError(t, store.Append(context.Background(), &model.LogEntry{
		Kind: model.Race, Fingerprint: "other", CreatedAt: now,
	}))
	_, err = store.Latest(context.Background(), model.Race, "fp", time.Time{})
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestWrongCreator(t *testing.T) {
	_, err := factory.New[string](StoreTypeMemory, nil, nil)
	assert.ErrorIs(t, err, factory.ErrWrongCreator)
	_, err = factory.New[Option]("unknown", nil, nil)
	assert.ErrorIs(t, err, factory.ErrTypeNotSupported)
}
