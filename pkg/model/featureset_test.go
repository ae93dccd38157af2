package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureSet(t *testing.T) {
	drivers := []Driver{{ID: 1}, {ID: 20}, {ID: 8}}
	fs, err := NewFeatureSet("australian", drivers)
	require.NoError(t, err)

	require.NoError(t, fs.Set(KeyLap, []float64{0, 0.313, 0.5}))
	require.NoError(t, fs.Fill(KeyFastestLap, 76.979))
	require.NoError(t, fs.Set(KeyLap, []float64{0, 0.1, 0.2}))

	assert.Equal(t, []string{KeyLap, KeyFastestLap}, fs.Keys)
	assert.Equal(t, []float64{0, 0.1, 0.2}, fs.Column(KeyLap))
	assert.Equal(t, drivers, fs.Drivers())
	assert.Equal(t, 3, fs.Len())
	assert.NoError(t, fs.Validate())

	err = fs.Set(KeyChange, []float64{1})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	fs.Rows[1].Values = map[string]float64{KeyLap: 0}
	assert.ErrorIs(t, fs.Validate(), ErrMissingFeature)
}

func TestNewFeatureSetDuplicateDriver(t *testing.T) {
	_, err := NewFeatureSet("x", []Driver{{ID: 1}, {ID: 1}})
	assert.ErrorIs(t, err, ErrDuplicateDriver)
}
