package ranking

import (
	"math"
	"math/rand"
	"testing"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
)

func drivers(ids ...int) []model.Driver {
	ret := make([]model.Driver, len(ids))
	for i, id := range ids {
		ret[i] = model.Driver{ID: id}
	}
	return ret
}

// positions returns driver ids by position
func positions(r model.Ranking) []int {
	ret := make([]int, len(r))
	for _, e := range r {
		ret[e.Position-1] = e.Driver.ID
	}
	return ret
}

func TestFromScores(t *testing.T) {
	tests := []struct {
		name        string
		scores      []float64
		wantOrder   []int
		wantMargins []float64
	}{
		{
			name:        "rebased to lowest score",
			scores:      []float64{1.2, 0.9, 1.5004},
			wantOrder:   []int{2, 1, 3},
			wantMargins: []float64{0, 0.3, 0.6},
		},
		{
			name:        "negative scores",
			scores:      []float64{-0.5, 0.25, -1},
			wantOrder:   []int{3, 1, 2},
			wantMargins: []float64{0, 0.5, 1.25},
		},
		{
			name:        "ties keep driver order",
			scores:      []float64{0.5, 0.1, 0.5},
			wantOrder:   []int{2, 1, 3},
			wantMargins: []float64{0, 0.4, 0.4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromScores(drivers(1, 2, 3), tt.scores)
			require.NoError(t, err)
			require.NoError(t, got.Validate())
			assert.Equal(t, tt.wantOrder, positions(got))
			margins := make([]float64, len(got))
			for i, e := range got {
				assert.Equal(t, i+1, e.Position)
				margins[i] = e.Margin.MustGet()
			}
			assert.Equal(t, tt.wantMargins, margins)
		})
	}
}

func TestFromScoresErrors(t *testing.T) {
	_, err := FromScores(drivers(1, 2), []float64{1})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = FromScores(drivers(1, 2), []float64{1, math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidScore)

	got, err := FromScores(nil, nil)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestFromScoresMinimumMarginIsZero(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		n := 1 + rnd.Intn(20)
		scores := make([]float64, n)
		ids := make([]int, n)
		for j := range scores {
			scores[j] = rnd.NormFloat64() * 3
			ids[j] = j + 1
		}
		got, err := FromScores(drivers(ids...), scores)
		require.NoError(t, err)
		require.NoError(t, got.Validate())
		assert.Equal(t, null.From(0.0), got[0].Margin)
	}
}

func TestFromProbabilities(t *testing.T) {
	tests := []struct {
		name  string
		probs [][]float64
		want  []int
	}{
		{
			name:  "unique maxima",
			probs: [][]float64{{0.9, 0.1}, {0.2, 0.8}},
			want:  []int{10, 11},
		},
		{
			name:  "tie goes to the first enumerated position",
			probs: [][]float64{{0.6, 0.6}, {0.4, 0.4}},
			want:  []int{10, 11},
		},
		{
			name:  "both drivers prefer the same position",
			probs: [][]float64{{0.7, 0.3}, {0.9, 0.1}},
			// normalized: p1 = {0.4375, 0.5625}, p2 = {0.75, 0.25}
			want: []int{11, 10},
		},
		{
			name:  "zero column",
			probs: [][]float64{{0.5, 0, 0.5}, {0.5, 0, 0.5}, {0, 0, 1}},
			// p1 tie goes to 10, 12 wins p3, 11 is left with the zero column
			want: []int{10, 11, 12},
		},
		{
			name:  "extra columns are ignored",
			probs: [][]float64{{0.1, 0.2, 0.7}, {0.2, 0.1, 0.7}},
			want:  []int{11, 10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromProbabilities(drivers(10, 11, 12)[:len(tt.probs)], tt.probs)
			require.NoError(t, err)
			require.NoError(t, got.Validate())
			assert.Equal(t, tt.want, positions(got))
			for i, e := range got {
				assert.Equal(t, i+1, e.Position, "sorted by position")
			}
		})
	}
}

func TestFromProbabilitiesMargin(t *testing.T) {
	got, err := FromProbabilities(drivers(1, 2), [][]float64{{0.9, 0.1}, {0.2, 0.8}})
	require.NoError(t, err)
	assert.InDelta(t, 0.9/1.1, got[0].Margin.MustGet(), 1e-12)
	assert.InDelta(t, 0.8/0.9, got[1].Margin.MustGet(), 1e-12)
}

func TestFromProbabilitiesErrors(t *testing.T) {
	_, err := FromProbabilities(drivers(1, 2), [][]float64{{0.5, 0.5}})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = FromProbabilities(drivers(1, 2), [][]float64{{0.5, 0.5}, {1}})
	assert.ErrorIs(t, err, ErrShortRow)

	_, err = FromProbabilities(drivers(1), [][]float64{{math.NaN()}})
	assert.ErrorIs(t, err, ErrInvalidScore)
}

func TestFromProbabilitiesIsPermutation(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		n := 1 + rnd.Intn(20)
		ids := make([]int, n)
		probs := make([][]float64, n)
		for d := range probs {
			ids[d] = 100 + d
			probs[d] = make([]float64, 20)
			for p := range probs[d] {
				// coarse values to provoke ties, some zero columns
				probs[d][p] = float64(rnd.Intn(4)) / 4
			}
		}
		got, err := FromProbabilities(drivers(ids...), probs)
		require.NoError(t, err)
		require.Len(t, got, n)
		require.NoError(t, got.Validate())
	}
}
