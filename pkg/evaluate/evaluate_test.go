package evaluate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
)

type fakeResults struct {
	actual map[int][]model.Placing
	events []int
}

//nolint:whitespace // test code
func (f *fakeResults) ActualResults(
	_ context.Context, _ model.SessionKind, eventID int,
) ([]model.Placing, error) {
	return f.actual[eventID], nil
}

func (f *fakeResults) EvaluationEvents(context.Context) ([]int, error) {
	return f.events, nil
}

type fakePredictor struct {
	mu     sync.Mutex
	orders map[int][]int
	calls  []int
	err    error
}

//nolint:whitespace // test code
func (f *fakePredictor) Predict(
	_ context.Context, _ model.SessionKind, eventID int,
) (model.Ranking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, eventID)
	if f.err != nil {
		return nil, f.err
	}
	ret := model.Ranking{}
	for i, id := range f.orders[eventID] {
		ret = append(ret, model.RankingEntry{Driver: model.Driver{ID: id}, Position: i + 1})
	}
	return ret, nil
}

func placings(ids ...int) []model.Placing {
	ret := make([]model.Placing, len(ids))
	for i, id := range ids {
		ret[i] = model.Placing{DriverID: id, Position: i + 1}
	}
	return ret
}

func TestSpearman(t *testing.T) {
	tests := []struct {
		name string
		x, y []int
		want float64
	}{
		{"identical", []int{1, 2, 3, 4}, []int{1, 2, 3, 4}, 1},
		{"reversed", []int{4, 3, 2, 1}, []int{1, 2, 3, 4}, -1},
		{"ties get average rank", []int{1, 2, 2, 3}, []int{1, 2, 3, 4}, 0.948683},
		{"not ranks", []int{10, 30, 20}, []int{1, 3, 2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Spearman(tt.x, tt.y)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestSpearmanUndefined(t *testing.T) {
	_, err := Spearman([]int{1, 2}, []int{1})
	assert.ErrorIs(t, err, ErrUndefinedCorrelation)
	_, err = Spearman([]int{1}, []int{1})
	assert.ErrorIs(t, err, ErrUndefinedCorrelation)
	_, err = Spearman([]int{2, 2, 2}, []int{1, 2, 3})
	assert.ErrorIs(t, err, ErrUndefinedCorrelation)
}

func TestCompare(t *testing.T) {
	t.Run("perfect prediction", func(t *testing.T) {
		got, ok := Compare([]int{1, 2, 3, 4}, placings(1, 2, 3, 4))
		require.True(t, ok)
		assert.InDelta(t, 1.0, got.Coefficient, 1e-9)
		assert.True(t, got.WinnerCorrect)
		assert.True(t, got.PodiumCorrect)
		assert.True(t, got.PodiumAnyOrder)
		assert.Equal(t, 4, got.PositionsCorrect)
		assert.Equal(t, 4, got.Drivers)
	})
	t.Run("only common drivers are ranked again", func(t *testing.T) {
		actual := []model.Placing{
			{DriverID: 10, Position: 2},
			{DriverID: 20, Position: 5},
			{DriverID: 30, Position: 1},
			{DriverID: 40, Position: 3},
		}
		got, ok := Compare([]int{10, 20, 30, 99}, actual)
		require.True(t, ok)
		assert.Equal(t, 3, got.Drivers)
		assert.InDelta(t, -0.5, got.Coefficient, 1e-9)
		assert.False(t, got.WinnerCorrect)
		assert.False(t, got.PodiumCorrect)
		assert.True(t, got.PodiumAnyOrder)
		assert.Equal(t, 0, got.PositionsCorrect)
	})
	t.Run("two drivers", func(t *testing.T) {
		got, ok := Compare([]int{2, 1}, placings(1, 2))
		require.True(t, ok)
		assert.InDelta(t, -1.0, got.Coefficient, 1e-9)
		assert.True(t, got.PodiumAnyOrder)
		assert.False(t, got.PodiumCorrect)
	})
	t.Run("not enough common drivers", func(t *testing.T) {
		_, ok := Compare([]int{1, 7}, placings(1, 2))
		assert.False(t, ok)
	})
}

func TestSummarize(t *testing.T) {
	scores := []EventScore{
		{Drivers: 4, Coefficient: 1, WinnerCorrect: true, PodiumCorrect: true,
			PodiumAnyOrder: true, PositionsCorrect: 4},
		{Drivers: 3, Coefficient: -0.5, PodiumAnyOrder: true},
		{Drivers: 3, Coefficient: 0.5, WinnerCorrect: true, PositionsCorrect: 1},
	}
	assert.Equal(t, Metrics{
		Events:             3,
		WinnersCorrect:     0.667,
		PodiumsCorrect:     0.333,
		PodiumsAnyOrder:    0.667,
		PositionsCorrect:   0.5,
		AverageCoefficient: 0.333,
	}, Summarize(scores))
	assert.Equal(t, Metrics{}, Summarize(nil))
}

func TestEvaluateOverrides(t *testing.T) {
	results := &fakeResults{actual: map[int][]model.Placing{
		100: placings(1, 2, 3, 4),
		101: placings(4, 3, 2, 1),
		102: placings(1, 2),
	}}
	h := NewHarness(results)
	report, err := h.Evaluate(context.Background(), model.Race, nil, Overrides{
		100: {1, 2, 3, 4},
		101: {1, 2, 3, 4},
		102: {8, 9},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{102}, report.Skipped)
	require.Len(t, report.Scores, 2)
	assert.Equal(t, 100, report.Scores[0].EventID)
	assert.Equal(t, 101, report.Scores[1].EventID)
	assert.Equal(t, 2, report.Metrics.Events)
	assert.InDelta(t, 0.0, report.Metrics.AverageCoefficient, 1e-9)
	assert.InDelta(t, 0.5, report.Metrics.WinnersCorrect, 1e-9)
}

func TestEvaluateAllSkipped(t *testing.T) {
	results := &fakeResults{actual: map[int][]model.Placing{
		1: placings(1, 2),
		2: placings(1, 2, 3),
	}}
	h := NewHarness(results)
	report, err := h.Evaluate(context.Background(), model.Race, []int{1, 2}, Overrides{
		1: {8, 9},
		2: {3, 7},
	})
	assert.ErrorIs(t, err, ErrEmptyEvaluationSet)
	assert.Nil(t, report)
}

func TestEvaluateLive(t *testing.T) {
	results := &fakeResults{
		actual: map[int][]model.Placing{
			1: placings(5, 6, 7),
			2: placings(5, 6, 7),
			3: placings(5, 6, 7),
		},
		events: []int{1, 2, 3},
	}
	predictor := &fakePredictor{orders: map[int][]int{
		1: {5, 6, 7},
		3: {7, 6, 5},
	}}
	h := NewHarness(results, WithPredictor(predictor), WithParallel(2))
	report, err := h.Evaluate(context.Background(), model.Qualifying, nil,
		Overrides{2: {5, 7, 6}})
	require.NoError(t, err)
	// without explicit events only the archived ones are evaluated
	require.Len(t, report.Scores, 1)
	assert.Equal(t, 2, report.Scores[0].EventID)
	assert.Empty(t, predictor.calls)

	report, err = h.Evaluate(context.Background(), model.Qualifying, []int{1, 2, 3},
		Overrides{2: {5, 7, 6}})
	require.NoError(t, err)
	require.Len(t, report.Scores, 3)
	assert.InDelta(t, 1.0, report.Scores[0].Coefficient, 1e-9)
	assert.InDelta(t, 0.5, report.Scores[1].Coefficient, 1e-9)
	assert.InDelta(t, -1.0, report.Scores[2].Coefficient, 1e-9)
	assert.NotContains(t, predictor.calls, 2)
}

func TestEvaluateEventSelection(t *testing.T) {
	results := &fakeResults{
		actual: map[int][]model.Placing{1: placings(1, 2), 2: placings(1, 2)},
		events: []int{1, 2},
	}
	predictor := &fakePredictor{orders: map[int][]int{1: {1, 2}, 2: {1, 2}}}
	h := NewHarness(results, WithPredictor(predictor))

	report, err := h.Evaluate(context.Background(), model.Race, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Metrics.Events)
	assert.ElementsMatch(t, []int{1, 2}, predictor.calls)

	results.events = nil
	_, err = h.Evaluate(context.Background(), model.Race, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyEvaluationSet)
}

func TestEvaluateErrors(t *testing.T) {
	results := &fakeResults{actual: map[int][]model.Placing{1: placings(1, 2)}}
	_, err := NewHarness(results).Evaluate(context.Background(), model.Race, []int{1}, nil)
	assert.ErrorIs(t, err, ErrNoPredictor)

	boom := errors.New("oracle down")
	h := NewHarness(results, WithPredictor(&fakePredictor{err: boom}))
	_, err = h.Evaluate(context.Background(), model.Race, []int{1}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestParseOverrides(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Overrides
	}{
		{"json", `{"1010": [1, 20, 8], "1011": [20, 1]}`,
			Overrides{1010: {1, 20, 8}, 1011: {20, 1}}},
		{"yaml", "1010:\n  - 1\n  - 20\n1011: [20, 1]\n",
			Overrides{1010: {1, 20}, 1011: {20, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOverrides([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := ParseOverrides([]byte(`{"abc": [1]}`))
	assert.Error(t, err)
	assert.Equal(t, []int{1010, 1011}, Overrides{1011: nil, 1010: nil}.Events())
}
