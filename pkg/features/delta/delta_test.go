package delta

import (
	"context"
	"errors"
	"testing"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
)

func laps(s ...string) []model.LapTime {
	ret := make([]model.LapTime, len(s))
	for i, v := range s {
		ret[i] = model.MustParseLap(v)
	}
	return ret
}

func TestIntraEvent(t *testing.T) {
	tests := []struct {
		name    string
		laps    []model.LapTime
		want    []null.Val[float64]
		wantRef model.LapTime
	}{
		{
			name:    "missing lap stays missing",
			laps:    laps("1:16.979", "1:17.292", ""),
			want:    []null.Val[float64]{null.From(0.0), null.From(0.313), {}},
			wantRef: null.From(76.979),
		},
		{
			name:    "reference not first",
			laps:    laps("1:21.000", "", "1:20.500"),
			want:    []null.Val[float64]{null.From(0.5), {}, null.From(0.0)},
			wantRef: null.From(80.5),
		},
		{
			name: "no laps at all",
			laps: laps("", ""),
			want: []null.Val[float64]{{}, {}},
		},
		{name: "empty session", laps: nil, want: []null.Val[float64]{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ref := IntraEvent(tt.laps)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRef, ref)
		})
	}
}

func qlap(year, round, circuit, driver int, final string) model.QualifyingLap {
	return model.QualifyingLap{
		EventID:   year*100 + round,
		Year:      year,
		Round:     round,
		CircuitID: circuit,
		DriverID:  driver,
		Final:     model.MustParseLap(final),
	}
}

func TestSeasonIndex(t *testing.T) {
	idx := NewSeasonIndex([]model.QualifyingLap{
		qlap(2018, 1, 1, 1, ""),
		qlap(2018, 1, 1, 1, "1:20.000"),
		qlap(2018, 2, 1, 1, "1:21.000"),
		qlap(2018, 2, 2, 1, "1:30.000"),
	})
	assert.Equal(t, null.From(80.0), idx.Lap(1, 1), "null lap does not shadow a valid one")
	assert.Equal(t, null.From(90.0), idx.Lap(1, 2))
	assert.True(t, idx.Lap(2, 1).IsNull())
	// no string concatenation ambiguity between driver 1/circuit 12 and driver 11/circuit 2
	assert.True(t, idx.Lap(11, 2).IsNull())
}

func TestSeasonChange(t *testing.T) {
	prior := NewSeasonIndex([]model.QualifyingLap{
		qlap(2018, 1, 1, 1, "1:20.000"),
		qlap(2018, 2, 2, 1, "1:30.000"),
		qlap(2018, 1, 1, 7, "1:21.000"),
	})
	current := []model.QualifyingLap{
		qlap(2019, 1, 1, 1, "1:19.500"),
		qlap(2019, 2, 2, 1, "1:30.300"),
		qlap(2019, 3, 3, 1, "1:40.000"), // new circuit, nothing to compare
		qlap(2019, 4, 4, 1, ""),
	}
	assert.Equal(t, -0.1, SeasonChange(current, 1, prior))
	assert.Equal(t, -1.5, SeasonChange(current, 7, prior), "compared with stand in")
	assert.Equal(t, 0.0, SeasonChange(nil, 1, prior), "no history means no change")
	assert.Equal(t, 0.0, SeasonChange(current, 99, prior))
}

type fakeSeasons struct {
	laps map[int][]model.QualifyingLap
	err  error
}

//nolint:whitespace // test code
func (f *fakeSeasons) SeasonLaps(
	_ context.Context, year int,
) ([]model.QualifyingLap, error) {
	return f.laps[year], f.err
}

type standIns map[int]int

func (s standIns) StandIn(id int) (int, bool) {
	v, ok := s[id]
	return v, ok
}

func TestSeasonChanges(t *testing.T) {
	src := &fakeSeasons{laps: map[int][]model.QualifyingLap{
		2018: {
			qlap(2018, 1, 1, 1, "1:20.000"),
			qlap(2018, 1, 1, 7, "1:22.000"),
		},
		2019: {
			qlap(2019, 1, 1, 1, "1:19.000"),
			qlap(2019, 1, 1, 2, "1:21.000"),
			qlap(2019, 2, 5, 1, "1:10.000"),
			qlap(2019, 3, 1, 1, "1:00.000"), // target event itself is excluded
		},
	}}
	target := model.Event{ID: 201903, Year: 2019, Round: 3, CircuitID: 1}
	// driver 2 is a newcomer represented by driver 7, driver 3 has no history
	got, err := SeasonChanges(context.Background(), src, target,
		[]int{1, 2, 3}, standIns{1: 1, 2: 7})
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -1, 0}, got)
	assert.Equal(t, -0.667, Mean(got))
}

func TestSeasonChangesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := SeasonChanges(context.Background(), &fakeSeasons{err: boom},
		model.Event{Year: 2019}, []int{1}, standIns{})
	assert.ErrorIs(t, err, boom)
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.333, Mean([]float64{0, 0, 1}))
}
