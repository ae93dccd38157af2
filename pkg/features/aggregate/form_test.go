package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
)

type fakeHistory struct {
	driverResults map[int][]model.Result
	teamResults   map[int][]model.Result
	driverLaps    map[int][]model.QualifyingLap
	teamLaps      map[int][]model.QualifyingLap
	standings     map[int]int
	teamCalls     int
	err           error
}

func (f *fakeHistory) ResultsForDriver(_ context.Context, id int) ([]model.Result, error) {
	return f.driverResults[id], f.err
}

func (f *fakeHistory) ResultsForConstructor(_ context.Context, id int) ([]model.Result, error) {
	f.teamCalls++
	return f.teamResults[id], nil
}

//nolint:whitespace // test code
func (f *fakeHistory) QualifyingLapsForDriver(
	_ context.Context, id int,
) ([]model.QualifyingLap, error) {
	return f.driverLaps[id], f.err
}

//nolint:whitespace // test code
func (f *fakeHistory) QualifyingLapsForConstructor(
	_ context.Context, id int,
) ([]model.QualifyingLap, error) {
	f.teamCalls++
	return f.teamLaps[id], nil
}

func (f *fakeHistory) DriverStandings(_ context.Context, _ int) (map[int]int, error) {
	return f.standings, nil
}

func result(e model.Event, driver, team, grid, pos int) model.Result {
	r := model.Result{
		EventID: e.ID, Year: e.Year, Round: e.Round, CircuitID: e.CircuitID,
		DriverID: driver, ConstructorID: team, Grid: grid,
	}
	if pos > 0 {
		r.Position = null.From(pos)
	}
	return r
}

func TestBuilderRaceForm(t *testing.T) {
	target := ev(4, 2019, 4, 1)
	e1, e2, e3 := ev(1, 2019, 1, 1), ev(2, 2019, 2, 2), ev(3, 2019, 3, 3)
	src := &fakeHistory{
		driverResults: map[int][]model.Result{
			1: {result(e3, 1, 10, 2, 1), result(e2, 1, 10, 1, 3), result(e1, 1, 10, 3, 2)},
			2: {result(e3, 2, 10, 5, 4), result(e2, 2, 10, 6, 0)},
			// rookie without history
			3: nil,
		},
		teamResults: map[int][]model.Result{
			10: {result(e3, 1, 10, 2, 1), result(e3, 2, 10, 5, 4)},
		},
		standings: map[int]int{1: 1, 2: 5},
	}
	drivers := []model.Driver{
		{ID: 1, ConstructorID: 10},
		{ID: 2, ConstructorID: 10},
		{ID: 3, ConstructorID: 20},
	}
	form, err := NewBuilder(src).RaceForm(context.Background(), target, 3, drivers)
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 4, 3}, form.AverageForm)
	assert.Equal(t, []float64{2.5, 2.5, 2.5}, form.AverageFormTeam)
	// driver 1 raced at circuit 1 before, driver 2 falls back to the generic form
	assert.Equal(t, []float64{2, 4, 3}, form.CircuitAverageForm)
	// (1 - 2 + 1) / 3 and (5 - 4), the rookie gets the batch mean
	assert.Equal(t, []float64{0, 1, 0.5}, form.PositionChanges)
	assert.Equal(t, []float64{1, 5, 3}, form.ChampionshipStanding)
	assert.Equal(t, 2, src.teamCalls, "constructor stream is loaded once per team")

	fs, err := model.NewFeatureSet("australian", drivers)
	require.NoError(t, err)
	require.NoError(t, form.Apply(fs))
	assert.Equal(t, []string{
		model.KeyAverageForm,
		model.KeyAverageFormTeam,
		model.KeyCircuitAverageForm,
		model.KeyCircuitAverageFormTeam,
		model.KeyPositionChanges,
		model.KeyChampionshipStanding,
	}, fs.Keys)
}

func TestBuilderQualifyingForm(t *testing.T) {
	target := ev(4, 2019, 4, 1)
	e1, e2 := ev(1, 2019, 1, 1), ev(2, 2019, 2, 2)
	lap := func(e model.Event, driver int, best, sessionBest string) model.QualifyingLap {
		return model.QualifyingLap{
			EventID: e.ID, Year: e.Year, Round: e.Round, CircuitID: e.CircuitID,
			DriverID: driver, ConstructorID: 10,
			Best:        model.MustParseLap(best),
			SessionBest: model.MustParseLap(sessionBest),
		}
	}
	src := &fakeHistory{
		driverLaps: map[int][]model.QualifyingLap{
			1: {lap(e2, 1, "1:30.500", "1:30.000"), lap(e1, 1, "1:20.000", "1:20.000")},
			2: {lap(e2, 2, "", "1:30.000")},
		},
		teamLaps: map[int][]model.QualifyingLap{
			10: {lap(e2, 1, "1:30.500", "1:30.000"), lap(e1, 1, "1:20.000", "1:20.000")},
		},
	}
	drivers := []model.Driver{{ID: 1, ConstructorID: 10}, {ID: 2, ConstructorID: 10}}
	form, err := NewBuilder(src).QualifyingForm(context.Background(), target, 3, drivers)
	require.NoError(t, err)

	assert.Equal(t, []float64{0.25, 0.25}, form.AverageForm)
	assert.Equal(t, []float64{0, 0}, form.CircuitAverageForm)
	assert.Nil(t, form.PositionChanges)
	assert.Equal(t, []float64{0, 0}, form.ChampionshipStanding)
}

func TestBuilderPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeHistory{err: boom}
	_, err := NewBuilder(src).RaceForm(context.Background(), ev(2, 2019, 2, 1), 1,
		[]model.Driver{{ID: 1}})
	assert.ErrorIs(t, err, boom)
}
