package predict

import (
	"context"
	"sync"
	"time"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/api"
)

type fakeSource struct {
	events     map[int]model.Event
	previous   map[int]int
	lastYear   map[int]int
	entrants   map[int][]model.Entrant
	standings  map[int]map[int]int
	candidates map[int][]int
	seasons    map[int][]model.QualifyingLap
}

var _ api.Source = (*fakeSource)(nil)

func (f *fakeSource) event(id int, ok bool) (*model.Event, error) {
	if !ok {
		return nil, api.ErrNotFound
	}
	e, found := f.events[id]
	if !found {
		return nil, api.ErrNotFound
	}
	return &e, nil
}

func (f *fakeSource) EventByID(_ context.Context, id int) (*model.Event, error) {
	return f.event(id, true)
}

func (f *fakeSource) PreviousEvent(_ context.Context, id int) (*model.Event, error) {
	prev, ok := f.previous[id]
	return f.event(prev, ok)
}

//nolint:whitespace // test code
func (f *fakeSource) PreviousYearEventAtCircuit(
	_ context.Context, id int,
) (*model.Event, error) {
	prev, ok := f.lastYear[id]
	return f.event(prev, ok)
}

func (f *fakeSource) EvaluationEvents(context.Context) ([]int, error) {
	return nil, nil
}

//nolint:whitespace // test code
func (f *fakeSource) NextEvent(
	context.Context, model.SessionKind,
) (*model.Event, error) {
	return f.event(4, true)
}

//nolint:whitespace // test code
func (f *fakeSource) EntrantsForEvent(
	_ context.Context, eventID int,
) ([]model.Entrant, error) {
	return f.entrants[eventID], nil
}

//nolint:whitespace // test code
func (f *fakeSource) ActualResults(
	context.Context, model.SessionKind, int,
) ([]model.Placing, error) {
	return nil, nil
}

func (f *fakeSource) ResultsForDriver(context.Context, int) ([]model.Result, error) {
	return nil, nil
}

func (f *fakeSource) ResultsForConstructor(context.Context, int) ([]model.Result, error) {
	return nil, nil
}

//nolint:whitespace // test code
func (f *fakeSource) QualifyingLapsForDriver(
	context.Context, int,
) ([]model.QualifyingLap, error) {
	return nil, nil
}

//nolint:whitespace // test code
func (f *fakeSource) QualifyingLapsForConstructor(
	context.Context, int,
) ([]model.QualifyingLap, error) {
	return nil, nil
}

//nolint:whitespace // test code
func (f *fakeSource) SeasonLaps(
	_ context.Context, year int,
) ([]model.QualifyingLap, error) {
	return f.seasons[year], nil
}

//nolint:whitespace // test code
func (f *fakeSource) DriverStandings(
	_ context.Context, eventID int,
) (map[int]int, error) {
	return f.standings[eventID], nil
}

//nolint:whitespace // test code
func (f *fakeSource) SubstituteCandidates(
	_ context.Context, missing []int, _, _ int,
) (map[int][]int, error) {
	ret := map[int][]int{}
	for _, id := range missing {
		if c, ok := f.candidates[id]; ok {
			ret[id] = c
		}
	}
	return ret, nil
}

type fakeRegressor struct {
	mu     sync.Mutex
	calls  int
	last   *model.FeatureSet
	scores func(fs *model.FeatureSet) []float64
	err    error
}

func (f *fakeRegressor) Score(_ context.Context, fs *model.FeatureSet) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = fs
	if f.err != nil {
		return nil, f.err
	}
	return f.scores(fs), nil
}

// prefers row order, row i puts most weight on position i+1
type fakeClassifier struct {
	calls int
	last  *model.FeatureSet
}

//nolint:whitespace // test code
func (f *fakeClassifier) Classify(
	_ context.Context, fs *model.FeatureSet,
) ([][]float64, error) {
	f.calls++
	f.last = fs
	ret := make([][]float64, fs.Len())
	for i := range ret {
		ret[i] = make([]float64, fs.Len())
		for j := range ret[i] {
			ret[i][j] = 0.1
		}
		ret[i][i] = 0.9
	}
	return ret, nil
}

type failingLog struct {
	latestErr error
	appendErr error
}

//nolint:whitespace // test code
func (f failingLog) Latest(
	context.Context, model.SessionKind, string, time.Time,
) (*model.LogEntry, error) {
	return nil, f.latestErr
}

func (f failingLog) Append(context.Context, *model.LogEntry) error {
	return f.appendErr
}

func entrant(id, team, qualifying int, lap string) model.Entrant {
	return model.Entrant{
		Driver: model.Driver{
			ID: id, Ref: refs[id], ConstructorID: team, ConstructorRef: teams[team],
		},
		QualifyingPosition: qualifying,
		Lap:                model.MustParseLap(lap),
	}
}

func seasonLap(eventID, driverID, year, circuitID int, lap string) model.QualifyingLap {
	l := model.MustParseLap(lap)
	return model.QualifyingLap{
		EventID: eventID, Year: year, Round: 1, CircuitID: circuitID, DriverID: driverID,
		Best: l, Final: l,
	}
}

var (
	refs  = map[int]string{1: "hamilton", 2: "bottas", 3: "vettel", 4: "rosberg"}
	teams = map[int]string{10: "mercedes", 20: "ferrari"}
)

// Event 1 (2018, round 1) and 3 (2019, round 1) share a circuit. Driver 2
// joined after event 1 replacing driver 4. Event 4 has no qualifying yet.
func newFakeSource() *fakeSource {
	return &fakeSource{
		events: map[int]model.Event{
			1: {ID: 1, Year: 2018, Round: 1, CircuitID: 1, Name: "Australian Grand Prix"},
			2: {ID: 2, Year: 2018, Round: 2, CircuitID: 2, Name: "Bahrain Grand Prix"},
			3: {ID: 3, Year: 2019, Round: 1, CircuitID: 1, Name: "Australian Grand Prix"},
			4: {ID: 4, Year: 2019, Round: 2, CircuitID: 2, Name: "Bahrain Grand Prix"},
		},
		previous: map[int]int{2: 1, 3: 2, 4: 3},
		lastYear: map[int]int{3: 1, 4: 2},
		entrants: map[int][]model.Entrant{
			1: {
				entrant(1, 10, 1, "1:20.000"),
				entrant(3, 20, 2, "1:20.500"),
				entrant(4, 10, 3, "1:21.000"),
			},
			2: {
				entrant(3, 20, 1, "1:30.000"),
				entrant(1, 10, 2, "1:30.500"),
				entrant(2, 10, 3, "1:31.000"),
			},
			3: {
				entrant(1, 10, 1, "1:21.000"),
				entrant(2, 10, 2, "1:21.200"),
				entrant(3, 20, 3, "1:21.400"),
			},
			4: {
				entrant(1, 10, 0, ""),
				entrant(2, 10, 0, ""),
				entrant(3, 20, 0, ""),
			},
		},
		standings: map[int]map[int]int{
			2: {1: 1, 2: 3, 3: 2},
			3: {1: 1, 2: 2, 3: 3},
		},
		candidates: map[int][]int{2: {4}},
		seasons: map[int][]model.QualifyingLap{
			2018: {
				seasonLap(1, 1, 2018, 1, "1:20.000"),
				seasonLap(1, 3, 2018, 1, "1:20.500"),
			},
			2019: {
				seasonLap(3, 1, 2019, 1, "1:21.000"),
				seasonLap(3, 2, 2019, 1, "1:21.200"),
				seasonLap(3, 3, 2019, 1, "1:21.400"),
			},
		},
	}
}
