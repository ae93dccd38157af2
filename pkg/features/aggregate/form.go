package aggregate

import (
	"context"
	"fmt"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
)

// HistorySource provides the historical streams, most recent first.
type HistorySource interface {
	ResultsForDriver(ctx context.Context, driverID int) ([]model.Result, error)
	ResultsForConstructor(ctx context.Context, constructorID int) ([]model.Result, error)
	QualifyingLapsForDriver(ctx context.Context, driverID int) ([]model.QualifyingLap, error)
	QualifyingLapsForConstructor(
		ctx context.Context, constructorID int) ([]model.QualifyingLap, error)
	// DriverStandings maps driver id to championship position after the event
	DriverStandings(ctx context.Context, eventID int) (map[int]int, error)
}

// Form holds the imputed form features of a driver batch in driver order.
type Form struct {
	AverageForm            []float64
	AverageFormTeam        []float64
	CircuitAverageForm     []float64
	CircuitAverageFormTeam []float64
	PositionChanges        []float64 // race only
	ChampionshipStanding   []float64
}

// Apply copies the form values into fs.
func (f *Form) Apply(fs *model.FeatureSet) error {
	cols := []struct {
		key    string
		values []float64
	}{
		{model.KeyAverageForm, f.AverageForm},
		{model.KeyAverageFormTeam, f.AverageFormTeam},
		{model.KeyCircuitAverageForm, f.CircuitAverageForm},
		{model.KeyCircuitAverageFormTeam, f.CircuitAverageFormTeam},
		{model.KeyPositionChanges, f.PositionChanges},
		{model.KeyChampionshipStanding, f.ChampionshipStanding},
	}
	for _, c := range cols {
		if c.values == nil {
			continue
		}
		if err := fs.Set(c.key, c.values); err != nil {
			return err
		}
	}
	return nil
}

type Builder struct {
	src HistorySource
	l   *log.Logger
}

func NewBuilder(src HistorySource) *Builder {
	return &Builder{src: src, l: log.Default().Named("aggregate")}
}

// values of one driver before imputation
type rawForm struct {
	form, team, circuit, teamCircuit, change, standing null.Val[float64]
}

// sample streams of one driver, changes is nil for qualifying
type history struct {
	own, team, changes []Sample
}

// RaceForm computes the form features based on race results.
// Standings are taken from standingsEventID.
//
//nolint:whitespace // can't make both editor and linter happy
func (b *Builder) RaceForm(
	ctx context.Context,
	target model.Event,
	standingsEventID int,
	drivers []model.Driver,
) (*Form, error) {
	teamStreams := map[int][]Sample{}
	return b.build(ctx, target, standingsEventID, drivers, true,
		func(d model.Driver) (*history, error) {
			results, err := b.src.ResultsForDriver(ctx, d.ID)
			if err != nil {
				return nil, fmt.Errorf("results for driver %d: %w", d.ID, err)
			}
			h := &history{
				own:     positionSamples(results),
				changes: positionChangeSamples(results),
			}
			if s, ok := teamStreams[d.ConstructorID]; ok {
				h.team = s
				return h, nil
			}
			teamResults, err := b.src.ResultsForConstructor(ctx, d.ConstructorID)
			if err != nil {
				return nil, fmt.Errorf("results for constructor %d: %w",
					d.ConstructorID, err)
			}
			h.team = positionSamples(teamResults)
			teamStreams[d.ConstructorID] = h.team
			return h, nil
		})
}

// QualifyingForm computes the form features based on qualifying deltas.
//
//nolint:whitespace // can't make both editor and linter happy
func (b *Builder) QualifyingForm(
	ctx context.Context,
	target model.Event,
	standingsEventID int,
	drivers []model.Driver,
) (*Form, error) {
	teamStreams := map[int][]Sample{}
	return b.build(ctx, target, standingsEventID, drivers, false,
		func(d model.Driver) (*history, error) {
			laps, err := b.src.QualifyingLapsForDriver(ctx, d.ID)
			if err != nil {
				return nil, fmt.Errorf("qualifying laps for driver %d: %w", d.ID, err)
			}
			h := &history{own: deltaSamples(laps)}
			if s, ok := teamStreams[d.ConstructorID]; ok {
				h.team = s
				return h, nil
			}
			teamLaps, err := b.src.QualifyingLapsForConstructor(ctx, d.ConstructorID)
			if err != nil {
				return nil, fmt.Errorf("qualifying laps for constructor %d: %w",
					d.ConstructorID, err)
			}
			h.team = deltaSamples(teamLaps)
			teamStreams[d.ConstructorID] = h.team
			return h, nil
		})
}

//nolint:whitespace // can't make both editor and linter happy
func (b *Builder) build(
	ctx context.Context,
	target model.Event,
	standingsEventID int,
	drivers []model.Driver,
	withChanges bool,
	load func(d model.Driver) (*history, error),
) (*Form, error) {
	standings, err := b.src.DriverStandings(ctx, standingsEventID)
	if err != nil {
		return nil, fmt.Errorf("standings for event %d: %w", standingsEventID, err)
	}
	raw := make([]rawForm, len(drivers))
	for i, d := range drivers {
		h, err := load(d)
		if err != nil {
			return nil, err
		}
		r := &raw[i]
		r.form = RollingMean(h.own, target, DriverWindow)
		r.team = RollingMean(h.team, target, ConstructorWindow)
		r.circuit = CircuitMean(h.own, target, DriverWindow, r.form)
		r.teamCircuit = CircuitMean(h.team, target, ConstructorWindow, r.team)
		r.change = RollingMean(h.changes, target, DriverWindow)
		if pos, ok := standings[d.ID]; ok {
			r.standing = null.From(float64(pos))
		}
	}
	b.l.Debug("form computed",
		log.Int("event", target.ID),
		log.Int("drivers", len(drivers)),
		log.Bool("race", withChanges))

	column := func(get func(r rawForm) null.Val[float64]) []float64 {
		vals := make([]null.Val[float64], len(raw))
		for i := range raw {
			vals[i] = get(raw[i])
		}
		return Impute(vals)
	}
	ret := &Form{
		AverageForm:            column(func(r rawForm) null.Val[float64] { return r.form }),
		AverageFormTeam:        column(func(r rawForm) null.Val[float64] { return r.team }),
		CircuitAverageForm:     column(func(r rawForm) null.Val[float64] { return r.circuit }),
		CircuitAverageFormTeam: column(func(r rawForm) null.Val[float64] { return r.teamCircuit }),
		ChampionshipStanding:   column(func(r rawForm) null.Val[float64] { return r.standing }),
	}
	if withChanges {
		ret.PositionChanges = column(func(r rawForm) null.Val[float64] { return r.change })
	}
	return ret, nil
}

func positionSamples(results []model.Result) []Sample {
	ret := make([]Sample, len(results))
	for i, r := range results {
		ret[i] = Sample{Event: r.Event()}
		if p, ok := r.Position.Get(); ok {
			ret[i].Value = null.From(float64(p))
		}
	}
	return ret
}

// grid minus finish, positive values mean positions gained
func positionChangeSamples(results []model.Result) []Sample {
	ret := make([]Sample, len(results))
	for i, r := range results {
		ret[i] = Sample{Event: r.Event()}
		if p, ok := r.Position.Get(); ok {
			ret[i].Value = null.From(float64(r.Grid - p))
		}
	}
	return ret
}

func deltaSamples(laps []model.QualifyingLap) []Sample {
	ret := make([]Sample, len(laps))
	for i, l := range laps {
		ret[i] = Sample{Event: l.Event(), Value: l.Delta()}
	}
	return ret
}
