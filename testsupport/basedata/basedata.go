// Package basedata seeds the reference tables with a small championship.
//
// Events 1 (2018, round 1) and 3 (2019, round 1) are held at circuit 1,
// events 2 and 4 at circuit 2. Driver 2 replaced driver 4 at constructor 10
// after event 1. Event 4 has neither qualifying nor results yet.
package basedata

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type qualifying struct {
	raceID, driverID, constructorID int
	position                        any
	q1, q2, q3                      any
}

type result struct {
	raceID, driverID, constructorID, grid int
	position                              any
}

var (
	constructors = map[int]string{10: "mercedes", 20: "ferrari"}
	drivers      = map[int]string{1: "hamilton", 2: "bottas", 3: "vettel", 4: "rosberg"}
	races        = [][]any{
		// id, year, round, circuit, name, evaluation
		{1, 2018, 1, 1, "Australian Grand Prix", false},
		{2, 2018, 2, 2, "Bahrain Grand Prix", true},
		{3, 2019, 1, 1, "Australian Grand Prix", true},
		{4, 2019, 2, 2, "Bahrain Grand Prix", false},
	}
	qualifyings = []qualifying{
		{1, 1, 10, 1, "1:21.000", "1:20.500", "1:20.000"},
		{1, 3, 20, 2, "1:21.100", "1:20.600", "1:20.500"},
		{1, 4, 10, 3, "1:21.200", "1:21.000", nil},
		{2, 3, 20, 1, "1:30.000", nil, nil},
		{2, 1, 10, 2, "1:30.500", nil, nil},
		{2, 2, 10, 3, "1:31.000", nil, nil},
		{3, 1, 10, 1, "1:21.000", nil, nil},
		{3, 2, 10, 2, "1:21.200", nil, nil},
		{3, 3, 20, 3, "1:21.400", nil, nil},
	}
	results = []result{
		{1, 1, 10, 1, 1},
		{1, 3, 20, 2, 2},
		{1, 4, 10, 3, 3},
		{2, 3, 20, 1, 1},
		{2, 1, 10, 2, 2},
		{2, 2, 10, 3, nil},
		{3, 1, 10, 1, 1},
		{3, 2, 10, 2, 3},
		{3, 3, 20, 3, 2},
	}
	// raceId, driverId, position
	standings = [][3]int{
		{1, 1, 1}, {1, 3, 2}, {1, 4, 3},
		{2, 1, 1}, {2, 3, 2}, {2, 2, 3},
		{3, 1, 1}, {3, 3, 2}, {3, 2, 3},
	}
)

// Seed inserts the sample championship within a single transaction.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for id, ref := range constructors {
			if _, err := tx.Exec(ctx,
				`insert into constructors (constructorId, constructorRef) values ($1,$2)`,
				id, ref); err != nil {
				return err
			}
		}
		for id, ref := range drivers {
			if _, err := tx.Exec(ctx,
				`insert into drivers (driverId, driverRef) values ($1,$2)`,
				id, ref); err != nil {
				return err
			}
		}
		for _, r := range races {
			if _, err := tx.Exec(ctx, `
			insert into races (raceId, year, round, circuitId, name, evaluationRace)
			values ($1,$2,$3,$4,$5,$6)`, r...); err != nil {
				return err
			}
		}
		for _, q := range qualifyings {
			if _, err := tx.Exec(ctx, `
			insert into qualifying (raceId, driverId, constructorId, position, q1, q2, q3)
			values ($1,$2,$3,$4,$5,$6,$7)`,
				q.raceID, q.driverID, q.constructorID, q.position, q.q1, q.q2, q.q3,
			); err != nil {
				return err
			}
		}
		for _, r := range results {
			if _, err := tx.Exec(ctx, `
			insert into results (raceId, driverId, constructorId, grid, position)
			values ($1,$2,$3,$4,$5)`,
				r.raceID, r.driverID, r.constructorID, r.grid, r.position,
			); err != nil {
				return err
			}
		}
		for _, s := range standings {
			if _, err := tx.Exec(ctx, `
			insert into driver_standings (raceId, driverId, position) values ($1,$2,$3)`,
				s[0], s[1], s[2]); err != nil {
				return err
			}
		}
		return nil
	})
}
