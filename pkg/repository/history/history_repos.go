//nolint:whitespace // can't make both editor and linter happy
package history

import (
	"context"

	"github.com/aarondl/opt/null"
	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository"
)

const selectResults = `
	select res.raceId, r.year, r.round, r.circuitId, res.driverId, res.constructorId,
		coalesce(res.grid, 0), res.position
	from results res
	join races r on r.raceId=res.raceId
`

// session laps are aggregated per event to derive the session best
const selectQualifying = `
	with session as (
		select q.raceId, array_agg(l.lap) filter (where l.lap<>'') as laps
		from qualifying q, unnest(array[q.q1, q.q2, q.q3]) as l(lap)
		group by q.raceId
	)
	select q.raceId, r.year, r.round, r.circuitId, q.driverId, q.constructorId,
		q.position, coalesce(q.q1, ''), coalesce(q.q2, ''), coalesce(q.q3, ''),
		coalesce(s.laps, '{}')
	from qualifying q
	join races r on r.raceId=q.raceId
	left join session s on s.raceId=q.raceId
`

const mostRecentFirst = ` order by r.year desc, r.round desc`

// ResultsByDriver returns all race results of a driver, most recent first.
func ResultsByDriver(ctx context.Context, conn repository.Querier, driverID int) (
	[]model.Result, error,
) {
	return collectResults(conn.Query(ctx,
		selectResults+`where res.driverId=$1`+mostRecentFirst, driverID))
}

// ResultsByConstructor returns all race results of a constructor, most recent first.
func ResultsByConstructor(ctx context.Context, conn repository.Querier, id int) (
	[]model.Result, error,
) {
	return collectResults(conn.Query(ctx,
		selectResults+`where res.constructorId=$1`+mostRecentFirst+`, res.driverId`, id))
}

// QualifyingByDriver returns all qualifying laps of a driver, most recent first.
func QualifyingByDriver(ctx context.Context, conn repository.Querier, driverID int) (
	[]model.QualifyingLap, error,
) {
	return collectQualifying(conn.Query(ctx,
		selectQualifying+`where q.driverId=$1`+mostRecentFirst, driverID))
}

// QualifyingByConstructor returns all qualifying laps of a constructor, most
// recent first.
func QualifyingByConstructor(ctx context.Context, conn repository.Querier, id int) (
	[]model.QualifyingLap, error,
) {
	return collectQualifying(conn.Query(ctx,
		selectQualifying+`where q.constructorId=$1`+mostRecentFirst+`, q.position`, id))
}

// QualifyingBySeason returns all qualifying laps of a season in calendar order.
func QualifyingBySeason(ctx context.Context, conn repository.Querier, year int) (
	[]model.QualifyingLap, error,
) {
	return collectQualifying(conn.Query(ctx,
		selectQualifying+`where r.year=$1 order by r.round, q.position`, year))
}

// DriverStandings maps driver id to championship position after eventID.
func DriverStandings(ctx context.Context, conn repository.Querier, eventID int) (
	map[int]int, error,
) {
	rows, err := conn.Query(ctx, `
	select driverId, position from driver_standings where raceId=$1
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := map[int]int{}
	for rows.Next() {
		var driverID, position int
		if err := rows.Scan(&driverID, &position); err != nil {
			return nil, err
		}
		ret[driverID] = position
	}
	return ret, rows.Err()
}

func collectResults(rows pgx.Rows, err error) ([]model.Result, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Result, error) {
		var item model.Result
		var position *int
		err := row.Scan(&item.EventID, &item.Year, &item.Round, &item.CircuitID,
			&item.DriverID, &item.ConstructorID, &item.Grid, &position)
		item.Position = null.FromPtr(position)
		return item, err
	})
}

func collectQualifying(rows pgx.Rows, err error) ([]model.QualifyingLap, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.QualifyingLap, error) {
		var item model.QualifyingLap
		var position *int
		var q1, q2, q3 string
		var session []string
		err := row.Scan(&item.EventID, &item.Year, &item.Round, &item.CircuitID,
			&item.DriverID, &item.ConstructorID, &position, &q1, &q2, &q3, &session)
		item.Position = null.FromPtr(position)
		item.Best = model.BestLap(q1, q2, q3)
		item.Final = model.FinalLap(q1, q2, q3)
		item.SessionBest = model.BestLap(session...)
		return item, err
	})
}
