//nolint:whitespace // can't make both editor and linter happy
package entrant

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository"
)

// LoadByEvent returns the qualifying participants of an event ordered by
// qualifying position, unclassified drivers last, ties by driver id.
func LoadByEvent(ctx context.Context, conn repository.Querier, eventID int) (
	[]model.Entrant, error,
) {
	rows, err := conn.Query(ctx, `
	select q.driverId, d.driverRef, q.constructorId, c.constructorRef,
		coalesce(res.grid, 0), coalesce(q.position, 0),
		coalesce(q.q1, ''), coalesce(q.q2, ''), coalesce(q.q3, '')
	from qualifying q
	join drivers d on d.driverId=q.driverId
	join constructors c on c.constructorId=q.constructorId
	left join results res on res.raceId=q.raceId and res.driverId=q.driverId
	where q.raceId=$1
	order by q.position asc nulls last, q.driverId asc
	`, eventID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Entrant, error) {
		var item model.Entrant
		var q1, q2, q3 string
		err := row.Scan(
			&item.Driver.ID, &item.Driver.Ref,
			&item.Driver.ConstructorID, &item.Driver.ConstructorRef,
			&item.Grid, &item.QualifyingPosition,
			&q1, &q2, &q3,
		)
		item.Lap = model.BestLap(q1, q2, q3)
		return item, err
	})
}

// LoadPlacings returns the classified outcome of a session ordered by position.
func LoadPlacings(
	ctx context.Context,
	conn repository.Querier,
	kind model.SessionKind,
	eventID int,
) ([]model.Placing, error) {
	var table string
	switch kind {
	case model.Qualifying:
		table = "qualifying"
	case model.Race:
		table = "results"
	default:
		return nil, fmt.Errorf("unknown session kind %q", kind)
	}
	rows, err := conn.Query(ctx, fmt.Sprintf(`
	select driverId, position from %s
	where raceId=$1 and position is not null
	order by position
	`, table), eventID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[model.Placing])
}

// LoadSubstituteCandidates returns team mates for the missing drivers. A
// candidate drove for the constructor of the missing driver at neededEventID
// and took part in referenceEventID. Candidates absent from the needed event
// come first. Without missing drivers an empty map is returned and no query
// is sent.
func LoadSubstituteCandidates(
	ctx context.Context,
	conn repository.Querier,
	missing []int,
	referenceEventID, neededEventID int,
) (map[int][]int, error) {
	if len(missing) == 0 {
		return map[int][]int{}, nil
	}
	rows, err := conn.Query(ctx, `
	select m.driverId, r.driverId
	from qualifying m
	join qualifying r on r.raceId=$2 and r.constructorId=m.constructorId
		and r.driverId<>m.driverId
	where m.raceId=$3 and m.driverId=any($1)
	order by m.driverId,
		exists(select 1 from qualifying n where n.raceId=$3 and n.driverId=r.driverId),
		r.driverId
	`, missing, referenceEventID, neededEventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := map[int][]int{}
	for rows.Next() {
		var driverID, candidate int
		if err := rows.Scan(&driverID, &candidate); err != nil {
			return nil, err
		}
		ret[driverID] = append(ret[driverID], candidate)
	}
	return ret, rows.Err()
}
