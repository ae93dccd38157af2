//nolint:whitespace // can't make both editor and linter happy
package event

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository"
)

const selectEvent = `
	select r.raceId, r.year, r.round, r.circuitId, r.name
	from races r
`

func LoadByID(ctx context.Context, conn repository.Querier, id int) (
	*model.Event, error,
) {
	return scanOne(conn.QueryRow(ctx, selectEvent+`where r.raceId=$1`, id))
}

// LoadPrevious returns the event before id in calendar order. The result may
// belong to the previous season.
func LoadPrevious(ctx context.Context, conn repository.Querier, id int) (
	*model.Event, error,
) {
	return scanOne(conn.QueryRow(ctx, selectEvent+`
	join races t on t.raceId=$1
	where (r.year, r.round) < (t.year, t.round)
	order by r.year desc, r.round desc
	limit 1
	`, id))
}

// LoadPreviousYearAtCircuit returns the last event held at the circuit of id
// in the season before.
func LoadPreviousYearAtCircuit(ctx context.Context, conn repository.Querier, id int) (
	*model.Event, error,
) {
	return scanOne(conn.QueryRow(ctx, selectEvent+`
	join races t on t.raceId=$1
	where r.circuitId=t.circuitId and r.year=t.year-1
	order by r.round desc
	limit 1
	`, id))
}

// LoadNext returns the first event after the last one with data of kind.
func LoadNext(ctx context.Context, conn repository.Querier, kind model.SessionKind) (
	*model.Event, error,
) {
	var table string
	switch kind {
	case model.Qualifying:
		table = "qualifying"
	case model.Race:
		table = "results"
	default:
		return nil, fmt.Errorf("unknown session kind %q", kind)
	}
	return scanOne(conn.QueryRow(ctx, selectEvent+fmt.Sprintf(`
	where (r.year, r.round) > (
		select l.year, l.round from %s x join races l on l.raceId=x.raceId
		order by l.year desc, l.round desc
		limit 1)
	order by r.year, r.round
	limit 1
	`, table)))
}

// LoadEvaluationIDs returns the ids of the events flagged for evaluation in
// calendar order.
func LoadEvaluationIDs(ctx context.Context, conn repository.Querier) ([]int, error) {
	rows, err := conn.Query(ctx, `
	select raceId from races where evaluationRace is true order by year, round
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func scanOne(row pgx.Row) (*model.Event, error) {
	var item model.Event
	if err := row.Scan(&item.ID, &item.Year, &item.Round, &item.CircuitID,
		&item.Name); err != nil {
		return nil, err
	}
	return &item, nil
}
