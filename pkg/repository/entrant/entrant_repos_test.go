package entrant

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnexpectedQuery = errors.New("unexpected query")

// failingQuerier fails the test as soon as a statement is sent
type failingQuerier struct{ t *testing.T }

func (f failingQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	f.t.Error("Exec called")
	return pgconn.CommandTag{}, errUnexpectedQuery
}

func (f failingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	f.t.Error("Query called")
	return nil, errUnexpectedQuery
}

func (f failingQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	f.t.Error("QueryRow called")
	return nil
}

func TestLoadSubstituteCandidatesWithoutMissing(t *testing.T) {
	for _, tt := range []struct {
		name    string
		missing []int
	}{
		{"nil", nil},
		{"empty", []int{}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadSubstituteCandidates(context.Background(),
				failingQuerier{t: t}, tt.missing, 1, 2)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}
