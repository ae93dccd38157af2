package testdb

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"

	tcpg "github.com/mpapenbr/f1-prediction-engine/testsupport/tcpostgres"
)

// InitTestDb returns a pool to an empty test database. The test is skipped if
// neither TESTDB_URL is set nor a docker provider is available.
func InitTestDb(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool, _ := InitTestDbWithURL(t)
	return pool
}

func InitTestDbWithURL(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()
	if os.Getenv("TESTDB_URL") == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
	}
	pool, url, err := tcpg.SetupTestDb(context.Background())
	if err != nil {
		t.Fatalf("initTestDb: %v", err)
	}
	tcpg.ClearAllTables(pool)
	t.Cleanup(pool.Close)
	return pool, url
}
