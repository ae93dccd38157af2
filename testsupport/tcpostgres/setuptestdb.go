//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/f1-prediction-engine/pkg/db/migrate"
	database "github.com/mpapenbr/f1-prediction-engine/pkg/db/postgres"
	"github.com/mpapenbr/f1-prediction-engine/testsupport/tccontainer"
)

// the reference tables are maintained by an external import, tests create
// them here
//
//go:embed reference.sql
var referenceSchema string

// SetupTestDb returns a pool for the test database. If TESTDB_URL is set
// that database is used, otherwise a postgres container is started.
func SetupTestDb(ctx context.Context) (*pgxpool.Pool, string, error) {
	dbURL := os.Getenv("TESTDB_URL")
	if dbURL == "" {
		var err error
		if dbURL, err = startContainer(ctx); err != nil {
			return nil, "", err
		}
	}
	if err := migrate.MigrateDB(dbURL); err != nil {
		return nil, "", err
	}
	pool, err := database.NewPool(ctx, dbURL)
	if err != nil {
		return nil, "", err
	}
	if _, err := pool.Exec(ctx, referenceSchema); err != nil {
		pool.Close()
		return nil, "", fmt.Errorf("create reference tables: %w", err)
	}
	return pool, dbURL, nil
}

func startContainer(ctx context.Context) (string, error) {
	container, err := tccontainer.Start(ctx, "postgres:15",
		tccontainer.WithPort("5432/tcp"),
		tccontainer.WithEnv("POSTGRES_USER", "postgres"),
		tccontainer.WithEnv("POSTGRES_PASSWORD", "password"),
		tccontainer.WithEnv("POSTGRES_DB", "postgres"),
		tccontainer.WithCmd("postgres", "-c", "fsync=off"),
		tccontainer.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		tccontainer.WithName("f1-prediction-engine-test"),
	)
	if err != nil {
		return "", err
	}
	addr, err := tccontainer.Endpoint(ctx, container, "5432")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgresql://postgres:password@%s/postgres", addr), nil
}

func ClearPredictionLog(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from prediction_log")
}

func ClearReferenceTables(pool *pgxpool.Pool) {
	for _, table := range []string{
		"driver_standings", "results", "qualifying", "races", "drivers", "constructors",
	} {
		pool.Exec(context.Background(), "delete from "+table)
	}
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearPredictionLog(pool)
	ClearReferenceTables(pool)
}
