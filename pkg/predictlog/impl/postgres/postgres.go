package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog/factory"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/api"
)

var StoreTypePostgres factory.StoreType = "postgres"

var ErrNoPool = errors.New("no database pool configured")

type (
	Option          func(*postgresConfig)
	postgresConfig struct {
		pool *pgxpool.Pool
	}
	postgresStore struct {
		cfg  *predictlog.Config
		pool *pgxpool.Pool
		log  *log.Logger
	}
)

var _ api.PredictionLog = (*postgresStore)(nil)

func WithPool(pool *pgxpool.Pool) Option {
	return func(c *postgresConfig) {
		c.pool = pool
	}
}

// New creates a prediction log backed by the prediction_log table.
func New(common []predictlog.Option, specific []Option) (api.PredictionLog, error) {
	ownCfg := &postgresConfig{}
	for _, o := range specific {
		o(ownCfg)
	}
	if ownCfg.pool == nil {
		return nil, ErrNoPool
	}
	return &postgresStore{
		cfg:  predictlog.NewConfig(common...),
		pool: ownCfg.pool,
		log:  log.Default().Named("predictlog.postgres"),
	}, nil
}

//nolint:whitespace // editor/linter issue
func (s *postgresStore) Latest(
	ctx context.Context,
	kind model.SessionKind,
	fingerprint string,
	notBefore time.Time,
) (*model.LogEntry, error) {
	row := s.pool.QueryRow(ctx, `
	select id, kind, fingerprint, features, ranking, created_at
	from prediction_log
	where kind=$1 and fingerprint=$2 and created_at >= $3
	order by created_at desc
	limit 1
	`, string(kind), fingerprint, notBefore)

	var ret model.LogEntry
	var rankingData []byte
	var k string
	if err := row.Scan(&ret.ID, &k, &ret.Fingerprint, &ret.Features,
		&rankingData, &ret.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		return nil, err
	}
	ret.Kind = model.SessionKind(k)
	if err := json.Unmarshal(rankingData, &ret.Ranking); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (s *postgresStore) Append(ctx context.Context, entry *model.LogEntry) error {
	if entry.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		entry.ID = id
	}
	rankingData, err := json.Marshal(entry.Ranking)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
	insert into prediction_log (id, kind, fingerprint, features, ranking, created_at)
	values ($1,$2,$3,$4,$5,$6)
	`, entry.ID, string(entry.Kind), entry.Fingerprint, entry.Features,
		rankingData, entry.CreatedAt)
	if err != nil {
		return err
	}
	s.log.Debug("appended",
		log.String("kind", string(entry.Kind)),
		log.String("fingerprint", entry.Fingerprint))
	return nil
}

func init() {
	factory.Register(StoreTypePostgres, New)
}
