package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog/factory"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/api"
)

var StoreTypeRedis factory.StoreType = "redis"

var ErrNoClient = errors.New("no redis client configured")

const DefaultPrefix = "fpe:predictlog"

type (
	Option      func(*redisConfig)
	redisConfig struct {
		client *redis.Client
		prefix string
	}

	// entries of a fingerprint are kept in a sorted set scored by creation
	// time in milliseconds
	redisStore struct {
		cfg    *predictlog.Config
		client *redis.Client
		prefix string
		log    *log.Logger
	}
)

var _ api.PredictionLog = (*redisStore)(nil)

func WithClient(c *redis.Client) Option {
	return func(cfg *redisConfig) {
		cfg.client = c
	}
}

func WithPrefix(prefix string) Option {
	return func(cfg *redisConfig) {
		cfg.prefix = prefix
	}
}

// New creates a prediction log on redis sorted sets.
func New(common []predictlog.Option, specific []Option) (api.PredictionLog, error) {
	ownCfg := &redisConfig{prefix: DefaultPrefix}
	for _, o := range specific {
		o(ownCfg)
	}
	if ownCfg.client == nil {
		return nil, ErrNoClient
	}
	if err := ownCfg.client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &redisStore{
		cfg:    predictlog.NewConfig(common...),
		client: ownCfg.client,
		prefix: ownCfg.prefix,
		log:    log.Default().Named("predictlog.redis"),
	}, nil
}

func (s *redisStore) key(kind model.SessionKind, fingerprint string) string {
	return s.prefix + ":" + string(kind) + ":" + fingerprint
}

//nolint:whitespace // editor/linter issue
func (s *redisStore) Latest(
	ctx context.Context,
	kind model.SessionKind,
	fingerprint string,
	notBefore time.Time,
) (*model.LogEntry, error) {
	vals, err := s.client.ZRevRangeByScore(ctx, s.key(kind, fingerprint), &redis.ZRangeBy{
		Min:   strconv.FormatInt(notBefore.UnixMilli(), 10),
		Max:   "+inf",
		Count: 1,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, api.ErrNotFound
	}
	var ret model.LogEntry
	if err := json.Unmarshal([]byte(vals[0]), &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (s *redisStore) Append(ctx context.Context, entry *model.LogEntry) error {
	if entry.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		entry.ID = id
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	k := s.key(entry.Kind, entry.Fingerprint)
	expired := entry.CreatedAt.Add(-s.cfg.Validity).UnixMilli()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, k, redis.Z{
			Score:  float64(entry.CreatedAt.UnixMilli()),
			Member: data,
		})
		pipe.ZRemRangeByScore(ctx, k, "-inf", "("+strconv.FormatInt(expired, 10))
		pipe.Expire(ctx, k, s.cfg.Validity)
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Debug("appended", log.String("key", k))
	return nil
}

func init() {
	factory.Register(StoreTypeRedis, New)
}
