package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog/factory"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/api"
)

var StoreTypeNats factory.StoreType = "nats"

var ErrNoConnection = errors.New("no nats connection configured")

const DefaultBucket = "prediction_log"

type (
	Option      func(*natsConfig)
	natsConfig struct {
		nc      *nats.Conn
		bucket  string
		history uint8
	}

	natsStore struct {
		cfg    *predictlog.Config
		ownCfg *natsConfig
		log    *log.Logger
		kv     jetstream.KeyValue
	}
)

var _ api.PredictionLog = (*natsStore)(nil)

func WithNATS(nc *nats.Conn) Option {
	return func(c *natsConfig) {
		c.nc = nc
	}
}

func WithBucket(name string) Option {
	return func(c *natsConfig) {
		c.bucket = name
	}
}

// WithHistory sets how many entries are kept per fingerprint (max 64)
func WithHistory(n uint8) Option {
	return func(c *natsConfig) {
		c.history = n
	}
}

// New creates a prediction log on a JetStream key value bucket. Each
// fingerprint is one key, every appended entry is a new revision of it.
// Revisions expire after the configured validity.
func New(common []predictlog.Option, specific []Option) (api.PredictionLog, error) {
	ownCfg := &natsConfig{bucket: DefaultBucket, history: 16}
	for _, o := range specific {
		o(ownCfg)
	}
	if ownCfg.nc == nil {
		return nil, ErrNoConnection
	}
	ret := &natsStore{
		cfg:    predictlog.NewConfig(common...),
		ownCfg: ownCfg,
		log:    log.Default().Named("predictlog.nats"),
	}
	ret.log.Debug("Initializing NATS bucket", log.String("bucket", ownCfg.bucket))
	if err := ret.init(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *natsStore) init() error {
	js, err := jetstream.New(s.ownCfg.nc)
	if err != nil {
		return err
	}
	s.kv, err = js.CreateOrUpdateKeyValue(context.Background(), jetstream.KeyValueConfig{
		Bucket:  s.ownCfg.bucket,
		History: s.ownCfg.history,
		TTL:     s.cfg.Validity,
	})
	return err
}

func key(kind model.SessionKind, fingerprint string) string {
	return string(kind) + "." + fingerprint
}

//nolint:whitespace // editor/linter issue
func (s *natsStore) Latest(
	ctx context.Context,
	kind model.SessionKind,
	fingerprint string,
	notBefore time.Time,
) (*model.LogEntry, error) {
	kve, err := s.kv.Get(ctx, key(kind, fingerprint))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, api.ErrNotFound
		}
		return nil, err
	}
	var ret model.LogEntry
	if err := json.Unmarshal(kve.Value(), &ret); err != nil {
		return nil, err
	}
	if ret.CreatedAt.Before(notBefore) {
		return nil, api.ErrNotFound
	}
	return &ret, nil
}

func (s *natsStore) Append(ctx context.Context, entry *model.LogEntry) error {
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
	rev, err := s.kv.Put(ctx, key(entry.Kind, entry.Fingerprint), data)
	if err != nil {
		return err
	}
	s.log.Debug("appended",
		log.String("fingerprint", entry.Fingerprint),
		log.Uint64("revision", rev))
	return nil
}

func init() {
	factory.Register(StoreTypeNats, New)
}
