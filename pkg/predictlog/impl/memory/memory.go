package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog/factory"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/api"
)

var StoreTypeMemory factory.StoreType = "memory"

type (
	Option      func(*memoryStore)
	memoryStore struct {
		cfg     *predictlog.Config
		mutex   sync.Mutex
		entries []*model.LogEntry
		log     *log.Logger
	}
)

var _ api.PredictionLog = (*memoryStore)(nil)

// New creates a process local prediction log. Entries are lost on exit.
func New(common []predictlog.Option, specific []Option) (api.PredictionLog, error) {
	ret := &memoryStore{
		cfg: predictlog.NewConfig(common...),
		log: log.Default().Named("predictlog.memory"),
	}
	for _, o := range specific {
		o(ret)
	}
	return ret, nil
}

// WithEntries preloads the store, mainly used in tests
func WithEntries(entries ...*model.LogEntry) Option {
	return func(s *memoryStore) {
		s.entries = append(s.entries, entries...)
	}
}

//nolint:whitespace // editor/linter issue
func (s *memoryStore) Latest(
	ctx context.Context,
	kind model.SessionKind,
	fingerprint string,
	notBefore time.Time,
) (*model.LogEntry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var found *model.LogEntry
	for _, e := range s.entries {
		if e.Kind != kind || e.Fingerprint != fingerprint || e.CreatedAt.Before(notBefore) {
			continue
		}
		if found == nil || !e.CreatedAt.Before(found.CreatedAt) {
			found = e
		}
	}
	if found == nil {
		return nil, api.ErrNotFound
	}
	cp := *found
	cp.Ranking = slices.Clone(found.Ranking)
	return &cp, nil
}

func (s *memoryStore) Append(ctx context.Context, entry *model.LogEntry) error {
	if entry.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		entry.ID = id
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	cp := *entry
	cp.Ranking = slices.Clone(entry.Ranking)
	expired := entry.CreatedAt.Add(-s.cfg.Validity)
	s.entries = slices.DeleteFunc(s.entries, func(e *model.LogEntry) bool {
		return e.CreatedAt.Before(expired)
	})
	s.entries = append(s.entries, &cp)
	s.log.Debug("appended", log.String("fingerprint", entry.Fingerprint),
		log.Int("size", len(s.entries)))
	return nil
}

func init() {
	factory.Register(StoreTypeMemory, New)
}
