package factory

import (
	"errors"

	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/api"
)

type StoreType string

var (
	ErrTypeNotSupported = errors.New("prediction log store type not supported")
	ErrWrongCreator     = errors.New("prediction log store wrong creator")
)

//nolint:lll //readability
type Creator[ImplOpt any] func([]predictlog.Option, []ImplOpt) (api.PredictionLog, error)

var registry = map[StoreType]any{}

// Register a new implementation generically
//
//nolint:whitespace //editor/linter issue
func Register[ImplOpt any](
	key StoreType, creator Creator[ImplOpt],
) {
	registry[key] = creator
}

// Create a new instance
//
//nolint:whitespace //editor/linter issue
func New[ImplOpt any](
	key StoreType,
	common []predictlog.Option,
	specific []ImplOpt,
) (api.PredictionLog, error) {
	entry, ok := registry[key]
	if !ok {
		return nil, ErrTypeNotSupported
	}
	creator, ok := entry.(Creator[ImplOpt])
	if !ok {
		return nil, ErrWrongCreator
	}
	return creator(common, specific)
}
