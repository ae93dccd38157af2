// Package app wires the components used by the sub commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/pkg/config"
	"github.com/mpapenbr/f1-prediction-engine/pkg/db/postgres"
	"github.com/mpapenbr/f1-prediction-engine/pkg/fingerprint"
	"github.com/mpapenbr/f1-prediction-engine/pkg/oracle"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predict"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog/factory"
	"github.com/mpapenbr/f1-prediction-engine/pkg/predictlog/impl/memory"
	natsStore "github.com/mpapenbr/f1-prediction-engine/pkg/predictlog/impl/nats"
	pgStore "github.com/mpapenbr/f1-prediction-engine/pkg/predictlog/impl/postgres"
	redisStore "github.com/mpapenbr/f1-prediction-engine/pkg/predictlog/impl/redis"
	"github.com/mpapenbr/f1-prediction-engine/pkg/repository/api"
	source "github.com/mpapenbr/f1-prediction-engine/pkg/repository/postgres"
	"github.com/mpapenbr/f1-prediction-engine/pkg/utils"
)

var ErrUnknownStore = errors.New("unknown cache store")

const storeNone = "none"

// App holds the components shared by the sub commands.
type App struct {
	Source    *source.Client
	Service   *predict.Service
	telemetry *config.Telemetry
	closers   []func()
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func parseDuration(value string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn("Invalid duration value, using default",
			log.String("value", value),
			log.Duration("default", defaultVal))
		return defaultVal
	}
	return d
}

// SetupLogging installs the default logger and returns the logger used for
// sql tracing.
func SetupLogging() (*log.Logger, error) {
	var logger, sqlLogger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
		sqlLogger = log.New(os.Stderr,
			parseLogLevel(config.SQLLogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
		sqlLogger = log.DevLogger(os.Stderr,
			parseLogLevel(config.SQLLogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	if config.LogFilter != "" {
		var err error
		if logger, err = logger.WithFilter(config.LogFilter); err != nil {
			return nil, fmt.Errorf("log filter: %w", err)
		}
	}
	log.ResetDefault(logger)
	return sqlLogger, nil
}

// New sets up logging, telemetry, the database, the prediction log and the
// prediction service.
//
//nolint:funlen // wiring
func New(ctx context.Context) (*App, error) {
	sqlLogger, err := SetupLogging()
	if err != nil {
		return nil, err
	}
	ret := &App{}

	pgOptions := []postgres.PoolConfigOption{
		postgres.WithTracer(sqlLogger, log.DebugLevel),
	}
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		if ret.telemetry, err = config.SetupTelemetry(ctx); err == nil {
			pgOptions[0] = postgres.WithOtlpTracer()
		} else {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}
	if config.MaxConns > 0 {
		pgOptions = append(pgOptions, postgres.WithMaxConns(int32(config.MaxConns)))
	}

	waitForServices()
	pool, err := postgres.NewPool(ctx, config.DB, pgOptions...)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	ret.Source = source.New(pool,
		source.WithEventCacheDuration(parseDuration(config.EventCacheDuration, time.Hour)),
		source.WithConnector(func(ctx context.Context) (*pgxpool.Pool, error) {
			return postgres.NewPool(ctx, config.DB, pgOptions...)
		}))
	ret.closers = append(ret.closers, ret.Source.Close)

	timeout := parseDuration(config.OracleTimeout, 30*time.Second)
	opts := []predict.Option{
		predict.WithSource(ret.Source),
		predict.WithOracle(
			oracle.NewHTTPClient(config.OracleURL, config.QualifyingModel,
				oracle.WithTimeout(timeout)),
			oracle.NewHTTPClient(config.OracleURL, config.RaceModel,
				oracle.WithTimeout(timeout))),
	}
	validity := parseDuration(config.CacheValidity, fingerprint.DefaultValidity)
	store, err := ret.predictionLog(pool, validity)
	if err != nil {
		ret.Close()
		return nil, err
	}
	if store != nil {
		opts = append(opts, predict.WithCache(
			fingerprint.NewCache(store, fingerprint.WithValidity(validity))))
	}
	if ret.Service, err = predict.NewService(opts...); err != nil {
		ret.Close()
		return nil, err
	}
	return ret, nil
}

//nolint:whitespace // can't make both editor and linter happy
func (a *App) predictionLog(
	pool *pgxpool.Pool,
	validity time.Duration,
) (api.PredictionLog, error) {
	common := []predictlog.Option{predictlog.WithValidity(validity)}
	log.Info("Using prediction log", log.String("store", config.CacheStore))
	switch config.CacheStore {
	case storeNone, "":
		return nil, nil
	case string(memory.StoreTypeMemory):
		return factory.New[memory.Option](memory.StoreTypeMemory, common, nil)
	case string(pgStore.StoreTypePostgres):
		return factory.New(pgStore.StoreTypePostgres, common,
			[]pgStore.Option{pgStore.WithPool(pool)})
	case string(natsStore.StoreTypeNats):
		nc, err := nats.Connect(config.NatsURL)
		if err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		a.closers = append(a.closers, nc.Close)
		return factory.New(natsStore.StoreTypeNats, common,
			[]natsStore.Option{
				natsStore.WithNATS(nc),
				natsStore.WithBucket(config.NatsBucket),
			})
	case string(redisStore.StoreTypeRedis):
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		a.closers = append(a.closers, func() { _ = client.Close() })
		return factory.New(redisStore.StoreTypeRedis, common,
			[]redisStore.Option{
				redisStore.WithClient(client),
				redisStore.WithPrefix(config.RedisPrefix),
			})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, config.CacheStore)
	}
}

// Close releases the resources in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.telemetry != nil {
		a.telemetry.Shutdown()
	}
	_ = log.Sync()
}

// failures are only logged, the following calls report the actual error
func waitForServices() {
	timeout := parseDuration(config.WaitForServices, 60*time.Second)
	if addr := utils.ExtractFromDBURL(config.DB); addr != "" {
		if err := utils.WaitForTCP(addr, timeout); err != nil {
			log.Warn("database not ready", log.ErrorField(err))
		}
	}
	if config.OracleURL != "" {
		if err := utils.WaitForHTTPResponse(config.OracleURL, timeout); err != nil {
			log.Warn("oracle not ready", log.ErrorField(err))
		}
	}
}
