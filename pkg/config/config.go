package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                 string // connection string for the database
	WaitForServices    string // duration to wait for other services to be ready
	LogLevel           string // sets the log level (zap log level values)
	SQLLogLevel        string // sets the log level for sql subsystem
	LogFormat          string // text vs json
	LogFilter          string // zapfilter rules, empty means no filtering
	EnableTelemetry    bool   // enable telemetry
	TelemetryEndpoint  string // endpoint for telemetry, "stdout" prints to console
	OracleURL          string // base url of the model serving endpoint
	QualifyingModel    string // model name used for qualifying predictions
	RaceModel          string // model name used for race predictions
	OracleTimeout      string // timeout for a single oracle request
	CacheStore         string // memory, postgres, nats, redis or none
	CacheValidity      string // duration an archived prediction is considered valid
	NatsURL            string // nats server url (cache store nats)
	NatsBucket         string // name of the key value bucket
	RedisAddr          string // redis address (cache store redis)
	RedisPrefix        string // key prefix for redis entries
	EventCacheDuration string // how long event metadata is kept in memory
	MaxConns           int    // max number of database connections, 0 uses the pgx default
)

// values of the sub commands
var (
	EventID       int    // event to predict, 0 means the next event without data
	DisableCache  bool   // skip the prediction log lookup
	EvalRace      bool   // evaluate race instead of qualifying predictions
	EvalEvents    []int  // events to evaluate, empty means evaluation events
	OverridesFile string // yaml file with archived predictions
	EvalParallel  int    // max number of concurrent live predictions during evaluation
)
