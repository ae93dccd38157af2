package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	evaluateCmd "github.com/mpapenbr/f1-prediction-engine/pkg/cmd/evaluate"
	migrateCmd "github.com/mpapenbr/f1-prediction-engine/pkg/cmd/migrate"
	predictCmd "github.com/mpapenbr/f1-prediction-engine/pkg/cmd/predict"
	"github.com/mpapenbr/f1-prediction-engine/pkg/config"
	"github.com/mpapenbr/f1-prediction-engine/version"
)

const envPrefix = "FPE"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "fpe",
	Short:        "Qualifying and race predictions for Formula 1 events",
	Long:         ``,
	Version:      version.FullVersion,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:funlen // flag definitions
func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.fpe.yml)")

	pf.StringVar(&config.DB, "db",
		"postgresql://DB_USERNAME:DB_USER_PASSWORD@DB_HOST:5432/f1",
		"Connection string for the database")
	pf.IntVar(&config.MaxConns, "db-max-conns", 0,
		"max number of database connections (0: pgx default)")
	pf.StringVar(&config.WaitForServices, "wait-for-services", "15s",
		"Duration to wait for other services to be ready")
	pf.StringVar(&config.EventCacheDuration, "event-cache-duration", "1h",
		"how long event metadata is kept in memory")

	pf.StringVar(&config.LogLevel, "log-level", "info",
		"controls the log level (debug, info, warn, error, fatal)")
	pf.StringVar(&config.SQLLogLevel, "sql-log-level", "info",
		"controls the log level for sql methods")
	pf.StringVar(&config.LogFormat, "log-format", "text",
		"controls the log output format (json, text)")
	pf.StringVar(&config.LogFilter, "log-filter", "",
		"zapfilter rules, e.g. \"debug:predict* info:*\"")
	pf.BoolVar(&config.EnableTelemetry, "enable-telemetry", false,
		"enables telemetry")
	pf.StringVar(&config.TelemetryEndpoint, "telemetry-endpoint", "localhost:4317",
		"Endpoint that receives open telemetry data (stdout prints to console)")

	pf.StringVar(&config.OracleURL, "oracle-url", "http://localhost:8501",
		"base url of the model serving endpoint")
	pf.StringVar(&config.QualifyingModel, "qualifying-model", "qualifying",
		"model used for qualifying predictions")
	pf.StringVar(&config.RaceModel, "race-model", "race",
		"model used for race predictions")
	pf.StringVar(&config.OracleTimeout, "oracle-timeout", "30s",
		"timeout for a single oracle request")

	pf.StringVar(&config.CacheStore, "cache-store", "postgres",
		"prediction log store (none, memory, postgres, nats, redis)")
	pf.StringVar(&config.CacheValidity, "cache-validity", "336h",
		"duration an archived prediction is considered valid")
	pf.StringVar(&config.NatsURL, "nats-url", "nats://localhost:4222",
		"nats server url (cache store nats)")
	pf.StringVar(&config.NatsBucket, "nats-bucket", "prediction_log",
		"key value bucket (cache store nats)")
	pf.StringVar(&config.RedisAddr, "redis-addr", "localhost:6379",
		"redis address (cache store redis)")
	pf.StringVar(&config.RedisPrefix, "redis-prefix", "fpe:predictlog",
		"key prefix (cache store redis)")

	// add commands here
	rootCmd.AddCommand(migrateCmd.NewMigrateCmd())
	rootCmd.AddCommand(predictCmd.NewPredictCmd())
	rootCmd.AddCommand(evaluateCmd.NewEvaluateCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".fpe" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".fpe")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindAll(rootCmd, viper.GetViper())
}

func bindAll(cmd *cobra.Command, v *viper.Viper) {
	bindFlags(cmd, v)
	for _, c := range cmd.Commands() {
		bindAll(c, v)
	}
}

// Bind each cobra flag to its associated viper configuration
// (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	bind := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			// Environment variables can't have dashes in them, so bind them to their
			// equivalent keys with underscores, e.g. --log-level to FPE_LOG_LEVEL
			if strings.Contains(f.Name, "-") {
				envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
				if err := v.BindEnv(f.Name,
					fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
					fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
				}
			}
			// Apply the viper config value to the flag when the flag is not set and viper
			// has a value
			if !f.Changed && v.IsSet(f.Name) {
				val := v.Get(f.Name)
				if err := fs.Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
					fmt.Fprintf(os.Stderr, "Could set flag value for %s: %v", f.Name, err)
				}
			}
		})
	}
	bind(cmd.LocalNonPersistentFlags())
	bind(cmd.PersistentFlags())
}
