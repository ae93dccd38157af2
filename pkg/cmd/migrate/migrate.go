package migrate

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/pkg/cmd/app"
	"github.com/mpapenbr/f1-prediction-engine/pkg/config"
	"github.com/mpapenbr/f1-prediction-engine/pkg/db/migrate"
	"github.com/mpapenbr/f1-prediction-engine/pkg/utils"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "creates or updates the prediction log table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration()
		},
	}
	return cmd
}

func startMigration() error {
	if _, err := app.SetupLogging(); err != nil {
		return err
	}
	// wait for database
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	if postgresAddr := utils.ExtractFromDBURL(config.DB); postgresAddr != "" {
		if err = utils.WaitForTCP(postgresAddr, timeout); err != nil {
			return fmt.Errorf("database not ready: %w", err)
		}
	}

	log.Info("Migrating prediction log")
	if err := migrate.MigrateDB(prepareURLForDB(config.DB)); err != nil {
		return err
	}
	log.Info("Migration done")
	return nil
}

func prepareURLForDB(url string) string {
	options := "sslmode=disable"
	if strings.Contains(url, "sslmode=") {
		return url
	}
	if strings.Contains(url, "?") {
		return fmt.Sprintf("%s&%s", url, options)
	}
	return fmt.Sprintf("%s?%s", url, options)
}
