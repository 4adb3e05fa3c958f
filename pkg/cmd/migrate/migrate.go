package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/cmd/cmdutil"
	"github.com/kartrace/kartrace-go/pkg/config"
	dbmigrate "github.com/kartrace/kartrace-go/pkg/db/migrate"
)

var migrationSourceURL string

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration()
		},
	}

	cmd.Flags().StringVarP(&migrationSourceURL,
		"migration-source-url",
		"m",
		"",
		"url to external migration files (default: embedded migrations)")
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format")
	return cmd
}

func startMigration() error {
	cmdutil.SetupLogger()
	if err := cmdutil.WaitForRequiredServices(); err != nil {
		log.Error("database not ready", log.ErrorField(err))
		return err
	}
	dbURL := prepareURLForDB(config.DB)

	if migrationSourceURL == "" {
		log.Info("Using embedded migrations")
		if err := dbmigrate.MigrateDB(dbURL); err != nil {
			return err
		}
	} else {
		log.Info("Using migrations files at", log.String("source", migrationSourceURL))
		m, err := migrate.New(migrationSourceURL, dbURL)
		if err != nil {
			return fmt.Errorf("could not create migration: %w", err)
		}
		defer m.Close()
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
	}
	version, dirty, err := dbmigrate.Version(dbURL)
	if err != nil {
		return err
	}
	log.Info("Database migrated", log.Uint64("version", uint64(version)), log.Bool("dirty", dirty))
	return nil
}

func prepareURLForDB(url string) string {
	options := "sslmode=disable"
	if strings.Contains(url, options) {
		return url
	}
	if strings.Contains(url, "?") {
		return fmt.Sprintf("%s&%s", url, options)
	}
	return fmt.Sprintf("%s?%s", url, options)
}
