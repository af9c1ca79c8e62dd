package cmd

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"eventmanager/config"
	"eventmanager/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := migrationSetup()
		if err != nil {
			return err
		}
		if err := db.MigrateUp(cfg.Postgres.DSN); err != nil {
			return err
		}
		return reportVersion(cfg, logger)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default 1 step)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}
		cfg, logger, err := migrationSetup()
		if err != nil {
			return err
		}
		if err := db.MigrateDown(cfg.Postgres.DSN, steps); err != nil {
			return err
		}
		return reportVersion(cfg, logger)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func migrationSetup() (config.Config, zerolog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("config error: %w", err)
	}
	return cfg, config.NewLogger(cfg.Logging), nil
}

func reportVersion(cfg config.Config, logger zerolog.Logger) error {
	v, dirty, err := db.SchemaVersion(cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("schema version")
	return nil
}
