package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"eventmanager/config"
	"eventmanager/services"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute event registration counts from the registrations table",
	Long: `Recompute every event's registrationCount in MongoDB from the rows in the
Postgres registrations table. Use it after a crash between reserving a seat
and writing (or removing) the registration row.

It is safe to run next to a live server: events with a seat change in
flight, or whose count moves during the pass, are skipped. A crash can leave
a seat change marked as pending forever; --force clears those markers and
writes every count unconditionally, so only use it with the server stopped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		logger := config.NewLogger(cfg.Logging)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		st, err := openStores(ctx, cfg, logger, false)
		if err != nil {
			return err
		}
		defer st.Close()

		force, _ := cmd.Flags().GetBool("force")
		res, err := services.NewRegistrationService(st.events, st.regs, logger).Reconcile(ctx, force)
		if err != nil {
			return err
		}
		logger.Info().
			Int("events_corrected", res.Corrected).
			Int("events_skipped", res.Skipped).
			Bool("force", force).
			Msg("reconcile finished")
		return nil
	},
}

func init() {
	reconcileCmd.Flags().Bool("force", false, "write counts unconditionally and clear pending seat changes (server must be stopped)")
}
