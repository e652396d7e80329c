package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var dryRun bool

var rootCmd = &cobra.Command{
	Use:   "mlbetl",
	Short: "Load MLB teams, seasons and schedules into Postgres",
	Long: `mlbetl pulls teams and regular-season schedules from the MLB Stats API
and upserts them into Postgres. Every command is safe to re-run.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "write to an in-memory store instead of Postgres")
}

// commandContext is cancelled on SIGINT/SIGTERM
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// withApp builds the app for one command and tears it down afterwards
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := buildApp(ctx, dryRun)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(ctx, a)
}
