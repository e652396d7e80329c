package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/JL037/mlbtracker/internal/loader"
	"github.com/JL037/mlbtracker/internal/pipeline"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Upsert teams and seasons",
	Args:  cobra.NoArgs,
	RunE:  runBootstrap,
}

var seasonCmd = &cobra.Command{
	Use:   "season <year>",
	Short: "Load or refresh the regular-season games of a year",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeason,
}

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Refresh games around today",
	Long: `Refreshes games between DAILY_BACK_DAYS before and DAILY_AHEAD_DAYS after
today. Teams and seasons must already be bootstrapped.`,
	Args: cobra.NoArgs,
	RunE: runDaily,
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(seasonCmd)
	rootCmd.AddCommand(dailyCmd)
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		cmd.Println("-> Fetching teams...")
		summary, err := a.runner.Bootstrap(ctx)
		if err != nil {
			return fmt.Errorf("bootstrap failed: %w", err)
		}

		cmd.Printf("Upserted %d teams\n", summary.TeamsUpserted)
		if summary.SeasonsBuilt != summary.SeasonsExpected {
			cmd.Printf("Warning: built %d seasons, expected %d\n", summary.SeasonsBuilt, summary.SeasonsExpected)
		}
		cmd.Printf("Upserted %d seasons %d-%d (idempotent)\n",
			summary.SeasonsUpserted, summary.FirstSeason, summary.LastSeason)
		return nil
	})
}

func runSeason(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid year %q", args[0])
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		summary, err := a.runner.Season(ctx, year)
		if err != nil && !errors.Is(err, loader.ErrChunkFailed) {
			return fmt.Errorf("season %d failed: %w", year, err)
		}

		printLoadSummary(cmd, summary)
		cmd.Printf("Upserted %d games for %d.\n", summary.Load.Written, year)
		if err != nil {
			return fmt.Errorf("season %d stopped after %d chunks: %w", year, summary.Load.Chunks, err)
		}
		return nil
	})
}

func runDaily(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		summary, err := a.runner.Daily(ctx)
		if err != nil && !errors.Is(err, loader.ErrChunkFailed) {
			return fmt.Errorf("daily refresh failed: %w", err)
		}

		cmd.Printf("(Daily) refreshing games %s..%s\n",
			summary.Start.Format(time.DateOnly), summary.End.Format(time.DateOnly))
		printLoadSummary(cmd, summary)
		cmd.Printf("Upserted %d games.\n", summary.Load.Written)
		if err != nil {
			return fmt.Errorf("daily refresh stopped after %d chunks: %w", summary.Load.Chunks, err)
		}
		return nil
	})
}

func printLoadSummary(cmd *cobra.Command, s pipeline.LoadSummary) {
	cmd.Printf("Fetched %d days, %d games from API\n", s.Days, s.GamesFetched)
	cmd.Printf("Mapped %d regular-season games\n", s.Mapped)
	if s.Rejected > 0 {
		cmd.Printf("Skipped %d games due to missing season/team ids (run `bootstrap` first to upsert teams/seasons).\n", s.Rejected)
	}
	if s.Load.Skipped > 0 {
		cmd.Printf("Skipped %d games without both team ids\n", s.Load.Skipped)
	}
	if s.Load.Duplicates > 0 {
		cmd.Printf("Merged %d duplicate games\n", s.Load.Duplicates)
	}
}
