package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/JL037/mlbtracker/internal/metrics"
	"github.com/JL037/mlbtracker/internal/scheduler"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily and bootstrap refreshes on cron schedules",
	Long: `Runs until interrupted. The daily refresh follows DAILY_REFRESH_CRON and the
team/season refresh follows BOOTSTRAP_REFRESH_CRON. Prometheus metrics and a
health check are served on METRICS_PORT when ENABLE_METRICS is set.`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if a.cfg.EnableMetrics {
			srv := newMetricsServer(a.cfg.MetricsPort, a.health)
			go func() {
				log.Info().Int("port", a.cfg.MetricsPort).Msg("Starting metrics server")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("Metrics server failed")
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		go trackUptime(ctx)

		sched := scheduler.NewScheduler(scheduler.Options{
			DailyCron:     a.cfg.DailyRefreshCron,
			BootstrapCron: a.cfg.BootstrapRefreshCron,
		}, a.runner)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		cmd.Println("Scheduler running, press Ctrl+C to stop")

		<-ctx.Done()
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		sched.Stop()
		return nil
	})
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func newMetricsServer(port int, health func(ctx context.Context) error) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "healthy"}
		code := http.StatusOK
		if err := health(r.Context()); err != nil {
			resp = healthResponse{Status: "unhealthy", Error: err.Error()}
			code = http.StatusServiceUnavailable
		}

		body, err := sonic.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write(body)
	})

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func trackUptime(ctx context.Context) {
	start := time.Now()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.SystemUptime.Set(time.Since(start).Seconds())
		case <-ctx.Done():
			return
		}
	}
}
