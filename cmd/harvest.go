package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forumvac/forumvac/internal/api"
	"github.com/forumvac/forumvac/internal/harvest"
	"github.com/forumvac/forumvac/internal/metrics"
)

// newHarvestCmd creates and configures the 'harvest' subcommand, which
// archives the configured presets: categories, subforums, threads,
// posts, and embedded images.
func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Archives the configured forum presets",
		Long: `Walks every configured preset through the remote RPC API and merges
categories, subforums, threads, posts, and embedded images into the
store. With scheduler.cron_spec set, the harvest repeats on that
schedule until interrupted.`,

		RunE: runHarvestCommand,
	}
}

func runHarvestCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.GetConfig()
	if len(cfg.Harvest.PresetIDs) == 0 {
		return errors.New("harvest.preset_ids is empty, nothing to archive")
	}

	sessionID, err := appInstance.ResolveSession(cmd.Context())
	if err != nil {
		return err
	}

	startOpsServer(appInstance)

	h := buildHarvester(appInstance, sessionID)
	return runWithSchedule(cmd.Context(), appInstance, "forum", h.Run)
}

// buildHarvester assembles a Harvester from the container's services.
func buildHarvester(appInstance App, sessionID string) *harvest.Harvester {
	cfg := appInstance.GetConfig()
	var images *harvest.ImageHarvester
	if cfg.Harvest.DoImages {
		images = harvest.NewImageHarvester(
			appInstance.GetStore(),
			&http.Client{Timeout: cfg.Remote.RequestTimeout()},
			appInstance.GetLogger(),
		)
	}
	return harvest.New(
		appInstance.GetClient(),
		appInstance.GetStore(),
		images,
		harvest.Config{
			PresetIDs:   cfg.Harvest.PresetIDs,
			SubforumIDs: cfg.Harvest.SubforumIDs,
			KeepGoing:   cfg.Harvest.KeepGoing,
			DoImages:    cfg.Harvest.DoImages,
		},
		sessionID,
		appInstance.GetLogger(),
		nil,
	)
}

// startOpsServer serves health probes and metrics when ops.addr is set.
func startOpsServer(appInstance App) {
	addr := appInstance.GetConfig().Ops.Addr
	if addr == "" {
		return
	}
	logger := appInstance.GetLogger()
	server := api.NewServer(nil, logger)
	go func() {
		logger.Info("ops server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, server.Handler()); err != nil {
			logger.Error("ops server failed", zap.Error(err))
		}
	}()
}

// runWithSchedule executes run once, and keeps re-running it on the
// configured cron schedule until the context is cancelled. A scheduled
// deployment also gets a periodic memory report.
func runWithSchedule(ctx context.Context, appInstance App, kind string, run func(context.Context) error) error {
	logger := appInstance.GetLogger()
	runOnce := func() error {
		metrics.RunStarted()
		defer metrics.RunFinished()
		if err := run(ctx); err != nil {
			metrics.ObserveRun(kind, "error")
			return err
		}
		metrics.ObserveRun(kind, "ok")
		return nil
	}

	spec := appInstance.GetConfig().Scheduler.CronSpec
	if spec == "" {
		stop := startMemStatsTicker(logger, memStatsInterval)
		defer stop()
		return runOnce()
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := runOnce(); err != nil {
			logger.Error("scheduled run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("parse scheduler.cron_spec: %w", err)
	}
	if _, err := c.AddFunc("@every 1m", func() { logMemStats(logger) }); err != nil {
		return fmt.Errorf("add memstats job: %w", err)
	}

	if err := runOnce(); err != nil {
		return err
	}
	logger.Info("running on schedule", zap.String("cron_spec", spec))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// memStatsInterval is how often a running harvest reports memory usage.
const memStatsInterval = time.Minute

// startMemStatsTicker logs memory usage every interval until the
// returned stop function is called.
func startMemStatsTicker(logger *zap.Logger, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				logMemStats(logger)
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

func logMemStats(logger *zap.Logger) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	logger.Info("memory usage",
		zap.Uint64("alloc_bytes", m.Alloc),
		zap.Uint64("sys_bytes", m.Sys),
		zap.Uint32("num_gc", m.NumGC),
		zap.Int("goroutines", runtime.NumGoroutine()),
	)
}
