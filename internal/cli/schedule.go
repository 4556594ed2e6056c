package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/tenscan/internal/model"
)

var (
	scheduleCron       string
	scheduleNow        bool
	scheduleRunTimeout time.Duration
)

// scheduleCmd repeats RunAll on a cron schedule
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run all parsers periodically until interrupted",
	Long: `Schedule runs every enabled parser on the cron expression from
schedule.cron (or --cron). A run still in progress when the next tick
arrives is not overlapped; the tick is skipped.

Example:
  tenscan schedule
  tenscan schedule --cron "*/30 * * * *" --now`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron expression (default: schedule.cron)")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "run once immediately before waiting for the schedule")
	scheduleCmd.Flags().DurationVar(&scheduleRunTimeout, "run-timeout", time.Hour, "timeout for each run")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	spec := cfg.Schedule.Cron
	if scheduleCron != "" {
		spec = scheduleCron
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{sources: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	if a.registry.Len() == 0 {
		return fmt.Errorf("no enabled sources configured (see 'tenscan config init')")
	}

	runOnce := func() {
		runCtx, cancel := context.WithTimeout(ctx, scheduleRunTimeout)
		defer cancel()

		report := a.manager.RunAll(runCtx)
		logRun(a, report)

		// Persist cache entries between runs rather than only at exit
		if a.cache != nil {
			if err := a.cache.Flush(); err != nil {
				a.logger.Warn().Err(err).Msg("failed to flush classification cache")
			}
		}
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, runOnce); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	if scheduleNow {
		runOnce()
	}

	c.Start()
	a.logger.Info().Str("cron", spec).Int("parsers", a.registry.Len()).Msg("scheduler started")

	<-ctx.Done()
	a.logger.Info().Msg("stopping scheduler, waiting for the current run")
	<-c.Stop().Done()

	lt := a.manager.Lifetime()
	a.logger.Info().
		Int("successful_runs", lt.SuccessfulRuns).
		Int("failed_runs", lt.FailedRuns).
		Int("saved", lt.Totals.SuccessfullySaved).
		Msg("scheduler stopped")
	return nil
}

func logRun(a *app, report model.RunReport) {
	event := a.logger.Info()
	if failed := len(report.Failed()); failed > 0 {
		event = a.logger.Warn().Int("failed_parsers", failed)
	}
	event.
		Str("run_id", report.RunID).
		Int("found", report.Stats.TotalFound).
		Int("saved", report.Stats.SuccessfullySaved).
		Int("duplicates", report.Stats.DuplicatesSkipped).
		Msg("scheduled run finished")
}
