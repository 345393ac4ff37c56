package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the screen on a cron schedule",
	Long: `Schedule keeps the process alive and runs the full screen on the
configured cron expression, in the configured timezone. The default fires
at 16:45 America/New_York on weekdays, after the close.

Example:
  swingbot schedule -f swingbot.yaml`,
	RunE: runSchedule,
}

var scheduleNotify bool

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().BoolVar(&scheduleNotify, "notify", true, "post highlights to configured Discord webhooks after each run")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	loc := time.Local
	if cfg.Schedule.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Schedule.Timezone)
		if err != nil {
			return fmt.Errorf("load timezone %s: %w", cfg.Schedule.Timezone, err)
		}
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule.Cron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		log.Info().Str("cron", cfg.Schedule.Cron).Msg("scheduled screen starting")
		if err := executeRun(ctx, cfg, scheduleNotify); err != nil {
			log.Error().Err(err).Msg("scheduled screen failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cfg.Schedule.Cron, err)
	}

	c.Start()
	log.Info().
		Str("cron", cfg.Schedule.Cron).
		Str("timezone", loc.String()).
		Msg("scheduler started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info().Msg("scheduler stopping")
	<-c.Stop().Done()
	return nil
}
