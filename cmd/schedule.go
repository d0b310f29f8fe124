package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-crawler/internal/scheduler"
)

func newScheduleCmd() *cobra.Command {
	var runOnce bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Runs crawls on the schedule.spec cron schedule",
		Long: `Runs a crawl every time schedule.spec fires, interpreted in schedule.timezone.
A trigger is skipped while the previous crawl is still running.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.Logger().Named("scheduler")
			s, err := scheduler.New(appInstance.Config().Schedule, func(ctx context.Context) error {
				report, err := appInstance.Crawl(ctx)
				if err != nil {
					return err
				}
				logger.Info("crawl persisted",
					zap.String("run_id", report.RunID),
					zap.Int("saved", report.Saved),
					zap.Int("failed", report.Failed),
				)
				return nil
			}, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if runOnce {
				return s.RunOnce(ctx)
			}
			return s.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&runOnce, "run-once", false, "crawl once and exit instead of waiting for the schedule")
	return cmd
}
