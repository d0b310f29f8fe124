package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-crawler/internal/app"
)

func newCrawlCmd() *cobra.Command {
	var exportPath string
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs one crawl and persists the batch",
		Long: `Crawls from crawler.seed until the frontier is empty or crawler.max_pages
pages were visited, then upserts every accepted article in one transaction.
Interrupting the crawl still persists what was collected so far.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, exportPath)
		},
	}
	cmd.Flags().StringVar(&exportPath, "export", "", "also write the batch as CSV to this path")
	return cmd
}

func runCrawl(cmd *cobra.Command, exportPath string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := appInstance.Crawl(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}
	appInstance.Logger().Info("crawl command finished",
		zap.String("run_id", report.RunID),
		zap.Int("pages_visited", report.PagesVisited),
		zap.Int("saved", report.Saved),
		zap.Int("failed", report.Failed),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: visited %d pages, saved %d articles, %d failed\n",
		report.RunID, report.PagesVisited, report.Saved, report.Failed)

	if exportPath == "" {
		return nil
	}
	f, err := os.Create(exportPath)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := app.ExportCSV(f, report.Records); err != nil {
		_ = f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", len(report.Records), exportPath)
	return nil
}
