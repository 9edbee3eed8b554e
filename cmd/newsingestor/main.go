package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"NewsIngestor/internal/app"
	"NewsIngestor/internal/config"
	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "newsingestor",
		Short:        "Ingest RSS/Atom feeds into the article store",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	newApp := func(ctx context.Context) (*app.Application, error) {
		cfg := config.Load()
		if verbose {
			cfg.Logging.Level = "debug"
		}
		return app.New(ctx, cfg, logging.New(cfg.Logging.Level))
	}

	root.AddCommand(newIngestCommand(newApp))
	root.AddCommand(newSeedCommand(newApp))
	root.AddCommand(newWatchCommand(newApp))
	return root
}

type appFactory func(ctx context.Context) (*app.Application, error)

func newIngestCommand(newApp appFactory) *cobra.Command {
	var (
		feedURL  string
		sourceID int64
		filePath string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion pass for a feed URL, source id, or local file",
		RunE: func(cmd *cobra.Command, args []string) error {
			selected := 0
			if feedURL != "" {
				selected++
			}
			if sourceID != 0 {
				selected++
			}
			if filePath != "" {
				selected++
			}
			if selected != 1 {
				return errors.New("exactly one of --feed-url, --source-id or --file is required")
			}

			ctx := cmd.Context()
			application, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer application.Close()

			var stats domain.IngestStats
			switch {
			case feedURL != "":
				stats, err = application.Pipeline().IngestURL(ctx, feedURL)
			case sourceID != 0:
				stats, err = application.Pipeline().IngestSource(ctx, sourceID)
			default:
				stats, err = application.Pipeline().IngestFile(ctx, filePath)
			}

			fmt.Printf("Feed ingestion completed: %d parsed, %d inserted, %d skipped, %d errors\n",
				stats.Parsed, stats.Inserted, stats.Skipped, stats.Errors)
			return err
		},
	}

	cmd.Flags().StringVar(&feedURL, "feed-url", "", "ingest articles from a feed URL")
	cmd.Flags().Int64Var(&sourceID, "source-id", 0, "ingest articles from a registered source")
	cmd.Flags().StringVar(&filePath, "file", "", "ingest articles from a local feed file")
	return cmd
}

func newSeedCommand(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <sources.json>",
		Short: "Upsert sources from a JSON seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			application, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer application.Close()

			stats, err := application.Sources().SeedFromFile(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Source seeding completed: %d created, %d updated, %d skipped\n",
				stats.Created, stats.Updated, stats.Skipped)
			return nil
		},
	}
}

func newWatchCommand(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-ingest all active sources on the configured interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Watch(ctx)
		},
	}
}
