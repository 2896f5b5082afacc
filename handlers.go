package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"f95-engagement/browser"
	"f95-engagement/config"
	"f95-engagement/services"
	"f95-engagement/storage"
	"f95-engagement/utils"
	"f95-engagement/watcher"
)

func runWatch(startURL string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger := utils.NewLogger(cfg.Debug)
	if startURL == "" {
		startURL = cfg.TargetURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Engagement watcher starting ===")
	logger.Info("Config | border: %dpx (enabled=%v) | nav: %s | settle: %v | retry: %v",
		cfg.BorderWidth, cfg.DrawBorder, cfg.NavSource, cfg.SettleDelay, cfg.ContainerRetryDelay)

	exporter, err := openExporter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if exporter != nil {
		defer func() {
			if err := exporter.Close(); err != nil {
				logger.Error("Export close failed: %v", err)
			}
		}()
	}

	tab, err := browser.Launch(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer tab.Close()

	if err := tab.Open(ctx, startURL); err != nil {
		return err
	}

	var nav watcher.NavigationSource = tab
	if cfg.NavSource == config.NavSourcePoll {
		poller := watcher.NewPollNavigation(tab, cfg.NavPollInterval, logger)
		poller.Start(ctx)
		nav = poller
	}

	var opts []watcher.Option
	if exporter != nil {
		opts = append(opts, watcher.WithExporter(exporter))
	}
	w := watcher.New(cfg, tab, nav, logger, opts...)

	// Closing the browser window ends the run like an interrupt does.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-tab.Done():
			logger.Info("Browser closed")
			cancel()
		case <-runCtx.Done():
		}
	}()

	err = w.Run(runCtx)
	if errors.Is(err, context.Canceled) {
		logger.Info("=== Engagement watcher stopped ===")
		return nil
	}
	return err
}

// openExporter wires the configured export backends; it returns nil when
// none is enabled.
func openExporter(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*storage.Exporter, error) {
	var writers []storage.PassWriter

	if cfg.CSVOutputPath != "" {
		csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			return nil, err
		}
		writers = append(writers, csvWriter)
		logger.Info("Exporting passes to %s", cfg.CSVOutputPath)
	}

	if cfg.PostgresEnabled {
		pgWriter, err := storage.NewPostgresWriter(ctx, cfg.DSN())
		if err != nil {
			for _, w := range writers {
				_ = w.Close()
			}
			return nil, err
		}
		writers = append(writers, pgWriter)
		logger.Info("Exporting passes to PostgreSQL (%s/%s)", cfg.PostgresHost, cfg.PostgresDB)
	}

	if len(writers) == 0 {
		return nil, nil
	}
	return storage.NewExporter(writers, cfg.ExportConcurrency, cfg.ExportTimeout, logger), nil
}

func runScore(path string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger := utils.NewLogger(cfg.Debug)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}
	defer f.Close()

	parser := services.NewCardParser(newScorer(cfg), logger)
	listings, err := parser.ParseDocument(f, cfg.ContainerID, cfg.CardSelector)
	if err != nil {
		return fmt.Errorf("score: parse %q: %w", path, err)
	}
	if listings == nil {
		return fmt.Errorf("score: container #%s not found in %s", cfg.ContainerID, path)
	}

	insights := services.NewInsightService(logger)
	insights.Print(insights.Generate(path, listings))
	return nil
}

func runCalc(views, likes string, rating *float64) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	v := services.ParseShorthand(views)
	l := services.ParseShorthand(likes)
	res := newScorer(cfg).Score(v, l, rating)

	fmt.Printf("  views  %12.0f  → %6.2f\n", v, res.Breakdown.Views)
	fmt.Printf("  likes  %12.0f  → %6.2f\n", l, res.Breakdown.Likes)
	if rating != nil {
		fmt.Printf("  rating %12.2f  → %6.2f\n", *rating, res.Breakdown.Rating)
	} else {
		fmt.Printf("  rating %12s  → %6.2f\n", "-", res.Breakdown.Rating)
	}
	fmt.Printf("  modifiers            %+6.2f\n", res.Modifiers)
	fmt.Printf("  total                %6s  (tier %d, %s)\n", res.Display(), res.Tier, res.Tier)
	return nil
}

func runLast() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger := utils.NewLogger(cfg.Debug)
	ctx := context.Background()

	pgWriter, err := storage.NewPostgresWriter(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer pgWriter.Close()

	stored, err := pgWriter.FetchLatestPass(ctx)
	if err != nil {
		return err
	}
	if stored == nil {
		logger.Info("No passes stored yet")
		return nil
	}

	insights := services.NewInsightService(logger)
	report := insights.Generate(stored.PageURL, stored.Listings)
	report.ScannedAt = stored.ScannedAt
	insights.Print(report)
	return nil
}

func newScorer(cfg *config.Config) *services.Scorer {
	return services.NewScorer(services.Weights{
		Views:  cfg.ViewsWeight,
		Likes:  cfg.LikesWeight,
		Rating: cfg.RatingWeight,
	})
}
