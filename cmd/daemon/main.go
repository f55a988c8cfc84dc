// The daemon runs universe scans on an interval during market hours,
// appending results to the history store and pushing ntfy reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexscope/internal/config"
	"github.com/dgnsrekt/gexscope/internal/gex"
	"github.com/dgnsrekt/gexscope/internal/notify"
	"github.com/dgnsrekt/gexscope/internal/scan"
	"github.com/dgnsrekt/gexscope/internal/store"
	"github.com/dgnsrekt/gexscope/internal/tasty"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(os.Getenv("GEXSCOPE_CONFIG"))
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return 1
	}

	logger.Info("daemon configuration loaded",
		zap.Strings("tickers", cfg.Scan.Tickers),
		zap.Int("intervalSec", cfg.Scan.IntervalSec),
		zap.String("timezone", cfg.Scan.Timezone),
		zap.String("storeDir", cfg.Store.Directory),
		zap.Bool("notify", cfg.Notify.Enabled),
	)

	connect := tasty.Connector(tasty.Config{
		BaseURL:       cfg.Provider.BaseURL,
		ClientSecret:  cfg.Provider.ClientSecret,
		RefreshToken:  cfg.Provider.RefreshToken,
		Timeout:       cfg.Provider.Timeout(),
		RatePerSecond: cfg.Provider.RatePerSecond,
	}, logger)

	engine := gex.NewEngine(connect, logger)
	scanner := scan.New(engine, logger)
	scheduler := NewScheduler(cfg.Scan.Timezone)
	notifier := notify.New(&cfg.Notify, logger)

	history, err := store.New(cfg.Store.Directory, cfg.Store.Compress, logger)
	if err != nil {
		logger.Error("failed to create history store", zap.Error(err))
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	interval := time.Duration(cfg.Scan.IntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("daemon started", zap.Duration("interval", interval))

	for {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel()
			return 0

		case <-ticker.C:
			if !scheduler.ShouldRun(time.Now()) {
				logger.Debug("outside market hours, skipping scan")
				continue
			}
			runScan(ctx, cfg, scanner, history, notifier, scheduler, logger)

		case <-ctx.Done():
			logger.Info("context cancelled, shutting down")
			return 0
		}
	}
}

func runScan(ctx context.Context, cfg *config.Config, scanner *scan.Scanner, history *store.History, notifier notify.Notifier, scheduler *Scheduler, logger *zap.Logger) {
	date := scheduler.TodayDate()
	logger.Info("starting scan", zap.String("date", date))

	params := gex.Params{
		Selection: gex.Selection{
			MaxDTE:      cfg.Profile.MaxDTE,
			StrikeCount: cfg.Profile.StrikeCount,
		},
		MajorLevelThreshold: cfg.Profile.MajorThreshold,
		CollectWindow:       cfg.Profile.CollectWindow(),
	}

	results, summary := scanner.Run(ctx, cfg.Scan.Tickers, params)

	now := time.Now()
	for _, r := range results {
		if r.Err != "" {
			continue
		}
		if err := history.Append(r, now); err != nil {
			logger.Warn("failed to store result",
				zap.String("symbol", r.Symbol),
				zap.Error(err))
		}
	}

	logger.Info("scan finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)

	if err := notifier.SendScanReport(ctx, summary, date); err != nil {
		logger.Warn("failed to send scan report", zap.Error(err))
	}
}
