package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexscope/internal/config"
	"github.com/dgnsrekt/gexscope/internal/gex"
	"github.com/dgnsrekt/gexscope/internal/preset"
	"github.com/dgnsrekt/gexscope/internal/scan"
	"github.com/dgnsrekt/gexscope/internal/server"
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

	logger.Info("configuration loaded",
		zap.String("port", cfg.Server.Port),
		zap.String("symbol", cfg.Profile.Symbol),
		zap.Int("maxDTE", cfg.Profile.MaxDTE),
		zap.Int("strikeCount", cfg.Profile.StrikeCount),
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
	presets := preset.NewStore(cfg.Profile.PresetDirectory)

	srv := server.NewServer(engine, scanner, connect, presets, cfg.Profile, logger)
	router := server.NewRouter(srv, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		case <-ctx.Done():
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("server listening", zap.String("addr", httpServer.Addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", zap.Error(err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}
