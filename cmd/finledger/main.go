package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finledger/internal/cache"
	"finledger/internal/cli"
	apphttp "finledger/internal/http"
	"finledger/internal/log"
	"finledger/internal/services"
)

func main() {
	cfg, logger := cli.LoadConfig()
	logger.Info("Starting finledger server", "port", cfg.Port, "db", cfg.SQLiteDBPath)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Confirmed-import events are best-effort; the API runs without a broker.
	amqpClient, err := cli.InitAMQP(logger, cfg)
	if err != nil {
		logger.Warn("AMQP unavailable, import events will not be published", log.FieldError, err)
	}
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	imports := cli.NewImportService(cfg, repo, amqpClient, logger)
	summaries := services.NewSummaryService(repo, services.SummaryConfig{
		DefaultDepth: cfg.SummaryDefaultDepth,
		MaxDepth:     cfg.MaxCategoryDepth,
		CacheSize:    cfg.SummaryCacheSize,
		CacheTTL:     cfg.SummaryCacheTTL,
	}, logger)
	cashflows := services.NewCashflowService(repo, logger)

	caches := cache.NewManager(logger)
	caches.Register(summaries.Cache())
	caches.StartCleanup(cfg.SummaryCacheTTL)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Summaries: summaries,
		Cashflow:  cashflows,
		Imports:   imports,
		Overview:  services.NewOverviewService(repo, logger),
		Store:     repo,
		Currency:  cfg.DefaultCurrency,
	}, logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
