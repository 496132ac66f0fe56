package main

import (
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finledger/internal/cli"
	"finledger/internal/log"
	"finledger/internal/worker"
)

const statsInterval = 5 * time.Minute

func main() {
	cfg, logger := cli.LoadConfig()
	logger.Info("Starting finledger-worker", "queue", cfg.AMQPQueue)

	if !cfg.MessagingEnabled() {
		logger.Error("finledger-worker needs AMQP_URL")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := cli.InitAMQP(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	imports := cli.NewImportService(cfg, repo, amqpClient, logger)
	candidates := worker.NewCandidateWorker(imports, logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return candidates.Run(gctx, amqpClient)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				st := candidates.Stats()
				logger.Info("Candidate worker stats",
					"submitted", st.Submitted,
					"failed", st.Failed,
					"dropped", st.Dropped)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
