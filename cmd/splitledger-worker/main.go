package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"splitledger/internal/amqp"
	"splitledger/internal/backend"
	"splitledger/internal/config"
	applog "splitledger/internal/log"
	"splitledger/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo, applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting splitledger-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	// The worker only reads; it never publishes change notifications.
	backendCfg.Notifier = backend.NoNotifier

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Slog())
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Cleanup failed", "error", err)
			}
		}
	}()

	auditWorker := worker.NewAuditWorker(result.Stores.Accounts, result.Stores.Expenses, cfg.AuditBatchSize)

	// Audit once on startup so drift is reported without waiting a
	// full interval.
	if err := auditWorker.RunAudit(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Startup audit failed", "error", err)
	}

	group, ctx := errgroup.WithContext(ctx)

	if cfg.Notifier == "amqp" {
		amqpLogger := logger.WithComponent(applog.ComponentAMQP)
		group.Go(func() error {
			return consumeChanges(ctx, cfg, auditWorker, amqpLogger)
		})
	} else {
		logger.Info("Change notifications disabled, relying on periodic audit only", "notifier", cfg.Notifier)
	}

	group.Go(func() error {
		ticker := time.NewTicker(cfg.AuditInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := auditWorker.RunAudit(ctx); err != nil && ctx.Err() == nil {
					logger.Error("Periodic audit failed", "error", err)
				}
			}
		}
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

// consumeChanges keeps a consumer attached to the change queue,
// reconnecting with backoff when the broker connection drops.
func consumeChanges(ctx context.Context, cfg *config.Config, auditWorker *worker.AuditWorker, logger *applog.Logger) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			attempt++
			delay := amqp.ExponentialBackoff(attempt)
			logger.Warn("Failed to connect to AMQP, retrying", "error", err, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		attempt = 0
		logger.Info("Consuming change notifications", "queue", cfg.AMQPQueue)

		err = client.ConsumeChanges(ctx, auditWorker.HandleChangeMessage)
		client.Close()
		if err == nil || err == context.Canceled {
			return ctx.Err()
		}
		if !amqp.IsConnectionError(err) {
			return err
		}
		attempt++
		delay := amqp.ExponentialBackoff(attempt)
		logger.Warn("AMQP connection lost, reconnecting", "error", err, "attempt", attempt, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
