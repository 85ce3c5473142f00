package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"moneycoach/internal/amqp"
	"moneycoach/internal/cache"
	"moneycoach/internal/cli"
	"moneycoach/internal/extract"
	apphttp "moneycoach/internal/http"
	"moneycoach/internal/log"
	"moneycoach/internal/middleware/auth"
	"moneycoach/internal/services"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
)

func main() {
	cfg, logger := cli.Bootstrap()
	logger.Info("Starting moneycoach")

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	store := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer store.Close()

	client, err := cli.InitLLM(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize model provider", log.FieldError, err)
		os.Exit(1)
	}

	exporter, err := cli.InitExporter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
		os.Exit(1)
	}

	views := cache.NewViews(cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(views)
	cacheManager.StartCleanup(cacheCleanupInterval)
	defer cacheManager.Stop()

	// Without a broker each instance only drops its own cached views.
	var (
		amqpClient *amqp.Client
		publisher  services.ChangePublisher
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, uuid.NewString(), logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("Change fan-out enabled", "exchange", cfg.AMQPExchange, "instance_id", amqpClient.InstanceID())
	} else {
		logger.Info("AMQP disabled, no AMQP_URL provided")
	}

	changes := services.NewChanges(views, publisher, logger)
	svc := apphttp.Services{
		Goals:     services.NewGoalService(store, extract.New(client), changes, logger),
		Budget:    services.NewBudgetService(store, client, exporter, changes, logger),
		Habits:    services.NewHabitService(store, store, store, client, changes, logger),
		Playbooks: services.NewPlaybookService(store, client, changes, logger),
		Account:   services.NewAccountService(store, changes, logger),
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Verifier:           auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, logger),
		Views:              views,
		DefaultLocation:    cfg.Location(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		// One call, its retry and a repair round trip.
		AITimeout: 3*cfg.LLMTimeout + cfg.LLMRetryBackoff,
		Ready:     store.Ping,
		Logger:    logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", "port", cfg.Port, "llm_enabled", cfg.LLMEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeChanges(gctx, func(e *amqp.ChangeEvent) error {
				n := views.Invalidate(e.UserID, e.Views...)
				logger.Debug("Peer change applied", log.FieldUserID, e.UserID, log.FieldCount, n)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
