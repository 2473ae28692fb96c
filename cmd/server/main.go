package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"

	"payment-reconciliation-backend/internal/config"
	"payment-reconciliation-backend/internal/handlers"
	"payment-reconciliation-backend/internal/logging"
	"payment-reconciliation-backend/internal/mirror"
	"payment-reconciliation-backend/internal/query"
	"payment-reconciliation-backend/internal/queue"
	"payment-reconciliation-backend/internal/routes"
	"payment-reconciliation-backend/internal/statemachine"
	"payment-reconciliation-backend/internal/store"
	"payment-reconciliation-backend/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	s, err := store.Open(cfg.DatabaseDSN, logger.Warn)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to authoritative store")
	}

	progressMirror := buildMirror(cfg, log)
	batchWorker := worker.New(s, progressMirror, logging.WithComponent(log, "worker"))
	jobHandler := func(ctx context.Context, payload queue.BatchJobPayload) error {
		return batchWorker.Process(ctx, payload.BatchID, payload.FilePath)
	}

	enqueuer, runQueue := buildQueue(cfg, log, jobHandler)
	fallbackEnqueuer := queue.NewInProcess(jobHandler, logging.WithComponent(log, "queue_fallback"))
	if runQueue != nil {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := runQueue(ctx); err != nil {
				log.WithError(err).Error("queue consumer stopped")
			}
		}()
	}

	queryService := query.New(s)
	sm := statemachine.New(s)

	h := routes.Handlers{
		Reconciliation: handlers.NewReconciliationHandler(s, queryService, progressMirror, enqueuer, fallbackEnqueuer, cfg.UploadDir, cfg.MaxUploadBytes, logging.WithComponent(log, "reconciliation_handler")),
		Transactions:   handlers.NewTransactionHandler(s, sm),
		Invoices:       handlers.NewInvoiceHandler(s, queryService, logging.WithComponent(log, "invoice_handler")),
		Health:         handlers.NewHealthHandler(s.DB()),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	routes.Register(r, cfg.APIPrefix, h)

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("addr", srv.Addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// buildMirror wires the Redis-backed progress mirror, falling back to the
// null-object implementation if Redis is unreachable at startup (spec §9
// graceful degradation).
func buildMirror(cfg *config.Config, log *logrus.Logger) mirror.Mirror {
	m, err := mirror.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logging.WithComponent(log, "mirror"))
	if err != nil {
		log.WithError(err).Warn("progress mirror unavailable at startup, falling back to no-op mirror")
		return mirror.NoopMirror{}
	}
	return m
}

// buildQueue wires the persistent asynq queue, falling back to the
// in-process queue if the broker is unreachable at startup. Returns the
// Enqueuer the upload handler depends on, plus a Run function to start
// consuming (nil when running in-process, since that queue has no
// separate consumer loop).
func buildQueue(cfg *config.Config, log *logrus.Logger, handler queue.Handler) (queue.Enqueuer, func(context.Context) error) {
	opts := queue.Options{
		Concurrency:  cfg.QueueConcurrency,
		LockDuration: cfg.LockDuration,
		MaxAttempts:  cfg.MaxRetryAttempts,
	}

	q, err := queue.NewAsynq(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts, logging.WithComponent(log, "queue"))
	if err != nil {
		log.WithError(err).Warn("persistent queue unavailable at startup, falling back to in-process queue")
		return queue.NewInProcess(handler, logging.WithComponent(log, "queue")), nil
	}
	return q, func(ctx context.Context) error { return q.Run(ctx, handler) }
}

func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithField("component", "http").WithField("status", c.Writer.Status()).
			WithField("latency_ms", time.Since(start).Milliseconds()).
			WithField("path", c.Request.URL.Path).
			WithField("method", c.Request.Method).
			Info("request handled")
	}
}
