package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coldchain/compliance/internal/auth"
	"coldchain/compliance/internal/config"
	"coldchain/compliance/internal/history"
	"coldchain/compliance/internal/logger"
	"coldchain/compliance/internal/pipeline"
	"coldchain/compliance/internal/store"
	transporthttp "coldchain/compliance/internal/transport/http"
	"coldchain/compliance/internal/transport/mqtt"
)

const serviceName = "coldchain-compliance"

func Run() error {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if cfg.LogFormat != "console" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	redisStore, err := store.NewRedisStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer redisStore.Close()

	log.Info("dependencies ready",
		zap.String("store", cfg.StoreBackend),
		zap.String("redis", cfg.RedisAddr),
	)

	dispatcher := pipeline.NewDispatcher(cfg.StateChannelSize, cfg.AlertChannelSize)
	resolver := pipeline.NewRangeResolver(st, time.Duration(cfg.RangeCacheTTLSeconds)*time.Second, log)
	evaluator := pipeline.NewEvaluator(pipeline.Thresholds{
		HighRatio:   cfg.SeverityHighRatio,
		HighAbs:     cfg.SeverityHighAbs,
		MediumRatio: cfg.SeverityMediumRatio,
		MediumAbs:   cfg.SeverityMediumAbs,
	})
	alerts := pipeline.NewAlertManager(st, dispatcher, log)
	ingestor := pipeline.NewIngestor(st, resolver, evaluator, alerts, dispatcher,
		time.Duration(cfg.ClockSkewSeconds)*time.Second, log)
	shipments := pipeline.NewShipmentService(st, resolver, log)
	hist := history.NewService(st, cfg.DefaultPageSize, cfg.MaxPageSize)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	liveTTL := time.Duration(cfg.LiveStateTTLSec) * time.Second
	for i := 0; i < cfg.StateWriterWorkers; i++ {
		w := pipeline.NewStateWriter(dispatcher.StateChan, redisStore, liveTTL, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			w.Run(workerCtx)
		}()
	}
	for i := 0; i < cfg.AlertWorkers; i++ {
		n := pipeline.NewAlertNotifier(dispatcher.AlertChan, redisStore, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			n.Run(workerCtx)
		}()
	}

	// Ingress that calls the ingestor outside of HTTP; joined before the
	// workers and the store shut down.
	var ingress sync.WaitGroup
	if cfg.MQTTBroker != "" {
		sub := mqtt.NewSubscriber(cfg, ingestor, log)
		ingress.Add(1)
		go func() {
			defer ingress.Done()
			if err := sub.Run(ctx); err != nil {
				log.Error("mqtt subscriber stopped", zap.Error(err))
			}
		}()
	}

	router := transporthttp.NewRouter(transporthttp.RouterConfig{
		Handlers: transporthttp.NewHandlers(ingestor, alerts, resolver, shipments, hist, redisStore, log),
		Stream:   transporthttp.NewAlertStream(redisStore, cfg.CORSOrigins, log),
		Auth: transporthttp.NewAuthMiddleware(
			auth.NewJWT([]byte(cfg.JWTSecret)),
			auth.NewAuthenticator(cfg, redisStore),
		),
		Health:         map[string]transporthttp.Pinger{"store": st, "redis": redisStore},
		AllowedOrigins: cfg.CORSOrigins,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			log.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}

	stop()
	ingress.Wait()

	// State writers flush their pending batch on cancellation.
	cancelWorkers()
	workers.Wait()

	log.Info("server exited")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "postgres":
		pg, err := store.NewPostgresStore(ctx, cfg.DBURL())
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}
