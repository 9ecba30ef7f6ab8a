package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-toko-orders/internal/config"
	kafkax "github.com/ariefcatur/go-toko-orders/internal/kafka"
	"github.com/ariefcatur/go-toko-orders/internal/logger"
	"github.com/ariefcatur/go-toko-orders/internal/metrics"
	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/ariefcatur/go-toko-orders/internal/postgres"
	"github.com/ariefcatur/go-toko-orders/internal/projector"
	"github.com/ariefcatur/go-toko-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	lg := logger.Setup(cfg.ServiceName+"-projector", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(lg.WithContext(ctx), cfg); err != nil {
		lg.Error().Err(err).Msg("projector stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	lg := log.Logger

	iso, err := postgres.ParseIsolation(cfg.TxIsolation)
	if err != nil {
		return err
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	m := metrics.New()
	svc := &projector.Service{
		Orders:      orders.NewEngine(postgres.NewGateway(db, iso), cfg.TxTimeout),
		Cache:       redisx.NewOrderCache(rdb, cfg.OrderCacheTTL),
		Redis:       rdb,
		Metrics:     m,
		ServiceName: "projector",
	}

	topics := []string{orders.TopicOrderCreated, orders.TopicOrderStatusChanged}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, topics, cfg.ProjectorWorkers, lg)

	// hanya /healthz dan /metrics
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info().Str("group", cfg.ProjectorGroup).Strs("topics", topics).Int("workers", cfg.ProjectorWorkers).
			Msg("projector consumer started")
		return cons.Start(gctx, svc.Handle)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
