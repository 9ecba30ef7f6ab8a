package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-toko-orders/internal/catalog"
	"github.com/ariefcatur/go-toko-orders/internal/config"
	"github.com/ariefcatur/go-toko-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-toko-orders/internal/kafka"
	"github.com/ariefcatur/go-toko-orders/internal/logger"
	"github.com/ariefcatur/go-toko-orders/internal/metrics"
	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/ariefcatur/go-toko-orders/internal/postgres"
	"github.com/ariefcatur/go-toko-orders/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	lg := logger.Setup(cfg.ServiceName, cfg.LogLevel)

	// total_price & price dikirim sebagai angka JSON, bukan string
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		lg.Error().Err(err).Msg("api stopped")
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
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		lg.Info().Msg("schema migrated")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		lg.Warn().Err(err).Msg("redis unavailable, cache & idempotency degraded")
	}

	// Kafka producer (satu writer untuk semua topic order)
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, lg)
	prod.Start()

	gw := postgres.NewGateway(db, iso)
	m := metrics.New()
	orderCache := redisx.NewOrderCache(rdb, cfg.OrderCacheTTL)
	router := httpx.NewRouter(httpx.RouterDeps{
		Logger:    lg,
		Metrics:   m,
		MetricsUI: m.Handler(),
		JWTSecret: cfg.JWTSecret,
		Orders: &httpx.OrdersHandler{
			Orders:  orders.NewEngine(gw, cfg.TxTimeout),
			Cache:   orderCache,
			Idem:    redisx.NewIdempotency(rdb, cfg.IdempotencyTTL),
			Events:  kafkax.NewOrderEvents(prod, cfg.ServiceName),
			Metrics: m,
		},
		Catalog: &httpx.CatalogHandler{Catalog: catalog.NewService(gw), Cache: orderCache},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info().Msg("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		prod.Close()      // tutup inbox -> flush & close writer
		prod.WaitClosed() // drain
		return err
	})
	return g.Wait()
}
