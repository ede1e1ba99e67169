package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/checkin-facility/internal/clock"
	"github.com/iliyamo/checkin-facility/internal/config"
	"github.com/iliyamo/checkin-facility/internal/database"
	"github.com/iliyamo/checkin-facility/internal/database/migrations"
	"github.com/iliyamo/checkin-facility/internal/handler"
	"github.com/iliyamo/checkin-facility/internal/jobs"
	"github.com/iliyamo/checkin-facility/internal/logger"
	"github.com/iliyamo/checkin-facility/internal/middleware"
	"github.com/iliyamo/checkin-facility/internal/observability"
	"github.com/iliyamo/checkin-facility/internal/queue"
	"github.com/iliyamo/checkin-facility/internal/repository"
	"github.com/iliyamo/checkin-facility/internal/repository/memory"
	"github.com/iliyamo/checkin-facility/internal/repository/mysql"
	"github.com/iliyamo/checkin-facility/internal/router"
	"github.com/iliyamo/checkin-facility/internal/service"
)

const (
	shutdownTimeout = 10 * time.Second
	publishTimeout  = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, "checkin-facility", cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	store, db, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	rlCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		return err
	}
	var rdb *redis.Client
	if rlCfg.Enabled || cfg.LivenessTransport == config.TransportRedis {
		rdb, err = openRedis(ctx, log, cfg.LivenessTransport == config.TransportRedis)
		if err != nil {
			return err
		}
		if rdb != nil {
			defer rdb.Close()
		}
	}

	publisher, closePublisher := newPublisher(cfg, rdb, log)
	defer closePublisher()

	clk := clock.NewSystem()
	core := service.NewCore(store,
		service.WithClock(clk),
		service.WithLogger(log),
		service.WithLivenessPublisher(publisher),
		service.WithVisitDurations(cfg.VisitInitialDurationMinutes, cfg.VisitMaxTotalDurationMinutes),
		service.WithRegisterSessionTTL(cfg.RegisterSessionTTL()),
		service.WithSweepBatchSize(cfg.RegisterSessionSweepBatchSize),
	)

	sweeper := jobs.NewSweeper(core.RegisterSessions, cfg.SweepInterval(), log)
	sweeperDone := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(sweeperDone)
	}()

	if cfg.LivenessConsumerEnabled && cfg.LivenessTransport == config.TransportRabbitMQ {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, queue.LogHandler(log.Named("liveness")), log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("liveness consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	router.RegisterRoutes(e, pinger)
	router.RegisterAPI(e, router.Handlers{
		Inventory: handler.NewInventoryHandler(core, log),
		Holds:     handler.NewHoldHandler(core, clk, log),
		Visits:    handler.NewVisitHandler(core, log),
		Upgrades:  handler.NewUpgradeHandler(core, clk, log),
		Registers: handler.NewRegisterHandler(core, log),
	}, router.Auth{
		JWTSecret:       cfg.JWTSecret,
		StaffSessionTTL: cfg.StaffSessionTTL(),
		RateLimit:       middleware.NewTokenBucket(rlCfg, rdb, log.Named("ratelimit")),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", ":"+cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver),
			zap.String("liveness", cfg.LivenessTransport))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	stop()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = e.Shutdown(sctx)
	select {
	case <-sweeperDone:
	case <-sctx.Done():
		log.Warn("sweeper did not stop before the shutdown deadline")
	}
	return err
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.Store, *sql.DB, error) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn("using in-memory store; state is lost on restart")
		return memory.New(), nil, nil
	}
	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.Apply(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return mysql.NewStore(db), db, nil
}

// openRedis connects to Redis.  When Redis only backs the rate limiter a
// failed connection is logged and the limiter is left disabled.
func openRedis(ctx context.Context, log *zap.Logger, required bool) (*redis.Client, error) {
	rcfg, err := config.LoadRedisConfig()
	if err != nil {
		return nil, err
	}
	rdb, err := config.NewRedisClient(ctx, rcfg)
	if err != nil {
		if required {
			return nil, err
		}
		log.Warn("redis unavailable; rate limiting disabled", zap.String("addr", rcfg.Addr), zap.Error(err))
		return nil, nil
	}
	return rdb, nil
}

// newPublisher picks the liveness transport.  Real transports sit behind an
// AsyncPublisher so a slow broker never holds up a request.
func newPublisher(cfg config.Config, rdb *redis.Client, log *zap.Logger) (service.LivenessPublisher, func()) {
	var next queue.Publisher
	closeNext := func() {}
	switch cfg.LivenessTransport {
	case config.TransportRabbitMQ:
		log.Info("publishing liveness events to rabbitmq", zap.String("url", cfg.RedactedRabbitURL()))
		p := queue.NewRabbitPublisher(cfg.RabbitMQURL, log.Named("liveness"))
		next = p
		closeNext = func() {
			if err := p.Close(); err != nil {
				log.Warn("rabbitmq publisher close failed", zap.Error(err))
			}
		}
	case config.TransportRedis:
		next = queue.NewRedisPublisher(rdb)
	default:
		return queue.NoopPublisher{}, func() {}
	}

	async := queue.NewAsyncPublisher(next, cfg.LivenessBufferSize, publishTimeout, log.Named("liveness"))
	return async, func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := async.Close(ctx); err != nil {
			log.Warn("liveness events dropped at shutdown", zap.Error(err))
		}
		closeNext()
	}
}
