package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/seat-lock-engine/internal/config"
	"github.com/iliyamo/seat-lock-engine/internal/database"
	"github.com/iliyamo/seat-lock-engine/internal/handler"
	"github.com/iliyamo/seat-lock-engine/internal/logger"
	"github.com/iliyamo/seat-lock-engine/internal/middleware"
	"github.com/iliyamo/seat-lock-engine/internal/queue"
	"github.com/iliyamo/seat-lock-engine/internal/repository"
	"github.com/iliyamo/seat-lock-engine/internal/router"
	"github.com/iliyamo/seat-lock-engine/internal/service"
	"github.com/iliyamo/seat-lock-engine/internal/venue"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		return fmt.Errorf("lease store: %w", err)
	}
	defer rdb.Close()

	v, err := loadVenue(ctx, cfg, config.LoadVenueConfig())
	if err != nil {
		return fmt.Errorf("venue: %w", err)
	}
	zl.Info("venue loaded", zap.Int("capacity", v.Capacity()), zap.Int("sections", len(v.Sections())))

	busCfg := config.LoadBusConfig()
	pub, err := newPublisher(busCfg, zl)
	if err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	defer pub.Close()
	emitter := service.NewEventEmitter(pub, service.EmitterConfig{
		BufferSize:     busCfg.BufferSize,
		Workers:        busCfg.Workers,
		PublishTimeout: busCfg.PublishTimeout,
		Topics: service.Topics{
			Locked:   busCfg.TopicLocked,
			Released: busCfg.TopicReleased,
			Sold:     busCfg.TopicSold,
		},
	}, zl.Named("emitter"))

	lockCfg := config.LoadLockConfig()
	failMode, err := service.ParseFailMode(lockCfg.FailMode)
	if err != nil {
		return err
	}
	store := repository.NewRedisLeaseStore(rdb)
	locks := service.NewLockManager(store, v, emitter,
		service.WithLeaseDuration(lockCfg.LeaseDuration),
		service.WithKeyPrefix(lockCfg.KeyPrefix),
		service.WithLogger(zl.Named("locks")),
	)
	status := service.NewStatusAggregator(store, v,
		service.WithFailMode(failMode),
		service.WithStatusKeyPrefix(lockCfg.KeyPrefix),
		service.WithStatusLogger(zl.Named("status")),
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(zl.Named("http")))

	router.RegisterRoutes(e, rdb)
	router.RegisterSeats(e, handler.NewSeatHandler(locks, status, v), cfg.JWTSecret, router.SeatMiddleware{
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, zl.Named("ratelimit")),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})
	router.RegisterAdmin(e, handler.NewAdminHandler(locks, zl.Named("admin")), cfg.JWTSecret)

	addr := ":" + cfg.Port
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("listening",
			zap.String("addr", addr),
			zap.String("env", cfg.Env),
			zap.Duration("lease", locks.LeaseDuration()),
			zap.String("bus", busCfg.Driver),
			zap.String("status_fail_mode", string(failMode)),
		)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zl.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			zl.Warn("http shutdown", zap.Error(err))
		}
		// Handlers are done, so nothing emits any more; flush what is queued.
		if err := emitter.Close(shutdownCtx); err != nil {
			zl.Warn("event emitter drain", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}

func loadVenue(ctx context.Context, cfg config.Config, vc config.VenueConfig) (*venue.Venue, error) {
	switch vc.Source {
	case "", "default":
		return venue.Default(), nil
	case "file":
		return venue.LoadFile(vc.File)
	case "mysql":
		db, err := database.Open(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return repository.NewVenueRepo(db).LoadVenue(ctx)
	}
	return nil, fmt.Errorf("unknown VENUE_SOURCE %q", vc.Source)
}

func newPublisher(c config.BusConfig, zl *zap.Logger) (queue.Publisher, error) {
	switch c.Driver {
	case "", "log":
		return queue.NewLogPublisher(zl.Named("bus")), nil
	case "rabbitmq":
		return queue.NewRabbitPublisher(c.RabbitURL, zl.Named("bus")), nil
	case "kafka":
		kp, err := queue.NewKafkaPublisher(c.KafkaBrokers, zl.Named("bus"))
		if err != nil {
			return nil, err
		}
		return kp, nil
	}
	return nil, fmt.Errorf("unknown EVENT_BUS_DRIVER %q", c.Driver)
}
