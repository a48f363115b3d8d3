package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/tms-api/internal/auth"
	"github.com/iliyamo/tms-api/internal/config"
	"github.com/iliyamo/tms-api/internal/database"
	"github.com/iliyamo/tms-api/internal/handler"
	"github.com/iliyamo/tms-api/internal/logging"
	"github.com/iliyamo/tms-api/internal/metrics"
	"github.com/iliyamo/tms-api/internal/queue"
	"github.com/iliyamo/tms-api/internal/repository"
	"github.com/iliyamo/tms-api/internal/router"
	"github.com/iliyamo/tms-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, closeLog, err := logging.Open(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("log file: %v", err)
	}
	defer closeLog()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		_ = closeLog()
		os.Exit(1)
	}
}

// redisPinger adapts a redis client to handler.Pinger.
type redisPinger struct{ *redis.Client }

func (r redisPinger) PingContext(ctx context.Context) error { return r.Ping(ctx).Err() }

func run(cfg config.Config, logger *slog.Logger) error {
	cfg.WarnInsecure(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		users   service.UserStore
		slots   auth.SlotRepository
		pingers []handler.Pinger
	)
	switch cfg.Storage {
	case "memory":
		repo := repository.NewMemoryUserRepo()
		users, slots = repo, repo
		logger.Warn("using in-memory storage; data is lost on restart")
	default:
		db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		users, slots = repository.NewUserRepo(db), repository.NewTokenRepo(db)
		pingers = append(pingers, db)
	}

	if cfg.RefreshStore == "redis" {
		rdb, err := config.NewRedisClient(ctx)
		if err != nil {
			return err
		}
		defer rdb.Close()
		slots = repository.NewRedisSlotRepo(rdb, users, "", cfg.RefreshTTL)
		pingers = append(pingers, redisPinger{rdb})
	}

	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		AccessSecret:  cfg.AccessSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshSecret: cfg.RefreshSecret,
		RefreshTTL:    cfg.RefreshTTL,
	})
	if err != nil {
		return err
	}
	store := auth.NewRefreshStore(slots, cfg.BcryptCost)
	authn := auth.NewAuthenticator(issuer, users, store)

	m := metrics.New()
	recorders := []auth.Recorder{m}
	var events service.Emitter

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AuditEnabled {
		sink := &service.AMQPSink{URL: cfg.RabbitURL}
		pub := service.NewAuditPublisher(sink, 256, logger)
		defer sink.Close()
		defer pub.Close()
		recorders = append(recorders, pub)
		events = pub

		consumer := queue.AuditConsumer{URL: cfg.RabbitURL, Dir: cfg.AuditLogDir, Log: logger}
		g.Go(func() error {
			if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	flows := auth.NewService(authn, issuer, store, recorders...)
	userSvc := service.NewUserService(users, store, cfg.BcryptCost, events, logger)

	if cfg.AdminEmail != "" {
		if _, err := userSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(logging.RequestLogger(logger))
	e.Use(logging.BodyLogger(logger))
	router.RegisterRoutes(e, router.Deps{
		Access:  authn,
		Auth:    handler.NewAuthHandler(flows, authn, logger),
		Users:   handler.NewUserHandler(userSvc, logger),
		Health:  handler.Health(pingers...),
		Metrics: m.Handler(),
	})

	addr := ":" + cfg.Port
	g.Go(func() error {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "storage", cfg.Storage, "refresh_store", cfg.RefreshStore)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
