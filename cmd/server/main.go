package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-reviews/internal/config"
	"github.com/iliyamo/movie-reviews/internal/database"
	"github.com/iliyamo/movie-reviews/internal/handler"
	"github.com/iliyamo/movie-reviews/internal/middleware"
	"github.com/iliyamo/movie-reviews/internal/queue"
	"github.com/iliyamo/movie-reviews/internal/repository"
	"github.com/iliyamo/movie-reviews/internal/router"
	"github.com/iliyamo/movie-reviews/internal/service"
	"github.com/iliyamo/movie-reviews/internal/store"
	"github.com/iliyamo/movie-reviews/internal/translation"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis backs the store when selected and, when reachable, the rate
	// limiter and response cache.
	var rdb redis.UniversalClient
	client, err := config.NewRedisClient(cfg.Redis)
	switch {
	case err == nil:
		rdb = client
		defer client.Close()
	case cfg.StoreBackend == config.BackendRedis:
		return err
	default:
		logger.Warn("redis unavailable, using in-process rate limiting", slog.Any("error", err))
	}

	awsCfg, err := config.LoadAWS(ctx, cfg.AWS)
	if err != nil {
		return err
	}

	records, closeStore, err := openStore(ctx, cfg, rdb, awsCfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var events service.Publisher = service.NopPublisher{}
	if cfg.Events.URL != "" {
		events = service.NewAMQPPublisher(cfg.Events.URL, cfg.Events.Queue, logger)
		if cfg.Events.Consumer {
			consumer := &queue.Consumer{URL: cfg.Events.URL, Queue: cfg.Events.Queue, LogPath: cfg.Events.LogPath, Logger: logger}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("review consumer stopped", slog.Any("error", err))
				}
			}()
		}
	}

	oracle := translation.NewAWSOracle(config.NewTranslateClient(awsCfg))
	listCache := middleware.NewResponseCache(cfg.Cache, rdb, logger)
	reviews := handler.NewReviewHandler(repository.NewReviewRepo(records), events, logger, cfg.RequestTimeout)
	reviews.ListCache = listCache
	translations := handler.NewTranslationHandler(
		translation.NewService(records, oracle, translation.WithLogger(logger)),
		logger, cfg.RequestTimeout)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	}))

	router.RegisterRoutes(e)
	router.RegisterReviews(e, reviews, cfg.JWTSecret, listCache.Middleware())
	router.RegisterTranslations(e, translations, middleware.NewTokenBucket(cfg.RateLimit, rdb, logger))

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env), slog.String("store", cfg.StoreBackend))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore builds the record store selected by STORE_BACKEND. The returned
// func releases whatever the store holds open.
func openStore(ctx context.Context, cfg config.Config, rdb redis.UniversalClient, awsCfg aws.Config) (store.RecordStore, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return store.NewMemoryStore(), noop, nil
	case config.BackendRedis:
		return store.NewRedisStore(rdb), noop, nil
	case config.BackendDynamoDB:
		client := config.NewDynamoClient(awsCfg, cfg.AWS)
		return store.NewDynamoStore(client, cfg.AWS.DynamoTable, cfg.AWS.DynamoIndex), noop, nil
	case config.BackendMySQL:
		db, err := database.Open(cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewMySQLStore(db)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, func() { _ = db.Close() }, nil
	}
	return nil, nil, errors.New("unknown store backend " + cfg.StoreBackend)
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}
