package main

import (
	"context"
	"errors"
	"expvar"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/movie-catalog/internal/config"
	"github.com/iliyamo/movie-catalog/internal/handler"
	"github.com/iliyamo/movie-catalog/internal/middleware"
	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/queue"
	"github.com/iliyamo/movie-catalog/internal/repository"
	"github.com/iliyamo/movie-catalog/internal/router"
	"github.com/iliyamo/movie-catalog/internal/service"
	"github.com/iliyamo/movie-catalog/internal/validation"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(newLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is optional: without it responses are not cached and rate
	// limiting is per process.
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		slog.Warn("redis unavailable, running without cache and with local rate limiting")
	} else {
		defer rdb.Close()
	}

	repo := repository.NewMovieRepo()
	validator := validation.NewMovieValidator(model.NewGenreSet(cfg.Genres))

	if cfg.SeedFile != "" {
		loaded, skipped, err := service.LoadSeed(ctx, cfg.SeedFile, validator, repo)
		switch {
		case err == nil:
			slog.Info("seed loaded", "path", cfg.SeedFile, "movies", loaded, "skipped", skipped)
		case errors.Is(err, fs.ErrNotExist) && !cfg.SeedRequired:
			slog.Warn("bundled seed file not found, starting empty", "path", cfg.SeedFile)
		default:
			slog.Error("failed to load seed file", "path", cfg.SeedFile, "error", err)
			os.Exit(1)
		}
	}

	qcfg := config.LoadQueueConfig()
	events := service.NewEventPublisher(qcfg)
	if qcfg.ConsumerEnabled {
		go func() {
			err := queue.StartMovieEventConsumer(ctx, qcfg.URL, qcfg.Queue, qcfg.LogFile)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("movie-events consumer stopped", "error", err)
			}
		}()
	}

	expvar.Publish("movies_total", expvar.Func(func() any { return repo.Len(context.Background()) }))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Metrics())
	e.Use(echomw.Recover())
	e.Use(requestLogger())
	e.Use(middleware.CORS(config.LoadCORSConfig()))
	e.Use(middleware.NewRateLimiter(ctx, config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.RegisterRoutes(e, repo)
	router.RegisterMovies(e, handler.NewMovieHandler(repo, validator, events))

	addr := ":" + cfg.Port
	go func() {
		slog.Info("starting movie catalog", "addr", addr, "env", cfg.Env, "movies", repo.Len(ctx))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down movie catalog")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// requestLogger writes one structured line per request.
func requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			slog.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}
