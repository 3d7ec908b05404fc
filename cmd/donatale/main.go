package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/donatale/donatale/internal/config"
	"github.com/donatale/donatale/internal/infra/database"
	"github.com/donatale/donatale/internal/infra/gateway"
	"github.com/donatale/donatale/internal/infra/repository"
	"github.com/donatale/donatale/internal/infra/telemetry"
	"github.com/donatale/donatale/internal/interface/rest"
	restmw "github.com/donatale/donatale/internal/interface/rest/middleware"
	"github.com/donatale/donatale/internal/service"
	"github.com/donatale/donatale/internal/usecase"
)

var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("DONATALE_CONFIG"), "path to the yaml config file")
	limit := flag.Int("limit", 50, "max rows printed by the orphans command")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(cfg.Server.Env)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Server.EnableTrace {
		shutdown, err := telemetry.SetupTraceProvider(cfg.Server.TraceEndpoint, version)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to setup tracer")
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(flushCtx)
		}()
	}

	app, err := wire(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize")
	}

	command := flag.Arg(0)
	switch command {
	case "", "serve":
		serve(ctx, cfg, app, logger)
	case "orphans":
		if err := printOrphans(ctx, app.reservation, *limit); err != nil {
			logger.Fatal().Err(err).Msg("failed to list orphaned events")
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (expected serve or orphans)\n", command)
		os.Exit(2)
	}
}

type application struct {
	reservation *usecase.ReservationUsecase
	items       *usecase.ItemUsecase
}

func wire(ctx context.Context, cfg config.Config, logger zerolog.Logger) (application, error) {
	domainConfig := cfg.Domain()

	var store usecase.ContentStore = gateway.NewContentStoreGateway(gateway.ContentStoreOptions{
		BaseURL:       cfg.Store.BaseURL,
		APIToken:      cfg.Store.APIToken,
		Environment:   cfg.Store.Environment,
		RelationField: domainConfig.RelationField,
		UserAgent:     "donatale/" + version,
		Timeout:       cfg.Store.Timeout(),
	})
	if cfg.Server.MemcachedAddr != "" {
		mc := database.NewMemcached(cfg.Server.MemcachedAddr)
		store = gateway.NewListingCache(store, mc, domainConfig.ItemTypeKey, 0, logger)
	}

	sender := cfg.Notifier.SenderAddress
	if sender == "" {
		sender = gateway.SenderFromSite(cfg.Server.SiteURL)
	}
	mailer := gateway.NewMailerGateway(gateway.MailerOptions{
		BaseURL:       cfg.Notifier.BaseURL,
		APIKey:        cfg.Notifier.APIKey,
		SenderAddress: sender,
		Timeout:       cfg.Notifier.Timeout(),
		Retries:       cfg.Notifier.Retries,
	})

	opts := []usecase.ReservationOption{usecase.WithLogger(logger)}

	if cfg.Server.PostgresDsn != "" {
		db, err := database.NewPostgres(cfg.Server.PostgresDsn)
		if err != nil {
			return application{}, err
		}
		if err := database.MigratePostgres(db); err != nil {
			return application{}, err
		}
		opts = append(opts, usecase.WithAttemptLog(repository.NewAttemptRepository(db)))
	}

	if cfg.Server.RedisAddr != "" {
		rdb, err := database.NewRedis(ctx, cfg.Server.RedisAddr, cfg.Server.RedisDB)
		if err != nil {
			return application{}, err
		}
		opts = append(opts, usecase.WithSignalPublisher(service.NewSignalService(rdb)))
	}

	return application{
		reservation: usecase.NewReservationUsecase(store, mailer, domainConfig, opts...),
		items:       usecase.NewItemUsecase(store, domainConfig),
	}, nil
}

func serve(ctx context.Context, cfg config.Config, app application, logger zerolog.Logger) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if cfg.Server.EnableTrace {
		e.Use(otelecho.Middleware(telemetry.ServiceName, otelecho.WithSkipper(func(c echo.Context) bool {
			return c.Path() == "/healthz"
		})))
	}
	e.Use(restmw.RequestLogger(logger))
	e.Use(middleware.Recover())
	if len(cfg.Server.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
		}))
	}

	handler := rest.NewHandler(app.reservation, app.items, logger)
	handler.RegisterRoutes(e)

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Str("version", version).Msg("listening")
		if err := e.Start(cfg.Server.Addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func printOrphans(ctx context.Context, uc *usecase.ReservationUsecase, limit int) error {
	orphans, err := uc.Orphans(ctx, limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, o := range orphans {
		if err := enc.Encode(o); err != nil {
			return err
		}
	}
	return nil
}
