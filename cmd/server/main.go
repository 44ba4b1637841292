// Command server runs the water-consumption backend.
//
// Startup order: environment (.env), logging, tracing, credential files,
// database connector, HTTP server. Shutdown drains in-flight requests and
// flushes traces.
//
// @title       Water Consumption API
// @version     1.0
// @description Read-only access to the water-consumption reporting view.
// @license.name MIT
// @BasePath    /
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	_ "github.com/tbourn/go-water-backend/docs"
	"github.com/tbourn/go-water-backend/internal/config"
	"github.com/tbourn/go-water-backend/internal/creds"
	httpapi "github.com/tbourn/go-water-backend/internal/http"
	"github.com/tbourn/go-water-backend/internal/observability"
	"github.com/tbourn/go-water-backend/internal/repo"
	"github.com/tbourn/go-water-backend/internal/services"
	"github.com/tbourn/go-water-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		sysutil.SetupLogger(nil, "info", false)
		log.Fatal().Err(err).Msg("configuration error")
	}
	sysutil.SetupLogger(nil, cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("server stopped")
}

// run wires the application and serves until ctx is canceled.
func run(ctx context.Context, cfg config.Config) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	if err := provisionCreds(ctx, cfg.Creds); err != nil {
		return err
	}

	connector, err := repo.NewConnector(cfg.DB, cfg.OTEL.Enabled)
	if err != nil {
		return err
	}
	svc := services.NewConsumptionService(connector, cfg.DB)

	r := gin.New()
	httpapi.RegisterRoutes(r, svc, cfg)
	srv := newServer(cfg, r)

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("driver", cfg.DB.Driver).
			Str("view", svc.View).
			Str("version", version).
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown signal received, draining connections")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// provisionCreds materializes the wallet files. Failures abort startup only
// in strict mode; otherwise the service starts and requests surface the
// resulting connection errors.
func provisionCreds(ctx context.Context, cfg config.CredsConfig) error {
	var fetcher creds.BlobFetcher
	if cfg.Source == config.CredsSourceBlob {
		f, err := creds.NewAzureFetcher(cfg.Blob)
		if err != nil {
			return handleCredsErr(cfg.Strict, err)
		}
		fetcher = f
	}

	p := creds.New(cfg, fetcher)
	res, err := p.Ensure(ctx)
	if err != nil {
		return handleCredsErr(cfg.Strict, err)
	}
	for path, outcome := range res {
		log.Info().Str("path", path).Str("outcome", string(outcome)).Msg("credential file")
	}
	return nil
}

func handleCredsErr(strict bool, err error) error {
	if strict {
		return err
	}
	log.Error().Err(err).Msg("credential provisioning failed; continuing")
	return nil
}

// newServer applies the configured timeouts and header limits.
func newServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}
