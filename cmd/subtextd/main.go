// Command subtextd serves the subtext HTTP API.
//
// @title        Subtext Backend API
// @version      1.0
// @description  Email gate, subtext rewrites and short-lived shared results.
// @BasePath     /api
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "github.com/tbourn/go-subtext-backend/docs"
	"github.com/tbourn/go-subtext-backend/internal/config"
	"github.com/tbourn/go-subtext-backend/internal/gemini"
	"github.com/tbourn/go-subtext-backend/internal/gencache"
	httpapi "github.com/tbourn/go-subtext-backend/internal/http"
	"github.com/tbourn/go-subtext-backend/internal/kv"
	"github.com/tbourn/go-subtext-backend/internal/observability"
	"github.com/tbourn/go-subtext-backend/internal/ratelimit"
	"github.com/tbourn/go-subtext-backend/internal/repo"
	"github.com/tbourn/go-subtext-backend/internal/services"
	"github.com/tbourn/go-subtext-backend/internal/sysutil"
)

// Version is set by the build system via -ldflags.
var Version = "dev"

// shutdownGrace bounds graceful HTTP shutdown.
const shutdownGrace = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "subtextd",
		Short:         "Subtext email rewrite backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), healthcheckCmd(), versionCmd())
	return root
}

// serveCmd runs the HTTP server until SIGINT/SIGTERM.
func serveCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadDotenv(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment (missing is fine)")
	return cmd
}

// healthcheckCmd exits non-zero unless the local /health answers 200.
func healthcheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the local health endpoint and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			port := sysutil.FirstNonEmpty(os.Getenv("PORT"), "8080")
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://127.0.0.1:"+port+"/health", nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("healthcheck failed: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("healthcheck returned %d", resp.StatusCode)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "healthy")
			return nil
		},
	}
}

// versionCmd prints the version and exits.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "subtextd %s\n", Version)
		},
	}
}

// loadDotenv reads path into the environment unless SKIP_DOTENV is set.
// Variables already present in the environment win.
func loadDotenv(path string) error {
	if path == "" || sysutil.IsTruthy(os.Getenv("SKIP_DOTENV")) {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// backend is an opened durable store plus what the janitor should sweep.
type backend struct {
	store   kv.Store
	pruners []kv.Pruner
	close   func() error
}

// openStore builds the durable key-value store named by cfg.Driver.
func openStore(cfg config.StoreConfig) (backend, error) {
	switch cfg.Driver {
	case config.StoreRedis:
		client, err := kv.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return backend{}, fmt.Errorf("redis: %w", err)
		}
		return backend{store: kv.NewRedisStore(client, cfg.Prefix), close: client.Close}, nil
	case config.StoreSQLite:
		db, err := repo.OpenSQLite(cfg.DBPath)
		if err != nil {
			return backend{}, fmt.Errorf("sqlite: %w", err)
		}
		if err := repo.AutoMigrate(db); err != nil {
			return backend{}, fmt.Errorf("sqlite migrate: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return backend{}, fmt.Errorf("sqlite: %w", err)
		}
		st := kv.NewSQLStore(db)
		return backend{store: st, pruners: []kv.Pruner{st}, close: sqlDB.Close}, nil
	case config.StoreMemory:
		st := kv.NewMemoryStore()
		return backend{store: st, pruners: []kv.Pruner{st}, close: func() error { return nil }}, nil
	default:
		return backend{}, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// runJanitor sweeps the durable backend's expired rows until ctx ends. The
// in-process fallback is left alone; its entries expire on read.
func runJanitor(ctx context.Context, interval time.Duration, be backend, log zerolog.Logger) {
	if err := kv.NewJanitor(interval, log, be.pruners...).Run(ctx); err != nil {
		log.Warn().Err(err).Msg("janitor exited")
	}
}

// buildDeps wires services over the opened store.
func buildDeps(cfg config.Config, durable, fallback kv.Store, log zerolog.Logger) httpapi.Deps {
	gen := gemini.New(cfg.Gemini, log)

	limiter := ratelimit.New(durable, ratelimit.Config{
		MaxAttempts: cfg.Auth.MaxAttempts,
		Window:      cfg.Auth.Window,
		Block:       cfg.Auth.Block,
	}, log)

	var cache gencache.Cache = gencache.New(cfg.CacheTTL)
	if cfg.TestMode {
		cache = gencache.Disabled{}
	}

	return httpapi.Deps{
		Auth: services.NewAuthService(cfg.Auth.AllowedDomains, limiter),
		Translate: &services.TranslateService{
			Cache:        cache,
			Generator:    gen,
			MaxTextRunes: cfg.MaxTextRunes,
			MaxBodyRunes: cfg.MaxBodyRunes,
		},
		Results: services.NewResultService(services.ResultOptions{
			Durable:  durable,
			Fallback: fallback,
			Emails:   gen,
			TTL:      cfg.ResultTTL,
			Driver:   cfg.Store.Driver,
			Log:      log,
		}),
	}
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	log := sysutil.SetupLogger(nil, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName, Version)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, Version,
		observability.AttrStoreDriver.String(cfg.Store.Driver),
		observability.AttrGenModel.String(cfg.Gemini.Model),
	)
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	be, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := be.close(); err != nil {
			log.Warn().Err(err).Msg("store close")
		}
	}()
	if err := be.store.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("driver", cfg.Store.Driver).Msg("durable store unreachable; results will use the in-process fallback")
	}
	if cfg.Gemini.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is empty; translate requests will fail")
	}

	fallback := kv.NewMemoryStore()
	go runJanitor(ctx, cfg.Store.JanitorInterval, be, log)

	r := gin.New()
	httpapi.RegisterRoutes(r, buildDeps(cfg, be.store, fallback, log), cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.Store.Driver).
			Bool("test_mode", cfg.TestMode).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shCtx)
}
