package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Ecews-Speed-Project/cmt-api/internal/config"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/access"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/casemanager"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/dashboard"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/performance"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/auth"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/db"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/logging"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/metrics"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/middleware"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/refresh"
	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/reporting"
)

const serviceName = "cmt-api"

func main() {
	rootCmd := &cobra.Command{
		Use:           "cmt-server",
		Short:         "Case management team performance API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(refreshCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func refreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run the performance refresh scripts once",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			job, err := refresh.ParseJob(kind)
			if err != nil {
				return err
			}

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			locker, closeLocker, err := newLocker(cfg)
			if err != nil {
				return err
			}
			defer closeLocker()

			sched := refresh.NewScheduler(db.NewScriptRunner(pool, cfg.RefreshScripts), locker, cfg.RefreshLockTTL, logger)
			res, err := sched.RunOnce(ctx, job)
			if err != nil {
				return err
			}
			if res.Skipped {
				fmt.Printf("%s refresh is already running elsewhere; skipped\n", job)
				return nil
			}
			fmt.Printf("%s refresh ran %d scripts in %s\n", job, res.Scripts, res.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().String("kind", string(refresh.Daily), "Refresh job to run (daily or monthly)")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent refresh script runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			runs, err := db.NewScriptRunner(pool, cfg.RefreshScripts).Recent(ctx, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tJOB\tSCRIPT\tSTARTED\tDURATION\tERROR")
			for _, r := range runs {
				dur, msg := "", ""
				if r.FinishedAt != nil {
					dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
				}
				if r.Error != nil {
					msg = *r.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.RunID.String()[:8], r.Job, r.Script,
					r.StartedAt.Format("2006-01-02 15:04:05"), dur, msg)
			}
			return w.Flush()
		},
	}
	statusCmd.Flags().Int("limit", 20, "Number of runs to show")
	cmd.AddCommand(statusCmd)

	return cmd
}

func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	logger, err := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel, serviceName)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnIdleTime: 5 * time.Minute,
		ApplicationName: serviceName,
	})
}

// newLocker returns the redis locker when REDIS_URL is set and an
// in-process one otherwise.
func newLocker(cfg *config.Config) (refresh.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return refresh.NewLocalLocker(), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	return refresh.NewRedisLocker(client, "cmt:"), func() { client.Close() }, nil
}

func runServer() error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if cfg.IsDev() {
		logger.Warn().Msg("ENV=development: unauthenticated requests are served as Super Admin")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	m := metrics.New()
	store := carerecord.NewInstrumentedStore(carerecord.NewPGStore(pool), m.ObserveStore)
	health := db.NewChecker(pool).Handler()
	e := newServer(cfg, logger, store, m, health)

	if cfg.RefreshEnabled {
		locker, closeLocker, err := newLocker(cfg)
		if err != nil {
			return err
		}
		defer closeLocker()
		sched := refresh.NewScheduler(db.NewScriptRunner(pool, cfg.RefreshScripts), locker, cfg.RefreshLockTTL, logger)
		sched.SetRecorder(m)
		go sched.Start(ctx)
		logger.Info().Bool("redis_lock", cfg.RedisURL != "").Msg("performance refresh scheduler started")
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires middleware and routes around store.
func newServer(cfg *config.Config, logger zerolog.Logger, store carerecord.Store, m *metrics.Metrics, dbHealth echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger, m.RecordPanic))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	if cfg.MetricsEnabled {
		e.Use(m.Middleware())
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.JWTSecretKey),
		Skipper:    auth.AuthSkipper,
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if dbHealth != nil {
		e.GET("/health/db", dbHealth)
	}
	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	opts := dashboard.Options{Concurrency: cfg.QueryConcurrency, ReadSnapshot: cfg.ReadSnapshot}
	resolver := access.NewResolver(store, logger)
	perfSvc := performance.NewService(store, resolver, logger)

	api := e.Group("/api/v1", middleware.RequestTimeout(cfg.RequestTimeout))
	dashboard.NewHandler(dashboard.NewService(store, resolver, logger, opts)).RegisterRoutes(api)
	performance.NewHandler(perfSvc).RegisterRoutes(api)
	casemanager.NewHandler(casemanager.NewService(store, resolver, logger, opts)).RegisterRoutes(api)
	reporting.NewHandler(perfSvc, logger).RegisterRoutes(api)

	return e
}
