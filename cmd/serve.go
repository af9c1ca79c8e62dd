package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"eventmanager/config"
	"eventmanager/db"
	"eventmanager/routes"
	"eventmanager/services"
	"eventmanager/utils"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server.

The server will:
- Load configuration from environment variables (and .env when present)
- Apply pending Postgres migrations
- Bootstrap the admin account if ADMIN_* variables are set
- Serve the API until SIGINT/SIGTERM, then shut down gracefully`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("addr", cfg.Server.Addr).Msg("starting server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer st.Close()

	if !skipMigrations {
		if err := db.MigrateUp(cfg.Postgres.DSN); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	tokens := utils.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.JWTIssuer)
	authSvc := services.NewAuthService(st.users, tokens, cfg.Auth.BcryptCost, logger)
	if cfg.Admin.Enabled() {
		created, err := authSvc.BootstrapAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			logger.Error().Err(err).Msg("admin bootstrap failed")
		} else if !created {
			logger.Info().Str("username", cfg.Admin.Username).Msg("admin account already exists")
		}
	}

	health := map[string]routes.HealthCheck{
		"postgres": st.sql.PingContext,
		"mongodb":  func(ctx context.Context) error { return st.mongo.Ping(ctx, nil) },
	}
	if st.redis != nil {
		health["redis"] = func(ctx context.Context) error { return st.redis.Ping(ctx).Err() }
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	stopLimiters := routes.RegisterRoutes(engine, routes.Deps{
		Auth:          authSvc,
		Events:        services.NewEventService(st.events, st.regs, st.users, logger),
		Registrations: services.NewRegistrationService(st.events, st.regs, logger),
		Tokens:        tokens,
		Redis:         st.redis,
		Invalidator:   utils.NewCacheInvalidator(st.redis),
		Cookie: routes.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Path:   cfg.Auth.CookiePath,
			Secure: cfg.Auth.CookieSecure,
		},
		Limits:       cfg.RateLimit,
		CacheTTL:     cfg.Redis.CacheTTL,
		HealthChecks: health,
		Logger:       logger,
	})
	defer stopLimiters()

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return serve(ctx, server, cfg.Server.ShutdownTimeout, logger)
}

func serve(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info().Str("addr", server.Addr).Msg("listening")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
