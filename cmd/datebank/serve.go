package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kojileo/datebank/internal/handler"
	"github.com/kojileo/datebank/internal/invite"
	"github.com/kojileo/datebank/internal/mailer"
	"github.com/kojileo/datebank/internal/middleware"
	"github.com/kojileo/datebank/internal/repository"
	"github.com/kojileo/datebank/pkg/config"
	"github.com/kojileo/datebank/pkg/database"
	"github.com/kojileo/datebank/pkg/jwtutil"
	"github.com/kojileo/datebank/pkg/logger"
	"github.com/kojileo/datebank/pkg/telemetry"
	"github.com/kojileo/datebank/prometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func newServeCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply schema migrations on startup")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger, migrate bool) error {
	log.Info("Starting datebank service...", cfg.LogConfig()...)

	shutdownTracing := telemetry.Setup(ctx, serviceName, cfg.Telemetry, log)

	db, err := database.Open(&cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close(db) //nolint:errcheck
	if migrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}
	log.Info("Database connection established")

	e, invites, err := newServer(cfg, db, log)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		err := e.Shutdown(shutdownCtx)
		invites.Wait()
		if terr := shutdownTracing(shutdownCtx); terr != nil {
			log.Warn("Failed to flush traces", zap.Error(terr))
		}
		return err
	})
	return g.Wait()
}

// newServer wires repositories, the invite flow and middleware into an echo
// instance.
func newServer(cfg *config.Config, db *gorm.DB, log *zap.Logger) (*echo.Echo, *invite.Service, error) {
	mail, err := mailer.New(cfg.Mail, log)
	if err != nil {
		return nil, nil, err
	}
	invites := invite.NewService(db, mail, invite.Options{
		BaseURL:     cfg.Server.BaseURL,
		MailTimeout: cfg.Mail.Timeout,
	})
	tokens := jwtutil.NewJWTUtil(&cfg.Identity)

	e := echo.New()
	e.HideBanner = true

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(telemetry.Middleware(serviceName))
	e.Use(middleware.RequestIDMiddleware())
	e.Use(logger.AccessLog())
	e.Use(prometheus.MetricsMiddleware())
	if cfg.RateLimit.PerSecond > 0 {
		e.Use(echomiddleware.RateLimiter(echomiddleware.NewRateLimiterMemoryStoreWithConfig(
			echomiddleware.RateLimiterMemoryStoreConfig{
				Rate:  rate.Limit(cfg.RateLimit.PerSecond),
				Burst: cfg.RateLimit.Burst,
			},
		)))
	}

	h := handler.New(
		repository.NewPlaceRepository(db),
		repository.NewTenantRepository(db),
		invites,
	)
	h.Register(e, middleware.AuthMiddleware(tokens, repository.NewUserRepository(db)))

	return e, invites, nil
}
