package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/example/bookingsync/internal/auth"
	"github.com/example/bookingsync/internal/reservation"
	"github.com/example/bookingsync/internal/store"
	"github.com/example/bookingsync/internal/transport"
	"github.com/example/bookingsync/internal/webhook"
)

// Reservations is the read side the admin API needs.
type Reservations interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, id int64) (reservation.Reservation, error)
	List(ctx context.Context, f store.ListFilter) ([]reservation.Reservation, error)
	ListImportRuns(ctx context.Context, limit int) ([]reservation.ImportRun, error)
}

// Importer triggers pulls from the platforms.
type Importer interface {
	ImportAll(ctx context.Context, f transport.Filter) reservation.BatchSummary
	ImportPlatform(ctx context.Context, key string, f transport.Filter) reservation.BatchSummary
	SyncReservation(ctx context.Context, key, ref string) reservation.Result
}

type Server struct {
	Auth         *auth.Store
	Tokens       *auth.Tokens
	Reservations Reservations
	Importer     Importer
	Webhooks     *webhook.Gateway
	Log          *slog.Logger

	// TokenTTL is the lifetime of bearer tokens issued at login.
	TokenTTL time.Duration
}

func (s *Server) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

func (s *Server) Routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(s.accessLog)

	e.GET("/healthz", s.handleHealth)

	s.Webhooks.Register(e.Group("/webhooks"))

	e.POST("/admin/login", s.handleLogin)
	e.POST("/admin/logout", s.handleLogout)

	admin := e.Group("/admin", s.Auth.RequireAdmin)
	admin.POST("/import", s.handleImport)
	admin.GET("/import-runs", s.handleImportRuns)
	admin.POST("/reservations/sync", s.handleSync)
	admin.GET("/reservations", s.handleList)
	admin.GET("/reservations/:id", s.handleGet)

	return e
}

func (s *Server) handleHealth(c echo.Context) error {
	body := map[string]string{
		"status":       "ok",
		"db":           "ok",
		"webhook_auth": s.Webhooks.AuthMode(),
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := s.Reservations.Ping(ctx); err != nil {
		s.logger().Error("health check: database unreachable", slog.Any("error", err))
		body["status"], body["db"] = "degraded", "unreachable"
		return c.JSON(http.StatusServiceUnavailable, body)
	}
	return c.JSON(http.StatusOK, body)
}

// Start serves h on addr until ctx is done.
func Start(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	slog.Info("listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
