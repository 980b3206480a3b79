package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/example/bookingsync/internal/importer"
	"github.com/example/bookingsync/internal/internaltypes"
	"github.com/example/bookingsync/internal/reservation"
	"github.com/example/bookingsync/internal/store"
	"github.com/example/bookingsync/internal/transport"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type importRequest struct {
	Platform string `json:"platform" form:"platform"`
	Since    string `json:"since" form:"since"`
	Limit    int    `json:"limit" form:"limit"`
	Status   string `json:"status" form:"status"`
}

type syncRequest struct {
	Platform string `json:"platform" form:"platform"`
	Ref      string `json:"booking_reference" form:"booking_reference"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: malformed login request", internaltypes.ErrPayload)
	}
	u, err := s.Auth.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		s.logger().Warn("admin login failed", slog.String("username", req.Username), slog.String("ip", c.RealIP()))
		return err
	}
	if err := s.Auth.SetSession(c.Response(), c.Request(), u); err != nil {
		return err
	}

	resp := map[string]any{"success": true, "username": u.Username}
	if s.Tokens.Enabled() {
		ttl := s.TokenTTL
		if ttl <= 0 {
			ttl = 12 * time.Hour
		}
		tok, err := s.Tokens.Issue(u, ttl)
		if err != nil {
			return err
		}
		resp["token"] = tok
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleLogout(c echo.Context) error {
	s.Auth.ClearSession(c.Response())
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleImport(c echo.Context) error {
	var req importRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: malformed import request", internaltypes.ErrPayload)
	}
	since, err := importer.ParseSince(req.Since)
	if err != nil {
		return err
	}
	f := transport.Filter{Since: since, Limit: req.Limit, Status: strings.TrimSpace(req.Status)}

	ctx := c.Request().Context()
	var sum reservation.BatchSummary
	if p := strings.TrimSpace(req.Platform); p != "" && p != "all" {
		sum = s.Importer.ImportPlatform(ctx, p, f)
	} else {
		sum = s.Importer.ImportAll(ctx, f)
	}
	code := http.StatusOK
	if !sum.Success {
		code = http.StatusBadRequest
	}
	return c.JSON(code, sum)
}

func (s *Server) handleSync(c echo.Context) error {
	var req syncRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: malformed sync request", internaltypes.ErrPayload)
	}
	res := s.Importer.SyncReservation(c.Request().Context(), req.Platform, req.Ref)
	code := http.StatusOK
	if !res.Success {
		code = http.StatusBadRequest
	}
	return c.JSON(code, res)
}

func (s *Server) handleList(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	list, err := s.Reservations.List(c.Request().Context(), store.ListFilter{
		Platform: reservation.NormalizePlatform(c.QueryParam("platform")),
		Status:   strings.TrimSpace(c.QueryParam("status")),
		Limit:    limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "reservations": list})
}

func (s *Server) handleGet(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("%w: invalid reservation id", internaltypes.ErrPayload)
	}
	r, err := s.Reservations.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "reservation": r})
}

func (s *Server) handleImportRuns(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	runs, err := s.Reservations.ListImportRuns(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "runs": runs})
}
