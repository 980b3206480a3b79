package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/example/bookingsync/internal/auth"
	"github.com/example/bookingsync/internal/internaltypes"
)

// ErrorInfo is the HTTP rendering of an error.
type ErrorInfo struct {
	Status  int
	Message string
}

type errorMapping struct {
	err     error
	status  int
	message string
}

// ErrorMapper maps domain errors to HTTP status codes. The first matching
// mapping wins; a zero message keeps the error's own text.
type ErrorMapper struct {
	mappings       []errorMapping
	defaultStatus  int
	defaultMessage string
}

func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{
		defaultStatus:  http.StatusInternalServerError,
		defaultMessage: "internal server error",
	}
}

func (m *ErrorMapper) WithMapping(err error, status int, message string) *ErrorMapper {
	m.mappings = append(m.mappings, errorMapping{err: err, status: status, message: message})
	return m
}

func (m *ErrorMapper) Map(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{Status: http.StatusOK}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorInfo{Status: http.StatusGatewayTimeout, Message: "request timeout"}
	}
	if errors.Is(err, context.Canceled) {
		return ErrorInfo{Status: http.StatusServiceUnavailable, Message: "request cancelled"}
	}
	for _, mp := range m.mappings {
		if errors.Is(err, mp.err) {
			msg := mp.message
			if msg == "" {
				msg = err.Error()
			}
			return ErrorInfo{Status: mp.status, Message: msg}
		}
	}
	return ErrorInfo{Status: m.defaultStatus, Message: m.defaultMessage}
}

var adminErrors = NewErrorMapper().
	WithMapping(auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid username or password").
	WithMapping(internaltypes.ErrUnauthorized, http.StatusUnauthorized, "unauthorized").
	WithMapping(internaltypes.ErrNotFound, http.StatusNotFound, "not found").
	WithMapping(internaltypes.ErrConfiguration, http.StatusBadRequest, "").
	WithMapping(internaltypes.ErrPayload, http.StatusBadRequest, "").
	WithMapping(internaltypes.ErrTransport, http.StatusBadGateway, "")

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		_ = c.JSON(he.Code, map[string]any{"success": false, "message": msg})
		return
	}

	info := adminErrors.Map(err)
	if info.Status >= http.StatusInternalServerError {
		s.logger().Error("request failed",
			slog.String("path", c.Request().URL.Path),
			slog.String("reqID", c.Response().Header().Get(echo.HeaderXRequestID)),
			slog.Any("error", err),
		)
	}
	_ = c.JSON(info.Status, map[string]any{"success": false, "message": info.Message})
}
