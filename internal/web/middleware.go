package web

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"
)

func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now().UTC()
		err := next(c)
		if err != nil {
			// let the error handler write the status before it is logged
			c.Error(err)
		}

		req := c.Request()
		attrs := []any{
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", c.Response().Status),
			slog.String("ip", c.RealIP()),
			slog.String("reqID", c.Response().Header().Get(echo.HeaderXRequestID)),
			slog.Duration("latency", time.Since(start)),
		}
		if sc := trace.SpanContextFromContext(req.Context()); sc.IsValid() {
			attrs = append(attrs, slog.String("traceID", sc.TraceID().String()))
		}
		s.logger().Info("access", attrs...)
		return nil
	}
}
