// Package webhook accepts reservation pushes from booking platforms.
package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/example/bookingsync/internal/auth"
	"github.com/example/bookingsync/internal/hooks"
	"github.com/example/bookingsync/internal/internaltypes"
	"github.com/example/bookingsync/internal/mapping"
	"github.com/example/bookingsync/internal/reconcile"
	"github.com/example/bookingsync/internal/reservation"
)

const (
	HeaderToken = "X-Webhook-Token"
	QueryToken  = "webhook_token"

	maxBodyBytes = 1 << 20
)

// Auth modes reported on /healthz.
const (
	AuthConfigured   = "configured"
	AuthUnconfigured = "unconfigured"
	AuthRequired     = "required"
)

// Response is the JSON body returned to the delivering platform.
type Response struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	ReservationID int64    `json:"reservation_id,omitempty"`
	Action        string   `json:"action,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

type Gateway struct {
	secret        string
	requireSecret bool
	platforms     map[string]bool
	processor     *reconcile.Processor
	log           *slog.Logger
}

// New builds a gateway. platforms lists the accepted platform keys; the
// generic key is always accepted.
func New(secret string, requireSecret bool, platforms []string, processor *reconcile.Processor, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	known := map[string]bool{mapping.PlatformGeneric: true}
	for _, p := range platforms {
		known[reservation.NormalizePlatform(p)] = true
	}
	return &Gateway{
		secret:        strings.TrimSpace(secret),
		requireSecret: requireSecret,
		platforms:     known,
		processor:     processor,
		log:           log.With(slog.String("component", "webhook")),
	}
}

// AuthMode describes how inbound requests are authenticated.
func (g *Gateway) AuthMode() string {
	switch {
	case g.secret != "":
		return AuthConfigured
	case g.requireSecret:
		return AuthRequired
	default:
		return AuthUnconfigured
	}
}

// Authenticate checks the shared secret. With no secret configured requests
// pass unless the gateway was told to require one.
func (g *Gateway) Authenticate(r *http.Request) error {
	if g.secret == "" {
		if g.requireSecret {
			return fmt.Errorf("%w: webhook secret is not configured", internaltypes.ErrUnauthorized)
		}
		g.log.Warn("webhook accepted without authentication; set WEBHOOK_SECRET", slog.String("path", r.URL.Path))
		return nil
	}
	token := presentedToken(r)
	if token == "" || !auth.SecureEqual(token, g.secret) {
		return fmt.Errorf("%w: invalid webhook token", internaltypes.ErrUnauthorized)
	}
	return nil
}

func presentedToken(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(HeaderToken)); v != "" {
		return v
	}
	for k, vs := range r.Header {
		if strings.EqualFold(k, HeaderToken) && len(vs) > 0 {
			if v := strings.TrimSpace(vs[0]); v != "" {
				return v
			}
		}
	}
	return strings.TrimSpace(r.URL.Query().Get(QueryToken))
}

// DecodeBody decodes a JSON body, falling back to URL-encoded form data. A
// form whose only field is "payload" holding JSON decodes as that JSON.
func DecodeBody(body []byte) (any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", internaltypes.ErrPayload)
	}
	if v, err := decodeJSON(body); err == nil {
		return v, nil
	}

	values, err := url.ParseQuery(string(body))
	if err != nil || len(values) == 0 {
		return nil, fmt.Errorf("%w: body is neither JSON nor form data", internaltypes.ErrPayload)
	}
	if len(values) == 1 {
		if raw := values.Get("payload"); raw != "" {
			if v, err := decodeJSON([]byte(raw)); err == nil {
				return v, nil
			}
		}
	}
	out := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) == 1 {
			out[k] = vs[0]
			continue
		}
		list := make([]any, len(vs))
		for i, v := range vs {
			list[i] = v
		}
		out[k] = list
	}
	return out, nil
}

func decodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

// Handle serves POST /webhooks and POST /webhooks/:platform.
func (g *Gateway) Handle(c echo.Context) error {
	req := c.Request()
	if err := g.Authenticate(req); err != nil {
		g.log.Warn("webhook rejected", slog.String("ip", c.RealIP()), slog.Any("error", err))
		return c.JSON(http.StatusUnauthorized, Response{Message: "unauthorized"})
	}

	raw, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, Response{Message: "could not read request body"})
	}
	body, err := DecodeBody(raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, Response{Message: err.Error()})
	}

	platform := resolvePlatform(c, body)
	if !g.platforms[platform] {
		return c.JSON(http.StatusBadRequest, Response{Message: fmt.Sprintf("unknown platform %q", platform)})
	}

	record := mapping.ExtractSingle(body)
	res := g.processor.Process(req.Context(), platform, hooks.SourceWebhook, record, nil)
	g.log.Info("webhook processed",
		slog.String("platform", platform),
		slog.String("ref", res.BookingReference),
		slog.String("action", string(res.Action)),
		slog.String("reqID", c.Response().Header().Get(echo.HeaderXRequestID)),
	)
	if !res.Success {
		return c.JSON(http.StatusBadRequest, Response{Message: res.Message, Action: string(res.Action), Errors: res.Errors})
	}
	return c.JSON(http.StatusOK, Response{
		Success:       true,
		Message:       res.Message,
		ReservationID: res.ReservationID,
		Action:        string(res.Action),
	})
}

// resolvePlatform takes the path parameter, then ?platform=, then the body's
// platform or source key, defaulting to generic.
func resolvePlatform(c echo.Context, body any) string {
	if p := reservation.NormalizePlatform(c.Param("platform")); p != "" {
		return p
	}
	if p := reservation.NormalizePlatform(c.QueryParam("platform")); p != "" {
		return p
	}
	if m, ok := body.(map[string]any); ok {
		for _, k := range []string{"platform", "source"} {
			if s, ok := m[k].(string); ok {
				if p := reservation.NormalizePlatform(s); p != "" {
					return p
				}
			}
		}
	}
	return mapping.PlatformGeneric
}

// Register mounts the webhook routes on g.
func (g *Gateway) Register(grp *echo.Group) {
	grp.POST("", g.Handle)
	grp.POST("/:platform", g.Handle)
}
