// Package transport issues authenticated GET requests against platform
// reservation endpoints.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/bookingsync/internal/hooks"
	"github.com/example/bookingsync/internal/internaltypes"
	"github.com/example/bookingsync/internal/mapping"
	"github.com/example/bookingsync/internal/platform"
)

const (
	// MaxLimit bounds the collection page size.
	MaxLimit = 200

	snippetBytes = 2048
	userAgent    = "bookingsync/1.0"
)

// StatusError is returned for responses outside 2xx.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return internaltypes.ErrTransport }

// Filter narrows a collection request. Zero values are omitted.
type Filter struct {
	Since  time.Time
	Limit  int
	Status string
}

type Client struct {
	hc    *http.Client
	hooks *hooks.Hooks
}

func New(timeout time.Duration, hc *http.Client, h *hooks.Hooks) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	} else if hc.Timeout == 0 {
		hc.Timeout = timeout
	}
	return &Client{hc: hc, hooks: h}
}

// SingleEndpoint builds the URL for one reservation. A %s placeholder is
// replaced with the escaped reference, otherwise the reference is sent as the
// platform's reference query parameter.
func SingleEndpoint(p platform.Platform, ref string) (string, error) {
	tmpl := strings.TrimSpace(p.SingleEndpoint)
	if tmpl == "" {
		return "", fmt.Errorf("%w: %s has no reservation endpoint", internaltypes.ErrConfiguration, p.Key)
	}
	if ref == "" {
		return "", fmt.Errorf("%w: booking reference is required", internaltypes.ErrConfiguration)
	}
	if strings.Contains(tmpl, "%s") {
		return strings.Replace(tmpl, "%s", url.PathEscape(ref), 1), nil
	}
	u, err := url.Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %s reservation endpoint: %v", internaltypes.ErrConfiguration, p.Key, err)
	}
	param := p.ReferenceParam
	if param == "" {
		param = platform.DefaultReferenceParam
	}
	q := u.Query()
	q.Set(param, ref)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CollectionEndpoint builds the URL for a filtered reservation list.
func CollectionEndpoint(p platform.Platform, f Filter) (string, error) {
	base := strings.TrimSpace(p.CollectionEndpoint)
	if base == "" {
		return "", fmt.Errorf("%w: %s has no reservations endpoint", internaltypes.ErrConfiguration, p.Key)
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %s reservations endpoint: %v", internaltypes.ErrConfiguration, p.Key, err)
	}
	q := u.Query()
	if !f.Since.IsZero() {
		q.Set("updated_since", f.Since.Format("2006-01-02")+"T00:00:00Z")
	}
	if f.Limit != 0 {
		q.Set("limit", strconv.Itoa(ClampLimit(f.Limit)))
	}
	if s := strings.TrimSpace(f.Status); s != "" {
		q.Set("status", s)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ClampLimit bounds n to [1, MaxLimit].
func ClampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// FetchReservation fetches and extracts one reservation record.
func (c *Client) FetchReservation(ctx context.Context, p platform.Platform, ref string) (map[string]any, error) {
	endpoint, err := SingleEndpoint(p, ref)
	if err != nil {
		return nil, err
	}
	body, err := c.Get(ctx, p, hooks.EndpointSingle, endpoint)
	if err != nil {
		return nil, err
	}
	record := mapping.ExtractSingle(body)
	if record == nil {
		return nil, fmt.Errorf("%w: %s returned no reservation for %s", internaltypes.ErrPayload, p.Key, ref)
	}
	return record, nil
}

// FetchReservations fetches and extracts a list of reservation records. An
// unrecognized body yields an empty list.
func (c *Client) FetchReservations(ctx context.Context, p platform.Platform, f Filter) ([]map[string]any, error) {
	endpoint, err := CollectionEndpoint(p, f)
	if err != nil {
		return nil, err
	}
	body, err := c.Get(ctx, p, hooks.EndpointCollection, endpoint)
	if err != nil {
		return nil, err
	}
	return mapping.ExtractCollection(body), nil
}

// Get issues the request and decodes the JSON body. It never retries.
func (c *Client) Get(ctx context.Context, p platform.Platform, kind, endpoint string) (any, error) {
	endpoint = c.hooks.EndpointURL(p.Key, kind, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", internaltypes.ErrConfiguration, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if tok := p.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	c.hooks.Decorate(p.Key, req)

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", internaltypes.ErrTransport, redact(endpoint), err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, snippetBytes))
		return nil, &StatusError{
			StatusCode: res.StatusCode,
			URL:        redact(endpoint),
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", internaltypes.ErrTransport, redact(endpoint), err)
	}
	return decodeJSON(b)
}

func decodeJSON(b []byte) (any, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: response is not JSON: %v", internaltypes.ErrPayload, err)
	}
	return v, nil
}

// redact drops the query string; decorators may put credentials there.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	u.RawQuery = ""
	return u.String()
}
