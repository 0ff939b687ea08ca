package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Zhima-Mochi/coffee-register/internal/observability"
	"github.com/Zhima-Mochi/coffee-register/internal/observability/logctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	headerAPIKey = "X-API-Key"
	maxErrorBody = 64 << 10

	outcomeOK        = "ok"
	outcomeRejected  = "rejected"
	outcomeTransport = "transport_error"
)

// APIError is a non-2xx response from an upstream service.
type APIError struct {
	Status  int             `json:"-"`
	Code    string          `json:"error"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if len(e.Details) > 0 && string(e.Details) != "null" {
		msg = fmt.Sprintf("%s - %s", msg, e.Details)
	}
	if e.Code != "" {
		return fmt.Sprintf("upstream %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("upstream %d: %s", e.Status, msg)
}

// Rejected reports that the service answered; the call itself did not fail.
func (e *APIError) Rejected() bool { return true }

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is the JSON-over-HTTP transport shared by the typed service clients.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client

	log      observability.Logger
	requests observability.Counter   // external_requests_total{peer,endpoint,outcome}
	duration observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

type Option func(*Client)

// WithHTTPClient replaces the default otelhttp-instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func NewClient(cfg Config, tel observability.Observability, opts ...Option) *Client {
	if tel == nil {
		tel = observability.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log:      tel.Logger().With(observability.F("component", "upstream")),
		requests: tel.Metrics().Counter(observability.MExternalRequests),
		duration: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call describes one request. endpoint is the low-cardinality route template used for metrics.
type call struct {
	peer     string
	endpoint string
	method   string
	path     string
	body     any
	out      any
}

func (c *Client) do(ctx context.Context, cl call) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		outcome := outcomeOK
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr):
			outcome = outcomeRejected
		case err != nil:
			outcome = outcomeTransport
		}
		c.requests.Add(1,
			observability.L("peer", cl.peer),
			observability.L("endpoint", cl.endpoint),
			observability.L("outcome", outcome),
		)
		c.duration.Observe(time.Since(start).Seconds(),
			observability.L("peer", cl.peer),
			observability.L("endpoint", cl.endpoint),
		)
		if err != nil {
			logctx.FromOr(ctx, c.log).Warn("upstream_call_failed",
				observability.F("peer", cl.peer),
				observability.F("endpoint", cl.endpoint),
				observability.F("outcome", outcome),
				observability.F("latency_ms", time.Since(start).Milliseconds()),
				observability.F("error", err),
			)
		}
	}()

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("upstream: encode %s: %w", cl.endpoint, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return fmt.Errorf("upstream: build %s: %w", cl.endpoint, err)
	}
	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: %s: %w", cl.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if cl.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		return fmt.Errorf("upstream: decode %s: %w", cl.endpoint, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(raw, apiErr); err != nil || (apiErr.Code == "" && apiErr.Message == "") {
		apiErr.Code = "UnknownError"
		apiErr.Message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	apiErr.Status = resp.StatusCode
	return apiErr
}
