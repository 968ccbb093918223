// Package client provides the admin API HTTP pipeline: session-aware request
// decoration, envelope unwrapping, and failure classification with the
// session-expiry and feature-disabled side effects.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/admin-api-client/pkg/envelope"
	"github.com/Sternrassler/admin-api-client/pkg/features"
	"github.com/Sternrassler/admin-api-client/pkg/logging"
	"github.com/Sternrassler/admin-api-client/pkg/navigation"
	"github.com/Sternrassler/admin-api-client/pkg/session"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Prometheus metrics for admin API requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "admin_api_requests_total",
		Help: "Total admin API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "admin_api_request_duration_seconds",
		Help:    "Admin API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "admin_api_errors_total",
		Help: "Total admin API failures by kind",
	}, []string{"kind"})

	canceledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "admin_api_canceled_total",
		Help: "Total admin API requests canceled by the caller",
	})
)

// Header and query names set on outgoing requests.
const (
	HeaderAuthorization   = "Authorization"
	HeaderAcceptLanguage  = "Accept-Language"
	HeaderClientRequestID = "X-Client-Request-Id"
	QueryTimezone         = "timezone"
)

// authEndpoints never expire the session on 401: a rejected login is not a
// lost session.
var authEndpoints = []string{"/auth/login", "/auth/register", "/auth/refresh"}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the admin API, e.g. "https://host/api/v1" (REQUIRED)
	BaseURL string

	// User-Agent header
	UserAgent string

	// Timeout per request, including reading the body
	Timeout time.Duration

	// Client-side rate limiting; RateLimit <= 0 disables it
	RateLimit float64 // Requests per second
	Burst     int

	// Tracing wraps the transport with OpenTelemetry instrumentation
	Tracing bool
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "admin-api-client/1.0",
		Timeout:   30 * time.Second,
		RateLimit: 0,
		Burst:     1,
	}
}

// Request describes one admin API call. Path is relative to Config.BaseURL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is a successful call. Data is the envelope's data when the body
// was enveloped, otherwise the raw body.
type Response struct {
	Status int
	Header http.Header
	Data   json.RawMessage
}

// Decode unmarshals Data into out. An empty or null Data leaves out as is.
func (r *Response) Decode(out any) error {
	if out == nil || len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Client is the admin API client.
type Client struct {
	http    *resty.Client
	session *session.Context
	flags   *features.Flags
	nav     navigation.Navigator
	limiter *rate.Limiter
	config  Config
	logger  zerolog.Logger
}

type snapshotKey struct{}

// New creates a new admin API client.
func New(cfg Config, sess *session.Context, flags *features.Flags, nav navigation.Navigator) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if sess == nil {
		return nil, fmt.Errorf("session is required")
	}
	if flags == nil {
		return nil, fmt.Errorf("feature flags are required")
	}
	if nav == nil {
		return nil, fmt.Errorf("navigator is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := logging.NewLogger("admin-client")

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.Tracing {
		transport = otelhttp.NewTransport(transport)
	}

	rc := resty.NewWithClient(&http.Client{Timeout: cfg.Timeout, Transport: transport}).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetLogger(logging.NewRestyLogger(logger)).
		SetRetryCount(0)
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}

	c := &Client{
		http:    rc,
		session: sess,
		flags:   flags,
		nav:     nav,
		config:  cfg,
		logger:  logger,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	rc.OnBeforeRequest(c.decorate)

	return c, nil
}

// Do performs one request through the pipeline. On success the envelope is
// already unwrapped. Failures are *APIError, or ErrCanceled when ctx was
// canceled.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	endpoint := req.Path
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Client-side rate limit
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.transportFailure(ctx, req, err)
		}
	}

	// Step 2: One consistent session read for the whole request
	snap := c.session.Snapshot()

	r := c.http.R().SetContext(context.WithValue(ctx, snapshotKey{}, snap))
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	for name, values := range req.Header {
		for _, v := range values {
			r.Header.Add(name, v)
		}
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing admin request")

	// Step 3: Transmit
	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		return nil, c.transportFailure(ctx, req, err)
	}

	// Step 4: Classify
	return c.classify(ctx, req, snap, resp)
}

// decorate is the outbound transform, run by resty before every request.
func (c *Client) decorate(_ *resty.Client, r *resty.Request) error {
	snap, ok := r.Context().Value(snapshotKey{}).(session.Snapshot)
	if !ok {
		snap = c.session.Snapshot()
	}

	if snap.Token != "" {
		r.Header.Set(HeaderAuthorization, "Bearer "+snap.Token)
	}
	if snap.Locale != "" {
		r.Header.Set(HeaderAcceptLanguage, snap.Locale)
	}
	if r.Method == http.MethodGet {
		tz := snap.Timezone
		if tz == "" {
			tz = "UTC"
		}
		r.QueryParam.Set(QueryTimezone, tz)
	}
	if r.Header.Get(HeaderClientRequestID) == "" {
		r.Header.Set(HeaderClientRequestID, uuid.NewString())
	}
	return nil
}

// classify is the inbound transform for requests that got a response.
func (c *Client) classify(ctx context.Context, req Request, snap session.Snapshot, resp *resty.Response) (*Response, error) {
	status := resp.StatusCode()
	body := resp.Body()
	requestsTotal.WithLabelValues(req.Path, strconv.Itoa(status)).Inc()

	if status < 200 || status > 299 {
		return nil, c.httpFailure(ctx, req, snap, resp)
	}

	out := &Response{Status: status, Header: resp.Header(), Data: body}

	env, ok := envelope.Decode(body)
	if !ok {
		return out, nil
	}
	if !env.OK() {
		message := env.Message
		if message == "" {
			message = UnknownErrorMessage
		}
		return nil, c.fail(&APIError{
			Kind:    KindAPI,
			Status:  status,
			Code:    env.CodeString(),
			Message: message,
			URL:     req.Path,
		})
	}

	out.Data = env.Data
	return out, nil
}

func (c *Client) httpFailure(ctx context.Context, req Request, snap session.Snapshot, resp *resty.Response) error {
	status := resp.StatusCode()
	payload := envelope.DecodePayload(resp.Body())

	// Side effects must survive the caller canceling right after the response.
	effects := context.WithoutCancel(ctx)

	if status == http.StatusNotFound && opsDisabled(payload) {
		c.disableOpsMonitoring(effects)
		message := payload.Message
		if message == "" {
			message = OpsDisabledMessage
		}
		return c.fail(&APIError{
			Kind:    KindFeatureDisabled,
			Status:  status,
			Code:    CodeOpsDisabled,
			Message: message,
			URL:     req.Path,
		})
	}

	kind := KindHTTP
	if status == http.StatusUnauthorized {
		sentAuth := resp.Request != nil && strings.TrimSpace(resp.Request.Header.Get(HeaderAuthorization)) != ""
		if c.handleUnauthorized(effects, req.Path, snap.Token != "", sentAuth) {
			kind = KindSessionExpired
		}
	}

	message := payload.Message
	if message == "" {
		message = payload.Detail
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status code %d", status)
	}

	return c.fail(&APIError{
		Kind:    kind,
		Status:  status,
		Code:    payload.Code,
		Message: message,
		URL:     req.Path,
	})
}

func opsDisabled(p envelope.Payload) bool {
	return p.Message == OpsDisabledMessage || p.Code == CodeOpsDisabled
}

func (c *Client) disableOpsMonitoring(ctx context.Context) {
	c.flags.DisableOpsMonitoring(ctx)

	location := c.nav.Location()
	if navigation.InSection(location, navigation.OpsSectionPath) {
		c.logger.Info().
			Str("from", location).
			Str("to", navigation.OpsFallbackPath).
			Msg("Ops monitoring disabled - leaving ops section")
		c.nav.Redirect(navigation.OpsFallbackPath)
	}
}

// handleUnauthorized applies the 401 rule and reports whether the session
// was expired.
func (c *Client) handleUnauthorized(ctx context.Context, path string, hadToken, sentAuth bool) bool {
	expired := (hadToken || sentAuth) && !isAuthEndpoint(path)
	if expired {
		// Expire logs its own storage failures.
		_ = c.session.Expire(ctx)
	}

	if !navigation.OnLogin(c.nav.Location()) {
		c.nav.Redirect(navigation.LoginPath)
	}
	return expired
}

func isAuthEndpoint(path string) bool {
	for _, p := range authEndpoints {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// transportFailure classifies a request that produced no response.
func (c *Client) transportFailure(ctx context.Context, req Request, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		canceledTotal.Inc()
		requestsTotal.WithLabelValues(req.Path, "canceled").Inc()
		c.logger.Debug().Str("endpoint", req.Path).Msg("Request canceled")
		if !errors.Is(err, context.Canceled) {
			err = ctx.Err()
		}
		return canceledError(err)
	}

	requestsTotal.WithLabelValues(req.Path, "network_error").Inc()
	return c.fail(&APIError{
		Kind:    KindNetwork,
		Status:  0,
		Message: NetworkErrorMessage,
		URL:     req.Path,
		Err:     err,
	})
}

func (c *Client) fail(apiErr *APIError) error {
	errorsTotal.WithLabelValues(string(apiErr.Kind)).Inc()

	event := c.logger.Warn()
	if apiErr.Kind == KindNetwork {
		event = c.logger.Error().Err(apiErr.Err)
	}
	event.
		Str("endpoint", apiErr.URL).
		Int("status", apiErr.Status).
		Str("kind", string(apiErr.Kind)).
		Str("code", apiErr.Code).
		Msg(apiErr.Message)

	return apiErr
}

// Get performs a GET and decodes data into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post performs a POST with a JSON body and decodes data into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put performs a PUT with a JSON body and decodes data into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete performs a DELETE and decodes data into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

func (c *Client) call(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Session returns the session the client reads on every request.
func (c *Client) Session() *session.Context {
	return c.session
}

// Flags returns the feature flags the client updates.
func (c *Client) Flags() *features.Flags {
	return c.flags
}
