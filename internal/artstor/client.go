// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package artstor is the client for the upstream digital-library metadata
// service: direct, group-scoped and encrypted metadata lookups and the
// media playback lookup for time-based assets.
package artstor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ManuGH/artstor-viewer/internal/asset"
	"github.com/ManuGH/artstor-viewer/internal/hosts"
	xglog "github.com/ManuGH/artstor-viewer/internal/log"
	"github.com/ManuGH/artstor-viewer/internal/metrics"
	"github.com/ManuGH/artstor-viewer/internal/resilience"
	"github.com/ManuGH/artstor-viewer/internal/telemetry"
)

// PlaybackTypeCode is the fixed type segment of the playback lookup path.
const PlaybackTypeCode = asset.TypeCodeMediaPlayback

const (
	defaultTimeout          = 10 * time.Second
	defaultRateLimit        = 20
	defaultRateLimitBurst   = 40
	defaultBreakerThreshold = 5
	defaultBreakerReset     = 30 * time.Second
	maxBodyBytes            = 4 << 20
	maxErrorBody            = 512
)

// Options configures the client.
type Options struct {
	Timeout          time.Duration
	RateLimit        rate.Limit
	RateLimitBurst   int
	BreakerThreshold int
	BreakerReset     time.Duration
	UserAgent        string
	// HTTPClient overrides the instrumented default client.
	HTTPClient *http.Client
}

// lane pairs a limiter with the breaker guarding one class of requests.
type lane struct {
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

// Client talks to the metadata API selected by a hosts.Resolver.
// Metadata lookups and backend asset fetches (tile info, panorama
// descriptors) run in separate lanes so that unreachable asset hosts never
// open the metadata breaker.
type Client struct {
	env       hosts.Resolver
	http      *http.Client
	api       lane
	assets    lane
	userAgent string
}

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = defaultBreakerThreshold
	}
	if opts.BreakerReset <= 0 {
		opts.BreakerReset = defaultBreakerReset
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = "artstor-viewer"
	}
	return opts
}

// New creates a client bound to env.
func New(env hosts.Resolver, opts Options) *Client {
	if env == nil {
		env = hosts.New(false)
	}
	nopts := normalizeOptions(opts)

	hc := nopts.HTTPClient
	if hc == nil {
		transport := &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: nopts.Timeout,
			TLSHandshakeTimeout:   5 * time.Second,
		}
		hc = &http.Client{
			Timeout:   nopts.Timeout,
			Transport: otelhttp.NewTransport(transport),
		}
	}

	// Only transport-level failures trip a breaker; a missing or
	// forbidden asset says nothing about upstream health.
	newLane := func(name string) lane {
		return lane{
			limiter: rate.NewLimiter(nopts.RateLimit, nopts.RateLimitBurst),
			breaker: resilience.NewCircuitBreaker(name, nopts.BreakerThreshold, nopts.BreakerReset,
				resilience.WithFailureFilter(IsNetwork)),
		}
	}

	return &Client{
		env:       env,
		http:      hc,
		api:       newLane("artstor"),
		assets:    newLane("artstor_assets"),
		userAgent: nopts.UserAgent,
	}
}

// Environment returns the hosts the client is bound to.
func (c *Client) Environment() hosts.Resolver { return c.env }

// BreakerState exposes the metadata breaker state for readiness checks.
func (c *Client) BreakerState() resilience.State { return c.api.breaker.State() }

// AssetBreakerState reports the breaker guarding Fetch.
func (c *Client) AssetBreakerState() resilience.State { return c.assets.breaker.State() }

// Metadata fetches the primary record via the direct endpoint.
func (c *Client) Metadata(ctx context.Context, assetID string, opts RequestOptions) (*asset.RawRecord, error) {
	if strings.TrimSpace(assetID) == "" {
		return nil, &Error{Sentinel: ErrInvalidRequest, Operation: "metadata", Body: "empty asset id"}
	}
	q := url.Values{}
	q.Set("object_ids", assetID)
	return c.metadata(ctx, "metadata", "api/v1/metadata", q, opts)
}

// GroupMetadata fetches the primary record through a group, which applies
// the group's sharing rules.
func (c *Client) GroupMetadata(ctx context.Context, groupID, assetID string, opts RequestOptions) (*asset.RawRecord, error) {
	if strings.TrimSpace(assetID) == "" || strings.TrimSpace(groupID) == "" {
		return nil, &Error{Sentinel: ErrInvalidRequest, Operation: "group_metadata", Body: "empty asset or group id"}
	}
	q := url.Values{}
	q.Set("object_ids", assetID)
	return c.metadata(ctx, "group_metadata", "api/v1/group/"+url.PathEscape(groupID)+"/metadata", q, opts)
}

// ResolveEncrypted exchanges an encrypted token for the primary record.
func (c *Client) ResolveEncrypted(ctx context.Context, token, referrer string, opts RequestOptions) (*asset.RawRecord, error) {
	if strings.TrimSpace(token) == "" {
		return nil, &Error{Sentinel: ErrInvalidRequest, Operation: "resolve_encrypted", Body: "empty token"}
	}
	q := url.Values{}
	q.Set("encrypted_id", token)
	q.Set("ref", referrer)
	return c.metadata(ctx, "resolve_encrypted", "api/v2/items/resolve", q, opts)
}

// PlaybackInfo fetches the playback descriptor for a time-based asset.
func (c *Client) PlaybackInfo(ctx context.Context, assetID string) (*PlaybackInfo, error) {
	const op = "playback_info"
	if strings.TrimSpace(assetID) == "" {
		return nil, &Error{Sentinel: ErrInvalidRequest, Operation: op, Body: "empty asset id"}
	}
	path := fmt.Sprintf("api/imagefpx/%s/%d", url.PathEscape(assetID), PlaybackTypeCode)
	body, err := c.get(ctx, c.api, op, c.env.APIBase()+path)
	if err != nil {
		return nil, err
	}
	var info PlaybackInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &Error{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}
	return &info, nil
}

// Fetch GETs an absolute URL with the same instrumentation as the API calls
// but behind its own limiter and breaker. Backends use it to probe
// descriptors and tile info.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, &Error{Sentinel: ErrInvalidRequest, Operation: "fetch", Body: rawURL, Err: err}
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return c.get(ctx, c.assets, "fetch", u.String())
}

func (c *Client) metadata(ctx context.Context, op, path string, q url.Values, opts RequestOptions) (*asset.RawRecord, error) {
	if opts.Legacy {
		q.Set("legacy", "true")
	}
	body, err := c.get(ctx, c.api, op, c.env.APIBase()+path+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var env MetadataResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &Error{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}
	if len(env.Metadata) == 0 {
		return nil, &Error{Sentinel: ErrNotFound, Operation: op, Body: "unable to load metadata"}
	}
	rec := env.Metadata[0]
	return &rec, nil
}

func (c *Client) get(ctx context.Context, l lane, op, rawURL string) ([]byte, error) {
	logger := xglog.WithComponentFromContext(ctx, "artstor")
	ctx, span := telemetry.Tracer("artstor.client").Start(ctx, "artstor."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("artstor.operation", op))

	var body []byte
	var status int
	start := time.Now()
	err := l.breaker.Execute(func() error {
		if err := l.limiter.Wait(ctx); err != nil {
			return classifyTransport(op, err)
		}
		var err error
		body, status, err = c.do(ctx, op, rawURL)
		return err
	})
	elapsed := time.Since(start)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		err = &Error{Sentinel: ErrCircuitOpen, Operation: op, Err: err}
	}
	metrics.ObserveUpstreamRequest(op, status, elapsed)

	span.SetAttributes(telemetry.HTTPAttributes(http.MethodGet, op, redactURL(rawURL), status)...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Debug().
			Str(xglog.FieldEvent, "upstream.request_failed").
			Str(xglog.FieldOperation, op).
			Int(xglog.FieldStatus, status).
			Dur("duration", elapsed).
			Err(err).
			Msg("upstream request failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	logger.Debug().
		Str(xglog.FieldEvent, "upstream.request").
		Str(xglog.FieldOperation, op).
		Int(xglog.FieldStatus, status).
		Dur("duration", elapsed).
		Msg("upstream request completed")
	return body, nil
}

func (c *Client) do(ctx context.Context, op, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, &Error{Sentinel: ErrInvalidRequest, Operation: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, classifyTransport(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, classifyTransport(op, err)
	}
	if resp.StatusCode == http.StatusOK {
		return body, resp.StatusCode, nil
	}
	return nil, resp.StatusCode, classifyStatus(op, resp.StatusCode, body)
}

func classifyStatus(op string, status int, body []byte) error {
	e := &Error{Operation: op, Status: status, Body: excerpt(body)}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Sentinel = ErrAuthorization
	case status == http.StatusNotFound || status == http.StatusGone:
		e.Sentinel = ErrNotFound
	case status >= http.StatusInternalServerError:
		e.Sentinel = ErrUpstreamError
	default:
		e.Sentinel = ErrBadResponse
	}
	return e
}

func classifyTransport(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return &Error{Sentinel: ErrCanceled, Operation: op, Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Sentinel: ErrTimeout, Operation: op, Err: err}
	default:
		return &Error{Sentinel: ErrUnavailable, Operation: op, Err: err}
	}
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}

// redactURL drops the query, which can carry encrypted tokens.
func redactURL(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
