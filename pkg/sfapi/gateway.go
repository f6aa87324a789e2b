// Package sfapi implements the Salesforce API Gateway (spec §4.3): a
// single authenticated call() entry point with endpoint construction,
// response caching, write-invalidation, and token refresh.
package sfapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/serverstate"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfcli"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sferrors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Method is an HTTP verb the gateway accepts.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// APIType selects which Salesforce API family a call targets (§4.3).
type APIType string

const (
	APIREST    APIType = "REST"
	APITooling APIType = "TOOLING"
	APIUI      APIType = "UI"
	APIApex    APIType = "APEX"
	APIAgent   APIType = "AGENT"
)

var validMethods = map[Method]bool{
	MethodGet: true, MethodPost: true, MethodPut: true, MethodPatch: true, MethodDelete: true,
}

var apiPrefixes = map[APIType]string{
	APIREST:    "/services/data/v%s",
	APITooling: "/services/data/v%s/tooling",
	APIUI:      "/services/data/v%s/ui-api",
	APIApex:    "/services/apexrest",
	APIAgent:   "/services/data/v%s/agentforce",
}

// DefaultCacheTTL and DefaultMaxCacheEntries are spec §3's defaults for
// the API cache.
const (
	DefaultCacheTTL        = 10 * time.Second
	DefaultMaxCacheEntries = 200
)

// CallOptions customizes one call beyond its required arguments.
type CallOptions struct {
	BaseURL       string
	QueryParams   map[string]string
	Headers       map[string]string
	CacheTTL      time.Duration
	CacheKeyExtra string
	BypassCache   bool
}

// Response is the decoded result of a gateway call.
type Response struct {
	StatusCode int
	JSON       any
	Text       string
}

// Gateway mediates all HTTPS calls to Salesforce.
type Gateway struct {
	state       *serverstate.State
	cli         *sfcli.Executor
	httpClient  *http.Client
	insecureTLS bool

	tlsRelaxOnce sync.Once

	cacheMu sync.Mutex
	cache   map[string]cacheEntry
	order   []string
	maxSize int

	sweepStarted atomic.Bool

	tracer trace.Tracer
}

type cacheEntry struct {
	data      Response
	expiresAt time.Time
}

// New creates a Gateway. insecureTLS, if true, relaxes certificate
// verification on first HTTPS use and latches (§4.3 TLS) — it is never
// re-tightened.
func New(state *serverstate.State, cli *sfcli.Executor, insecureTLS bool) *Gateway {
	return &Gateway{
		state:       state,
		cli:         cli,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		insecureTLS: insecureTLS,
		cache:       make(map[string]cacheEntry),
		maxSize:     DefaultMaxCacheEntries,
		tracer:      noop.NewTracerProvider().Tracer("sfapi"),
	}
}

// SetTracer installs the tracer spans are started against. Call with a
// no-op tracer (the default) to disable tracing entirely.
func (g *Gateway) SetTracer(tracer trace.Tracer) {
	if tracer == nil {
		return
	}
	g.tracer = tracer
}

// Call is the gateway's single entry point (§4.3).
func (g *Gateway) Call(ctx context.Context, method Method, apiType APIType, service string, body any, opts *CallOptions) (resp *Response, err error) {
	ctx, span := g.tracer.Start(ctx, "sfapi.Call", trace.WithAttributes(
		attribute.String("sf.method", string(method)),
		attribute.String("sf.api_type", string(apiType)),
		attribute.String("sf.service", service),
	))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	if !validMethods[method] {
		return nil, sferrors.Newf(sferrors.KindValidation, "invalid method %q", method)
	}
	if _, ok := apiPrefixes[apiType]; !ok {
		return nil, sferrors.Newf(sferrors.KindValidation, "invalid api type %q", apiType)
	}
	if opts == nil {
		opts = &CallOptions{}
	}

	org := g.state.Org()
	if org.ID == "" || org.InstanceURL == "" || org.AccessToken == "" {
		return nil, sferrors.New(sferrors.KindNotInitialized, "server has no org identity yet")
	}

	endpoint, err := g.buildEndpoint(org.InstanceURL, org.APIVersion, apiType, service, opts)
	if err != nil {
		return nil, err
	}

	cacheable := method == MethodGet && !opts.BypassCache
	cacheKey := g.cacheKey(org.ID, method, apiType, endpoint, opts.CacheKeyExtra)
	if cacheable {
		if cached, ok := g.cacheGet(cacheKey); ok {
			span.SetAttributes(attribute.Bool("sf.cache_hit", true))
			return &cached, nil
		}
	}

	resp, err = g.doRequestWithRetry(ctx, method, endpoint, org.AccessToken, body, opts)
	if err != nil {
		return nil, err
	}

	if method != MethodGet {
		g.cacheClear()
	} else if cacheable {
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		g.cacheSet(cacheKey, *resp, ttl)
	}

	return resp, nil
}

func (g *Gateway) buildEndpoint(instanceURL, apiVersion string, apiType APIType, service string, opts *CallOptions) (string, error) {
	base := opts.BaseURL
	if base == "" {
		prefixTemplate := apiPrefixes[apiType]
		prefix := prefixTemplate
		if strings.Contains(prefixTemplate, "%s") {
			prefix = fmt.Sprintf(prefixTemplate, apiVersion)
		}
		base = strings.TrimRight(instanceURL, "/") + prefix
	}
	if !strings.HasPrefix(service, "/") {
		service = "/" + service
	}
	endpoint := base + service

	if len(opts.QueryParams) > 0 {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", sferrors.Wrap(sferrors.KindValidation, err, "invalid endpoint")
		}
		q := u.Query()
		for k, v := range opts.QueryParams {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}
	return endpoint, nil
}

func (g *Gateway) doRequestWithRetry(ctx context.Context, method Method, endpoint, token string, body any, opts *CallOptions) (*Response, error) {
	const maxAttempts = 2
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := g.doRequest(ctx, method, endpoint, token, body, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if sferrors.KindOf(err) != sferrors.KindAuth {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		newToken, refreshErr := g.cli.RefreshAccessToken(ctx)
		if refreshErr != nil {
			return nil, sferrors.Wrap(sferrors.KindAuth, refreshErr, "token refresh failed")
		}
		g.state.SetOrg(withAccessToken(g.state.Org(), newToken))
		token = newToken
	}

	return nil, sferrors.Wrap(sferrors.KindAuth, lastErr, "re-authenticate: token refresh exhausted")
}

func withAccessToken(org serverstate.Org, token string) serverstate.Org {
	org.AccessToken = token
	return org
}

func (g *Gateway) doRequest(ctx context.Context, method Method, endpoint, token string, body any, opts *CallOptions) (*Response, error) {
	g.applyTLSRelaxation()

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, sferrors.Wrap(sferrors.KindValidation, err, "encoding request body")
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, string(method), endpoint, bodyReader)
	if err != nil {
		return nil, sferrors.Wrap(sferrors.KindValidation, err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	httpResp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, sferrors.Wrap(sferrors.KindTransport, err, "salesforce request failed")
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, sferrors.Wrap(sferrors.KindTransport, err, "reading response body")
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		if strings.Contains(string(respBody), "INVALID_SESSION_ID") {
			return nil, sferrors.New(sferrors.KindAuth, "INVALID_SESSION_ID")
		}
		return nil, sferrors.Newf(sferrors.KindUpstream, "salesforce returned %d: %s", httpResp.StatusCode, string(respBody))
	}

	result := &Response{StatusCode: httpResp.StatusCode, Text: string(respBody)}
	var parsed any
	if len(respBody) > 0 {
		if jsonErr := json.Unmarshal(respBody, &parsed); jsonErr == nil {
			result.JSON = parsed
		}
	}
	return result, nil
}

// applyTLSRelaxation relaxes certificate verification for the gateway's
// HTTP client on first use when configured insecure; it never
// re-tightens (§4.3, Open Question c).
func (g *Gateway) applyTLSRelaxation() {
	if !g.insecureTLS {
		return
	}
	g.tlsRelaxOnce.Do(func() {
		g.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	})
}

func (g *Gateway) cacheKey(orgID string, method Method, apiType APIType, endpoint, extra string) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", orgID, method, apiType, endpoint, extra)
}

func (g *Gateway) cacheGet(key string) (Response, bool) {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()
	entry, ok := g.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return Response{}, false
	}
	return entry.data, true
}

func (g *Gateway) cacheSet(key string, resp Response, ttl time.Duration) {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()

	if _, exists := g.cache[key]; !exists {
		g.order = append(g.order, key)
	}
	g.cache[key] = cacheEntry{data: resp, expiresAt: time.Now().Add(ttl)}

	if len(g.order) > g.maxSize*2 {
		g.pruneLocked()
	}
}

// pruneLocked evicts oldest-first entries down to maxSize. Must be
// called with cacheMu held.
func (g *Gateway) pruneLocked() {
	excess := len(g.order) - g.maxSize
	if excess <= 0 {
		return
	}
	for _, key := range g.order[:excess] {
		delete(g.cache, key)
	}
	g.order = g.order[excess:]
}

// cacheClear drops the whole cache; called after any successful
// non-read call (§4.3 conservative invalidation).
func (g *Gateway) cacheClear() {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()
	g.cache = make(map[string]cacheEntry)
	g.order = nil
}

// CacheSize reports the number of entries currently cached, for
// salesforceContextUtils{action:"getState"}.
func (g *Gateway) CacheSize() int {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()
	return len(g.cache)
}

// ClearCache is the gateway half of salesforceContextUtils's clearCache
// action (§4.8).
func (g *Gateway) ClearCache() {
	g.cacheClear()
}

// StartCacheSweep runs a periodic prune every APICacheSweepPeriod until
// ctx is cancelled (§4.3, §5).
func (g *Gateway) StartCacheSweep(ctx context.Context, period time.Duration) {
	if !g.sweepStarted.CompareAndSwap(false, true) {
		return
	}
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.cacheMu.Lock()
				g.pruneLocked()
				g.cacheMu.Unlock()
			}
		}
	}()
}
