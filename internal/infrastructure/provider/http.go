package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/infrastructure/httpx"
	"marketdata-ingest/internal/normalize"

	"go.uber.org/zap"
)

const (
	quotePath = "/v1/quote"
	chartPath = "/v1/chart"
)

var _ application.QuoteProvider = (*HTTPProvider)(nil)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=provider_test -destination=mock_http_client_test.go -source=http.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPProvider talks to a JSON quote gateway. It returns payloads as-is;
// the caller normalizes them.
type HTTPProvider struct {
	base   *url.URL
	client *httpx.Client
}

type Option func(*HTTPProvider)

func WithHTTPClient(c HTTPClient) Option {
	return func(p *HTTPProvider) { p.client.HTTP = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *HTTPProvider) { p.client.Log = l }
}

// WithRetryBudget bounds the time spent retrying one call.
func WithRetryBudget(d time.Duration) Option {
	return func(p *HTTPProvider) { p.client.MaxElapsed = d }
}

func NewHTTPProvider(baseURL, apiKey string, opts ...Option) (*HTTPProvider, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("provider: invalid base url %q", baseURL)
	}
	p := &HTTPProvider{
		base:   u,
		client: &httpx.Client{HTTP: &http.Client{Timeout: 30 * time.Second}, Token: apiKey},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *HTTPProvider) Quote(ctx context.Context, symbol string) (normalize.Payload, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	return p.get(ctx, quotePath, q)
}

// Chart requests daily points in [from, to].
func (p *HTTPProvider) Chart(ctx context.Context, symbol string, from, to time.Time) (normalize.Payload, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("from", from.UTC().Format("2006-01-02"))
	q.Set("to", to.UTC().Format("2006-01-02"))
	q.Set("interval", "1d")
	return p.get(ctx, chartPath, q)
}

// get treats 404 as an empty answer: the symbol is unknown to the gateway.
func (p *HTTPProvider) get(ctx context.Context, path string, q url.Values) (normalize.Payload, error) {
	u := *p.base
	u.Path += path
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return normalize.Payload{}, fmt.Errorf("provider: create request: %w", err)
	}
	body, err := p.client.Do(ctx, req)
	if httpx.IsStatus(err, http.StatusNotFound) {
		return normalize.Payload{}, nil
	}
	if err != nil {
		return normalize.Payload{}, fmt.Errorf("provider %s %s: %w", path, q.Get("symbol"), err)
	}
	return normalize.Decode(body), nil
}
