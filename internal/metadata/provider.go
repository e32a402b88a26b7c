package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/mediashelf/mediashelf/internal/cache"
	"github.com/mediashelf/mediashelf/internal/config"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// maxBodySize bounds provider responses.
const maxBodySize = 8 << 20

type statusError struct {
	provider string
	code     int
	body     string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.provider, e.code, e.body)
}

// provider is a rate limited, circuit broken and cached JSON client for one metadata API.
type provider struct {
	name       string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	cache      *cache.ResponseCache

	// authorize adds credentials to a request. They never become part of the cache key.
	authorize func(req *http.Request)
}

func newProvider(name, baseURL string, cfg *config.MetadataConfig, responseCache *cache.ResponseCache, authorize func(*http.Request)) *provider {
	burst := max(cfg.RateBurst, 1)
	return &provider{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		breaker:    newBreaker(name, cfg),
		cache:      responseCache,
		authorize:  authorize,
	}
}

func newBreaker(name string, cfg *config.MetadataConfig) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// an empty answer or a caller that gave up says nothing about the provider's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoData) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("metadata provider circuit changed state", "provider", name, "from", from.String(), "to", to.String())
		},
	})
}

// getJSON performs a GET request against endpoint and decodes the body into out.
// A 404 answer is reported as ErrNoData; any other failure as ErrUnavailable.
func (p *provider) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := p.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	if p.cache != nil {
		if cached, err := p.cache.Get(ctx, reqURL); err == nil {
			log.Debug("metadata cache hit", "provider", p.name, "url", reqURL)
			return p.decode(cached, out)
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, p.name, err)
	}

	body, err := p.breaker.Execute(func() ([]byte, error) {
		return p.do(ctx, reqURL)
	})
	if err != nil {
		if errors.Is(err, ErrNoData) {
			return err
		}
		log.Debug("metadata request failed", "provider", p.name, "url", reqURL, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, p.name, err)
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, reqURL, json.RawMessage(body)); err != nil {
			log.Debug("failed to cache metadata response", "provider", p.name, "error", err)
		}
	}

	return p.decode(body, out)
}

func (p *provider) do(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.authorize != nil {
		p.authorize(req)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	log.Debug("metadata request", "provider", p.name, "status", resp.StatusCode, "duration", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNoData, p.name)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &statusError{provider: p.name, code: resp.StatusCode, body: truncate(string(body), 200)}
	}
	return body, nil
}

func (p *provider) decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: error decoding response: %w", ErrUnavailable, p.name, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// queryParam returns an authorize func that adds a credential as query parameter.
func queryParam(name, value string) func(*http.Request) {
	return func(req *http.Request) {
		q := req.URL.Query()
		q.Set(name, value)
		req.URL.RawQuery = q.Encode()
	}
}

// header returns an authorize func that adds a credential as request header.
func header(name, value string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set(name, value)
	}
}
