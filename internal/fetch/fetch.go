package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"targetradar/internal/common"
	"targetradar/internal/ratelimit"
	"targetradar/internal/service"
)

// Class selects the time-to-live applied to a cached response.
type Class int

const (
	// ClassLookup covers registry lookups that can change between runs.
	ClassLookup Class = iota
	// ClassDocument covers large immutable accounts documents.
	ClassDocument
	// ClassGeo covers postcode-to-coordinate lookups.
	ClassGeo
)

// Default TTLs per cache class.
const (
	TTLLookup   = time.Hour
	TTLDocument = 12 * time.Hour
	TTLGeo      = 24 * time.Hour
)

const defaultTimeout = 30 * time.Second

// retryAfterFallback is slept before the single retry when the server sends
// no Retry-After header.
const retryAfterFallback = 5 * time.Second

// Config holds fetcher configuration.
type Config struct {
	// APIKey, when set, is sent as the Basic-auth username with an empty
	// password on every request.
	APIKey    string
	UserAgent string
	// Limiter may be nil for endpoints without a request quota.
	Limiter *ratelimit.Limiter
	// Caches maps TTL classes to their backing store. Classes without an
	// entry fall back to Default.
	Caches  map[Class]Cache
	Default Cache
	Timeout time.Duration
}

// Fetcher performs rate-limited, retrying, cached HTTP fetches. A cache hit
// bypasses the rate limiter entirely.
type Fetcher struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	caches     map[Class]Cache
	fallback   Cache
	logger     *slog.Logger
	apiKey     string
	userAgent  string
}

// New creates a fetcher from the given configuration.
func New(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	fallback := cfg.Default
	if fallback == nil {
		fallback = NewMemoryCache()
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    cfg.Limiter,
		caches:     cfg.Caches,
		fallback:   fallback,
		apiKey:     cfg.APIKey,
		userAgent:  cfg.UserAgent,
		logger:     slog.Default().With("component", "fetch"),
	}
}

func (f *Fetcher) cacheFor(class Class) Cache {
	if c, ok := f.caches[class]; ok && c != nil {
		return c
	}
	return f.fallback
}

func ttlFor(class Class) time.Duration {
	switch class {
	case ClassDocument:
		return TTLDocument
	case ClassGeo:
		return TTLGeo
	default:
		return TTLLookup
	}
}

// Get fetches baseURL+path with the given query parameters, consulting the
// class cache first. The returned bytes are the raw response body; a 204
// yields an empty body.
func (f *Fetcher) Get(ctx context.Context, baseURL, path string, params url.Values, class Class) ([]byte, error) {
	key := Key(path, params)
	cache := f.cacheFor(class)
	if body, ok := cache.Get(key); ok {
		f.logger.Debug("Cache hit", "key", key)
		return body, nil
	}

	target := baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	body, err := f.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
	if err != nil {
		return nil, err
	}

	cache.Set(key, body, ttlFor(class))
	return body, nil
}

// Post issues a POST with a JSON payload, memoized under cacheKey. Used for
// bulk lookups whose identity is the payload rather than query parameters.
func (f *Fetcher) Post(ctx context.Context, target, cacheKey string, payload []byte, class Class) ([]byte, error) {
	cache := f.cacheFor(class)
	if body, ok := cache.Get(cacheKey); ok {
		f.logger.Debug("Cache hit", "key", cacheKey)
		return body, nil
	}

	body, err := f.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	cache.Set(cacheKey, body, ttlFor(class))
	return body, nil
}

// do issues one HTTP call through the rate limiter, retrying exactly once on
// rate-limit or server-error statuses after the server-indicated backoff.
func (f *Fetcher) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	var body []byte

	err := common.WithRetry(ctx, func() error {
		if f.limiter != nil {
			if err := f.limiter.Acquire(ctx); err != nil {
				return &common.RetryableError{Err: err, Retryable: false}
			}
		}

		req, err := build()
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to build request: %w", err), Retryable: false}
		}
		if f.apiKey != "" {
			req.SetBasicAuth(f.apiKey, "")
		}
		if f.userAgent != "" {
			req.Header.Set("User-Agent", f.userAgent)
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: false}
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to read response: %w", err), Retryable: false}
		}

		switch {
		case resp.StatusCode == http.StatusNoContent:
			body = nil
			return nil
		case isTransient(resp.StatusCode):
			f.logger.Warn("Transient response, will retry once",
				"url", req.URL.String(),
				"status", resp.StatusCode)
			return &common.RetryableError{
				Err:        &common.StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode},
				Retryable:  true,
				RetryAfter: retryAfter(resp),
			}
		case resp.StatusCode >= 400:
			return &common.RetryableError{
				Err:       &common.StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode},
				Retryable: false,
			}
		}

		body = data
		return nil
	}, service.RetryOptions{MaxAttempts: 2, InitialDelay: retryAfterFallback})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func isTransient(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter reads the server's Retry-After header in seconds, falling back
// to a fixed pause when absent or malformed.
func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return retryAfterFallback
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return retryAfterFallback
	}
	return time.Duration(secs) * time.Second
}
