package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/metrics"
)

// Config holds configuration for the metadata fetcher
type Config struct {
	Timeout           time.Duration
	MaxBodyBytes      int64
	RequestsPerSecond float64
	Burst             int
	Gateways          Gateways
	UserAgent         string
	MaxRedirects      int
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		Timeout:           10 * time.Second,
		MaxBodyBytes:      1 << 20,
		RequestsPerSecond: 20,
		Burst:             10,
		Gateways:          Gateways{IPFS: "https://cloudflare-ipfs.com", Arweave: "https://arweave.net"},
		UserAgent:         "token-metadata-service",
		MaxRedirects:      5,
	}
}

// HTTPFetcher downloads metadata documents over http(s), ipfs and arweave gateways, and data: uris.
type HTTPFetcher struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// New creates a fetcher. A non-positive RequestsPerSecond disables pacing.
func New(cfg Config) *HTTPFetcher {
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 5
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	client := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
	return &HTTPFetcher{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// ResolveHost returns the host a token uri is fetched from.
func (f *HTTPFetcher) ResolveHost(uri string) string {
	return f.cfg.Gateways.ResolveHost(uri)
}

// ResolveURL returns the gateway url for uri.
func (f *HTTPFetcher) ResolveURL(uri string) (string, error) {
	return f.cfg.Gateways.ResolveURL(uri)
}

// Fetch returns the raw document at uri. It never retries, callers decide from the error kind.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		body, err := decodeDataURI(uri)
		if err == nil && f.cfg.MaxBodyBytes > 0 && int64(len(body)) > f.cfg.MaxBodyBytes {
			err = domainerrors.ErrOversizedBody
		}
		if err != nil {
			metrics.FetchErrors.WithLabelValues("data_uri").Inc()
		}
		return body, err
	}

	target, err := f.cfg.Gateways.ResolveURL(uri)
	if err != nil {
		metrics.FetchErrors.WithLabelValues("unsupported_scheme").Inc()
		return nil, err
	}

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	start := f.now()
	defer func() {
		metrics.FetchLatency.WithLabelValues(schemeOf(uri)).Observe(time.Since(start).Seconds())
	}()

	if err := f.limiter.Wait(ctx); err != nil {
		metrics.FetchErrors.WithLabelValues("timeout").Inc()
		return nil, fmt.Errorf("%w: waiting for fetch slot: %v", domainerrors.ErrFetchTimeout, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrUnsupportedScheme, err)
	}
	req.Header.Set("Accept", "application/json")
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := &HTTPStatusError{
			Host:       strings.ToLower(req.URL.Hostname()),
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), f.now()),
		}
		metrics.FetchErrors.WithLabelValues(fmt.Sprintf("http_%d", resp.StatusCode)).Inc()
		return nil, statusErr
	}

	reader := io.Reader(resp.Body)
	if f.cfg.MaxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, f.classifyTransport(err)
	}
	if f.cfg.MaxBodyBytes > 0 && int64(len(body)) > f.cfg.MaxBodyBytes {
		metrics.FetchErrors.WithLabelValues("oversized").Inc()
		return nil, fmt.Errorf("%w: more than %d bytes", domainerrors.ErrOversizedBody, f.cfg.MaxBodyBytes)
	}
	return body, nil
}

func (f *HTTPFetcher) classifyTransport(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		metrics.FetchErrors.WithLabelValues("timeout").Inc()
		return fmt.Errorf("%w: %v", domainerrors.ErrFetchTimeout, err)
	}
	metrics.FetchErrors.WithLabelValues("transport").Inc()
	return fmt.Errorf("%w: %v", domainerrors.ErrFetchTransport, err)
}
