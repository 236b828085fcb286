package lookup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ipwatch/internal/config"
	"ipwatch/internal/types"
	"ipwatch/internal/validator"
	"ipwatch/internal/version"

	"go.uber.org/zap"
	"golang.org/x/net/http/httpproxy"
)

// maxBodySize bounds the echo response; an IPv6 literal plus whitespace fits easily
const maxBodySize = 128

// Resolver queries a public IP echo service
type Resolver struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewResolver creates a resolver for cfg.URL. When cfg.BypassProxy is set the
// echo host is added to the transport's no-proxy list so the lookup always
// sees the real egress address.
func NewResolver(cfg *config.LookupConfig, logger *zap.Logger) (*Resolver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid lookup url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultLookupTimeout
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        2,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  true,
		TLSHandshakeTimeout: timeout,
	}
	if cfg.BypassProxy {
		transport.Proxy = bypassProxyFor(u.Hostname())
	}

	return &Resolver{
		url: u.String(),
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger,
	}, nil
}

// bypassProxyFor returns a proxy func that honors the environment's proxy
// settings for every host except host.
func bypassProxyFor(host string) func(*http.Request) (*url.URL, error) {
	pc := httpproxy.FromEnvironment()
	if pc.NoProxy == "" {
		pc.NoProxy = host
	} else {
		pc.NoProxy = pc.NoProxy + "," + host
	}
	proxyFunc := pc.ProxyFunc()

	return func(req *http.Request) (*url.URL, error) {
		return proxyFunc(req.URL)
	}
}

// Lookup returns the caller's public IP as reported by the echo service.
// Any network error, timeout, non-2xx status or unparsable body is an error.
func (r *Resolver) Lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "text/plain")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			r.logger.Debug("Failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &types.StatusError{URL: r.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	ip := strings.TrimSpace(string(body))
	if !validator.IsValidIP(ip) {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidAddress, ip)
	}

	r.logger.Debug("Public IP resolved", zap.String("ip", ip), zap.String("provider", r.url))
	return ip, nil
}

// Close releases idle connections held by the resolver
func (r *Resolver) Close() {
	r.client.CloseIdleConnections()
}
