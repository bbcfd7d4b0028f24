// Package fetch downloads the binary content of cached asset records
// through a hardened path that refuses internal network targets.
package fetch

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

	"framd/server/internal/domain"
	"framd/server/internal/infra"
	"framd/server/internal/license"
)

// ErrorKind classifies resolver failures.
type ErrorKind string

const (
	KindUnsafeTarget     ErrorKind = "unsafe_target"
	KindFetchFailed      ErrorKind = "fetch_failed"
	KindLicenseViolation ErrorKind = "license_violation"
)

// DownloadError is the resolver's failure type. Kind drives how the caller
// reacts: unsafe_target and license_violation disqualify the record, while
// fetch_failed is a transient network condition.
type DownloadError struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("download %s: %s", e.URL, e.Kind)
}

func (e *DownloadError) Unwrap() error { return e.Err }

const (
	defaultMaxBytes = 64 << 20 // 64 MiB
	defaultTimeout  = 60 * time.Second
	maxRedirectHops = 10
)

// Resolver fetches bytes for validated records. Every target host is
// checked against the address policy before the request, on each redirect
// hop, and again at dial time after DNS resolution.
type Resolver struct {
	client       *http.Client
	maxBytes     int64
	allowedHosts map[string]struct{}
	logger       infra.Logger
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithMaxBytes caps the response size the resolver will read.
func WithMaxBytes(n int64) ResolverOption {
	return func(r *Resolver) { r.maxBytes = n }
}

// WithTimeout bounds a whole download including redirects.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.client.Timeout = d }
}

// WithAllowedHosts exempts specific hosts (hostnames or literal IPs) from
// the address policy, for trusted internal mirrors.
func WithAllowedHosts(hosts ...string) ResolverOption {
	return func(r *Resolver) {
		for _, h := range hosts {
			h = strings.ToLower(strings.TrimSpace(h))
			if h != "" {
				r.allowedHosts[h] = struct{}{}
			}
		}
	}
}

// NewResolver constructs a resolver with the hardened HTTP client.
func NewResolver(logger infra.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		maxBytes:     defaultMaxBytes,
		allowedHosts: make(map[string]struct{}),
		logger:       logger,
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   r.dialControl,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	r.client = &http.Client{
		Timeout:   defaultTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirectHops {
				return fmt.Errorf("stopped after %d redirects", maxRedirectHops)
			}
			// A validated entry URL is not enough: the server may
			// redirect to an internal address, so each hop is checked.
			return r.checkTarget(req.Context(), req.URL)
		},
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches the binary content for rec. The record's license is
// re-validated first: a record that no longer validates must not be
// downloadable even if it sits in the cache.
func (r *Resolver) Resolve(ctx context.Context, rec domain.AssetRecord) ([]byte, string, error) {
	if decision := license.Validate(rec.License); !decision.Accepted {
		return nil, "", &DownloadError{
			Kind: KindLicenseViolation,
			URL:  rec.DownloadURL,
			Err:  fmt.Errorf("license %q rejected: %s", rec.License, decision.Reason),
		}
	}

	target, err := url.Parse(rec.DownloadURL)
	if err != nil {
		return nil, "", &DownloadError{Kind: KindUnsafeTarget, URL: rec.DownloadURL, Err: err}
	}
	if err := r.checkTarget(ctx, target); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, "", &DownloadError{Kind: KindFetchFailed, URL: rec.DownloadURL, Err: err}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		var dlErr *DownloadError
		if errors.As(err, &dlErr) {
			return nil, "", dlErr
		}
		return nil, "", &DownloadError{Kind: KindFetchFailed, URL: rec.DownloadURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &DownloadError{
			Kind: KindFetchFailed,
			URL:  rec.DownloadURL,
			Err:  fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, "", &DownloadError{Kind: KindFetchFailed, URL: rec.DownloadURL, Err: err}
	}
	if int64(len(data)) > r.maxBytes {
		return nil, "", &DownloadError{
			Kind: KindFetchFailed,
			URL:  rec.DownloadURL,
			Err:  fmt.Errorf("response exceeds %d bytes", r.maxBytes),
		}
	}

	mime := resp.Header.Get("Content-Type")
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = mime[:idx]
	}
	return data, strings.TrimSpace(mime), nil
}

// checkTarget validates scheme and host of one hop against the policy.
func (r *Resolver) checkTarget(ctx context.Context, target *url.URL) error {
	if target.Scheme != "http" && target.Scheme != "https" {
		return &DownloadError{
			Kind: KindUnsafeTarget,
			URL:  target.String(),
			Err:  fmt.Errorf("unsupported scheme %q", target.Scheme),
		}
	}
	host := strings.ToLower(target.Hostname())
	if host == "" {
		return &DownloadError{Kind: KindUnsafeTarget, URL: target.String(), Err: errors.New("missing host")}
	}
	if r.hostAllowed(host) {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if !ipPermitted(ip) {
			return &DownloadError{
				Kind: KindUnsafeTarget,
				URL:  target.String(),
				Err:  fmt.Errorf("address %s is not public", ip),
			}
		}
		return nil
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return &DownloadError{Kind: KindFetchFailed, URL: target.String(), Err: err}
	}
	for _, addr := range addrs {
		if !ipPermitted(addr.IP) {
			return &DownloadError{
				Kind: KindUnsafeTarget,
				URL:  target.String(),
				Err:  fmt.Errorf("host %s resolves to non-public address %s", host, addr.IP),
			}
		}
	}
	return nil
}

func (r *Resolver) hostAllowed(host string) bool {
	_, ok := r.allowedHosts[strings.ToLower(host)]
	return ok
}
