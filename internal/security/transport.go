package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	// UserAgent is sent on every outbound request, trial and real download
	// alike.
	UserAgent = "Mozilla/5.0 (LocalDocs/1.0; Documentation Downloader)"

	// MaxRedirects caps redirect chains for both request phases.
	MaxRedirects = 5

	dialTimeout = 10 * time.Second
)

// NewTransport builds an HTTP transport whose dialer re-resolves the target
// host and screens every candidate address against the blocked ranges before
// connecting. Validation resolves once up front; this dialer closes the
// remaining DNS-rebinding window because every connection, including each
// redirect hop, passes through it.
func NewTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}

	guardedDial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", addr, err)
		}

		addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, &ResolveError{Host: host, Err: err}
		}

		for _, candidate := range addrs {
			if IsBlockedAddr(candidate.IP) {
				return nil, &BlockedAddressError{Address: candidate.IP}
			}
		}

		var lastErr error
		for _, candidate := range addrs {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(candidate.IP.String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("cannot connect to %q: %w", host, lastErr)
	}

	return &http.Transport{
		DialContext:         guardedDial,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// NewClient builds an HTTP client on the guarded transport with the redirect
// cap applied.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: NewTransport(),
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", MaxRedirects)
			}
			return nil
		},
	}
}
