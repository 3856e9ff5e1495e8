package security

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// MaxContentSize caps both the declared and the streamed document size.
	MaxContentSize int64 = 50 << 20 // 50 MiB

	// ValidationTimeout bounds DNS resolution and the trial request.
	ValidationTimeout = 10 * time.Second
)

// Ports of non-HTTP services a forged URL could probe.
var dangerousPorts = map[int]struct{}{
	22: {}, 23: {}, 25: {}, 53: {}, 110: {}, 143: {}, 993: {}, 995: {},
}

// Media types the downloader accepts, parameters stripped.
var allowedContentTypes = map[string]struct{}{
	"text/plain":               {},
	"text/markdown":            {},
	"text/html":                {},
	"text/x-markdown":          {},
	"application/octet-stream": {},
}

// Validator screens URLs for SSRF risk before any download is attempted.
// The zero value is not usable; construct with NewValidator.
type Validator struct {
	timeout time.Duration
	client  *http.Client
	lookup  func(ctx context.Context, host string) ([]net.IP, error)
}

// NewValidator builds a validator with the standard timeout and the guarded
// transport.
func NewValidator() *Validator {
	return &Validator{
		timeout: ValidationTimeout,
		client:  NewClient(ValidationTimeout),
		lookup: func(ctx context.Context, host string) ([]net.IP, error) {
			return net.DefaultResolver.LookupIP(ctx, "ip", host)
		},
	}
}

// ValidateURL checks one URL, in strict order with the first failure
// winning: scheme, hostname presence, resolvability, resolved-address
// safety, explicit port, then a single trial request whose Content-Type and
// Content-Length headers are inspected. The trial request performs real
// network I/O; callers go through the batch orchestrator's concurrency cap
// rather than calling this from hot loops.
func (v *Validator) ValidateURL(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return &SchemeError{Scheme: parsed.Scheme}
	}

	host := parsed.Hostname()
	if host == "" {
		return &HostnameError{}
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	addrs, err := v.lookup(ctx, host)
	if err != nil || len(addrs) == 0 {
		return &ResolveError{Host: host, Err: err}
	}

	// Single-shot check of the first resolved address; the guarded dialer
	// re-screens every address at connect time.
	if IsBlockedAddr(addrs[0]) {
		return &BlockedAddressError{Address: addrs[0]}
	}

	if portStr := parsed.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return &PortRangeError{Port: portStr}
		}
		if _, blocked := dangerousPorts[port]; blocked {
			return &BlockedPortError{Port: port}
		}
	}

	return v.trialRequest(ctx, rawURL)
}

func (v *Validator) trialRequest(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &TrialError{Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return &TrialError{Err: err}
	}
	// Headers are all validation needs; the body belongs to the real fetch.
	resp.Body.Close()

	log.Debug("trial request complete", "url", rawURL, "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		return &TrialStatusError{Status: resp.StatusCode}
	}

	if rawType := resp.Header.Get("Content-Type"); rawType != "" {
		mediaType, _, err := mime.ParseMediaType(rawType)
		if err != nil {
			mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(rawType, ";", 2)[0]))
		}
		if _, ok := allowedContentTypes[mediaType]; !ok {
			return &ContentTypeError{Type: mediaType}
		}
	}

	if rawLen := resp.Header.Get("Content-Length"); rawLen != "" {
		if declared, err := strconv.ParseInt(rawLen, 10, 64); err == nil && declared > MaxContentSize {
			return &DeclaredSizeError{Size: declared}
		}
	}

	return nil
}
