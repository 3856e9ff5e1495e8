package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// testValidator resolves every hostname to the given address and talks to
// the network with a plain client, so trial requests can hit httptest
// servers on loopback.
func testValidator(resolveTo string) *Validator {
	return &Validator{
		timeout: 5 * time.Second,
		client:  &http.Client{Timeout: 5 * time.Second},
		lookup: func(ctx context.Context, host string) ([]net.IP, error) {
			return []net.IP{net.ParseIP(resolveTo)}, nil
		},
	}
}

func TestValidateURLSchemes(t *testing.T) {
	v := &Validator{
		timeout: time.Second,
		lookup: func(ctx context.Context, host string) ([]net.IP, error) {
			t.Fatal("lookup called for a URL that fails the scheme check")
			return nil, nil
		},
	}

	cases := []struct {
		url      string
		testName string
	}{
		{"ftp://example.com/file.txt", "ftp"},
		{"file:///etc/passwd", "file"},
		{"gopher://example.com", "gopher"},
		{"javascript:alert(1)", "javascript"},
		{"example.com/docs", "no scheme"},
	}

	for _, tc := range cases {
		err := v.ValidateURL(context.Background(), tc.url)
		var schemeErr *SchemeError
		if !errors.As(err, &schemeErr) {
			t.Errorf("%s: ValidateURL(%q) = %v, want SchemeError", tc.testName, tc.url, err)
		}
		if !IsSecurityViolation(err) {
			t.Errorf("%s: scheme rejection not flagged as security violation", tc.testName)
		}
	}
}

func TestValidateURLMissingHostname(t *testing.T) {
	v := NewValidator()
	err := v.ValidateURL(context.Background(), "http://")
	var hostErr *HostnameError
	if !errors.As(err, &hostErr) {
		t.Fatalf("ValidateURL of hostless URL = %v, want HostnameError", err)
	}
	if IsSecurityViolation(err) {
		t.Fatal("missing hostname flagged as security violation, want ordinary validation failure")
	}
}

func TestValidateURLResolveFailure(t *testing.T) {
	v := &Validator{
		timeout: time.Second,
		lookup: func(ctx context.Context, host string) ([]net.IP, error) {
			return nil, errors.New("no such host")
		},
	}

	err := v.ValidateURL(context.Background(), "http://definitely-not-real.example")
	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) {
		t.Fatalf("ValidateURL with failing resolver = %v, want ResolveError", err)
	}
	if resolveErr.Host != "definitely-not-real.example" {
		t.Fatalf("ResolveError host = %q, want the URL hostname", resolveErr.Host)
	}
}

func TestValidateURLBlockedAddresses(t *testing.T) {
	cases := []struct {
		resolveTo string
		testName  string
	}{
		{"10.1.2.3", "10/8"},
		{"172.16.5.5", "172.16/12"},
		{"192.168.0.10", "192.168/16"},
		{"127.0.0.1", "loopback"},
		{"169.254.169.254", "link-local"},
		{"224.0.0.1", "multicast"},
		{"240.0.0.99", "reserved"},
		{"::1", "IPv6 loopback"},
		{"fc00::2", "IPv6 unique local"},
		{"fe80::2", "IPv6 link-local"},
	}

	for _, tc := range cases {
		v := testValidator(tc.resolveTo)
		err := v.ValidateURL(context.Background(), "http://internal.example.com/docs")
		var blockedErr *BlockedAddressError
		if !errors.As(err, &blockedErr) {
			t.Errorf("%s: ValidateURL resolving to %s = %v, want BlockedAddressError", tc.testName, tc.resolveTo, err)
			continue
		}
		if got := blockedErr.Address.String(); got != net.ParseIP(tc.resolveTo).String() {
			t.Errorf("%s: BlockedAddressError carries %s, want %s", tc.testName, got, tc.resolveTo)
		}
		if !IsSecurityViolation(err) {
			t.Errorf("%s: blocked address not flagged as security violation", tc.testName)
		}
	}
}

func TestValidateURLPorts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	for _, port := range []int{22, 23, 25, 53, 110, 143, 993, 995} {
		v := testValidator("8.8.8.8")
		url := fmt.Sprintf("http://example.com:%d/docs", port)
		err := v.ValidateURL(context.Background(), url)
		var portErr *BlockedPortError
		if !errors.As(err, &portErr) {
			t.Errorf("port %d: ValidateURL = %v, want BlockedPortError", port, err)
			continue
		}
		if portErr.Port != port {
			t.Errorf("BlockedPortError carries %d, want %d", portErr.Port, port)
		}
		if !IsSecurityViolation(err) {
			t.Errorf("port %d: blocked port not flagged as security violation", port)
		}
	}

	// 80, 443, and the test server's own high port must not be rejected on
	// port grounds; the trial request below actually succeeds.
	v := testValidator("8.8.8.8")
	if err := v.ValidateURL(context.Background(), srv.URL+"/docs"); err != nil {
		t.Fatalf("ValidateURL of reachable URL on a high port = %v, want nil", err)
	}
}

func TestValidateURLPortRange(t *testing.T) {
	v := testValidator("8.8.8.8")
	err := v.ValidateURL(context.Background(), "http://example.com:99999/docs")
	var rangeErr *PortRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("ValidateURL with out-of-range port = %v, want PortRangeError", err)
	}
	if IsSecurityViolation(err) {
		t.Fatal("out-of-range port flagged as security violation, want ordinary validation failure")
	}
}

func TestValidateURLTrialStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != UserAgent {
			t.Errorf("trial request User-Agent = %q, want %q", r.Header.Get("User-Agent"), UserAgent)
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	v := testValidator("8.8.8.8")
	err := v.ValidateURL(context.Background(), srv.URL)
	var statusErr *TrialStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("ValidateURL of 404 URL = %v, want TrialStatusError", err)
	}
	if statusErr.Status != http.StatusNotFound {
		t.Fatalf("TrialStatusError status = %d, want 404", statusErr.Status)
	}
	if IsSecurityViolation(err) {
		t.Fatal("HTTP error status flagged as security violation, want soft failure")
	}
}

func TestValidateURLContentType(t *testing.T) {
	cases := []struct {
		contentType string
		allowed     bool
		testName    string
	}{
		{"text/plain", true, "plain"},
		{"text/plain; charset=utf-8", true, "plain with charset"},
		{"text/markdown", true, "markdown"},
		{"text/x-markdown", true, "x-markdown"},
		{"text/html; charset=iso-8859-1", true, "html with charset"},
		{"application/octet-stream", true, "octet-stream"},
		{"application/pdf", false, "pdf"},
		{"image/png", false, "png"},
		{"application/json", false, "json"},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", tc.contentType)
			w.WriteHeader(http.StatusOK)
		}))

		v := testValidator("8.8.8.8")
		err := v.ValidateURL(context.Background(), srv.URL)
		srv.Close()

		if tc.allowed {
			if err != nil {
				t.Errorf("%s: ValidateURL = %v, want nil", tc.testName, err)
			}
			continue
		}
		var typeErr *ContentTypeError
		if !errors.As(err, &typeErr) {
			t.Errorf("%s: ValidateURL = %v, want ContentTypeError", tc.testName, err)
		}
	}
}

func TestValidateURLDeclaredSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Length", "999999999999")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v := testValidator("8.8.8.8")
	err := v.ValidateURL(context.Background(), srv.URL)
	var sizeErr *DeclaredSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("ValidateURL of oversized declaration = %v, want DeclaredSizeError", err)
	}
	if sizeErr.Size != 999999999999 {
		t.Fatalf("DeclaredSizeError size = %d, want the declared length", sizeErr.Size)
	}
}

func TestValidateURLIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v := testValidator("8.8.8.8")
	first := v.ValidateURL(context.Background(), srv.URL)
	second := v.ValidateURL(context.Background(), srv.URL)
	if (first == nil) != (second == nil) {
		t.Fatalf("validation not idempotent: first = %v, second = %v", first, second)
	}
}
