package security

import (
	"errors"
	"fmt"
	"net"
)

// securityViolation marks the hard pre-request rejections (scheme, blocked
// address, blocked port) that the CLI surfaces as security events rather
// than transient faults.
type securityViolation interface {
	securityViolation()
}

// IsSecurityViolation reports whether err (or anything it wraps) is a hard
// security rejection as opposed to an ordinary validation failure.
func IsSecurityViolation(err error) bool {
	var v securityViolation
	return errors.As(err, &v)
}

// SchemeError rejects URLs whose scheme is not http or https.
type SchemeError struct {
	Scheme string
}

func (e *SchemeError) Error() string {
	return fmt.Sprintf("URL scheme %q is not allowed (only http and https)", e.Scheme)
}

func (e *SchemeError) securityViolation() {}

// HostnameError rejects URLs without a hostname.
type HostnameError struct{}

func (e *HostnameError) Error() string {
	return "URL has no hostname"
}

// ResolveError carries a DNS resolution failure for the URL's hostname.
type ResolveError struct {
	Host string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("cannot resolve hostname %q: %v", e.Host, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// BlockedAddressError rejects hosts that resolve into a blocked range.
type BlockedAddressError struct {
	Address net.IP
}

func (e *BlockedAddressError) Error() string {
	return fmt.Sprintf("access to private/internal address %s is blocked", e.Address)
}

func (e *BlockedAddressError) securityViolation() {}

// PortRangeError rejects explicit ports outside 1-65535.
type PortRangeError struct {
	Port string
}

func (e *PortRangeError) Error() string {
	return fmt.Sprintf("invalid port %q", e.Port)
}

// BlockedPortError rejects explicit ports on the dangerous-service list.
type BlockedPortError struct {
	Port int
}

func (e *BlockedPortError) Error() string {
	return fmt.Sprintf("access to port %d is blocked", e.Port)
}

func (e *BlockedPortError) securityViolation() {}

// TrialError carries a transport-level failure of the trial request.
type TrialError struct {
	Err error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("trial request failed: %v", e.Err)
}

func (e *TrialError) Unwrap() error {
	return e.Err
}

// TrialStatusError reports an HTTP error status on the trial response.
// Soft failure: the status is inspected, not treated as a security event.
type TrialStatusError struct {
	Status int
}

func (e *TrialStatusError) Error() string {
	return fmt.Sprintf("URL returned HTTP status %d", e.Status)
}

// ContentTypeError rejects media types outside the allow-list.
type ContentTypeError struct {
	Type string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("unsupported content type %q", e.Type)
}

// DeclaredSizeError rejects responses declaring more than the size limit.
type DeclaredSizeError struct {
	Size int64
}

func (e *DeclaredSizeError) Error() string {
	return fmt.Sprintf("declared content length %d exceeds the %d byte limit", e.Size, MaxContentSize)
}
