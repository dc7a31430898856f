package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrStorageNotConfigured = errors.New("storage not configured")
)

// ConfigReason is a machine-readable cause attached to ConfigurationError.
type ConfigReason string

const (
	ReasonProxyMisconfigured    ConfigReason = "proxy_misconfigured"
	ReasonAPIKeyMissing         ConfigReason = "api_key_missing"
	ReasonProviderNotConfigured ConfigReason = "provider_not_configured"
	ReasonBaseURLMissing        ConfigReason = "base_url_missing"
)

// ConfigurationError means credentials or endpoint configuration could not
// be resolved for a vendor. It is surfaced to the caller verbatim and never
// retried.
type ConfigurationError struct {
	Vendor string
	Reason ConfigReason
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("vendor %s: configuration error: %s", e.Vendor, e.Reason)
}

// NewConfigurationError builds a ConfigurationError for a vendor.
func NewConfigurationError(vendor string, reason ConfigReason) *ConfigurationError {
	return &ConfigurationError{Vendor: vendor, Reason: reason}
}

// IsConfigReason reports whether err is a ConfigurationError with the given
// reason code.
func IsConfigReason(err error, reason ConfigReason) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr) && cfgErr.Reason == reason
}

// UpstreamRequestError is a network failure or non-2xx response from a
// vendor, preserving the vendor status code when available.
type UpstreamRequestError struct {
	Vendor     string
	StatusCode int
	Err        error
}

func (e *UpstreamRequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("vendor %s: upstream status %d: %v", e.Vendor, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("vendor %s: upstream request: %v", e.Vendor, e.Err)
}

func (e *UpstreamRequestError) Unwrap() error { return e.Err }

// UpstreamProtocolError means the vendor returned 2xx but an unparseable or
// semantically failed payload. Once a task id exists, orchestration turns
// this into a failed TaskResult instead of returning the error.
type UpstreamProtocolError struct {
	Vendor string
	Detail string
}

func (e *UpstreamProtocolError) Error() string {
	return fmt.Sprintf("vendor %s: protocol error: %s", e.Vendor, e.Detail)
}

// InvalidInputError means caller-supplied reference media is unusable. It
// is surfaced before any vendor call is made.
type InvalidInputError struct {
	Detail string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Detail
}

// UpstreamFetchError is a failure downloading a produced asset during
// rehosting. Hosting degrades to the original URL rather than failing the
// task.
type UpstreamFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }
