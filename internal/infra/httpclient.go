package infra

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// LoggingTransport wraps an http.RoundTripper with request/response logging
// for every outbound vendor call.
type LoggingTransport struct {
	Base   http.RoundTripper
	Logger zerolog.Logger
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	start := time.Now()
	resp, err := base.RoundTrip(req)
	evt := t.Logger.Debug().
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Dur("elapsed", time.Since(start))
	if err != nil {
		t.Logger.Warn().Err(err).Str("method", req.Method).Str("host", req.URL.Host).Msg("outbound request failed")
		return nil, err
	}
	evt.Int("status", resp.StatusCode).Msg("outbound request")
	return resp, err
}

// NewHTTPClient builds the outbound client used for vendor calls: bounded
// timeout plus request/response logging.
func NewHTTPClient(timeout time.Duration, logger zerolog.Logger) *http.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &LoggingTransport{Logger: logger},
	}
}
