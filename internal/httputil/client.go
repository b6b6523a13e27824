// Package httputil builds the pooled HTTP client shared by every
// provider adapter. One client serves all vendors: the overall Timeout
// bounds a whole chat or stream call, ResponseHeaderTimeout catches a
// vendor that accepts the connection but never starts answering, and
// stream reads inside those bounds are unaffected.
package httputil

import (
	"net"
	"net/http"
	"time"
)

// ClientConfig is the timeout and pooling policy applied uniformly to
// every vendor call.
type ClientConfig struct {
	// Timeout bounds one call end to end, headers through body.
	Timeout time.Duration

	// Connection setup bounds.
	DialTimeout         time.Duration
	TLSHandshakeTimeout time.Duration
	KeepAlive           time.Duration

	// ResponseHeaderTimeout bounds the wait for the first response
	// byte, so a silent vendor fails fast instead of eating the whole
	// call budget.
	ResponseHeaderTimeout time.Duration

	// Pool limits apply across all vendors, not per vendor, because
	// the adapters share one client.
	IdleConnTimeout     time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
}

func DefaultConfig() ClientConfig {
	return ClientConfig{
		Timeout:               120 * time.Second,
		DialTimeout:           10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		KeepAlive:             30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
	}
}

func NewClient(cfg ClientConfig) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
			ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
			IdleConnTimeout:       cfg.IdleConnTimeout,
			MaxIdleConns:          cfg.MaxIdleConns,
			MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
			ForceAttemptHTTP2:     true,
		},
	}
}

func DefaultClient() *http.Client {
	return NewClient(DefaultConfig())
}
