// Package httpclient builds the single outbound HTTP client the gateway shares
// across requests, and releases its pooled connections at shutdown.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// Options tunes the shared transport.
type Options struct {
	// Timeout bounds a whole request, including reading the response body.
	Timeout             time.Duration
	DialTimeout         time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DefaultOptions returns the transport settings used in production.
func DefaultOptions(timeout time.Duration) Options {
	return Options{
		Timeout:             timeout,
		DialTimeout:         5 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}
}

// Client owns a pooled *http.Client for the lifetime of the process.
type Client struct {
	*http.Client
	transport *http.Transport
}

// New creates a client with its own transport so Close does not affect
// http.DefaultTransport.
func New(opts Options) *Client {
	dialer := &net.Dialer{
		Timeout:   opts.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          opts.MaxIdleConns,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       opts.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &Client{
		Client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		transport: transport,
	}
}

// Close releases idle pooled connections. In-flight requests are unaffected.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}
