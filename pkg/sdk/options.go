package boqmatch

import (
	"net/http"
	"time"
)

type clientConfig struct {
	httpClient   *http.Client
	userAgent    string
	pollInterval time.Duration
}

// Option configures the client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// WithHTTPClient sets a custom HTTP client (timeouts, proxies, transport).
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *clientConfig) {
		c.userAgent = ua
	})
}

// WithPollInterval sets how often WaitForJob and WaitForBatch poll.
// Default is one second.
func WithPollInterval(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.pollInterval = d
	})
}
