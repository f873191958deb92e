package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChunkSize is the buffer size used to copy response bodies into sinks
const ChunkSize = 4096

// Response is what a transport returns for one request
type Response struct {
	// StatusCode is the HTTP status code
	StatusCode int

	// Location is the raw Location header value
	Location string

	// Body streams the response body; callers must close it
	Body io.ReadCloser
}

// Opener opens a locator and returns the response
type Opener interface {
	Open(ctx context.Context, locator string) (*Response, error)
}

// TransportConfig defines configuration for the HTTP transport
type TransportConfig struct {
	// Timeout bounds connect, headers and body read of one request
	Timeout time.Duration

	// FollowRedirects lets the client follow 3xx responses
	FollowRedirects bool

	// UserAgent is sent with every request when non-empty
	UserAgent string
}

// DefaultTransportConfig returns default configuration
func DefaultTransportConfig() *TransportConfig {
	return &TransportConfig{
		Timeout:         30 * time.Second,
		FollowRedirects: true,
		UserAgent:       "robustfetch/1.0",
	}
}

// Transport opens locators over HTTP GET
type Transport struct {
	config *TransportConfig
	client *http.Client
}

// NewTransport creates a transport; a nil config uses the defaults
func NewTransport(config *TransportConfig) *Transport {
	if config == nil {
		config = DefaultTransportConfig()
	}

	client := &http.Client{Timeout: config.Timeout}
	if !config.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Transport{
		config: config,
		client: client,
	}
}

// NewTransportWithClient wraps an existing client. Redirect following is
// controlled by the client itself.
func NewTransportWithClient(client *http.Client, userAgent string) *Transport {
	return &Transport{
		config: &TransportConfig{
			Timeout:         client.Timeout,
			FollowRedirects: client.CheckRedirect == nil,
			UserAgent:       userAgent,
		},
		client: client,
	}
}

// Open performs a GET request for locator
func (t *Transport) Open(ctx context.Context, locator string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if t.config.UserAgent != "" {
		req.Header.Set("User-Agent", t.config.UserAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Location:   resp.Header.Get("Location"),
		Body:       resp.Body,
	}, nil
}

// Close releases idle connections
func (t *Transport) Close() {
	t.client.CloseIdleConnections()
}

// drain discards what is left of a body so the connection can be reused
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64*1024))
	_ = body.Close()
}
