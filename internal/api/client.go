package api

import (
	"fmt"
	"strings"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"go.uber.org/zap"
)

// HTTPDoer is the subset of tls_client.HttpClient the chat client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// idleCloser is implemented by transports that keep connections alive.
type idleCloser interface {
	CloseIdleConnections()
}

// DefaultHeaderTimeout bounds the wait for response headers.
const DefaultHeaderTimeout = 300 * time.Second

// Client talks to the chat completion backend.
type Client struct {
	baseURL       string
	httpClient    HTTPDoer
	headerTimeout time.Duration
	userAgent      string
	logger         *zap.Logger
	mu             sync.RWMutex
	closed         bool
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithHTTPClient replaces the default TLS client, mostly for tests.
func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithTimeout bounds the wait for response headers. The streamed body is
// never bounded. Zero or less disables the timeout.
func WithTimeout(seconds int) ClientOption {
	return func(c *Client) {
		if seconds <= 0 {
			c.headerTimeout = 0
			return
		}
		c.headerTimeout = time.Duration(seconds) * time.Second
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a Client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api base URL cannot be empty")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("api base URL must start with http:// or https://: %s", baseURL)
	}

	client := &Client{
		baseURL:       baseURL,
		headerTimeout: DefaultHeaderTimeout,
		userAgent:     "streamchat",
		logger:        zap.NewNop(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		// A client-wide timeout would also cover reading the body and cut
		// long replies short. StreamChat enforces headerTimeout instead.
		options := []tls_client.HttpClientOption{
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
			tls_client.WithTimeoutSeconds(0),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// BaseURL returns the configured API base.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ChatEndpoint returns the absolute URL of the chat endpoint.
func (c *Client) ChatEndpoint() string {
	return c.baseURL + PathChat
}

// Close marks the client closed and drops idle keep-alive connections.
// Requests made afterwards fail.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if ic, ok := c.httpClient.(idleCloser); ok {
		ic.CloseIdleConnections()
	}
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
