// Package client implements a base-URL HTTP client with default
// headers, authorization management, and asynchronous dispatch through
// a work queue.
package client

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/go-restkit/restkit/client/queue"
	"github.com/go-restkit/restkit/client/throttle"
)

// version is reported in the generated User-Agent header.
const version = "0.3.0"

// Client holds per-base-URL configuration and dispatches built
// requests onto its work queue. The base URL is immutable after
// construction; default headers and the Authorization value may be
// mutated concurrently with request building.
type Client struct {
	baseURL *url.URL
	c       *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
	queue   *queue.Queue

	mu      sync.RWMutex
	headers http.Header
}

// New instantiates a Client rooted at baseURL. The default header set
// prefers JSON responses, accepts gzip encoding, derives
// Accept-Language from the process locale, and carries a generated
// User-Agent. The client's work queue is allocated here.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base url %w: must not be empty", ErrInvalidArgument)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("base url %q %w: %w", baseURL, ErrInvalidArgument, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("base url %q %w: must be absolute", baseURL, ErrInvalidArgument)
	}

	var settings options
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	client := &Client{
		baseURL: u,
		c:       &http.Client{},
		logger:  slog.Default(),
		tracer:  noop.NewTracerProvider().Tracer(""),
		queue:   queue.New(settings.maxConcurrent),
		headers: make(http.Header),
	}

	client.headers.Set("Accept", "application/json")
	client.headers.Set("Accept-Encoding", "gzip")
	client.headers.Set("Accept-Language", acceptLanguage())
	client.headers.Set("User-Agent", generatedUserAgent())

	if settings.client != nil {
		client.c = settings.client
	}

	if settings.logger != nil {
		client.logger = settings.logger
	}

	if settings.tracer != nil {
		client.tracer = settings.tracer
	}

	if settings.timeout != nil {
		client.c.Timeout = *settings.timeout
	}

	if settings.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if settings.userAgent != "" {
		client.headers.Set("User-Agent", settings.userAgent)
	}

	var transport http.RoundTripper
	switch {
	case settings.rt != nil:
		transport = settings.rt
	case settings.client != nil && settings.client.Transport != nil:
		transport = settings.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if settings.throttle != nil {
		rt, err := throttle.NewRoundTripper(settings.throttle.RPS, settings.throttle.Burst, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	return client, nil
}

// BaseURL returns the root URL all relative request paths resolve
// against.
func (c *Client) BaseURL() *url.URL {
	cpy := *c.baseURL
	return &cpy
}

// DefaultHeader returns the default value applied to requests for the
// given header name, using case-insensitive lookup per HTTP semantics.
func (c *Client) DefaultHeader(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	vals := c.headers.Values(name)
	if len(vals) == 0 {
		return "", false
	}

	return vals[0], true
}

// SetDefaultHeader sets the default value applied to requests built
// after this call. Requests already built are unaffected.
func (c *Client) SetDefaultHeader(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.headers.Set(name, value)
}

// RemoveDefaultHeader removes the default value for the given header
// name. It is a no-op when the header is not set.
func (c *Client) RemoveDefaultHeader(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.headers.Del(name)
}

// SetBasicAuth sets the Authorization default header to an HTTP Basic
// value with the Base64-encoded username and password, overwriting any
// existing Authorization value.
func (c *Client) SetBasicAuth(username, password string) {
	cred := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	c.SetDefaultHeader("Authorization", "Basic "+cred)
}

// SetTokenAuth sets the Authorization default header to a bearer token
// value, overwriting any existing Authorization value.
func (c *Client) SetTokenAuth(token string) {
	c.SetDefaultHeader("Authorization", "Bearer "+token)
}

// ClearAuth removes the Authorization default header. Idempotent.
func (c *Client) ClearAuth() {
	c.RemoveDefaultHeader("Authorization")
}

// snapshotHeaders copies the default header set under the read lock so
// a build never observes a torn mutation.
func (c *Client) snapshotHeaders() http.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.headers.Clone()
}

// generatedUserAgent builds the default User-Agent string.
func generatedUserAgent() string {
	return fmt.Sprintf("restkit/%s (%s; %s)", version, runtime.GOOS, runtime.GOARCH)
}

// acceptLanguage derives the default Accept-Language value from the
// process locale, falling back to US English.
func acceptLanguage() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(key)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}

		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}

		tag := strings.ToLower(strings.ReplaceAll(v, "_", "-"))
		if tag == "" || tag == "en-us" {
			break
		}

		return tag + ", en-us;q=0.8"
	}

	return "en-us;q=0.8"
}
