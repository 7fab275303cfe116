package azstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultCloudSuffix is the public cloud DNS suffix storage endpoints
	// hang off.
	DefaultCloudSuffix = "core.windows.net"
	// DefaultAPIVersion is the service REST API version sent as x-ms-version.
	DefaultAPIVersion = "2018-03-28"
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second
)

// developmentPorts maps each service to the local emulator's listen port.
var developmentPorts = map[ServiceType]string{
	ServiceBlob:  "10000",
	ServiceQueue: "10001",
	ServiceTable: "10002",
}

// Client dispatches assembled requests: it resolves the endpoint for a
// service, finalizes and signs the request, submits it to the transport, and
// normalizes the result into a RawResponse. A Client holds no per-request
// state and is safe for unbounded concurrent use.
type Client struct {
	creds       Credentials
	httpClient  *http.Client
	codec       Codec
	xmlCodec    Codec
	cloudSuffix string
	apiVersion  string
	useHTTPS    bool
	// endpoint overrides the derived base URL when set; used to point the
	// client at a local emulator on a non-standard address.
	endpoint string
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithCloudSuffix sets the endpoint DNS suffix, e.g. for sovereign clouds.
func WithCloudSuffix(suffix string) Option {
	return func(c *Client) { c.cloudSuffix = suffix }
}

// WithAPIVersion overrides the x-ms-version header value.
func WithAPIVersion(version string) Option {
	return func(c *Client) { c.apiVersion = version }
}

// WithEndpoint pins every service to a fixed base URL instead of deriving it
// from the account name and cloud suffix. Intended for emulators and tests.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = strings.TrimSuffix(endpoint, "/") }
}

// WithCodec sets the codec used for JSON request/response bodies.
func WithCodec(codec Codec) Option {
	return func(c *Client) { c.codec = codec }
}

// WithClock injects the timestamp source used to stamp x-ms-date. The signing
// core itself never generates timestamps; this only affects the dispatch
// layer, which keeps golden signature tests deterministic.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger used for request debug logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithoutHTTPS switches derived endpoints to plain http.
func WithoutHTTPS() Option {
	return func(c *Client) { c.useHTTPS = false }
}

// New constructs a Client for the given credentials.
func New(creds Credentials, opts ...Option) (*Client, error) {
	if !creds.hasSharedKey() && !creds.hasToken() {
		return nil, fmt.Errorf("new client: %w", ErrCredentialConfig)
	}
	c := &Client{
		creds:       creds,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		codec:       JSONCodec{},
		xmlCodec:    XMLCodec{},
		cloudSuffix: DefaultCloudSuffix,
		apiVersion:  DefaultAPIVersion,
		useHTTPS:    true,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Credentials returns the credentials the client signs with.
func (c *Client) Credentials() Credentials { return c.creds }

// Endpoint resolves the base URL for a service. Shared-key credentials with
// DevelopmentStorage set resolve to the local emulator's per-service port
// with the well-known account path segment; otherwise the URL is derived from
// account name, service and cloud suffix. A pinned endpoint (WithEndpoint)
// wins over both.
func (c *Client) Endpoint(service ServiceType) (*url.URL, error) {
	if !service.IsValid() {
		return nil, fmt.Errorf("endpoint: unknown service %q: %w", service, ErrInvalidInput)
	}
	if c.endpoint != "" {
		u, err := url.Parse(c.endpoint)
		if err != nil {
			return nil, fmt.Errorf("endpoint: %w", err)
		}
		return u, nil
	}
	if c.creds.DevelopmentStorage {
		return &url.URL{
			Scheme: "http",
			Host:   "127.0.0.1:" + developmentPorts[service],
			Path:   "/" + developmentAccountName,
		}, nil
	}
	scheme := "https"
	if !c.useHTTPS {
		scheme = "http"
	}
	// the endpoint keeps any -secondary suffix; only signing strips it
	host := fmt.Sprintf("%s.%s.%s", c.creds.AccountName, service, c.cloudSuffix)
	return &url.URL{Scheme: scheme, Host: host}, nil
}

// Do finalizes, signs and dispatches a request against the given service and
// returns the normalized response. The request must not be reused afterwards.
//
// Finalization stamps x-ms-version and x-ms-date (when unset), materializes
// multipart/form bodies, and strips empty headers; the request is then signed
// exactly once and submitted. Network failures come back wrapped in
// ErrTransport; any HTTP status is a success at this layer — interpreting
// status ranges belongs to the caller, typically via DecodeSuccess and
// DecodeError.
func (c *Client) Do(ctx context.Context, req *Request, service ServiceType) (*RawResponse, error) {
	if req.Method() == "" || !req.Method().IsValid() {
		return nil, fmt.Errorf("do: missing or invalid method: %w", ErrInvalidState)
	}

	base, err := c.Endpoint(service)
	if err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}

	if err := req.finalizeBody(); err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}

	headers := req.Headers()
	if !headers.Has("x-ms-version") {
		headers.Set("x-ms-version", c.apiVersion)
	}
	if !headers.Has("x-ms-date") && !headers.Has("Date") {
		headers.Set("x-ms-date", c.now().UTC().Format(http.TimeFormat))
	}
	req.RemoveEmptyHeaders()

	target := c.buildTarget(base, req)
	if err := c.creds.Authorize(req, target); err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}

	var body io.Reader
	if raw, ok := req.Body(); ok {
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method()), target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}
	req.Headers().Each(func(name, value string) {
		httpReq.Header.Set(name, value)
	})
	if raw, ok := req.Body(); ok {
		httpReq.ContentLength = int64(len(raw))
	}

	c.logger.Debug("dispatching storage request",
		"method", req.Method(), "url", target.String(), "service", service)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do %s %s: %w: %w", req.Method(), target.String(), ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("do %s %s: read response: %w: %w", req.Method(), target.String(), ErrTransport, err)
	}

	return &RawResponse{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   respBody,
		URL:    target.String(),
	}, nil
}

// buildTarget joins the base endpoint with the request path and encodes the
// ordered query list, preserving insertion order and duplicates.
func (c *Client) buildTarget(base *url.URL, req *Request) *url.URL {
	u := *base
	path := req.Path()
	if path == "" {
		path = "/"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path

	if q := req.Query(); len(q) > 0 {
		var b strings.Builder
		for i, p := range q {
			if i > 0 {
				b.WriteString("&")
			}
			b.WriteString(url.QueryEscape(p.Key))
			b.WriteString("=")
			b.WriteString(url.QueryEscape(p.Value))
		}
		u.RawQuery = b.String()
	}
	return &u
}
