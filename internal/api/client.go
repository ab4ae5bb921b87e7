// Package api is the HTTP client for the admin REST API.
//
// Every call is bounded by the client timeout, carries an X-Request-ID and,
// when a token is set, a bearer Authorization header. Failures are always
// *errors.ConsoleError values classified by HTTP status; a request that
// never got a response is a network failure with status 0.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/felixgeelhaar/adminconsole/internal/errors"
	"github.com/felixgeelhaar/adminconsole/internal/log"
	"github.com/felixgeelhaar/adminconsole/internal/metrics"
	"github.com/felixgeelhaar/adminconsole/internal/version"
)

// DefaultTimeout bounds every call when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 8 << 20

// Options configures a Client.
type Options struct {
	BaseURL    string
	SystemCode string
	ClientCode string
	Timeout    time.Duration

	// UserAgent defaults to version.UserAgent().
	UserAgent string

	// HTTPClient overrides the instrumented default transport.
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	Logger     *log.Logger
}

// Client is the admin API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	systemCode string
	clientCode string
	timeout    time.Duration
	userAgent  string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *log.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a new admin API client.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		systemCode: opts.SystemCode,
		clientCode: opts.ClientCode,
		timeout:    timeout,
		userAgent:  userAgent,
		httpClient: httpClient,
		metrics:    opts.Metrics,
		logger:     log.OrDefault(opts.Logger).WithComponent("api"),
	}
}

// SetToken sets the bearer token sent with every request. "" removes it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request is one API call.
type Request struct {
	Method string
	Path   string

	// JSON is marshaled as the body when Body is nil.
	JSON any
	// Body is sent verbatim with ContentType.
	Body        io.Reader
	ContentType string

	// Header is applied after the client's defaults and may override them.
	Header http.Header

	// Endpoint labels metrics; defaults to Path.
	Endpoint string
}

// Envelope is the {success, message, data, errors} wrapper the API puts
// around every payload.
type Envelope struct {
	Success     *bool           `json:"success,omitempty"`
	Message     string          `json:"message,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Errors      map[string]any  `json:"errors,omitempty"`
	Requires2FA bool            `json:"requires_2fa,omitempty"`
}

// Succeeded reports whether the envelope does not explicitly signal failure.
func (e Envelope) Succeeded() bool {
	return e.Success == nil || *e.Success
}

// Response is a received API response.
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	Envelope  Envelope
	RequestID string
}

// Do performs req. For a non-2xx status it returns both the response and
// a classified error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := req.Body
	contentType := req.ContentType
	if body == nil && req.JSON != nil {
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for key, values := range req.Header {
		httpReq.Header[http.CanonicalHeaderKey(key)] = values
	}

	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = req.Path
	}
	logger := c.logger.With("request_id", requestID, "method", req.Method, "endpoint", endpoint)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordAPIRequest(endpoint, 0, time.Since(start))
		logger.WithError(err).DebugContext(ctx, "request failed before a response")
		return nil, transportError(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	c.metrics.RecordAPIRequest(endpoint, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, transportError(err)
	}
	logger.DebugContext(ctx, "request completed", "status", httpResp.StatusCode, "duration", time.Since(start))

	resp := &Response{
		Status:    httpResp.StatusCode,
		Header:    httpResp.Header,
		Body:      raw,
		RequestID: requestID,
	}
	envErr := json.Unmarshal(raw, &resp.Envelope)

	if resp.Status < 200 || resp.Status >= 300 {
		return resp, errors.FromStatus(resp.Status, resp.Envelope.Message, errors.NormalizeFieldMessages(resp.Envelope.Errors))
	}
	if envErr != nil && len(bytes.TrimSpace(raw)) > 0 {
		logger.WithError(envErr).DebugContext(ctx, "response body is not an envelope")
	}
	return resp, nil
}

// transportError maps a failure with no HTTP response to a network error.
func transportError(err error) error {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.NewTimeoutError(err)
	}
	return errors.NewNetworkError(err)
}

// decodeData unmarshals the envelope's data member into target.
func decodeData(resp *Response, target any) error {
	if len(resp.Envelope.Data) == 0 || bytes.Equal(resp.Envelope.Data, []byte("null")) {
		return errors.NewUnexpectedResponseError(resp.Status, fmt.Errorf("response has no data"))
	}
	if err := json.Unmarshal(resp.Envelope.Data, target); err != nil {
		return errors.NewUnexpectedResponseError(resp.Status, err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: method, Path: path, JSON: body})
}
