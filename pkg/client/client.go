package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/auditlog/pkg/audit"
)

const apiPrefix = audit.APIPrefix

// DefaultTimeout bounds each request made by a Client
const DefaultTimeout = 30 * time.Second

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("audit log API returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to the audit log HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// New creates a client for the service at baseURL. Requests carry trace
// context through an otelhttp transport.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// LogEvent records a new audit event
func (c *Client) LogEvent(ctx context.Context, req audit.LogRequest) (*audit.LogResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var resp audit.LogResponse
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/log", nil, bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetEvents lists events matching q
func (c *Client) GetEvents(ctx context.Context, q audit.EventQuery) ([]*audit.AuditEvent, error) {
	var events []*audit.AuditEvent
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/events", queryValues(q), nil, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []*audit.AuditEvent{}
	}
	return events, nil
}

// GetEvent fetches a single event by id
func (c *Client) GetEvent(ctx context.Context, id string) (*audit.AuditEvent, error) {
	var event audit.AuditEvent
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/events/"+url.PathEscape(id), nil, nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Export downloads events matching q rendered in format
func (c *Client) Export(ctx context.Context, q audit.EventQuery, format audit.ExportFormat) ([]byte, error) {
	values := queryValues(q)
	values.Set("format", string(format))

	var buf bytes.Buffer
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/export", values, nil, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func queryValues(q audit.EventQuery) url.Values {
	values := url.Values{}
	if q.UserID != nil {
		values.Set("userId", *q.UserID)
	}
	if q.EventType != nil {
		values.Set("eventType", string(*q.EventType))
	}
	if q.SortBy != "" {
		values.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != "" {
		values.Set("sortOrder", q.SortOrder)
	}
	return values
}

// do sends a request and decodes the response into out. A *bytes.Buffer out
// receives the raw body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if buf, ok := out.(*bytes.Buffer); ok {
		if _, err := io.Copy(buf, resp.Body); err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return apiErr
	}

	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}
