package cursor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mvp-joe/neobridge/internal/protocol"
	"github.com/mvp-joe/neobridge/internal/schema"
)

// DefaultBaseURL is the API root of a locally running server.
const DefaultBaseURL = "http://localhost:5000/api"

// Error is returned for every failed client call: transport failures,
// non-2xx responses and error envelopes.
type Error struct {
	// Status is the HTTP status, or 0 when no response was received.
	Status  int
	Code    protocol.Code
	Message string
	// Errors holds field validation messages, when the server sent them.
	Errors []string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case len(e.Errors) > 0:
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Errors, "; "))
	case e.Code != "":
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Client talks to the HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	token   string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client. The client is used
// as is unless WithTimeout is also given, in which case a copy is made.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a client for the API rooted at baseURL, e.g.
// "http://localhost:5000/api". An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 && c.http.Timeout != c.timeout {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// SetAuthToken sends token as a bearer token on every subsequent request.
func (c *Client) SetAuthToken(token string) *Client {
	c.token = token
	return c
}

// ExecuteQuery runs a standalone query.
func (c *Client) ExecuteQuery(ctx context.Context, query string, params map[string]any) (*Page, error) {
	var page Page
	err := c.do(ctx, http.MethodPost, "/query", protocol.QueryRequest{Query: query, Params: params}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// CursorQuery runs one page of a query. It implements Pager.
func (c *Client) CursorQuery(ctx context.Context, query string, params map[string]any, opts protocol.CursorOptions) (*Page, error) {
	var page Page
	req := protocol.QueryRequest{Query: query, Params: params, CursorOptions: &opts}
	if err := c.do(ctx, http.MethodPost, "/cursor/query", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Cursor creates a cursor over query. A pageSize of 0 uses DefaultPageSize.
func (c *Client) Cursor(query string, params map[string]any, pageSize int, opts ...CursorOption) *Cursor {
	return New(c, query, params, pageSize, opts...)
}

// Info fetches the introspection envelope.
func (c *Client) Info(ctx context.Context) (map[string]any, error) {
	var info map[string]any
	if err := c.do(ctx, http.MethodGet, "/info", nil, &info); err != nil {
		return nil, err
	}
	return info, nil
}

// Schema fetches the inferred schema.
func (c *Client) Schema(ctx context.Context) (*schema.Descriptor, error) {
	var resp struct {
		Schema *schema.Descriptor `json:"schema"`
	}
	if err := c.do(ctx, http.MethodGet, "/schema", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Schema, nil
}

// GetNode fetches the node with label and id property.
func (c *Client) GetNode(ctx context.Context, label, id string) (Row, error) {
	var node Row
	if err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(label)+"/"+url.PathEscape(id), nil, &node); err != nil {
		return nil, err
	}
	return node, nil
}

// CreateNode creates a node with label and properties.
func (c *Client) CreateNode(ctx context.Context, label string, properties map[string]any) (Row, error) {
	var node Row
	if err := c.do(ctx, http.MethodPost, "/"+url.PathEscape(label), properties, &node); err != nil {
		return nil, err
	}
	return node, nil
}

// UpdateNode merges properties into the node with label and id.
func (c *Client) UpdateNode(ctx context.Context, label, id string, properties map[string]any) (Row, error) {
	var node Row
	if err := c.do(ctx, http.MethodPut, "/"+url.PathEscape(label)+"/"+url.PathEscape(id), properties, &node); err != nil {
		return nil, err
	}
	return node, nil
}

// DeleteNode deletes the node with label and id, with its relationships.
func (c *Client) DeleteNode(ctx context.Context, label, id string) error {
	return c.do(ctx, http.MethodDelete, "/"+url.PathEscape(label)+"/"+url.PathEscape(id), nil, nil)
}

// RelationshipRequest describes a relationship to create between two
// existing nodes, each identified by label and id property.
type RelationshipRequest struct {
	FromLabel  string         `json:"fromLabel"`
	FromID     string         `json:"fromId"`
	ToLabel    string         `json:"toLabel"`
	ToID       string         `json:"toId"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// CreateRelationship creates a relationship.
func (c *Client) CreateRelationship(ctx context.Context, req RelationshipRequest) (Row, error) {
	var out Row
	if err := c.do(ctx, http.MethodPost, "/relationship", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BeginTransaction opens a server-side transaction and returns its handle.
func (c *Client) BeginTransaction(ctx context.Context) (string, error) {
	var env protocol.TransactionEnvelope
	if err := c.do(ctx, http.MethodPost, "/transactions", nil, &env); err != nil {
		return "", err
	}
	return env.TransactionID, nil
}

// QueryInTransaction runs a query inside the transaction id.
func (c *Client) QueryInTransaction(ctx context.Context, id, query string, params map[string]any) (*Page, error) {
	var page Page
	path := "/transactions/" + url.PathEscape(id) + "/query"
	if err := c.do(ctx, http.MethodPost, path, protocol.QueryRequest{Query: query, Params: params}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CommitTransaction commits the transaction id.
func (c *Client) CommitTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/transactions/"+url.PathEscape(id)+"/commit", nil, nil)
}

// RollbackTransaction rolls back the transaction id.
func (c *Client) RollbackTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/transactions/"+url.PathEscape(id)+"/rollback", nil, nil)
}

// errorPayload covers every failure body the API produces: an error object,
// a bare error string, or a list of validation messages.
type errorPayload struct {
	Error  json.RawMessage `json:"error"`
	Errors []string        `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Message: "failed to encode request", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Message: "failed to build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Message: fmt.Sprintf("%s %s failed", method, path), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Status: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if failure := decodeFailure(resp.StatusCode, data); failure != nil {
		return failure
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Status: resp.StatusCode, Message: "failed to decode response", Err: err}
	}
	return nil
}

// decodeFailure returns an *Error for non-2xx responses and for 2xx
// responses carrying an error envelope.
func decodeFailure(status int, data []byte) *Error {
	ok := status >= 200 && status < 300

	var payload errorPayload
	if len(bytes.TrimSpace(data)) > 0 && json.Unmarshal(data, &payload) == nil {
		if len(payload.Errors) > 0 {
			return &Error{Status: status, Code: protocol.CodeValidation, Message: "validation failed", Errors: payload.Errors}
		}
		if len(payload.Error) > 0 && string(payload.Error) != "null" {
			e := &Error{Status: status}
			var body protocol.ErrorBody
			var text string
			switch {
			case json.Unmarshal(payload.Error, &body) == nil:
				e.Code, e.Message = body.Code, body.Message
			case json.Unmarshal(payload.Error, &text) == nil:
				e.Message = text
			default:
				e.Message = string(payload.Error)
			}
			return e
		}
	}

	if ok {
		return nil
	}
	msg := http.StatusText(status)
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	return &Error{Status: status, Message: msg}
}
