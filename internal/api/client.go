// Package api is the HTTP client for the MediSupply gateway. Every failure
// leaving this package is an *Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/sirupsen/logrus"
)

// Identity supplies the bearer token and user for outgoing requests.
// *auth.Session satisfies it.
type Identity interface {
	Token() string
	User() *auth.User
}

// Error is the single failure type returned by the client. Status is zero for
// transport failures (no HTTP response).
type Error struct {
	Op        string
	Status    int
	Code      string
	Message   string
	Available *int
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
	case e.Code != "":
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Code)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransport reports whether err is a failure without an HTTP response.
func IsTransport(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == 0
}

// IsStatus reports whether err carries one of the given HTTP statuses.
func IsStatus(err error, statuses ...int) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, s := range statuses {
		if apiErr.Status == s {
			return true
		}
	}
	return false
}

// IsCode reports whether err carries the given gateway error code.
func IsCode(err error, code string) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type headerSet int

const (
	headersNone headerSet = iota
	headersOrders
	headersVisits
)

type Client struct {
	baseURL  string
	http     *http.Client
	identity Identity
	log      logrus.FieldLogger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests use httptest).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

func New(baseURL string, timeout time.Duration, identity Identity, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		identity: identity,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithIdentity returns a copy of the client that signs requests as id.
func (c *Client) WithIdentity(id Identity) *Client {
	cp := *c
	cp.identity = id
	return &cp
}

// BaseURL is the gateway root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Auth() *AuthAPI { return &AuthAPI{c: c} }

func (c *Client) Products() *ProductsAPI { return &ProductsAPI{c: c} }

func (c *Client) Customers() *CustomersAPI { return &CustomersAPI{c: c} }

func (c *Client) Orders() *OrdersAPI { return &OrdersAPI{c: c} }

func (c *Client) Deliveries() *DeliveriesAPI { return &DeliveriesAPI{c: c} }

func (c *Client) Routes() *RoutesAPI { return &RoutesAPI{c: c} }

func (c *Client) Visits() *VisitsAPI { return &VisitsAPI{c: c} }

type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	headers headerSet
	body    any
	token   string

	// raw overrides body with a pre-encoded payload (multipart uploads).
	raw         io.Reader
	contentType string
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	contentType := req.contentType
	switch {
	case req.raw != nil:
		body = req.raw
	case req.body != nil:
		data, err := json.Marshal(req.body)
		if err != nil {
			return &Error{Op: req.op, Err: fmt.Errorf("encode body: %w", err)}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return &Error{Op: req.op, Err: err}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	c.setIdentity(httpReq.Header, req.headers)
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	entry := c.log.WithFields(logrus.Fields{"method": req.method, "path": req.path})
	entry.WithFields(redactedHeaders(httpReq.Header)).Debug("gateway request")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		entry.WithError(err).Debug("gateway transport failure")
		return &Error{Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: req.op, Err: fmt.Errorf("read body: %w", err)}
	}
	entry.WithField("status", resp.StatusCode).Debug("gateway response")

	if resp.StatusCode >= 300 {
		return decodeError(req.op, resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: req.op, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

func decodeError(op string, status int, data []byte) *Error {
	apiErr := &Error{Op: op, Status: status}
	var body model.ErrorBody
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Code = body.Error
		apiErr.Message = body.Message
		apiErr.Available = body.Available
	}
	// Some services answer with {"detail": "..."} instead.
	if apiErr.Message == "" {
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &detail) == nil && detail.Detail != "" {
			apiErr.Message = detail.Detail
		}
	}
	if apiErr.Message == "" && apiErr.Code != "" && !isCode(apiErr.Code) {
		apiErr.Message = apiErr.Code
	}
	return apiErr
}

// isCode distinguishes machine codes from free-text errors in the error field.
func isCode(s string) bool {
	return s == strings.ToUpper(s) && !strings.Contains(s, " ")
}

func (c *Client) setIdentity(h http.Header, set headerSet) {
	if c.identity == nil {
		return
	}
	if token := c.identity.Token(); token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	user := c.identity.User()
	if user == nil {
		return
	}

	switch set {
	case headersOrders:
		h.Set("usuario-id", user.ID)
		h.Set("rol-usuario", headerRole(*user))
		if user.NIT != "" {
			h.Set("nit-usuario", user.NIT)
		}
		if user.HasRole(enum.RoleInstitutional) && user.ClienteID > 0 {
			h.Set("cliente-id", strconv.FormatInt(user.ClienteID, 10))
		}
	case headersVisits:
		h.Set("X-User-Id", user.ID)
		h.Set("X-User-Role", headerRole(*user))
	}
}

// headerRole collapses the user's roles to the single role the services
// authorize on.
func headerRole(u auth.User) string {
	switch {
	case u.HasRole(enum.RoleAccountManager):
		return enum.RoleAccountManager
	case u.HasRole(enum.RoleInstitutional):
		return enum.RoleInstitutional
	}
	return enum.RoleAdmin
}

func redactedHeaders(h http.Header) logrus.Fields {
	f := logrus.Fields{}
	for _, k := range []string{"usuario-id", "rol-usuario", "nit-usuario", "cliente-id", "X-User-Id", "X-User-Role"} {
		if v := h.Get(k); v != "" {
			f[strings.ToLower(k)] = v
		}
	}
	if h.Get("Authorization") != "" {
		f["authorization"] = "Bearer [redacted]"
	}
	return f
}
