package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"budgetbuddy/internal/logging"
	"budgetbuddy/internal/metrics"
	"budgetbuddy/internal/session"
)

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 1 << 20

// Client talks to the budgeting backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	session    session.Store
	httpClient *http.Client
	metrics    *metrics.API
	logger     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMetrics(m *metrics.API) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(baseURL string, store session.Store, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: store,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logging.New("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.NewAPI(nil)
	}
	return c
}

// Session exposes the store the client reads tokens from.
func (c *Client) Session() session.Store {
	return c.session
}

// call describes one request. Public calls never carry a token and a 401 on
// them does not touch the session.
type call struct {
	op     string
	method string
	path   string
	body   interface{}
	public bool
}

// do sends the call and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, cl call, out interface{}) error {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindMalformed, Op: cl.op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// send performs the request and returns the response only for 2xx statuses;
// the caller closes the body.
func (c *Client) send(ctx context.Context, cl call) (*http.Response, error) {
	var reader io.Reader
	if cl.body != nil {
		jsonBody, err := json.Marshal(cl.body)
		if err != nil {
			return nil, &Error{Kind: KindUnexpected, Op: cl.op, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reader)
	if err != nil {
		return nil, &Error{Kind: KindUnexpected, Op: cl.op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var token string
	if !cl.public {
		tokens, err := c.session.Get()
		switch {
		case err == nil:
			token = tokens.Access
			req.Header.Set("Authorization", "Bearer "+token)
		case !errors.Is(err, session.ErrNoSession):
			return nil, &Error{Kind: KindUnexpected, Op: cl.op, Err: err}
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.Duration.WithLabelValues(cl.op, cl.method).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.Requests.WithLabelValues(cl.op, cl.method, metrics.Outcome(0)).Inc()
		if ctx.Err() != nil {
			return nil, &Error{Kind: KindCanceled, Op: cl.op, Err: ctx.Err()}
		}
		c.logger.Warn().Err(err).Str(logging.ENDPOINT, cl.op).Msg("backend unreachable")
		return nil, &Error{Kind: KindNetwork, Op: cl.op, Err: err}
	}
	c.metrics.Requests.WithLabelValues(cl.op, cl.method, metrics.Outcome(resp.StatusCode)).Inc()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := c.classify(cl.op, resp.StatusCode, body)

	if apiErr.Kind == KindUnauthorized && token != "" {
		if err := c.session.Invalidate(token); err != nil {
			c.logger.Error().Err(err).Msg("failed to clear session after 401")
		}
	}
	c.logger.Debug().
		Str(logging.ENDPOINT, cl.op).
		Int(logging.STATUS, resp.StatusCode).
		Str("kind", apiErr.Kind.String()).
		Msg("backend call failed")
	return nil, apiErr
}

func (c *Client) classify(op string, status int, body []byte) *Error {
	apiErr := &Error{Op: op, StatusCode: status}
	if status == http.StatusUnauthorized {
		apiErr.Kind = KindUnauthorized
		if detail, _, err := parseErrorBody(body); err == nil {
			apiErr.Detail = detail
		}
		return apiErr
	}
	if len(bytes.TrimSpace(body)) == 0 {
		apiErr.Kind = KindServer
		apiErr.Detail = http.StatusText(status)
		return apiErr
	}

	detail, fields, err := parseErrorBody(body)
	switch {
	case err != nil:
		apiErr.Kind = KindMalformed
		apiErr.Body = body
		apiErr.Err = err
	case detail != "":
		apiErr.Kind = KindServer
		apiErr.Detail = detail
	default:
		apiErr.Kind = KindValidation
		apiErr.Fields = fields
	}
	return apiErr
}
