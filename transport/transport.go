package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-storefront-client/credentials"
	apperrors "github.com/jrsteele09/go-storefront-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	contentTypeJSON = "application/json"
	requestIDHeader = "X-Request-ID"
	defaultTimeout  = 15 * time.Second
	maxBodyBytes    = 4 << 20
)

// Request describes one call to the storefront API.
type Request struct {
	Method        string
	Path          string // appended verbatim to the base URL, e.g. "/api/cart"
	Body          any    // JSON encoded when non-nil
	Authenticated bool   // resolve and attach a bearer token
	Token         string // explicit token, takes precedence over the store
}

// Client executes JSON requests against the storefront API and maps every
// failure onto the error taxonomy in internal/errors.
type Client struct {
	baseURL    string
	store      credentials.Store
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds every request, including reading the body. The
// client is copied so a shared *http.Client is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// New creates a Client for baseURL. The store is read for tokens and is
// only written when a 401 forces the credential to be discarded.
func New(baseURL string, store credentials.Store, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[transport.New] base URL is required")
	}
	if store == nil {
		return nil, errors.New("[transport.New] credential store is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      store,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured API origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and returns the decoded JSON body of a 2xx response.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	url := c.baseURL + req.Path

	var token string
	if req.Authenticated {
		token = c.resolveToken(req.Token)
		if token == "" {
			log.Debug().Str("method", method).Str("path", req.Path).Msg("no credential for authenticated request")
			return nil, apperrors.ErrAuthRequired
		}
	} else {
		token = req.Token
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set(requestIDHeader, uuid.New().String())
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	}

	logger := log.With().
		Str("method", method).
		Str("path", req.Path).
		Str("request_id", httpReq.Header.Get(requestIDHeader)).
		Logger()
	logger.Debug().Bool("authenticated", token != "").Msg("api request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn().Err(err).Msg("api unreachable")
		return nil, apperrors.Wrapf(apperrors.ErrNetworkUnavailable, "%s %s: %v", method, req.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.Wrapf(apperrors.ErrNetworkUnavailable, "read %s %s: %v", method, req.Path, err)
	}

	data, err := decodeBody(raw, resp.StatusCode)
	if err != nil {
		logger.Error().Err(err).Int("status", resp.StatusCode).Msg("unusable api response")
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && req.Authenticated {
			c.discardRejected(token, logger)
			return nil, apperrors.Wrapf(apperrors.ErrSessionExpired, "%s %s", method, req.Path)
		}
		httpErr := &apperrors.HTTPError{Status: resp.StatusCode, Message: errorMessage(data, resp.StatusCode)}
		logger.Debug().Int("status", resp.StatusCode).Str("message", httpErr.Message).Msg("api error response")
		return nil, httpErr
	}

	return data, nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, authenticated bool) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Authenticated: authenticated})
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, authenticated bool) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Authenticated: authenticated})
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, authenticated bool) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Authenticated: authenticated})
}

// Health checks that the API answers /health with JSON.
func (c *Client) Health(ctx context.Context) (*Envelope, error) {
	raw, err := c.Get(ctx, PathHealth, false)
	if err != nil {
		return nil, err
	}
	return DecodeEnvelope(raw)
}

func (c *Client) resolveToken(explicit string) string {
	if explicit != "" {
		return explicit
	}
	token, key, ok := credentials.LookupToken(c.store)
	if !ok {
		return ""
	}
	if key != credentials.KeyAuthToken {
		log.Debug().Str("key", string(key)).Msg("using token from legacy key")
	}
	return token
}

// discardRejected purges the store only while it still holds the rejected
// token. A 401 for a credential that was already replaced leaves the
// newer one alone.
func (c *Client) discardRejected(token string, logger zerolog.Logger) {
	stored, _, ok := credentials.LookupToken(c.store)
	if !ok || stored != token {
		logger.Debug().Msg("rejected credential no longer stored")
		return
	}
	logger.Info().Msg("credential rejected, clearing stored session")
	credentials.Purge(c.store)
}

// decodeBody rejects HTML pages and invalid JSON. An empty body decodes as {}.
func decodeBody(raw []byte, status int) (json.RawMessage, error) {
	text := bytes.TrimSpace(raw)
	if isHTML(text) {
		return nil, apperrors.Wrapf(apperrors.ErrUnexpectedHTML, "status %d", status)
	}
	if len(text) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(text) {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidResponseBody, "status %d", status)
	}
	return json.RawMessage(text), nil
}

func isHTML(text []byte) bool {
	head := text
	if len(head) > 16 {
		head = head[:16]
	}
	lower := strings.ToLower(string(head))
	return strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html")
}

func errorMessage(data json.RawMessage, status int) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return http.StatusText(status)
}

// Doer is the part of Client the session and collection layers depend on.
type Doer interface {
	Do(ctx context.Context, req Request) (json.RawMessage, error)
}

var _ Doer = (*Client)(nil)
