package mediamtx

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

	"github.com/failsafe-go/failsafe-go"
)

const (
	defaultHTTPTimeout  = 30 * time.Second
	defaultItemsPerPage = 100
	maxPages            = 1000
	jsonContentType     = "application/json"
)

const (
	pathConfigListEndpoint   = "/v3/config/paths/list"
	pathListEndpoint         = "/v3/paths/list"
	pathConfigAddEndpoint    = "/v3/config/paths/add/"
	pathConfigPatchEndpoint  = "/v3/config/paths/patch/"
	pathConfigDeleteEndpoint = "/v3/config/paths/delete/"
	globalConfigEndpoint     = "/v3/config/global/get"
)

// Observer is told the outcome of every control-plane call (err is nil on success).
type Observer func(op string, err error)

// Client is a typed façade over the MediaMTX control-plane API. Every call
// carries the credential currently held by the store it was built with.
type Client struct {
	baseURL      string
	creds        *CredentialStore
	httpClient   *http.Client
	readExecutor failsafe.Executor[*http.Response]
	itemsPerPage int
	observe      Observer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetry overrides how idempotent reads are retried on transport failure.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) {
		c.readExecutor = newReadExecutor(cfg)
	}
}

// WithoutRetry disables read retries.
func WithoutRetry() Option {
	return func(c *Client) {
		c.readExecutor = nil
	}
}

// WithItemsPerPage sets the page size used when listing.
func WithItemsPerPage(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.itemsPerPage = n
		}
	}
}

// WithObserver registers a callback for call outcomes (used for metrics).
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observe = o
	}
}

// NewClient builds a client for the control plane at baseURL, authorizing every
// call with whatever creds holds at call time.
func NewClient(baseURL string, creds *CredentialStore, opts ...Option) *Client {
	if creds == nil {
		creds = NewCredentialStore()
	}
	c := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		creds:        creds,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		readExecutor: newReadExecutor(DefaultRetryConfig()),
		itemsPerPage: defaultItemsPerPage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized control-plane URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Credentials returns the store this client authorizes with.
func (c *Client) Credentials() *CredentialStore {
	return c.creds
}

// ListPathConfigs returns every declared path config, following pagination.
func (c *Client) ListPathConfigs(ctx context.Context) ([]PathConfig, error) {
	return listAll[PathConfig](ctx, c, "list path configs", pathConfigListEndpoint)
}

// ListLivePaths returns the runtime state of every path, following pagination.
func (c *Client) ListLivePaths(ctx context.Context) ([]LivePath, error) {
	return listAll[LivePath](ctx, c, "list live paths", pathListEndpoint)
}

// CreatePathConfig adds a new path config. Optional fields left at their
// defaults are not sent.
func (c *Client) CreatePathConfig(ctx context.Context, cfg PathConfig) error {
	const op = "create path config"
	if err := ValidateCreate(cfg); err != nil {
		c.report(op, err)
		return err
	}
	_, err := c.call(ctx, op, http.MethodPost, pathConfigAddEndpoint+escapeName(cfg.Name), CreatePayload(cfg), c.creds.AuthorizationHeaderValue())
	return err
}

// UpdatePathConfig patches the named path config; nil patch fields are left unchanged.
func (c *Client) UpdatePathConfig(ctx context.Context, name string, patch PathConfigPatch) error {
	_, err := c.call(ctx, "update path config", http.MethodPatch, pathConfigPatchEndpoint+escapeName(name), PatchPayload(patch), c.creds.AuthorizationHeaderValue())
	return err
}

// DeletePathConfig removes the named path config.
func (c *Client) DeletePathConfig(ctx context.Context, name string) error {
	_, err := c.call(ctx, "delete path config", http.MethodDelete, pathConfigDeleteEndpoint+escapeName(name), nil, c.creds.AuthorizationHeaderValue())
	return err
}

// Probe checks cred against a lightweight endpoint without touching the store.
// It is used to validate a login before the credential is kept.
func (c *Client) Probe(ctx context.Context, cred Credential) error {
	_, err := c.call(ctx, "probe credentials", http.MethodGet, globalConfigEndpoint, nil, cred.HeaderValue())
	return err
}

// result is a normalized 2xx answer: JSON when the content type says so, raw text otherwise.
type result struct {
	structured bool
	body       []byte
}

func listAll[T any](ctx context.Context, c *Client, op, endpoint string) ([]T, error) {
	items, err := fetchPages[T](ctx, c, op, endpoint)
	c.report(op, err)
	return items, err
}

func fetchPages[T any](ctx context.Context, c *Client, op, endpoint string) ([]T, error) {
	items := make([]T, 0)
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("itemsPerPage", strconv.Itoa(c.itemsPerPage))

		res, err := c.do(ctx, op, http.MethodGet, endpoint+"?"+q.Encode(), nil, c.creds.AuthorizationHeaderValue())
		if err != nil {
			return nil, err
		}
		pageItems, pageCount, err := decodeList[T](res)
		if err != nil {
			return nil, &Error{Kind: BadResponse, Op: op, StatusCode: http.StatusOK, Message: op + ": " + err.Error(), Err: err}
		}
		items = append(items, pageItems...)
		if page+1 >= pageCount {
			break
		}
	}
	return items, nil
}

// decodeList accepts the {items, pageCount} envelope and, leniently, a bare array.
func decodeList[T any](res *result) ([]T, int, error) {
	if res == nil {
		return nil, 0, errors.New("empty response")
	}
	if !res.structured {
		return nil, 0, errors.New("unexpected non-JSON response")
	}
	trimmed := bytes.TrimSpace(res.body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, 0, fmt.Errorf("invalid JSON in response: %w", err)
		}
		return items, 1, nil
	}
	var env listEnvelope[T]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, 0, fmt.Errorf("invalid JSON in response: %w", err)
	}
	if env.Items == nil {
		env.Items = []T{}
	}
	return env.Items, env.PageCount, nil
}

// call performs one request and normalizes the answer. A nil result with a nil
// error means success with no body (204 or empty).
func (c *Client) call(ctx context.Context, op, method, path string, payload any, auth string) (*result, error) {
	res, err := c.do(ctx, op, method, path, payload, auth)
	c.report(op, err)
	return res, err
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any, auth string) (*result, error) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Kind: InvalidConfig, Op: op, Message: fmt.Sprintf("encode request: %v", err), Err: err}
		}
		body = b
	}
	target := c.baseURL + path

	build := func() (*http.Request, error) {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, rd)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", jsonContentType)
		// Sent even when empty so the server answers with a well-defined 401.
		req.Header.Set("Authorization", auth)
		return req, nil
	}

	resp, raw, err := c.send(ctx, method, build)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, &Error{Kind: Unreachable, Op: op, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(op, resp.StatusCode, string(raw))
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	structured := strings.Contains(resp.Header.Get("Content-Type"), jsonContentType)
	if structured && !json.Valid(raw) {
		return nil, &Error{Kind: BadResponse, Op: op, StatusCode: resp.StatusCode, Message: "Invalid JSON in response"}
	}
	return &result{structured: structured, body: raw}, nil
}

// send executes the request, buffering the body so retried attempts never leak
// connections. Only GETs go through the retry executor.
func (c *Client) send(ctx context.Context, method string, build func() (*http.Request, error)) (*http.Response, []byte, error) {
	var raw []byte
	attempt := func() (*http.Response, error) {
		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		raw = b
		return resp, nil
	}

	var (
		resp *http.Response
		err  error
	)
	if method == http.MethodGet && c.readExecutor != nil {
		resp, err = c.readExecutor.WithContext(ctx).Get(attempt)
	} else {
		resp, err = attempt()
	}
	if err != nil {
		return nil, nil, err
	}
	if resp == nil {
		return nil, nil, errors.New("no response")
	}
	return resp, raw, nil
}

func (c *Client) report(op string, err error) {
	if c.observe != nil {
		c.observe(op, err)
	}
}

// escapeName escapes each segment of a path name; MediaMTX names may contain '/'.
func escapeName(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
