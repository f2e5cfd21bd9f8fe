// Package api is the HTTP client wrapper every backend call goes through.
// It applies a fixed, ordered policy to each outgoing request (request id,
// bearer credential, multipart content-type adjustment) and classifies
// every response the same way regardless of endpoint: a 401 force-clears
// the session and announces the change, a transport failure normalizes to
// a connectivity error, and everything else passes through to the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dsm1918/cms-client-go/broadcast"
	"github.com/dsm1918/cms-client-go/internal/logctx"
	"github.com/dsm1918/cms-client-go/internal/tokeninfo"
	"github.com/dsm1918/cms-client-go/session"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

// DefaultTimeout bounds each request unless the caller's context already
// carries a deadline. Matches the web client's 10s budget.
const DefaultTimeout = 10 * time.Second

// requestSpec is the transient descriptor for one outgoing call. Headers
// derived from it are computed at dispatch time and never mutated after,
// which is what keeps concurrent in-flight calls safe from a session clear
// happening under them.
type requestSpec struct {
	method            string
	path              string
	body              []byte
	multipartType     string // content type with boundary when body is a multipart payload
	noSessionReaction bool

	// Filled by attachBearer for the log context.
	sessUser string
}

// RequestOption adjusts the policy for a single request.
type RequestOption func(*requestSpec)

// WithoutSessionReaction disables the forced-logout reaction to a 401 for
// this request. The login call uses it: a 401 there is a credential
// rejection, not an expired session.
func WithoutSessionReaction() RequestOption {
	return func(s *requestSpec) {
		s.noSessionReaction = true
	}
}

// middleware is one step of the request-phase chain. The chain order is
// fixed at construction and covered by tests; nothing depends on source
// ordering elsewhere.
type middleware func(ctx context.Context, req *http.Request, spec *requestSpec) error

// Client wraps an http.Client with the session-aware request/response
// policy. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	store      session.Store
	announcer  broadcast.Broadcaster
	log        *slog.Logger
	timeout    time.Duration
	onExpired  func()
	chain      []middleware

	cache    *lru.Cache[string, []byte]
	cacheSub broadcast.Subscription
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for per-request logging.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTimeout sets the per-request timeout applied when the caller's
// context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithSessionExpiredHook registers the navigation hook invoked after a
// forced logout, i.e. the "redirect to the login page" of a browser
// client. It runs after the store is cleared and the change announced.
func WithSessionExpiredHook(fn func()) Option {
	return func(c *Client) { c.onExpired = fn }
}

// WithGETCache enables an LRU cache of the given size for unauthenticated
// GET responses (the public pages). The cache is purged on every auth
// change announcement.
func WithGETCache(size int) Option {
	return func(c *Client) {
		cache, err := lru.New[string, []byte](size)
		if err != nil {
			// Only possible for size <= 0; treat as disabled.
			return
		}
		c.cache = cache
	}
}

// New creates a Client rooted at baseURL. Every response-phase reaction
// goes through store and announcer; both are required.
func New(baseURL string, store session.Store, announcer broadcast.Broadcaster, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("api: session store is required")
	}
	if announcer == nil {
		return nil, fmt.Errorf("api: broadcaster is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api: parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: base URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: http.DefaultClient,
		store:      store,
		announcer:  announcer,
		log:        slog.New(logctx.Handler{Handler: slog.NewTextHandler(io.Discard, nil)}),
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	// The defined request-phase order: identify the call, attach the
	// credential, then fix the content type. Credential attachment and
	// content-type adjustment both apply to the same request no matter
	// what the caller did.
	c.chain = []middleware{
		c.withRequestID,
		c.attachBearer,
		c.adjustContentType,
	}

	if c.cache != nil {
		sub, err := announcer.Subscribe()
		if err != nil {
			return nil, fmt.Errorf("api: subscribe for cache invalidation: %w", err)
		}
		c.cacheSub = sub
		go func() {
			for range sub.C() {
				c.cache.Purge()
			}
		}()
	}

	return c, nil
}

// Close releases the cache-invalidation subscription, if any. It does not
// close the store or the broadcaster, which the caller owns.
func (c *Client) Close() error {
	if c.cacheSub != nil {
		return c.cacheSub.Close()
	}
	return nil
}

// --- Request-phase middleware ---

func (c *Client) withRequestID(ctx context.Context, req *http.Request, _ *requestSpec) error {
	req.Header.Set("X-Request-Id", uuid.NewString())
	return nil
}

// attachBearer reads the store at dispatch time and attaches the token if
// present. An absent token does not block the request; the server decides
// whether the endpoint needs a session.
func (c *Client) attachBearer(ctx context.Context, req *http.Request, spec *requestSpec) error {
	sess, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("api: load session: %w", err)
	}
	if sess.Token == "" {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	if sess.User != nil {
		spec.sessUser = sess.User.Email
	}

	if info, err := tokeninfo.Parse(sess.Token); err == nil && info.Expired(time.Now()) {
		// The server remains the authority; this is advisory only.
		c.log.DebugContext(ctx, "bearer token past its expiry claim")
	}
	return nil
}

// adjustContentType strips the default JSON content type when the body is
// a multipart payload so the boundary-carrying header set by the form
// builder wins.
func (c *Client) adjustContentType(ctx context.Context, req *http.Request, spec *requestSpec) error {
	if spec.multipartType == "" {
		return nil
	}
	if ct, err := contenttype.GetMediaType(req); err == nil && ct.Matches(jsonMediaType) {
		req.Header.Del("Content-Type")
	}
	req.Header.Set("Content-Type", spec.multipartType)
	return nil
}

// --- Dispatch and response phase ---

func (c *Client) do(ctx context.Context, spec *requestSpec, out any) error {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.baseURL.JoinPath(spec.path)
	// JoinPath escapes nothing here because service paths are prebuilt;
	// keep any query string the caller embedded.
	if i := strings.IndexByte(spec.path, '?'); i >= 0 {
		u = c.baseURL.JoinPath(spec.path[:i])
		u.RawQuery = spec.path[i+1:]
	}

	var body io.Reader
	if spec.body != nil {
		body = bytes.NewReader(spec.body)
	}
	req, err := http.NewRequestWithContext(ctx, spec.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	// Defaults applied to every request, adjusted by the chain below.
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	for _, mw := range c.chain {
		if err := mw(ctx, req, spec); err != nil {
			return err
		}
	}

	ctx = logctx.WithRequestData(ctx, &logctx.RequestData{
		RequestID: req.Header.Get("X-Request-Id"),
		Method:    spec.method,
		Path:      spec.path,
	})
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
		UserEmail:     spec.sessUser,
		Authenticated: req.Header.Get("Authorization") != "",
	})

	cacheable := c.cache != nil && spec.method == http.MethodGet && req.Header.Get("Authorization") == ""
	if cacheable {
		if cached, ok := c.cache.Get(u.String()); ok {
			c.log.DebugContext(ctx, "served from cache")
			return decodeInto(cached, out)
		}
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "transport failure", slog.Any("error", err))
		return &ConnectivityError{err: err}
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		c.log.WarnContext(ctx, "response read failure", slog.Any("error", err))
		return &ConnectivityError{err: err}
	}

	c.log.DebugContext(ctx, "request complete",
		slog.Int("status", res.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if res.StatusCode == http.StatusUnauthorized && !spec.noSessionReaction {
		c.forceLogout(ctx)
		return &SessionExpiredError{Path: spec.path}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &ValidationError{
			Status:  res.StatusCode,
			Message: decodeErrorMessage(payload),
		}
	}

	if cacheable {
		c.cache.Add(u.String(), payload)
	}
	return decodeInto(payload, out)
}

// forceLogout clears the session, announces the change, and invokes the
// navigation hook. It runs on every 401 from any endpoint: a session can
// be invalidated server-side at any time and the client reacts uniformly.
// The store mutation is durable before the announcement fires.
func (c *Client) forceLogout(ctx context.Context) {
	// The triggering request may already be cancelled or timed out; the
	// clear still has to land.
	ctx = context.WithoutCancel(ctx)

	if err := c.store.Clear(ctx); err != nil {
		c.log.ErrorContext(ctx, "session clear after 401 failed", slog.Any("error", err))
	}
	if err := c.announcer.Announce(ctx); err != nil {
		c.log.ErrorContext(ctx, "auth change announcement failed", slog.Any("error", err))
	}
	if c.onExpired != nil {
		c.onExpired()
	}
	c.log.InfoContext(ctx, "session invalidated by server; forced logout")
}

func decodeInto(payload []byte, out any) error {
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

// --- Typed helpers ---

// Get issues a GET and decodes the JSON response into out (which may be
// nil).
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	spec := &requestSpec{method: http.MethodGet, path: path}
	for _, opt := range opts {
		opt(spec)
	}
	return c.do(ctx, spec, out)
}

// Post issues a POST with a JSON body (in may be nil) and decodes the
// response into out.
func (c *Client) Post(ctx context.Context, path string, in, out any, opts ...RequestOption) error {
	return c.send(ctx, http.MethodPost, path, in, out, opts...)
}

// Put issues a PUT with a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, in, out any, opts ...RequestOption) error {
	return c.send(ctx, http.MethodPut, path, in, out, opts...)
}

// Patch issues a PATCH with a JSON body and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, in, out any, opts ...RequestOption) error {
	return c.send(ctx, http.MethodPatch, path, in, out, opts...)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) error {
	spec := &requestSpec{method: http.MethodDelete, path: path}
	for _, opt := range opts {
		opt(spec)
	}
	return c.do(ctx, spec, nil)
}

// PostMultipart issues a POST whose body is the given multipart form. The
// default JSON content type is stripped in favor of the form's
// boundary-carrying one.
func (c *Client) PostMultipart(ctx context.Context, path string, form *Form, out any, opts ...RequestOption) error {
	body, contentType, err := form.encode()
	if err != nil {
		return err
	}
	spec := &requestSpec{
		method:        http.MethodPost,
		path:          path,
		body:          body,
		multipartType: contentType,
	}
	for _, opt := range opts {
		opt(spec)
	}
	return c.do(ctx, spec, out)
}

func (c *Client) send(ctx context.Context, method, path string, in, out any, opts ...RequestOption) error {
	spec := &requestSpec{method: method, path: path}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode request body: %w", err)
		}
		spec.body = data
	}
	for _, opt := range opts {
		opt(spec)
	}
	return c.do(ctx, spec, out)
}
