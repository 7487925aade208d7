package interceptor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/httpcache"
	"github.com/dmitrijs2005/farmadvisor/internal/logging"
)

// Response headers set on answers that did not come from the network.
const (
	HeaderCache    = "X-Cache"
	HeaderCacheAge = "X-Cache-Age"
	HeaderOffline  = "X-Offline"

	CacheHitOffline = "HIT-OFFLINE"
)

// DefaultTimeout bounds each outbound request.
const DefaultTimeout = 10 * time.Second

// Interceptor is an http.RoundTripper applying the offline cache policy.
type Interceptor struct {
	next      http.RoundTripper
	cache     httpcache.Repository
	ttls      map[models.CacheCategory]time.Duration
	ref       ReferenceSource
	timeout   time.Duration
	now       func() time.Time
	log       logging.Logger
	onFailure func(ctx context.Context, err error)
}

var _ http.RoundTripper = (*Interceptor)(nil)

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithTransport sets the transport used for network attempts.
func WithTransport(rt http.RoundTripper) Option { return func(i *Interceptor) { i.next = rt } }

// WithTTLs overrides freshness windows per category. Categories missing from
// m keep their defaults.
func WithTTLs(m map[models.CacheCategory]time.Duration) Option {
	return func(i *Interceptor) {
		for k, v := range m {
			i.ttls[k] = v
		}
	}
}

// WithReference sets where offline payloads get their data from.
func WithReference(src ReferenceSource) Option { return func(i *Interceptor) { i.ref = src } }

// WithTimeout bounds each outbound request.
func WithTimeout(d time.Duration) Option { return func(i *Interceptor) { i.timeout = d } }

func WithClock(now func() time.Time) Option { return func(i *Interceptor) { i.now = now } }

func WithLogger(l logging.Logger) Option { return func(i *Interceptor) { i.log = l } }

// WithFailureHook registers fn to be called when the network could not be
// reached at all (not for error statuses).
func WithFailureHook(fn func(ctx context.Context, err error)) Option {
	return func(i *Interceptor) { i.onFailure = fn }
}

// New returns an Interceptor storing responses in cache.
func New(cache httpcache.Repository, opts ...Option) *Interceptor {
	i := &Interceptor{
		next:    http.DefaultTransport,
		cache:   cache,
		ttls:    DefaultTTLs(),
		timeout: DefaultTimeout,
		now:     time.Now,
		log:     logging.Nop(),
	}
	for _, o := range opts {
		o(i)
	}
	i.log = i.log.With("module", "interceptor")
	return i
}

// TTL returns the freshness window of c.
func (i *Interceptor) TTL(c models.CacheCategory) time.Duration {
	if d, ok := i.ttls[c]; ok {
		return d
	}
	return i.ttls[models.CategoryDefault]
}

func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	class := Classify(req)
	if class == ClassWrite {
		return i.write(req)
	}
	return i.read(req, class)
}

func (i *Interceptor) read(req *http.Request, class Class) (*http.Response, error) {
	ctx := req.Context()
	cat := CategoryOf(class, req.URL.Path)
	key := CacheKey(req.Method, req.URL)

	resp, err := i.fetch(req)
	if err == nil && resp.StatusCode < http.StatusInternalServerError {
		if req.Method == http.MethodGet && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			i.store(ctx, req, key, cat, resp)
		}
		return resp, nil
	}

	if err != nil {
		i.failed(ctx, req, err)
	} else {
		i.log.Debug(ctx, "backend error, trying cache", "url", req.URL.Redacted(), "status", resp.StatusCode)
	}

	if cached := i.lookup(ctx, req, key, cat); cached != nil {
		return cached, nil
	}

	if class == ClassNavigation {
		return synthesized(req, "text/html; charset=utf-8", OfflinePage()), nil
	}
	return synthesized(req, "application/json", offlineBody(ctx, i.ref, req.URL.Path)), nil
}

func (i *Interceptor) write(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), i.timeout)

	resp, err := i.next.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		i.failed(req.Context(), req, err)
		return nil, &NetworkError{Method: req.Method, URL: req.URL.Redacted(), Err: err}
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// fetch performs the network attempt and buffers the body so it can be
// both cached and returned.
func (i *Interceptor) fetch(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), i.timeout)
	defer cancel()

	resp, err := i.next.RoundTrip(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Del("Content-Length")
	return resp, nil
}

func (i *Interceptor) store(ctx context.Context, req *http.Request, key string, cat models.CacheCategory, resp *http.Response) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	h := resp.Header.Clone()
	h.Del("Set-Cookie")

	e := models.CacheEntry{
		Key:        key,
		Method:     req.Method,
		URL:        NormalizeURL(req.URL),
		Category:   cat,
		StatusCode: resp.StatusCode,
		Header:     h,
		Body:       body,
		CapturedAt: i.now().UTC(),
	}
	if err := i.cache.Put(ctx, e); err != nil {
		i.log.Warn(ctx, "cannot cache response", "url", e.URL, "error", err)
	}
}

// lookup returns a response built from a fresh cache entry. Stale entries
// are deleted and reported as a miss.
func (i *Interceptor) lookup(ctx context.Context, req *http.Request, key string, cat models.CacheCategory) *http.Response {
	e, found, err := i.cache.Get(ctx, key)
	if err != nil {
		i.log.Warn(ctx, "cache lookup failed", "error", err)
		return nil
	}
	if !found {
		return nil
	}

	now := i.now()
	if !e.Fresh(now, i.TTL(cat)) {
		if err := i.cache.Delete(ctx, key); err != nil {
			i.log.Warn(ctx, "cannot drop stale cache entry", "error", err)
		}
		return nil
	}

	h := e.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(HeaderCache, CacheHitOffline)
	h.Set(HeaderCacheAge, strconv.FormatInt(int64(e.Age(now)/time.Second), 10))

	i.log.Debug(ctx, "served from cache", "url", e.URL, "category", cat)
	return newResponse(req, e.StatusCode, h, e.Body)
}

func (i *Interceptor) failed(ctx context.Context, req *http.Request, err error) {
	i.log.Info(ctx, "network request failed", "method", req.Method, "url", req.URL.Redacted(), "error", err)
	if i.onFailure != nil {
		i.onFailure(ctx, err)
	}
}

func synthesized(req *http.Request, contentType string, body []byte) *http.Response {
	h := http.Header{}
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "no-store")
	h.Set(HeaderOffline, "1")
	return newResponse(req, http.StatusServiceUnavailable, h, body)
}

func newResponse(req *http.Request, code int, h http.Header, body []byte) *http.Response {
	if req.Method == http.MethodHead {
		body = nil
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", code, http.StatusText(code)),
		StatusCode:    code,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
