// Package fetch issues the network requests declared by fetch directives and
// writes their outcome back into the store.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/delaneyj/livedoc/expr"
	"github.com/delaneyj/livedoc/loop"
	"github.com/delaneyj/livedoc/store"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultResultKey = "data"

	// ErrorSuffix names the generic error slot: <resultKey>Error.
	ErrorSuffix = "Error"
)

var ErrNoURL = errors.New("fetch: url resolved to nothing")

// StatusError is a non-2xx response.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: %s", e.Status)
}

// Request describes one fetch directive application.
type Request struct {
	URL     string
	Into    string
	Context *expr.Context
	// Event is the name of the DOM event that triggered the request, empty
	// during render.
	Event string
	Force bool
	// Siblings holds the node's method, body, headers and error directives.
	Siblings map[string]string
}

type Option func(*Manager)

func WithClient(c *http.Client) Option {
	return func(m *Manager) {
		m.client = c
	}
}

func WithBaseURL(base string) Option {
	return func(m *Manager) {
		m.base = base
	}
}

func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

type Manager struct {
	loop  *loop.Loop
	store *store.Store
	eval  *expr.Evaluator

	client  *http.Client
	base    string
	timeout time.Duration

	inflight map[uint64]*loop.Promise
	// last URL loaded successfully per result key
	lastURL  map[string]string
	requests int

	log *zap.SugaredLogger
}

func New(l *loop.Loop, s *store.Store, e *expr.Evaluator, opts ...Option) *Manager {
	m := &Manager{
		loop:     l,
		store:    s,
		eval:     e,
		client:   &http.Client{},
		timeout:  DefaultTimeout,
		inflight: map[uint64]*loop.Promise{},
		lastURL:  map[string]string{},
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Key is the composite identity of a request: the resolved URL and the
// result key it writes.
func Key(resolvedURL, into string) uint64 {
	d := xxhash.New()
	d.WriteString(resolvedURL)
	d.WriteString("\x00")
	d.WriteString(into)
	return d.Sum64()
}

// Requests counts the network calls actually issued.
func (m *Manager) Requests() int {
	return m.requests
}

// InFlight reports whether a request for (url, into) is outstanding.
func (m *Manager) InFlight(resolvedURL, into string) bool {
	_, ok := m.inflight[Key(resolvedURL, into)]
	return ok
}

// Request resolves the URL and issues the call unless an identical one is in
// flight or the same URL was already loaded for the result key. A failed load
// is retried by the next request. The promise
// resolves with the parsed response, or rejects after the error slots have
// been written.
func (m *Manager) Request(req Request) *loop.Promise {
	into := strings.TrimSpace(req.Into)
	if into == "" {
		into = DefaultResultKey
	}
	u := m.ResolveURL(req.URL, req.Context)
	if u == "" {
		m.log.Warnw("fetch without url", "expr", req.URL, "into", into)
		return loop.Rejected(m.loop, ErrNoURL)
	}

	key := Key(u, into)
	if p, ok := m.inflight[key]; ok {
		m.log.Debugw("request already in flight", "url", u, "into", into)
		return p
	}
	if !req.Force && req.Event == "" && m.lastURL[into] == u {
		return loop.Resolved(m.loop, m.read(into))
	}

	httpReq, err := m.build(u, req)
	if err != nil {
		m.fail(into, req, err.Error(), err.Error())
		return loop.Rejected(m.loop, err)
	}

	p, resolve, reject := loop.NewPromise(m.loop)
	m.inflight[key] = p
	m.requests++
	m.log.Debugw("request", "method", httpReq.Method, "url", u, "into", into)

	timeout := m.timeout
	m.loop.Go(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		status, header, body, err := m.do(httpReq.WithContext(ctx))
		return func() {
			delete(m.inflight, key)
			if err != nil {
				delete(m.lastURL, into)
				m.fail(into, req, err.Error(), err.Error())
				reject(err)
				return
			}
			if status < 200 || status > 299 {
				delete(m.lastURL, into)
				serr := &StatusError{Code: status, Status: http.StatusText(status), Body: string(body)}
				if serr.Status == "" {
					serr.Status = fmt.Sprintf("status %d", status)
				}
				m.fail(into, req, serr.Error(), map[string]any{
					"status":     float64(status),
					"statusText": serr.Status,
					"body":       decode(header, body),
				})
				reject(serr)
				return
			}
			data := decode(header, body)
			m.lastURL[into] = u
			m.succeed(into, req, data)
			resolve(data)
		}
	})
	return p
}

func (m *Manager) do(req *http.Request) (int, http.Header, []byte, error) {
	resp, err := m.client.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("fetch %s: %w", req.URL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("reading %s: %w", req.URL, err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

// ResolveURL turns a fetch URL expression into a concrete URL: literal paths
// are taken as-is, text with {placeholders} is interpolated and anything else
// is evaluated. Trailing separators are trimmed.
func (m *Manager) ResolveURL(src string, ctx *expr.Context) string {
	src = strings.TrimSpace(src)
	var u string
	switch {
	case src == "":
		return ""
	case expr.HasInterpolation(src):
		u = m.eval.Interpolate(src, ctx)
	case literalURL(src):
		u = src
	default:
		u = expr.ToString(m.eval.Evaluate(src, ctx))
	}
	u = normalize(u)
	if u == "" || m.base == "" {
		return u
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.IsAbs() {
		return u
	}
	base, err := url.Parse(m.base)
	if err != nil {
		return u
	}
	return base.ResolveReference(parsed).String()
}

func literalURL(s string) bool {
	return strings.HasPrefix(s, "/") ||
		strings.HasPrefix(s, "./") ||
		strings.HasPrefix(s, "../") ||
		strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://")
}

func normalize(u string) string {
	u = strings.TrimSpace(u)
	for len(u) > 1 && strings.ContainsAny(u[len(u)-1:], "/?&") {
		u = u[:len(u)-1]
	}
	return u
}

var methods = map[string]bool{
	http.MethodGet: true, http.MethodHead: true, http.MethodPost: true, http.MethodPut: true,
	http.MethodPatch: true, http.MethodDelete: true, http.MethodOptions: true,
}

func (m *Manager) method(req Request) string {
	src := strings.TrimSpace(req.Siblings["method"])
	if src == "" {
		return http.MethodGet
	}
	if up := strings.ToUpper(src); methods[up] {
		return up
	}
	if up := strings.ToUpper(expr.ToString(m.eval.Evaluate(src, req.Context))); methods[up] {
		return up
	}
	return http.MethodGet
}

func (m *Manager) build(u string, req Request) (*http.Request, error) {
	method := m.method(req)

	var (
		body        io.Reader
		contentType string
	)
	if src := strings.TrimSpace(req.Siblings["body"]); src != "" && method != http.MethodGet && method != http.MethodHead {
		switch v := m.eval.Evaluate(src, req.Context).(type) {
		case nil:
		case string:
			body = strings.NewReader(v)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encoding body of %s: %w", u, err)
			}
			body = bytes.NewReader(b)
			contentType = "application/json"
		}
	}

	httpReq, err := http.NewRequest(method, u, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if src := strings.TrimSpace(req.Siblings["headers"]); src != "" {
		if hs, ok := m.eval.Evaluate(src, req.Context).(map[string]any); ok {
			for k, v := range hs {
				httpReq.Header.Set(k, expr.ToString(v))
			}
		}
	}
	return httpReq, nil
}

// decode parses JSON bodies and falls back to text.
func decode(header http.Header, body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	if strings.Contains(header.Get("Content-Type"), "json") || trimmed[0] == '{' || trimmed[0] == '[' {
		var v any
		if err := json.Unmarshal(trimmed, &v); err == nil {
			return v
		}
	}
	return string(body)
}

func (m *Manager) succeed(into string, req Request, data any) {
	if !store.Equal(m.read(into), data) {
		m.write(into, data)
	}
	m.clear(into + ErrorSuffix)
	if named := strings.TrimSpace(req.Siblings["error"]); named != "" {
		m.clear(named)
	}
}

func (m *Manager) fail(into string, req Request, msg string, details any) {
	m.log.Warnw("request failed", "into", into, "error", msg)
	m.write(into+ErrorSuffix, map[string]any{"error": msg, "details": details})
	if named := strings.TrimSpace(req.Siblings["error"]); named != "" {
		m.write(named, map[string]any{"error": msg, "details": details})
	}
}

func (m *Manager) clear(path string) {
	if m.read(path) != nil {
		m.write(path, nil)
	}
}

func (m *Manager) read(path string) any {
	if !strings.ContainsAny(path, ".[") {
		return m.store.Get(path)
	}
	return m.eval.Evaluate(path, nil)
}

func (m *Manager) write(path string, v any) {
	if !strings.ContainsAny(path, ".[") {
		m.store.Set(path, v)
		return
	}
	if err := m.eval.AssignPath(path, v, nil); err != nil {
		m.log.Warnw("writing fetch result", "path", path, "error", err)
	}
}
