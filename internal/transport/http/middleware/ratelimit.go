package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"staffdesk/internal/transport/http/api"
)

// pruneThreshold is the number of tracked keys above which expired
// counters are dropped on the next hit.
const pruneThreshold = 4096

type counterKey func(r *http.Request) string

type counter struct {
	hits    int
	resetAt time.Time
}

// fixedWindow counts hits per key and rejects once a key exceeds limit
// within the current window.
type fixedWindow struct {
	name   string
	limit  int
	window time.Duration
	key    counterKey

	mu       sync.Mutex
	counters map[string]*counter
}

func newFixedWindow(name string, limit int, window time.Duration, key counterKey) *fixedWindow {
	return &fixedWindow{
		name:     name,
		limit:    limit,
		window:   window,
		key:      key,
		counters: make(map[string]*counter),
	}
}

type verdict struct {
	allowed   bool
	remaining int
	resetIn   time.Duration
}

func (fw *fixedWindow) hit(key string, now time.Time) verdict {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if len(fw.counters) > pruneThreshold {
		for k, c := range fw.counters {
			if now.After(c.resetAt) {
				delete(fw.counters, k)
			}
		}
	}

	c, ok := fw.counters[key]
	if !ok || now.After(c.resetAt) {
		c = &counter{resetAt: now.Add(fw.window)}
		fw.counters[key] = c
	}
	c.hits++
	return verdict{
		allowed:   c.hits <= fw.limit,
		remaining: max(fw.limit-c.hits, 0),
		resetIn:   c.resetAt.Sub(now),
	}
}

// admit records the request and writes the rate headers. A rejected request
// has already been answered with 429 when admit returns false.
func (fw *fixedWindow) admit(w http.ResponseWriter, r *http.Request) bool {
	if fw.limit <= 0 {
		return true
	}
	key := fw.key(r)
	if key == "" {
		key = remoteIP(r)
	}
	v := fw.hit(key, time.Now())

	resetSeconds := ceilSeconds(v.resetIn)
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(fw.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
	h.Set("X-RateLimit-Reset", strconv.Itoa(resetSeconds))
	if v.allowed {
		return true
	}

	h.Set("Retry-After", strconv.Itoa(max(resetSeconds, 1)))
	zap.L().Warn("rate limited",
		zap.String("limiter", fw.name),
		zap.String("key", key),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("limit", fw.limit),
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// RateLimit throttles every request, keyed by the signed-in account or the
// client address for anonymous callers.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	fw := newFixedWindow("global", limit, window, accountOrIP)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fw.admit(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// SensitiveMutationRateLimit leaves reads alone and throttles the writes that
// matter: credential endpoints get a quarter of baseLimit counted both per
// address and per submitted email, while wizard submits, photo uploads and
// deletions get half of it per account.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	credentials := []*fixedWindow{
		newFixedWindow("credentials-ip", max(baseLimit/4, 1), window, remoteIP),
		newFixedWindow("credentials-email", max(baseLimit/4, 1), window, submittedEmail),
	}
	writes := []*fixedWindow{
		newFixedWindow("writes", max(baseLimit/2, 1), window, accountOrIP),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var limiters []*fixedWindow
			switch sensitiveRateScope(r) {
			case sensitiveScopeAuth:
				limiters = credentials
			case sensitiveScopeActor:
				limiters = writes
			}
			for _, fw := range limiters {
				if !fw.admit(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func accountOrIP(r *http.Request) string {
	if session, ok := GetSession(r.Context()); ok {
		return "account:" + session.AccountID
	}
	return remoteIP(r)
}

func submittedEmail(r *http.Request) string {
	email := peekBodyField(r, "email")
	if email == "" {
		return remoteIP(r)
	}
	return "email:" + strings.ToLower(email)
}

// remoteIP prefers the first X-Forwarded-For hop.
func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

// peekBodyField reads field from a JSON or form body and puts the body back
// for the handler.
func peekBodyField(r *http.Request, field string) string {
	if r.Body == nil {
		return ""
	}
	contentType := strings.ToLower(r.Header.Get("Content-Type"))
	form := strings.Contains(contentType, "application/x-www-form-urlencoded")
	if !form && !strings.Contains(contentType, "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	if form {
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return ""
		}
		return strings.TrimSpace(values.Get(field))
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	value, _ := payload[field].(string)
	return strings.TrimSpace(value)
}

type sensitiveScope string

const (
	sensitiveScopeNone  sensitiveScope = ""
	sensitiveScopeAuth  sensitiveScope = "auth"
	sensitiveScopeActor sensitiveScope = "actor"
)

var credentialPaths = map[string]bool{
	"/auth/login":       true,
	"/auth/signup":      true,
	"/auth/mfa/setup":   true,
	"/auth/mfa/enable":  true,
	"/auth/mfa/disable": true,
	"/login":            true,
	"/signup":           true,
}

// sensitiveRateScope classifies a request by the API path with any /api/v1
// prefix removed, so the console and the JSON API share one rule set.
func sensitiveRateScope(r *http.Request) sensitiveScope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return sensitiveScopeNone
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	switch {
	case credentialPaths[path]:
		return sensitiveScopeAuth
	case path == "/avatars":
		return sensitiveScopeActor
	case strings.HasPrefix(path, "/wizards/"):
		if strings.HasSuffix(path, "/submit") || strings.HasSuffix(path, "/photo") {
			return sensitiveScopeActor
		}
	case strings.HasPrefix(path, "/admin/wizard/"):
		if strings.HasSuffix(path, "/photo") {
			return sensitiveScopeActor
		}
	case strings.HasPrefix(path, "/employees/"), strings.HasPrefix(path, "/admin/employees/"):
		if r.Method == http.MethodDelete || strings.HasSuffix(path, "/delete") {
			return sensitiveScopeActor
		}
	}
	return sensitiveScopeNone
}
