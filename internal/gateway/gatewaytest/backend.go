// Package gatewaytest provides an in-process storefront backend for tests.
package gatewaytest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Request is a request the backend received.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

// Backend serves the storefront API routes under /api. Routes answer 404
// until a test stubs them with Reply or Handle.
type Backend struct {
	URL string

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []Request
}

// Routes served by the backend.
var routes = []struct{ method, path string }{
	{http.MethodGet, "/cart"},
	{http.MethodPost, "/cart/add"},
	{http.MethodPost, "/cart/add-gift"},
	{http.MethodPut, "/cart/update"},
	{http.MethodDelete, "/cart/remove"},
	{http.MethodDelete, "/cart/clear"},
	{http.MethodGet, "/cart/summary"},
	{http.MethodPost, "/cart/sync"},
	{http.MethodGet, "/wholesaler/cart"},
	{http.MethodPost, "/wholesaler/cart/add"},
	{http.MethodPost, "/wholesaler/cart/add-gift"},
	{http.MethodPut, "/wholesaler/cart/update"},
	{http.MethodDelete, "/wholesaler/cart/remove"},
	{http.MethodDelete, "/wholesaler/cart/clear"},
	{http.MethodGet, "/wholesaler/cart/summary"},
	{http.MethodPost, "/wholesaler/cart/sync"},
	{http.MethodPost, "/wholesaler/cart/discount"},
	{http.MethodPost, "/wholesaler/cart/notes"},
	{http.MethodPost, "/checkout/calculate-shipping"},
	{http.MethodPost, "/checkout/create-order"},
	{http.MethodPost, "/payments/wompi/create-session"},
	{http.MethodPost, "/payments/wompi/generate-signature"},
	{http.MethodPost, "/payments/verify"},
	{http.MethodPost, "/payments/confirm-order"},
	{http.MethodGet, "/payments/methods"},
}

// New starts a backend that is shut down when the test ends. URL already
// includes the /api prefix.
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{handlers: make(map[string]http.HandlerFunc)}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(b.record)
		for _, rt := range routes {
			key := rt.method + " " + rt.path
			r.MethodFunc(rt.method, rt.path, func(w http.ResponseWriter, req *http.Request) {
				b.mu.Lock()
				h := b.handlers[key]
				b.mu.Unlock()
				if h == nil {
					writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "route not stubbed"})
					return
				}
				h(w, req)
			})
		}
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	b.URL = srv.URL + "/api"
	return b
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(raw))

		var body map[string]any
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path[len("/api"):],
			Header: r.Header.Clone(),
			Body:   body,
		})
		b.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// Reply stubs method+path to answer with status and body. A string or
// []byte body is written as is; anything else is JSON-encoded.
func (b *Backend) Reply(method, path string, status int, body any) {
	b.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		switch v := body.(type) {
		case string:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(v))
		case []byte:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write(v)
		default:
			writeJSON(w, status, v)
		}
	})
}

// Handle stubs method+path with h.
func (b *Backend) Handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[method+" "+path] = h
}

// Calls returns how many requests reached method+path.
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// TotalCalls returns how many requests reached the backend.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// Last returns the most recent request to method+path.
func (b *Backend) Last(method, path string) (Request, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		if r := b.requests[i]; r.Method == method && r.Path == path {
			return r, true
		}
	}
	return Request{}, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
