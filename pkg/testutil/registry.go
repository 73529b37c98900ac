package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Paths served by FakeRegistry, one per registry endpoint.
const (
	PathCoordinates = "/coordinates"
	PathAddress     = "/address"
	PathSOAP        = "/soap"
	PathProximity   = "/proximity"
)

// FakeRegistry is an httptest server standing in for the cadastral registry.
// Each endpoint answers with whatever handler is installed for it (404 when
// none) and every request is counted.
type FakeRegistry struct {
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]int
}

// NewFakeRegistry starts a fake registry that is closed when t finishes.
func NewFakeRegistry(t *testing.T) *FakeRegistry {
	t.Helper()
	f := &FakeRegistry{
		handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *FakeRegistry) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	h, ok := f.handlers[r.URL.Path]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

// Handle installs h for path, replacing any previous handler.
func (f *FakeRegistry) Handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

// URL returns the absolute URL of path on the fake.
func (f *FakeRegistry) URL(path string) string {
	return f.server.URL + path
}

// Calls returns how many requests path has received.
func (f *FakeRegistry) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// TotalCalls returns the number of requests across all paths.
func (f *FakeRegistry) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// RespondJSON answers with status and a JSON body.
func RespondJSON(status int, body string) http.HandlerFunc {
	return respond(status, "application/json", body)
}

// RespondXML answers with status and an XML body.
func RespondXML(status int, body string) http.HandlerFunc {
	return respond(status, "text/xml; charset=utf-8", body)
}

func respond(status int, contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}
