// Package testutil provides testing utilities for the recipe cache.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock upstream endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockUpstream is a configurable mock recipe API server for testing.
type MockUpstream struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount int
	PathCounts   map[string]int
	LastQuery    url.Values
}

// NewMockUpstream creates a new mock upstream server.
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastQuery = r.URL.Query()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.LastQuery = nil
}

// Requests returns the total request count.
func (m *MockUpstream) Requests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// RequestsFor returns the request count for one path.
func (m *MockUpstream) RequestsFor(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// SetHandler sets a custom handler for a specific path.
func (m *MockUpstream) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a specific path.
func (m *MockUpstream) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.Header().Set("Content-Type", "application/json")
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		fmt.Fprint(w, resp.Body)
	})
}

// FailAll makes every path return the given status code.
func (m *MockUpstream) FailAll(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = make(map[string]func(w http.ResponseWriter, r *http.Request))
	m.handlers["*"] = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"failure injected"}`, statusCode)
	}
}

// defaultHandler serves minimal valid payloads for the four recipe
// endpoints.
func (m *MockUpstream) defaultHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	catchAll, hasCatchAll := m.handlers["*"]
	m.mu.RUnlock()
	if hasCatchAll {
		catchAll(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/recipes/complexSearch":
		fmt.Fprint(w, `{"results":[{"id":1,"title":"Mock Pasta","summary":"<b>Tasty</b> pasta"}],"totalResults":1}`)
	case r.URL.Path == "/recipes/findByIngredients":
		fmt.Fprint(w, `[{"id":2,"title":"Mock Stir Fry","usedIngredients":[{"name":"chicken"}],"missedIngredients":[{"name":"ginger"}]}]`)
	case r.URL.Path == "/recipes/random":
		fmt.Fprint(w, `{"recipes":[{"id":3,"title":"Mock Salad"}]}`)
	case len(r.URL.Path) > len("/recipes/") && r.URL.Path[len(r.URL.Path)-len("/information"):] == "/information":
		fmt.Fprint(w, `{"id":1,"title":"Mock Pasta","summary":"<p>Rich &amp; creamy</p>","readyInMinutes":25,"servings":4}`)
	default:
		http.NotFound(w, r)
	}
}
