package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Fixture is a canned HTTP response.
type Fixture struct {
	Status      int
	ContentType string
	Body        string
}

// HTML returns a 200 text/html fixture.
func HTML(body string) Fixture {
	return Fixture{Status: http.StatusOK, ContentType: "text/html; charset=utf-8", Body: body}
}

// JSON returns a 200 application/json fixture.
func JSON(body string) Fixture {
	return Fixture{Status: http.StatusOK, ContentType: "application/json", Body: body}
}

// FixtureServer serves fixtures keyed by request URI (path plus raw query)
// and counts every request it receives. Unknown URIs get a 404.
type FixtureServer struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]Fixture
	hits     map[string]int
	requests []*http.Request
}

// NewFixtureServer starts a server that is closed when the test completes.
func NewFixtureServer(t *testing.T) *FixtureServer {
	t.Helper()

	s := &FixtureServer{
		routes: make(map[string]Fixture),
		hits:   make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle registers a fixture for the given request URI, e.g. "/parts?page=1".
func (s *FixtureServer) Handle(requestURI string, f Fixture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[requestURI] = f
}

// Hits returns how many times requestURI was requested.
func (s *FixtureServer) Hits(requestURI string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[requestURI]
}

// TotalHits returns the number of requests received for any URI.
func (s *FixtureServer) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// LastRequest returns the most recent request, or nil.
func (s *FixtureServer) LastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func (s *FixtureServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	uri := r.URL.RequestURI()
	s.hits[uri]++
	s.requests = append(s.requests, r.Clone(r.Context()))
	f, ok := s.routes[uri]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if f.ContentType != "" {
		w.Header().Set("Content-Type", f.ContentType)
	}
	status := f.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(f.Body))
}
