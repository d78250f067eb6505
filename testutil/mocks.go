package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockHolodexServer creates a test server that mocks Holodex API responses
type MockHolodexServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockHolodexServer creates a new mock Holodex API server
func NewMockHolodexServer(t *testing.T) *MockHolodexServer {
	t.Helper()
	m := &MockHolodexServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockVideosResponse adds a handler for the /videos endpoint. Each video map
// should carry id/title and optionally end_actual.
func (m *MockHolodexServer) MockVideosResponse(videos []map[string]string) {
	m.Handlers["/videos"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(videos) //nolint:errcheck // test mock response
	}
}

// MockVideosError makes the /videos endpoint fail with the given status.
func (m *MockHolodexServer) MockVideosError(status int) {
	m.Handlers["/videos"] = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(status), status)
	}
}
