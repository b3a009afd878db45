// Package testutils provides a scripted HTTP API server and clock helpers for tests
package testutils

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// Recorded is a request captured by Server
type Recorded struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// HandlerFunc answers a scripted route; call is the 1-based hit count for the route
type HandlerFunc func(w http.ResponseWriter, r *http.Request, call int)

// Server is an httptest server with per-route handlers and hit counters
type Server struct {
	*httptest.Server

	t        testing.TB
	mu       sync.Mutex
	routes   map[string]HandlerFunc
	hits     map[string]int
	requests []Recorded
}

// NewServer starts a server that is closed when the test ends
func NewServer(t testing.TB) *Server {
	s := &Server{
		t:      t,
		routes: make(map[string]HandlerFunc),
		hits:   make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle registers a handler for "METHOD /path"
func (s *Server) Handle(route string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[route] = fn
}

// HandleJSON registers a route that always answers status with body encoded as JSON
func (s *Server) HandleJSON(route string, status int, body interface{}) {
	s.Handle(route, func(w http.ResponseWriter, r *http.Request, call int) {
		WriteJSON(w, status, body)
	})
}

// Hits returns how many times a route was called
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Requests returns every captured request in arrival order
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// LastRequest returns the most recent captured request
func (s *Server) LastRequest() Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		s.t.Fatalf("no requests recorded")
	}
	return s.requests[len(s.requests)-1]
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	route := r.Method + " " + r.URL.Path

	s.mu.Lock()
	s.requests = append(s.requests, Recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	fn, ok := s.routes[route]
	s.hits[route]++
	call := s.hits[route]
	s.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]string{"message": "no route for " + route})
		return
	}

	r.Body = io.NopCloser(strings.NewReader(string(body)))
	fn(w, r, call)
}

// WriteJSON writes v as a JSON response
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
