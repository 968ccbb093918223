// Package testutil provides testing utilities for the admin API client.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the path prefix the mock serves the admin API under.
const APIPrefix = "/api/v1"

// MockResponse defines the behavior for a mock admin endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAdmin is a configurable mock admin API server for testing.
//
// Handlers are registered per route, either "METHOD /path" or "/path" for
// every method; paths are relative to APIPrefix.
type MockAdmin struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	LastQuery         url.Values
	LastBody          []byte
}

// NewMockAdmin creates a new mock admin server.
func NewMockAdmin() *MockAdmin {
	mock := &MockAdmin{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastQuery = r.URL.Query()
		mock.LastBody = body
		mock.mu.Unlock()

		path := strings.TrimPrefix(r.URL.Path, APIPrefix)

		mock.mu.RLock()
		handler, exists := mock.handlers[r.Method+" "+path]
		if !exists {
			handler, exists = mock.handlers[path]
		}
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		WriteJSON(w, http.StatusNotFound, `{"code":"NOT_FOUND","message":"route not found"}`)
	}))

	return mock
}

// URL returns the API base URL, including APIPrefix.
func (m *MockAdmin) URL() string {
	return m.server.URL + APIPrefix
}

// Close shuts down the mock server.
func (m *MockAdmin) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAdmin) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.LastQuery = nil
	m.LastBody = nil
}

// SetHandler sets a custom handler for a route.
func (m *MockAdmin) SetHandler(route string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[route] = handler
}

// SetResponse configures a fixed response for a route.
func (m *MockAdmin) SetResponse(route string, resp MockResponse) {
	m.SetHandler(route, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetList serves items as a paginated list on GET route, honoring the
// page and page_size query parameters.
func (m *MockAdmin) SetList(route string, items []any) {
	m.SetHandler(route, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
		if page < 1 {
			page = 1
		}
		if size < 1 {
			size = 20
		}

		pages := (len(items) + size - 1) / size
		lo := (page - 1) * size
		hi := lo + size
		if lo > len(items) {
			lo = len(items)
		}
		if hi > len(items) {
			hi = len(items)
		}

		WriteEnvelope(w, map[string]any{
			"items": items[lo:hi],
			"total": len(items),
			"pages": pages,
		})
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAdmin) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockAdmin) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// GetLastQuery returns the query of the most recent request.
func (m *MockAdmin) GetLastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

// GetLastBody returns the body of the most recent request.
func (m *MockAdmin) GetLastBody() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastBody
}

// Envelope renders data as a successful {code, message, data} body.
func Envelope(data any) string {
	raw, err := json.Marshal(map[string]any{"code": 0, "message": "success", "data": data})
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal envelope: %v", err))
	}
	return string(raw)
}

// WriteEnvelope writes data as a successful envelope with status 200.
func WriteEnvelope(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Envelope(data))
}

// WriteJSON writes a raw JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// NewEnvelopeResponse creates a 200 OK response wrapping data.
func NewEnvelopeResponse(data any) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       Envelope(data),
	}
}

// NewAPIErrorResponse creates a 200 OK response with a non-zero code.
func NewAPIErrorResponse(code int, message string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"code":%d,"message":%q,"data":null}`, code, message),
	}
}

// NewUnauthorizedResponse creates a 401 Unauthorized response.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"code":"UNAUTHORIZED","message":"invalid or expired token"}`,
	}
}

// NewOpsDisabledResponse creates the 404 sent for disabled ops monitoring.
func NewOpsDisabledResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"code":404,"message":"Ops monitoring is disabled"}`,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"detail":"internal server error"}`,
	}
}

// NewHTMLErrorResponse creates a 502 with an HTML body, as proxies send.
func NewHTMLErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadGateway,
		Body:       "<html><body><h1>502 Bad Gateway</h1></body></html>",
		Headers:    map[string]string{"Content-Type": "text/html"},
	}
}
