// Package testutil provides an in-process fake of the GitHub REST API for
// tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// RecordedRequest is a request as the fake server saw it.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Reply is one canned response.
type Reply struct {
	Status int
	Header map[string]string
	Body   any
}

// FakeAPI routes requests with chi and records everything it receives.
type FakeAPI struct {
	Server *httptest.Server
	Router chi.Router

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewFakeAPI starts a server that is closed when t finishes.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	f := &FakeAPI{}
	router := chi.NewRouter()
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusNotFound, map[string]string{
			"message":           "Not Found",
			"documentation_url": "https://docs.github.com/rest",
		})
	})
	f.Router = router
	// record wraps the whole mux; chi skips middleware for unmatched
	// requests on a router without routes.
	f.Server = httptest.NewServer(f.record(router))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the API base URL.
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Handle registers a handler for method and chi pattern.
func (f *FakeAPI) Handle(method, pattern string, handler http.HandlerFunc) {
	f.Router.Method(method, pattern, handler)
}

// JSON always answers method+pattern with status and body.
func (f *FakeAPI) JSON(method, pattern string, status int, body any) {
	f.Reply(method, pattern, Reply{Status: status, Body: body})
}

// Reply answers method+pattern with the given replies in order; the last
// one repeats.
func (f *FakeAPI) Reply(method, pattern string, replies ...Reply) {
	var (
		mu   sync.Mutex
		next int
	)
	f.Handle(method, pattern, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		reply := replies[next]
		if next < len(replies)-1 {
			next++
		}
		mu.Unlock()
		writeReply(w, reply)
	})
}

// Paged serves pages of items on GET pattern using ?page=N and a Link
// header pointing at the next page.
func (f *FakeAPI) Paged(pattern string, pages ...[]any) {
	f.Handle(http.MethodGet, pattern, func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if raw := r.URL.Query().Get("page"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				page = n
			}
		}
		if page > len(pages) {
			WriteJSON(w, http.StatusOK, []any{})
			return
		}
		if page < len(pages) {
			q := r.URL.Query()
			q.Set("page", strconv.Itoa(page+1))
			next := fmt.Sprintf("%s%s?%s", f.Server.URL, r.URL.Path, q.Encode())
			last := q
			last.Set("page", strconv.Itoa(len(pages)))
			w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next", <%s%s?%s>; rel="last"`,
				next, f.Server.URL, r.URL.Path, last.Encode()))
		}
		WriteJSON(w, http.StatusOK, pages[page-1])
	})
}

// Requests returns a copy of every recorded request.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// Count returns how many requests hit method and path.
func (f *FakeAPI) Count(method, path string) int {
	n := 0
	for _, req := range f.Requests() {
		if req.Method == method && req.Path == path {
			n++
		}
	}
	return n
}

// WriteJSON writes body as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeReply(w http.ResponseWriter, reply Reply) {
	for key, value := range reply.Header {
		w.Header().Set(key, value)
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	if text, ok := reply.Body.(string); ok {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, text)
		return
	}
	WriteJSON(w, status, reply.Body)
}

// RateHeaders builds the X-RateLimit-* headers GitHub sends.
func RateHeaders(limit, remaining int, reset time.Time) map[string]string {
	return map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(limit),
		"X-RateLimit-Remaining": strconv.Itoa(remaining),
		"X-RateLimit-Used":      strconv.Itoa(limit - remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(reset.Unix(), 10),
	}
}

// Merge combines header maps; later maps win.
func Merge(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
