package engine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RequestSpec describes one API call. Treat it as a value: the pipeline
// copies it rather than mutating it.
type RequestSpec struct {
	Method string
	// Path is relative to the API base URL, or an absolute URL when it
	// came from a page cursor.
	Path  string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	// Accept overrides the default media type.
	Accept string
}

// Get builds a GET spec.
func Get(path string, query url.Values) RequestSpec {
	return RequestSpec{Method: http.MethodGet, Path: path, Query: query}
}

// WithCursor returns a copy of s targeting the next-page URL. The cursor
// already carries the query, so the template's query is dropped.
func (s RequestSpec) WithCursor(cursor string) RequestSpec {
	next := s
	next.Path = cursor
	next.Query = nil
	return next
}

// WithQuery returns a copy of s with key set to value.
func (s RequestSpec) WithQuery(key, value string) RequestSpec {
	next := s
	next.Query = cloneValues(s.Query)
	next.Query.Set(key, value)
	return next
}

func (s RequestSpec) method() string {
	if s.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(s.Method)
}

// Resource is the rate limit bucket the request is charged to.
func (s RequestSpec) Resource() string {
	return ResourceFor(s.Path)
}

// relativeTo rewrites an absolute URL under base as a base-relative path,
// so an API prefix such as /api/v3 does not hide the rate limit bucket.
// URLs on other hosts or outside base's path come back unchanged.
func relativeTo(base *url.URL, raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || base == nil {
		return raw
	}
	if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
		return raw
	}

	rel := u.EscapedPath()
	if prefix := strings.TrimSuffix(base.EscapedPath(), "/"); prefix != "" {
		if rel != prefix && !strings.HasPrefix(rel, prefix+"/") {
			return raw
		}
		rel = strings.TrimPrefix(rel, prefix)
	}
	if rel == "" {
		rel = "/"
	}
	if u.RawQuery != "" {
		rel += "?" + u.RawQuery
	}
	return rel
}

// resolve builds the absolute request URL against base.
func (s RequestSpec) resolve(base *url.URL) (*url.URL, error) {
	ref, err := url.Parse(s.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", s.Path, err)
	}

	var target *url.URL
	if ref.IsAbs() {
		target = ref
	} else {
		joined := *base
		joined.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(ref.Path, "/")
		joined.RawPath = ""
		joined.RawQuery = ref.RawQuery
		target = &joined
	}

	if len(s.Query) > 0 {
		q := target.Query()
		for key, values := range s.Query {
			q.Del(key)
			for _, v := range values {
				q.Add(key, v)
			}
		}
		target.RawQuery = q.Encode()
	}
	return target, nil
}

// Response is a completed API response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// FromCache is set when the body was served from the conditional
	// request cache after a 304.
	FromCache bool
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// NextCursor returns the rel="next" URL from the Link header, or "".
func (r *Response) NextCursor() string {
	if r == nil {
		return ""
	}
	return ParseLinks(r.Header.Values("Link"))["next"]
}

// ParseLinks parses RFC 8288 Link header values into a rel -> URL map.
func ParseLinks(values []string) map[string]string {
	links := make(map[string]string)
	for _, value := range values {
		for _, part := range splitLinkHeader(value) {
			segments := strings.Split(part, ";")
			target := strings.TrimSpace(segments[0])
			if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
				continue
			}
			target = strings.TrimSuffix(strings.TrimPrefix(target, "<"), ">")
			for _, param := range segments[1:] {
				key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
				if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
					continue
				}
				for _, rel := range strings.Fields(strings.Trim(strings.TrimSpace(val), `"`)) {
					if _, exists := links[rel]; !exists {
						links[rel] = target
					}
				}
			}
		}
	}
	return links
}

// splitLinkHeader splits on commas outside angle brackets; URLs may
// contain commas.
func splitLinkHeader(value string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i, r := range value {
		switch r {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, value[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, value[start:])
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for key, values := range v {
		out[key] = append([]string(nil), values...)
	}
	return out
}
