// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// apiPrefix is the fixed client-server API version prefix. Endpoints
// never include it; it is prepended exactly once when the request URL
// is assembled.
const apiPrefix = "/_matrix/client/r0"

// Request describes one Matrix API call: an HTTP method, an endpoint
// relative to the r0 prefix (e.g., "/sync"), query parameters, and a
// JSON-serializable body.
//
// A Request is built per call, read once by the send step, and
// discarded. It holds no connection state and is safe to build on any
// goroutine.
//
// If the body serializes to the empty object ("{}") it is not sent —
// requests with no payload should use [NewRequest], whose struct{}
// body always serializes empty. Callers that need to literally send
// "{}" must use a body type with at least one field.
type Request[T any] struct {
	// Method is the HTTP verb (http.MethodGet, http.MethodPost, …).
	Method string
	// Endpoint is the API path without the version prefix (e.g.,
	// "/sync"). It is not percent-encoded by this layer; escape
	// interpolated path segments with url.PathEscape.
	Endpoint string
	// Params are query-string parameters. Keys are unique; both keys
	// and values are percent-encoded at assembly time. Iteration order
	// is unspecified and the server must not depend on it.
	Params map[string]string
	// Body is serialized to JSON and attached unless it serializes to
	// the empty object.
	Body T
}

// NewRequest builds a request with no parameters and no body.
func NewRequest(method, endpoint string) *Request[struct{}] {
	return &Request[struct{}]{
		Method:   method,
		Endpoint: endpoint,
		Params:   map[string]string{},
	}
}

// NewFormRequest builds a request whose body is a string-keyed map,
// for endpoints with flat form-like JSON payloads. A nil body is
// treated as empty (and therefore not sent).
func NewFormRequest(method, endpoint string, body map[string]string) *Request[map[string]string] {
	if body == nil {
		body = map[string]string{}
	}
	return &Request[map[string]string]{
		Method:   method,
		Endpoint: endpoint,
		Params:   map[string]string{},
		Body:     body,
	}
}

// encodeBody serializes the body to JSON. A body that serializes to
// the empty object yields (nil, nil): nothing goes on the wire.
func (r *Request[T]) encodeBody() ([]byte, error) {
	encoded, err := json.Marshal(r.Body)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	if string(encoded) == "{}" {
		return nil, nil
	}
	return encoded, nil
}

// buildURL assembles the full request URL: base, prefix, endpoint, then
// the query string with the session's access token first and every
// parameter percent-encoded. The result must parse as an absolute URL.
func (r *Request[T]) buildURL(session *Session) (string, error) {
	var query strings.Builder
	query.WriteString("access_token=")
	query.WriteString(session.accessToken.String())
	for key, value := range r.Params {
		query.WriteByte('&')
		query.WriteString(encodeComponent(key))
		query.WriteByte('=')
		query.WriteString(encodeComponent(value))
	}

	assembled := session.client.baseURL + apiPrefix + r.Endpoint + "?" + query.String()

	parsed, err := url.Parse(assembled)
	if err != nil {
		return "", &URLParseError{URL: assembled, Err: err}
	}
	// url.Parse accepts relative URLs, but a request needs scheme and
	// host. An empty base URL fails here, before any network attempt.
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", &URLParseError{URL: assembled, Err: fmt.Errorf("URL is not absolute")}
	}
	return assembled, nil
}

// HTTPRequest materializes the Request into an *http.Request ready for
// the session's transport. Fails with *SerializationError or
// *URLParseError; no network activity occurs here.
func (r *Request[T]) HTTPRequest(ctx context.Context, session *Session) (*http.Request, error) {
	body, err := r.encodeBody()
	if err != nil {
		return nil, err
	}

	requestURL, err := r.buildURL(session)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, r.Method, requestURL, reader)
	if err != nil {
		return nil, fmt.Errorf("matrix: creating request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	return request, nil
}

// Send materializes the request, dispatches it through the session,
// and decodes the response body into R. Build failures (encoding, URL)
// return before any network I/O, through the same error channel as
// transport failures.
//
// Send is a package-level function because the response type parameter
// cannot live on a method:
//
//	response, err := matrix.Send[matrix.SyncResponse](ctx, session, request)
func Send[R, T any](ctx context.Context, session *Session, request *Request[T]) (R, error) {
	var result R
	httpRequest, err := request.HTTPRequest(ctx, session)
	if err != nil {
		return result, err
	}
	if err := session.SendRequest(httpRequest, &result); err != nil {
		var zero R
		return zero, err
	}
	return result, nil
}

// DiscardingSend is Send without response decoding: the round trip
// happens, HTTP status and Matrix error bodies are still checked, but
// a successful payload is dropped unread.
func (r *Request[T]) DiscardingSend(ctx context.Context, session *Session) error {
	httpRequest, err := r.HTTPRequest(ctx, session)
	if err != nil {
		return err
	}
	return session.SendDiscardingRequest(httpRequest)
}

// unreservedByte reports whether b is in the RFC 3986 unreserved set,
// the only bytes that pass through encodeComponent unescaped.
func unreservedByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '.' || b == '_' || b == '~':
		return true
	}
	return false
}

const upperHex = "0123456789ABCDEF"

// encodeComponent percent-encodes a query key or value. It escapes
// every byte outside the unreserved set — deliberately more
// conservative than net/url's query escaping, which emits '+' for
// spaces; the wire format here is pure percent-encoding.
func encodeComponent(s string) string {
	var escaped strings.Builder
	for i := 0; i < len(s); i++ {
		b := s[i]
		if unreservedByte(b) {
			escaped.WriteByte(b)
			continue
		}
		escaped.WriteByte('%')
		escaped.WriteByte(upperHex[b>>4])
		escaped.WriteByte(upperHex[b&0x0f])
	}
	return escaped.String()
}
