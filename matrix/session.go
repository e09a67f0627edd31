// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hallway-im/hallway/lib/id"
	"github.com/hallway-im/hallway/lib/secret"
)

// Session is an authenticated handle on the homeserver: a Client plus
// an access token. Sessions are lightweight and safe to create in
// large numbers; the token lives in mmap-backed memory and the caller
// must Close the session to release it.
//
// Session is the dispatch target for [Request]: SendRequest and
// SendDiscardingRequest are the two adapters over one raw round-trip
// primitive, differing only in what happens to a successful payload.
type Session struct {
	client      *Client
	accessToken *secret.Buffer
	userID      id.UserID
	deviceID    string

	// transactionCounter feeds unique transaction IDs for idempotent
	// event sends.
	transactionCounter atomic.Int64
}

// UserID returns the fully-qualified user ID (e.g., "@alice:example.org").
func (s *Session) UserID() id.UserID { return s.userID }

// DeviceID returns the device ID, or "" for sessions created from a
// bare token.
func (s *Session) DeviceID() string { return s.deviceID }

// AccessToken returns the token as a heap string copy. Use only at
// boundaries that require a string (session files, logging redaction).
func (s *Session) AccessToken() string { return s.accessToken.String() }

// Close releases the protected token memory. Idempotent.
func (s *Session) Close() error {
	if s.accessToken != nil {
		return s.accessToken.Close()
	}
	return nil
}

// sendRaw performs the round trip and returns the response body on
// 2xx. Server-side failures come back as *MatrixError; network
// failures are wrapped and forwarded unchanged.
func (s *Session) sendRaw(request *http.Request) ([]byte, error) {
	response, err := s.client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("matrix: request to %s %s failed: %w",
			request.Method, request.URL.Path, err)
	}
	defer response.Body.Close()

	body, err := classifyResponse(response, request.Method, request.URL.Path)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// SendRequest dispatches a materialized request and decodes the
// response body into result.
func (s *Session) SendRequest(request *http.Request, result any) error {
	body, err := s.sendRaw(request)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("matrix: parsing response from %s %s: %w",
			request.Method, request.URL.Path, err)
	}
	return nil
}

// SendDiscardingRequest dispatches a materialized request and drops a
// successful payload unread. Status and error-body checks still apply.
func (s *Session) SendDiscardingRequest(request *http.Request) error {
	_, err := s.sendRaw(request)
	return err
}

// WhoAmI validates the access token and returns the user ID it belongs
// to. Useful for checking a stored token before trusting it.
func (s *Session) WhoAmI(ctx context.Context) (id.UserID, error) {
	request := NewRequest(http.MethodGet, "/account/whoami")
	response, err := Send[WhoAmIResponse](ctx, s, request)
	if err != nil {
		return id.UserID{}, fmt.Errorf("matrix: whoami failed: %w", err)
	}
	return response.UserID, nil
}

// Logout invalidates this session's access token on the server and
// releases the local token memory.
func (s *Session) Logout(ctx context.Context) error {
	request := NewRequest(http.MethodPost, "/logout")
	if err := request.DiscardingSend(ctx, s); err != nil {
		return fmt.Errorf("matrix: logout failed: %w", err)
	}
	return s.Close()
}

// nextTransactionID generates a unique transaction ID for idempotent
// event sending. Timestamp plus counter keeps IDs unique across
// process restarts.
func (s *Session) nextTransactionID() string {
	counter := s.transactionCounter.Add(1)
	return fmt.Sprintf("hallway-%d-%d", time.Now().UnixMilli(), counter)
}
