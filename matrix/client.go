// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hallway-im/hallway/lib/httpio"
	"github.com/hallway-im/hallway/lib/id"
	"github.com/hallway-im/hallway/lib/secret"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// HomeserverURL is the base URL of the homeserver
	// (e.g., "https://example.org"). Required.
	HomeserverURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Client is an unauthenticated handle on a Matrix homeserver. It holds
// the base URL and HTTP transport, shared by every Session derived
// from it, and performs the operations that precede authentication:
// version discovery, login, and registration.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new unauthenticated client. The homeserver URL
// is validated once here; request URLs are later built by string
// concatenation, which avoids url.URL re-encoding path segments that
// arrive already escaped.
func NewClient(config ClientConfig) (*Client, error) {
	if config.HomeserverURL == "" {
		return nil, fmt.Errorf("matrix: HomeserverURL is required")
	}
	if _, err := url.Parse(config.HomeserverURL); err != nil {
		return nil, fmt.Errorf("matrix: invalid HomeserverURL %q: %w", config.HomeserverURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.HomeserverURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// CloseIdleConnections drops pooled HTTP connections. Call after a
// network disruption so the next request dials fresh instead of
// reusing a poisoned connection.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// ServerVersions returns the protocol versions the homeserver
// supports. Unauthenticated — useful as a reachability probe.
func (c *Client) ServerVersions(ctx context.Context) (*ServerVersionsResponse, error) {
	body, err := c.doUnauthenticated(ctx, http.MethodGet, "/_matrix/client/versions", nil)
	if err != nil {
		return nil, fmt.Errorf("matrix: server versions failed: %w", err)
	}

	var response ServerVersionsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("matrix: parsing versions response: %w", err)
	}
	return &response, nil
}

// Login authenticates with username and password and returns an
// authenticated Session. The password buffer is read but not closed —
// the caller retains ownership.
func (c *Client) Login(ctx context.Context, username string, password *secret.Buffer) (*Session, error) {
	if username == "" {
		return nil, fmt.Errorf("matrix: username is required for login")
	}
	if password == nil {
		return nil, fmt.Errorf("matrix: password is required for login")
	}

	// The password becomes a string at the JSON boundary; the heap
	// copy lives only for the duration of the HTTP call.
	loginRequest := LoginRequest{
		Type:                     "m.login.password",
		User:                     username,
		Password:                 password.String(),
		InitialDeviceDisplayName: "hallway",
	}

	body, err := c.doUnauthenticated(ctx, http.MethodPost, apiPrefix+"/login", loginRequest)
	if err != nil {
		return nil, fmt.Errorf("matrix: login failed: %w", err)
	}

	var authResponse AuthResponse
	if err := json.Unmarshal(body, &authResponse); err != nil {
		return nil, fmt.Errorf("matrix: parsing login response: %w", err)
	}

	c.logger.Info("logged in",
		"user_id", authResponse.UserID,
		"device_id", authResponse.DeviceID,
	)
	return c.sessionFromAuth(&authResponse)
}

// Register creates a new account and returns an authenticated Session.
//
// Registration uses the User-Interactive Authentication API: the first
// attempt comes back 401 with a UIA session ID, and the second attempt
// completes the m.login.dummy stage. Homeservers with no registration
// requirements may accept the first attempt outright.
func (c *Client) Register(ctx context.Context, request RegisterRequest) (*Session, error) {
	if request.Username == "" {
		return nil, fmt.Errorf("matrix: username is required for registration")
	}
	if request.Password == nil {
		return nil, fmt.Errorf("matrix: password is required for registration")
	}

	firstAttempt := map[string]any{
		"username": request.Username,
		"password": request.Password.String(),
	}
	body, err := c.doUnauthenticated(ctx, http.MethodPost, apiPrefix+"/register", firstAttempt)
	if err == nil {
		var authResponse AuthResponse
		if parseErr := json.Unmarshal(body, &authResponse); parseErr != nil {
			return nil, fmt.Errorf("matrix: parsing register response: %w", parseErr)
		}
		return c.sessionFromAuth(&authResponse)
	}

	var matrixErr *MatrixError
	if !errors.As(err, &matrixErr) || matrixErr.StatusCode != http.StatusUnauthorized {
		return nil, fmt.Errorf("matrix: registration failed: %w", err)
	}

	// 401 is the UIA handshake, not a refusal: the body carries the
	// session ID to complete the flow with.
	sessionID, err := uiaSessionID(body)
	if err != nil {
		return nil, err
	}

	completeAttempt := map[string]any{
		"username": request.Username,
		"password": request.Password.String(),
		"auth": map[string]any{
			"type":    "m.login.dummy",
			"session": sessionID,
		},
	}
	body, err = c.doUnauthenticated(ctx, http.MethodPost, apiPrefix+"/register", completeAttempt)
	if err != nil {
		return nil, fmt.Errorf("matrix: registration failed: %w", err)
	}

	var authResponse AuthResponse
	if err := json.Unmarshal(body, &authResponse); err != nil {
		return nil, fmt.Errorf("matrix: parsing register response: %w", err)
	}

	c.logger.Info("registered account",
		"user_id", authResponse.UserID,
		"device_id", authResponse.DeviceID,
	)
	return c.sessionFromAuth(&authResponse)
}

// SessionFromToken creates a Session from an existing access token.
// The token is moved into protected memory; the original string stays
// on the heap briefly until collected. The token is not validated —
// the first API call fails if it is stale. The caller must Close the
// returned Session.
func (c *Client) SessionFromToken(userID id.UserID, accessToken string) (*Session, error) {
	tokenBuffer, err := secret.NewFromString(accessToken)
	if err != nil {
		return nil, fmt.Errorf("matrix: protecting access token: %w", err)
	}
	return &Session{
		client:      c,
		accessToken: tokenBuffer,
		userID:      userID,
	}, nil
}

func (c *Client) sessionFromAuth(auth *AuthResponse) (*Session, error) {
	tokenBuffer, err := secret.NewFromString(auth.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("matrix: protecting access token: %w", err)
	}
	return &Session{
		client:      c,
		accessToken: tokenBuffer,
		userID:      auth.UserID,
		deviceID:    auth.DeviceID,
	}, nil
}

// doUnauthenticated performs a pre-authentication request (login,
// register, versions). Authenticated calls go through Request and the
// Session instead. On 4xx/5xx the body is returned alongside the
// *MatrixError because the UIA flow reads session IDs out of 401
// responses.
func (c *Client) doUnauthenticated(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	var reader *bytes.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, &SerializationError{Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	requestURL := c.baseURL + path
	var request *http.Request
	var err error
	if reader != nil {
		request, err = http.NewRequestWithContext(ctx, method, requestURL, reader)
	} else {
		request, err = http.NewRequestWithContext(ctx, method, requestURL, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("matrix: creating request: %w", err)
	}
	if reader != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("matrix: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	return classifyResponse(response, method, path)
}

// classifyResponse reads a bounded response body and sorts the result:
// 2xx returns the body, anything else returns the body plus the parsed
// *MatrixError. Matrix error responses all share one JSON shape; a
// non-JSON error body means a broken or non-Matrix server, reported
// raw.
func classifyResponse(response *http.Response, method, path string) ([]byte, error) {
	responseBody, err := httpio.ReadBody(response.Body)
	if err != nil {
		return nil, fmt.Errorf("matrix: reading response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	var matrixErr MatrixError
	if jsonErr := json.Unmarshal(responseBody, &matrixErr); jsonErr != nil {
		return nil, fmt.Errorf("matrix: unexpected %d response from %s %s: %s",
			response.StatusCode, method, path, string(responseBody))
	}
	matrixErr.StatusCode = response.StatusCode

	return responseBody, &matrixErr
}

// uiaSessionID extracts the UIA session ID from a 401 response body.
func uiaSessionID(body []byte) (string, error) {
	var uiaResponse struct {
		Session string `json:"session"`
	}
	if err := json.Unmarshal(body, &uiaResponse); err != nil {
		return "", fmt.Errorf("matrix: parsing UIA response: %w", err)
	}
	if uiaResponse.Session == "" {
		return "", fmt.Errorf("matrix: UIA response missing session ID")
	}
	return uiaResponse.Session, nil
}
