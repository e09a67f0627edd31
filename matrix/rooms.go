// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hallway-im/hallway/lib/id"
)

// Room, messaging, state, and profile operations. Every operation here
// is a Request value dispatched through Send or DiscardingSend — this
// file is the production consumer of the request core.

// CreateRoom creates a new room.
func (s *Session) CreateRoom(ctx context.Context, request CreateRoomRequest) (*CreateRoomResponse, error) {
	response, err := Send[CreateRoomResponse](ctx, s, &Request[CreateRoomRequest]{
		Method:   http.MethodPost,
		Endpoint: "/createRoom",
		Params:   map[string]string{},
		Body:     request,
	})
	if err != nil {
		return nil, fmt.Errorf("matrix: create room failed: %w", err)
	}

	s.client.logger.Info("created room",
		"room_id", response.RoomID,
		"alias", request.Alias,
		"name", request.Name,
	)
	return &response, nil
}

// JoinRoom joins a room by ID and returns the (possibly canonical)
// room ID. To join by alias, resolve it with ResolveAlias first.
func (s *Session) JoinRoom(ctx context.Context, roomID id.RoomID) (id.RoomID, error) {
	request := NewRequest(http.MethodPost, "/join/"+url.PathEscape(roomID.String()))
	response, err := Send[struct {
		RoomID id.RoomID `json:"room_id"`
	}](ctx, s, request)
	if err != nil {
		return id.RoomID{}, fmt.Errorf("matrix: join room %s failed: %w", roomID, err)
	}
	return response.RoomID, nil
}

// LeaveRoom leaves a room by ID.
func (s *Session) LeaveRoom(ctx context.Context, roomID id.RoomID) error {
	request := NewRequest(http.MethodPost, fmt.Sprintf("/rooms/%s/leave", url.PathEscape(roomID.String())))
	if err := request.DiscardingSend(ctx, s); err != nil {
		return fmt.Errorf("matrix: leave room %q failed: %w", roomID, err)
	}
	return nil
}

// InviteUser invites a user to a room.
func (s *Session) InviteUser(ctx context.Context, roomID id.RoomID, userID id.UserID) error {
	request := &Request[InviteRequest]{
		Method:   http.MethodPost,
		Endpoint: fmt.Sprintf("/rooms/%s/invite", url.PathEscape(roomID.String())),
		Params:   map[string]string{},
		Body:     InviteRequest{UserID: userID},
	}
	if err := request.DiscardingSend(ctx, s); err != nil {
		return fmt.Errorf("matrix: invite %q to %q failed: %w", userID, roomID, err)
	}
	return nil
}

// KickUser removes a user from a room with an optional reason.
func (s *Session) KickUser(ctx context.Context, roomID id.RoomID, userID id.UserID, reason string) error {
	request := &Request[KickRequest]{
		Method:   http.MethodPost,
		Endpoint: fmt.Sprintf("/rooms/%s/kick", url.PathEscape(roomID.String())),
		Params:   map[string]string{},
		Body:     KickRequest{UserID: userID, Reason: reason},
	}
	if err := request.DiscardingSend(ctx, s); err != nil {
		return fmt.Errorf("matrix: kick %q from %q failed: %w", userID, roomID, err)
	}
	return nil
}

// JoinedRooms returns the room IDs the user has joined.
func (s *Session) JoinedRooms(ctx context.Context) ([]id.RoomID, error) {
	request := NewRequest(http.MethodGet, "/joined_rooms")
	response, err := Send[JoinedRoomsResponse](ctx, s, request)
	if err != nil {
		return nil, fmt.Errorf("matrix: joined rooms failed: %w", err)
	}
	return response.JoinedRooms, nil
}

// SendMessage sends a message event to a room and returns the event ID.
func (s *Session) SendMessage(ctx context.Context, roomID id.RoomID, content MessageContent) (id.EventID, error) {
	return s.SendEvent(ctx, roomID, "m.room.message", content)
}

// SendEvent sends an event of any type to a room using Matrix's
// idempotent PUT with a transaction ID. Returns the event ID.
func (s *Session) SendEvent(ctx context.Context, roomID id.RoomID, eventType id.EventType, content any) (id.EventID, error) {
	endpoint := fmt.Sprintf("/rooms/%s/send/%s/%s",
		url.PathEscape(roomID.String()),
		url.PathEscape(eventType.String()),
		url.PathEscape(s.nextTransactionID()),
	)
	request := &Request[any]{
		Method:   http.MethodPut,
		Endpoint: endpoint,
		Params:   map[string]string{},
		Body:     content,
	}
	response, err := Send[SendEventResponse](ctx, s, request)
	if err != nil {
		return id.EventID{}, fmt.Errorf("matrix: send event to %q failed: %w", roomID, err)
	}
	return response.EventID, nil
}

// SendStateEvent sends a state event to a room. State events use PUT
// with the event type and state key in the path. Returns the event ID.
func (s *Session) SendStateEvent(ctx context.Context, roomID id.RoomID, eventType id.EventType, stateKey string, content any) (id.EventID, error) {
	endpoint := fmt.Sprintf("/rooms/%s/state/%s/%s",
		url.PathEscape(roomID.String()),
		url.PathEscape(eventType.String()),
		url.PathEscape(stateKey),
	)
	request := &Request[any]{
		Method:   http.MethodPut,
		Endpoint: endpoint,
		Params:   map[string]string{},
		Body:     content,
	}
	response, err := Send[SendEventResponse](ctx, s, request)
	if err != nil {
		return id.EventID{}, fmt.Errorf("matrix: send state event to %q failed: %w", roomID, err)
	}
	return response.EventID, nil
}

// GetStateEvent fetches one state event's content from a room. The raw
// JSON is returned for the caller to unmarshal. A missing event is a
// *MatrixError with code M_NOT_FOUND.
func (s *Session) GetStateEvent(ctx context.Context, roomID id.RoomID, eventType id.EventType, stateKey string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("/rooms/%s/state/%s/%s",
		url.PathEscape(roomID.String()),
		url.PathEscape(eventType.String()),
		url.PathEscape(stateKey),
	)
	request := NewRequest(http.MethodGet, endpoint)
	content, err := Send[json.RawMessage](ctx, s, request)
	if err != nil {
		return nil, fmt.Errorf("matrix: get state event %s/%s in %q failed: %w", eventType, stateKey, roomID, err)
	}
	return content, nil
}

// GetRoomState fetches all current state events from a room.
func (s *Session) GetRoomState(ctx context.Context, roomID id.RoomID) ([]Event, error) {
	request := NewRequest(http.MethodGet, fmt.Sprintf("/rooms/%s/state", url.PathEscape(roomID.String())))
	events, err := Send[[]Event](ctx, s, request)
	if err != nil {
		return nil, fmt.Errorf("matrix: get room state for %q failed: %w", roomID, err)
	}
	return events, nil
}

// RoomMessages fetches messages from a room with pagination.
func (s *Session) RoomMessages(ctx context.Context, roomID id.RoomID, options RoomMessagesOptions) (*RoomMessagesResponse, error) {
	request := NewRequest(http.MethodGet, fmt.Sprintf("/rooms/%s/messages", url.PathEscape(roomID.String())))
	if options.From != "" {
		request.Params["from"] = options.From
	}
	direction := options.Direction
	if direction == "" {
		direction = "b" // newest first by default
	}
	request.Params["dir"] = direction
	if options.Limit > 0 {
		request.Params["limit"] = strconv.Itoa(options.Limit)
	}

	response, err := Send[RoomMessagesResponse](ctx, s, request)
	if err != nil {
		return nil, fmt.Errorf("matrix: room messages for %q failed: %w", roomID, err)
	}
	return &response, nil
}

// ResolveAlias resolves a room alias (e.g., "#lobby:example.org") to a
// room ID.
func (s *Session) ResolveAlias(ctx context.Context, alias id.RoomAlias) (id.RoomID, error) {
	request := NewRequest(http.MethodGet, "/directory/room/"+url.PathEscape(alias.String()))
	response, err := Send[ResolveAliasResponse](ctx, s, request)
	if err != nil {
		return id.RoomID{}, fmt.Errorf("matrix: resolve alias %q failed: %w", alias, err)
	}
	return response.RoomID, nil
}

// GetDisplayName fetches a user's display name. An unset display name
// is an empty string, not an error.
func (s *Session) GetDisplayName(ctx context.Context, userID id.UserID) (string, error) {
	request := NewRequest(http.MethodGet, "/profile/"+url.PathEscape(userID.String())+"/displayname")
	response, err := Send[DisplayNameResponse](ctx, s, request)
	if err != nil {
		return "", fmt.Errorf("matrix: get display name for %q failed: %w", userID, err)
	}
	return response.DisplayName, nil
}

// SetDisplayName sets this session's user display name.
func (s *Session) SetDisplayName(ctx context.Context, displayName string) error {
	request := NewFormRequest(http.MethodPut,
		"/profile/"+url.PathEscape(s.userID.String())+"/displayname",
		map[string]string{"displayname": displayName},
	)
	if err := request.DiscardingSend(ctx, s); err != nil {
		return fmt.Errorf("matrix: set display name failed: %w", err)
	}
	return nil
}
