// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package matrix

import (
	"github.com/hallway-im/hallway/lib/id"
	"github.com/hallway-im/hallway/lib/secret"
)

// RegisterRequest holds parameters for registering a new account. The
// password stays in a protected buffer; Register reads it but does not
// close it — the caller retains ownership.
type RegisterRequest struct {
	Username string
	Password *secret.Buffer
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	UserID      id.UserID `json:"user_id"`
	AccessToken string    `json:"access_token"`
	DeviceID    string    `json:"device_id"`
}

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Type                     string `json:"type"`
	User                     string `json:"user"`
	Password                 string `json:"password"`
	DeviceID                 string `json:"device_id,omitempty"`
	InitialDeviceDisplayName string `json:"initial_device_display_name,omitempty"`
}

// WhoAmIResponse is returned by WhoAmI.
type WhoAmIResponse struct {
	UserID   id.UserID `json:"user_id"`
	DeviceID string    `json:"device_id,omitempty"`
}

// ServerVersionsResponse is returned by Client.ServerVersions.
type ServerVersionsResponse struct {
	Versions         []string        `json:"versions"`
	UnstableFeatures map[string]bool `json:"unstable_features,omitempty"`
}

// CreateRoomRequest holds parameters for creating a room.
type CreateRoomRequest struct {
	Name         string       `json:"name,omitempty"`
	Topic        string       `json:"topic,omitempty"`
	Alias        string       `json:"room_alias_name,omitempty"` // local alias, no '#' or ':server'
	Visibility   string       `json:"visibility,omitempty"`      // "public" or "private"
	Preset       string       `json:"preset,omitempty"`          // "private_chat", "public_chat", "trusted_private_chat"
	Invite       []string     `json:"invite,omitempty"`
	InitialState []StateEvent `json:"initial_state,omitempty"`
}

// CreateRoomResponse is returned by CreateRoom.
type CreateRoomResponse struct {
	RoomID id.RoomID `json:"room_id"`
}

// StateEvent is a state event for room creation or state setting.
type StateEvent struct {
	Type     string `json:"type"`
	StateKey string `json:"state_key"`
	Content  any    `json:"content"`
}

// MessageContent is the content of an m.room.message event. Set
// RelatesTo (via NewThreadReply) to send within a thread.
type MessageContent struct {
	MsgType   string     `json:"msgtype"`
	Body      string     `json:"body"`
	RelatesTo *RelatesTo `json:"m.relates_to,omitempty"`
}

// RelatesTo expresses a relationship between events. For threads,
// RelType is "m.thread" and EventID is the thread root.
type RelatesTo struct {
	RelType       string     `json:"rel_type"`
	EventID       id.EventID `json:"event_id"`
	IsFallingBack bool       `json:"is_falling_back,omitempty"`
	InReplyTo     *InReplyTo `json:"m.in_reply_to,omitempty"`
}

// InReplyTo references the event being replied to within a thread.
type InReplyTo struct {
	EventID id.EventID `json:"event_id"`
}

// NewTextMessage creates a plain text message with no thread context.
func NewTextMessage(body string) MessageContent {
	return MessageContent{
		MsgType: "m.text",
		Body:    body,
	}
}

// NewThreadReply creates a message that replies within an existing
// thread. threadRootID is the event ID of the thread's root message.
func NewThreadReply(threadRootID id.EventID, body string) MessageContent {
	return MessageContent{
		MsgType: "m.text",
		Body:    body,
		RelatesTo: &RelatesTo{
			RelType:       "m.thread",
			EventID:       threadRootID,
			IsFallingBack: true,
			InReplyTo: &InReplyTo{
				EventID: threadRootID,
			},
		},
	}
}

// Event is a Matrix event as returned by the server.
type Event struct {
	EventID        id.EventID     `json:"event_id"`
	Type           id.EventType   `json:"type"`
	Sender         id.UserID      `json:"sender"`
	OriginServerTS int64          `json:"origin_server_ts"`
	Content        map[string]any `json:"content"`
	RoomID         id.RoomID      `json:"room_id,omitempty"`
	StateKey       *string        `json:"state_key,omitempty"`
}

// SendEventResponse is returned by SendMessage, SendEvent, and
// SendStateEvent.
type SendEventResponse struct {
	EventID id.EventID `json:"event_id"`
}

// InviteRequest holds the user ID to invite to a room.
type InviteRequest struct {
	UserID id.UserID `json:"user_id"`
}

// KickRequest is the body for kicking a user from a room.
type KickRequest struct {
	UserID id.UserID `json:"user_id"`
	Reason string    `json:"reason,omitempty"`
}

// RoomMessagesOptions controls pagination for room message fetching.
type RoomMessagesOptions struct {
	From      string // pagination token; empty means "from now"
	Direction string // "b" (backward/older) or "f" (forward/newer)
	Limit     int    // max events to return; 0 uses the server default
}

// RoomMessagesResponse is returned by RoomMessages.
type RoomMessagesResponse struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Chunk []Event `json:"chunk"`
}

// ResolveAliasResponse is returned by ResolveAlias.
type ResolveAliasResponse struct {
	RoomID  id.RoomID `json:"room_id"`
	Servers []string  `json:"servers"`
}

// JoinedRoomsResponse is returned by JoinedRooms.
type JoinedRoomsResponse struct {
	JoinedRooms []id.RoomID `json:"joined_rooms"`
}

// DisplayNameResponse is returned by GetDisplayName.
type DisplayNameResponse struct {
	DisplayName string `json:"displayname"`
}

// SyncOptions controls the /sync endpoint.
type SyncOptions struct {
	Since      string // next_batch token from a previous sync; empty for initial sync
	Timeout    int    // long-poll timeout in milliseconds
	SetTimeout bool   // send the timeout parameter (distinguishes "not set" from 0)
	Filter     string // filter ID or inline JSON filter
}

// SyncResponse is the top-level /sync response.
type SyncResponse struct {
	NextBatch string       `json:"next_batch"`
	Rooms     RoomsSection `json:"rooms"`
}

// RoomsSection groups per-room sync data by membership state. Map keys
// are validated at decode time through id.RoomID's TextUnmarshaler.
type RoomsSection struct {
	Join   map[id.RoomID]JoinedRoom  `json:"join,omitempty"`
	Invite map[id.RoomID]InvitedRoom `json:"invite,omitempty"`
	Leave  map[id.RoomID]LeftRoom    `json:"leave,omitempty"`
}

// JoinedRoom is sync data for a room the user has joined.
type JoinedRoom struct {
	Timeline TimelineSection `json:"timeline"`
	State    StateSection    `json:"state"`
}

// InvitedRoom is sync data for a room the user was invited to.
type InvitedRoom struct {
	InviteState StateSection `json:"invite_state"`
}

// LeftRoom is sync data for a room the user has left.
type LeftRoom struct {
	Timeline TimelineSection `json:"timeline"`
	State    StateSection    `json:"state"`
}

// TimelineSection holds timeline events from a sync response.
type TimelineSection struct {
	Events    []Event `json:"events"`
	PrevBatch string  `json:"prev_batch"`
	Limited   bool    `json:"limited"`
}

// StateSection holds state events from a sync response.
type StateSection struct {
	Events []Event `json:"events"`
}
