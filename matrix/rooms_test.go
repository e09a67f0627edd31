// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package matrix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hallway-im/hallway/lib/id"
)

// roomServer runs an httptest server and returns a Session pointed at
// it. The handler sees the full request path including the API prefix.
func roomServer(t *testing.T, handler http.HandlerFunc) *Session {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return newTestSession(t, server.URL, "syt_test")
}

func TestCreateRoom(t *testing.T) {
	session := roomServer(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost || request.URL.Path != "/_matrix/client/r0/createRoom" {
			t.Errorf("unexpected request: %s %s", request.Method, request.URL.Path)
		}
		var body CreateRoomRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		if body.Name != "Lobby" || body.Preset != "private_chat" {
			t.Errorf("body: got %+v", body)
		}
		json.NewEncoder(writer).Encode(CreateRoomResponse{
			RoomID: id.MustParseRoomID("!abc:example.org"),
		})
	})

	response, err := session.CreateRoom(context.Background(), CreateRoomRequest{
		Name:   "Lobby",
		Preset: "private_chat",
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if response.RoomID.String() != "!abc:example.org" {
		t.Errorf("room ID: got %q", response.RoomID)
	}
}

func TestJoinAndLeaveRoom(t *testing.T) {
	roomID := id.MustParseRoomID("!abc:example.org")
	session := roomServer(t, func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/_matrix/client/r0/join/!abc:example.org":
			json.NewEncoder(writer).Encode(map[string]string{"room_id": roomID.String()})
		case "/_matrix/client/r0/rooms/!abc:example.org/leave":
			writer.Write([]byte("{}"))
		default:
			t.Errorf("unexpected path: %s", request.URL.Path)
			writer.WriteHeader(http.StatusNotFound)
		}
	})

	joined, err := session.JoinRoom(context.Background(), roomID)
	if err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if joined != roomID {
		t.Errorf("joined room: got %q", joined)
	}
	if err := session.LeaveRoom(context.Background(), roomID); err != nil {
		t.Fatalf("LeaveRoom failed: %v", err)
	}
}

func TestInviteAndKick(t *testing.T) {
	roomID := id.MustParseRoomID("!abc:example.org")
	target := id.MustParseUserID("@bob:example.org")

	session := roomServer(t, func(writer http.ResponseWriter, request *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		if body["user_id"] != target.String() {
			t.Errorf("user_id: got %q", body["user_id"])
		}
		if strings.HasSuffix(request.URL.Path, "/kick") && body["reason"] != "spam" {
			t.Errorf("reason: got %q", body["reason"])
		}
		writer.Write([]byte("{}"))
	})

	if err := session.InviteUser(context.Background(), roomID, target); err != nil {
		t.Fatalf("InviteUser failed: %v", err)
	}
	if err := session.KickUser(context.Background(), roomID, target, "spam"); err != nil {
		t.Fatalf("KickUser failed: %v", err)
	}
}

func TestSendMessage(t *testing.T) {
	roomID := id.MustParseRoomID("!abc:example.org")
	session := roomServer(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPut {
			t.Errorf("method: got %s, want PUT", request.Method)
		}
		// /rooms/{id}/send/{type}/{txnID}
		prefix := "/_matrix/client/r0/rooms/!abc:example.org/send/m.room.message/"
		if !strings.HasPrefix(request.URL.Path, prefix) {
			t.Errorf("path: got %s", request.URL.Path)
		}
		txnID := strings.TrimPrefix(request.URL.Path, prefix)
		if !strings.HasPrefix(txnID, "hallway-") {
			t.Errorf("transaction ID: got %q", txnID)
		}
		var content MessageContent
		if err := json.NewDecoder(request.Body).Decode(&content); err != nil {
			t.Fatalf("decoding content: %v", err)
		}
		if content.MsgType != "m.text" || content.Body != "hello" {
			t.Errorf("content: got %+v", content)
		}
		json.NewEncoder(writer).Encode(SendEventResponse{
			EventID: id.MustParseEventID("$ev1:example.org"),
		})
	})

	eventID, err := session.SendMessage(context.Background(), roomID, NewTextMessage("hello"))
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if eventID.String() != "$ev1:example.org" {
		t.Errorf("event ID: got %q", eventID)
	}
}

func TestSendMessageTransactionIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	session := roomServer(t, func(writer http.ResponseWriter, request *http.Request) {
		segments := strings.Split(request.URL.Path, "/")
		txnID := segments[len(segments)-1]
		if seen[txnID] {
			t.Errorf("duplicate transaction ID: %q", txnID)
		}
		seen[txnID] = true
		json.NewEncoder(writer).Encode(SendEventResponse{
			EventID: id.MustParseEventID("$ev:example.org"),
		})
	})

	roomID := id.MustParseRoomID("!abc:example.org")
	for i := 0; i < 5; i++ {
		if _, err := session.SendMessage(context.Background(), roomID, NewTextMessage("x")); err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 distinct transaction IDs, got %d", len(seen))
	}
}

func TestThreadReply(t *testing.T) {
	root := id.MustParseEventID("$root:example.org")
	content := NewThreadReply(root, "in thread")

	encoded, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("marshaling content: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshaling content: %v", err)
	}
	relates, ok := decoded["m.relates_to"].(map[string]any)
	if !ok {
		t.Fatal("missing m.relates_to")
	}
	if relates["rel_type"] != "m.thread" {
		t.Errorf("rel_type: got %v", relates["rel_type"])
	}
	if relates["event_id"] != root.String() {
		t.Errorf("event_id: got %v", relates["event_id"])
	}
	inReply, ok := relates["m.in_reply_to"].(map[string]any)
	if !ok || inReply["event_id"] != root.String() {
		t.Errorf("m.in_reply_to: got %v", relates["m.in_reply_to"])
	}
}

func TestStateEvents(t *testing.T) {
	roomID := id.MustParseRoomID("!abc:example.org")

	t.Run("send and get", func(t *testing.T) {
		session := roomServer(t, func(writer http.ResponseWriter, request *http.Request) {
			wantPath := "/_matrix/client/r0/rooms/!abc:example.org/state/m.room.topic/"
			if request.URL.Path != wantPath {
				t.Errorf("path: got %s, want %s", request.URL.Path, wantPath)
			}
			switch request.Method {
			case http.MethodPut:
				json.NewEncoder(writer).Encode(SendEventResponse{
					EventID: id.MustParseEventID("$state1:example.org"),
				})
			case http.MethodGet:
				writer.Write([]byte(`{"topic":"welcome"}`))
			default:
				t.Errorf("unexpected method: %s", request.Method)
			}
		})

		eventID, err := session.SendStateEvent(context.Background(), roomID, "m.room.topic", "",
			map[string]string{"topic": "welcome"})
		if err != nil {
			t.Fatalf("SendStateEvent failed: %v", err)
		}
		if eventID.String() != "$state1:example.org" {
			t.Errorf("event ID: got %q", eventID)
		}

		raw, err := session.GetStateEvent(context.Background(), roomID, "m.room.topic", "")
		if err != nil {
			t.Fatalf("GetStateEvent failed: %v", err)
		}
		var topic struct {
			Topic string `json:"topic"`
		}
		if err := json.Unmarshal(raw, &topic); err != nil {
			t.Fatalf("unmarshaling state content: %v", err)
		}
		if topic.Topic != "welcome" {
			t.Errorf("topic: got %q", topic.Topic)
		}
	})

	t.Run("missing state event", func(t *testing.T) {
		session := roomServer(t, func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			json.NewEncoder(writer).Encode(MatrixError{Code: ErrCodeNotFound, Message: "Event not found."})
		})
		_, err := session.GetStateEvent(context.Background(), roomID, "m.room.topic", "")
		if !IsMatrixError(err, ErrCodeNotFound) {
			t.Errorf("expected M_NOT_FOUND, got: %v", err)
		}
	})

	t.Run("full room state", func(t *testing.T) {
		session := roomServer(t, func(writer http.ResponseWriter, request *http.Request) {
			if request.URL.Path != "/_matrix/client/r0/rooms/!abc:example.org/state" {
				t.Errorf("path: got %s", request.URL.Path)
			}
			writer.Write([]byte(`[{"event_id":"$s1:example.org","type":"m.room.name","sender":"@alice:example.org","state_key":"","content":{"name":"Lobby"}}]`))
		})
		events, err := session.GetRoomState(context.Background(), roomID)
		if err != nil {
			t.Fatalf("GetRoomState failed: %v", err)
		}
		if len(events) != 1 || events[0].Type != "m.room.name" {
			t.Errorf("events: got %+v", events)
		}
	})
}

func TestRoomMessages(t *testing.T) {
	roomID := id.MustParseRoomID("!abc:example.org")
	session := roomServer(t, func(writer http.ResponseWriter, request *http.Request) {
		query := request.URL.Query()
		if query.Get("dir") != "b" {
			t.Errorf("dir: got %q, want default \"b\"", query.Get("dir"))
		}
		if query.Get("from") != "t100" {
			t.Errorf("from: got %q", query.Get("from"))
		}
		if query.Get("limit") != "10" {
			t.Errorf("limit: got %q", query.Get("limit"))
		}
		json.NewEncoder(writer).Encode(RoomMessagesResponse{
			Start: "t100",
			End:   "t90",
			Chunk: []Event{{EventID: id.MustParseEventID("$m1:example.org"), Type: "m.room.message"}},
		})
	})

	response, err := session.RoomMessages(context.Background(), roomID, RoomMessagesOptions{
		From:  "t100",
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("RoomMessages failed: %v", err)
	}
	if response.End != "t90" || len(response.Chunk) != 1 {
		t.Errorf("response: got %+v", response)
	}
}

func TestResolveAlias(t *testing.T) {
	session := roomServer(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/_matrix/client/r0/directory/room/#lobby:example.org" {
			t.Errorf("path: got %s", request.URL.Path)
		}
		json.NewEncoder(writer).Encode(ResolveAliasResponse{
			RoomID:  id.MustParseRoomID("!abc:example.org"),
			Servers: []string{"example.org"},
		})
	})

	roomID, err := session.ResolveAlias(context.Background(), id.MustParseRoomAlias("#lobby:example.org"))
	if err != nil {
		t.Fatalf("ResolveAlias failed: %v", err)
	}
	if roomID.String() != "!abc:example.org" {
		t.Errorf("room ID: got %q", roomID)
	}
}

func TestJoinedRooms(t *testing.T) {
	session := roomServer(t, func(writer http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(writer).Encode(JoinedRoomsResponse{
			JoinedRooms: []id.RoomID{
				id.MustParseRoomID("!a:example.org"),
				id.MustParseRoomID("!b:example.org"),
			},
		})
	})
	rooms, err := session.JoinedRooms(context.Background())
	if err != nil {
		t.Fatalf("JoinedRooms failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Errorf("rooms: got %v", rooms)
	}
}

func TestDisplayName(t *testing.T) {
	alice := id.MustParseUserID("@alice:example.org")
	session := roomServer(t, func(writer http.ResponseWriter, request *http.Request) {
		switch request.Method {
		case http.MethodGet:
			json.NewEncoder(writer).Encode(DisplayNameResponse{DisplayName: "Alice"})
		case http.MethodPut:
			var body map[string]string
			if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
				t.Fatalf("decoding request body: %v", err)
			}
			if body["displayname"] != "Alice A." {
				t.Errorf("displayname: got %q", body["displayname"])
			}
			writer.Write([]byte("{}"))
		}
	})
	session.userID = alice

	name, err := session.GetDisplayName(context.Background(), alice)
	if err != nil {
		t.Fatalf("GetDisplayName failed: %v", err)
	}
	if name != "Alice" {
		t.Errorf("display name: got %q", name)
	}
	if err := session.SetDisplayName(context.Background(), "Alice A."); err != nil {
		t.Fatalf("SetDisplayName failed: %v", err)
	}
}

func TestWhoAmI(t *testing.T) {
	session := roomServer(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/_matrix/client/r0/account/whoami" {
			t.Errorf("path: got %s", request.URL.Path)
		}
		json.NewEncoder(writer).Encode(WhoAmIResponse{
			UserID: id.MustParseUserID("@alice:example.org"),
		})
	})
	userID, err := session.WhoAmI(context.Background())
	if err != nil {
		t.Fatalf("WhoAmI failed: %v", err)
	}
	if userID.String() != "@alice:example.org" {
		t.Errorf("user ID: got %q", userID)
	}
}

func TestLogout(t *testing.T) {
	called := false
	session := roomServer(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/_matrix/client/r0/logout" || request.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", request.Method, request.URL.Path)
		}
		called = true
		writer.Write([]byte("{}"))
	})
	if err := session.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if !called {
		t.Error("logout endpoint never called")
	}
}

func TestSync(t *testing.T) {
	session := roomServer(t, func(writer http.ResponseWriter, request *http.Request) {
		query := request.URL.Query()
		if query.Get("since") != "s72594_4483" {
			t.Errorf("since: got %q", query.Get("since"))
		}
		if query.Get("timeout") != "30000" {
			t.Errorf("timeout: got %q", query.Get("timeout"))
		}
		writer.Write([]byte(`{
			"next_batch": "s72595_4484",
			"rooms": {
				"join": {
					"!abc:example.org": {
						"timeline": {
							"events": [{"event_id":"$e:example.org","type":"m.room.message","sender":"@bob:example.org","content":{"msgtype":"m.text","body":"hi"}}],
							"prev_batch": "t1",
							"limited": false
						}
					}
				}
			}
		}`))
	})

	response, err := session.Sync(context.Background(), SyncOptions{
		Since:      "s72594_4483",
		Timeout:    30000,
		SetTimeout: true,
	})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if response.NextBatch != "s72595_4484" {
		t.Errorf("next_batch: got %q", response.NextBatch)
	}
	joined, ok := response.Rooms.Join[id.MustParseRoomID("!abc:example.org")]
	if !ok {
		t.Fatal("joined room missing from sync response")
	}
	if len(joined.Timeline.Events) != 1 || joined.Timeline.Events[0].Content["body"] != "hi" {
		t.Errorf("timeline: got %+v", joined.Timeline)
	}
}

func TestSyncInitialOmitsSince(t *testing.T) {
	session := roomServer(t, func(writer http.ResponseWriter, request *http.Request) {
		query := request.URL.Query()
		if query.Has("since") {
			t.Error("initial sync must not send since")
		}
		if query.Has("timeout") {
			t.Error("timeout must not be sent unless SetTimeout")
		}
		writer.Write([]byte(`{"next_batch":"s1"}`))
	})
	response, err := session.Sync(context.Background(), SyncOptions{})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if response.NextBatch != "s1" {
		t.Errorf("next_batch: got %q", response.NextBatch)
	}
}
