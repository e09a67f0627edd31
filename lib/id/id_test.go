// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package id

import (
	"encoding/json"
	"testing"
)

func TestParseUserID(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		u, err := ParseUserID("@alice:example.org")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.String() != "@alice:example.org" {
			t.Errorf("String: got %q", u.String())
		}
		if u.Localpart() != "alice" {
			t.Errorf("Localpart: got %q", u.Localpart())
		}
		if u.Server() != "example.org" {
			t.Errorf("Server: got %q", u.Server())
		}
		if u.IsZero() {
			t.Error("IsZero on valid user ID")
		}
	})

	t.Run("server with port", func(t *testing.T) {
		u, err := ParseUserID("@bob:localhost:6167")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.Server() != "localhost:6167" {
			t.Errorf("Server: got %q", u.Server())
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, raw := range []string{"", "alice:example.org", "@:example.org", "@alice", "@alice:"} {
			if _, err := ParseUserID(raw); err == nil {
				t.Errorf("expected error for %q", raw)
			}
		}
	})
}

func TestParseRoomID(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r, err := ParseRoomID("!abc123:example.org")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.String() != "!abc123:example.org" {
			t.Errorf("String: got %q", r.String())
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, raw := range []string{"", "abc:example.org", "!:example.org", "!abc", "!abc:"} {
			if _, err := ParseRoomID(raw); err == nil {
				t.Errorf("expected error for %q", raw)
			}
		}
	})
}

func TestParseRoomAlias(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		a, err := ParseRoomAlias("#lobby:example.org")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Localpart() != "lobby" {
			t.Errorf("Localpart: got %q", a.Localpart())
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, raw := range []string{"", "lobby", "#lobby", "#:example.org"} {
			if _, err := ParseRoomAlias(raw); err == nil {
				t.Errorf("expected error for %q", raw)
			}
		}
	})
}

func TestParseEventID(t *testing.T) {
	t.Run("v4 format", func(t *testing.T) {
		e, err := ParseEventID("$pduhash")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.String() != "$pduhash" {
			t.Errorf("String: got %q", e.String())
		}
	})

	t.Run("legacy format", func(t *testing.T) {
		if _, err := ParseEventID("$abc:example.org"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, raw := range []string{"", "$", "abc"} {
			if _, err := ParseEventID(raw); err == nil {
				t.Errorf("expected error for %q", raw)
			}
		}
	})
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Room  RoomID  `json:"room_id"`
		User  UserID  `json:"sender"`
		Event EventID `json:"event_id"`
	}

	input := `{"room_id":"!r:x.org","sender":"@u:x.org","event_id":"$e"}`
	var decoded payload
	if err := json.Unmarshal([]byte(input), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Room.String() != "!r:x.org" {
		t.Errorf("room: got %q", decoded.Room.String())
	}

	encoded, err := json.Marshal(decoded)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != input {
		t.Errorf("round trip: got %s, want %s", encoded, input)
	}
}

func TestUnmarshalRejectsMalformed(t *testing.T) {
	var r RoomID
	if err := json.Unmarshal([]byte(`"not-a-room"`), &r); err == nil {
		t.Fatal("expected error for malformed room ID")
	}
}

func TestUnmarshalEmptyProducesZero(t *testing.T) {
	var u UserID
	if err := json.Unmarshal([]byte(`""`), &u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.IsZero() {
		t.Error("expected zero value for empty input")
	}
}
