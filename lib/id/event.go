// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package id

import "fmt"

// EventID is a validated Matrix event ID. In room version 4 and later
// the format is "$base64hash" with no server suffix; older room
// versions use "$opaque:server". Event IDs are treated as opaque — the
// only structural requirement is the '$' sigil with content after it.
type EventID struct {
	id string
}

// ParseEventID validates and wraps a raw Matrix event ID string.
func ParseEventID(raw string) (EventID, error) {
	if raw == "" {
		return EventID{}, fmt.Errorf("empty event ID")
	}
	if raw[0] != '$' {
		return EventID{}, fmt.Errorf("event ID must start with '$': %q", raw)
	}
	if len(raw) < 2 {
		return EventID{}, fmt.Errorf("event ID has no content after '$': %q", raw)
	}
	return EventID{id: raw}, nil
}

// MustParseEventID is like ParseEventID but panics on error. For tests
// and static initialization with known-valid input.
func MustParseEventID(raw string) EventID {
	e, err := ParseEventID(raw)
	if err != nil {
		panic(fmt.Sprintf("id.MustParseEventID(%q): %v", raw, err))
	}
	return e
}

// String returns the full event ID string.
func (e EventID) String() string { return e.id }

// IsZero reports whether the EventID is the zero value.
func (e EventID) IsZero() bool { return e.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (e EventID) MarshalText() ([]byte, error) { return []byte(e.id), nil }

// UnmarshalText implements encoding.TextUnmarshaler. Empty input
// produces the zero value (unset event ID).
func (e *EventID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*e = EventID{}
		return nil
	}
	parsed, err := ParseEventID(string(data))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// EventType identifies a Matrix state or timeline event type (e.g.,
// "m.room.message"). A named string rather than a struct wrapper:
// event types are opaque identifiers needing no validation; the type
// exists for compile-time separation from state keys and other strings.
type EventType string

// String returns the event type string.
func (t EventType) String() string { return string(t) }
