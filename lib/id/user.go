// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package id

import "fmt"

// UserID is a validated Matrix user ID (e.g., "@alice:example.org").
// It accepts any structurally valid user ID; localpart character rules
// are the homeserver's concern, not this library's.
type UserID struct {
	id string
}

// ParseUserID validates and wraps a raw Matrix user ID string.
func ParseUserID(raw string) (UserID, error) {
	if _, _, err := splitSigilID("user ID", '@', raw); err != nil {
		return UserID{}, err
	}
	return UserID{id: raw}, nil
}

// MustParseUserID is like ParseUserID but panics on error. For tests
// and static initialization with known-valid input.
func MustParseUserID(raw string) UserID {
	u, err := ParseUserID(raw)
	if err != nil {
		panic(fmt.Sprintf("id.MustParseUserID(%q): %v", raw, err))
	}
	return u
}

// String returns the full user ID string.
func (u UserID) String() string { return u.id }

// IsZero reports whether the UserID is the zero value.
func (u UserID) IsZero() bool { return u.id == "" }

// Localpart returns the localpart without the '@' prefix or ':server'
// suffix. Returns "" for a zero-value UserID.
func (u UserID) Localpart() string {
	if u.id == "" {
		return ""
	}
	localpart, _, _ := splitSigilID("user ID", '@', u.id)
	return localpart
}

// Server returns the server name after the ':'. Returns "" for a
// zero-value UserID.
func (u UserID) Server() string {
	if u.id == "" {
		return ""
	}
	_, server, _ := splitSigilID("user ID", '@', u.id)
	return server
}

// MarshalText implements encoding.TextMarshaler.
func (u UserID) MarshalText() ([]byte, error) { return []byte(u.id), nil }

// UnmarshalText implements encoding.TextUnmarshaler. Empty input
// produces the zero value (unset user ID).
func (u *UserID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*u = UserID{}
		return nil
	}
	parsed, err := ParseUserID(string(data))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
