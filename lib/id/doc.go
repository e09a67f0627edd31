// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

// Package id provides validated value types for Matrix identifiers:
// room IDs, room aliases, user IDs, and event IDs.
//
// Identifiers arrive from homeserver responses and are parsed into
// these types at the boundary, so the rest of the codebase never
// handles raw strings that might be structurally malformed. Each type
// is an immutable value; the zero value is not valid and is reported
// by IsZero. All types round-trip through JSON via encoding.TextMarshaler,
// which gives map keys and struct fields validation for free during
// unmarshaling.
package id
