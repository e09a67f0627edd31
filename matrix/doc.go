// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

// Package matrix implements a client for the Matrix client-server API.
//
// The package is built around three types. [Request] is an immutable
// description of one API call: method, endpoint (relative to the fixed
// r0 prefix), query parameters, and a JSON-serializable body. A body
// that serializes to the empty object is omitted from the wire — many
// endpoints reject or ignore an empty object body, so requests with no
// payload use [NewRequest], whose unit body is never sent.
//
// [Client] is an unauthenticated handle on a homeserver: it holds the
// base URL and HTTP transport and performs login and registration,
// producing [Session] values. A Session pairs the Client with an access
// token (held in mmap-backed [secret.Buffer] memory, locked against
// swap and excluded from core dumps) and carries the typed API: rooms,
// messaging, state events, sync, and profile operations. Every typed
// operation is constructed as a Request and dispatched through
// [Send] or [Request.DiscardingSend], so there is exactly one path from
// description to wire.
//
// Authentication travels as the access_token query parameter, and all
// endpoints live under /_matrix/client/r0. Query parameter keys and
// values are percent-encoded with the RFC 3986 unreserved set; endpoint
// paths are passed through unescaped — callers escape individual path
// segments with url.PathEscape where they interpolate identifiers.
//
// Server-reported failures surface as [*MatrixError] carrying the
// standard errcode (M_FORBIDDEN, M_NOT_FOUND, …) and HTTP status.
// Local build failures surface as [*SerializationError] or
// [*URLParseError] before any network traffic. Transport failures are
// wrapped and forwarded unchanged.
package matrix
