// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpio provides bounded reading of HTTP response bodies.
//
// Reads are capped at MaxBodySize so that a misbehaving or malicious
// server cannot exhaust process memory with an unbounded response.
// Intended for JSON API responses; streaming payloads and large media
// downloads should be copied incrementally instead.
package httpio

import (
	"io"
)

// MaxBodySize caps response-body reads at 256 MB. Real Matrix API
// responses are orders of magnitude smaller; the cap only exists to
// bound the damage a pathological response can do.
const MaxBodySize int64 = 256 << 20

// ReadBody reads an API response body up to MaxBodySize bytes.
// Use instead of io.ReadAll on HTTP response bodies.
func ReadBody(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxBodySize))
}
