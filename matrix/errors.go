// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package matrix

import (
	"errors"
	"fmt"
)

// MatrixError is a structured error response from the homeserver.
// Callers extract it with errors.As:
//
//	var matrixErr *matrix.MatrixError
//	if errors.As(err, &matrixErr) {
//	    if matrixErr.Code == matrix.ErrCodeNotFound { ... }
//	}
type MatrixError struct {
	// Code is the Matrix error code (e.g., "M_FORBIDDEN").
	Code string `json:"errcode"`
	// Message is the human-readable description from the server.
	Message string `json:"error"`
	// StatusCode is the HTTP status of the response.
	StatusCode int `json:"-"`
}

func (e *MatrixError) Error() string {
	return fmt.Sprintf("matrix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Standard Matrix error codes.
const (
	ErrCodeForbidden     = "M_FORBIDDEN"
	ErrCodeUnknownToken  = "M_UNKNOWN_TOKEN"
	ErrCodeNotFound      = "M_NOT_FOUND"
	ErrCodeUserInUse     = "M_USER_IN_USE"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
	ErrCodeUnrecognized  = "M_UNRECOGNIZED"
	ErrCodeUnknown       = "M_UNKNOWN"
	ErrCodeInvalidParam  = "M_INVALID_PARAM"
	ErrCodeMissingParam  = "M_MISSING_PARAM"
	ErrCodeRoomInUse     = "M_ROOM_IN_USE"
)

// IsMatrixError reports whether err is a *MatrixError with the given code.
func IsMatrixError(err error, code string) bool {
	var matrixErr *MatrixError
	if errors.As(err, &matrixErr) {
		return matrixErr.Code == code
	}
	return false
}

// SerializationError reports a request body that could not be encoded
// as JSON. This does not occur for well-formed body types; it guards
// values JSON cannot represent (NaN or infinite floats, channels,
// cyclic structures).
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("matrix: encoding request body: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// URLParseError reports an assembled request URL that is not a valid
// absolute URL. The usual cause is a malformed or empty homeserver
// base URL; endpoint paths are not escaped by the request layer, so an
// endpoint that breaks URL grammar also lands here.
type URLParseError struct {
	// URL is the assembled URL string that failed to parse.
	URL string
	Err error
}

func (e *URLParseError) Error() string {
	return fmt.Sprintf("matrix: invalid request URL %q: %v", e.URL, e.Err)
}

func (e *URLParseError) Unwrap() error { return e.Err }
