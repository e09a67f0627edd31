// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package matrix

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// Sync performs an incremental sync against the homeserver. Leave
// options.Since empty for the initial sync; set options.Timeout (and
// SetTimeout) to long-poll. Sync is stateless on the server side — the
// position travels as the since query parameter — so independent
// callers can sync concurrently on the same Session.
func (s *Session) Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error) {
	request := NewRequest(http.MethodGet, "/sync")
	if options.Since != "" {
		request.Params["since"] = options.Since
	}
	if options.SetTimeout {
		request.Params["timeout"] = strconv.Itoa(options.Timeout)
	}
	if options.Filter != "" {
		request.Params["filter"] = options.Filter
	}

	response, err := Send[SyncResponse](ctx, s, request)
	if err != nil {
		return nil, fmt.Errorf("matrix: sync failed: %w", err)
	}
	return &response, nil
}
