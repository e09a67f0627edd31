// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package id

import "fmt"

// splitSigilID validates the common "<sigil>localpart:server" shape
// shared by user IDs ('@'), room IDs ('!'), and room aliases ('#').
// Returns the localpart and server name.
func splitSigilID(kind string, sigil byte, raw string) (localpart, server string, err error) {
	if raw == "" {
		return "", "", fmt.Errorf("empty %s", kind)
	}
	if raw[0] != sigil {
		return "", "", fmt.Errorf("%s must start with %q: %q", kind, string(sigil), raw)
	}

	colon := -1
	for index := 1; index < len(raw); index++ {
		if raw[index] == ':' {
			colon = index
			break
		}
	}
	if colon < 0 {
		return "", "", fmt.Errorf("%s missing ':server' suffix: %q", kind, raw)
	}
	if colon == 1 {
		return "", "", fmt.Errorf("%s has empty localpart: %q", kind, raw)
	}
	if colon == len(raw)-1 {
		return "", "", fmt.Errorf("%s has empty server name: %q", kind, raw)
	}
	return raw[1:colon], raw[colon+1:], nil
}
