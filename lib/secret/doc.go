// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret stores sensitive material — access tokens and
// passwords — in memory the Go runtime cannot touch.
//
// A Buffer lives in an anonymous mmap region outside the Go heap,
// locked into RAM with mlock (no swap) and excluded from core dumps
// with madvise(MADV_DONTDUMP). The garbage collector never sees the
// region, so the secret is never copied or relocated behind the
// caller's back. Close zeros the contents and unmaps the region;
// after Close any read panics.
package secret
