// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("allocates and closes", func(t *testing.T) {
		buffer, err := New(32)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if buffer.Len() != 32 {
			t.Errorf("Len: got %d, want 32", buffer.Len())
		}
		if err := buffer.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})

	t.Run("rejects non-positive size", func(t *testing.T) {
		if _, err := New(0); err == nil {
			t.Error("expected error for size 0")
		}
		if _, err := New(-1); err == nil {
			t.Error("expected error for negative size")
		}
	})
}

func TestNewFromBytes(t *testing.T) {
	source := []byte("syt_access_token")
	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "syt_access_token" {
		t.Errorf("String: got %q", got)
	}

	// The caller's slice must be scrubbed.
	for index, value := range source {
		if value != 0 {
			t.Fatalf("source[%d] not zeroed: %d", index, value)
		}
	}
}

func TestNewFromBytesEmpty(t *testing.T) {
	if _, err := NewFromBytes(nil); err == nil {
		t.Error("expected error for empty source")
	}
}

func TestNewFromString(t *testing.T) {
	buffer, err := NewFromString("hunter2")
	if err != nil {
		t.Fatalf("NewFromString failed: %v", err)
	}
	defer buffer.Close()

	if got := string(buffer.Bytes()); got != "hunter2" {
		t.Errorf("Bytes: got %q", got)
	}

	if _, err := NewFromString(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	buffer, err := NewFromString("x")
	if err != nil {
		t.Fatalf("NewFromString failed: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestReadAfterClosePanics(t *testing.T) {
	buffer, err := NewFromString("x")
	if err != nil {
		t.Fatalf("NewFromString failed: %v", err)
	}
	buffer.Close()

	defer func() {
		if recover() == nil {
			t.Error("expected panic reading closed buffer")
		}
	}()
	_ = buffer.Bytes()
}

func TestReadFromPath(t *testing.T) {
	t.Run("trims whitespace", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		if err := os.WriteFile(path, []byte("  tok123\n"), 0o600); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}

		buffer, err := ReadFromPath(path)
		if err != nil {
			t.Fatalf("ReadFromPath failed: %v", err)
		}
		defer buffer.Close()

		if got := buffer.String(); got != "tok123" {
			t.Errorf("got %q, want %q", got, "tok123")
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty")
		if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
		if _, err := ReadFromPath(path); err == nil {
			t.Error("expected error for whitespace-only file")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := ReadFromPath(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
