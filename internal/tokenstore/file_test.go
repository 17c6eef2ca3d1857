package tokenstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStore_SaveTokenClear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token")

	s, err := NewFileStore(path, "secret", "device-1")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, err := s.Token(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken before save, got %v", err)
	}

	if err := s.Save(ctx, "bearer-123"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if strings.Contains(string(raw), "bearer-123") {
		t.Fatalf("token must not be stored in plain text")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("unexpected file mode %o", perm)
	}

	got, err := s.Token(ctx)
	if err != nil || got != "bearer-123" {
		t.Fatalf("Token() = %q, %v", got, err)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := s.Token(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken after clear, got %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clearing twice should be fine: %v", err)
	}
}

func TestFileStore_OtherDeviceCannotDecrypt(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token")

	a, _ := NewFileStore(path, "secret", "device-a")
	if err := a.Save(ctx, "bearer-123"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b, _ := NewFileStore(path, "secret", "device-b")
	if _, err := b.Token(ctx); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestFileStore_Tampered(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token")

	s, _ := NewFileStore(path, "secret", "d1")
	if err := s.Save(ctx, "bearer-123"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, _ := os.ReadFile(path)
	raw[len(raw)-1] ^= 0xff
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := s.Token(ctx); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestNewFileStore_Validation(t *testing.T) {
	if _, err := NewFileStore("", "secret", "d1"); err == nil {
		t.Fatalf("empty path should fail")
	}
	if _, err := NewFileStore("x", "", "d1"); err == nil {
		t.Fatalf("empty secret should fail")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("")

	if _, err := s.Token(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	_ = s.Save(ctx, "t")
	if tok, _ := s.Token(ctx); tok != "t" {
		t.Fatalf("unexpected token %q", tok)
	}
	_ = s.Clear(ctx)
	if _, err := s.Token(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken after clear, got %v", err)
	}
}
