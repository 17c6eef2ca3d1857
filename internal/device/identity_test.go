package device

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolve_ExplicitIDWins(t *testing.T) {
	ident, err := Resolve(" d1 ", "Pixel 8", filepath.Join(t.TempDir(), "id"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ident.ID != "d1" || ident.Name != "Pixel 8" {
		t.Fatalf("unexpected identity %+v", ident)
	}
}

func TestResolve_PersistsGeneratedID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "device_id")

	first, err := Resolve("", "", path)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if first.ID == "" || first.ID == FallbackID {
		t.Fatalf("expected a generated id, got %q", first.ID)
	}
	if first.Name == "" {
		t.Fatalf("expected a default name")
	}

	second, err := Resolve("", "", path)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("id should be stable across runs: %q != %q", second.ID, first.ID)
	}

	raw, _ := os.ReadFile(path)
	if strings.TrimSpace(string(raw)) != first.ID {
		t.Fatalf("id file does not hold the id")
	}
}

func TestResolve_FallsBack(t *testing.T) {
	ident, err := Resolve("", "", "")
	if err == nil {
		t.Fatalf("expected an informational error")
	}
	if ident.ID != FallbackID {
		t.Fatalf("expected fallback id, got %q", ident.ID)
	}
}
