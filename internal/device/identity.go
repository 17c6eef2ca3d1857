// Package device resolves the identity this forwarder reports to the backend.
package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// FallbackID is used when no identity can be resolved or persisted.
const FallbackID = "mobile-device"

// Identity names this device for heartbeats and channel membership.
type Identity struct {
	ID   string
	Name string
}

// Resolve picks the device identity. An explicit id wins; otherwise the id
// persisted in idFile is reused, or a new one is generated and saved there.
// The returned error is informational: Identity is always usable.
func Resolve(id, name, idFile string) (Identity, error) {
	ident := Identity{
		ID:   strings.TrimSpace(id),
		Name: strings.TrimSpace(name),
	}
	if ident.Name == "" {
		ident.Name = defaultName()
	}
	if ident.ID != "" {
		return ident, nil
	}

	if idFile == "" {
		ident.ID = FallbackID
		return ident, errors.New("device: no id and no id file configured")
	}

	persisted, err := loadOrCreate(idFile)
	if err != nil {
		ident.ID = FallbackID
		return ident, err
	}
	ident.ID = persisted
	return ident, nil
}

func loadOrCreate(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		if v := strings.TrimSpace(string(raw)); v != "" {
			return v, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("device: read id file: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("device: create id dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("device: write id file: %w", err)
	}
	return id, nil
}

func defaultName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "forwarder"
	}
	return fmt.Sprintf("%s (%s/%s)", host, runtime.GOOS, runtime.GOARCH)
}
