package tokenstore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const keyInfo = "sms-forwarder/token/v1"

// ErrCorrupt is returned when the token file cannot be decrypted.
var ErrCorrupt = errors.New("tokenstore: token file is corrupt or was written with another key")

// FileStore keeps the token in a single file encrypted with XChaCha20-Poly1305.
// The key is derived from a secret and the device id, so a token file copied
// to another device does not decrypt there.
type FileStore struct {
	path string
	key  []byte
	mu   sync.Mutex
}

// NewFileStore derives the encryption key and returns a store backed by path.
func NewFileStore(path, secret, deviceID string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("tokenstore: empty path")
	}
	if secret == "" {
		return nil, errors.New("tokenstore: empty secret")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), []byte(deviceID), []byte(keyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("tokenstore: derive key: %w", err)
	}

	return &FileStore{path: path, key: key}, nil
}

// Token reads and decrypts the token file.
func (s *FileStore) Token(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("tokenstore: read: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrCorrupt
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, []byte(s.path))
	if err != nil {
		return "", ErrCorrupt
	}
	if len(plain) == 0 {
		return "", ErrNoToken
	}
	return string(plain), nil
}

// Save encrypts token and atomically replaces the token file.
func (s *FileStore) Save(_ context.Context, token string) error {
	if token == "" {
		return errors.New("tokenstore: refusing to save an empty token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(token)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("tokenstore: nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, []byte(token), []byte(s.path))

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("tokenstore: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("tokenstore: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: chmod: %w", err)
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenstore: close: %w", err)
	}

	return os.Rename(tmpName, s.path)
}

// Clear deletes the token file.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("tokenstore: remove: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
