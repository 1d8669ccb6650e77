// Package blob stores payment proof images as opaque blobs. The rest of
// the system only ever sees the returned reference; image content is
// never interpreted.
package blob

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store persists opaque blobs and hands back references.
type Store interface {
	Put(data []byte) (string, error)
	Get(ref string) ([]byte, error)
}

// FSStore keeps blobs as flat files under a single directory.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Put(data []byte) (string, error) {
	ref := uuid.New().String()
	if err := os.WriteFile(filepath.Join(s.dir, ref), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return ref, nil
}

func (s *FSStore) Get(ref string) ([]byte, error) {
	// References are always server-generated UUIDs; reject anything else
	// so a crafted ref cannot escape the blob directory.
	if _, err := uuid.Parse(ref); err != nil {
		return nil, fmt.Errorf("invalid blob reference")
	}
	return os.ReadFile(filepath.Join(s.dir, ref))
}
