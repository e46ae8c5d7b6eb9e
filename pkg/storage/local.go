package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore writes uploaded asset blobs to a directory on disk. Blobs are
// immutable once written; rows reference them by storage key.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create asset dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save streams the content to a uuid-keyed file and returns the storage key.
func (s *LocalStore) Save(filename string, content io.Reader) (string, error) {
	key := uuid.New().String() + filepath.Ext(filename)

	file, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return key, nil
}

func (s *LocalStore) Open(key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.dir, key))
}
