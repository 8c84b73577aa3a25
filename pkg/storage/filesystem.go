package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists generated export artifacts under a base directory.
type FileStore struct {
	baseDir string
}

// NewFileStore ensures the base directory exists and returns a store.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Save writes data under the given relative path and returns that path.
func (s *FileStore) Save(relPath string, data []byte) (string, error) {
	clean, err := s.resolve(relPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return "", fmt.Errorf("create parent dir: %w", err)
	}
	if err := os.WriteFile(clean, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return relPath, nil
}

// Open returns the file at the given relative path.
func (s *FileStore) Open(relPath string) (io.ReadCloser, error) {
	clean, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	return os.Open(clean)
}

// Remove deletes the stored file, ignoring files that are already gone.
func (s *FileStore) Remove(relPath string) error {
	clean, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(clean); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// resolve rejects paths that escape the base directory.
func (s *FileStore) resolve(relPath string) (string, error) {
	clean := filepath.Clean(relPath)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage path %q", relPath)
	}
	return filepath.Join(s.baseDir, clean), nil
}
