// Package media stores files uploaded with posts.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Dir is the directory name uploads live under, relative to the data path.
// Stored media paths start with it, e.g. "uploads/u1_3f2a...c9.png".
const Dir = "uploads"

// ErrTooLarge is returned when an upload exceeds the size limit.
var ErrTooLarge = errors.New("upload exceeds size limit")

// Storage manages uploaded files on the local filesystem.
// Thread-safe for concurrent operations.
type Storage struct {
	basePath string
	maxBytes int64
	mu       sync.RWMutex
}

// NewStorage creates the uploads directory if needed.
// maxBytes <= 0 disables the size check.
func NewStorage(basePath string, maxBytes int64) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &Storage{basePath: basePath, maxBytes: maxBytes}, nil
}

// Save writes an upload for authorID and returns its media path.
// The file is named {author}_{uuid hex}.{ext}; ext comes from the
// client filename and must already have passed the allow-list.
func (s *Storage) Save(authorID, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return "", fmt.Errorf("filename %q has no extension", filename)
	}
	author := sanitize(authorID)
	if author == "" {
		return "", fmt.Errorf("author ID cannot be empty")
	}

	name := fmt.Sprintf("%s_%s.%s", author, strings.ReplaceAll(uuid.NewString(), "-", ""), ext)

	tmp, err := os.CreateTemp(s.basePath, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return "", ErrTooLarge
	}
	if n == 0 {
		return "", fmt.Errorf("upload is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Rename(tmpName, filepath.Join(s.basePath, name)); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return path.Join(Dir, name), nil
}

// Delete removes the file behind a media path. Missing files are not an error.
func (s *Storage) Delete(mediaPath string) error {
	full, err := s.Path(mediaPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	return nil
}

// Exists checks if the file behind a media path is present.
func (s *Storage) Exists(mediaPath string) bool {
	full, err := s.Path(mediaPath)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err = os.Stat(full)
	return err == nil
}

// Path resolves a media path to a filesystem path inside the uploads
// directory. Paths that would escape it are rejected.
func (s *Storage) Path(mediaPath string) (string, error) {
	name, ok := strings.CutPrefix(mediaPath, Dir+"/")
	if !ok || name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid media path %q", mediaPath)
	}
	return filepath.Join(s.basePath, name), nil
}

// sanitize keeps the characters that are safe in a file name.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, s)
}
