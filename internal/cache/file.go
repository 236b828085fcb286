package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"
)

// FileStore keeps the address on the first line of a plain text file
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a file backed store
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		path:   path,
		logger: logger.With(zap.String("cache_file", path)),
	}
}

// Path returns the cache file path
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the first line of the cache file, trimmed.
// A missing file is not an error.
func (s *FileStore) Load(_ context.Context) (string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("Cache file does not exist yet")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to open cache file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read cache file: %w", err)
	}
	return "", nil
}

// Save truncates the cache file and writes ip followed by a newline
func (s *FileStore) Save(_ context.Context, ip string) error {
	if err := os.WriteFile(s.path, []byte(ip+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Close is a no-op for file stores
func (s *FileStore) Close() error {
	return nil
}
