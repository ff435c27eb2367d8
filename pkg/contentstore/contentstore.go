// Package contentstore handles on-disk storage of downloaded page bytes.
// Files are keyed by a human-readable slug plus a short hash of the
// normalized URL so repeated runs reuse the same paths.
package contentstore

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mlaurent/bookmark-audit/models"
)

const contentDir = "content"

// Store writes and reads downloaded content under a base directory.
type Store struct {
	baseDir string
	maxAge  time.Duration // stored content older than this is stale; <=0 never expires
}

// New ensures the content directory exists.
func New(baseDir string, maxAge time.Duration) (*Store, error) {
	dir := filepath.Join(baseDir, contentDir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create content directory: %w", err)
	}
	return &Store{baseDir: baseDir, maxAge: maxAge}, nil
}

var invalidFilenameChar = regexp.MustCompile(`[^a-zA-Z0-9\-_]+`)

func slug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		safe := invalidFilenameChar.ReplaceAllString(rawURL, "_")
		return strings.Trim(safe, "_")
	}
	hostPart := strings.ReplaceAll(u.Host, ".", "_")
	pathPart := invalidFilenameChar.ReplaceAllString(strings.TrimPrefix(u.Path, "/"), "_")
	pathPart = strings.Trim(pathPart, "_")
	if len(pathPart) > 80 {
		pathPart = pathPart[:80]
	}
	if pathPart == "" {
		return hostPart
	}
	return fmt.Sprintf("%s_%s", hostPart, pathPart)
}

// Path returns the on-disk location for a URL's content.
func (s *Store) Path(rawURL string) (string, error) {
	normalized, err := models.NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256([]byte(normalized))
	filename := fmt.Sprintf("%s-%x.html", slug(rawURL), hash[:6])
	return filepath.Join(s.baseDir, contentDir, filename), nil
}

// Put stores page bytes and returns the file path.
func (s *Store) Put(rawURL string, data []byte) (string, error) {
	path, err := s.Path(rawURL)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("write content: %w", err)
	}
	return path, nil
}

// Get retrieves stored bytes when present and fresh. The second return is
// false on a miss or a stale file.
func (s *Store) Get(rawURL string) ([]byte, bool, error) {
	path, err := s.Path(rawURL)
	if err != nil {
		return nil, false, err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("stat content: %w", err)
	}
	if s.maxAge > 0 && time.Since(info.ModTime()) > s.maxAge {
		return nil, false, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, false, fmt.Errorf("read content: %w", err)
	}
	return data, true, nil
}
