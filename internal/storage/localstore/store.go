// Package localstore is the synchronous local half of the persistence
// boundary: a capacity-bounded, string-keyed, string-valued store backed
// by one file per key. It is the fallback when no remote identity is
// present, and the durable mirror the running session always writes.
package localstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/tridinhbui/finpartner-ai/internal/logging"
)

// ErrQuotaExceeded is returned when a write would push the store past
// its byte capacity. Callers log and swallow it; in-memory state stays
// authoritative.
var ErrQuotaExceeded = errors.New("local store quota exceeded")

const defaultCapacityBytes = 8 << 20 // 8 MiB, roughly browser localStorage scale

var keySanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Store is a file-backed KV store with a total byte budget.
type Store struct {
	baseDir  string
	capacity int
	logger   logging.Logger

	mu    sync.Mutex
	sizes map[string]int
}

// New opens (creating if needed) a store rooted at baseDir. A
// non-positive capacity selects the default budget.
func New(baseDir string, capacity int) (*Store, error) {
	if strings.HasPrefix(baseDir, "~/") {
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, baseDir[2:])
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create local store dir: %w", err)
	}
	if capacity <= 0 {
		capacity = defaultCapacityBytes
	}
	s := &Store{
		baseDir:  baseDir,
		capacity: capacity,
		logger:   logging.NewComponentLogger("LocalStore"),
		sizes:    make(map[string]int),
	}
	if err := s.scan(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("scan local store: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".kv") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		key := strings.TrimSuffix(entry.Name(), ".kv")
		s.sizes[key] = int(info.Size())
	}
	return nil
}

// Get returns the value for key, with ok=false when absent.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Set writes value under key, enforcing the byte budget across all keys.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sanitized := sanitizeKey(key)
	total := len(value)
	for k, size := range s.sizes {
		if k == sanitized {
			continue
		}
		total += size
	}
	if total > s.capacity {
		return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, total, s.capacity)
	}

	if err := os.WriteFile(s.path(key), []byte(value), 0644); err != nil {
		return fmt.Errorf("write %s: %w", sanitized, err)
	}
	s.sizes[sanitized] = len(value)
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("delete %s: %v", key, err)
		return
	}
	delete(s.sizes, sanitizeKey(key))
}

func (s *Store) path(key string) string {
	return filepath.Join(s.baseDir, sanitizeKey(key)+".kv")
}

func sanitizeKey(key string) string {
	return keySanitizer.ReplaceAllString(key, "_")
}
