package storage

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// FileStore is a KV backed by a single YAML file. Every write rewrites
// the whole file through a temp-file rename, so a crash never leaves a
// half-written store behind.
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// NewFileStore opens or creates the store at path. A corrupt file is
// logged and treated as empty; the next write replaces it.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, data: make(map[string]string)}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First launch, nothing persisted yet.
	case err != nil:
		return nil, errors.Wrap(err, "failed to read storage file")
	default:
		if err := yaml.Unmarshal(raw, &s.data); err != nil {
			zlog.Warn().Str("path", path).Msgf("storage: corrupt file, starting empty: %v", err)
			s.data = make(map[string]string)
		}
	}
	return s, nil
}

// GetItem returns the stored value for key.
func (s *FileStore) GetItem(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	return v, ok, nil
}

// SetItem durably stores value under key.
func (s *FileStore) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data[key]
	s.data[key] = value
	if err := s.flushLocked(); err != nil {
		// Roll back the in-memory map so a failed write is invisible.
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

// MultiRemove removes all given keys in a single file rewrite.
func (s *FileStore) MultiRemove(keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]string)
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			removed[k] = v
			delete(s.data, k)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	if err := s.flushLocked(); err != nil {
		for k, v := range removed {
			s.data[k] = v
		}
		return err
	}
	return nil
}

// flushLocked writes the map to disk via temp file + rename.
// Must be called with lock held.
func (s *FileStore) flushLocked() error {
	raw, err := yaml.Marshal(s.data)
	if err != nil {
		return errors.Wrap(err, "failed to marshal storage file")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".kidreel-*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp storage file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to write storage file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to close storage file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to replace storage file")
	}
	return nil
}
