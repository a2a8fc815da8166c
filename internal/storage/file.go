package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FileStore keeps one <key>.json file per key under a root directory.
// Writes replace the whole file; Update holds a per-key mutex across the
// read-modify-write cycle so concurrent webhook deliveries for the same chat
// cannot lose each other's writes.
type FileStore struct {
	root   string
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFileStore(root string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o775); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", root, err)
	}
	return &FileStore{
		root:   root,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

func (s *FileStore) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.root, key+".json")
}

func (s *FileStore) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		s.logger.Error("Failed to read storage file",
			zap.Error(err),
			zap.String("file", s.path(key)))
		return nil, false, err
	}
	return data, true, nil
}

func (s *FileStore) Put(key string, value []byte) error {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	return s.write(key, value)
}

func (s *FileStore) Update(key string, fn func(current []byte) ([]byte, error)) error {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	current, _, err := s.Get(key)
	if err != nil {
		// Unreadable content degrades to an empty value; fn decides what that
		// means for its document.
		current = nil
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	return s.write(key, next)
}

func (s *FileStore) write(key string, value []byte) error {
	if err := os.WriteFile(s.path(key), value, 0o664); err != nil {
		s.logger.Error("Failed to write storage file",
			zap.Error(err),
			zap.String("file", s.path(key)))
		return err
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error("Failed to delete storage file",
			zap.Error(err),
			zap.String("file", s.path(key)))
		return err
	}
	return nil
}

func (s *FileStore) Close() error {
	// Nothing to close for file-backed storage
	return nil
}
