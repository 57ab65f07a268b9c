package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileDocumentStore keeps each document as a JSON file under a base
// directory. Saves write a sibling temp file and rename it over the target,
// so readers never observe a torn document. A per-document mutex serialises
// whole Update cycles within the process; cross-process coordination is out
// of scope.
type FileDocumentStore struct {
	baseDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileDocumentStore ensures the base directory exists and returns a handle.
func NewFileDocumentStore(baseDir string) (*FileDocumentStore, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileDocumentStore{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Load reads the named document, returning (nil, nil) when it does not exist.
func (s *FileDocumentStore) Load(_ context.Context, name string) ([]byte, error) {
	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	return s.read(name)
}

// Save durably replaces the named document.
func (s *FileDocumentStore) Save(_ context.Context, name string, data []byte) error {
	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	return s.write(name, data)
}

// Update applies transform to the document while holding its lock.
func (s *FileDocumentStore) Update(_ context.Context, name string, transform func(raw []byte) ([]byte, error)) error {
	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	raw, err := s.read(name)
	if err != nil {
		return err
	}
	next, err := transform(raw)
	if err != nil {
		return err
	}
	return s.write(name, next)
}

func (s *FileDocumentStore) read(name string) ([]byte, error) {
	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read document %s: %w", name, err)
	}
	return raw, nil
}

func (s *FileDocumentStore) write(name string, data []byte) error {
	path := s.path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write document %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace document %s: %w", name, err)
	}
	return nil
}

func (s *FileDocumentStore) path(name string) string {
	return filepath.Join(s.baseDir, name+".json")
}

func (s *FileDocumentStore) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[name] = lock
	}
	return lock
}
