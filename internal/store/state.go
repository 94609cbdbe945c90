package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// StateStore is the durable backing for the session collection and the
// current-session pointer. Load returns the last saved snapshot, or nil if
// nothing was ever saved. Save replaces the snapshot as a single unit, so a
// reader never observes the session list and the pointer out of sync.
type StateStore interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Close() error
}

// MemoryStateStore keeps the snapshot in memory. Used in tests; SaveErr and
// LoadErr inject backend failures.
type MemoryStateStore struct {
	mu      sync.Mutex
	data    []byte
	SaveErr error
	LoadErr error
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{}
}

func (m *MemoryStateStore) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.data == nil {
		return nil, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *MemoryStateStore) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.data = make([]byte, len(data))
	copy(m.data, data)
	return nil
}

func (m *MemoryStateStore) Close() error { return nil }

// FileStateStore persists the snapshot to a single JSON file, written via a
// temp file and rename so a crash mid-write cannot truncate the state.
type FileStateStore struct {
	path string
}

func NewFileStateStore(path string) (*FileStateStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	return &FileStateStore{path: path}, nil
}

func (f *FileStateStore) Load() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	return data, nil
}

func (f *FileStateStore) Save(data []byte) error {
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (f *FileStateStore) Close() error { return nil }
