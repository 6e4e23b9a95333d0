package artifact

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is an in-process Store. Data is copied on save and retrieval
// to avoid accidental external mutation of internal buffers.
type InMemoryStore struct {
	mu    sync.RWMutex
	files map[string]memFile
	now   func() time.Time
}

type memFile struct {
	data     []byte
	modified time.Time
}

// NewInMemoryStore returns an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{files: make(map[string]memFile), now: time.Now}
}

// Save stores (or overwrites) the file. The input slice is copied.
func (s *InMemoryStore) Save(name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = memFile{data: bytes.Clone(data), modified: s.now()}
	return nil
}

// Delete removes the file if present or returns ErrNotFound.
func (s *InMemoryStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(s.files, name)
	return nil
}

// List implements Store.
func (s *InMemoryStore) List() ([]FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := make([]FileInfo, 0, len(s.files))
	for name, f := range s.files {
		files = append(files, FileInfo{Name: name, Size: int64(len(f.data)), Modified: f.modified})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Open implements Store.
func (s *InMemoryStore) Open(name string) (io.ReadSeekCloser, FileInfo, error) {
	if err := ValidateName(name); err != nil {
		return nil, FileInfo{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[name]
	if !ok {
		return nil, FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return readSeekNopCloser{bytes.NewReader(bytes.Clone(f.data))},
		FileInfo{Name: name, Size: int64(len(f.data)), Modified: f.modified}, nil
}

type readSeekNopCloser struct{ *bytes.Reader }

func (readSeekNopCloser) Close() error { return nil }
