package memory

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"campanha/internal/blob"
)

type Store struct {
	mu    sync.Mutex
	items map[string][]byte
	types map[string]string
}

func New() *Store {
	return &Store{items: map[string][]byte{}, types: map[string]string{}}
}

// NewFromDir seeds the store with every regular file under base, keyed by
// its slash-separated path relative to base. A missing directory yields an
// empty store.
func NewFromDir(base string) (*Store, error) {
	s := New()
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == base {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		s.items[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *Store) Put(_ context.Context, key string, data []byte, opts blob.PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; ok && !opts.Overwrite {
		return blob.ErrExists
	}
	s.items[key] = append([]byte(nil), data...)
	s.types[key] = opts.ContentType
	return nil
}

// ContentType returns the content type the key was last written with.
func (s *Store) ContentType(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.types[key]
}

// Len returns the number of stored blobs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
