package testutil

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/tbxark/mailagent/objstore"
)

// ObjectStore is an in-memory objstore.Store.
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	fetched []string
}

var _ objstore.Store = (*ObjectStore)(nil)

func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: map[string][]byte{}}
}

func (s *ObjectStore) Put(url string, data []byte) {
	s.mu.Lock()
	s.objects[url] = data
	s.mu.Unlock()
}

func (s *ObjectStore) Download(ctx context.Context, url, dst string) error {
	s.mu.Lock()
	data, ok := s.objects[url]
	s.fetched = append(s.fetched, dst)
	s.mu.Unlock()
	if !ok {
		return errors.Wrap(objstore.ErrNotFound, url)
	}
	return os.WriteFile(dst, data, 0o600)
}

// Fetched lists the local paths written so far.
func (s *ObjectStore) Fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetched...)
}
