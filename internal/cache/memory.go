package cache

import (
	"sync"

	"github.com/ralt/branchdiff/internal/fetcher"
)

type memoryBackend struct {
	mu      sync.Mutex
	entries map[string]*cached
}

// NewMemoryStore creates a Store that keeps snapshots in memory only.
// Dir and Codec in opts are ignored.
func NewMemoryStore(f fetcher.Fetcher, opts Options) *Cache {
	return &Cache{
		backend: &memoryBackend{entries: make(map[string]*cached)},
		fetcher: f,
		opts:    opts,
	}
}

func (b *memoryBackend) describe(branch, arch string) string {
	return "memory:" + Key(branch, arch)
}

func (b *memoryBackend) load(branch, arch string) (*cached, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries[Key(branch, arch)], nil
}

func (b *memoryBackend) save(branch, arch string, c *cached) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[Key(branch, arch)] = c
	return nil
}
