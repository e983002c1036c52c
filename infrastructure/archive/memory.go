package archive

import (
	"context"
	"sort"
	"sync"
)

// Object is a stored object.
type Object struct {
	Data     []byte
	Metadata Metadata
}

// MemoryBucket keeps objects in memory.
type MemoryBucket struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryBucket creates an empty bucket.
func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{objects: make(map[string]Object)}
}

// Put stores a copy of data under key.
func (b *MemoryBucket) Put(ctx context.Context, key string, data []byte, meta Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = Object{Data: append([]byte(nil), data...), Metadata: meta}
	return nil
}

// Get returns the object stored under key.
func (b *MemoryBucket) Get(key string) (Object, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.objects[key]
	return o, ok
}

// Keys returns the stored keys in order.
func (b *MemoryBucket) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close is a no-op.
func (b *MemoryBucket) Close() error { return nil }
