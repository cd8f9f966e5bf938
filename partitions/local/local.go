package local

import (
	"context"
	"sync"

	"github.com/dhowell/go-offline-cache/partitions"
)

// BasicStore is an in-memory partition store backed by nested maps. It is
// primarily useful for tests and single-process deployments that do not need
// entries to survive a restart.
type BasicStore struct {
	entries map[string]map[string]*partitions.Entry

	lock sync.RWMutex
}

func (bs *BasicStore) Match(_ context.Context, partition, key string) (*partitions.Entry, error) {
	bs.lock.RLock()
	defer bs.lock.RUnlock()

	p, found := bs.entries[partition]
	if !found {
		return nil, partitions.ErrNoEntry
	}
	e, found := p[key]
	if !found {
		return nil, partitions.ErrNoEntry
	}

	return e, nil
}

func (bs *BasicStore) Put(_ context.Context, partition, key string, e *partitions.Entry) error {
	bs.lock.Lock()
	defer bs.lock.Unlock()

	p, found := bs.entries[partition]
	if !found {
		p = make(map[string]*partitions.Entry)
		bs.entries[partition] = p
	}
	p[key] = e

	return nil
}

func (bs *BasicStore) Delete(_ context.Context, partition, key string) error {
	bs.lock.Lock()
	defer bs.lock.Unlock()

	if p, found := bs.entries[partition]; found {
		delete(p, key)
	}

	return nil
}

func (bs *BasicStore) Keys(_ context.Context, partition string) ([]string, error) {
	bs.lock.RLock()
	defer bs.lock.RUnlock()

	p, found := bs.entries[partition]
	if !found {
		return nil, nil
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	return keys, nil
}

func (bs *BasicStore) Partitions(_ context.Context) ([]string, error) {
	bs.lock.RLock()
	defer bs.lock.RUnlock()

	names := make([]string, 0, len(bs.entries))
	for name := range bs.entries {
		names = append(names, name)
	}
	return names, nil
}

func (bs *BasicStore) DeletePartition(_ context.Context, partition string) error {
	bs.lock.Lock()
	defer bs.lock.Unlock()

	delete(bs.entries, partition)

	return nil
}

func NewBasicStore() *BasicStore {
	return &BasicStore{
		entries: make(map[string]map[string]*partitions.Entry),
	}
}
