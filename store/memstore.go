package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/patronhq/poolengine/pool"
)

// MemStore is an in-memory pool.Store. Snapshots are gob-encoded on save,
// so what comes back is exactly what a persistent store would return.
type MemStore struct {
	mu    sync.Mutex
	pools map[string][]byte
}

// Compile-time interface check.
var _ pool.Store = (*MemStore)(nil)

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{pools: make(map[string][]byte)}
}

// SavePool stores a snapshot of st.
func (m *MemStore) SavePool(st *pool.State) error {
	if st == nil {
		return fmt.Errorf("%w: pool state", ErrNilParam)
	}
	data, err := encodeGob(st)
	if err != nil {
		return fmt.Errorf("store: encode pool %s: %w", st.ID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools[st.ID] = data
	return nil
}

// LoadPools returns every stored snapshot ordered by id.
func (m *MemStore) LoadPools() ([]*pool.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.pools))
	for id := range m.pools {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*pool.State, 0, len(ids))
	for _, id := range ids {
		var st pool.State
		if err := decodeGob(m.pools[id], &st); err != nil {
			return nil, fmt.Errorf("%w: pool %s: %v", ErrCorruptRecord, id, err)
		}
		out = append(out, &st)
	}
	return out, nil
}
