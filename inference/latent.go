package inference

import "sync"

// latentKey identifies one cached latent-state vector: which root
// produced it, and at what search-path depth.
type latentKey struct {
	batchIndex int32
	depth      int32
}

// LatentStore caches the latent-state vectors the dynamics function
// produces, keyed by which root and which depth they belong to. The
// search core never touches latent vectors directly — it only ever
// carries the (batch_index, current_latent_state_index) pair a Node
// stores, which Evaluator resolves through a LatentStore on the caller's
// behalf.
type LatentStore interface {
	Latent(batchIndex, depth int32) ([]float32, bool)
	Store(batchIndex, depth int32, latent []float32)
}

// MemoryLatentStore is an in-process LatentStore backed by a map. A
// fresh search (a new Roots batch) should use a fresh MemoryLatentStore,
// since latent vectors from an earlier search are meaningless once its
// tree is discarded.
type MemoryLatentStore struct {
	mu   sync.RWMutex
	data map[latentKey][]float32
}

// NewMemoryLatentStore returns an empty store.
func NewMemoryLatentStore() *MemoryLatentStore {
	return &MemoryLatentStore{data: make(map[latentKey][]float32)}
}

func (s *MemoryLatentStore) Latent(batchIndex, depth int32) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[latentKey{batchIndex, depth}]
	return v, ok
}

func (s *MemoryLatentStore) Store(batchIndex, depth int32, latent []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]float32, len(latent))
	copy(cp, latent)
	s.data[latentKey{batchIndex, depth}] = cp
}

// SeedRoots installs the representation network's output for every root
// (depth 0) before the first simulation round. Producing these vectors
// is the representation network's job, out of scope for this repo; this
// just gives the search driver a place to install them.
func (s *MemoryLatentStore) SeedRoots(latents [][]float32) {
	for i, l := range latents {
		s.Store(int32(i), 0, l)
	}
}
