package core

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MaxBlockInMemory bounds the sliding window BlockStorage keeps resident.
const MaxBlockInMemory = 100

// BlockRepository is the durable persistence collaborator. Only the
// interface is specified here; a concrete SQL-backed implementation is out
// of scope.
type BlockRepository interface {
	BatchSave(block *Block) error
	DeleteByID(id Hash) error
	LoadLastNBlocks() ([]*Block, error)
	LoadBlocksOffset(limit, offset int) ([]*Block, error)
}

// BlockStorage (C6) maintains a sliding window of the last N blocks in
// memory plus a pointer to the current tip. Membership over the window is
// served from an LRU sized identically to the window so eviction in the
// two structures always agrees.
type BlockStorage struct {
	mu sync.RWMutex

	window   []*Block // oldest first
	maxSize  int
	membership *lru.Cache[Hash, struct{}]
}

// NewBlockStorage builds an empty window of capacity maxSize (use
// MaxBlockInMemory unless a test needs something smaller).
func NewBlockStorage(maxSize int) *BlockStorage {
	if maxSize <= 0 {
		maxSize = MaxBlockInMemory
	}
	cache, _ := lru.New[Hash, struct{}](maxSize)
	return &BlockStorage{maxSize: maxSize, membership: cache}
}

// GetLast returns the current tip, or nil if the chain is empty.
func (s *BlockStorage) GetLast() *Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.window) == 0 {
		return nil
	}
	return s.window[len(s.window)-1]
}

// Push appends block as the new tip, evicting the oldest window entry once
// capacity is exceeded.
func (s *BlockStorage) Push(block *Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = append(s.window, block)
	s.membership.Add(block.ID, struct{}{})
	if len(s.window) > s.maxSize {
		evicted := s.window[0]
		s.window = s.window[1:]
		s.membership.Remove(evicted.ID)
	}
}

// PopLast removes and returns the current tip, or nil if empty.
func (s *BlockStorage) PopLast() *Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.window) == 0 {
		return nil
	}
	last := s.window[len(s.window)-1]
	s.window = s.window[:len(s.window)-1]
	s.membership.Remove(last.ID)
	return last
}

// Has reports whether id is within the in-memory window.
func (s *BlockStorage) Has(id Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.membership.Contains(id)
}

// Len reports the current window size.
func (s *BlockStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.window)
}

// LoadFrom seeds the window from a durable repository's last-N load,
// called once at startup after genesis replay.
func (s *BlockStorage) LoadFrom(blocks []*Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(blocks) > s.maxSize {
		blocks = blocks[len(blocks)-s.maxSize:]
	}
	s.window = append([]*Block(nil), blocks...)
	s.membership.Purge()
	for _, b := range s.window {
		s.membership.Add(b.ID, struct{}{})
	}
}

// InMemoryBlockRepository is a fake BlockRepository for tests and
// single-node local runs; it never hits disk.
type InMemoryBlockRepository struct {
	mu     sync.Mutex
	blocks map[Hash]*Block
	order  []Hash
}

func NewInMemoryBlockRepository() *InMemoryBlockRepository {
	return &InMemoryBlockRepository{blocks: make(map[Hash]*Block)}
}

func (r *InMemoryBlockRepository) BatchSave(block *Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.blocks[block.ID]; !exists {
		r.order = append(r.order, block.ID)
	}
	r.blocks[block.ID] = block
	return nil
}

func (r *InMemoryBlockRepository) DeleteByID(id Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blocks, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *InMemoryBlockRepository) LoadLastNBlocks() ([]*Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := 0
	if len(r.order) > MaxBlockInMemory {
		start = len(r.order) - MaxBlockInMemory
	}
	out := make([]*Block, 0, len(r.order)-start)
	for _, id := range r.order[start:] {
		out = append(out, r.blocks[id])
	}
	return out, nil
}

func (r *InMemoryBlockRepository) LoadBlocksOffset(limit, offset int) ([]*Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offset >= len(r.order) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.order) {
		end = len(r.order)
	}
	out := make([]*Block, 0, end-offset)
	for _, id := range r.order[offset:end] {
		out = append(out, r.blocks[id])
	}
	return out, nil
}
