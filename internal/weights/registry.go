package weights

import (
	"sort"
	"sync"

	"github.com/specialistvlad/infergraph/internal/gerr"
)

// Registry owns weight blocks by ID.
type Registry struct {
	mu     sync.Mutex
	blocks map[string]*Block
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{blocks: make(map[string]*Block)}
}

// Register takes ownership of b. The registry holds no reference of its own;
// the block is dropped when the last graph referencing it releases it.
func (r *Registry) Register(b *Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blocks[b.ID]; ok {
		return gerr.New(gerr.AlreadyExists, "weight block %q", b.ID)
	}
	b.onRelease = r.drop
	r.blocks[b.ID] = b
	return nil
}

// Get returns the block with the given ID.
func (r *Registry) Get(id string) (*Block, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blocks[id]
	return b, ok
}

// IDs returns the registered block IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.blocks))
	for id := range r.blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live blocks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.blocks)
}

func (r *Registry) drop(b *Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blocks[b.ID] == b {
		delete(r.blocks, b.ID)
	}
}
