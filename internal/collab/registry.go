package collab

import (
	"context"
	"fmt"
	"sync"

	"github.com/Rrens/workspace-sync/internal/config"
	"github.com/Rrens/workspace-sync/internal/domain"
)

// Registry manages the collab store owner of each local user
type Registry struct {
	cfg    config.StorageConfig
	secret string
	owners map[int64]*Owner
	mu     sync.RWMutex
}

// NewRegistry creates a new registry rooted at cfg.DataDir
func NewRegistry(cfg config.StorageConfig, secret string) *Registry {
	return &Registry{
		cfg:    cfg,
		secret: secret,
		owners: make(map[int64]*Owner),
	}
}

// Owner returns the store owner of uid, opening the store if needed
func (r *Registry) Owner(ctx context.Context, uid int64) (*Owner, error) {
	r.mu.RLock()
	if owner, ok := r.owners[uid]; ok && !owner.Closed() {
		r.mu.RUnlock()
		return owner, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if owner, ok := r.owners[uid]; ok {
		if !owner.Closed() {
			return owner, nil
		}
		delete(r.owners, uid)
	}

	store, err := OpenStore(ctx, r.cfg.CollabPath(uid), uid, r.cfg, r.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open collab store for uid %d: %w", domain.ErrCollabDBUnavailable, uid, err)
	}

	owner := NewOwner(store)
	r.owners[uid] = owner
	return owner, nil
}

// Handle returns a weak handle to the collab store of uid
func (r *Registry) Handle(ctx context.Context, uid int64) (domain.CollabDBHandle, error) {
	owner, err := r.Owner(ctx, uid)
	if err != nil {
		return nil, err
	}
	return owner.Weak(), nil
}

// CloseUser tears down the store owner of uid. Existing weak handles stop upgrading.
func (r *Registry) CloseUser(uid int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owners[uid]; ok {
		delete(r.owners, uid)
		return owner.Close()
	}

	return nil
}

// CloseAll closes every store owner
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for uid, owner := range r.owners {
		owner.Close()
		delete(r.owners, uid)
	}
}

// Size returns the number of open store owners
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}
