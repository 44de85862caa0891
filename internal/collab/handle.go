package collab

import (
	"context"
	"sync"

	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/rs/zerolog/log"
)

// Owner holds a Store on behalf of a user session. Once Close is called no new
// lease can be taken; the store itself closes when the last lease is released.
type Owner struct {
	store *Store

	mu     sync.Mutex
	refs   int
	closed bool
}

// NewOwner takes ownership of store
func NewOwner(store *Store) *Owner {
	return &Owner{store: store}
}

// Weak returns a non-owning handle to the store
func (o *Owner) Weak() *Weak {
	return &Weak{owner: o}
}

// Closed reports whether the owner has been torn down
func (o *Owner) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Close tears the owner down. Outstanding leases keep the store open until released.
func (o *Owner) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	idle := o.refs == 0
	o.mu.Unlock()

	if idle {
		return o.store.Close()
	}
	return nil
}

func (o *Owner) acquire() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	o.refs++
	return true
}

func (o *Owner) release() {
	o.mu.Lock()
	o.refs--
	last := o.closed && o.refs == 0
	o.mu.Unlock()

	if last {
		if err := o.store.Close(); err != nil {
			log.Error().Err(err).Int64("uid", o.store.UID()).Msg("Failed to close collab store")
		}
	}
}

// Weak is a non-owning reference to a collab store
type Weak struct {
	owner *Owner
}

// Upgrade takes a lease on the store. It fails once the owner is closed.
func (w *Weak) Upgrade() (domain.CollabDBLease, bool) {
	if w == nil || w.owner == nil || !w.owner.acquire() {
		return nil, false
	}
	return &Lease{owner: w.owner}, true
}

// Lease keeps the store open while held
type Lease struct {
	owner *Owner
	once  sync.Once
}

// GetEncodedCollab reads an object through the lease
func (l *Lease) GetEncodedCollab(ctx context.Context, uid int64, objectID string) (*domain.EncodedCollab, error) {
	return l.owner.store.GetEncodedCollab(ctx, uid, objectID)
}

// ListObjectIDs lists objects through the lease
func (l *Lease) ListObjectIDs(ctx context.Context, uid int64, collabType domain.CollabType) ([]string, error) {
	return l.owner.store.ListObjectIDs(ctx, uid, collabType)
}

// Release drops the lease. Calling it more than once is a no-op.
func (l *Lease) Release() {
	l.once.Do(l.owner.release)
}
