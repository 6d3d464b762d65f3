package storage

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry lazily creates and caches one collection handle per name.
// Entries persist for the process lifetime; there is no eviction, since
// the endpoint catalog, not the registry, is the source of truth for
// which collections exist.
//
// Concurrent first access for a previously-unseen name is collapsed with
// singleflight so two divergent handles are never created for one name.
type Registry struct {
	opener CollectionOpener

	mu      sync.RWMutex
	handles map[string]CollectionHandle
	group   singleflight.Group

	// onSize, when set, receives the handle count after each creation
	onSize func(n int)
}

// NewRegistry creates an empty registry over the given opener
func NewRegistry(opener CollectionOpener) *Registry {
	return &Registry{
		opener:  opener,
		handles: make(map[string]CollectionHandle),
	}
}

// OnSizeChange registers a callback invoked with the handle count after
// each new handle is created. Used to feed the collections gauge.
func (r *Registry) OnSizeChange(fn func(n int)) {
	r.onSize = fn
}

// GetOrCreate returns the handle for name, creating it on first reference.
// Repeated calls with the same name return a handle over the same
// underlying storage.
func (r *Registry) GetOrCreate(ctx context.Context, name string) (CollectionHandle, error) {
	if name == "" {
		return nil, ErrInvalidCollectionName
	}

	r.mu.RLock()
	handle, ok := r.handles[name]
	r.mu.RUnlock()
	if ok {
		return handle, nil
	}

	v, err, _ := r.group.Do(name, func() (interface{}, error) {
		// Re-check under the write path: another flight may have won
		// between the read above and this call.
		r.mu.RLock()
		existing, ok := r.handles[name]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}

		created, err := r.opener.OpenCollection(ctx, name)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.handles[name] = created
		n := len(r.handles)
		r.mu.Unlock()

		if r.onSize != nil {
			r.onSize(n)
		}
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(CollectionHandle), nil
}

// Len returns the number of handles currently held
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
