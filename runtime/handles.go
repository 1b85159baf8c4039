package runtime

import "sync"

// Handle is an opaque pinned reference to a managed object, stable across
// collections. Embedders hold handles where raw object pointers must not
// escape. 0 is never a valid handle.
type Handle uint64

// HandleStore maps handles to objects. Pinned objects stay reachable until
// unpinned.
type HandleStore struct {
	mu   sync.RWMutex
	next Handle
	objs map[Handle]*Object
}

// NewHandleStore creates an empty handle store.
func NewHandleStore() *HandleStore {
	return &HandleStore{objs: make(map[Handle]*Object)}
}

// Pin registers obj and returns its handle. Pinning nil returns 0.
func (hs *HandleStore) Pin(obj *Object) Handle {
	if obj == nil {
		return 0
	}
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.next++
	hs.objs[hs.next] = obj
	return hs.next
}

// Resolve returns the object behind h, or nil for 0 and unpinned handles.
func (hs *HandleStore) Resolve(h Handle) *Object {
	if h == 0 {
		return nil
	}
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return hs.objs[h]
}

// Unpin releases h.
func (hs *HandleStore) Unpin(h Handle) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	delete(hs.objs, h)
}

// DecodeHandle resolves a pinned handle to its object for compiled code
// returning from an embedder call. When ctx already has a pending
// exception the result would be unusable, so nil is returned without
// touching the store.
//
//tern:entrypoint tern_decode_handle
func (rt *Runtime) DecodeHandle(ctx *ExecutionContext, h Handle) *Object {
	if ctx.pending != nil {
		return nil
	}
	return rt.handles.Resolve(h)
}
