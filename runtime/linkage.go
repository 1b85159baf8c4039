package runtime

import (
	"fmt"
	"sync/atomic"

	"github.com/ternlang/tern/unit"
)

// LinkageCache memoizes a registered unit's resolved pool entries. Fast
// paths peek it without locking; slow paths resolve, then publish. Every
// slot moves from nil to a resolved descriptor exactly once, so resolution
// is idempotent and racing resolvers agree on the published entry.
//
// Methods tolerate a nil receiver so that code compiled against no unit
// (bootstrap helpers) can share the fast paths; every peek then misses.
type LinkageCache struct {
	unit *unit.Unit

	types   []atomic.Pointer[TypeDescriptor]
	fields  []atomic.Pointer[FieldDescriptor]
	methods []atomic.Pointer[MethodDescriptor]
	strings []atomic.Pointer[Object]

	dispatch []DispatchCache
}

func newLinkageCache(u *unit.Unit) *LinkageCache {
	return &LinkageCache{
		unit:     u,
		types:    make([]atomic.Pointer[TypeDescriptor], len(u.Types)),
		fields:   make([]atomic.Pointer[FieldDescriptor], len(u.Fields)),
		methods:  make([]atomic.Pointer[MethodDescriptor], len(u.Methods)),
		strings:  make([]atomic.Pointer[Object], len(u.Strings)),
		dispatch: make([]DispatchCache, len(u.Methods)),
	}
}

// Unit returns the unit this cache links.
func (lc *LinkageCache) Unit() *unit.Unit { return lc.unit }

// TypeName renders a type pool index for diagnostics.
func (lc *LinkageCache) TypeName(idx unit.TypeIndex) string {
	if lc == nil {
		return fmt.Sprintf("<type #%d>", idx)
	}
	return lc.unit.TypeName(idx)
}

func (lc *LinkageCache) peekType(idx unit.TypeIndex) *TypeDescriptor {
	if lc == nil || int(idx) >= len(lc.types) {
		return nil
	}
	return lc.types[idx].Load()
}

// publishType installs the first resolution of a type pool entry and
// returns the winner, which may differ from t when another context
// resolved first.
func (lc *LinkageCache) publishType(idx unit.TypeIndex, t *TypeDescriptor) *TypeDescriptor {
	if lc.types[idx].CompareAndSwap(nil, t) {
		return t
	}
	return lc.types[idx].Load()
}

func (lc *LinkageCache) peekField(idx unit.FieldIndex) *FieldDescriptor {
	if lc == nil || int(idx) >= len(lc.fields) {
		return nil
	}
	return lc.fields[idx].Load()
}

func (lc *LinkageCache) publishField(idx unit.FieldIndex, f *FieldDescriptor) *FieldDescriptor {
	if lc.fields[idx].CompareAndSwap(nil, f) {
		return f
	}
	return lc.fields[idx].Load()
}

func (lc *LinkageCache) peekMethod(idx unit.MethodIndex) *MethodDescriptor {
	if lc == nil || int(idx) >= len(lc.methods) {
		return nil
	}
	return lc.methods[idx].Load()
}

func (lc *LinkageCache) publishMethod(idx unit.MethodIndex, m *MethodDescriptor) *MethodDescriptor {
	if lc.methods[idx].CompareAndSwap(nil, m) {
		return m
	}
	return lc.methods[idx].Load()
}

func (lc *LinkageCache) peekString(idx unit.StringIndex) *Object {
	if lc == nil || int(idx) >= len(lc.strings) {
		return nil
	}
	return lc.strings[idx].Load()
}

func (lc *LinkageCache) publishString(idx unit.StringIndex, s *Object) *Object {
	if lc.strings[idx].CompareAndSwap(nil, s) {
		return s
	}
	return lc.strings[idx].Load()
}

// dispatchCache returns the call-site cache for a method pool index.
func (lc *LinkageCache) dispatchCache(idx unit.MethodIndex) *DispatchCache {
	if lc == nil || int(idx) >= len(lc.dispatch) {
		return nil
	}
	return &lc.dispatch[idx]
}

// linkageOf returns the linkage cache of the unit that declared m's owner,
// or nil for bootstrap methods.
func linkageOf(m *MethodDescriptor) *LinkageCache {
	if m == nil || m.owner == nil {
		return nil
	}
	return m.owner.lc
}
