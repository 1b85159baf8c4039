package runtime

import (
	"sync/atomic"

	"github.com/ternlang/tern/unit"
)

// ----------------------------------------------------------------------------
// Method descriptors
// ----------------------------------------------------------------------------

// MethodDescriptor is a resolved method: its declaring type, matching key
// (name plus signature), dispatch slot, and exception handler table.
type MethodDescriptor struct {
	owner     *TypeDescriptor
	name      string
	signature string
	flags     unit.AccessFlags

	// vslot is the method's index in its declaring class's vtable, or
	// its declaration index on an interface. Methods that never
	// dispatch virtually (statics, privates) carry -1.
	vslot int

	handlers []unit.HandlerEntry
}

func (m *MethodDescriptor) Owner() *TypeDescriptor { return m.owner }
func (m *MethodDescriptor) Name() string           { return m.name }
func (m *MethodDescriptor) Signature() string      { return m.signature }
func (m *MethodDescriptor) IsStatic() bool         { return m.flags.IsStatic() }
func (m *MethodDescriptor) IsAbstract() bool       { return m.flags.IsAbstract() }

// Handlers returns the method's exception handler table in declaration
// order.
func (m *MethodDescriptor) Handlers() []unit.HandlerEntry { return m.handlers }

func (m *MethodDescriptor) String() string {
	return m.owner.name + "." + m.name + " " + m.signature
}

// ----------------------------------------------------------------------------
// Dispatch caches
// ----------------------------------------------------------------------------

// maxPolymorphicEntries bounds a call site's cache before it goes
// megamorphic and stops recording.
const maxPolymorphicEntries = 6

type cacheState uint8

const (
	cacheEmpty cacheState = iota
	cacheMonomorphic
	cachePolymorphic
	cacheMegamorphic
)

type dispatchEntry struct {
	receiver *TypeDescriptor
	target   *MethodDescriptor
}

type dispatchSnapshot struct {
	state   cacheState
	entries []dispatchEntry
}

// DispatchCache memoizes receiver type → dispatch target for one call
// site. Lookups are a single atomic load; updates publish a fresh snapshot
// by compare-and-swap, so racing updaters lose nothing but a cache fill.
type DispatchCache struct {
	snap   atomic.Pointer[dispatchSnapshot]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// Lookup returns the cached target for a receiver type, or nil on a miss.
func (c *DispatchCache) Lookup(receiver *TypeDescriptor) *MethodDescriptor {
	s := c.snap.Load()
	if s != nil {
		for i := range s.entries {
			if s.entries[i].receiver == receiver {
				c.hits.Add(1)
				return s.entries[i].target
			}
		}
	}
	c.misses.Add(1)
	return nil
}

// Update records a receiver → target pair, growing monomorphic →
// polymorphic → megamorphic. Megamorphic sites stop recording.
func (c *DispatchCache) Update(receiver *TypeDescriptor, target *MethodDescriptor) {
	for {
		old := c.snap.Load()
		var next *dispatchSnapshot
		switch {
		case old == nil:
			next = &dispatchSnapshot{state: cacheMonomorphic, entries: []dispatchEntry{{receiver, target}}}
		case old.state == cacheMegamorphic:
			return
		default:
			for i := range old.entries {
				if old.entries[i].receiver == receiver {
					return
				}
			}
			if len(old.entries) >= maxPolymorphicEntries {
				next = &dispatchSnapshot{state: cacheMegamorphic}
			} else {
				entries := make([]dispatchEntry, len(old.entries)+1)
				copy(entries, old.entries)
				entries[len(old.entries)] = dispatchEntry{receiver, target}
				next = &dispatchSnapshot{state: cachePolymorphic, entries: entries}
			}
		}
		if c.snap.CompareAndSwap(old, next) {
			return
		}
	}
}

// Stats returns the cache's hit and miss counts.
func (c *DispatchCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *DispatchCache) state() cacheState {
	s := c.snap.Load()
	if s == nil {
		return cacheEmpty
	}
	return s.state
}

// ----------------------------------------------------------------------------
// Resolution
// ----------------------------------------------------------------------------

// resolveMethodRef resolves a method pool reference to its declared method
// and publishes the resolution. The result is the statically named method;
// dispatch against a receiver happens at the call sites below.
func (rt *Runtime) resolveMethodRef(ctx *ExecutionContext, from *MethodDescriptor, idx unit.MethodIndex) (*MethodDescriptor, *Thrown) {
	lc := linkageOf(from)
	if lc == nil || int(idx) >= len(lc.unit.Methods) {
		return nil, rt.errorf(ctx, rt.NoSuchMethodClass, "unresolvable method index %d", idx)
	}
	if m := lc.peekMethod(idx); m != nil {
		return m, nil
	}
	ref := lc.unit.Methods[idx]
	owner, thrown := rt.resolveType(ctx, lc, ref.Owner)
	if thrown != nil {
		return nil, thrown
	}
	var m *MethodDescriptor
	if owner.IsInterface() {
		m = owner.interfaceMethod(ref.Name, ref.Signature)
	} else if found, ok := owner.Method(ref.Name, ref.Signature); ok {
		m = found
	}
	if m == nil {
		return nil, rt.errorf(ctx, rt.NoSuchMethodClass,
			"no such method: %s.%s %s", owner.name, ref.Name, ref.Signature)
	}
	if !rt.accessibleMember(from.owner, m.owner, m.flags) {
		return nil, rt.errorf(ctx, rt.IllegalAccessClass,
			"method %s.%s is not accessible from %s", m.owner.name, m.name, from.owner.name)
	}
	return lc.publishMethod(idx, m), nil
}

// ----------------------------------------------------------------------------
// Dispatch entry points
// ----------------------------------------------------------------------------

// FindInterfaceMethod resolves an interface call site against the
// receiver's class. The call-site cache is consulted first; a miss runs
// full resolution and populates it.
//
//tern:entrypoint tern_find_interface_method
func (rt *Runtime) FindInterfaceMethod(ctx *ExecutionContext, methodIdx uint32, receiver *Object, from *MethodDescriptor) *MethodDescriptor {
	idx := unit.MethodIndex(methodIdx)
	if receiver == nil {
		ctx.throw(rt.errorf(ctx, rt.NullAccessClass, "null receiver for method index %d", methodIdx))
		return nil
	}
	cache := linkageOf(from).dispatchCache(idx)
	if cache != nil {
		if target := cache.Lookup(receiver.class); target != nil {
			return target
		}
	}
	decl, thrown := rt.resolveMethodRef(ctx, from, idx)
	if thrown != nil {
		ctx.throw(thrown)
		return nil
	}
	if !decl.owner.IsInterface() {
		ctx.throw(rt.errorf(ctx, rt.IncompatibleLinkageClass,
			"%s.%s is not an interface method", decl.owner.name, decl.name))
		return nil
	}
	targets := receiver.class.itable[decl.owner]
	if targets == nil {
		ctx.throw(rt.errorf(ctx, rt.IncompatibleLinkageClass,
			"class %s does not implement %s", receiver.class.name, decl.owner.name))
		return nil
	}
	target := targets[decl.vslot]
	if target == nil || target.IsAbstract() {
		ctx.throw(rt.errorf(ctx, rt.NoSuchMethodClass,
			"no such method: %s.%s %s", receiver.class.name, decl.name, decl.signature))
		return nil
	}
	if cache != nil {
		cache.Update(receiver.class, target)
	}
	return target
}

// FindVirtualMethod resolves a virtual call site against the receiver's
// class via its vtable.
//
//tern:entrypoint tern_find_virtual_method
func (rt *Runtime) FindVirtualMethod(ctx *ExecutionContext, methodIdx uint32, receiver *Object, from *MethodDescriptor) *MethodDescriptor {
	idx := unit.MethodIndex(methodIdx)
	if receiver == nil {
		ctx.throw(rt.errorf(ctx, rt.NullAccessClass, "null receiver for method index %d", methodIdx))
		return nil
	}
	cache := linkageOf(from).dispatchCache(idx)
	if cache != nil {
		if target := cache.Lookup(receiver.class); target != nil {
			return target
		}
	}
	decl, thrown := rt.resolveMethodRef(ctx, from, idx)
	if thrown != nil {
		ctx.throw(thrown)
		return nil
	}
	if decl.IsStatic() {
		ctx.throw(rt.errorf(ctx, rt.IncompatibleLinkageClass,
			"method %s.%s is static", decl.owner.name, decl.name))
		return nil
	}
	if decl.owner.IsInterface() {
		ctx.throw(rt.errorf(ctx, rt.IncompatibleLinkageClass,
			"%s.%s is an interface method", decl.owner.name, decl.name))
		return nil
	}
	if decl.vslot < 0 {
		ctx.throw(rt.errorf(ctx, rt.IncompatibleLinkageClass,
			"method %s.%s is not virtual", decl.owner.name, decl.name))
		return nil
	}
	if !receiver.class.IsSubclassOf(decl.owner) {
		ctx.throw(rt.errorf(ctx, rt.IncompatibleLinkageClass,
			"receiver %s is not a %s", receiver.class.name, decl.owner.name))
		return nil
	}
	target := receiver.class.concreteTarget(decl)
	if target == nil || target.IsAbstract() {
		ctx.throw(rt.errorf(ctx, rt.NoSuchMethodClass,
			"no such method: %s.%s %s", receiver.class.name, decl.name, decl.signature))
		return nil
	}
	if cache != nil {
		cache.Update(receiver.class, target)
	}
	return target
}

// FindSuperMethod resolves a super call site against the superclass of the
// calling method's class. The target does not depend on the receiver, so
// no call-site cache is kept.
//
//tern:entrypoint tern_find_super_method
func (rt *Runtime) FindSuperMethod(ctx *ExecutionContext, methodIdx uint32, receiver *Object, from *MethodDescriptor) *MethodDescriptor {
	idx := unit.MethodIndex(methodIdx)
	if receiver == nil {
		ctx.throw(rt.errorf(ctx, rt.NullAccessClass, "null receiver for method index %d", methodIdx))
		return nil
	}
	decl, thrown := rt.resolveMethodRef(ctx, from, idx)
	if thrown != nil {
		ctx.throw(thrown)
		return nil
	}
	super := from.owner.super
	if super == nil || decl.vslot < 0 || decl.vslot >= len(super.vtable) {
		ctx.throw(rt.errorf(ctx, rt.NoSuchMethodClass,
			"no such method: super %s.%s %s", from.owner.name, decl.name, decl.signature))
		return nil
	}
	target := super.vtable[decl.vslot]
	if target == nil || target.IsAbstract() {
		ctx.throw(rt.errorf(ctx, rt.NoSuchMethodClass,
			"no such method: super %s.%s %s", from.owner.name, decl.name, decl.signature))
		return nil
	}
	return target
}
