package runtime

import (
	"fmt"

	"github.com/ternlang/tern/unit"
)

// ----------------------------------------------------------------------------
// Type resolution and access
// ----------------------------------------------------------------------------

// resolveType resolves a type pool index against the loaded type table and
// publishes the resolution in the unit's linkage cache.
func (rt *Runtime) resolveType(ctx *ExecutionContext, lc *LinkageCache, idx unit.TypeIndex) (*TypeDescriptor, *Thrown) {
	if t := lc.peekType(idx); t != nil {
		return t, nil
	}
	if lc == nil || int(idx) >= len(lc.unit.Types) {
		return nil, rt.errorf(ctx, rt.TypeNotFoundClass, "unresolvable type index %d", idx)
	}
	name := lc.unit.Types[idx]
	t := rt.typeByName(name)
	if t == nil {
		return nil, rt.errorf(ctx, rt.TypeNotFoundClass, "unresolved type: %s", name)
	}
	return lc.publishType(idx, t), nil
}

// accessibleType reports whether from may name to. Types are visible to
// their own unit unconditionally and to everyone when public. Array types
// take their element's visibility; primitives are visible everywhere.
func (rt *Runtime) accessibleType(from, to *TypeDescriptor) bool {
	for to.kind == KindArray {
		to = to.component
	}
	if to.kind == KindPrimitive || to.flags.IsPublic() {
		return true
	}
	return from != nil && from.lc == to.lc
}

// accessibleMember reports whether from may access a member of owner with
// the given flags. Private members are visible to the declaring type only;
// non-public members to the declaring unit.
func (rt *Runtime) accessibleMember(from, owner *TypeDescriptor, flags unit.AccessFlags) bool {
	if !rt.accessibleType(from, owner) {
		return false
	}
	if flags.IsPrivate() {
		return from == owner
	}
	if flags.IsPublic() {
		return true
	}
	return from != nil && from.lc == owner.lc
}

func referrerName(from *MethodDescriptor) string {
	if from == nil {
		return "<no referrer>"
	}
	return from.owner.name
}

// ----------------------------------------------------------------------------
// Initialization
// ----------------------------------------------------------------------------

// BindInitializer attaches the body of a type's static initializer. The
// embedding engine binds each declared initializer after registering the
// unit and before execution starts; a declared but unbound initializer is
// a no-op.
func (rt *Runtime) BindInitializer(typeName string, fn InitializerFunc) error {
	t := rt.typeByName(typeName)
	if t == nil {
		return fmt.Errorf("runtime: bind initializer: unknown type %s", typeName)
	}
	if t.initState.Load() != initLinked {
		return fmt.Errorf("runtime: bind initializer: %s already initializing", typeName)
	}
	t.initFn = fn
	return nil
}

// ensureInitialized drives t through its initialization state machine.
// Exactly one context runs the initializer; contexts arriving while it
// runs block until it settles, except the running context itself, which
// passes through so initializer code can touch its own statics. A failed
// initializer pins the type: every later attempt raises without re-running
// it.
func (rt *Runtime) ensureInitialized(ctx *ExecutionContext, t *TypeDescriptor) *Thrown {
	if t.initState.Load() == initDone {
		return nil
	}
	t.initMu.Lock()
	for {
		switch t.initState.Load() {
		case initDone:
			t.initMu.Unlock()
			return nil
		case initFailed:
			t.initMu.Unlock()
			return rt.errorf(ctx, rt.InitializerErrorClass,
				"initializer of %s previously failed", t.name)
		case initRunning:
			if t.initOwner == ctx {
				t.initMu.Unlock()
				return nil
			}
			t.initCond.Wait()
		default: // initLinked
			t.initState.Store(initRunning)
			t.initOwner = ctx
			t.initMu.Unlock()

			thrown := rt.runInitializer(ctx, t)

			t.initMu.Lock()
			t.initOwner = nil
			if thrown != nil {
				t.initState.Store(initFailed)
			} else {
				t.initState.Store(initDone)
			}
			t.initCond.Broadcast()
			t.initMu.Unlock()
			return thrown
		}
	}
}

func (rt *Runtime) runInitializer(ctx *ExecutionContext, t *TypeDescriptor) *Thrown {
	if t.super != nil {
		if thrown := rt.ensureInitialized(ctx, t.super); thrown != nil {
			return rt.errorf(ctx, rt.InitializerErrorClass,
				"initializer of %s: superclass %s failed", t.name, t.super.name)
		}
	}
	fn := t.initFn
	if fn == nil {
		return nil
	}
	if thrown := fn(ctx); thrown != nil {
		if thrown.obj.class == rt.InitializerErrorClass {
			return thrown
		}
		return rt.errorf(ctx, rt.InitializerErrorClass,
			"initializer of %s threw %s", t.name, thrown.obj.class.name)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Entry points
// ----------------------------------------------------------------------------

func (rt *Runtime) initializeTypeCommon(ctx *ExecutionContext, typeIdx uint32, from *MethodDescriptor, runInit, verifyAccess bool) *TypeDescriptor {
	t, thrown := rt.resolveType(ctx, linkageOf(from), unit.TypeIndex(typeIdx))
	if thrown != nil {
		ctx.throw(thrown)
		return nil
	}
	if verifyAccess && !rt.accessibleType(referrerType(from), t) {
		ctx.throw(rt.errorf(ctx, rt.IllegalAccessClass,
			"type %s is not accessible from %s", t.name, referrerName(from)))
		return nil
	}
	if runInit {
		if thrown := rt.ensureInitialized(ctx, t); thrown != nil {
			ctx.throw(thrown)
			return nil
		}
	}
	return t
}

func referrerType(from *MethodDescriptor) *TypeDescriptor {
	if from == nil {
		return nil
	}
	return from.owner
}

// InitializeStaticStorage resolves a type for static field access: access
// is checked and the type's initializer has completed when it returns.
//
//tern:entrypoint tern_init_static_storage
func (rt *Runtime) InitializeStaticStorage(ctx *ExecutionContext, typeIdx uint32, from *MethodDescriptor) *TypeDescriptor {
	return rt.initializeTypeCommon(ctx, typeIdx, from, true, true)
}

// InitializeType resolves a type without access checks and without running
// its initializer. Verified call sites that only need the descriptor use
// it.
//
//tern:entrypoint tern_init_type
func (rt *Runtime) InitializeType(ctx *ExecutionContext, typeIdx uint32, from *MethodDescriptor) *TypeDescriptor {
	return rt.initializeTypeCommon(ctx, typeIdx, from, false, false)
}

// InitializeTypeVerifyAccess resolves a type with access checks but does
// not run its initializer.
//
//tern:entrypoint tern_init_type_checked
func (rt *Runtime) InitializeTypeVerifyAccess(ctx *ExecutionContext, typeIdx uint32, from *MethodDescriptor) *TypeDescriptor {
	return rt.initializeTypeCommon(ctx, typeIdx, from, false, true)
}
