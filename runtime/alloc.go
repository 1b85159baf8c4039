package runtime

import "github.com/ternlang/tern/unit"

// Allocation entry points. Each returns the new object, or nil with an
// exception pending. The unchecked variants serve call sites the compiler
// proved safe; the checked variants add referrer access verification.

func (rt *Runtime) allocObjectCommon(ctx *ExecutionContext, typeIdx uint32, from *MethodDescriptor, accessCheck bool) *Object {
	t, thrown := rt.resolveType(ctx, linkageOf(from), unit.TypeIndex(typeIdx))
	if thrown != nil {
		ctx.throw(thrown)
		return nil
	}
	if accessCheck && !rt.accessibleType(referrerType(from), t) {
		ctx.throw(rt.errorf(ctx, rt.IllegalAccessClass,
			"type %s is not accessible from %s", t.name, referrerName(from)))
		return nil
	}
	if t.kind != KindClass || t.flags.IsAbstract() {
		ctx.throw(rt.errorf(ctx, rt.InstantiationClass, "%s cannot be instantiated", t.name))
		return nil
	}
	if thrown := rt.ensureInitialized(ctx, t); thrown != nil {
		ctx.throw(thrown)
		return nil
	}
	obj, ok := rt.heap.AllocObject(t)
	if !ok {
		ctx.throw(rt.thrownOOM())
		return nil
	}
	return obj
}

func (rt *Runtime) allocArrayCommon(ctx *ExecutionContext, typeIdx uint32, from *MethodDescriptor, length int32, accessCheck bool) *Object {
	if length < 0 {
		ctx.throw(rt.errorf(ctx, rt.NegativeArraySizeClass, "negative array size: %d", length))
		return nil
	}
	t, thrown := rt.resolveType(ctx, linkageOf(from), unit.TypeIndex(typeIdx))
	if thrown != nil {
		ctx.throw(thrown)
		return nil
	}
	if accessCheck && !rt.accessibleType(referrerType(from), t) {
		ctx.throw(rt.errorf(ctx, rt.IllegalAccessClass,
			"type %s is not accessible from %s", t.name, referrerName(from)))
		return nil
	}
	if !t.IsArray() {
		ctx.throw(rt.errorf(ctx, rt.InstantiationClass, "%s is not an array type", t.name))
		return nil
	}
	obj, ok := rt.heap.AllocArray(t, length)
	if !ok {
		ctx.throw(rt.thrownOOM())
		return nil
	}
	return obj
}

func (rt *Runtime) checkAllocArrayCommon(ctx *ExecutionContext, typeIdx uint32, from *MethodDescriptor, length int32, accessCheck bool) *Object {
	if length < 0 {
		ctx.throw(rt.errorf(ctx, rt.NegativeArraySizeClass, "negative array size: %d", length))
		return nil
	}
	t, thrown := rt.resolveType(ctx, linkageOf(from), unit.TypeIndex(typeIdx))
	if thrown != nil {
		ctx.throw(thrown)
		return nil
	}
	if accessCheck && !rt.accessibleType(referrerType(from), t) {
		ctx.throw(rt.errorf(ctx, rt.IllegalAccessClass,
			"type %s is not accessible from %s", t.name, referrerName(from)))
		return nil
	}
	if !t.IsArray() {
		ctx.throw(rt.errorf(ctx, rt.InstantiationClass, "%s is not an array type", t.name))
		return nil
	}
	// Filled-array sites pass elements in 32-bit units; wide elements
	// cannot be filled this way.
	if elementWidth(t) == unit.Width64 {
		ctx.throw(rt.errorf(ctx, rt.IncompatibleLinkageClass,
			"filled array of wide type %s", t.name))
		return nil
	}
	obj, ok := rt.heap.AllocArray(t, length)
	if !ok {
		ctx.throw(rt.thrownOOM())
		return nil
	}
	return obj
}

// AllocObject allocates an instance of the type at typeIdx, running its
// initializer first if needed.
//
//tern:entrypoint tern_alloc_object
func (rt *Runtime) AllocObject(ctx *ExecutionContext, typeIdx uint32, from *MethodDescriptor) *Object {
	return rt.allocObjectCommon(ctx, typeIdx, from, false)
}

// AllocObjectChecked is AllocObject with referrer access verification.
//
//tern:entrypoint tern_alloc_object_checked
func (rt *Runtime) AllocObjectChecked(ctx *ExecutionContext, typeIdx uint32, from *MethodDescriptor) *Object {
	return rt.allocObjectCommon(ctx, typeIdx, from, true)
}

// AllocArray allocates an array of the type at typeIdx with the given
// length.
//
//tern:entrypoint tern_alloc_array
func (rt *Runtime) AllocArray(ctx *ExecutionContext, typeIdx uint32, from *MethodDescriptor, length int32) *Object {
	return rt.allocArrayCommon(ctx, typeIdx, from, length, false)
}

// AllocArrayChecked is AllocArray with referrer access verification.
//
//tern:entrypoint tern_alloc_array_checked
func (rt *Runtime) AllocArrayChecked(ctx *ExecutionContext, typeIdx uint32, from *MethodDescriptor, length int32) *Object {
	return rt.allocArrayCommon(ctx, typeIdx, from, length, true)
}

// CheckAndAllocArray allocates an array for a filled-array site. All
// validation happens before the allocation is visible.
//
//tern:entrypoint tern_check_alloc_array
func (rt *Runtime) CheckAndAllocArray(ctx *ExecutionContext, typeIdx uint32, from *MethodDescriptor, length int32) *Object {
	return rt.checkAllocArrayCommon(ctx, typeIdx, from, length, false)
}

// CheckAndAllocArrayChecked is CheckAndAllocArray with referrer access
// verification.
//
//tern:entrypoint tern_check_alloc_array_checked
func (rt *Runtime) CheckAndAllocArrayChecked(ctx *ExecutionContext, typeIdx uint32, from *MethodDescriptor, length int32) *Object {
	return rt.checkAllocArrayCommon(ctx, typeIdx, from, length, true)
}
