package runtime

// IsAssignable reports whether a value of type src may be assigned where
// dest is expected. Pure query: no resolution, no allocation, no raise.
//
//tern:entrypoint tern_is_assignable
func (rt *Runtime) IsAssignable(dest, src *TypeDescriptor) int32 {
	if dest.IsAssignableFrom(src) {
		return 1
	}
	return 0
}

// CheckCast raises a class cast error unless src is assignable to dest.
// Compiled code handles null separately; both descriptors are non-nil.
//
//tern:entrypoint tern_check_cast
func (rt *Runtime) CheckCast(ctx *ExecutionContext, dest, src *TypeDescriptor) {
	if dest.IsAssignableFrom(src) {
		return
	}
	ctx.throw(rt.errorf(ctx, rt.ClassCastClass,
		"%s cannot be cast to %s", dest.name, src.name))
}

// CheckArrayStore raises an array store error unless element may be stored
// in array. Storing null is always legal and never raises. The array
// reference itself is non-nil; compiled code null-checks it first.
//
//tern:entrypoint tern_check_array_store
func (rt *Runtime) CheckArrayStore(ctx *ExecutionContext, element, array *Object) {
	if element == nil {
		return
	}
	component := array.class.component
	if component.IsAssignableFrom(element.class) {
		return
	}
	ctx.throw(rt.errorf(ctx, rt.ArrayStoreClass,
		"%s cannot be stored in an array of type %s", element.class.name, array.class.name))
}
