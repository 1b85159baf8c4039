package runtime

import "github.com/ternlang/tern/unit"

// ----------------------------------------------------------------------------
// Field descriptors
// ----------------------------------------------------------------------------

// FieldDescriptor is a resolved field: its declaring type, storage width,
// and slot within the width-segregated storage of instances (or of the
// declaring type's statics).
type FieldDescriptor struct {
	owner *TypeDescriptor
	name  string
	width unit.Width
	flags unit.AccessFlags
	slot  int
}

func (f *FieldDescriptor) Owner() *TypeDescriptor { return f.owner }
func (f *FieldDescriptor) Name() string           { return f.name }
func (f *FieldDescriptor) Width() unit.Width      { return f.width }
func (f *FieldDescriptor) IsStatic() bool         { return f.flags.IsStatic() }
func (f *FieldDescriptor) IsFinal() bool          { return f.flags.IsFinal() }

// Slot storage selection: static fields live on the declaring type, the
// rest on the instance. Instance accessors require a non-nil receiver;
// compiled code null-checks before calling.

func (f *FieldDescriptor) get32(o *Object) uint32 {
	if f.IsStatic() {
		return f.owner.statics.w32[f.slot]
	}
	return o.f32[f.slot]
}

func (f *FieldDescriptor) set32(o *Object, v uint32) {
	if f.IsStatic() {
		f.owner.statics.w32[f.slot] = v
		return
	}
	o.f32[f.slot] = v
}

func (f *FieldDescriptor) get64(o *Object) uint64 {
	if f.IsStatic() {
		return f.owner.statics.w64[f.slot]
	}
	return o.f64[f.slot]
}

func (f *FieldDescriptor) set64(o *Object, v uint64) {
	if f.IsStatic() {
		f.owner.statics.w64[f.slot] = v
		return
	}
	o.f64[f.slot] = v
}

func (f *FieldDescriptor) getRef(o *Object) *Object {
	if f.IsStatic() {
		return f.owner.statics.refs[f.slot]
	}
	return o.fref[f.slot]
}

func (f *FieldDescriptor) setRef(o *Object, v *Object) {
	if f.IsStatic() {
		f.owner.statics.refs[f.slot] = v
		return
	}
	o.fref[f.slot] = v
}

// ----------------------------------------------------------------------------
// Resolution
// ----------------------------------------------------------------------------

// findFieldFast is the lock-free hit path. It returns nil whenever any
// precondition is not already established, deferring to the slow path:
// unresolved entry, wrong staticness or width, a final field written from
// outside its declaring type, or an uninitialized declaring type.
func (rt *Runtime) findFieldFast(from *MethodDescriptor, idx unit.FieldIndex, wantStatic bool, wantWidth unit.Width, forWrite bool) *FieldDescriptor {
	f := linkageOf(from).peekField(idx)
	if f == nil {
		return nil
	}
	if f.IsStatic() != wantStatic || f.width != wantWidth {
		return nil
	}
	if forWrite && f.IsFinal() && f.owner != from.owner {
		return nil
	}
	if wantStatic && !f.owner.Initialized() {
		return nil
	}
	return f
}

// resolveField is the slow path: resolve the pool reference, check every
// access precondition, initialize the declaring type for static access,
// and publish the resolution for future fast hits.
func (rt *Runtime) resolveField(ctx *ExecutionContext, from *MethodDescriptor, idx unit.FieldIndex, wantStatic bool, wantWidth unit.Width, forWrite bool) (*FieldDescriptor, *Thrown) {
	lc := linkageOf(from)
	if lc == nil || int(idx) >= len(lc.unit.Fields) {
		return nil, rt.errorf(ctx, rt.NoSuchFieldClass, "unresolvable field index %d", idx)
	}
	ref := lc.unit.Fields[idx]
	owner, thrown := rt.resolveType(ctx, lc, ref.Owner)
	if thrown != nil {
		return nil, thrown
	}
	f, ok := owner.Field(ref.Name)
	if !ok {
		return nil, rt.errorf(ctx, rt.NoSuchFieldClass, "no field %s.%s", owner.name, ref.Name)
	}
	if f.IsStatic() != wantStatic {
		if wantStatic {
			return nil, rt.errorf(ctx, rt.IncompatibleLinkageClass,
				"field %s.%s is not static", f.owner.name, f.name)
		}
		return nil, rt.errorf(ctx, rt.IncompatibleLinkageClass,
			"field %s.%s is static", f.owner.name, f.name)
	}
	if f.width != wantWidth {
		return nil, rt.errorf(ctx, rt.IncompatibleLinkageClass,
			"field %s.%s is %s; access expects %s", f.owner.name, f.name, f.width, wantWidth)
	}
	if !rt.accessibleMember(from.owner, f.owner, f.flags) {
		return nil, rt.errorf(ctx, rt.IllegalAccessClass,
			"field %s.%s is not accessible from %s", f.owner.name, f.name, from.owner.name)
	}
	if forWrite && f.IsFinal() && f.owner != from.owner {
		return nil, rt.errorf(ctx, rt.IllegalAccessClass,
			"final field %s.%s cannot be written from %s", f.owner.name, f.name, from.owner.name)
	}
	if wantStatic {
		if thrown := rt.ensureInitialized(ctx, f.owner); thrown != nil {
			return nil, thrown
		}
	}
	return lc.publishField(idx, f), nil
}

// ----------------------------------------------------------------------------
// Accessor entry points
// ----------------------------------------------------------------------------

// Every accessor tries the fast path, falls back to full resolution, and
// performs the access on whichever succeeded. Setters return 0 on success
// and -1 with an exception pending. Getters return the value, or the zero
// value with an exception pending; compiled code disambiguates zero by
// checking for the exception.

// Set32Static stores a 32-bit value in a static field.
//
//tern:entrypoint tern_set32_static
func (rt *Runtime) Set32Static(ctx *ExecutionContext, fieldIdx uint32, from *MethodDescriptor, value uint32) int32 {
	f := rt.findFieldFast(from, unit.FieldIndex(fieldIdx), true, unit.Width32, true)
	if f == nil {
		var thrown *Thrown
		f, thrown = rt.resolveField(ctx, from, unit.FieldIndex(fieldIdx), true, unit.Width32, true)
		if thrown != nil {
			ctx.throw(thrown)
			return -1
		}
	}
	f.set32(nil, value)
	return 0
}

// Set64Static stores a 64-bit value in a static field.
//
//tern:entrypoint tern_set64_static
func (rt *Runtime) Set64Static(ctx *ExecutionContext, fieldIdx uint32, from *MethodDescriptor, value uint64) int32 {
	f := rt.findFieldFast(from, unit.FieldIndex(fieldIdx), true, unit.Width64, true)
	if f == nil {
		var thrown *Thrown
		f, thrown = rt.resolveField(ctx, from, unit.FieldIndex(fieldIdx), true, unit.Width64, true)
		if thrown != nil {
			ctx.throw(thrown)
			return -1
		}
	}
	f.set64(nil, value)
	return 0
}

// SetObjectStatic stores a reference in a static field.
//
//tern:entrypoint tern_set_obj_static
func (rt *Runtime) SetObjectStatic(ctx *ExecutionContext, fieldIdx uint32, from *MethodDescriptor, value *Object) int32 {
	f := rt.findFieldFast(from, unit.FieldIndex(fieldIdx), true, unit.WidthRef, true)
	if f == nil {
		var thrown *Thrown
		f, thrown = rt.resolveField(ctx, from, unit.FieldIndex(fieldIdx), true, unit.WidthRef, true)
		if thrown != nil {
			ctx.throw(thrown)
			return -1
		}
	}
	f.setRef(nil, value)
	return 0
}

// Get32Static loads a 32-bit value from a static field.
//
//tern:entrypoint tern_get32_static
func (rt *Runtime) Get32Static(ctx *ExecutionContext, fieldIdx uint32, from *MethodDescriptor) uint32 {
	f := rt.findFieldFast(from, unit.FieldIndex(fieldIdx), true, unit.Width32, false)
	if f == nil {
		var thrown *Thrown
		f, thrown = rt.resolveField(ctx, from, unit.FieldIndex(fieldIdx), true, unit.Width32, false)
		if thrown != nil {
			ctx.throw(thrown)
			return 0
		}
	}
	return f.get32(nil)
}

// Get64Static loads a 64-bit value from a static field.
//
//tern:entrypoint tern_get64_static
func (rt *Runtime) Get64Static(ctx *ExecutionContext, fieldIdx uint32, from *MethodDescriptor) uint64 {
	f := rt.findFieldFast(from, unit.FieldIndex(fieldIdx), true, unit.Width64, false)
	if f == nil {
		var thrown *Thrown
		f, thrown = rt.resolveField(ctx, from, unit.FieldIndex(fieldIdx), true, unit.Width64, false)
		if thrown != nil {
			ctx.throw(thrown)
			return 0
		}
	}
	return f.get64(nil)
}

// GetObjectStatic loads a reference from a static field.
//
//tern:entrypoint tern_get_obj_static
func (rt *Runtime) GetObjectStatic(ctx *ExecutionContext, fieldIdx uint32, from *MethodDescriptor) *Object {
	f := rt.findFieldFast(from, unit.FieldIndex(fieldIdx), true, unit.WidthRef, false)
	if f == nil {
		var thrown *Thrown
		f, thrown = rt.resolveField(ctx, from, unit.FieldIndex(fieldIdx), true, unit.WidthRef, false)
		if thrown != nil {
			ctx.throw(thrown)
			return nil
		}
	}
	return f.getRef(nil)
}

// Set32Instance stores a 32-bit value in an instance field of obj.
//
//tern:entrypoint tern_set32_instance
func (rt *Runtime) Set32Instance(ctx *ExecutionContext, fieldIdx uint32, from *MethodDescriptor, obj *Object, value uint32) int32 {
	f := rt.findFieldFast(from, unit.FieldIndex(fieldIdx), false, unit.Width32, true)
	if f == nil {
		var thrown *Thrown
		f, thrown = rt.resolveField(ctx, from, unit.FieldIndex(fieldIdx), false, unit.Width32, true)
		if thrown != nil {
			ctx.throw(thrown)
			return -1
		}
	}
	f.set32(obj, value)
	return 0
}

// Set64Instance stores a 64-bit value in an instance field of obj.
//
//tern:entrypoint tern_set64_instance
func (rt *Runtime) Set64Instance(ctx *ExecutionContext, fieldIdx uint32, from *MethodDescriptor, obj *Object, value uint64) int32 {
	f := rt.findFieldFast(from, unit.FieldIndex(fieldIdx), false, unit.Width64, true)
	if f == nil {
		var thrown *Thrown
		f, thrown = rt.resolveField(ctx, from, unit.FieldIndex(fieldIdx), false, unit.Width64, true)
		if thrown != nil {
			ctx.throw(thrown)
			return -1
		}
	}
	f.set64(obj, value)
	return 0
}

// SetObjectInstance stores a reference in an instance field of obj.
//
//tern:entrypoint tern_set_obj_instance
func (rt *Runtime) SetObjectInstance(ctx *ExecutionContext, fieldIdx uint32, from *MethodDescriptor, obj *Object, value *Object) int32 {
	f := rt.findFieldFast(from, unit.FieldIndex(fieldIdx), false, unit.WidthRef, true)
	if f == nil {
		var thrown *Thrown
		f, thrown = rt.resolveField(ctx, from, unit.FieldIndex(fieldIdx), false, unit.WidthRef, true)
		if thrown != nil {
			ctx.throw(thrown)
			return -1
		}
	}
	f.setRef(obj, value)
	return 0
}

// Get32Instance loads a 32-bit value from an instance field of obj.
//
//tern:entrypoint tern_get32_instance
func (rt *Runtime) Get32Instance(ctx *ExecutionContext, fieldIdx uint32, from *MethodDescriptor, obj *Object) uint32 {
	f := rt.findFieldFast(from, unit.FieldIndex(fieldIdx), false, unit.Width32, false)
	if f == nil {
		var thrown *Thrown
		f, thrown = rt.resolveField(ctx, from, unit.FieldIndex(fieldIdx), false, unit.Width32, false)
		if thrown != nil {
			ctx.throw(thrown)
			return 0
		}
	}
	return f.get32(obj)
}

// Get64Instance loads a 64-bit value from an instance field of obj.
//
//tern:entrypoint tern_get64_instance
func (rt *Runtime) Get64Instance(ctx *ExecutionContext, fieldIdx uint32, from *MethodDescriptor, obj *Object) uint64 {
	f := rt.findFieldFast(from, unit.FieldIndex(fieldIdx), false, unit.Width64, false)
	if f == nil {
		var thrown *Thrown
		f, thrown = rt.resolveField(ctx, from, unit.FieldIndex(fieldIdx), false, unit.Width64, false)
		if thrown != nil {
			ctx.throw(thrown)
			return 0
		}
	}
	return f.get64(obj)
}

// GetObjectInstance loads a reference from an instance field of obj.
//
//tern:entrypoint tern_get_obj_instance
func (rt *Runtime) GetObjectInstance(ctx *ExecutionContext, fieldIdx uint32, from *MethodDescriptor, obj *Object) *Object {
	f := rt.findFieldFast(from, unit.FieldIndex(fieldIdx), false, unit.WidthRef, false)
	if f == nil {
		var thrown *Thrown
		f, thrown = rt.resolveField(ctx, from, unit.FieldIndex(fieldIdx), false, unit.WidthRef, false)
		if thrown != nil {
			ctx.throw(thrown)
			return nil
		}
	}
	return f.getRef(obj)
}
