package runtime

import "github.com/ternlang/tern/unit"

// InternString returns the canonical string object for s, allocating it on
// first use. Interned strings compare by pointer.
func (rt *Runtime) InternString(ctx *ExecutionContext, s string) (*Object, *Thrown) {
	rt.internMu.RLock()
	obj := rt.interned[s]
	rt.internMu.RUnlock()
	if obj != nil {
		return obj, nil
	}
	rt.internMu.Lock()
	defer rt.internMu.Unlock()
	if obj := rt.interned[s]; obj != nil {
		return obj, nil
	}
	obj, ok := rt.heap.AllocString(rt.StringClass, s)
	if !ok {
		return nil, rt.thrownOOM()
	}
	rt.interned[s] = obj
	return obj, nil
}

// ResolveString resolves a string pool index to its interned object and
// publishes the resolution. String pool indexes come from the same
// compilation as the calling code; an out-of-range index is a corrupt
// unit and faults.
//
//tern:entrypoint tern_resolve_string
func (rt *Runtime) ResolveString(ctx *ExecutionContext, from *MethodDescriptor, stringIdx uint32) *Object {
	idx := unit.StringIndex(stringIdx)
	lc := linkageOf(from)
	if s := lc.peekString(idx); s != nil {
		return s
	}
	if lc == nil || int(idx) >= len(lc.unit.Strings) {
		panic("runtime: resolve string: index out of range")
	}
	obj, thrown := rt.InternString(ctx, lc.unit.Strings[idx])
	if thrown != nil {
		ctx.throw(thrown)
		return nil
	}
	return lc.publishString(idx, obj)
}
