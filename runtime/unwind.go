package runtime

import "github.com/ternlang/tern/unit"

// FindCatchTarget scans m's exception handler table for the pending
// exception at the given code location. Entries are tried in declaration
// order; the first whose range covers loc and whose catch type matches the
// exception wins, not the narrowest. The match is returned as the entry's
// index in the handler table, or -1 when no entry matches and the frame
// must unwind.
//
// A handler naming a type the context's unit has not resolved is skipped:
// an unresolved catch type cannot have been instantiated, so it cannot
// match the in-flight exception. The scan continues past it.
//
//tern:entrypoint tern_find_catch_target
func (rt *Runtime) FindCatchTarget(ctx *ExecutionContext, m *MethodDescriptor, loc uint32) int32 {
	ex := ctx.pending
	if ex == nil {
		panic("runtime: find catch target with no pending exception")
	}
	lc := linkageOf(m)
	for i, h := range m.handlers {
		if loc < h.Start || loc >= h.End {
			continue
		}
		if h.CatchType == unit.CatchAll {
			return int32(i)
		}
		caught := lc.peekType(h.CatchType)
		if caught == nil {
			log.Warningf("unresolved exception class when finding catch target: %s",
				lc.unit.TypeName(h.CatchType))
			continue
		}
		if caught.IsAssignableFrom(ex.class) {
			return int32(i)
		}
	}
	return -1
}
