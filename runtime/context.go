package runtime

import (
	goruntime "runtime"
	"sync"
)

// ----------------------------------------------------------------------------
// Execution contexts
// ----------------------------------------------------------------------------

// Frame is one activation record of compiled code. Compiled code owns the
// storage, pushes it on entry, keeps Location current across calls and
// safepoints, and pops it on every exit path.
type Frame struct {
	Method   *MethodDescriptor
	Location uint32

	caller *Frame
}

// Caller returns the next older frame, or nil at the bottom.
func (f *Frame) Caller() *Frame { return f.caller }

// ExecutionContext is the per-thread-of-execution state compiled code runs
// under: the frame chain, the pending exception slot, and the frame budget.
// A context is owned by one goroutine at a time; its fields are not
// synchronized.
type ExecutionContext struct {
	id int64
	rt *Runtime

	pending *Object

	top   *Frame
	depth int

	// extended marks the overflow headroom as spent. It resets once the
	// overflow error has been constructed and raised.
	extended bool
}

// NewContext creates an unattached execution context. Context IDs start at
// 1; 0 never names a context.
func (rt *Runtime) NewContext() *ExecutionContext {
	return &ExecutionContext{id: rt.nextContextID.Add(1), rt: rt}
}

// ID returns the context's runtime-unique ID.
func (ctx *ExecutionContext) ID() int64 { return ctx.id }

// PendingException returns the context's pending exception, or nil.
func (ctx *ExecutionContext) PendingException() *Object { return ctx.pending }

// TakeException clears and returns the pending exception. Catch dispatch
// calls it when control transfers to a handler.
func (ctx *ExecutionContext) TakeException() *Object {
	ex := ctx.pending
	ctx.pending = nil
	return ex
}

// Depth returns the number of pushed frames.
func (ctx *ExecutionContext) Depth() int { return ctx.depth }

// TopFrame returns the newest frame, or nil.
func (ctx *ExecutionContext) TopFrame() *Frame { return ctx.top }

// CheckSuspend blocks while a halt is requested. Compiled code calls it at
// safepoints; the frame chain is walkable for the duration.
func (ctx *ExecutionContext) CheckSuspend() {
	ctx.rt.suspend.Check()
}

// FrameLimitReached reports whether the next push would exceed the frame
// budget. Compiled prologues consult it and raise through the runtime's
// frame overflow entry point when it trips.
func (ctx *ExecutionContext) FrameLimitReached() bool {
	return ctx.depth >= ctx.frameBudget()
}

func (ctx *ExecutionContext) frameBudget() int {
	budget := ctx.rt.opts.MaxFrames
	if ctx.extended {
		budget += ctx.rt.opts.ReserveFrames
	}
	return budget
}

// extendForOverflow grants the reserve headroom. It reports false when the
// headroom is already spent, meaning the overflow error itself overflowed.
func (ctx *ExecutionContext) extendForOverflow() bool {
	if ctx.extended {
		return false
	}
	ctx.extended = true
	return true
}

func (ctx *ExecutionContext) resetOverflowReserve() {
	ctx.extended = false
}

// throw installs a pending exception. At most one exception is pending per
// context; a second throw before the first is consumed is a runtime bug.
func (ctx *ExecutionContext) throw(t *Thrown) {
	if ctx.pending != nil {
		log.Criticalf("context %d: %s thrown while %s pending",
			ctx.id, t.obj.class.name, ctx.pending.class.name)
		panic("runtime: exception already pending")
	}
	ctx.pending = t.obj
}

// ----------------------------------------------------------------------------
// Context accessors
// ----------------------------------------------------------------------------

// ContextAccessor supplies the current execution context for entry points
// reached without one. Implementations must be cheap; compiled code calls
// through on hot paths.
type ContextAccessor interface {
	Current() *ExecutionContext
}

// GoroutineContexts binds contexts to goroutines. It is the default
// accessor; embedders with their own scheduling inject a ContextAccessor
// instead.
type GoroutineContexts struct {
	byGoroutine sync.Map // goroutine ID → *ExecutionContext
}

// NewGoroutineContexts creates an empty goroutine-keyed accessor.
func NewGoroutineContexts() *GoroutineContexts {
	return &GoroutineContexts{}
}

// Current returns the context attached to the calling goroutine, or nil.
func (g *GoroutineContexts) Current() *ExecutionContext {
	v, ok := g.byGoroutine.Load(goroutineID())
	if !ok {
		return nil
	}
	return v.(*ExecutionContext)
}

// Attach binds ctx to the calling goroutine until Detach.
func (g *GoroutineContexts) Attach(ctx *ExecutionContext) {
	g.byGoroutine.Store(goroutineID(), ctx)
}

// Detach unbinds the calling goroutine's context.
func (g *GoroutineContexts) Detach() {
	g.byGoroutine.Delete(goroutineID())
}

// Attach binds ctx to the calling goroutine using the default accessor.
// It panics when the runtime was built with a custom ContextAccessor;
// binding is the embedder's job then.
func (rt *Runtime) Attach(ctx *ExecutionContext) {
	if rt.goroutines == nil {
		panic("runtime: Attach with custom context accessor")
	}
	rt.goroutines.Attach(ctx)
}

// Detach unbinds the calling goroutine's context.
func (rt *Runtime) Detach() {
	if rt.goroutines == nil {
		panic("runtime: Detach with custom context accessor")
	}
	rt.goroutines.Detach()
}

// goroutineID parses the goroutine ID from the stack header without
// allocating.
func goroutineID() int64 {
	var buf [64]byte
	n := goruntime.Stack(buf[:], false)
	// Header shape: "goroutine 123 [running]:".
	const prefix = len("goroutine ")
	var id int64
	for _, c := range buf[prefix:n] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}

// ----------------------------------------------------------------------------
// Entry points
// ----------------------------------------------------------------------------

// CurrentContext returns the execution context of the caller, or nil when
// the calling goroutine has none attached.
//
//tern:entrypoint tern_current_context
func (rt *Runtime) CurrentContext() *ExecutionContext {
	return rt.contexts.Current()
}

// ExceptionPending reports whether ctx has a pending exception. Compiled
// code branches on it after calls that may raise.
//
//tern:entrypoint tern_exception_pending
func (rt *Runtime) ExceptionPending(ctx *ExecutionContext) int32 {
	if ctx.pending != nil {
		return 1
	}
	return 0
}

// PushFrame links a caller-owned frame onto ctx's frame chain.
//
//tern:entrypoint tern_push_frame
func (rt *Runtime) PushFrame(ctx *ExecutionContext, f *Frame) {
	f.caller = ctx.top
	ctx.top = f
	ctx.depth++
}

// PopFrame unlinks the newest frame. Compiled code pops exactly the frames
// it pushed, on every exit path, exceptional ones included.
//
//tern:entrypoint tern_pop_frame
func (rt *Runtime) PopFrame(ctx *ExecutionContext) {
	ctx.top = ctx.top.caller
	ctx.depth--
}
