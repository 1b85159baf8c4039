package runtime

import "fmt"

// ----------------------------------------------------------------------------
// Thrown values
// ----------------------------------------------------------------------------

// Thrown carries a managed throwable through Go error returns. Resolution
// helpers return (result, *Thrown); only entry points install the throwable
// as a context's pending exception and map it to the ABI sentinel.
type Thrown struct {
	obj *Object
	msg string
}

// NewThrown wraps a managed throwable. Embedder-bound code (initializer
// bodies, native methods) uses it to report a throw.
func NewThrown(obj *Object) *Thrown {
	return &Thrown{obj: obj}
}

// Throwable returns the carried managed object.
func (t *Thrown) Throwable() *Object { return t.obj }

func (t *Thrown) Error() string {
	if t.msg != "" {
		return t.obj.class.name + ": " + t.msg
	}
	return t.obj.class.name
}

// errorf allocates a throwable of the given class with a formatted message.
// When the heap cannot hold it, the preallocated out-of-memory instance is
// substituted so that raising never fails.
func (rt *Runtime) errorf(ctx *ExecutionContext, class *TypeDescriptor, format string, args ...any) *Thrown {
	msg := fmt.Sprintf(format, args...)
	obj, ok := rt.heap.AllocObject(class)
	if !ok {
		log.Warningf("context %d: heap exhausted constructing %s: %s", ctx.id, class.name, msg)
		return rt.thrownOOM()
	}
	if msgObj, ok := rt.heap.AllocString(rt.StringClass, msg); ok {
		rt.throwableMessage.setRef(obj, msgObj)
	}
	return &Thrown{obj: obj, msg: msg}
}

func (rt *Runtime) thrownOOM() *Thrown {
	return &Thrown{obj: rt.oom, msg: "out of memory"}
}

// ThrowableMessage returns the message string of a throwable, or "" when
// it has none.
func (rt *Runtime) ThrowableMessage(obj *Object) string {
	if obj == nil || !obj.class.IsSubclassOf(rt.ThrowableClass) {
		return ""
	}
	msg := rt.throwableMessage.getRef(obj)
	if msg == nil {
		return ""
	}
	return msg.str
}

// ----------------------------------------------------------------------------
// Throw entry points
// ----------------------------------------------------------------------------

// ThrowZeroDivide raises the division-by-zero error. Compiled code calls it
// after testing an integral divisor.
//
//tern:entrypoint tern_throw_zero_divide
func (rt *Runtime) ThrowZeroDivide(ctx *ExecutionContext) {
	ctx.throw(rt.errorf(ctx, rt.ZeroDivideClass, "divide by zero"))
}

// ThrowIndexBounds raises an index error carrying the failing length and
// index.
//
//tern:entrypoint tern_throw_index_bounds
func (rt *Runtime) ThrowIndexBounds(ctx *ExecutionContext, length, index int32) {
	ctx.throw(rt.errorf(ctx, rt.IndexOutOfBoundsClass, "length=%d; index=%d", length, index))
}

// ThrowNoSuchMethod raises a missing-method error for a method pool index,
// rendered against the calling method's unit.
//
//tern:entrypoint tern_throw_no_such_method
func (rt *Runtime) ThrowNoSuchMethod(ctx *ExecutionContext, methodIdx uint32) {
	ctx.throw(rt.errorf(ctx, rt.NoSuchMethodClass, "%s", rt.renderMethodRef(ctx, methodIdx)))
}

func (rt *Runtime) renderMethodRef(ctx *ExecutionContext, methodIdx uint32) string {
	if ctx.top != nil && ctx.top.Method != nil {
		if lc := linkageOf(ctx.top.Method); lc != nil && int(methodIdx) < len(lc.unit.Methods) {
			ref := lc.unit.Methods[methodIdx]
			return fmt.Sprintf("no such method: %s.%s %s",
				lc.unit.TypeName(ref.Owner), ref.Name, ref.Signature)
		}
	}
	return fmt.Sprintf("no such method: index %d", methodIdx)
}

// ThrowNullAccess raises the null-reference error. Compiled code calls it
// after a failed null check.
//
//tern:entrypoint tern_throw_null_access
func (rt *Runtime) ThrowNullAccess(ctx *ExecutionContext) {
	ctx.throw(rt.errorf(ctx, rt.NullAccessClass, "null reference"))
}

// ThrowStackOverflow raises the frame overflow error. The unwind observer
// runs first, while the faulting frames are intact. Constructing the error
// itself needs frames, so the context's reserve headroom is granted for
// the duration and restored before the throw is installed. Overflowing the
// reserve too is fatal.
//
//tern:entrypoint tern_throw_stack_overflow
func (rt *Runtime) ThrowStackOverflow(ctx *ExecutionContext) {
	if rt.onUnwind != nil {
		rt.onUnwind(ctx)
	}
	if !ctx.extendForOverflow() {
		log.Criticalf("context %d: frame overflow while constructing overflow error", ctx.id)
		panic("runtime: recursive frame overflow")
	}
	t := rt.errorf(ctx, rt.StackOverflowClass, "frame depth %d; budget %d", ctx.depth, rt.opts.MaxFrames)
	ctx.resetOverflowReserve()
	ctx.throw(t)
}

// Throw raises a program-built throwable. Throwing nil raises a
// null-reference error instead.
//
//tern:entrypoint tern_throw
func (rt *Runtime) Throw(ctx *ExecutionContext, obj *Object) {
	if obj == nil {
		ctx.throw(rt.errorf(ctx, rt.NullAccessClass, "throw with null exception"))
		return
	}
	ctx.throw(&Thrown{obj: obj})
}
