// Package runtime implements the execution engine's compiled-code support
// layer: the entry points ahead-of-time compiled code calls for allocation,
// field and method resolution, type checks, exception dispatch, monitors,
// and the symbol tables that bind generated code to those entry points.
package runtime

//go:generate go run github.com/ternlang/tern/cmd/entgen -pkg . -o entrypoint_table_gen.go

import (
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"

	"github.com/ternlang/tern/unit"
)

var log = commonlog.GetLogger("tern.runtime")

// ----------------------------------------------------------------------------
// Options
// ----------------------------------------------------------------------------

const (
	// DefaultMaxFrames is the per-context frame budget.
	DefaultMaxFrames = 1024

	// DefaultReserveFrames is the extra headroom granted while a frame
	// overflow error is being constructed.
	DefaultReserveFrames = 32

	// DefaultHeapLimit bounds managed object storage.
	DefaultHeapLimit = 64 << 20
)

// UnwindObserver is notified before the runtime raises a frame overflow,
// while the faulting context's frames are still intact. Profilers and
// tracers hook it to record the aborted activation.
type UnwindObserver func(ctx *ExecutionContext)

// Options configures a Runtime. The zero value selects the defaults.
type Options struct {
	// MaxFrames is the frame budget per execution context.
	MaxFrames int

	// ReserveFrames is the overflow headroom. While a frame overflow
	// error is constructed the faulting context may push this many
	// frames beyond MaxFrames.
	ReserveFrames int

	// HeapLimit bounds managed object storage in bytes.
	HeapLimit int64

	// Contexts supplies the current execution context to entry points
	// that are called without one. Nil selects a goroutine-keyed
	// accessor.
	Contexts ContextAccessor

	// OnUnwind, when set, observes frame overflow unwinds.
	OnUnwind UnwindObserver
}

func (o Options) withDefaults() Options {
	if o.MaxFrames <= 0 {
		o.MaxFrames = DefaultMaxFrames
	}
	if o.ReserveFrames <= 0 {
		o.ReserveFrames = DefaultReserveFrames
	}
	if o.HeapLimit <= 0 {
		o.HeapLimit = DefaultHeapLimit
	}
	return o
}

// ----------------------------------------------------------------------------
// Runtime
// ----------------------------------------------------------------------------

// Runtime owns the loaded type graph, the heap accounting, the suspension
// coordinator, and the entry points compiled code calls. A process may run
// several runtimes; every entry point is a Runtime method.
type Runtime struct {
	opts Options

	heap       *Heap
	suspend    *SuspendCoordinator
	handles    *HandleStore
	contexts   ContextAccessor
	goroutines *GoroutineContexts // nil when Options.Contexts was supplied

	typesMu sync.RWMutex
	types   map[string]*TypeDescriptor
	units   map[string]*LinkageCache

	internMu sync.RWMutex
	interned map[string]*Object

	nextContextID atomic.Int64

	onUnwind UnwindObserver

	// oom is the preallocated out-of-memory throwable. Allocation
	// failures install it so that reporting exhaustion never allocates.
	oom *Object

	throwableMessage *FieldDescriptor

	// Root and well-known classes, linked at construction.
	ObjectClass    *TypeDescriptor
	StringClass    *TypeDescriptor
	ThrowableClass *TypeDescriptor
	ErrorClass     *TypeDescriptor

	ZeroDivideClass          *TypeDescriptor
	NullAccessClass          *TypeDescriptor
	IndexOutOfBoundsClass    *TypeDescriptor
	NegativeArraySizeClass   *TypeDescriptor
	StackOverflowClass       *TypeDescriptor
	OutOfMemoryClass         *TypeDescriptor
	NoSuchMethodClass        *TypeDescriptor
	NoSuchFieldClass         *TypeDescriptor
	ClassCastClass           *TypeDescriptor
	ArrayStoreClass          *TypeDescriptor
	IllegalMonitorStateClass *TypeDescriptor
	IllegalAccessClass       *TypeDescriptor
	InstantiationClass       *TypeDescriptor
	IncompatibleLinkageClass *TypeDescriptor
	TypeNotFoundClass        *TypeDescriptor
	InitializerErrorClass    *TypeDescriptor

	IntClass     *TypeDescriptor
	LongClass    *TypeDescriptor
	FloatClass   *TypeDescriptor
	DoubleClass  *TypeDescriptor
	BooleanClass *TypeDescriptor
	ByteClass    *TypeDescriptor
	ShortClass   *TypeDescriptor
	CharClass    *TypeDescriptor
}

// NewRuntime constructs a runtime with the bootstrap type graph loaded and
// the out-of-memory instance preallocated.
func NewRuntime(opts Options) *Runtime {
	opts = opts.withDefaults()
	rt := &Runtime{
		opts:     opts,
		heap:     NewHeap(opts.HeapLimit),
		suspend:  NewSuspendCoordinator(),
		handles:  NewHandleStore(),
		types:    make(map[string]*TypeDescriptor),
		units:    make(map[string]*LinkageCache),
		interned: make(map[string]*Object),
		onUnwind: opts.OnUnwind,
	}
	if opts.Contexts != nil {
		rt.contexts = opts.Contexts
	} else {
		rt.goroutines = NewGoroutineContexts()
		rt.contexts = rt.goroutines
	}
	rt.bootstrapTypes()
	rt.preallocateOOM()
	return rt
}

// Heap returns the runtime's heap accounting.
func (rt *Runtime) Heap() *Heap { return rt.heap }

// Suspension returns the safepoint coordinator.
func (rt *Runtime) Suspension() *SuspendCoordinator { return rt.suspend }

// Handles returns the pinned-reference store shared with native callers.
func (rt *Runtime) Handles() *HandleStore { return rt.handles }

// LookupType returns a loaded type by name. Array types are materialized
// on demand when their element type is loaded.
func (rt *Runtime) LookupType(name string) (*TypeDescriptor, bool) {
	t := rt.typeByName(name)
	return t, t != nil
}

// Unit returns the linkage cache of a registered unit.
func (rt *Runtime) Unit(name string) (*LinkageCache, bool) {
	rt.typesMu.RLock()
	defer rt.typesMu.RUnlock()
	lc, ok := rt.units[name]
	return lc, ok
}

// ----------------------------------------------------------------------------
// Bootstrap types
// ----------------------------------------------------------------------------

func (rt *Runtime) bootstrapTypes() {
	object := rt.defineBootstrapClass("Object", nil, unit.AccPublic)
	rt.ObjectClass = object

	rt.StringClass = rt.defineBootstrapClass("String", object, unit.AccPublic|unit.AccFinal)

	throwable := rt.defineBootstrapClass("Throwable", object, unit.AccPublic)
	rt.ThrowableClass = throwable
	rt.throwableMessage = &FieldDescriptor{
		owner: throwable,
		name:  "message",
		width: unit.WidthRef,
		flags: unit.AccPublic,
		slot:  0,
	}
	throwable.fields = []*FieldDescriptor{rt.throwableMessage}
	throwable.nref = 1

	errClass := rt.defineBootstrapClass("Error", throwable, unit.AccPublic)
	rt.ErrorClass = errClass

	leaf := func(name string) *TypeDescriptor {
		return rt.defineBootstrapClass(name, errClass, unit.AccPublic|unit.AccFinal)
	}
	rt.ZeroDivideClass = leaf("ZeroDivideError")
	rt.NullAccessClass = leaf("NullAccessError")
	rt.IndexOutOfBoundsClass = leaf("IndexOutOfBoundsError")
	rt.NegativeArraySizeClass = leaf("NegativeArraySizeError")
	rt.StackOverflowClass = leaf("StackOverflowError")
	rt.OutOfMemoryClass = leaf("OutOfMemoryError")
	rt.NoSuchMethodClass = leaf("NoSuchMethodError")
	rt.NoSuchFieldClass = leaf("NoSuchFieldError")
	rt.ClassCastClass = leaf("ClassCastError")
	rt.ArrayStoreClass = leaf("ArrayStoreError")
	rt.IllegalMonitorStateClass = leaf("IllegalMonitorStateError")
	rt.IllegalAccessClass = leaf("IllegalAccessError")
	rt.InstantiationClass = leaf("InstantiationError")
	rt.IncompatibleLinkageClass = leaf("IncompatibleLinkageError")
	rt.TypeNotFoundClass = leaf("TypeNotFoundError")
	rt.InitializerErrorClass = leaf("InitializerError")

	prim := func(name string, width unit.Width) *TypeDescriptor {
		t := newTypeDescriptor(name, KindPrimitive, unit.AccPublic|unit.AccFinal, nil, nil)
		t.width = width
		t.initState.Store(uint32(initDone))
		rt.types[name] = t
		return t
	}
	rt.IntClass = prim("int", unit.Width32)
	rt.LongClass = prim("long", unit.Width64)
	rt.FloatClass = prim("float", unit.Width32)
	rt.DoubleClass = prim("double", unit.Width64)
	rt.BooleanClass = prim("boolean", unit.Width32)
	rt.ByteClass = prim("byte", unit.Width32)
	rt.ShortClass = prim("short", unit.Width32)
	rt.CharClass = prim("char", unit.Width32)
}

// defineBootstrapClass links a classless-unit class with no declared
// members. Bootstrap classes have no initializers and are born initialized.
func (rt *Runtime) defineBootstrapClass(name string, super *TypeDescriptor, flags unit.AccessFlags) *TypeDescriptor {
	t := newTypeDescriptor(name, KindClass, flags, super, nil)
	if super != nil {
		t.n32 = super.n32
		t.n64 = super.n64
		t.nref = super.nref
	}
	t.initState.Store(uint32(initDone))
	rt.types[name] = t
	return t
}

func (rt *Runtime) preallocateOOM() {
	obj, ok := rt.heap.AllocObject(rt.OutOfMemoryClass)
	if !ok {
		log.Criticalf("heap limit %d too small for bootstrap", rt.heap.Limit())
		panic("runtime: heap limit too small for bootstrap")
	}
	msg, ok := rt.heap.AllocString(rt.StringClass, "out of memory")
	if !ok {
		panic("runtime: heap limit too small for bootstrap")
	}
	rt.throwableMessage.setRef(obj, msg)
	rt.oom = obj
}

// ----------------------------------------------------------------------------
// Type table
// ----------------------------------------------------------------------------

// typeByName resolves a loaded type, materializing array types on demand.
// Returns nil when the name is unknown.
func (rt *Runtime) typeByName(name string) *TypeDescriptor {
	rt.typesMu.RLock()
	t := rt.types[name]
	rt.typesMu.RUnlock()
	if t != nil {
		return t
	}
	if elem, ok := arrayElementName(name); ok {
		component := rt.typeByName(elem)
		if component == nil {
			return nil
		}
		return rt.arrayOf(component)
	}
	return nil
}

// arrayOf returns the array type with the given component, creating and
// registering it on first use.
func (rt *Runtime) arrayOf(component *TypeDescriptor) *TypeDescriptor {
	name := component.name + "[]"
	rt.typesMu.Lock()
	defer rt.typesMu.Unlock()
	if t := rt.types[name]; t != nil {
		return t
	}
	t := newTypeDescriptor(name, KindArray, unit.AccPublic|unit.AccFinal, rt.ObjectClass, nil)
	t.component = component
	t.initState.Store(uint32(initDone))
	rt.types[name] = t
	return t
}

// arrayElementName strips one trailing "[]". The bool reports whether name
// denotes an array type.
func arrayElementName(name string) (string, bool) {
	if len(name) > 2 && name[len(name)-2] == '[' && name[len(name)-1] == ']' {
		return name[:len(name)-2], true
	}
	return "", false
}

// registerType publishes a linked type. The caller holds typesMu.
func (rt *Runtime) registerType(t *TypeDescriptor) {
	rt.types[t.name] = t
}
