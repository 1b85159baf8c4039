package runtime

import (
	"sync"
	"sync/atomic"

	"github.com/ternlang/tern/unit"
)

// ----------------------------------------------------------------------------
// Type descriptors
// ----------------------------------------------------------------------------

// Kind tags a type descriptor. Assignability dispatches on it without
// string inspection.
type Kind uint8

const (
	KindPrimitive Kind = iota
	KindClass
	KindInterface
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Initialization states. A type moves Linked → Initializing → Initialized,
// or to Failed when its initializer throws. Failed is terminal.
const (
	initLinked uint32 = iota
	initRunning
	initDone
	initFailed
)

// TypeDescriptor is the runtime representation of a loaded type. Descriptors
// are created by the linker (or the bootstrap) and are immutable afterwards
// except for the initialization state machine and the lazily bound
// initializer body.
type TypeDescriptor struct {
	name  string
	kind  Kind
	flags unit.AccessFlags

	super *TypeDescriptor

	// display lists the superclass chain root-first with the type itself
	// last. Subclass tests index it instead of walking the chain.
	display []*TypeDescriptor

	// ifaces is the transitive closure of implemented interfaces,
	// including those inherited from superclasses and superinterfaces.
	ifaces map[*TypeDescriptor]struct{}

	// component is the element type of an array type.
	component *TypeDescriptor

	// width is the storage width of a primitive type's values.
	width unit.Width

	// lc is the linkage cache of the defining unit. Bootstrap types have
	// none.
	lc *LinkageCache

	// Instance layout: slot counts per width class, including inherited
	// slots.
	n32, n64, nref int

	fields  []*FieldDescriptor  // declared fields, statics included
	methods []*MethodDescriptor // declared methods

	// vtable holds the virtual dispatch table. Interface types use
	// methods directly; itable maps each implemented interface to the
	// concrete targets in that interface's declaration order.
	vtable []*MethodDescriptor
	itable map[*TypeDescriptor][]*MethodDescriptor

	statics *StaticStorage

	initState atomic.Uint32
	initMu    sync.Mutex
	initCond  *sync.Cond
	initOwner *ExecutionContext
	initFn    InitializerFunc
}

// InitializerFunc is a bound static initializer body. It reports failure
// as a thrown value rather than installing it.
type InitializerFunc func(ctx *ExecutionContext) *Thrown

func newTypeDescriptor(name string, kind Kind, flags unit.AccessFlags, super *TypeDescriptor, lc *LinkageCache) *TypeDescriptor {
	t := &TypeDescriptor{
		name:   name,
		kind:   kind,
		flags:  flags,
		super:  super,
		lc:     lc,
		ifaces: make(map[*TypeDescriptor]struct{}),
	}
	if super != nil {
		t.display = make([]*TypeDescriptor, len(super.display)+1)
		copy(t.display, super.display)
		t.display[len(super.display)] = t
		for i := range super.ifaces {
			t.ifaces[i] = struct{}{}
		}
	} else {
		t.display = []*TypeDescriptor{t}
	}
	t.initCond = sync.NewCond(&t.initMu)
	return t
}

func (t *TypeDescriptor) Name() string            { return t.name }
func (t *TypeDescriptor) Kind() Kind              { return t.kind }
func (t *TypeDescriptor) Flags() unit.AccessFlags { return t.flags }
func (t *TypeDescriptor) Super() *TypeDescriptor  { return t.super }
func (t *TypeDescriptor) IsPrimitive() bool       { return t.kind == KindPrimitive }
func (t *TypeDescriptor) IsInterface() bool       { return t.kind == KindInterface }
func (t *TypeDescriptor) IsArray() bool           { return t.kind == KindArray }

// ComponentType returns the element type of an array type, or nil.
func (t *TypeDescriptor) ComponentType() *TypeDescriptor { return t.component }

// Statics returns the type's static field storage. Types without static
// fields may return nil.
func (t *TypeDescriptor) Statics() *StaticStorage { return t.statics }

// Initialized reports whether the type's initializer has completed.
func (t *TypeDescriptor) Initialized() bool {
	return t.initState.Load() == initDone
}

// InitFailed reports whether the type's initializer ran and threw.
func (t *TypeDescriptor) InitFailed() bool {
	return t.initState.Load() == initFailed
}

// IsSubclassOf reports whether t is other or a subclass of it. Interfaces
// and arrays count as subclasses of the root object class only.
func (t *TypeDescriptor) IsSubclassOf(other *TypeDescriptor) bool {
	d := len(other.display) - 1
	return d < len(t.display) && t.display[d] == other
}

// Implements reports whether t lists iface in its transitive interface set.
func (t *TypeDescriptor) Implements(iface *TypeDescriptor) bool {
	_, ok := t.ifaces[iface]
	return ok
}

// IsAssignableFrom reports whether a value of type src may be stored where
// a value of type t is expected. It never resolves, allocates, or raises.
//
// Primitives are assignable only from themselves. Interfaces accept any
// implementor. Arrays are covariant in reference components and invariant
// in primitive components. Classes accept their subclasses; the root
// object class additionally accepts every interface and array type.
func (t *TypeDescriptor) IsAssignableFrom(src *TypeDescriptor) bool {
	if t == src {
		return true
	}
	switch t.kind {
	case KindPrimitive:
		return false
	case KindInterface:
		return src.Implements(t)
	case KindArray:
		if src.kind != KindArray {
			return false
		}
		tc, sc := t.component, src.component
		if tc.kind == KindPrimitive || sc.kind == KindPrimitive {
			return tc == sc
		}
		return tc.IsAssignableFrom(sc)
	default:
		return src.IsSubclassOf(t)
	}
}

// Field returns the named field, searching declared fields and then the
// superclass chain.
func (t *TypeDescriptor) Field(name string) (*FieldDescriptor, bool) {
	for c := t; c != nil; c = c.super {
		for _, f := range c.fields {
			if f.name == name {
				return f, true
			}
		}
	}
	return nil, false
}

// Method returns the method with the given name and signature, searching
// declared methods and then the superclass chain.
func (t *TypeDescriptor) Method(name, signature string) (*MethodDescriptor, bool) {
	for c := t; c != nil; c = c.super {
		for _, m := range c.methods {
			if m.name == name && m.signature == signature {
				return m, true
			}
		}
	}
	return nil, false
}

// interfaceMethod searches an interface type and its superinterfaces.
func (t *TypeDescriptor) interfaceMethod(name, signature string) *MethodDescriptor {
	for _, m := range t.methods {
		if m.name == name && m.signature == signature {
			return m
		}
	}
	for iface := range t.ifaces {
		for _, m := range iface.methods {
			if m.name == name && m.signature == signature {
				return m
			}
		}
	}
	return nil
}

// concreteTarget returns the entry of t's vtable a resolved virtual method
// dispatches to, or nil when the slot is out of range.
func (t *TypeDescriptor) concreteTarget(m *MethodDescriptor) *MethodDescriptor {
	if m.vslot < 0 || m.vslot >= len(t.vtable) {
		return nil
	}
	return t.vtable[m.vslot]
}

// ----------------------------------------------------------------------------
// Static storage
// ----------------------------------------------------------------------------

// StaticStorage holds a type's static field slots, segregated by width.
type StaticStorage struct {
	w32  []uint32
	w64  []uint64
	refs []*Object
}

func newStaticStorage(n32, n64, nref int) *StaticStorage {
	return &StaticStorage{
		w32:  make([]uint32, n32),
		w64:  make([]uint64, n64),
		refs: make([]*Object, nref),
	}
}
