package runtime

import (
	"fmt"

	"github.com/ternlang/tern/unit"
)

// RegisterUnit links a unit into the runtime: every class definition gets
// a descriptor with its slot layout, vtable, and interface tables, and the
// unit gets a linkage cache for its pools. Registration is atomic; on
// error nothing is published. Superclasses must be defined in the same
// unit, an already registered unit, or the bootstrap set.
func (rt *Runtime) RegisterUnit(u *unit.Unit) (*LinkageCache, error) {
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("runtime: register %s: %w", u.Name, err)
	}

	rt.typesMu.Lock()
	defer rt.typesMu.Unlock()

	if _, ok := rt.units[u.Name]; ok {
		return nil, fmt.Errorf("runtime: unit %s already registered", u.Name)
	}
	for i := range u.Classes {
		name := u.Types[u.Classes[i].Type]
		if _, ok := rt.types[name]; ok {
			return nil, fmt.Errorf("runtime: register %s: type %s already defined", u.Name, name)
		}
	}

	lc := newLinkageCache(u)
	linked := make(map[string]*TypeDescriptor, len(u.Classes))

	// Classes may reference in-unit supers defined later in the list, so
	// link in passes until a pass makes no progress.
	remaining := make([]*unit.ClassDef, len(u.Classes))
	for i := range u.Classes {
		remaining[i] = &u.Classes[i]
	}
	for len(remaining) > 0 {
		var deferred []*unit.ClassDef
		for _, def := range remaining {
			super, ifaces, ready, err := rt.resolveHierarchy(u, def, linked)
			if err != nil {
				return nil, fmt.Errorf("runtime: register %s: %w", u.Name, err)
			}
			if !ready {
				deferred = append(deferred, def)
				continue
			}
			td, err := rt.linkClass(u, lc, def, super, ifaces)
			if err != nil {
				return nil, fmt.Errorf("runtime: register %s: %w", u.Name, err)
			}
			linked[td.name] = td
		}
		if len(deferred) == len(remaining) {
			return nil, fmt.Errorf("runtime: register %s: superclass cycle or missing definition involving %s",
				u.Name, u.Types[deferred[0].Type])
		}
		remaining = deferred
	}

	for _, td := range linked {
		rt.registerType(td)
	}
	rt.units[u.Name] = lc
	return lc, nil
}

// resolveHierarchy locates a definition's superclass and interfaces among
// the in-unit linked set and the global table. ready is false while an
// in-unit dependency is not linked yet.
func (rt *Runtime) resolveHierarchy(u *unit.Unit, def *unit.ClassDef, linked map[string]*TypeDescriptor) (super *TypeDescriptor, ifaces []*TypeDescriptor, ready bool, err error) {
	lookup := func(idx unit.TypeIndex) *TypeDescriptor {
		name := u.Types[idx]
		if t, ok := linked[name]; ok {
			return t
		}
		return rt.types[name]
	}

	if def.Super == unit.NoSuper {
		return nil, nil, false, fmt.Errorf("class %s has no superclass", u.Types[def.Type])
	}
	super = lookup(def.Super)
	if super == nil {
		return nil, nil, false, nil
	}
	for _, it := range def.Interfaces {
		iface := lookup(it)
		if iface == nil {
			return nil, nil, false, nil
		}
		ifaces = append(ifaces, iface)
	}
	return super, ifaces, true, nil
}

func (rt *Runtime) linkClass(u *unit.Unit, lc *LinkageCache, def *unit.ClassDef, super *TypeDescriptor, ifaces []*TypeDescriptor) (*TypeDescriptor, error) {
	name := u.Types[def.Type]

	kind := KindClass
	if def.Flags.IsInterface() {
		kind = KindInterface
	}
	if super.IsInterface() {
		return nil, fmt.Errorf("class %s extends interface %s", name, super.name)
	}
	if super.flags.IsFinal() {
		return nil, fmt.Errorf("class %s extends final class %s", name, super.name)
	}
	if kind == KindInterface && super != rt.ObjectClass {
		return nil, fmt.Errorf("interface %s must extend %s", name, rt.ObjectClass.name)
	}

	td := newTypeDescriptor(name, kind, def.Flags, super, lc)
	td.n32, td.n64, td.nref = super.n32, super.n64, super.nref

	for _, iface := range ifaces {
		if !iface.IsInterface() {
			return nil, fmt.Errorf("class %s implements non-interface %s", name, iface.name)
		}
		td.ifaces[iface] = struct{}{}
		for sub := range iface.ifaces {
			td.ifaces[sub] = struct{}{}
		}
	}

	if err := rt.linkFields(u, def, td); err != nil {
		return nil, err
	}
	rt.linkMethods(u, def, td)
	if kind == KindClass {
		rt.linkInterfaceTables(td)
	}
	return td, nil
}

// linkFields assigns slots: instance fields continue the superclass's
// per-width counts, static fields index the type's own storage.
func (rt *Runtime) linkFields(u *unit.Unit, def *unit.ClassDef, td *TypeDescriptor) error {
	var s32, s64, sref int
	for _, fd := range def.Fields {
		ref := u.Fields[fd.Field]
		if td.kind == KindInterface && !fd.Flags.IsStatic() {
			return fmt.Errorf("interface %s declares instance field %s", td.name, ref.Name)
		}
		f := &FieldDescriptor{owner: td, name: ref.Name, width: ref.Width, flags: fd.Flags}
		if fd.Flags.IsStatic() {
			switch ref.Width {
			case unit.Width32:
				f.slot = s32
				s32++
			case unit.Width64:
				f.slot = s64
				s64++
			default:
				f.slot = sref
				sref++
			}
		} else {
			switch ref.Width {
			case unit.Width32:
				f.slot = td.n32
				td.n32++
			case unit.Width64:
				f.slot = td.n64
				td.n64++
			default:
				f.slot = td.nref
				td.nref++
			}
		}
		td.fields = append(td.fields, f)
	}
	td.statics = newStaticStorage(s32, s64, sref)
	return nil
}

// linkMethods builds descriptors and the vtable. A method overriding a
// superclass method by name and signature takes over its slot; new virtual
// methods extend the table. Interface methods get declaration-order slots
// within their interface.
func (rt *Runtime) linkMethods(u *unit.Unit, def *unit.ClassDef, td *TypeDescriptor) {
	if td.kind == KindClass {
		td.vtable = append([]*MethodDescriptor(nil), td.super.vtable...)
	}
	ifaceSlot := 0
	for _, md := range def.Methods {
		ref := u.Methods[md.Method]
		m := &MethodDescriptor{
			owner:     td,
			name:      ref.Name,
			signature: ref.Signature,
			flags:     md.Flags,
			vslot:     -1,
			handlers:  md.Handlers,
		}
		td.methods = append(td.methods, m)

		if md.Flags.IsStatic() || md.Flags.IsPrivate() {
			continue
		}
		if td.kind == KindInterface {
			m.vslot = ifaceSlot
			ifaceSlot++
			continue
		}
		slot := -1
		for i, sm := range td.vtable {
			if sm.name == m.name && sm.signature == m.signature {
				slot = i
				break
			}
		}
		if slot >= 0 {
			m.vslot = slot
			td.vtable[slot] = m
		} else {
			m.vslot = len(td.vtable)
			td.vtable = append(td.vtable, m)
		}
	}
}

// linkInterfaceTables fills td.itable: for every implemented interface, the
// concrete target per interface slot. Slots an abstract class leaves
// unimplemented stay nil and raise at dispatch.
func (rt *Runtime) linkInterfaceTables(td *TypeDescriptor) {
	if len(td.ifaces) == 0 {
		return
	}
	td.itable = make(map[*TypeDescriptor][]*MethodDescriptor, len(td.ifaces))
	for iface := range td.ifaces {
		slots := 0
		for _, im := range iface.methods {
			if im.vslot >= 0 {
				slots++
			}
		}
		targets := make([]*MethodDescriptor, slots)
		for _, im := range iface.methods {
			if im.vslot < 0 {
				continue
			}
			if impl, ok := td.Method(im.name, im.signature); ok && !impl.IsStatic() {
				targets[im.vslot] = impl
			}
		}
		td.itable[iface] = targets
	}
}
