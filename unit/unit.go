// Package unit defines the compiled unit format: the pools, class
// definitions, and symbol imports an ahead-of-time compiler emits and the
// runtime links. Units are pure data; resolution and layout happen at load
// time in the runtime package.
package unit

import "fmt"

// ----------------------------------------------------------------------------
// Pool indexes
// ----------------------------------------------------------------------------

// TypeIndex refers to an entry in a unit's type pool.
type TypeIndex uint32

// FieldIndex refers to an entry in a unit's field reference pool.
type FieldIndex uint32

// MethodIndex refers to an entry in a unit's method reference pool.
type MethodIndex uint32

// StringIndex refers to an entry in a unit's string pool.
type StringIndex uint32

// CatchAll marks a handler entry that matches every throwable.
const CatchAll = TypeIndex(0xFFFFFFFF)

// NoSuper marks a class definition with no superclass. Only the root
// object class uses it.
const NoSuper = TypeIndex(0xFFFFFFFF)

// ----------------------------------------------------------------------------
// Access flags
// ----------------------------------------------------------------------------

// AccessFlags carries the declaration modifiers of a class, field, or method.
type AccessFlags uint32

const (
	AccPublic AccessFlags = 1 << iota
	AccPrivate
	AccStatic
	AccFinal
	AccAbstract
	AccInterface
)

func (f AccessFlags) IsPublic() bool    { return f&AccPublic != 0 }
func (f AccessFlags) IsPrivate() bool   { return f&AccPrivate != 0 }
func (f AccessFlags) IsStatic() bool    { return f&AccStatic != 0 }
func (f AccessFlags) IsFinal() bool     { return f&AccFinal != 0 }
func (f AccessFlags) IsAbstract() bool  { return f&AccAbstract != 0 }
func (f AccessFlags) IsInterface() bool { return f&AccInterface != 0 }

// ----------------------------------------------------------------------------
// Storage widths
// ----------------------------------------------------------------------------

// Width classifies a field slot by its storage size.
type Width uint8

const (
	// Width32 holds int, float, boolean, byte, short, and char values.
	Width32 Width = iota
	// Width64 holds long and double values.
	Width64
	// WidthRef holds an object reference.
	WidthRef
)

func (w Width) String() string {
	switch w {
	case Width32:
		return "32-bit"
	case Width64:
		return "64-bit"
	case WidthRef:
		return "reference"
	default:
		return fmt.Sprintf("Width(%d)", uint8(w))
	}
}

// ----------------------------------------------------------------------------
// Symbolic references
// ----------------------------------------------------------------------------

// FieldRef is a symbolic field reference. Compiled code names fields by
// pool index; the runtime resolves the reference against the owner's
// declared fields on first use.
type FieldRef struct {
	Owner TypeIndex
	Name  string
	Width Width
}

// MethodRef is a symbolic method reference. Signature is an opaque string;
// two methods match when both name and signature are equal.
type MethodRef struct {
	Owner     TypeIndex
	Name      string
	Signature string
}

// ----------------------------------------------------------------------------
// Class definitions
// ----------------------------------------------------------------------------

// FieldDef declares a field on a class. Field indexes the unit's field
// reference pool; the referenced entry supplies name and width.
type FieldDef struct {
	Field FieldIndex
	Flags AccessFlags
}

// MethodDef declares a method on a class. Method indexes the unit's method
// reference pool. Handlers is the method's exception handler table in the
// order the compiler emitted it.
type MethodDef struct {
	Method   MethodIndex
	Flags    AccessFlags
	Handlers []HandlerEntry
}

// HandlerEntry covers the half-open code range [Start, End). CatchType is
// the pool index of the caught class, or CatchAll. Target is the code
// offset execution resumes at when the entry matches.
type HandlerEntry struct {
	Start     uint32
	End       uint32
	CatchType TypeIndex
	Target    uint32
}

// ClassDef defines one class or interface in a unit.
type ClassDef struct {
	Type       TypeIndex
	Super      TypeIndex // NoSuper only for the root object class
	Interfaces []TypeIndex
	Flags      AccessFlags
	Fields     []FieldDef
	Methods    []MethodDef

	// HasInit marks a class with a static initializer. The embedding
	// engine binds the initializer body after the unit is registered.
	HasInit bool
}

// ----------------------------------------------------------------------------
// Unit
// ----------------------------------------------------------------------------

// Unit is one compiled unit: the pools compiled code indexes into, the
// classes the unit defines, and the runtime symbols its generated code
// references.
type Unit struct {
	Name    string
	Version string

	// Types holds type names. Array types use the element name followed
	// by "[]", nested for higher ranks.
	Types []string

	Fields  []FieldRef
	Methods []MethodRef
	Strings []string

	Classes []ClassDef

	// Symbols lists the runtime symbol names the unit's generated code
	// was linked against. Loaders resolve each against the symbol
	// registry before admitting the unit.
	Symbols []string
}

// Manifest summarizes a unit for cataloging and pre-load validation.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Types   int    `json:"types"`
	Fields  int    `json:"fields"`
	Methods int    `json:"methods"`
	Strings int    `json:"strings"`
	Classes int    `json:"classes"`
}

// Manifest returns the unit's manifest.
func (u *Unit) Manifest() Manifest {
	return Manifest{
		Name:    u.Name,
		Version: u.Version,
		Types:   len(u.Types),
		Fields:  len(u.Fields),
		Methods: len(u.Methods),
		Strings: len(u.Strings),
		Classes: len(u.Classes),
	}
}

// TypeName returns the pool entry for idx, or a placeholder when idx is
// out of range. Diagnostics use it; resolution paths bounds-check first.
func (u *Unit) TypeName(idx TypeIndex) string {
	if int(idx) >= len(u.Types) {
		return fmt.Sprintf("<type #%d>", idx)
	}
	return u.Types[idx]
}

// Validate checks internal consistency: every pool reference lands inside
// its pool and every handler range is well formed. A unit that fails
// validation must not be linked.
func (u *Unit) Validate() error {
	if u.Name == "" {
		return fmt.Errorf("unit: missing name")
	}
	if u.Version == "" {
		return fmt.Errorf("unit %s: missing version", u.Name)
	}
	for i, t := range u.Types {
		if t == "" {
			return fmt.Errorf("unit %s: empty type name at index %d", u.Name, i)
		}
	}
	for i, f := range u.Fields {
		if int(f.Owner) >= len(u.Types) {
			return fmt.Errorf("unit %s: field %d: owner type %d out of range", u.Name, i, f.Owner)
		}
		if f.Name == "" {
			return fmt.Errorf("unit %s: field %d: empty name", u.Name, i)
		}
	}
	for i, m := range u.Methods {
		if int(m.Owner) >= len(u.Types) {
			return fmt.Errorf("unit %s: method %d: owner type %d out of range", u.Name, i, m.Owner)
		}
		if m.Name == "" {
			return fmt.Errorf("unit %s: method %d: empty name", u.Name, i)
		}
	}
	for ci := range u.Classes {
		if err := u.validateClass(ci); err != nil {
			return err
		}
	}
	return nil
}

func (u *Unit) validateClass(ci int) error {
	def := &u.Classes[ci]
	if int(def.Type) >= len(u.Types) {
		return fmt.Errorf("unit %s: class %d: type %d out of range", u.Name, ci, def.Type)
	}
	name := u.Types[def.Type]
	if def.Super != NoSuper && int(def.Super) >= len(u.Types) {
		return fmt.Errorf("unit %s: class %s: super type %d out of range", u.Name, name, def.Super)
	}
	for _, it := range def.Interfaces {
		if int(it) >= len(u.Types) {
			return fmt.Errorf("unit %s: class %s: interface type %d out of range", u.Name, name, it)
		}
	}
	for _, fd := range def.Fields {
		if int(fd.Field) >= len(u.Fields) {
			return fmt.Errorf("unit %s: class %s: field ref %d out of range", u.Name, name, fd.Field)
		}
		if u.Fields[fd.Field].Owner != def.Type {
			return fmt.Errorf("unit %s: class %s: field ref %d declared on foreign owner", u.Name, name, fd.Field)
		}
	}
	for _, md := range def.Methods {
		if int(md.Method) >= len(u.Methods) {
			return fmt.Errorf("unit %s: class %s: method ref %d out of range", u.Name, name, md.Method)
		}
		if u.Methods[md.Method].Owner != def.Type {
			return fmt.Errorf("unit %s: class %s: method ref %d declared on foreign owner", u.Name, name, md.Method)
		}
		for hi, h := range md.Handlers {
			if h.Start >= h.End {
				return fmt.Errorf("unit %s: class %s: method %s: handler %d: empty range [%d, %d)",
					u.Name, name, u.Methods[md.Method].Name, hi, h.Start, h.End)
			}
			if h.CatchType != CatchAll && int(h.CatchType) >= len(u.Types) {
				return fmt.Errorf("unit %s: class %s: method %s: handler %d: catch type %d out of range",
					u.Name, name, u.Methods[md.Method].Name, hi, h.CatchType)
			}
		}
	}
	return nil
}
