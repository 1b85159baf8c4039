package unit

import "fmt"

// Builder assembles a Unit, interning pool entries as they are requested.
// A compiler front end drives it while lowering declarations; tests use it
// to assemble fixtures. Builders are not safe for concurrent use.
type Builder struct {
	u Unit

	typeIdx   map[string]TypeIndex
	fieldIdx  map[FieldRef]FieldIndex
	methodIdx map[MethodRef]MethodIndex
	stringIdx map[string]StringIndex
	symbols   map[string]bool
	defined   map[TypeIndex]bool
}

// NewBuilder starts a unit with the given name and version.
func NewBuilder(name, version string) *Builder {
	return &Builder{
		u:         Unit{Name: name, Version: version},
		typeIdx:   make(map[string]TypeIndex),
		fieldIdx:  make(map[FieldRef]FieldIndex),
		methodIdx: make(map[MethodRef]MethodIndex),
		stringIdx: make(map[string]StringIndex),
		symbols:   make(map[string]bool),
		defined:   make(map[TypeIndex]bool),
	}
}

// Type interns a type name and returns its pool index.
func (b *Builder) Type(name string) TypeIndex {
	if idx, ok := b.typeIdx[name]; ok {
		return idx
	}
	idx := TypeIndex(len(b.u.Types))
	b.u.Types = append(b.u.Types, name)
	b.typeIdx[name] = idx
	return idx
}

// FieldRef interns a symbolic field reference.
func (b *Builder) FieldRef(owner TypeIndex, name string, width Width) FieldIndex {
	ref := FieldRef{Owner: owner, Name: name, Width: width}
	if idx, ok := b.fieldIdx[ref]; ok {
		return idx
	}
	idx := FieldIndex(len(b.u.Fields))
	b.u.Fields = append(b.u.Fields, ref)
	b.fieldIdx[ref] = idx
	return idx
}

// MethodRef interns a symbolic method reference.
func (b *Builder) MethodRef(owner TypeIndex, name, signature string) MethodIndex {
	ref := MethodRef{Owner: owner, Name: name, Signature: signature}
	if idx, ok := b.methodIdx[ref]; ok {
		return idx
	}
	idx := MethodIndex(len(b.u.Methods))
	b.u.Methods = append(b.u.Methods, ref)
	b.methodIdx[ref] = idx
	return idx
}

// String interns a string literal.
func (b *Builder) String(s string) StringIndex {
	if idx, ok := b.stringIdx[s]; ok {
		return idx
	}
	idx := StringIndex(len(b.u.Strings))
	b.u.Strings = append(b.u.Strings, s)
	b.stringIdx[s] = idx
	return idx
}

// Symbol records a runtime symbol the unit's generated code references.
func (b *Builder) Symbol(name string) {
	if b.symbols[name] {
		return
	}
	b.symbols[name] = true
	b.u.Symbols = append(b.u.Symbols, name)
}

// DefineClass opens a class definition. Super is the superclass name; the
// root object class passes "".
func (b *Builder) DefineClass(name, super string, flags AccessFlags) *ClassBuilder {
	def := ClassDef{
		Type:  b.Type(name),
		Super: NoSuper,
		Flags: flags,
	}
	if super != "" {
		def.Super = b.Type(super)
	}
	return &ClassBuilder{b: b, def: def}
}

// Build validates and returns the assembled unit. The builder must not be
// used afterwards.
func (b *Builder) Build() (*Unit, error) {
	u := b.u
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("unit: build: %w", err)
	}
	return &u, nil
}

// ClassBuilder accumulates one class definition.
type ClassBuilder struct {
	b   *Builder
	def ClassDef
}

// Implements adds an implemented interface by name.
func (cb *ClassBuilder) Implements(name string) *ClassBuilder {
	cb.def.Interfaces = append(cb.def.Interfaces, cb.b.Type(name))
	return cb
}

// Field declares a field and returns its reference pool index.
func (cb *ClassBuilder) Field(name string, width Width, flags AccessFlags) FieldIndex {
	idx := cb.b.FieldRef(cb.def.Type, name, width)
	cb.def.Fields = append(cb.def.Fields, FieldDef{Field: idx, Flags: flags})
	return idx
}

// Method declares a method and returns its reference pool index.
func (cb *ClassBuilder) Method(name, signature string, flags AccessFlags, handlers ...HandlerEntry) MethodIndex {
	idx := cb.b.MethodRef(cb.def.Type, name, signature)
	cb.def.Methods = append(cb.def.Methods, MethodDef{Method: idx, Flags: flags, Handlers: handlers})
	return idx
}

// StaticInit marks the class as having a static initializer.
func (cb *ClassBuilder) StaticInit() *ClassBuilder {
	cb.def.HasInit = true
	return cb
}

// Close appends the definition to the unit. Each class closes exactly once.
func (cb *ClassBuilder) Close() error {
	if cb.b.defined[cb.def.Type] {
		return fmt.Errorf("unit: class %s defined twice", cb.b.u.Types[cb.def.Type])
	}
	cb.b.defined[cb.def.Type] = true
	cb.b.u.Classes = append(cb.b.u.Classes, cb.def)
	return nil
}
