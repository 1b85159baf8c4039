package runtime

import (
	"fmt"
	"sort"
)

// RegistryVersion identifies the symbol registry revision. Units record
// the revision they were compiled against; mixing revisions is a link
// error surfaced at load, not a runtime fault.
const RegistryVersion uint32 = 1

// tableEntry pairs a runtime symbol with the Go function bound to it. The
// generated entry point table is a []tableEntry.
type tableEntry struct {
	name string
	fn   any
}

type supportEntry struct {
	name    string
	nameLen int
	fn      any
}

// SymbolRegistry resolves the runtime symbols generated code links
// against. Two tiers: the arithmetic helpers, kept sorted and searched by
// bisection, and the support entry points, kept in table order and scanned
// with a length pre-filter. Both tables are built at construction and
// immutable afterwards.
type SymbolRegistry struct {
	version uint32
	helpers []tableEntry
	support []supportEntry
}

// NewSymbolRegistry builds the registry binding rt's entry points.
func NewSymbolRegistry(rt *Runtime) *SymbolRegistry {
	helpers := []tableEntry{
		{"tern_d2i", d2i},
		{"tern_d2l", d2l},
		{"tern_dcmpg", dcmpg},
		{"tern_dcmpl", dcmpl},
		{"tern_f2i", f2i},
		{"tern_f2l", f2l},
		{"tern_fcmpg", fcmpg},
		{"tern_fcmpl", fcmpl},
		{"tern_idiv64", idiv64},
		{"tern_irem64", irem64},
		{"tern_shl64", shl64},
		{"tern_shr64", shr64},
		{"tern_ushr64", ushr64},
	}
	sort.Slice(helpers, func(i, j int) bool { return helpers[i].name < helpers[j].name })

	entries := rt.entrypointTable()
	support := make([]supportEntry, len(entries))
	for i, e := range entries {
		support[i] = supportEntry{name: e.name, nameLen: len(e.name), fn: e.fn}
	}
	return &SymbolRegistry{version: RegistryVersion, helpers: helpers, support: support}
}

// Version returns the registry revision.
func (r *SymbolRegistry) Version() uint32 { return r.version }

// Lookup resolves a symbol name through both tiers.
func (r *SymbolRegistry) Lookup(name string) (any, bool) {
	i := sort.Search(len(r.helpers), func(i int) bool { return r.helpers[i].name >= name })
	if i < len(r.helpers) && r.helpers[i].name == name {
		return r.helpers[i].fn, true
	}
	n := len(name)
	for i := range r.support {
		if r.support[i].nameLen == n && r.support[i].name == name {
			return r.support[i].fn, true
		}
	}
	return nil, false
}

// Resolve resolves a symbol a loaded unit requires. A miss means the unit
// was generated against a registry this runtime does not provide; that is
// unrecoverable, so it faults.
func (r *SymbolRegistry) Resolve(name string) any {
	fn, ok := r.Lookup(name)
	if !ok {
		log.Criticalf("cannot resolve runtime symbol %q (registry v%d)", name, r.version)
		panic(fmt.Sprintf("runtime: cannot resolve symbol %q", name))
	}
	return fn
}

// HelperNames returns the first tier's symbol names in lookup order.
func (r *SymbolRegistry) HelperNames() []string {
	names := make([]string, len(r.helpers))
	for i, e := range r.helpers {
		names[i] = e.name
	}
	return names
}

// SupportNames returns the second tier's symbol names in table order.
func (r *SymbolRegistry) SupportNames() []string {
	names := make([]string, len(r.support))
	for i, e := range r.support {
		names[i] = e.name
	}
	return names
}
