package unitstore

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ternlang/tern/unit"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "units.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func buildUnit(t *testing.T, name, version string, strings ...string) *unit.Unit {
	t.Helper()
	b := unit.NewBuilder(name, version)
	cb := b.DefineClass("Gate", "Object", unit.AccPublic)
	cb.Field("height", unit.Width32, unit.AccPublic)
	cb.Method("open", "()V", unit.AccPublic)
	if err := cb.Close(); err != nil {
		t.Fatalf("Failed to close class: %v", err)
	}
	for _, s := range strings {
		b.String(s)
	}
	u, err := b.Build()
	if err != nil {
		t.Fatalf("Failed to build unit: %v", err)
	}
	return u
}

func TestStoreOpenCreates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
	manifests, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(manifests) != 0 {
		t.Errorf("fresh store lists %d units", len(manifests))
	}
}

func TestStorePutGetRoundTrip(t *testing.T) {
	s := openStore(t)
	u := buildUnit(t, "tower", "1.0.0", "halt", "proceed")

	if err := s.Put(u); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := s.Get("tower", "1.0.0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !reflect.DeepEqual(got, u) {
		t.Errorf("round trip changed the unit:\n got %+v\nwant %+v", got, u)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := openStore(t)

	_, err := s.Get("tower", "9.9.9")
	if !errors.Is(err, ErrUnitNotFound) {
		t.Errorf("Get missing = %v, want ErrUnitNotFound", err)
	}
}

func TestStoreListOrdering(t *testing.T) {
	s := openStore(t)
	for _, v := range []struct{ name, version string }{
		{"beta", "1.0.0"},
		{"alpha", "2.0.0"},
		{"alpha", "1.0.0"},
	} {
		if err := s.Put(buildUnit(t, v.name, v.version)); err != nil {
			t.Fatalf("Put %s@%s failed: %v", v.name, v.version, err)
		}
	}

	manifests, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"alpha@1.0.0", "alpha@2.0.0", "beta@1.0.0"}
	if len(manifests) != len(want) {
		t.Fatalf("List returned %d manifests, want %d", len(manifests), len(want))
	}
	for i, m := range manifests {
		if got := m.Name + "@" + m.Version; got != want[i] {
			t.Errorf("List[%d] = %s, want %s", i, got, want[i])
		}
		if m.Classes != 1 || m.Types != 2 {
			t.Errorf("List[%d] counts = %+v", i, m)
		}
	}
}

func TestStoreDelete(t *testing.T) {
	s := openStore(t)
	if err := s.Put(buildUnit(t, "tower", "1.0.0")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := s.Delete("tower", "1.0.0"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get("tower", "1.0.0"); !errors.Is(err, ErrUnitNotFound) {
		t.Errorf("Get after delete = %v, want ErrUnitNotFound", err)
	}
	// Deleting an absent key is not an error.
	if err := s.Delete("tower", "1.0.0"); err != nil {
		t.Errorf("repeat Delete failed: %v", err)
	}
}

func TestStorePutReplaces(t *testing.T) {
	s := openStore(t)
	if err := s.Put(buildUnit(t, "tower", "1.0.0")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(buildUnit(t, "tower", "1.0.0", "halt")); err != nil {
		t.Fatalf("replacing Put failed: %v", err)
	}

	got, err := s.Get("tower", "1.0.0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Strings) != 1 || got.Strings[0] != "halt" {
		t.Errorf("Strings = %v, want the replacement's pool", got.Strings)
	}
	manifests, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(manifests) != 1 {
		t.Errorf("List returned %d manifests after replace, want 1", len(manifests))
	}
}

// TestStoreChecksumMismatch corrupts a stored bundle underneath the
// catalog row and checks Get refuses to decode it.
func TestStoreChecksumMismatch(t *testing.T) {
	s := openStore(t)
	if err := s.Put(buildUnit(t, "tower", "1.0.0")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	_, err := s.db.Exec("UPDATE units SET data = ? WHERE name = ?", []byte("corrupt"), "tower")
	if err != nil {
		t.Fatalf("corrupting row failed: %v", err)
	}
	_, err = s.Get("tower", "1.0.0")
	if err == nil || err.Error() != "unit tower@1.0.0: checksum mismatch" {
		t.Errorf("Get of corrupt bundle = %v", err)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	u := buildUnit(t, "tower", "1.0.0", "halt")
	if err := s.Put(u); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer s.Close()
	got, err := s.Get("tower", "1.0.0")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if !reflect.DeepEqual(got, u) {
		t.Error("reopened store returned a different unit")
	}
}

func TestStorePutRejectsInvalid(t *testing.T) {
	s := openStore(t)
	if err := s.Put(&unit.Unit{Version: "1"}); err == nil {
		t.Error("storing a nameless unit should fail")
	}
}
