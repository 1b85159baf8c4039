package unit

import (
	"reflect"
	"testing"
)

func buildWireFixture(t *testing.T) *Unit {
	t.Helper()
	b := NewBuilder("tower", "1.4.2")
	errType := b.Type("Error")
	cb := b.DefineClass("Gate", "Object", AccPublic).Implements("Openable").StaticInit()
	cb.Field("height", Width32, AccPublic)
	cb.Field("label", WidthRef, AccPrivate)
	cb.Method("open", "()V", AccPublic,
		HandlerEntry{Start: 0, End: 12, CatchType: errType, Target: 30},
		HandlerEntry{Start: 0, End: 12, CatchType: CatchAll, Target: 31})
	if err := cb.Close(); err != nil {
		t.Fatalf("closing Gate: %v", err)
	}
	b.String("halt")
	b.Symbol("tern_throw")
	b.Symbol("tern_find_catch_target")
	u, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return u
}

func TestBundleRoundTrip(t *testing.T) {
	u := buildWireFixture(t)

	data, err := EncodeBundle(u)
	if err != nil {
		t.Fatalf("EncodeBundle failed: %v", err)
	}
	got, err := DecodeBundle(data)
	if err != nil {
		t.Fatalf("DecodeBundle failed: %v", err)
	}
	if !reflect.DeepEqual(got, u) {
		t.Errorf("round trip changed the unit:\n got %+v\nwant %+v", got, u)
	}

	// Canonical encoding: the same unit serializes to the same bytes.
	again, err := EncodeBundle(u)
	if err != nil {
		t.Fatalf("EncodeBundle failed: %v", err)
	}
	if string(again) != string(data) {
		t.Error("encoding should be deterministic")
	}
}

func TestEncodeRejectsInvalidUnit(t *testing.T) {
	if _, err := EncodeBundle(&Unit{Version: "1"}); err == nil {
		t.Error("encoding a nameless unit should fail")
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := DecodeBundle([]byte("not a bundle")); err == nil {
		t.Error("decoding garbage should fail")
	}
	if _, err := DecodeBundle(nil); err == nil {
		t.Error("decoding nothing should fail")
	}
}

func TestDecodeBadEnvelope(t *testing.T) {
	u := buildWireFixture(t)

	data, err := cborEncMode.Marshal(bundleEnvelope{Magic: "XXXX", Format: BundleFormat, Unit: u})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if _, err := DecodeBundle(data); err == nil ||
		err.Error() != `unit: decode bundle: bad magic "XXXX"` {
		t.Errorf("bad magic error = %v", err)
	}

	data, err = cborEncMode.Marshal(bundleEnvelope{Magic: BundleMagic, Format: 99, Unit: u})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if _, err := DecodeBundle(data); err == nil ||
		err.Error() != "unit: decode bundle: unsupported format 99" {
		t.Errorf("bad format error = %v", err)
	}

	data, err = cborEncMode.Marshal(bundleEnvelope{Magic: BundleMagic, Format: BundleFormat})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if _, err := DecodeBundle(data); err == nil ||
		err.Error() != "unit: decode bundle: empty envelope" {
		t.Errorf("empty envelope error = %v", err)
	}
}

// TestDecodeValidatesUnit verifies a well-formed envelope does not excuse
// a malformed unit.
func TestDecodeValidatesUnit(t *testing.T) {
	data, err := cborEncMode.Marshal(bundleEnvelope{
		Magic:  BundleMagic,
		Format: BundleFormat,
		Unit:   &Unit{Name: "broken"},
	})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if _, err := DecodeBundle(data); err == nil ||
		err.Error() != "unit: decode broken: unit broken: missing version" {
		t.Errorf("error = %v", err)
	}
}

func TestValidateManifest(t *testing.T) {
	good := buildWireFixture(t).Manifest()
	if err := ValidateManifest(good); err != nil {
		t.Errorf("valid manifest rejected: %v", err)
	}

	bad := good
	bad.Name = ""
	if err := ValidateManifest(bad); err == nil {
		t.Error("empty name should fail the schema")
	}

	bad = good
	bad.Version = ""
	if err := ValidateManifest(bad); err == nil {
		t.Error("empty version should fail the schema")
	}

	bad = good
	bad.Classes = -1
	if err := ValidateManifest(bad); err == nil {
		t.Error("negative count should fail the schema")
	}
}
