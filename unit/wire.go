package unit

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Bundles are the on-disk form of a unit: a CBOR envelope carrying a magic
// tag, a format version, and the unit itself. Canonical encoding keeps the
// bytes stable so stores can checksum them.

const (
	// BundleMagic tags serialized unit bundles.
	BundleMagic = "TUB1"

	// BundleFormat is the current envelope format version.
	BundleFormat uint32 = 1
)

type bundleEnvelope struct {
	Magic  string
	Format uint32
	Unit   *Unit
}

var cborEncMode cbor.EncMode

func init() {
	var err error
	cborEncMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("unit: cbor encoder init: %v", err))
	}
}

// EncodeBundle serializes a validated unit into bundle bytes.
func EncodeBundle(u *Unit) ([]byte, error) {
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("unit: encode %s: %w", u.Name, err)
	}
	data, err := cborEncMode.Marshal(bundleEnvelope{
		Magic:  BundleMagic,
		Format: BundleFormat,
		Unit:   u,
	})
	if err != nil {
		return nil, fmt.Errorf("unit: encode %s: %w", u.Name, err)
	}
	return data, nil
}

// DecodeBundle parses bundle bytes, checks the envelope, validates the
// unit, and checks its manifest against the catalog schema. Only a unit
// that passes all three is returned.
func DecodeBundle(data []byte) (*Unit, error) {
	var env bundleEnvelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unit: decode bundle: %w", err)
	}
	if env.Magic != BundleMagic {
		return nil, fmt.Errorf("unit: decode bundle: bad magic %q", env.Magic)
	}
	if env.Format != BundleFormat {
		return nil, fmt.Errorf("unit: decode bundle: unsupported format %d", env.Format)
	}
	if env.Unit == nil {
		return nil, fmt.Errorf("unit: decode bundle: empty envelope")
	}
	if err := env.Unit.Validate(); err != nil {
		return nil, fmt.Errorf("unit: decode %s: %w", env.Unit.Name, err)
	}
	if err := ValidateManifest(env.Unit.Manifest()); err != nil {
		return nil, fmt.Errorf("unit: decode %s: %w", env.Unit.Name, err)
	}
	return env.Unit, nil
}
