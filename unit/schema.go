package unit

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// manifestSchema constrains unit manifests. Stores and loaders validate a
// manifest against it before trusting the bundle behind it.
const manifestSchema = `
name!:    string & !=""
version!: string & !=""
types!:   int & >=0
fields!:  int & >=0
methods!: int & >=0
strings!: int & >=0
classes!: int & >=0
`

var compileSchema = sync.OnceValues(func() (cue.Value, error) {
	schema := cuecontext.New().CompileString(manifestSchema)
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("unit: manifest schema: %w", err)
	}
	return schema, nil
})

// ValidateManifest checks a manifest against the catalog schema.
func ValidateManifest(m Manifest) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}
	val := schema.Context().Encode(m)
	if err := val.Err(); err != nil {
		return fmt.Errorf("unit: manifest %s: %w", m.Name, err)
	}
	if err := schema.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("unit: manifest %s@%s: %w", m.Name, m.Version, err)
	}
	return nil
}
