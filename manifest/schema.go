package manifest

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// schemaSource constrains a decoded climb.toml. Field names follow the
// json tags on Manifest, which is what the CUE encoder reads.
const schemaSource = `
#Manifest: {
	operators?: null | {[=~"^[-+*/%]$"]: int & >0}
	cache: {
		enabled: bool
		driver:  "sqlite" | "duckdb" | "memory"
		path:    string & != ""
	}
	log: {
		verbosity: int & >=-4 & <=5
		file:      string
	}
	server: {
		port:        int & >=0 & <=65535
		"grpc-port": int & >=0 & <=65535
	}
}
`

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error

	// schemaMu serializes use of schemaCtx. CUE contexts are not safe for
	// concurrent use.
	schemaMu sync.Mutex
)

func manifestSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaSource, cue.Filename("climb.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile manifest schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Manifest"))
		schemaErr = schemaDef.Err()
	})
	return schemaCtx, schemaDef, schemaErr
}

// Validate checks the manifest against the climb.toml schema: known
// operator symbols with positive powers, a supported cache driver, and
// port numbers in range.
func (m *Manifest) Validate() error {
	ctx, def, err := manifestSchema()
	if err != nil {
		return err
	}
	schemaMu.Lock()
	defer schemaMu.Unlock()

	v := ctx.Encode(m)
	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return nil
}
