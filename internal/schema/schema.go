// Package schema validates decoded configuration documents against JSON schemas.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Validate checks doc against the JSON schema in schemaJSON. All violations
// are reported in a single error.
func Validate(name string, schemaJSON []byte, doc map[string]any) error {
	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	docLoader := gojsonschema.NewGoLoader(doc)

	res, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("validate %s: %w", name, err)
	}
	if res.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%s schema validation failed: %s", name, strings.Join(msgs, "; "))
}
