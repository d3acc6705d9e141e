// Package validation checks incoming movie payloads against the movie
// schema.  Both the full (create) and partial (update) checks share one
// rule table so a field can never be accepted on update under rules that
// differ from the ones applied on create.
package validation

import (
	"fmt"
	"sort"
	"strings"
)

// PayloadKey is the key used in ValidationError.Fields when the payload as
// a whole is unusable (for example, it is not a JSON object).
const PayloadKey = "_"

// ValidationError lists every field that failed validation, keyed by field
// name, with a short description of the violated rule.  A write that
// produced a ValidationError must not be applied at all.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field has a recorded violation.
func (e *ValidationError) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) empty() bool { return len(e.Fields) == 0 }
