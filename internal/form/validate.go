package form

import (
	"sort"

	"github.com/a3tai/inspection-report/internal/schema"
)

// RequiredKeys are the only fields checked before export. Photo requirements
// declared by the schema are not enforced.
var RequiredKeys = []schema.Key{
	{Section: "general", Field: "obra"},
	{Section: "general", Field: "fecha"},
	{Section: "general", Field: "tecnico"},
}

// ValidationResult is the set of required keys currently missing a value.
type ValidationResult struct {
	missing map[schema.Key]struct{}
}

// Validate recomputes the missing set from scratch. A value is missing when it
// is absent, empty, or belongs to a field hidden by its dependency.
func Validate(sch *schema.Schema, values schema.Values) ValidationResult {
	res := ValidationResult{missing: make(map[schema.Key]struct{})}
	for _, k := range RequiredKeys {
		v, ok := sch.Present(k, values)
		if !ok || v == "" {
			res.missing[k] = struct{}{}
		}
	}
	return res
}

// OK reports whether nothing is missing.
func (r ValidationResult) OK() bool {
	return len(r.missing) == 0
}

// Has reports whether k is missing.
func (r ValidationResult) Has(k schema.Key) bool {
	_, ok := r.missing[k]
	return ok
}

// Len is the number of missing keys.
func (r ValidationResult) Len() int {
	return len(r.missing)
}

// Missing returns the missing keys sorted by their string form.
func (r ValidationResult) Missing() []schema.Key {
	keys := make([]schema.Key, 0, len(r.missing))
	for k := range r.missing {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Strings returns the missing keys as "section.field".
func (r ValidationResult) Strings() []string {
	keys := r.Missing()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

// without returns a copy of r with k removed.
func (r ValidationResult) without(k schema.Key) ValidationResult {
	if !r.Has(k) {
		return r
	}
	next := ValidationResult{missing: make(map[schema.Key]struct{}, len(r.missing))}
	for m := range r.missing {
		if m != k {
			next.missing[m] = struct{}{}
		}
	}
	return next
}
