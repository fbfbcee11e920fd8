// Package resources converts models into API payload maps. Each transformer
// applies a per-resource field allow-list: with no ?fields= selection the
// default set is emitted, otherwise the intersection of requested and
// allowed, with id always present. Relations appear only when they were
// eagerly loaded by the handler; long-form descriptions only on show routes.
package resources

import "strings"

// Fields is the parsed ?fields= selection. A nil Fields means no selection
// was made and the resource default applies.
type Fields map[string]struct{}

// ParseFields splits a comma-separated fields parameter.
func ParseFields(raw string) Fields {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	f := make(Fields)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			f[part] = struct{}{}
		}
	}
	return f
}

// Includes is the parsed ?include= selection for relations.
type Includes map[string]struct{}

// ParseIncludes splits a comma-separated include parameter.
func ParseIncludes(raw string) Includes {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	inc := make(Includes)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			inc[part] = struct{}{}
		}
	}
	return inc
}

// Has reports whether a relation was requested.
func (i Includes) Has(name string) bool {
	_, ok := i[name]
	return ok
}

// filter trims a fully built payload to the selection. Unknown requested
// fields are ignored rather than erroring; id survives every selection.
func filter(full map[string]interface{}, fields Fields, defaults []string) map[string]interface{} {
	out := make(map[string]interface{}, len(full))
	if fields == nil {
		for _, key := range defaults {
			if v, ok := full[key]; ok {
				out[key] = v
			}
		}
	} else {
		for key := range fields {
			if v, ok := full[key]; ok {
				out[key] = v
			}
		}
	}
	if id, ok := full["id"]; ok {
		out["id"] = id
	}
	return out
}
