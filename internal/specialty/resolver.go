package specialty

import "strings"

// DefaultSpecialty is returned when no table entry matches.
const DefaultSpecialty = "General Physician"

// Entry maps one symptom phrase to a specialty.
type Entry struct {
	Symptom   string
	Specialty string
}

// Resolver maps free-text symptoms to a medical specialty.
//
// Lookup is an exact match on the normalized input, then a scan in table
// order for the first symptom that is a substring of the input or contains
// the input. A short key early in the table can shadow a longer, more
// specific one ("cold" before "cold hands" when the input is "my cold
// hands"); this ordering is kept as-is.
type Resolver struct {
	entries []Entry
	exact   map[string]string
}

// NewResolver builds a resolver over entries, preserving their order.
// Symptom keys are normalized; later duplicates do not override earlier ones.
func NewResolver(entries []Entry) *Resolver {
	r := &Resolver{exact: make(map[string]string, len(entries))}
	for _, e := range entries {
		key := normalize(e.Symptom)
		if key == "" {
			continue
		}
		if _, dup := r.exact[key]; dup {
			continue
		}
		r.exact[key] = e.Specialty
		r.entries = append(r.entries, Entry{Symptom: key, Specialty: e.Specialty})
	}
	return r
}

// Default returns a resolver over the built-in symptom table.
func Default() *Resolver {
	return NewResolver(defaultTable)
}

// Resolve returns the specialty for symptom. It never fails.
func (r *Resolver) Resolve(symptom string) string {
	s := normalize(symptom)
	if s == "" {
		return DefaultSpecialty
	}
	if spec, ok := r.exact[s]; ok {
		return spec
	}
	for _, e := range r.entries {
		if strings.Contains(s, e.Symptom) || strings.Contains(e.Symptom, s) {
			return e.Specialty
		}
	}
	return DefaultSpecialty
}

// Specialties lists the distinct specialties in table order.
func (r *Resolver) Specialties() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range r.entries {
		if !seen[e.Specialty] {
			seen[e.Specialty] = true
			out = append(out, e.Specialty)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
