// Package language maps submission language names to execution engine language ids.
package language

import (
	"fmt"
	"sort"

	appErr "codequest/pkg/errors"
)

// Canonical language names accepted by the registry.
const (
	CPP        = "c++"
	Java       = "java"
	JavaScript = "javascript"
)

// aliases are applied by Normalize before lookup. Problem authoring uses "cpp"
// while submissions use "c++"; both must reach the same engine id.
var aliases = map[string]string{
	"cpp": CPP,
}

// DefaultEngineIDs are the Judge0 CE ids for the supported languages.
var DefaultEngineIDs = map[string]int{
	CPP:        54, // C++ (GCC 9.2.0)
	Java:       62, // Java (OpenJDK 13.0.1)
	JavaScript: 63, // JavaScript (Node.js 12.14.0)
}

// Normalize rewrites a known alias to its canonical name. Matching is case-sensitive.
func Normalize(name string) string {
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}

// Registry is a read-only name to engine id table.
type Registry struct {
	ids map[string]int
}

// NewRegistry builds a registry from ids, falling back to DefaultEngineIDs when ids is empty.
// Alias keys such as "cpp" are stored under their canonical name; a canonical key
// wins over an alias for the same language.
func NewRegistry(ids map[string]int) *Registry {
	if len(ids) == 0 {
		ids = DefaultEngineIDs
	}
	table := make(map[string]int, len(ids))
	for name, id := range ids {
		if Normalize(name) == name {
			table[name] = id
		}
	}
	for name, id := range ids {
		canonical := Normalize(name)
		if _, ok := table[canonical]; !ok {
			table[canonical] = id
		}
	}
	return &Registry{ids: table}
}

// CanonicalTable validates a configured name to engine id table and rewrites
// alias keys to canonical names.
func CanonicalTable(ids map[string]int) (map[string]int, error) {
	out := make(map[string]int, len(ids))
	for name, id := range ids {
		if name == "" {
			return nil, fmt.Errorf("language name is empty")
		}
		if id <= 0 {
			return nil, fmt.Errorf("language %q: engine id must be positive", name)
		}
		canonical := Normalize(name)
		if prev, ok := out[canonical]; ok && prev != id {
			return nil, fmt.Errorf("language %q is configured twice with ids %d and %d", canonical, prev, id)
		}
		out[canonical] = id
	}
	return out, nil
}

// Resolve returns the engine id for an exact, case-sensitive canonical name.
func (r *Registry) Resolve(name string) (int, error) {
	id, ok := r.ids[name]
	if !ok {
		return 0, appErr.Newf(appErr.LanguageNotSupported, "language %q is not supported", name).
			WithDetail("language", name)
	}
	return id, nil
}

// ResolveAlias normalizes name and resolves it. Pipelines use this entry point.
func (r *Registry) ResolveAlias(name string) (int, error) {
	return r.Resolve(Normalize(name))
}

// Supported lists canonical names in sorted order.
func (r *Registry) Supported() []string {
	names := make([]string, 0, len(r.ids))
	for name := range r.ids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
