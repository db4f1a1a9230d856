// Package targets provides the built-in compilation targets that
// specialize canonical prose output for a particular executor.
package targets

import "sort"

// Target controls the one place canonical output is allowed to vary:
// how skill-loading is encoded. The input language is target-agnostic;
// the asymmetry lives entirely here.
type Target interface {
	// Name returns the target identifier (e.g., "claude-code").
	Name() string

	// SkillsAsField reports whether skills appear as structured fields,
	// as import lines and a skills: field on agent definitions.
	SkillsAsField() bool

	// PromptPrefix returns the instruction text injected ahead of a
	// session prompt for the given skills. Empty when the target
	// encodes skills structurally instead.
	PromptPrefix(skills []string) string
}

// registry holds all built-in compilation targets.
var registry = map[string]Target{}

// Register registers a built-in compilation target.
func Register(t Target) {
	registry[t.Name()] = t
}

// Get returns a built-in target by name.
func Get(name string) (Target, bool) {
	t, ok := registry[name]
	return t, ok
}

// List returns all registered target names, sorted.
func List() []string {
	var names []string
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
