package store

import (
	"fmt"
	"sort"
	"strings"
)

// Key is the fully qualified name of a value in a shared backend.
type Key struct {
	// Namespace separates this client's keys from anything else in the
	// backend (e.g., "admin").
	Namespace string

	// Name is the logical key (e.g., "auth_token").
	Name string

	// Scope partitions values per deployment or profile
	// (e.g., {"profile": "staging"}).
	Scope map[string]string
}

// String generates a deterministic key string.
// Format: namespace:scope1=val1:scope2=val2:name
//
// Example:
//
//	admin:profile=staging:auth_token
func (k Key) String() string {
	parts := make([]string, 0, len(k.Scope)+2)

	if ns := strings.Trim(k.Namespace, ":"); ns != "" {
		parts = append(parts, ns)
	}

	if len(k.Scope) > 0 {
		names := make([]string, 0, len(k.Scope))
		for name := range k.Scope {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Scope[name]))
		}
	}

	parts = append(parts, k.Name)

	return strings.Join(parts, ":")
}
