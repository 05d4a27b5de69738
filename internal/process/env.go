package process

import (
	"maps"
	"slices"
	"strings"
)

// mergeEnv builds a fresh KEY=VALUE list from base, then each overlay in
// order. Later layers win on key collision.
func mergeEnv(base []string, overlays ...map[string]string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	for _, overlay := range overlays {
		maps.Copy(env, overlay)
	}

	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}
