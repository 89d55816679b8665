package orchestrate

import (
	"path/filepath"
	"strings"
)

// RelativePath expresses target relative to base by walking base upward
// until it is a prefix of target. Matching is per path component. When the
// two paths share no ancestor, target is returned unchanged. A target equal
// to base yields ".".
func RelativePath(target, base string) string {
	t := pathComponents(target)
	b := pathComponents(base)
	if filepath.IsAbs(target) != filepath.IsAbs(base) {
		return target
	}

	ups := 0
	for !hasComponentPrefix(t, b) {
		if len(b) == 0 {
			return target
		}
		b = b[:len(b)-1]
		ups++
	}

	parts := make([]string, 0, ups+len(t)-len(b))
	for range ups {
		parts = append(parts, "..")
	}
	parts = append(parts, t[len(b):]...)
	if len(parts) == 0 {
		return "."
	}
	return filepath.Join(parts...)
}

// pathComponents splits a cleaned path into its elements. The volume name,
// if any, is kept as the first element.
func pathComponents(path string) []string {
	path = filepath.Clean(path)
	vol := filepath.VolumeName(path)

	var parts []string
	if vol != "" {
		parts = append(parts, vol)
	}
	for _, p := range strings.Split(path[len(vol):], string(filepath.Separator)) {
		if p == "" || p == "." {
			continue
		}
		parts = append(parts, p)
	}
	return parts
}

func hasComponentPrefix(path, prefix []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i := range prefix {
		if path[i] != prefix[i] {
			return false
		}
	}
	return true
}
