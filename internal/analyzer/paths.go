package analyzer

import "strings"

// JoinPaths combines a parent route path with a node's own segment.
// Both sides may or may not carry leading/trailing slashes; the result
// always starts with "/" and never ends with one (except the root path
// itself, which is exactly "/").
func JoinPaths(base, segment string) string {
	joined := strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(segment, "/")
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	if joined != "/" {
		joined = strings.TrimSuffix(joined, "/")
	}
	if joined == "" {
		return "/"
	}
	return joined
}

// PathPlaceholders returns the :name parameter segments of a route path
// in the order they appear, without duplicates.
func PathPlaceholders(path string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, seg := range strings.Split(path, "/") {
		if len(seg) < 2 || seg[0] != ':' {
			continue
		}
		name := seg[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
