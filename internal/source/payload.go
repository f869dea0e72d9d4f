// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

// dig walks nested maps by key and returns the value at the end of the
// path, or nil if any step is missing or not a map.
func dig(m map[string]any, path ...string) any {
	var cur any = m
	for _, key := range path {
		next, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = next[key]
	}
	return cur
}

// digString is dig for string leaves.
func digString(m map[string]any, path ...string) string {
	s, _ := dig(m, path...).(string)
	return s
}
