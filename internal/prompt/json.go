package prompt

import "strings"

// ExtractJSON returns the outermost {...} span of a model reply, which
// strips markdown code fences and any prose around the object.
func ExtractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
