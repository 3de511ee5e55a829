package util

import (
	"fmt"
	"strings"
)

// RenderPlaceholders substitutes `{name}` markers in text with the matching
// value from state. Unknown markers are left untouched so downstream layers
// can decide whether an unresolved placeholder is an error.
// This lives in internal to avoid committing to public API stability prematurely.
func RenderPlaceholders(text string, state map[string]any) string {
	if !strings.Contains(text, "{") { // fast path: no markers
		return text
	}

	var pairs []string
	for k, v := range state {
		pairs = append(pairs, "{"+k+"}", fmt.Sprintf("%v", v))
	}
	if len(pairs) == 0 {
		return text
	}

	return strings.NewReplacer(pairs...).Replace(text)
}
