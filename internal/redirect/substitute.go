package redirect

import (
	"sort"
	"strings"
)

// Mapping maps each distinct redirect link to its destination, or to the
// link itself when resolution failed.
type Mapping map[string]string

// Substitute replaces every literal occurrence of each mapped link in text
// with its destination.
//
// Replacement is a single left-to-right pass over text, so a destination
// that happens to contain another link is never rewritten again. At a given
// position the longest matching link wins.
func Substitute(text string, mapping Mapping) string {
	if len(mapping) == 0 {
		return text
	}

	keys := make([]string, 0, len(mapping))
	for link := range mapping {
		if link == "" {
			continue
		}
		keys = append(keys, link)
	}
	if len(keys) == 0 {
		return text
	}

	// strings.Replacer picks the first matching pair at a position, so
	// longer links must come first.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, len(keys)*2)
	for _, link := range keys {
		pairs = append(pairs, link, mapping[link])
	}

	return strings.NewReplacer(pairs...).Replace(text)
}
