package redirect

import (
	"regexp"
)

// DefaultPattern matches grounding-api redirect links: a fixed
// scheme/host/path prefix, a base64url token, and up to two '=' of padding.
const DefaultPattern = `https://vertexaisearch\.cloud\.google\.com/grounding-api-redirect/[A-Za-z0-9_-]+={0,2}`

var defaultRegexp = regexp.MustCompile(DefaultPattern)

// Links is a set of distinct redirect links in the order they were first seen.
type Links []string

// Extract returns the distinct redirect links in text, matched by DefaultPattern.
func Extract(text string) Links {
	return ExtractPattern(text, defaultRegexp)
}

// ExtractPattern returns the distinct substrings of text matched by re,
// in discovery order. A nil re uses DefaultPattern.
func ExtractPattern(text string, re *regexp.Regexp) Links {
	if re == nil {
		re = defaultRegexp
	}

	matches := re.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	links := make(Links, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		links = append(links, m)
	}

	return links
}
