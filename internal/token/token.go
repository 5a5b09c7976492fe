package token

import (
	"regexp"
	"strings"
)

var (
	urlRe     = regexp.MustCompile(`https?://\S+|www\.\S+`)
	nonWordRe = regexp.MustCompile(`[^\w\s]`)
)

// StripLinks removes http(s):// and www. URLs from text.
func StripLinks(s string) string {
	return urlRe.ReplaceAllString(s, "")
}

// Tokenize lowercases text, strips punctuation, and returns words longer than
// one character. Deterministic, no side effects.
func Tokenize(s string) []string {
	s = nonWordRe.ReplaceAllString(strings.ToLower(s), "")
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, w := range fields {
		if len(w) > 1 {
			out = append(out, w)
		}
	}
	return out
}

// FromMetadata builds the deduplicated token set for a video from its name,
// tags, and description. Tags are treated as atomic terms: lowercased whole,
// never split into sub-words. Links are stripped from the description first.
func FromMetadata(name string, tags []string, description string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range Tokenize(name) {
		add(t)
	}
	for _, tag := range tags {
		add(strings.ToLower(tag))
	}
	for _, t := range Tokenize(StripLinks(description)) {
		add(t)
	}
	return out
}
