package model

import "regexp"

var watchPathRe = regexp.MustCompile(`/(?:w|videos/watch)/([a-zA-Z0-9_-]+)`)

// VideoIDFromURL extracts the short video identifier from a watch URL.
// Recognizes the /w/{id} and /videos/watch/{id} forms; returns "" otherwise.
func VideoIDFromURL(url string) string {
	m := watchPathRe.FindStringSubmatch(url)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
