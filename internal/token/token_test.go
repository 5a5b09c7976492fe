package token

import (
	"strings"
	"testing"
)

func TestTokenizeLowercaseMinLength(t *testing.T) {
	got := Tokenize("Go, Rust & C: a Quick-Look!")
	for _, w := range got {
		if w != strings.ToLower(w) {
			t.Fatalf("token not lowercase: %q", w)
		}
		if len(w) <= 1 {
			t.Fatalf("token too short: %q", w)
		}
	}
	// single-letter "a" and bare "c" must be dropped
	for _, w := range got {
		if w == "a" || w == "c" {
			t.Fatalf("short token leaked: %q", w)
		}
	}
}

func TestStripLinksRemovesURLs(t *testing.T) {
	in := "watch https://peertube.example/w/abc and www.example.com/page now"
	out := StripLinks(in)
	if strings.Contains(out, "http") || strings.Contains(out, "www.") {
		t.Fatalf("url survived strip: %q", out)
	}
	for _, tok := range Tokenize(out) {
		if strings.Contains(tok, "http") || strings.Contains(tok, "www") {
			t.Fatalf("url fragment in tokens: %q", tok)
		}
	}
}

func TestFromMetadataTagsAtomic(t *testing.T) {
	got := FromMetadata("Cooking Pasta", []string{"Slow Cooking"}, "")
	found := false
	for _, tok := range got {
		if tok == "slow cooking" {
			found = true
		}
		if tok == "slow" {
			t.Fatalf("tag was split into sub-words: %v", got)
		}
	}
	if !found {
		t.Fatalf("atomic tag missing: %v", got)
	}
}

func TestFromMetadataDeduplicates(t *testing.T) {
	got := FromMetadata("cats cats", []string{"cats"}, "cats everywhere")
	n := 0
	for _, tok := range got {
		if tok == "cats" {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("expected one 'cats' token, got %d in %v", n, got)
	}
}
