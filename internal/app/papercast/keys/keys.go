// Package keys maps episode titles to stable object storage keys.
//
// Keys derive from the title slug only. Two distinct titles can slug to
// the same string and will then share keys; callers wanting stronger
// guarantees should fold the paper identifier into the title.
package keys

import (
	"regexp"
	"strings"
)

// Fixed keys shared by every episode.
const (
	Index   = "index.html"
	Artwork = "artwork/podcast-cover.png"
	Feed    = "feed.xml"
)

const maxSlugLen = 120

var (
	// letters and digits in any script survive, arXiv titles use plenty
	rePunct = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	reRuns  = regexp.MustCompile(`[\s_-]+`)
)

// Slug turns a title into a lowercase, url-safe key fragment. Empty
// results fall back to "episode" so keys are never blank.
func Slug(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = rePunct.ReplaceAllString(s, "")
	s = reRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if runes := []rune(s); len(runes) > maxSlugLen {
		s = strings.TrimRight(string(runes[:maxSlugLen]), "-")
	}
	if s == "" {
		return "episode"
	}
	return s
}

// Audio is the storage key for an episode's mp3.
func Audio(slug string) string {
	return "podcasts/" + slug + ".mp3"
}

// Page is the storage key for an episode's landing page.
func Page(slug string) string {
	return "episodes/" + slug + ".html"
}
