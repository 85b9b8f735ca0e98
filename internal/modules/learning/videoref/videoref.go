// Package videoref normalises the many spellings of a YouTube video reference to a bare video ID.
package videoref

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	urlPattern  = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#/]+)`)
	barePattern = regexp.MustCompile(`^([A-Za-z0-9_-]{11})$`)
)

// ExtractID returns the video ID in ref. Watch, short and embed URLs are tried first, then a bare
// 11-character ID. Anything else reports false.
func ExtractID(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if m := urlPattern.FindStringSubmatch(ref); m != nil && m[1] != "" {
		return m[1], true
	}
	if m := barePattern.FindStringSubmatch(ref); m != nil {
		return m[1], true
	}
	return "", false
}

func ThumbnailURL(id string) string {
	return "https://img.youtube.com/vi/" + url.PathEscape(id) + "/mqdefault.jpg"
}

func EmbedURL(id string) string {
	return "https://www.youtube.com/embed/" + url.PathEscape(id)
}

func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}
