// Package extract pulls media URLs out of the heterogeneous response shapes
// vendors produce: structured JSON, base64 payloads, SSE streams, Markdown
// and raw HTML. Every function is total; malformed input yields an empty
// result, never an error.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Candidate scalar fields checked for a direct URL value.
var urlFields = []string{"url", "image_url", "file_url", "video_url", "audio_url"}

// Candidate base64 fields converted into data URLs.
var base64Fields = []string{"b64_json", "image_base64", "b64"}

// Candidate container fields, map- or array-valued, that may nest URLs.
var containerFields = []string{
	"data", "output", "outputs", "result", "results",
	"task_result", "creations", "images", "videos",
}

// URLs walks a decoded JSON payload and returns every media URL it can
// find, de-duplicated in first-seen order. Base64 payloads are converted to
// data URLs so callers can treat them uniformly.
func URLs(payload any) []string {
	var out []string
	seen := map[string]bool{}
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}
	collectURLs(payload, add)
	return out
}

// URLsFromJSON decodes raw JSON and delegates to URLs. Invalid JSON yields nil.
func URLsFromJSON(raw []byte) []string {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return URLs(payload)
}

func collectURLs(node any, add func(string)) {
	switch v := node.(type) {
	case string:
		if looksLikeURL(v) {
			add(v)
		}
	case []any:
		for _, item := range v {
			collectURLs(item, add)
		}
	case map[string]any:
		for _, field := range urlFields {
			if s, ok := v[field].(string); ok && looksLikeURL(s) {
				add(s)
			}
		}
		for _, field := range base64Fields {
			if s, ok := v[field].(string); ok && s != "" {
				add("data:image/png;base64," + s)
			}
		}
		for _, field := range containerFields {
			if child, ok := v[field]; ok {
				collectURLs(child, add)
			}
		}
	}
}

func looksLikeURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "data:")
}

// Markdown links stop at the first whitespace and tolerate angle-bracket
// wrapped URLs, matching how chat models emit them.
var (
	markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\(\s*<?(https?://[^\s)>]+)>?\s*\)`)
	markdownLinkRe  = regexp.MustCompile(`[^!]\[[^\]]*\]\(\s*<?(https?://[^\s)>]+)>?\s*\)`)
	htmlMediaSrcRe  = regexp.MustCompile(`<(?:video|source|img|audio)[^>]*\bsrc\s*=\s*["']?(https?://[^\s"'>]+)["']?[^>]*>`)
	bareVideoURLRe  = regexp.MustCompile(`https?://[^\s"'<>)]+\.(?:mp4|webm|mov|m3u8)[^\s"'<>)]*`)
)

// MarkdownImageLinks returns URLs from markdown image syntax in first-seen
// order.
func MarkdownImageLinks(text string) []string {
	return dedupMatches(markdownImageRe.FindAllStringSubmatch(text, -1))
}

// MarkdownLinks returns URLs from plain markdown link syntax. A leading
// space is prepended so links at the start of the text still match the
// not-an-image guard.
func MarkdownLinks(text string) []string {
	return dedupMatches(markdownLinkRe.FindAllStringSubmatch(" "+text, -1))
}

// HTMLMediaSrcs returns src attributes of video/source/img/audio tags and
// any bare video file URLs embedded in the text.
func HTMLMediaSrcs(text string) []string {
	out := dedupMatches(htmlMediaSrcRe.FindAllStringSubmatch(text, -1))
	seen := map[string]bool{}
	for _, u := range out {
		seen[u] = true
	}
	for _, u := range bareVideoURLRe.FindAllString(text, -1) {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

func dedupMatches(matches [][]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range matches {
		if len(m) < 2 {
			continue
		}
		u := strings.TrimSpace(m[1])
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

var videoExtensions = []string{".mp4", ".webm", ".mov", ".m3u8", ".avi", ".mkv"}

// Path segments used by vendors that serve finished videos from ephemeral
// cache hosts without a file extension.
var videoPathHints = []string{"/video/", "/videos/", "video_cache", "vod/"}

// LooksLikeVideoURL filters generic links down to probable video assets by
// extension or known cache path segments.
func LooksLikeVideoURL(rawURL string) bool {
	u := strings.ToLower(strings.TrimSpace(rawURL))
	if u == "" {
		return false
	}
	path := u
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, ext := range videoExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	for _, hint := range videoPathHints {
		if strings.Contains(u, hint) {
			return true
		}
	}
	return false
}
