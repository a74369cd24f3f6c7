package web

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style|noscript)\b.*?</\s*(script|style|noscript)\s*>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	titleRe  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	spaceRe  = regexp.MustCompile(`[ \t]+`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
)

// stripHTML reduces an HTML document to its visible text. Good enough for
// the fallback path; the rendered path gets real layout text from Chrome.
func stripHTML(doc string) string {
	doc = scriptRe.ReplaceAllString(doc, " ")
	doc = tagRe.ReplaceAllString(doc, "\n")
	doc = decodeEntities(doc)
	doc = spaceRe.ReplaceAllString(doc, " ")

	lines := strings.Split(doc, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	doc = strings.Join(lines, "\n")
	doc = blankRe.ReplaceAllString(doc, "\n\n")
	return strings.TrimSpace(doc)
}

// htmlTitle pulls the document title out of raw HTML, or "".
func htmlTitle(doc string) string {
	m := titleRe.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(decodeEntities(m[1]))
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

func decodeEntities(s string) string {
	return entityReplacer.Replace(s)
}

// canonicalVideoURLs normalizes scraped playlist hrefs to plain watch URLs
// and drops duplicates, preserving playlist order.
func canonicalVideoURLs(hrefs []string) []string {
	seen := make(map[string]bool)
	var videos []string
	for _, href := range hrefs {
		u, err := url.Parse(href)
		if err != nil {
			continue
		}
		id := u.Query().Get("v")
		if id == "" {
			continue
		}
		canonical := "https://www.youtube.com/watch?v=" + id
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		videos = append(videos, canonical)
	}
	return videos
}
