package ingest

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/poiesic/distillery/core"
)

// parseSubmittedURL validates that raw is an absolute http(s) URL.
func parseSubmittedURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty url", ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: url must be absolute http or https", ErrInvalidInput)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: url has no host", ErrInvalidInput)
	}
	return u, nil
}

// classifyURL determines the source type from the hostname and shape of a
// submitted URL.
func classifyURL(u *url.URL) core.SourceType {
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	switch {
	case host == "youtu.be":
		return core.SourceTypeYouTube
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		if u.Query().Get("list") != "" || strings.HasPrefix(u.Path, "/playlist") {
			return core.SourceTypePlaylist
		}
		return core.SourceTypeYouTube
	default:
		return core.SourceTypeURL
	}
}
