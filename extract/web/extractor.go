// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package web implements the extract.Extractor boundary for live sources:
// rendered web pages and YouTube via headless Chrome, with a plain HTTP
// fetch as fallback, plus pass-through handling for text and file sources.
package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/extract"
)

const (
	// defaultNavigateTimeout bounds one headless-Chrome page load. The
	// orchestrator imposes no timeout of its own; this is the adapter's
	// policy.
	defaultNavigateTimeout = 90 * time.Second

	// maxFetchBytes bounds the HTTP fallback's response read.
	maxFetchBytes = 10 << 20
)

// Extractor extracts raw text from URLs, YouTube pages, playlists, uploaded
// files, and inline text.
type Extractor struct {
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

var _ extract.Extractor = (*Extractor)(nil)

// Option configures an Extractor.
type Option func(*Extractor)

// WithTimeout sets the per-navigation timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithHTTPClient sets the client used by the plain-fetch fallback.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) {
		if c != nil {
			e.httpClient = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates a web extractor.
//
// Returns extract.Extractor interface to enforce abstraction.
func NewExtractor(opts ...Option) extract.Extractor {
	e := &Extractor{
		timeout:    defaultNavigateTimeout,
		httpClient: &http.Client{},
		logger:     slog.Default().With("component", "web-extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract dispatches on the source type.
func (e *Extractor) Extract(ctx context.Context, sourceType core.SourceType, sourceRef string) (*extract.Result, error) {
	switch sourceType {
	case core.SourceTypeText:
		return extractInline(sourceRef)
	case core.SourceTypeFile:
		return extractFile(sourceRef)
	case core.SourceTypePlaylist:
		return e.extractPlaylist(ctx, sourceRef)
	case core.SourceTypeURL, core.SourceTypeYouTube:
		return e.extractPage(ctx, sourceRef)
	default:
		return nil, fmt.Errorf("%w: %q", extract.ErrUnsupportedSource, sourceType)
	}
}

func extractInline(text string) (*extract.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, extract.ErrNoContent
	}
	return &extract.Result{
		Text:             text,
		ContentType:      "text/plain",
		ExtractionMethod: "inline",
	}, nil
}

func extractFile(path string) (*extract.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not a text file", extract.ErrUnsupportedSource, filepath.Base(path))
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, extract.ErrNoContent
	}
	return &extract.Result{
		Text:             text,
		Title:            filepath.Base(path),
		ContentType:      "text/plain",
		ExtractionMethod: "file",
	}, nil
}

// extractPage renders the page in headless Chrome and reads its visible
// text. If Chrome fails (not installed, crash, navigation error) it falls
// back to a plain HTTP fetch.
func (e *Extractor) extractPage(ctx context.Context, url string) (*extract.Result, error) {
	title, text, err := e.renderPage(ctx, url)
	if err != nil {
		e.logger.Warn("headless render failed, falling back to plain fetch", "url", url, "err", err)
		result, fetchErr := e.fetchPage(ctx, url)
		if fetchErr != nil {
			// Report the primary method's failure; the fallback error is
			// usually a symptom of the same problem.
			return nil, err
		}
		result.FallbackUsed = true
		return result, nil
	}

	if strings.TrimSpace(text) == "" {
		return nil, extract.ErrNoContent
	}
	return &extract.Result{
		Text:             text,
		Title:            title,
		ContentType:      "text/html",
		ExtractionMethod: "chromedp",
	}, nil
}

func (e *Extractor) renderPage(ctx context.Context, url string) (title, text string, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	ctx, cancelChrome := chromedp.NewContext(ctx)
	defer cancelChrome()

	err = chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second), // let client-side rendering settle
		chromedp.Title(&title),
		chromedp.Evaluate(`document.body.innerText`, &text),
	)
	return title, text, err
}

// extractPlaylist resolves a playlist page into its member video URLs.
// The result carries no text; the orchestrator fans it out instead.
func (e *Extractor) extractPlaylist(ctx context.Context, url string) (*extract.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	ctx, cancelChrome := chromedp.NewContext(ctx)
	defer cancelChrome()

	var title string
	var hrefs []string
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.Title(&title),
		chromedp.Evaluate(
			`Array.from(document.querySelectorAll('a#video-title, a#wc-endpoint')).map(a => a.href)`,
			&hrefs,
			func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithReturnByValue(true)
			},
		),
	)
	if err != nil {
		return nil, err
	}

	videos := canonicalVideoURLs(hrefs)
	if len(videos) == 0 {
		return nil, fmt.Errorf("%w: playlist resolved no videos", extract.ErrNoContent)
	}

	return &extract.Result{
		Title:            title,
		ContentType:      "text/html",
		ExtractionMethod: "chromedp",
		Videos:           videos,
		Metadata:         map[string]string{"videoCount": fmt.Sprintf("%d", len(videos))},
	}, nil
}

// fetchPage is the degraded extraction path: plain GET plus tag stripping.
func (e *Extractor) fetchPage(ctx context.Context, url string) (*extract.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, err
	}

	text := stripHTML(string(body))
	if strings.TrimSpace(text) == "" {
		return nil, extract.ErrNoContent
	}

	return &extract.Result{
		Text:             text,
		Title:            htmlTitle(string(body)),
		ContentType:      resp.Header.Get("Content-Type"),
		ExtractionMethod: "http",
	}, nil
}
