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


// Package extract defines the extraction boundary: the adapter that turns a
// source reference into raw text. Implementations are treated as opaque,
// slow, and non-idempotent; retrying a live URL may yield different content.
package extract

import (
	"context"
	"errors"

	"github.com/poiesic/distillery/core"
)

// Result is the output of one extraction call.
type Result struct {
	// Text is the extracted raw content. Empty for playlist resolutions.
	Text string
	// Title is the source's own title, when one could be determined.
	Title string
	// ContentType describes the fetched material (e.g. "text/html").
	ContentType string
	// ExtractionMethod names how the text was obtained (e.g. "chromedp",
	// "http", "file", "inline").
	ExtractionMethod string
	// FallbackUsed marks that the primary method failed and a degraded one
	// produced this result.
	FallbackUsed bool
	// Metadata carries extractor-specific diagnostics, merged into the
	// record's extraction metadata.
	Metadata map[string]string
	// Videos is the member video URLs of a resolved playlist. When
	// non-empty, Text is empty and the orchestrator fans the playlist out
	// into independent per-video records.
	Videos []string
}

// Extractor converts a source reference into raw text.
// Implementations must be thread-safe for concurrent use. Timeout policy
// belongs to the implementation; the orchestrator imposes none.
type Extractor interface {
	Extract(ctx context.Context, sourceType core.SourceType, sourceRef string) (*Result, error)
}

var (
	// ErrNoContent indicates extraction succeeded mechanically but produced
	// no usable text.
	ErrNoContent = errors.New("no content extracted")

	// ErrUnsupportedSource indicates the extractor cannot handle the given
	// source type or format.
	ErrUnsupportedSource = errors.New("unsupported source")
)
