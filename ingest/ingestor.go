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


package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage"
)

// titleSnippetWords caps how many words of a text submission seed its title.
const titleSnippetWords = 8

// Receipt acknowledges an accepted submission. Processing continues
// asynchronously; poll the record by ID for progress.
type Receipt struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Ingestor validates submissions, persists them as pending records, and
// hands their ids to the orchestrator. Validation failures are synchronous
// and leave no record behind.
type Ingestor struct {
	repo         storage.DistillationRepository
	orchestrator *Orchestrator
	spoolDir     string
	logger       *slog.Logger
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithSpoolDir sets the directory where uploaded file contents are spooled
// before extraction. Defaults to the OS temp directory.
func WithSpoolDir(dir string) IngestorOption {
	return func(i *Ingestor) {
		if dir != "" {
			i.spoolDir = dir
		}
	}
}

// WithIngestorLogger sets a custom logger.
func WithIngestorLogger(logger *slog.Logger) IngestorOption {
	return func(i *Ingestor) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// NewIngestor creates an ingestor bound to a repository and orchestrator.
func NewIngestor(repo storage.DistillationRepository, orchestrator *Orchestrator, opts ...IngestorOption) (*Ingestor, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if orchestrator == nil {
		return nil, fmt.Errorf("%w: orchestrator required", ErrInvalidInput)
	}
	i := &Ingestor{
		repo:         repo,
		orchestrator: orchestrator,
		spoolDir:     os.TempDir(),
		logger:       slog.Default().With("component", "ingestor"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// SubmitURL accepts an absolute http(s) URL, classifies it as a plain page,
// a YouTube video, or a YouTube playlist, and queues it.
func (i *Ingestor) SubmitURL(ctx context.Context, rawURL string) (*Receipt, error) {
	u, err := parseSubmittedURL(rawURL)
	if err != nil {
		return nil, err
	}
	sourceType := classifyURL(u)
	return i.submit(ctx, sourceType, u.String(), u.String())
}

// SubmitText accepts inline text for distillation. The leading words of the
// text seed the record's title until extraction refines it.
func (i *Ingestor) SubmitText(ctx context.Context, text string) (*Receipt, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}
	return i.submit(ctx, core.SourceTypeText, text, textTitle(text))
}

// SubmitFile accepts an uploaded file's name and contents. The contents are
// spooled to disk under a fresh name; the record's source reference is the
// spooled path and its title is the original filename.
func (i *Ingestor) SubmitFile(ctx context.Context, filename string, contents []byte) (*Receipt, error) {
	if len(contents) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if !utf8.Valid(contents) {
		return nil, fmt.Errorf("%w: file is not valid utf-8 text", ErrInvalidInput)
	}
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: missing filename", ErrInvalidInput)
	}

	spooled := filepath.Join(i.spoolDir, core.NewID()+"-"+filename)
	if err := os.WriteFile(spooled, contents, 0o600); err != nil {
		return nil, fmt.Errorf("spooling upload: %w", err)
	}

	receipt, err := i.submit(ctx, core.SourceTypeFile, spooled, filename)
	if err != nil {
		os.Remove(spooled)
		return nil, err
	}
	return receipt, nil
}

// submit persists a pending record and enqueues it.
func (i *Ingestor) submit(ctx context.Context, sourceType core.SourceType, sourceRef, title string) (*Receipt, error) {
	d := &core.Distillation{
		ID:         core.NewID(),
		Title:      title,
		SourceType: sourceType,
		SourceRef:  sourceRef,
		Status:     core.StatusPending,
	}
	d.AppendLog(fmt.Sprintf("submitted as %s", sourceType))

	if err := i.repo.Add(ctx, d); err != nil {
		return nil, err
	}
	if err := i.orchestrator.Enqueue(d.ID); err != nil {
		// Keep stored state consistent with the queue.
		if delErr := i.repo.Delete(ctx, d.ID); delErr != nil {
			i.logger.Error("removing unqueued record failed", "id", d.ID, "err", delErr)
		}
		return nil, err
	}

	i.logger.Info("submission accepted", "id", d.ID, "sourceType", string(sourceType))
	return &Receipt{ID: d.ID, Status: "queued"}, nil
}

// textTitle derives a provisional title from the first few words of an
// inline text submission.
func textTitle(text string) string {
	words := strings.Fields(text)
	if len(words) > titleSnippetWords {
		words = words[:titleSnippetWords]
		return strings.Join(words, " ") + "..."
	}
	return strings.Join(words, " ")
}
