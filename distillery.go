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


package distillery

import (
	"context"
	"log/slog"

	"github.com/poiesic/distillery/ai"
	"github.com/poiesic/distillery/ai/llm"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/extract"
	"github.com/poiesic/distillery/extract/web"
	"github.com/poiesic/distillery/ingest"
	"github.com/poiesic/distillery/storage"
	"github.com/poiesic/distillery/storage/badger"
)

// Library is the composed distillation system: one durable store plus the
// ingestion pipeline over it. It owns every component it wires and tears
// them down in Close.
type Library struct {
	backend      *badger.Backend
	repo         storage.DistillationRepository
	orchestrator *ingest.Orchestrator
	ingestor     *ingest.Ingestor
	logger       *slog.Logger
}

// LibraryOption configures a Library.
type LibraryOption func(*libraryOptions)

type libraryOptions struct {
	aiConfig      *ai.Config
	extractor     extract.Extractor
	distiller     ai.Distiller
	maxConcurrent int
	spoolDir      string
	inMemory      bool
	logger        *slog.Logger
}

// WithAIConfig sets the distillation provider configuration.
// Default is ai.DefaultConfig (local Ollama, llama3).
func WithAIConfig(cfg *ai.Config) LibraryOption {
	return func(o *libraryOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithExtractor replaces the default headless-browser extractor.
func WithExtractor(e extract.Extractor) LibraryOption {
	return func(o *libraryOptions) {
		if e != nil {
			o.extractor = e
		}
	}
}

// WithDistiller replaces the default provider-backed distiller.
func WithDistiller(d ai.Distiller) LibraryOption {
	return func(o *libraryOptions) {
		if d != nil {
			o.distiller = d
		}
	}
}

// WithMaxConcurrent bounds concurrent in-flight distillations, clamped to
// [1, 10]. Default 1.
func WithMaxConcurrent(n int) LibraryOption {
	return func(o *libraryOptions) { o.maxConcurrent = n }
}

// WithSpoolDir sets where uploaded files are spooled before extraction.
func WithSpoolDir(dir string) LibraryOption {
	return func(o *libraryOptions) { o.spoolDir = dir }
}

// WithInMemory opens the store in memory, for tests and throwaway runs.
func WithInMemory() LibraryOption {
	return func(o *libraryOptions) { o.inMemory = true }
}

// WithLogger sets the logger shared by the library's components.
func WithLogger(logger *slog.Logger) LibraryOption {
	return func(o *libraryOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewLibrary opens the store at filePath and wires the full pipeline.
func NewLibrary(filePath string, opts ...LibraryOption) (*Library, error) {
	options := &libraryOptions{
		aiConfig:      ai.DefaultConfig(),
		maxConcurrent: 1,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	repo, err := badger.NewDistillationRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	distiller := options.distiller
	if distiller == nil {
		distiller, err = llm.NewDistiller(options.aiConfig)
		if err != nil {
			repo.Close()
			backend.Close()
			return nil, err
		}
	}

	extractor := options.extractor
	if extractor == nil {
		extractor = web.NewExtractor(web.WithLogger(options.logger))
	}

	orchestrator, err := ingest.NewOrchestrator(repo, extractor, distiller, options.aiConfig,
		ingest.WithMaxConcurrent(options.maxConcurrent),
		ingest.WithLogger(options.logger))
	if err != nil {
		repo.Close()
		backend.Close()
		return nil, err
	}

	ingestorOpts := []ingest.IngestorOption{ingest.WithIngestorLogger(options.logger)}
	if options.spoolDir != "" {
		ingestorOpts = append(ingestorOpts, ingest.WithSpoolDir(options.spoolDir))
	}
	ingestor, err := ingest.NewIngestor(repo, orchestrator, ingestorOpts...)
	if err != nil {
		orchestrator.Close()
		repo.Close()
		backend.Close()
		return nil, err
	}

	return &Library{
		backend:      backend,
		repo:         repo,
		orchestrator: orchestrator,
		ingestor:     ingestor,
		logger:       options.logger,
	}, nil
}

// SubmitURL queues a web page, YouTube video, or YouTube playlist.
func (l *Library) SubmitURL(ctx context.Context, url string) (*ingest.Receipt, error) {
	return l.ingestor.SubmitURL(ctx, url)
}

// SubmitText queues inline text.
func (l *Library) SubmitText(ctx context.Context, text string) (*ingest.Receipt, error) {
	return l.ingestor.SubmitText(ctx, text)
}

// SubmitFile queues an uploaded text file.
func (l *Library) SubmitFile(ctx context.Context, filename string, contents []byte) (*ingest.Receipt, error) {
	return l.ingestor.SubmitFile(ctx, filename, contents)
}

// Get retrieves one record by id.
func (l *Library) Get(ctx context.Context, id string) (*core.Distillation, error) {
	return l.repo.Get(ctx, id)
}

// List returns every record, active first, then newest first.
func (l *Library) List(ctx context.Context) ([]*core.Distillation, error) {
	return l.repo.List(ctx)
}

// Search returns records whose title or content matches the query.
func (l *Library) Search(ctx context.Context, query string) ([]*core.Distillation, error) {
	return l.repo.Search(ctx, query)
}

// Delete removes a record. Deleting an in-flight record doubles as an
// implicit cancellation.
func (l *Library) Delete(ctx context.Context, id string) error {
	return l.repo.Delete(ctx, id)
}

// Retry re-enters a terminal record into the pipeline.
func (l *Library) Retry(ctx context.Context, id string) (*ingest.RetryReceipt, error) {
	return l.orchestrator.Retry(ctx, id)
}

// Stop requests cooperative cancellation of a record.
func (l *Library) Stop(ctx context.Context, id string) error {
	return l.orchestrator.Stop(ctx, id)
}

// Repository exposes the underlying store for callers that need it directly.
func (l *Library) Repository() storage.DistillationRepository {
	return l.repo
}

// Close drains the pipeline and closes the store.
func (l *Library) Close() error {
	l.orchestrator.Close()
	if err := l.repo.Close(); err != nil {
		l.logger.Error("error closing repository", "err", err)
		return err
	}
	if err := l.backend.Close(); err != nil {
		l.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
