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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/distillery/ai"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/extract"
	"github.com/poiesic/distillery/storage"
)

const (
	defaultMaxConcurrent = 1
	maxConcurrentLimit   = 10
	defaultQueueDepth    = 1024
)

// Orchestrator drives queued distillation records through the extraction
// and distilling stages. Queued ids are admitted in FIFO order into a
// worker pool bounded at maxConcurrent; each in-flight record is owned by
// exactly one worker until its next persisted checkpoint, so no record-level
// locking is needed. Failure of one record never halts the queue.
//
// The orchestrator imposes no per-stage timeout; a stuck adapter call
// occupies its concurrency slot until the adapter returns. Timeout policy
// belongs to the adapters.
type Orchestrator struct {
	repo      storage.DistillationRepository
	extractor extract.Extractor
	distiller ai.Distiller
	aiConfig  *ai.Config

	pool  *ants.Pool
	queue chan string
	stops *stopRegistry

	logger *slog.Logger

	mu     sync.RWMutex // guards closed and the queue's lifetime
	wg     sync.WaitGroup
	closed bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithMaxConcurrent bounds how many records may sit in the extracting or
// distilling stages at once. Values are clamped to [1, 10]. Default 1.
func WithMaxConcurrent(n int) Option {
	return func(o *Orchestrator) error {
		if n < 1 {
			n = 1
		}
		if n > maxConcurrentLimit {
			n = maxConcurrentLimit
		}
		if o.pool != nil {
			o.pool.Release()
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		o.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator and starts its dispatcher.
// aiConfig is passed explicitly into every distill call.
func NewOrchestrator(
	repo storage.DistillationRepository,
	extractor extract.Extractor,
	distiller ai.Distiller,
	aiConfig *ai.Config,
	opts ...Option,
) (*Orchestrator, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if distiller == nil {
		return nil, ErrDistillerRequired
	}
	if aiConfig == nil {
		aiConfig = ai.DefaultConfig()
	}

	pool, err := ants.NewPool(defaultMaxConcurrent)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		repo:      repo,
		extractor: extractor,
		distiller: distiller,
		aiConfig:  aiConfig,
		pool:      pool,
		queue:     make(chan string, defaultQueueDepth),
		stops:     newStopRegistry(),
		logger:    slog.Default().With("component", "orchestrator"),
	}

	for _, opt := range opts {
		if optErr := opt(o); optErr != nil {
			o.pool.Release()
			return nil, optErr
		}
	}

	o.wg.Add(1)
	go o.dispatch()

	return o, nil
}

// dispatch drains the FIFO queue into the bounded pool. Submit blocks while
// the pool is saturated, which is what preserves admission order.
func (o *Orchestrator) dispatch() {
	defer o.wg.Done()
	for id := range o.queue {
		id := id
		if err := o.pool.Submit(func() { o.process(id) }); err != nil {
			o.logger.Error("dispatch failed", "id", id, "err", err)
		}
	}
}

// Enqueue adds a record id to the submission queue. Concurrent callers do
// not serialize behind each other; when the backlog is at defaultQueueDepth
// the send blocks until the dispatcher drains a slot.
func (o *Orchestrator) Enqueue(id string) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrOrchestratorClosed
	}
	o.queue <- id
	return nil
}

// Stop requests cooperative cancellation of a record. Best-effort: the flag
// is observed only at cancellation checkpoints, so a stop takes effect when
// the current adapter call returns. A record already in a terminal state
// has nothing in flight; stopping it is a no-op rather than a flag that
// would cancel a later retry.
func (o *Orchestrator) Stop(ctx context.Context, id string) error {
	d, err := o.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if d.Status.Terminal() {
		o.logger.Debug("stop ignored for terminal record", "id", id, "status", string(d.Status))
		return nil
	}
	o.stops.request(id)
	o.logger.Info("stop requested", "id", id)
	return nil
}

// RetryReceipt reports how a retry was scheduled.
type RetryReceipt struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Reextracted bool   `json:"reextracted"`
}

// Retry re-enters a terminal record into the pipeline: straight into
// distilling when enough raw content survived, or back into extracting when
// only a source reference is usable. Returns ErrNothingToRetry when neither
// is available.
func (o *Orchestrator) Retry(ctx context.Context, id string) (*RetryReceipt, error) {
	d, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Status.Terminal() {
		return nil, ErrNotRetryable
	}

	reextract := false
	if !hasRetryableRawContent(d) {
		if strings.TrimSpace(d.SourceRef) == "" {
			return nil, ErrNothingToRetry
		}
		reextract = true
	}

	if err := o.repo.AppendLog(ctx, id, "retry requested"); err != nil {
		return nil, err
	}
	// A flag raised after the record went terminal would otherwise cancel
	// this retry at its first checkpoint.
	o.stops.clear(id)
	if err := o.Enqueue(id); err != nil {
		return nil, err
	}
	return &RetryReceipt{ID: id, Status: "queued", Reextracted: reextract}, nil
}

// Close stops accepting work, waits for the dispatcher to drain, and
// releases the pool. In-flight records finish their current stage.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	o.wg.Wait()
	o.pool.Release()
}

// hasRetryableRawContent reports whether a record's raw content clears the
// minimum-length bar for retrying without re-extraction.
func hasRetryableRawContent(d *core.Distillation) bool {
	return len([]rune(d.RawContent)) >= core.MinRetryableRawContent
}

// process runs one record through its remaining stages. It is the only
// mutator of the record while it runs.
func (o *Orchestrator) process(id string) {
	ctx := context.Background()
	defer o.stops.clear(id)

	d, err := o.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted while queued: an implicit successful cancellation.
			o.logger.Debug("record vanished before dispatch", "id", id)
		} else {
			o.logger.Error("reading record failed", "id", id, "err", err)
		}
		return
	}

	distillOnly := false
	switch {
	case d.Status == core.StatusPending:
	case d.Status.Terminal():
		// Retry dispatch.
		distillOnly = hasRetryableRawContent(d)
	default:
		// Already owned by a worker; a duplicate queue entry is a no-op.
		o.logger.Warn("skipping record in unexpected status", "id", id, "status", string(d.Status))
		return
	}

	if !distillOnly {
		if !o.runExtraction(ctx, id) {
			return
		}
	}
	if !o.enterStage(ctx, id, core.StatusDistilling) {
		return
	}
	o.runDistillation(ctx, id)
}

// enterStage persists a stage transition before the stage's adapter is
// invoked. Returns false if the record is gone or the write failed.
func (o *Orchestrator) enterStage(ctx context.Context, id string, status core.Status) bool {
	if _, err := o.repo.UpdateStatus(ctx, id, status, ""); err != nil {
		o.persistFailure(id, string(status), err)
		return false
	}
	return true
}

// checkpoint observes the stop flag. When set, the record moves to stopped
// and processing ends. This is the only place cancellation takes effect.
func (o *Orchestrator) checkpoint(ctx context.Context, id string) (stopped bool) {
	if !o.stops.requested(id) {
		return false
	}
	if _, err := o.repo.UpdateStatus(ctx, id, core.StatusStopped, ""); err != nil {
		o.persistFailure(id, "stopped", err)
	} else {
		o.logger.Info("record stopped", "id", id)
	}
	return true
}

// runExtraction enters extracting, consults the cancellation checkpoint,
// calls the extraction adapter, and persists its output. Returns true when
// the record should continue into distilling.
func (o *Orchestrator) runExtraction(ctx context.Context, id string) bool {
	if !o.enterStage(ctx, id, core.StatusExtracting) {
		return false
	}
	if o.checkpoint(ctx, id) {
		return false
	}

	d, err := o.repo.Get(ctx, id)
	if err != nil {
		o.persistFailure(id, "extracting", err)
		return false
	}

	result, err := o.extractor.Extract(ctx, d.SourceType, d.SourceRef)
	if err != nil {
		o.fail(ctx, id, err)
		return false
	}

	if len(result.Videos) > 0 {
		o.fanOut(ctx, d, result)
		return false
	}

	if strings.TrimSpace(result.Text) == "" {
		o.fail(ctx, id, extract.ErrNoContent)
		return false
	}

	meta := extractionMetadata(result)
	if _, err := o.repo.UpdateContent(ctx, id, storage.FieldRawContent, result.Text, meta); err != nil {
		o.persistFailure(id, "extracting", err)
		return false
	}
	if err := o.repo.SetTitle(ctx, id, result.Title); err != nil && !errors.Is(err, storage.ErrNotFound) {
		o.logger.Error("storing title failed", "id", id, "err", err)
	}

	o.logger.Info("extraction complete", "id", id,
		"method", result.ExtractionMethod, "chars", len(result.Text))
	return true
}

// runDistillation calls the distillation adapter with the orchestrator's
// explicit config and persists the condensed result, completing the record.
// The cancellation checkpoint is consulted on both sides of the adapter
// call, so a stop raised at any point during distilling wins over the
// model's output.
func (o *Orchestrator) runDistillation(ctx context.Context, id string) {
	if o.checkpoint(ctx, id) {
		return
	}

	d, err := o.repo.Get(ctx, id)
	if err != nil {
		o.persistFailure(id, "distilling", err)
		return
	}

	content, err := o.distiller.Distill(ctx, d.RawContent, o.aiConfig)
	if err != nil {
		o.fail(ctx, id, err)
		return
	}

	// A stop issued while the model call was in flight is honored here,
	// before the result becomes the record's terminal state.
	if o.checkpoint(ctx, id) {
		return
	}

	updated, err := o.repo.UpdateContent(ctx, id, storage.FieldContent, content, nil)
	if err != nil {
		o.persistFailure(id, "distilling", err)
		return
	}
	o.logger.Info("distillation complete", "id", id, "words", updated.WordCount)
}

// fanOut replaces a resolved playlist record with one independent pending
// record per member video, then deletes the original. The new records share
// nothing with each other or the playlist afterward.
func (o *Orchestrator) fanOut(ctx context.Context, playlist *core.Distillation, result *extract.Result) {
	created := 0
	for _, videoURL := range result.Videos {
		video := &core.Distillation{
			ID:         core.NewID(),
			Title:      videoURL,
			SourceType: core.SourceTypeYouTube,
			SourceRef:  videoURL,
			Status:     core.StatusPending,
		}
		video.AppendLog(fmt.Sprintf("created from playlist %s", playlist.SourceRef))
		if err := o.repo.Add(ctx, video); err != nil {
			o.logger.Error("creating fan-out record failed", "playlist", playlist.ID, "video", videoURL, "err", err)
			continue
		}
		if err := o.Enqueue(video.ID); err != nil {
			o.logger.Error("enqueueing fan-out record failed", "id", video.ID, "err", err)
			continue
		}
		created++
	}

	if err := o.repo.Delete(ctx, playlist.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		o.logger.Error("deleting playlist record failed", "id", playlist.ID, "err", err)
	}
	o.logger.Info("playlist fanned out", "id", playlist.ID, "videos", created)
}

// fail persists an adapter error as the record's terminal state. The
// message is stored verbatim and the item is never auto-retried.
func (o *Orchestrator) fail(ctx context.Context, id string, cause error) {
	if _, err := o.repo.UpdateStatus(ctx, id, core.StatusError, cause.Error()); err != nil {
		o.persistFailure(id, "error", err)
		return
	}
	o.logger.Warn("record failed", "id", id, "err", cause)
}

// persistFailure handles a failed store write. A missing record is an
// implicit cancellation; anything else has no safe terminal state to
// record, so the item is logged and abandoned at its last persisted state.
func (o *Orchestrator) persistFailure(id, stage string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		o.logger.Debug("record vanished mid-flight, treating as cancelled", "id", id, "stage", stage)
		return
	}
	o.logger.Error("store write failed, abandoning item", "id", id, "stage", stage, "err", err)
}

// extractionMetadata flattens an extraction result into record metadata,
// including a fingerprint of the raw text for diagnosing non-idempotent
// re-extractions.
func extractionMetadata(result *extract.Result) map[string]string {
	meta := make(map[string]string, len(result.Metadata)+4)
	for k, v := range result.Metadata {
		meta[k] = v
	}
	if result.ContentType != "" {
		meta["contentType"] = result.ContentType
	}
	if result.ExtractionMethod != "" {
		meta["extractionMethod"] = result.ExtractionMethod
	}
	if result.FallbackUsed {
		meta["fallbackUsed"] = "true"
	}
	meta["fingerprint"] = core.Fingerprint(result.Text)
	return meta
}
