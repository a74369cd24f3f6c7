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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/distillery/ai"
	aimock "github.com/poiesic/distillery/ai/mock"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/extract"
	extractmock "github.com/poiesic/distillery/extract/mock"
	"github.com/poiesic/distillery/storage"
	"github.com/poiesic/distillery/storage/badger"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

type harness struct {
	repo      storage.DistillationRepository
	extractor *extractmock.MockExtractor
	distiller *aimock.MockDistiller
	orch      *Orchestrator
	ingestor  *Ingestor
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	extractor := extractmock.NewMockExtractor()
	distiller := aimock.NewMockDistiller()

	orch, err := NewOrchestrator(repo, extractor, distiller, ai.DefaultConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(orch.Close)

	ingestor, err := NewIngestor(repo, orch, WithSpoolDir(t.TempDir()))
	require.NoError(t, err)

	return &harness{
		repo:      repo,
		extractor: extractor,
		distiller: distiller,
		orch:      orch,
		ingestor:  ingestor,
	}
}

// waitForStatus polls until the record reaches the given status.
func (h *harness) waitForStatus(t *testing.T, id string, status core.Status) *core.Distillation {
	t.Helper()
	var d *core.Distillation
	require.Eventually(t, func() bool {
		var err error
		d, err = h.repo.Get(context.Background(), id)
		return err == nil && d.Status == status
	}, waitFor, tick, "record %s never reached %s", id, status)
	return d
}

func TestSubmitTextCompletes(t *testing.T) {
	h := newHarness(t)

	receipt, err := h.ingestor.SubmitText(context.Background(), "the quick brown fox jumps over the lazy dog")
	require.NoError(t, err)
	require.NotEmpty(t, receipt.ID)
	assert.Equal(t, "queued", receipt.Status)

	d := h.waitForStatus(t, receipt.ID, core.StatusCompleted)
	assert.Equal(t, core.SourceTypeText, d.SourceType)
	assert.Equal(t, "THE QUICK BROWN FOX JUMPS", d.Content)
	assert.Equal(t, 5, d.WordCount)
	assert.NotEmpty(t, d.RawContent)
	assert.Empty(t, d.Error)
	assert.False(t, d.CompletedAt.IsZero())
	assert.False(t, d.StartTime.IsZero())
	assert.False(t, d.DistillingStartTime.IsZero())
	assert.GreaterOrEqual(t, d.ElapsedTime(), time.Duration(0))
	assert.NotEmpty(t, d.Logs)
	assert.Equal(t, 1, h.extractor.CallCount())
	assert.Equal(t, 1, h.distiller.CallCount())
}

func TestSubmitURLCompletes(t *testing.T) {
	h := newHarness(t)

	receipt, err := h.ingestor.SubmitURL(context.Background(), "https://example.com/article")
	require.NoError(t, err)

	d := h.waitForStatus(t, receipt.ID, core.StatusCompleted)
	assert.Equal(t, core.SourceTypeURL, d.SourceType)
	assert.Equal(t, "https://example.com/article", d.SourceRef)
	assert.Contains(t, d.ExtractionMetadata, "fingerprint")
	assert.Equal(t, "mock", d.ExtractionMetadata["extractionMethod"])
}

func TestStatusPersistedBeforeAdapterRuns(t *testing.T) {
	h := newHarness(t)

	var observed atomic.Value
	h.extractor.ExtractFunc = func(ctx context.Context, st core.SourceType, ref string) (*extract.Result, error) {
		d, err := h.repo.Get(ctx, ref)
		if err != nil {
			return nil, err
		}
		observed.Store(d.Status)
		return &extract.Result{Text: "extracted body text", Title: "t"}, nil
	}

	d := &core.Distillation{
		ID:         core.NewID(),
		Title:      "probe",
		SourceType: core.SourceTypeURL,
		Status:     core.StatusPending,
	}
	d.SourceRef = d.ID
	require.NoError(t, h.repo.Add(context.Background(), d))
	require.NoError(t, h.orch.Enqueue(d.ID))

	h.waitForStatus(t, d.ID, core.StatusCompleted)
	assert.Equal(t, core.StatusExtracting, observed.Load())
}

func TestExtractionFailureThenRetryReextracts(t *testing.T) {
	h := newHarness(t)

	h.extractor.ExtractFunc = func(ctx context.Context, st core.SourceType, ref string) (*extract.Result, error) {
		return nil, fmt.Errorf("%w: connection refused", extract.ErrNoContent)
	}

	receipt, err := h.ingestor.SubmitURL(context.Background(), "https://example.com/down")
	require.NoError(t, err)

	d := h.waitForStatus(t, receipt.ID, core.StatusError)
	assert.Contains(t, d.Error, "connection refused")
	assert.Empty(t, d.Content)
	assert.False(t, d.CompletedAt.IsZero())
	require.Equal(t, 1, h.extractor.CallCount())

	// The source recovers.
	h.extractor.ExtractFunc = nil

	retried, err := h.orch.Retry(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.True(t, retried.Reextracted)
	assert.Equal(t, "queued", retried.Status)

	d = h.waitForStatus(t, receipt.ID, core.StatusCompleted)
	assert.Equal(t, 2, h.extractor.CallCount())
	assert.Empty(t, d.Error)
	assert.NotEmpty(t, d.Content)
}

func TestDistillationFailureThenRetrySkipsExtraction(t *testing.T) {
	h := newHarness(t)

	h.distiller.DistillFunc = func(ctx context.Context, raw string, cfg *ai.Config) (string, error) {
		return "", errors.New("model unavailable")
	}

	receipt, err := h.ingestor.SubmitText(context.Background(), "plenty of raw content survives this failure")
	require.NoError(t, err)

	d := h.waitForStatus(t, receipt.ID, core.StatusError)
	assert.Equal(t, "model unavailable", d.Error)
	require.Equal(t, 1, h.extractor.CallCount())

	h.distiller.DistillFunc = nil

	retried, err := h.orch.Retry(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.False(t, retried.Reextracted)

	h.waitForStatus(t, receipt.ID, core.StatusCompleted)
	assert.Equal(t, 1, h.extractor.CallCount(), "retry with usable raw content must not re-extract")
	assert.Equal(t, 2, h.distiller.CallCount())
}

func TestRetryNonTerminal(t *testing.T) {
	h := newHarness(t)

	d := &core.Distillation{
		ID:         core.NewID(),
		Title:      "parked",
		SourceType: core.SourceTypeText,
		SourceRef:  "some text",
		Status:     core.StatusPending,
	}
	require.NoError(t, h.repo.Add(context.Background(), d))

	_, err := h.orch.Retry(context.Background(), d.ID)
	assert.ErrorIs(t, err, ErrNotRetryable)
}

func TestRetryNothingLeft(t *testing.T) {
	h := newHarness(t)

	d := &core.Distillation{
		ID:          core.NewID(),
		Title:       "husk",
		SourceType:  core.SourceTypeText,
		Status:      core.StatusError,
		RawContent:  "short",
		Error:       "it broke",
		CompletedAt: time.Now().UTC(),
	}
	require.NoError(t, h.repo.Add(context.Background(), d))

	_, err := h.orch.Retry(context.Background(), d.ID)
	assert.ErrorIs(t, err, ErrNothingToRetry)
}

func TestRetryUnknownID(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Retry(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStopDuringExtraction(t *testing.T) {
	h := newHarness(t)

	started := make(chan struct{})
	release := make(chan struct{})
	h.extractor.ExtractFunc = func(ctx context.Context, st core.SourceType, ref string) (*extract.Result, error) {
		close(started)
		<-release
		return &extract.Result{Text: "arrived too late to matter", Title: "t"}, nil
	}

	receipt, err := h.ingestor.SubmitText(context.Background(), "stop me before i distill")
	require.NoError(t, err)

	<-started
	require.NoError(t, h.orch.Stop(context.Background(), receipt.ID))
	close(release)

	d := h.waitForStatus(t, receipt.ID, core.StatusStopped)
	assert.Empty(t, d.Content)
	assert.Empty(t, d.Error)
	assert.False(t, d.CompletedAt.IsZero())
	assert.Equal(t, 0, h.distiller.CallCount(), "stopped record must not reach the distiller")
}

func TestStopDuringDistillation(t *testing.T) {
	h := newHarness(t)

	started := make(chan struct{})
	release := make(chan struct{})
	h.distiller.DistillFunc = func(ctx context.Context, raw string, cfg *ai.Config) (string, error) {
		close(started)
		<-release
		return "CONDENSED ANYWAY", nil
	}

	receipt, err := h.ingestor.SubmitText(context.Background(), "stop me while the model is thinking")
	require.NoError(t, err)

	<-started
	require.NoError(t, h.orch.Stop(context.Background(), receipt.ID))
	close(release)

	d := h.waitForStatus(t, receipt.ID, core.StatusStopped)
	assert.Empty(t, d.Content, "a stopped record must never keep the model output")
	assert.Empty(t, d.Error)
	assert.False(t, d.CompletedAt.IsZero())
	assert.Equal(t, 1, h.distiller.CallCount())
}

func TestStopOnTerminalThenRetryRuns(t *testing.T) {
	h := newHarness(t)

	receipt, err := h.ingestor.SubmitText(context.Background(), "finish first then stop then retry")
	require.NoError(t, err)
	h.waitForStatus(t, receipt.ID, core.StatusCompleted)
	require.Equal(t, 1, h.distiller.CallCount())

	// Stopping a finished record has nothing to cancel.
	require.NoError(t, h.orch.Stop(context.Background(), receipt.ID))

	retried, err := h.orch.Retry(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.False(t, retried.Reextracted)

	d := h.waitForStatus(t, receipt.ID, core.StatusCompleted)
	assert.NotEmpty(t, d.Content)
	assert.Equal(t, 2, h.distiller.CallCount(), "retry after a late stop must still reach the distiller")
}

func TestStopUnknownID(t *testing.T) {
	h := newHarness(t)

	err := h.orch.Stop(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteMidFlightIsImplicitCancellation(t *testing.T) {
	h := newHarness(t)

	started := make(chan struct{})
	release := make(chan struct{})
	h.extractor.ExtractFunc = func(ctx context.Context, st core.SourceType, ref string) (*extract.Result, error) {
		close(started)
		<-release
		return &extract.Result{Text: "body", Title: "t"}, nil
	}

	receipt, err := h.ingestor.SubmitText(context.Background(), "delete me while running")
	require.NoError(t, err)

	<-started
	require.NoError(t, h.repo.Delete(context.Background(), receipt.ID))
	close(release)

	// The worker discovers the deletion when it persists and walks away.
	require.Eventually(t, func() bool {
		return h.orch.pool.Running() == 0
	}, waitFor, tick)
	assert.Equal(t, 0, h.distiller.CallCount())
	_, err = h.repo.Get(context.Background(), receipt.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPlaylistFanOut(t *testing.T) {
	h := newHarness(t)

	h.extractor.ExtractFunc = func(ctx context.Context, st core.SourceType, ref string) (*extract.Result, error) {
		if st == core.SourceTypePlaylist {
			return &extract.Result{
				Videos: []string{
					"https://www.youtube.com/watch?v=aaa",
					"https://www.youtube.com/watch?v=bbb",
				},
			}, nil
		}
		return &extract.Result{Text: "transcript for " + ref, Title: ref}, nil
	}

	receipt, err := h.ingestor.SubmitURL(context.Background(), "https://www.youtube.com/playlist?list=PL123")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		all, listErr := h.repo.List(context.Background())
		if listErr != nil || len(all) != 2 {
			return false
		}
		for _, d := range all {
			if d.Status != core.StatusCompleted {
				return false
			}
		}
		return true
	}, waitFor, tick, "expected two completed fan-out records")

	_, err = h.repo.Get(context.Background(), receipt.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound, "playlist record must be deleted after fan-out")

	all, err := h.repo.List(context.Background())
	require.NoError(t, err)
	refs := make(map[string]bool)
	for _, d := range all {
		assert.Equal(t, core.SourceTypeYouTube, d.SourceType)
		assert.NotEmpty(t, d.Content)
		refs[d.SourceRef] = true
	}
	assert.True(t, refs["https://www.youtube.com/watch?v=aaa"])
	assert.True(t, refs["https://www.youtube.com/watch?v=bbb"])
}

func TestFailureIsolation(t *testing.T) {
	h := newHarness(t)

	h.extractor.ExtractFunc = func(ctx context.Context, st core.SourceType, ref string) (*extract.Result, error) {
		if ref == "poison pill" {
			return nil, errors.New("extractor blew up")
		}
		return &extract.Result{Text: ref, Title: ref}, nil
	}

	bad, err := h.ingestor.SubmitText(context.Background(), "poison pill")
	require.NoError(t, err)
	good, err := h.ingestor.SubmitText(context.Background(), "healthy submission right behind it")
	require.NoError(t, err)

	h.waitForStatus(t, bad.ID, core.StatusError)
	h.waitForStatus(t, good.ID, core.StatusCompleted)
}

func TestMaxConcurrentBound(t *testing.T) {
	h := newHarness(t, WithMaxConcurrent(2))

	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	h.extractor.ExtractFunc = func(ctx context.Context, st core.SourceType, ref string) (*extract.Result, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return &extract.Result{Text: ref, Title: ref}, nil
	}

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		receipt, err := h.ingestor.SubmitText(context.Background(), fmt.Sprintf("submission number %d", i))
		require.NoError(t, err)
		ids = append(ids, receipt.ID)
	}

	require.Eventually(t, func() bool { return inFlight.Load() == 2 }, waitFor, tick)
	close(release)

	for _, id := range ids {
		h.waitForStatus(t, id, core.StatusCompleted)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFIFOAdmissionOrder(t *testing.T) {
	h := newHarness(t)

	texts := []string{"first in line", "second in line", "third in line"}
	for _, text := range texts {
		_, err := h.ingestor.SubmitText(context.Background(), text)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return h.extractor.CallCount() == len(texts)
	}, waitFor, tick)
	assert.Equal(t, texts, h.extractor.Calls())
}

func TestMaxConcurrentClamped(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	for _, n := range []int{-3, 0, 1, 10, 50} {
		orch, err := NewOrchestrator(repo, extractmock.NewMockExtractor(), aimock.NewMockDistiller(), nil, WithMaxConcurrent(n))
		require.NoError(t, err)
		size := orch.pool.Cap()
		assert.GreaterOrEqual(t, size, 1)
		assert.LessOrEqual(t, size, maxConcurrentLimit)
		orch.Close()
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	orch, err := NewOrchestrator(repo, extractmock.NewMockExtractor(), aimock.NewMockDistiller(), nil)
	require.NoError(t, err)
	orch.Close()

	assert.ErrorIs(t, orch.Enqueue("some-id"), ErrOrchestratorClosed)
}

func TestNewOrchestratorRequiresDependencies(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewOrchestrator(nil, extractmock.NewMockExtractor(), aimock.NewMockDistiller(), nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = NewOrchestrator(repo, nil, aimock.NewMockDistiller(), nil)
	assert.ErrorIs(t, err, ErrExtractorRequired)

	_, err = NewOrchestrator(repo, extractmock.NewMockExtractor(), nil, nil)
	assert.ErrorIs(t, err, ErrDistillerRequired)
}
