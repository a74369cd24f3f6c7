package ingest

import "errors"

var (
	// ErrInvalidInput is returned synchronously for empty or malformed
	// submissions. No record is created.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNothingToRetry is returned when a retry finds neither usable raw
	// content nor a source reference to re-extract from.
	ErrNothingToRetry = errors.New("nothing to retry")

	// ErrNotRetryable is returned when retry is requested for a record that
	// is not in a terminal status.
	ErrNotRetryable = errors.New("only completed, error or stopped records can be retried")

	// ErrOrchestratorClosed is returned when submitting to a closed orchestrator.
	ErrOrchestratorClosed = errors.New("orchestrator is closed")

	// ErrRepositoryRequired is returned when a repository is not provided.
	ErrRepositoryRequired = errors.New("distillation repository required")

	// ErrExtractorRequired is returned when an extractor is not provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrDistillerRequired is returned when a distiller is not provided.
	ErrDistillerRequired = errors.New("distiller required")
)
