package storage

import (
	"context"

	"github.com/poiesic/distillery/core"
)

// ContentField names a stage-output field targeted by UpdateContent.
type ContentField int

const (
	// FieldRawContent is the extraction stage's output.
	FieldRawContent ContentField = iota + 1
	// FieldContent is the distilling stage's output.
	FieldContent
)

// DistillationRepository provides durable CRUD for Distillation records.
// Implementations must be thread-safe and support concurrent access.
type DistillationRepository interface {
	// Add stores a new record. Returns ErrDuplicateKey if the ID already
	// exists. The record must pass core.Validate.
	Add(ctx context.Context, d *core.Distillation) error

	// Get retrieves a record by ID. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*core.Distillation, error)

	// Update replaces an existing record wholesale. The record must pass
	// core.Validate. Returns ErrNotFound if it doesn't exist.
	Update(ctx context.Context, d *core.Distillation) error

	// Delete removes a record by ID. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, id string) error

	// List returns all records, active statuses (extracting, distilling,
	// pending) first, then by creation recency within each group.
	List(ctx context.Context) ([]*core.Distillation, error)

	// Search returns records whose title or content contains the query,
	// case-insensitively, in List order.
	Search(ctx context.Context, query string) ([]*core.Distillation, error)

	// UpdateStatus transitions a record to the given status and maintains
	// all dependent fields (timestamps, error message, log append) within
	// one transaction. errMsg is required for StatusError and ignored
	// otherwise. Returns the updated record, or ErrNotFound.
	UpdateStatus(ctx context.Context, id string, status core.Status, errMsg string) (*core.Distillation, error)

	// UpdateContent stores a stage's output and its derived fields within
	// one transaction. Storing FieldContent also completes the record
	// (status, word count, completion timestamp) so the content/completed
	// invariant is never observable half-applied. metadata entries are
	// merged into ExtractionMetadata. Returns the updated record, or
	// ErrNotFound.
	UpdateContent(ctx context.Context, id string, field ContentField, text string, metadata map[string]string) (*core.Distillation, error)

	// SetTitle updates a record's title if the given title is non-empty.
	SetTitle(ctx context.Context, id, title string) error

	// AppendLog appends a timestamped message to a record's processing log.
	AppendLog(ctx context.Context, id, message string) error

	// WithTransaction executes fn within a single storage transaction.
	// If fn returns an error the transaction is rolled back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the repository and releases resources.
	Close() error
}
