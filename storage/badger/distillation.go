package badger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage"
)

// DistillationRepository implements storage.DistillationRepository for BadgerDB.
type DistillationRepository struct {
	backend *Backend
}

var _ storage.DistillationRepository = (*DistillationRepository)(nil)

// NewDistillationRepository creates a new DistillationRepository.
func NewDistillationRepository(backend *Backend) (*DistillationRepository, error) {
	if backend == nil {
		return nil, storage.ErrStorageClosed
	}
	return &DistillationRepository{backend: backend}, nil
}

// Close is a no-op; the shared backend is closed by its owner.
func (r *DistillationRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DistillationRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// Add stores a new record.
func (r *DistillationRepository) Add(ctx context.Context, d *core.Distillation) error {
	if d != nil && d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if err := core.Validate(d); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDistillationKey(d.ID)
		existing, err := readDistillation(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ErrDuplicateKey
		}
		if err := tx.Set(key, storage.MarshalDistillation(d)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves a record by ID.
func (r *DistillationRepository) Get(ctx context.Context, id string) (*core.Distillation, error) {
	var result *core.Distillation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDistillation(tx, makeDistillationKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// Update replaces an existing record wholesale.
func (r *DistillationRepository) Update(ctx context.Context, d *core.Distillation) error {
	if err := core.Validate(d); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDistillationKey(d.ID)
		old, err := readDistillation(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}
		if err := tx.Set(key, storage.MarshalDistillation(d)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Delete removes a record by ID.
func (r *DistillationRepository) Delete(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDistillationKey(id)
		old, err := readDistillation(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// statusRank orders statuses for listing: in-flight work first, then queued,
// then terminal records.
func statusRank(s core.Status) int {
	switch {
	case s.Active():
		return 0
	case s == core.StatusPending:
		return 1
	default:
		return 2
	}
}

// List returns all records, active-status-first then by creation recency.
func (r *DistillationRepository) List(ctx context.Context) ([]*core.Distillation, error) {
	records, err := r.scan(func(*core.Distillation) bool { return true })
	if err != nil {
		return nil, err
	}

	slices.SortFunc(records, func(a, b *core.Distillation) int {
		if ra, rb := statusRank(a.Status), statusRank(b.Status); ra != rb {
			return ra - rb
		}
		// Most recent first within a rank.
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return records, nil
}

// Search returns records whose title or content contains the query,
// case-insensitively, in List order.
func (r *DistillationRepository) Search(ctx context.Context, query string) ([]*core.Distillation, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return r.List(ctx)
	}

	records, err := r.scan(func(d *core.Distillation) bool {
		return strings.Contains(strings.ToLower(d.Title), needle) ||
			strings.Contains(strings.ToLower(d.Content), needle)
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(records, func(a, b *core.Distillation) int {
		if ra, rb := statusRank(a.Status), statusRank(b.Status); ra != rb {
			return ra - rb
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return records, nil
}

// UpdateStatus transitions a record and maintains dependent fields in one
// transaction.
func (r *DistillationRepository) UpdateStatus(ctx context.Context, id string, status core.Status, errMsg string) (*core.Distillation, error) {
	var result *core.Distillation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDistillationKey(id)
		d, err := readDistillation(tx, key)
		if err != nil {
			return err
		}
		if d == nil {
			return storage.ErrNotFound
		}

		from := d.Status
		if err := core.Transition(d, status); err != nil {
			return err
		}
		if status == core.StatusError {
			if errMsg == "" {
				errMsg = "unknown error"
			}
			d.Error = errMsg
		}

		d.AppendLog(fmt.Sprintf("status: %s -> %s", from, status))
		if status == core.StatusError {
			d.AppendLog("error: " + errMsg)
		}

		if err := core.Validate(d); err != nil {
			return err
		}
		if err := tx.Set(key, storage.MarshalDistillation(d)); err != nil {
			return err
		}
		result = d
		return tx.Commit()
	}, true)
	return result, err
}

// UpdateContent stores a stage's output and its derived fields in one
// transaction. Storing FieldContent also completes the record (status,
// word count, completion timestamp), so the content/completed invariant is
// never observable half-applied.
func (r *DistillationRepository) UpdateContent(ctx context.Context, id string, field storage.ContentField, text string, metadata map[string]string) (*core.Distillation, error) {
	var result *core.Distillation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDistillationKey(id)
		d, err := readDistillation(tx, key)
		if err != nil {
			return err
		}
		if d == nil {
			return storage.ErrNotFound
		}

		switch field {
		case storage.FieldRawContent:
			d.RawContent = text
			d.AppendLog(fmt.Sprintf("raw content stored (%d chars)", len(text)))
		case storage.FieldContent:
			d.Content = text
			d.WordCount = core.CountWords(text)
			if err := core.Transition(d, core.StatusCompleted); err != nil {
				return err
			}
			d.AppendLog(fmt.Sprintf("distilled content stored (%d words)", d.WordCount))
		default:
			return fmt.Errorf("%w: unknown content field %d", storage.ErrTransactionFailed, field)
		}

		if len(metadata) > 0 {
			if d.ExtractionMetadata == nil {
				d.ExtractionMetadata = make(map[string]string, len(metadata))
			}
			for k, v := range metadata {
				d.ExtractionMetadata[k] = v
			}
		}

		if err := core.Validate(d); err != nil {
			return err
		}
		if err := tx.Set(key, storage.MarshalDistillation(d)); err != nil {
			return err
		}
		result = d
		return tx.Commit()
	}, true)
	return result, err
}

// SetTitle updates a record's title if the given title is non-empty.
func (r *DistillationRepository) SetTitle(ctx context.Context, id, title string) error {
	if strings.TrimSpace(title) == "" {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDistillationKey(id)
		d, err := readDistillation(tx, key)
		if err != nil {
			return err
		}
		if d == nil {
			return storage.ErrNotFound
		}
		d.Title = title
		if err := tx.Set(key, storage.MarshalDistillation(d)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// AppendLog appends a timestamped message to a record's processing log.
func (r *DistillationRepository) AppendLog(ctx context.Context, id, message string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDistillationKey(id)
		d, err := readDistillation(tx, key)
		if err != nil {
			return err
		}
		if d == nil {
			return storage.ErrNotFound
		}
		d.AppendLog(message)
		if err := tx.Set(key, storage.MarshalDistillation(d)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// scan reads every record matching the filter.
func (r *DistillationRepository) scan(match func(*core.Distillation) bool) ([]*core.Distillation, error) {
	var results []*core.Distillation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = distillationKeyPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var d *core.Distillation
			err := iter.Item().Value(func(val []byte) error {
				var err error
				d, err = storage.UnmarshalDistillation(val)
				return err
			})
			if err != nil {
				return err
			}
			if d != nil && match(d) {
				results = append(results, d)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// readDistillation reads a record from the transaction. Returns nil, nil if
// the key is absent.
func readDistillation(tx *badger.Txn, key []byte) (*core.Distillation, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var d *core.Distillation
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		d, unmarshalErr = storage.UnmarshalDistillation(val)
		return unmarshalErr
	})
	return d, err
}
