package core

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// SourceType classifies where a distillation's raw material comes from.
type SourceType string

const (
	SourceTypeURL      SourceType = "url"
	SourceTypeYouTube  SourceType = "youtube"
	SourceTypePlaylist SourceType = "playlist"
	SourceTypeFile     SourceType = "file"
	SourceTypeText     SourceType = "text"
)

// Valid reports whether t is one of the known source types.
func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeURL, SourceTypeYouTube, SourceTypePlaylist, SourceTypeFile, SourceTypeText:
		return true
	}
	return false
}

// Status is the lifecycle state of a distillation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusExtracting Status = "extracting"
	StatusDistilling Status = "distilling"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusStopped    Status = "stopped"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusExtracting, StatusDistilling, StatusCompleted, StatusError, StatusStopped:
		return true
	}
	return false
}

// Terminal reports whether s is a final state. Terminal records stay in
// storage for diagnosis and retry until explicitly deleted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusStopped
}

// Active reports whether s occupies a concurrency slot in the orchestrator.
func (s Status) Active() bool {
	return s == StatusExtracting || s == StatusDistilling
}

// MinRetryableRawContent is the minimum number of characters of raw content
// required for a retry to skip re-extraction and go straight to the
// distilling stage. Shorter raw content is treated as a failed or truncated
// extraction and the retry re-extracts from the source reference instead.
const MinRetryableRawContent = 10

// LogEntry is one line of a distillation's append-only processing log.
type LogEntry struct {
	Time    time.Time
	Message string
}

// Distillation is the persisted record for one source-to-summary job.
// It is created by the ingestor in StatusPending and from then on mutated
// exclusively by the orchestrator through the repository's compound
// mutators, so every persisted combination of fields satisfies Validate.
type Distillation struct {
	ID         string
	Title      string
	SourceType SourceType
	SourceRef  string
	Status     Status

	// RawContent is the extraction stage's output, Content the distilling
	// stage's. Each is persisted before the next stage starts.
	RawContent string
	Content    string

	CreatedAt           time.Time
	StartTime           time.Time // first entered extracting
	DistillingStartTime time.Time
	CompletedAt         time.Time // set on reaching any terminal status

	WordCount int
	Error     string // non-empty iff Status == StatusError

	ExtractionMetadata map[string]string
	Logs               []LogEntry
}

// NewID returns an opaque unique record identifier.
func NewID() string {
	return uuid.NewString()
}

// ElapsedTime is the wall time the record has spent processing. It is
// always derived from the persisted timestamps, never stored.
func (d *Distillation) ElapsedTime() time.Duration {
	if d.StartTime.IsZero() {
		return 0
	}
	end := d.CompletedAt
	if end.IsZero() {
		end = time.Now().UTC()
	}
	return end.Sub(d.StartTime)
}

// AppendLog appends a timestamped message to the record's processing log.
func (d *Distillation) AppendLog(message string) {
	d.Logs = append(d.Logs, LogEntry{Time: time.Now().UTC(), Message: message})
}

// CountWords counts whitespace-separated words, for display only.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// Fingerprint returns a short BLAKE2b checksum of text, recorded alongside
// extraction results so non-idempotent re-extractions can be told apart.
func Fingerprint(text string) string {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
