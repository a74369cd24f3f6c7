package core

import (
	"fmt"
	"time"
)

var zeroTime time.Time

func nowUTC() time.Time { return time.Now().UTC() }

// transitions is the lifecycle state machine. The terminal→active edges are
// the retry paths: a retried record re-enters distilling when usable raw
// content survived, or extracting when only the source reference did.
var transitions = map[Status][]Status{
	StatusPending:    {StatusExtracting},
	StatusExtracting: {StatusDistilling, StatusError, StatusStopped},
	StatusDistilling: {StatusCompleted, StatusError, StatusStopped},
	StatusCompleted:  {StatusExtracting, StatusDistilling},
	StatusError:      {StatusExtracting, StatusDistilling},
	StatusStopped:    {StatusExtracting, StatusDistilling},
}

// CanTransition reports whether the state machine permits moving a record
// from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves d to the given status, maintaining the dependent fields
// (timestamps, error, stale stage output) so that Validate holds on the
// result. Callers populate RawContent/Content before transitioning into the
// status that requires them.
func Transition(d *Distillation, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if !CanTransition(d.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, to)
	}

	now := nowUTC()
	switch to {
	case StatusExtracting:
		d.StartTime = now
		d.CompletedAt = zeroTime
		d.Error = ""
		d.Content = ""
		d.WordCount = 0
	case StatusDistilling:
		if d.RawContent == "" {
			return ErrEmptyRawContent
		}
		d.DistillingStartTime = now
		if d.Status.Terminal() {
			// Retry straight into distilling: the record never re-enters
			// extracting, so clear the previous outcome here.
			d.CompletedAt = zeroTime
			d.Error = ""
			d.Content = ""
			d.WordCount = 0
		}
	case StatusCompleted, StatusError, StatusStopped:
		d.CompletedAt = now
	}
	d.Status = to
	return nil
}
