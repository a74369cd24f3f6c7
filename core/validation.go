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


package core

import "fmt"

// Validate checks the record invariants. Every persisted record satisfies
// them because the repository's compound mutators validate inside the same
// transaction that writes the record.
func Validate(d *Distillation) error {
	if d == nil {
		return ErrInvalidDistillation
	}
	if d.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDistillation, ErrEmptyID)
	}
	if !d.SourceType.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidDistillation, ErrInvalidSourceType, d.SourceType)
	}
	if !d.Status.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidDistillation, ErrInvalidStatus, d.Status)
	}
	if d.Status == StatusDistilling && d.RawContent == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDistillation, ErrEmptyRawContent)
	}
	if (d.Content != "") != (d.Status == StatusCompleted) {
		return fmt.Errorf("%w: %w", ErrInvalidDistillation, ErrContentStatusMismatch)
	}
	if (d.Error != "") != (d.Status == StatusError) {
		return fmt.Errorf("%w: %w", ErrInvalidDistillation, ErrErrorStatusMismatch)
	}
	if !d.CompletedAt.IsZero() != d.Status.Terminal() {
		return fmt.Errorf("%w: %w", ErrInvalidDistillation, ErrCompletedAtMismatch)
	}
	return nil
}
