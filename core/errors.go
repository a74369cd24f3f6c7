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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDistillation indicates a Distillation failed validation.
	ErrInvalidDistillation = errors.New("invalid distillation")

	// ErrInvalidTransition indicates a status change not permitted by the
	// lifecycle state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidStatus indicates an unknown Status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidSourceType indicates an unknown SourceType value.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrEmptyID indicates the ID field is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEmptyRawContent indicates a record entered distilling without raw content.
	ErrEmptyRawContent = errors.New("raw content cannot be empty before distilling")

	// ErrContentStatusMismatch indicates Content is populated on a
	// non-completed record, or empty on a completed one.
	ErrContentStatusMismatch = errors.New("content must be non-empty exactly when status is completed")

	// ErrErrorStatusMismatch indicates Error is populated on a non-error
	// record, or empty on an error one.
	ErrErrorStatusMismatch = errors.New("error must be non-empty exactly when status is error")

	// ErrCompletedAtMismatch indicates CompletedAt is set on a non-terminal
	// record, or missing on a terminal one.
	ErrCompletedAtMismatch = errors.New("completedAt must be set exactly when status is terminal")
)
