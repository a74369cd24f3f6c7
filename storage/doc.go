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


// Package storage provides the storage abstraction layer for distillery.
//
// It defines the DistillationRepository interface that decouples the
// orchestrator from the storage engine, so backends (BadgerDB, in-memory for
// tests) are interchangeable. The repository is the source of truth for
// record state: every mutator completes durably before the orchestrator
// proceeds to the next stage, and the compound mutators (UpdateStatus,
// UpdateContent) maintain all dependent fields inside one transaction so no
// reader ever observes an invariant-violating record.
//
// Create a repository instance:
//
//	repo, err := badger.NewDistillationRepository(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// Use in tests with in-memory storage:
//
//	repo, backend, err := badger.NewMemoryRepository()
//
// All implementations must be thread-safe and support concurrent access.
// All methods accept context.Context; pass context.Background() for
// operations without specific timeout requirements.
package storage
