// Package ingest contains the distillation lifecycle: the Ingestor that
// validates and classifies submissions into pending records, and the
// Orchestrator that drives each record through extraction and distillation
// under a bounded worker pool.
//
// Every stage transition is persisted before the next stage starts; the
// in-memory queue owns only dispatch order, never content, so an abrupt
// restart loses queued-but-undispatched work without corrupting any
// persisted record. Cancellation is cooperative: a per-id stop flag is
// consulted at checkpoints between adapter calls and never interrupts an
// in-flight call; a stop takes effect when the current call returns.
package ingest
