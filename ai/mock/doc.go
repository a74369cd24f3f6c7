// Package mock provides test doubles for the ai package, so orchestration
// logic can be tested without a running model service. Behavior is injected
// through function fields and observed through call counters.
package mock
