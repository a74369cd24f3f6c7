package ai

import "context"

// Distiller condenses raw extracted text into a distilled artifact.
// Implementations must be thread-safe for concurrent use.
type Distiller interface {
	// Distill sends rawText to the configured model and returns the
	// condensed result. The config is explicit per call; implementations
	// must not consult ambient provider state. Returns an error for
	// bad/missing credentials, provider HTTP failures, timeouts, and empty
	// model output. The caller persists the error message verbatim and
	// never auto-retries.
	Distill(ctx context.Context, rawText string, cfg *Config) (string, error)
}
