package jsonedit

import (
	"log/slog"
	"time"
)

// Config controls how a Session writes documents.
type Config struct {
	// Indent is used when serializing the committed document. Empty means compact.
	Indent string

	// PreserveKeyOrder applies commits as a structural patch on the document
	// text instead of re-encoding the decoded tree, which would sort keys.
	PreserveKeyOrder bool

	// RecomputeTimeout bounds the recomputation window after a commit. Zero
	// waits for an explicit Session.Recomputed call.
	RecomputeTimeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns a two-space, order-preserving configuration with
// logging disabled.
func DefaultConfig() Config {
	return Config{
		Indent:           canonicalIndent,
		PreserveKeyOrder: true,
		Logger:           slog.New(slog.DiscardHandler),
	}
}
