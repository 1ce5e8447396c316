package ir

// Version constants for the event format and engine.
const (
	// EventVersion is the event payload schema version. Bump together with
	// the Domain* hash prefixes.
	EventVersion = "1"

	// EngineVersion is the tokensale engine version.
	EngineVersion = "0.1.0"
)
