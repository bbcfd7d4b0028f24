package domain

import "time"

// RejectionLogEntry records why a candidate was excluded during ingestion.
// Entries are append-only and never mutated after being written.
type RejectionLogEntry struct {
	SourceURL string
	Keyword   string
	Reason    string
	At        time.Time
}
