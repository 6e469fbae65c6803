package models

import "time"

// FeedbackEntry is one labeled interaction used for incremental updates
type FeedbackEntry struct {
	Input     string    `json:"input"`
	Expected  string    `json:"expected"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateResult records the outcome of an incremental training pass
type UpdateResult struct {
	PassID     string        `json:"pass_id"`
	Identity   Identity      `json:"identity"`
	EntryCount int           `json:"entry_count"`
	Duration   time.Duration `json:"duration"`
	Err        string        `json:"error,omitempty"`
}

// Succeeded reports whether the pass produced a new installed artifact
func (r UpdateResult) Succeeded() bool {
	return r.Err == ""
}
