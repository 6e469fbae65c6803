package models

// Status describes the lifecycle state of a model identity
type Status string

const (
	StatusNotLoaded Status = "not-loaded"
	StatusLoading   Status = "loading"
	StatusLoaded    Status = "loaded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status ends a load attempt
func (s Status) Terminal() bool {
	return s == StatusLoaded || s == StatusFailed
}

// CanStartLoad reports whether a new load attempt may begin from this status
// Loading is excluded: callers must join the in-flight attempt instead
func (s Status) CanStartLoad() bool {
	return s != StatusLoading
}
