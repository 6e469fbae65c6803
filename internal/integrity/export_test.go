package integrity

import "time"

// SetDebounceForTest lets external test packages shorten the watcher's
// debounce interval.
func (tw *TamperWatcher) SetDebounceForTest(d time.Duration) {
	tw.debounceDur = d
}
