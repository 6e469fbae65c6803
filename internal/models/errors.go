package models

import "errors"

// Sentinel errors for model lifecycle operations.
// Use errors.Is() to check for specific error conditions.
var (
	// ErrNotFound indicates no artifact exists and none could be acquired.
	ErrNotFound = errors.New("modelkeep: model artifact not found")

	// ErrIntegrity indicates signature verification failed even after
	// restoring the bundled artifact.
	ErrIntegrity = errors.New("modelkeep: artifact failed integrity verification")

	// ErrParse indicates the artifact exists but could not be compiled
	// into a runtime handle.
	ErrParse = errors.New("modelkeep: artifact is corrupt or incompatible")

	// ErrPredict indicates an inference-time failure such as a malformed
	// input encoding or a missing output field.
	ErrPredict = errors.New("modelkeep: prediction failed")

	// ErrUpdate indicates an incremental training pass failed.
	// The pre-update model remains authoritative.
	ErrUpdate = errors.New("modelkeep: model update failed")

	// ErrTimeout indicates an operation exceeded its deadline.
	ErrTimeout = errors.New("modelkeep: operation timed out")

	// ErrUnknownIdentity indicates a name outside the fixed identity set.
	ErrUnknownIdentity = errors.New("modelkeep: unknown model identity")

	// ErrStorage indicates a filesystem operation failed.
	ErrStorage = errors.New("modelkeep: storage error")
)
