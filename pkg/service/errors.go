package service

import "errors"

var (
	// ErrConcurrentModification indicates that another writer touched the user's
	// record (or holds its lock) between load and commit.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrUnknownIntervention indicates feedback for an intervention the user was never shown.
	ErrUnknownIntervention = errors.New("no attempt record for intervention")
)
