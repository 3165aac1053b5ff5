package domain

import "errors"

var (
	ErrCharacterNotFound  = errors.New("character not found")
	ErrPersistenceFailure = errors.New("character state could not be saved")
	ErrInvalidCommand     = errors.New("invalid command")
	// ErrStaleState is returned by a store when the revision read for
	// mutation no longer matches the stored one.
	ErrStaleState = errors.New("stale character state")
)
