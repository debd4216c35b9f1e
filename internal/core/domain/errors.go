package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrSourceInactive indicates the source is deactivated and must not be synced
	ErrSourceInactive = errors.New("source is inactive")

	// ErrUnknownSourceKind indicates the source kind has no registered strategy
	ErrUnknownSourceKind = errors.New("unknown source kind")

	// ErrMissingCredential indicates a required credential/token is absent;
	// callers fail fast without attempting any remote call
	ErrMissingCredential = errors.New("missing credential")

	// ErrRunInProgress indicates another scheduler pass holds the run lock
	ErrRunInProgress = errors.New("sync run already in progress")
)
