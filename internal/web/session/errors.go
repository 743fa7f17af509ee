package session

import "errors"

var (
	// ErrNotFound is returned for a session id that is not in the storage.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned for a session past its idle or absolute expiry.
	ErrExpired = errors.New("session expired")

	// ErrUnknownStorage is returned by NewStorage for an unsupported backend name.
	ErrUnknownStorage = errors.New("unknown session storage")

	// ErrStorageUnavailable is returned when a storage backend can not be opened.
	ErrStorageUnavailable = errors.New("session storage unavailable")
)
