package store

import "errors"

var (
	// ErrPoolNotFound indicates no snapshot is stored under the id.
	ErrPoolNotFound = errors.New("store: pool not found")

	// ErrNilParam indicates a required argument was nil.
	ErrNilParam = errors.New("store: nil parameter")

	// ErrCorruptRecord indicates a stored value could not be decoded.
	ErrCorruptRecord = errors.New("store: corrupt record")
)
