package domain

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoData is returned when a data source has nothing to report,
	// for example an empty candle history or an oracle with no price
	// for the requested instant.
	ErrNoData = errors.New("no data")

	// ErrLockHeld is returned when a distributed lock is already owned
	// by another process.
	ErrLockHeld = errors.New("lock already held")

	// ErrAlreadyResolved is returned when resolving a prediction whose
	// outcome has already been recorded.
	ErrAlreadyResolved = errors.New("prediction already resolved")

	// ErrInvalidInput is returned for malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
)
