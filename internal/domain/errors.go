package domain

import "errors"

var (
	// ErrNotFound is returned when an operation targets an unknown account identifier
	ErrNotFound = errors.New("deposit account not found")

	// ErrDuplicateAccount is returned when creating an identifier the collection already holds
	ErrDuplicateAccount = errors.New("deposit account already exists")

	// ErrRemoteFailure covers any transport or store level failure
	ErrRemoteFailure = errors.New("remote store failure")

	// ErrRateFetchFailure is returned when the rate service is unreachable or unparsable
	ErrRateFetchFailure = errors.New("exchange rate fetch failure")

	// ErrInvalidDeposit is returned when an account or history record breaks a domain rule
	ErrInvalidDeposit = errors.New("invalid deposit")

	// ErrInvalidSort is returned for an unknown sort key or direction
	ErrInvalidSort = errors.New("invalid sort request")
)
