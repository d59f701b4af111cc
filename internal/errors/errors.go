package errors

import (
	"errors"
)

// Common error types
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// Moderation policy errors
var (
	ErrProtectedTarget    = errors.New("target is protected")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrInvalidDuration    = errors.New("invalid duration")
	ErrMalformedArguments = errors.New("malformed arguments")
)

// ErrStorage marks a storage failure that survived the retry policy.
var ErrStorage = errors.New("database error")

// IsDomain reports whether err carries one of the policy or lookup errors
// that are answered to the user instead of being treated as failures.
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrUnauthorized,
		ErrProtectedTarget,
		ErrDuplicateKey,
		ErrInvalidDuration,
		ErrNotFound,
		ErrMalformedArguments,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
