package backend

import (
	"errors"
	"fmt"
)

// Category classifies why a backend call did not produce a usable verdict.
type Category string

const (
	// CategoryRejected means the backend answered with a non-2xx status.
	CategoryRejected Category = "rejected"

	// CategoryUnreachable means no complete response was received.
	CategoryUnreachable Category = "unreachable"

	// CategoryTimeout means the call deadline elapsed before a response arrived.
	CategoryTimeout Category = "timeout"

	// CategoryCanceled means the caller abandoned the request.
	CategoryCanceled Category = "canceled"

	// CategoryContract means the backend answered 2xx with a body that is not JSON.
	CategoryContract Category = "contract_violation"

	// CategoryEncoding means the outbound payload could not be assembled.
	CategoryEncoding Category = "encoding"
)

// Error wraps backend failures with a category, and for answered calls the
// status code and raw body.
type Error struct {
	Category   Category
	StatusCode int
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("backend [%s] status %d: %v", e.Category, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("backend [%s] status %d", e.Category, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("backend [%s]: %v", e.Category, e.Err)
	default:
		return fmt.Sprintf("backend [%s]", e.Category)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CountsAsOutage reports whether the failure says something about backend
// availability, as opposed to a backend that answered.
func (e *Error) CountsAsOutage() bool {
	return e.Category == CategoryUnreachable || e.Category == CategoryTimeout
}

// GetCategory extracts the category from an error chain, or "" when err is
// not a backend error.
func GetCategory(err error) Category {
	var be *Error
	if errors.As(err, &be) {
		return be.Category
	}
	return ""
}
