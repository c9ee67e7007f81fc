// Package errors classifies AWS SDK failures into categories the callers of
// the live collaborators can act on.
package errors

import (
	goerrors "errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// NotFoundError indicates the requested entity does not exist; callers
// should treat this as a configuration problem, not retry.
type NotFoundError struct{ Cause error }

func (e *NotFoundError) Error() string { return fmt.Sprintf("not found: %v", e.Cause) }
func (e *NotFoundError) Unwrap() error { return e.Cause }

// RetryableError indicates the request may succeed on retry with backoff.
type RetryableError struct{ Cause error }

func (e *RetryableError) Error() string { return fmt.Sprintf("retryable: %v", e.Cause) }
func (e *RetryableError) Unwrap() error { return e.Cause }

// OpError is a generic wrapper for unexpected failures.
type OpError struct{ Cause error }

func (e *OpError) Error() string { return fmt.Sprintf("op error: %v", e.Cause) }
func (e *OpError) Unwrap() error { return e.Cause }

// Classify maps smithy errors to the categories above. SSO Admin and
// Organizations throttle aggressively, so throttling codes from either
// service land in RetryableError.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var api smithy.APIError
	if goerrors.As(err, &api) {
		switch api.ErrorCode() {
		case "ResourceNotFoundException", "NoSuchEntity", "AccountNotFoundException":
			return &NotFoundError{Cause: err}
		case "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded", "ConflictException":
			return &RetryableError{Cause: err}
		}
	}
	return &OpError{Cause: err}
}
