package badges

import "errors"

// retryableError marks a Fetcher failure (429 or 5xx, or a transient
// network error) as safe to retry with backoff. Any other error from
// Fetch — including ErrUpstreamNotFound — is terminal.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable wraps err so Resolver's retry loop treats it as transient.
func Retryable(err error) error {
	return &retryableError{err: err}
}

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
