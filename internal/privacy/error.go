package privacy

// SanitizedError keeps the original error for errors.Is and errors.As while
// Error returns the scrubbed message.
type SanitizedError struct {
	original     error
	sanitizedMsg string
}

// Error returns the sanitized error message, safe for logging.
func (e *SanitizedError) Error() string {
	return e.sanitizedMsg
}

// Unwrap returns the original error.
func (e *SanitizedError) Unwrap() error {
	return e.original
}

// WrapError scrubs the message of err. A nil err returns nil.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &SanitizedError{
		original:     err,
		sanitizedMsg: ScrubMessage(err.Error()),
	}
}
