package core

// Error codes for domain errors.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeUnsupportedVersion = "unsupported_version"
	ErrCodeRateLimited        = "rate_limited"
	ErrCodeSelfMessage        = "self_message"
	ErrCodeEmptyBody          = "empty_body"
	ErrCodeBodyTooLong        = "body_too_long"
	ErrCodeUnknownRecipient   = "unknown_recipient"
	ErrCodeItemNotFound       = "item_not_found"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// NewError builds a CoreError.
func NewError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
