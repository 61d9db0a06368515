package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies completion failures at the client boundary so the
// retry policy does not have to sniff message strings.
type ErrorKind int

const (
	// KindTransient covers transport and provider errors that may clear
	// on retry.
	KindTransient ErrorKind = iota
	// KindRateLimited marks quota/rate-limit rejections from the provider.
	KindRateLimited
	// KindInvalidResponse marks malformed or incomplete model output.
	// Never retried.
	KindInvalidResponse
)

// Error wraps a completion failure with its classification.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRateLimited:
		return fmt.Sprintf("rate limited: %v", e.Err)
	case KindInvalidResponse:
		return fmt.Sprintf("invalid response: %v", e.Err)
	default:
		return fmt.Sprintf("transient: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Kind extracts the classification of err, defaulting to KindTransient
// for errors that did not pass through the client boundary.
func Kind(err error) ErrorKind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindTransient
}

// IsRetryable reports whether the retry policy should attempt again.
// Rate-limit and transient errors retry identically; validation errors
// are terminal.
func IsRetryable(err error) bool {
	return Kind(err) != KindInvalidResponse
}
