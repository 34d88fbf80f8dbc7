// Package awserr centralizes the error sentinels and wrapper types shared
// across the signing, credential, and transport layers, in the style of
// sentinel values plus a small wrapper struct implementing Unwrap for
// errors.Is/errors.As dispatch.
package awserr

import (
	"errors"
	"fmt"
)

// Request construction / streaming errors.
var (
	// ErrInvalidURL indicates a URL the signer could not parse a scheme
	// or host out of.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrBodyLengthMismatch indicates a declared body length did not
	// match the bytes actually produced.
	ErrBodyLengthMismatch = errors.New("body length mismatch")

	// ErrNotEnoughData indicates a stream ended before its declared
	// length was reached.
	ErrNotEnoughData = errors.New("not enough data")

	// ErrTooMuchData indicates a stream produced more bytes than its
	// declared length promised.
	ErrTooMuchData = errors.New("too much data")
)

// Credential chain errors.
var (
	// ErrNoProvider indicates a provider has nothing to offer and the
	// chain selector should advance to the next candidate.
	ErrNoProvider = errors.New("no credential provider available")

	// ErrTokenIdFileFailedToLoad indicates AWS_WEB_IDENTITY_TOKEN_FILE
	// could not be read.
	ErrTokenIdFileFailedToLoad = errors.New("web identity token file failed to load")

	// ErrNotSupported indicates a provider operation the source does not
	// implement (e.g. a provider without a refresh path).
	ErrNotSupported = errors.New("not supported")
)

// InternalError represents an invariant violation that must fail
// loudly rather than spin or panic silently, as the SigV4a counter-loop
// bound requires.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal error: " + e.Msg }

// Wrapped adds context to err without discarding errors.Is/As access to
// the original sentinel, mirroring domain.DomainError.
type Wrapped struct {
	Err     error
	Message string
}

func (e *Wrapped) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
}

func (e *Wrapped) Unwrap() error { return e.Err }

// Wrap attaches message to err, leaving nil untouched and avoiding double
// wrapping of an already-Wrapped error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var w *Wrapped
	if errors.As(err, &w) {
		return err
	}
	return &Wrapped{Err: err, Message: message}
}
