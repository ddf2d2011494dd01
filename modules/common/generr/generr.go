// Package generr defines the shared error taxonomy for the cover-image
// pipeline. Every provider adapter maps its own transport/API errors into one
// of these codes so the orchestrator never has to branch on provider identity.
package generr

import (
	"errors"
	"fmt"
)

// Code identifies a failure class in the generation pipeline.
type Code string

const (
	// CodeTimeout - a provider or download exceeded its deadline.
	CodeTimeout Code = "timeout"
	// CodeSafetyBlock - the provider refused the prompt on content-policy
	// grounds. The only code that escalates the prompt ladder.
	CodeSafetyBlock Code = "provider_safety_block"
	// CodeInvalidResponse - malformed or empty provider payload.
	CodeInvalidResponse Code = "provider_invalid_response"
	// CodeSourceQuality - source or generated image failed the quality gate
	// (too small, too old, corrupt).
	CodeSourceQuality Code = "source_quality_rejected"
	// CodeNoSource - the article carries no usable source image.
	CodeNoSource Code = "no_source_available"
	// CodeFilesystem - permission, lock or space problem in the media store.
	CodeFilesystem Code = "filesystem_error"
	// CodeConfigMissing - a required credential or setting is absent.
	CodeConfigMissing Code = "configuration_missing"
	// CodeConcurrency - the tenant batch lock is already held.
	CodeConcurrency Code = "concurrency_rejected"
)

// Error is the typed pipeline error. Provider is optional and only set by
// adapters.
type Error struct {
	Code     Code
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Code, e.Provider, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New - build a pipeline error without a cause.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap - build a pipeline error around an underlying cause.
func Wrap(code Code, provider string, err error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Provider: provider, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf - extract the taxonomy code, empty when err is not a pipeline error.
func CodeOf(err error) Code {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// Is allows errors.Is comparisons against a bare code via Sentinel.
func (e *Error) Is(target error) bool {
	var ge *Error
	if errors.As(target, &ge) {
		return ge.Code == e.Code
	}
	return false
}

// Sentinel - a comparable zero-message error for a code, usable with errors.Is.
func Sentinel(code Code) error {
	return &Error{Code: code}
}

// Escalates reports whether the ladder should move to the next prompt rung.
// Per-provider retry semantics collapse into the code each adapter assigns;
// only a content-safety refusal escalates, everything else aborts the ladder.
func Escalates(err error) bool {
	return CodeOf(err) == CodeSafetyBlock
}

// IsUserFacing reports whether the error must reach the caller unmodified.
// These failures need user action (pick a different source, fix credentials)
// and are never masked behind a placeholder.
func IsUserFacing(err error) bool {
	switch CodeOf(err) {
	case CodeSourceQuality, CodeNoSource, CodeConfigMissing:
		return true
	}
	return false
}

// IsTimeout - convenience check for the timeout code.
func IsTimeout(err error) bool {
	return CodeOf(err) == CodeTimeout
}
