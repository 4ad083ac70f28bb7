// Package apperrors tags errors with a kind so callers can decide whether a
// failure is worth retrying, is a hard split/structure problem, or came from
// the upstream completion API.
package apperrors

import (
	"errors"
	"strings"
)

type Kind string

const (
	// Upstream completion client failures.
	KindTransient  Kind = "transient"
	KindRateLimit  Kind = "rate_limit"
	KindAuth       Kind = "auth"
	KindBadRequest Kind = "bad_request"

	// Core pipeline failures.
	KindSplit      Kind = "split"
	KindMissingEnv Kind = "missing_environment"
	KindValidation Kind = "validation"
)

type Error struct {
	Kind Kind
	// SafeMessage is intended for user-facing output and logs.
	SafeMessage string
	// Cause keeps the original internal error for troubleshooting.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindTransient:
		return "Temporary upstream error. Please try again."
	case KindRateLimit:
		return "Rate limit exceeded. Please try again later."
	case KindAuth:
		return "Authentication failed. Please verify your API key and permissions."
	case KindBadRequest:
		return "Request rejected by upstream API."
	case KindSplit:
		return "Text cannot be split within the configured token budget."
	case KindMissingEnv:
		return "The main source has no document environment to translate."
	case KindValidation:
		return "Response validation failed."
	default:
		return "Request failed."
	}
}

func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = defaultSafeMessage(kind)
	}
	return &Error{
		Kind:        kind,
		SafeMessage: msg,
		Cause:       cause,
	}
}

func Transient(err error) error {
	return New(KindTransient, "", err)
}

func RateLimit(err error) error {
	return New(KindRateLimit, "", err)
}

func Auth(err error) error {
	return New(KindAuth, "", err)
}

func BadRequest(err error) error {
	return New(KindBadRequest, "", err)
}

func Split(err error) error {
	return New(KindSplit, "", err)
}

func MissingEnv(err error) error {
	return New(KindMissingEnv, "", err)
}

func Validation(err error) error {
	return New(KindValidation, "", err)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

// IsCompletion reports whether err originated at the completion client
// boundary (as opposed to the splitter or document structure checks).
func IsCompletion(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case KindTransient, KindRateLimit, KindAuth, KindBadRequest:
		return true
	}
	return false
}

// IsRetryable reports whether err is worth retrying after a wait.
func IsRetryable(err error) bool {
	kind, ok := KindOf(err)
	return ok && (kind == KindTransient || kind == KindRateLimit)
}

func IsRateLimit(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindRateLimit
}
