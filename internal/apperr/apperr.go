// Package apperr defines the failure taxonomy shared by the review pipeline.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is the category of a failure.
type Kind string

const (
	KindFetch      Kind = "FETCH"
	KindValidation Kind = "VALIDATION"
	KindExtractor  Kind = "EXTRACTOR"
	KindInvariant  Kind = "INVARIANT"
	KindNotFound   Kind = "NOT_FOUND"
	KindConflict   Kind = "CONFLICT"
	KindInternal   Kind = "INTERNAL"
)

// Error is a typed failure carrying a user-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Err     error
}

func (e *Error) Error() string {
	var msg string
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		msg += " [" + strings.Join(parts, " ") + "]"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithContext returns a copy of e with an additional context value.
func (e *Error) WithContext(key string, value any) *Error {
	ctx := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &Error{Kind: e.Kind, Message: e.Message, Context: ctx, Err: e.Err}
}

// New creates an Error of the given kind.
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Fetch reports a clone, network or timeout failure while acquiring a repository.
func Fetch(message string, err error) *Error {
	return New(KindFetch, message, err)
}

// Validation reports malformed input rejected before any fetch or analysis.
func Validation(message string) *Error {
	return New(KindValidation, message, nil)
}

// Extractor reports a heuristic failure inside a single extractor.
func Extractor(name string, err error) *Error {
	return New(KindExtractor, fmt.Sprintf("extractor %s failed", name), err).WithContext("extractor", name)
}

// Invariant reports a score outside its budget.
func Invariant(message string) *Error {
	return New(KindInvariant, message, nil)
}

// NotFound reports a missing record.
func NotFound(what, id string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s not found: %s", what, id), nil)
}

// Conflict reports an operation that collides with one already in flight.
func Conflict(message string) *Error {
	return New(KindConflict, message, nil)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// UserMessage renders err as a single sentence suitable for end users.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if !errors.As(err, &ae) {
		return sentence("Review failed: " + err.Error())
	}

	switch ae.Kind {
	case KindFetch:
		msg := "Could not fetch the repository"
		if ae.Err != nil {
			msg += ": " + firstLine(ae.Err.Error())
		}
		return sentence(msg)
	case KindValidation, KindNotFound, KindConflict:
		return sentence(capitalize(ae.Message))
	default:
		return sentence("Review failed: " + ae.Message)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}
