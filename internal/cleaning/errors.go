package cleaning

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes step failures. Every kind is fatal to the run.
type ErrorKind string

const (
	// KindConfig indicates invalid parameters or a failure to record them.
	KindConfig ErrorKind = "config"

	// KindResolve indicates the input artifact could not be resolved or
	// downloaded.
	KindResolve ErrorKind = "resolve"

	// KindParse indicates the downloaded payload is not a usable table.
	KindParse ErrorKind = "parse"

	// KindSave indicates the cleaned table could not be written locally.
	KindSave ErrorKind = "save"

	// KindPublish indicates the output artifact could not be published.
	KindPublish ErrorKind = "publish"
)

// StepError is a failure of the cleaning step.
type StepError struct {
	Kind ErrorKind

	// Ref is the artifact reference or name involved, if any.
	Ref string

	Err error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s %s: %v", e.Kind, e.Ref, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepError(kind ErrorKind, ref string, err error) *StepError {
	return &StepError{Kind: kind, Ref: ref, Err: err}
}

// KindOf returns the kind of a step error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsResolutionError reports whether the input artifact could not be resolved.
func IsResolutionError(err error) bool {
	return KindOf(err) == KindResolve
}

// IsParseError reports whether the input payload could not be parsed.
func IsParseError(err error) bool {
	return KindOf(err) == KindParse
}

// IsPublishError reports whether the output artifact could not be published.
func IsPublishError(err error) bool {
	return KindOf(err) == KindPublish
}
