package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindTransient       ErrorKind = "Transient"
	KindPermanent       ErrorKind = "Permanent"
	KindContentRejected ErrorKind = "ContentRejected"
	KindEmptyGeneration ErrorKind = "EmptyGeneration"
	KindEncodingError   ErrorKind = "EncodingError"
	KindRetryExhausted  ErrorKind = "RetryExhausted"
	KindCancelled       ErrorKind = "Cancelled"
)

// ClassifiedError attaches an ErrorKind to a collaborator failure. Stages
// classify before returning, so the retry layer and the orchestrator only
// ever inspect the kind.
type ClassifiedError struct {
	Kind ErrorKind
	Err  error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

func classify(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Kind: kind, Err: err}
}

func Transient(err error) error       { return classify(KindTransient, err) }
func Permanent(err error) error       { return classify(KindPermanent, err) }
func ContentRejected(err error) error { return classify(KindContentRejected, err) }
func EmptyGeneration(err error) error { return classify(KindEmptyGeneration, err) }
func Encoding(err error) error        { return classify(KindEncodingError, err) }
func Cancelled(err error) error       { return classify(KindCancelled, err) }

// RetryExhaustedError reports that every attempt failed transiently. The last
// underlying error is preserved for diagnostics.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Last
}

// KindOf resolves the taxonomy kind of err. Unclassified errors are treated
// as permanent: retrying an unknown failure is never safe.
func KindOf(err error) ErrorKind {
	var exhausted *RetryExhaustedError
	if errors.As(err, &exhausted) {
		return KindRetryExhausted
	}
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindPermanent
}

func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
