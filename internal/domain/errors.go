package domain

import (
	"errors"
	"fmt"
)

type GenerationErrorKind string

const (
	KindEmptyInput       GenerationErrorKind = "empty_input"
	KindNetworkOrService GenerationErrorKind = "network_or_service_failure"
	KindMalformed        GenerationErrorKind = "malformed_response"
	KindEmptyResult      GenerationErrorKind = "empty_result"
	KindBusy             GenerationErrorKind = "busy"
)

// GenerationError classifies a failed generation. The kind is for logs only;
// users see one localized message.
type GenerationError struct {
	Kind GenerationErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func NewGenerationError(kind GenerationErrorKind, err error) *GenerationError {
	return &GenerationError{Kind: kind, Err: err}
}

var ErrEmptyInput = &GenerationError{Kind: KindEmptyInput}

// KindOf returns the classification of err, or "" when err is not a
// generation failure.
func KindOf(err error) GenerationErrorKind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return ""
}
