// Package errors defines the pipeline error taxonomy and the structured
// error responses rendered by the HTTP layer.
//
// Pipeline stages classify failures into four kinds: configuration errors
// (detected before any I/O), input errors (bad or missing source data),
// data-sufficiency errors (an entity cannot support the requested horizon),
// and artifact errors (a model-version file is missing or unreadable).
// No stage retries; every error propagates to the invoking layer.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindConfig   Kind = "config"
	KindInput    Kind = "input"
	KindData     Kind = "data"
	KindArtifact Kind = "artifact"
)

// PipelineError is a classified error raised by a pipeline stage.
type PipelineError struct {
	Kind Kind
	Op   string // operation that failed, e.g. "features.build"
	Err  error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *PipelineError) Unwrap() error { return e.Err }

// E wraps err with a kind and operation name.
func E(kind Kind, op string, err error) error {
	return &PipelineError{Kind: kind, Op: op, Err: err}
}

// Ef wraps a formatted message with a kind and operation name.
func Ef(kind Kind, op, format string, args ...any) error {
	return &PipelineError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or an empty kind when err was never
// classified by a pipeline stage.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
