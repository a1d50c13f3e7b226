package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataFormat marks malformed input data: a bad temperature range, a
	// missing column or a non-numeric target.
	ErrDataFormat = errors.New("data format error")

	// ErrUnknownCategory marks an encoder lookup outside the fitted vocabulary.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrArtifactNotFound marks a request for an artifact that has not been
	// produced yet.
	ErrArtifactNotFound = errors.New("artifact not found")
)

// DataFormatError describes which field and value failed to parse.
type DataFormatError struct {
	Field  string
	Value  string
	Reason string
}

func (e *DataFormatError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *DataFormatError) Unwrap() error { return ErrDataFormat }

// UnknownCategoryError is returned when an encoder is asked for a value it was
// not fitted on. It is never mapped to a default code.
type UnknownCategoryError struct {
	Field string
	Value string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown %s category %q", e.Field, e.Value)
}

func (e *UnknownCategoryError) Unwrap() error { return ErrUnknownCategory }

// ArtifactNotFoundError names the artifact a consumer asked for.
type ArtifactNotFoundError struct {
	Name string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("artifact %q not found: train the model first", e.Name)
}

func (e *ArtifactNotFoundError) Unwrap() error { return ErrArtifactNotFound }
