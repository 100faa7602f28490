package catalogparser

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySource is returned when the dataset has no header row.
	ErrEmptySource = errors.New("dataset is empty")
	// ErrMissingColumns is returned when a required column is absent from the header.
	ErrMissingColumns = errors.New("missing required columns")
)

// DataLoadError reports that a catalog could not be built from its source.
// No partial catalog is ever returned alongside it.
type DataLoadError struct {
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("failed to load drug dataset: %v", e.Err)
	}
	return fmt.Sprintf("failed to load drug dataset %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned by lookups for a label that is not in the catalog.
type NotFoundError struct {
	Label string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no catalog entry with label %q", e.Label)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsDataLoad reports whether err is, or wraps, a DataLoadError.
func IsDataLoad(err error) bool {
	var dl *DataLoadError
	return errors.As(err, &dl)
}
