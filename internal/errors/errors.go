// Package errors defines the sentinel errors of volimport and helpers to
// classify and wrap them. Callers match with Is; the category checks group
// sentinels by how an import reacts to them.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrVolumeNotFound  = errors.New("volume file not found")

	// Malformed extents. The caller has to fix its input.
	ErrUnsupportedBounds = errors.New("unsupported bounds shape")
	ErrMissingZLevel     = errors.New("z level must be specified for a rectangle")
	ErrDimensionMismatch = errors.New("bounding box dimensionality mismatch")

	ErrInvalidVolume = errors.New("invalid volume description")
	ErrCache         = errors.New("volume cache error")

	// A broken mosaic or tile is skipped; the import goes on.
	ErrInvalidMosaic        = errors.New("invalid mosaic file")
	ErrUnsupportedTransform = errors.New("unsupported transform")
	ErrInvalidTileName      = errors.New("tile name is not a number")
	ErrDuplicateTile        = errors.New("tile imported twice in one level")
	ErrImageProbe           = errors.New("cannot read image size")

	ErrInvalidName    = errors.New("invalid name")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidPolicy  = errors.New("invalid policy")
	ErrInvalidSection = errors.New("invalid section number")
)

var (
	Is  = errors.Is
	As  = errors.As
	New = errors.New
)

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err names something that does not exist.
func IsNotFound(err error) bool {
	return isAny(err, ErrNotFound, ErrDatasetNotFound, ErrVolumeNotFound)
}

// IsValidation reports whether err rejects user input or configuration.
func IsValidation(err error) bool {
	return isAny(err, ErrInvalidName, ErrInvalidConfig, ErrMissingField, ErrInvalidPolicy, ErrInvalidSection)
}

// IsInputShape reports whether err rejects the shape of an extent.
func IsInputShape(err error) bool {
	return isAny(err, ErrUnsupportedBounds, ErrMissingZLevel, ErrDimensionMismatch)
}

// IsSkippable reports whether err invalidates only one mosaic or tile.
func IsSkippable(err error) bool {
	return isAny(err, ErrInvalidMosaic, ErrUnsupportedTransform, ErrInvalidTileName, ErrDuplicateTile, ErrImageProbe)
}

// Wrapf prefixes err with a formatted message. It returns nil for a nil err.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewNotFound reports that the entity named id is missing. kind is the
// sentinel to match, such as ErrDatasetNotFound.
func NewNotFound(kind error, id string) error {
	return fmt.Errorf("%w: %s", kind, id)
}

// NewValidation rejects the value of a config field.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField reports an empty required field.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue rejects value of field for reason.
func NewInvalidValue(field string, value any, reason string) error {
	return fmt.Errorf("invalid %s %q: %s: %w", field, fmt.Sprint(value), reason, ErrInvalidConfig)
}

// =============================================================================
// Validation Errors
// =============================================================================

// ValidationErrors collects every problem found in one validation pass.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors returns an empty collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add records err unless it is nil.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField records a NewValidation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Add(NewValidation(field, reason))
}

// AddMissing records a NewMissingField error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Add(NewMissingField(field))
}

func (v *ValidationErrors) Error() string {
	switch len(v.Errors) {
	case 0:
		return ""
	case 1:
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns v, or nil when nothing was collected.
func (v *ValidationErrors) Err() error {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap exposes the collected errors to Is and As.
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
