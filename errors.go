package replica

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrUnknownType indicates a type id or Go type has no registered descriptor.
	ErrUnknownType = errors.New("unknown type")

	// ErrCorruptData indicates the input buffer is truncated or malformed.
	ErrCorruptData = errors.New("corrupt data")

	// ErrOversizedField indicates a field is too large for its length prefix.
	ErrOversizedField = errors.New("oversized field")

	// ErrDuplicateType indicates a type id or Go type was registered twice.
	ErrDuplicateType = errors.New("duplicate type")

	// ErrInvalidType indicates a type descriptor is incomplete or malformed.
	ErrInvalidType = errors.New("invalid type")

	// ErrInvalidField indicates a field descriptor cannot be built for its Go type.
	ErrInvalidField = errors.New("invalid field")

	// ErrTypeMismatch indicates a decoded object cannot be stored in the field it was read for.
	ErrTypeMismatch = errors.New("type mismatch")
)

// TypeError represents a registry or descriptor error.
// It wraps a sentinel error with the type id and name involved.
type TypeError struct {
	Err  error  // Underlying sentinel error (ErrUnknownType, ErrDuplicateType, ...)
	ID   TypeID // Type id, zero if not known
	Name string // Type name or Go type, empty if not known
}

func (e *TypeError) Error() string {
	if e.Name != "" && e.ID != NullTypeID {
		return fmt.Sprintf("%s %q (id %d)", e.Err.Error(), e.Name, e.ID)
	}
	if e.Name != "" {
		return fmt.Sprintf("%s %q", e.Err.Error(), e.Name)
	}
	if e.ID != NullTypeID {
		return fmt.Sprintf("%s (id %d)", e.Err.Error(), e.ID)
	}
	return e.Err.Error()
}

func (e *TypeError) Unwrap() error {
	return e.Err
}

// FieldError represents a failure while processing a single field.
// Index is -1 for scalar fields.
type FieldError struct {
	Op    string // encode, decode, gather, restore
	Type  string // Declaring type name
	Field string // Field name
	Index int    // Array index or -1
	Err   error  // Cause; unwraps to a sentinel
}

func (e *FieldError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s %s.%s[%d]: %v", e.Op, e.Type, e.Field, e.Index, e.Err)
	}
	return fmt.Sprintf("%s %s.%s: %v", e.Op, e.Type, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// DataError represents a wire format violation at a byte offset.
type DataError struct {
	Err    error // Underlying sentinel error (ErrCorruptData, ErrOversizedField)
	Offset int   // Byte offset into the buffer
	Cause  error // Optional underlying error, e.g. from a value codec
}

func (e *DataError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s at offset %d: %v", e.Err.Error(), e.Offset, e.Cause)
	}
	return fmt.Sprintf("%s at offset %d", e.Err.Error(), e.Offset)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// newTypeError creates a TypeError for registry and descriptor failures.
func newTypeError(sentinel error, id TypeID, name string) error {
	return &TypeError{
		Err:  sentinel,
		ID:   id,
		Name: name,
	}
}

// newFieldError attaches field context to a failure.
func newFieldError(op string, t *Type, f *Field, index int, err error) error {
	return &FieldError{
		Op:    op,
		Type:  t.name,
		Field: f.name,
		Index: index,
		Err:   err,
	}
}

// newDataError creates a DataError for wire format failures.
func newDataError(sentinel error, offset int, cause error) error {
	return &DataError{
		Err:    sentinel,
		Offset: offset,
		Cause:  cause,
	}
}
