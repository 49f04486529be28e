// Package errors defines the semantic error kinds reported by the
// emulation. Every kind is surfaced synchronously at the offending call
// and can be checked with the standard errors.Is, either against the
// sentinel or through the helper predicates.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrTableNotFound is returned when an operation names a table that
	// was never created on this data instance.
	ErrTableNotFound = errors.New("table not found")

	// ErrInvalidTableSchema is returned when EnsureTable redefines an
	// existing table with a different key schema.
	ErrInvalidTableSchema = errors.New("invalid table schema")

	// ErrMissingKeyAttribute is returned when a put, delete or update is
	// missing a component of the table's declared key.
	ErrMissingKeyAttribute = errors.New("missing key attribute")

	// ErrAttributeTypeMismatch is returned when an attribute is reused
	// with a kind incompatible with its first-observed kind.
	ErrAttributeTypeMismatch = errors.New("attribute type mismatch")

	// ErrAttributeNotIndexed is returned when a condition references an
	// attribute the table has never seen.
	ErrAttributeNotIndexed = errors.New("attribute not indexed")

	// ErrItemNotFound is returned when an update targets a key with no
	// matching row and upsert-on-update is not enabled.
	ErrItemNotFound = errors.New("item not found")

	// ErrNoSuchElement is returned by Next once an iterator is exhausted.
	ErrNoSuchElement = errors.New("no such element")

	// ErrIllegalIteratorState is returned by Remove before any Next, or
	// by a second Remove for the same element.
	ErrIllegalIteratorState = errors.New("illegal iterator state")

	// ErrTooManyIterations is a defensive guard tripped after an
	// unreasonable number of iterator advances, signaling a likely
	// runaway loop in the calling code.
	ErrTooManyIterations = errors.New("too many iterations")
)

// TableSchemaError reports a key schema conflict on an existing table.
type TableSchemaError struct {
	Table  string
	Reason string
}

func (e *TableSchemaError) Error() string {
	return fmt.Sprintf("table %q: %s", e.Table, e.Reason)
}

func (e *TableSchemaError) Is(target error) bool {
	return target == ErrInvalidTableSchema
}

// MissingKeyError reports which key component a mutation left out.
type MissingKeyError struct {
	Table     string
	Attribute string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("table %q: key attribute %q is required", e.Table, e.Attribute)
}

func (e *MissingKeyError) Is(target error) bool {
	return target == ErrMissingKeyAttribute
}

// TypeMismatchError reports an attribute written or queried with a kind
// incompatible with the kind it was first seen with.
type TypeMismatchError struct {
	Table     string
	Attribute string
	Want      string
	Got       string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf(
		"table %q: attribute %q holds %s values, got %s",
		e.Table, e.Attribute, e.Want, e.Got,
	)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrAttributeTypeMismatch
}

// NotIndexedError reports a condition on an attribute unknown to a table.
type NotIndexedError struct {
	Table     string
	Attribute string
}

func (e *NotIndexedError) Error() string {
	return fmt.Sprintf("table %q: no attribute %q to query", e.Table, e.Attribute)
}

func (e *NotIndexedError) Is(target error) bool {
	return target == ErrAttributeNotIndexed
}

// NewTableSchemaError creates a TableSchemaError.
func NewTableSchemaError(table, reason string) error {
	return &TableSchemaError{Table: table, Reason: reason}
}

// NewMissingKeyError creates a MissingKeyError.
func NewMissingKeyError(table, attribute string) error {
	return &MissingKeyError{Table: table, Attribute: attribute}
}

// NewTypeMismatchError creates a TypeMismatchError.
func NewTypeMismatchError(table, attribute, want, got string) error {
	return &TypeMismatchError{Table: table, Attribute: attribute, Want: want, Got: got}
}

// NewNotIndexedError creates a NotIndexedError.
func NewNotIndexedError(table, attribute string) error {
	return &NotIndexedError{Table: table, Attribute: attribute}
}

// IsItemNotFound checks for ErrItemNotFound.
func IsItemNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}

// IsNoSuchElement checks for ErrNoSuchElement.
func IsNoSuchElement(err error) bool {
	return errors.Is(err, ErrNoSuchElement)
}

// IsTypeMismatch checks for ErrAttributeTypeMismatch.
func IsTypeMismatch(err error) bool {
	return errors.Is(err, ErrAttributeTypeMismatch)
}
