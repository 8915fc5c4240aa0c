package msb

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no MSB matches a checksum.
var ErrNotFound = errors.New("msb not found")

// EmptyIteratorError is returned when an iterator that needs at least one
// pass declares none.
type EmptyIteratorError struct {
	Iterator string
}

func (e *EmptyIteratorError) Error() string {
	return fmt.Sprintf("iterator <%s> has no attribute sets", e.Iterator)
}

// MissingObserveError is returned when an observation sequence contains no
// observe mode at all.
type MissingObserveError struct {
	Title string
}

func (e *MissingObserveError) Error() string {
	return fmt.Sprintf("MSB %q: observation contains no observe iterator", e.Title)
}

// MissingTargetError is returned when an observe leaf needs a target and none
// was specified or inherited.
type MissingTargetError struct {
	Title string
	Obs   string
}

func (e *MissingTargetError) Error() string {
	return fmt.Sprintf("MSB %q: observation %q has no target", e.Title, e.Obs)
}

// InvalidTransitionError is returned when an operation is not allowed in the
// current remaining-counter state.
type InvalidTransitionError struct {
	From State
	Op   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid MSB state transition: %s while %s", e.Op, e.From)
}

// StructureError reports malformed document content.
type StructureError struct {
	Element string
	Message string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("<%s>: %s", e.Element, e.Message)
}
