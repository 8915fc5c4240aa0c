package model

import "fmt"

// NotFoundError is returned when a history entry does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
}

// InvalidStatusError is returned for an unknown event status.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid event status %q", e.Status)
}

// ParseEventStatus validates s as an event status.
func ParseEventStatus(s string) (EventStatus, error) {
	st := EventStatus(s)
	if !st.IsValid() {
		return "", &InvalidStatusError{Status: s}
	}
	return st, nil
}
