package model

// EventStatus is the kind of state change recorded in the MSB-done history.
type EventStatus string

const (
	EventObserved   EventStatus = "observed"
	EventUnobserved EventStatus = "unobserved"
	EventRemoved    EventStatus = "removed"
	EventUnremoved  EventStatus = "unremoved"
	EventSuspended  EventStatus = "suspended"
	EventResumed    EventStatus = "resumed"
)

// String returns the string representation of the status.
func (s EventStatus) String() string {
	return string(s)
}

// IsValid reports whether s is a known status.
func (s EventStatus) IsValid() bool {
	_, ok := inverseEvents[s]
	return ok
}

// inverseEvents pairs each status with the status that undoes it.
var inverseEvents = map[EventStatus]EventStatus{
	EventObserved:   EventUnobserved,
	EventUnobserved: EventObserved,
	EventRemoved:    EventUnremoved,
	EventUnremoved:  EventRemoved,
	EventSuspended:  EventResumed,
	EventResumed:    EventSuspended,
}

// Inverse returns the status that undoes s, or "" for an unknown status.
func (s EventStatus) Inverse() EventStatus {
	return inverseEvents[s]
}
