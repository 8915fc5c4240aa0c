package model

import (
	"time"

	"github.com/google/uuid"
)

// DoneEvent is one entry of the MSB-done history: a state change applied to
// an MSB, identified by its checksum. NewChecksum is set when the change
// altered the checksum, as observing an OR group member does.
type DoneEvent struct {
	ID          string      `json:"id" yaml:"id"`
	MSBTID      string      `json:"msbtid,omitempty" yaml:"msbtid,omitempty"`
	Checksum    string      `json:"checksum" yaml:"checksum"`
	NewChecksum string      `json:"new_checksum,omitempty" yaml:"new_checksum,omitempty"`
	ProjectID   string      `json:"projectid" yaml:"projectid"`
	Title       string      `json:"title" yaml:"title"`
	Status      EventStatus `json:"status" yaml:"status"`
	Remaining   int         `json:"remaining" yaml:"remaining"`
	Label       string      `json:"label,omitempty" yaml:"label,omitempty"`
	Comment     string      `json:"comment,omitempty" yaml:"comment,omitempty"`
	CreatedAt   time.Time   `json:"created_at" yaml:"created_at"`
}

// NewEventID returns a fresh history entry id.
func NewEventID() string {
	return "done_" + uuid.New().String()
}

// NewTransactionID returns a fresh MSB transaction id, shared by every event
// written for one execution of an MSB.
func NewTransactionID() string {
	return uuid.New().String()
}
