package store

import (
	"context"

	"github.com/me/msbkit/pkg/model"
)

// Store defines the persistence layer for the MSB-done history.
type Store interface {
	// RecordEvent appends an event, assigning its id and timestamp if unset.
	RecordEvent(ctx context.Context, ev *model.DoneEvent) error
	GetEvent(ctx context.Context, id string) (*model.DoneEvent, error)
	ListEvents(ctx context.Context, opts model.ListOptions) ([]*model.DoneEvent, int, error)
	// ObservationCount returns observed minus unobserved events for an MSB.
	ObservationCount(ctx context.Context, checksum string) (int, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
