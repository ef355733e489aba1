package syncqueue

import (
	"context"
	"time"
)

// Repository persists queue items. Implementations must return items of one
// employee in creation order.
type Repository interface {
	// Enqueue stores item unless an item with the same idempotency key exists,
	// in which case the stored item is returned with created=false.
	Enqueue(ctx context.Context, item Item) (stored Item, created bool, err error)
	GetByID(ctx context.Context, id string) (Item, error)
	// ListUnsynced returns pending and failed items of employeeID oldest first.
	ListUnsynced(ctx context.Context, employeeID string) ([]Item, error)
	List(ctx context.Context, filter Filter) ([]Item, int64, error)
	CountUnsynced(ctx context.Context, employeeID string) (int, error)
	// MarkSynced fails with ErrAlreadySynced when the item was synced before.
	MarkSynced(ctx context.Context, id string, at time.Time) error
	// MarkFailed increments the attempt counter and records the error.
	MarkFailed(ctx context.Context, id string, at time.Time, reason string) (Item, error)
	Delete(ctx context.Context, id string) error
	PurgeSynced(ctx context.Context, before time.Time) (int64, error)
	// OwnersWithUnsynced lists the queues holding pending or failed items.
	OwnersWithUnsynced(ctx context.Context) ([]Owner, error)
}

// Dispatcher applies one item to the attendance pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, item Item) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, item Item) error

func (f DispatcherFunc) Dispatch(ctx context.Context, item Item) error {
	return f(ctx, item)
}
