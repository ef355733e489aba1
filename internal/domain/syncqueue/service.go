package syncqueue

import (
	"context"
	"time"
)

type Service interface {
	// Enqueue appends an operation as pending. Duplicate deliveries return the stored item.
	Enqueue(ctx context.Context, req EnqueueRequest) (ItemResponse, error)
	EnqueueBatch(ctx context.Context, req BatchEnqueueRequest) (BatchEnqueueResponse, error)

	// Flush replays the employee's pending and failed items serially, oldest
	// first. A second flush of the same queue returns ErrFlushInProgress.
	Flush(ctx context.Context, employeeID string) (FlushResult, error)
	// FlushAll flushes every queue that holds unsynced items.
	FlushAll(ctx context.Context) (FlushResult, error)
	// Retry dispatches one item immediately, including items at the attempt cap.
	Retry(ctx context.Context, employeeID, id string) (ItemResponse, error)
	// Clear removes an unsynced item on request.
	Clear(ctx context.Context, employeeID, id string) error

	PendingCount(ctx context.Context, employeeID string) (int, error)
	List(ctx context.Context, filter Filter) (ListResponse, error)
	PurgeSynced(ctx context.Context, olderThan time.Duration) (int64, error)
}
