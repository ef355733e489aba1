package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/syncqueue"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/validator"
)

// Config holds queue engine configuration
type Config struct {
	MaxAttempts int // 0: unlimited

	// OnExhausted runs once when an item reaches MaxAttempts.
	OnExhausted func(ctx context.Context, item syncqueue.Item)

	Now func() time.Time
}

type syncQueueServiceImpl struct {
	repo       syncqueue.Repository
	dispatcher syncqueue.Dispatcher
	config     Config

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewSyncQueueService creates the queue engine on top of a store and a
// dispatcher. The same engine runs on the server and on the device.
func NewSyncQueueService(repo syncqueue.Repository, dispatcher syncqueue.Dispatcher, cfg Config) syncqueue.Service {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}

	return &syncQueueServiceImpl{
		repo:       repo,
		dispatcher: dispatcher,
		config:     cfg,
		inFlight:   make(map[string]struct{}),
	}
}

// Enqueue implements syncqueue.Service.
func (s *syncQueueServiceImpl) Enqueue(ctx context.Context, req syncqueue.EnqueueRequest) (syncqueue.ItemResponse, error) {
	if err := req.Validate(); err != nil {
		return syncqueue.ItemResponse{}, err
	}

	stored, _, err := s.enqueue(ctx, req)
	if err != nil {
		return syncqueue.ItemResponse{}, err
	}
	return syncqueue.ToItemResponse(stored, s.config.MaxAttempts), nil
}

func (s *syncQueueServiceImpl) enqueue(ctx context.Context, req syncqueue.EnqueueRequest) (syncqueue.Item, bool, error) {
	item := syncqueue.Item{
		EmployeeID:      req.EmployeeID,
		CompanyID:       req.CompanyID,
		OperationType:   req.OperationType,
		Payload:         req.Payload,
		DeviceTimestamp: req.DeviceTimestamp.UTC(),
		IdempotencyKey:  syncqueue.IdempotencyKey(req.EmployeeID, req.OperationType, req.DeviceTimestamp),
		Status:          syncqueue.StatusPending,
		CreatedAt:       s.config.Now(),
	}
	if len(item.Payload) == 0 {
		item.Payload = []byte("{}")
	}

	stored, created, err := s.repo.Enqueue(ctx, item)
	if err != nil {
		return syncqueue.Item{}, false, fmt.Errorf("failed to enqueue sync item: %w", err)
	}
	if !created {
		slog.Info("duplicate sync item ignored",
			"employee_id", stored.EmployeeID,
			"item_id", stored.ID,
			"idempotency_key", stored.IdempotencyKey,
		)
	}
	return stored, created, nil
}

// EnqueueBatch implements syncqueue.Service.
func (s *syncQueueServiceImpl) EnqueueBatch(ctx context.Context, req syncqueue.BatchEnqueueRequest) (syncqueue.BatchEnqueueResponse, error) {
	if err := req.Validate(); err != nil {
		return syncqueue.BatchEnqueueResponse{}, err
	}

	// Reject the whole batch before anything is stored so the device can retry it as a unit.
	var errs validator.ValidationErrors
	for i := range req.Items {
		req.Items[i].EmployeeID = req.EmployeeID
		req.Items[i].CompanyID = req.CompanyID
		if err := req.Items[i].Validate(); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return syncqueue.BatchEnqueueResponse{}, err
			}
			for _, v := range verrs {
				errs = append(errs, validator.ValidationError{
					Field:   fmt.Sprintf("items[%d].%s", i, v.Field),
					Message: v.Message,
				})
			}
		}
	}
	if len(errs) > 0 {
		return syncqueue.BatchEnqueueResponse{}, errs
	}

	resp := syncqueue.BatchEnqueueResponse{Items: make([]syncqueue.ItemResponse, 0, len(req.Items))}
	for _, it := range req.Items {
		stored, created, err := s.enqueue(ctx, it)
		if err != nil {
			return syncqueue.BatchEnqueueResponse{}, err
		}
		if created {
			resp.Queued++
		}
		resp.Items = append(resp.Items, syncqueue.ToItemResponse(stored, s.config.MaxAttempts))
	}

	if req.Flush {
		result, err := s.Flush(ctx, req.EmployeeID)
		switch {
		case err == nil:
			resp.Flush = &result
			for i, it := range resp.Items {
				if fresh, err := s.repo.GetByID(ctx, it.ID); err == nil {
					resp.Items[i] = syncqueue.ToItemResponse(fresh, s.config.MaxAttempts)
				}
			}
		case errors.Is(err, syncqueue.ErrFlushInProgress):
			// the running flush picks the new items up on its next pass
		default:
			return syncqueue.BatchEnqueueResponse{}, err
		}
	}

	return resp, nil
}

func (s *syncQueueServiceImpl) acquire(employeeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[employeeID]; busy {
		return false
	}
	s.inFlight[employeeID] = struct{}{}
	return true
}

func (s *syncQueueServiceImpl) release(employeeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, employeeID)
}

// Flush implements syncqueue.Service.
func (s *syncQueueServiceImpl) Flush(ctx context.Context, employeeID string) (syncqueue.FlushResult, error) {
	if !s.acquire(employeeID) {
		return syncqueue.FlushResult{}, syncqueue.ErrFlushInProgress
	}
	defer s.release(employeeID)

	// A started flush finishes its snapshot even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	items, err := s.repo.ListUnsynced(ctx, employeeID)
	if err != nil {
		return syncqueue.FlushResult{}, fmt.Errorf("failed to list unsynced items: %w", err)
	}

	var result syncqueue.FlushResult
	for _, item := range items {
		if !item.Replayable(s.config.MaxAttempts) {
			result.Skipped++
			continue
		}

		result.Processed++
		if err := s.apply(ctx, item); err != nil {
			result.Failed++
			continue
		}
		result.Synced++
	}

	if result.Processed > 0 {
		slog.Info("sync queue flushed",
			"employee_id", employeeID,
			"processed", result.Processed,
			"synced", result.Synced,
			"failed", result.Failed,
			"skipped", result.Skipped,
		)
	}

	return result, nil
}

// apply dispatches one item and records the outcome on it.
func (s *syncQueueServiceImpl) apply(ctx context.Context, item syncqueue.Item) error {
	dispatchErr := s.dispatcher.Dispatch(ctx, item)
	now := s.config.Now()

	if dispatchErr == nil {
		if err := s.repo.MarkSynced(ctx, item.ID, now); err != nil && !errors.Is(err, syncqueue.ErrAlreadySynced) {
			slog.Error("failed to mark sync item synced", "item_id", item.ID, "error", err)
			return err
		}
		return nil
	}

	updated, err := s.repo.MarkFailed(ctx, item.ID, now, dispatchErr.Error())
	if err != nil {
		slog.Error("failed to record sync failure", "item_id", item.ID, "error", err)
		return dispatchErr
	}

	slog.Warn("sync item failed",
		"employee_id", item.EmployeeID,
		"item_id", item.ID,
		"operation_type", item.OperationType,
		"attempts", updated.Attempts,
		"error", dispatchErr,
	)

	if s.config.MaxAttempts > 0 && updated.Attempts == s.config.MaxAttempts && s.config.OnExhausted != nil {
		s.config.OnExhausted(ctx, updated)
	}
	return dispatchErr
}

// FlushAll implements syncqueue.Service.
func (s *syncQueueServiceImpl) FlushAll(ctx context.Context) (syncqueue.FlushResult, error) {
	owners, err := s.repo.OwnersWithUnsynced(ctx)
	if err != nil {
		return syncqueue.FlushResult{}, fmt.Errorf("failed to list queues: %w", err)
	}

	var total syncqueue.FlushResult
	for _, owner := range owners {
		result, err := s.Flush(ctx, owner.EmployeeID)
		if err != nil {
			if !errors.Is(err, syncqueue.ErrFlushInProgress) {
				slog.Error("failed to flush sync queue", "employee_id", owner.EmployeeID, "error", err)
			}
			continue
		}
		total.Add(result)
	}
	return total, nil
}

// Retry implements syncqueue.Service. An empty employeeID skips the owner check.
func (s *syncQueueServiceImpl) Retry(ctx context.Context, employeeID, id string) (syncqueue.ItemResponse, error) {
	item, err := s.owned(ctx, employeeID, id)
	if err != nil {
		return syncqueue.ItemResponse{}, err
	}
	if item.Status == syncqueue.StatusSynced {
		return syncqueue.ItemResponse{}, syncqueue.ErrAlreadySynced
	}

	if !s.acquire(item.EmployeeID) {
		return syncqueue.ItemResponse{}, syncqueue.ErrFlushInProgress
	}
	defer s.release(item.EmployeeID)

	_ = s.apply(context.WithoutCancel(ctx), item)

	fresh, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return syncqueue.ItemResponse{}, fmt.Errorf("failed to reload sync item: %w", err)
	}
	return syncqueue.ToItemResponse(fresh, s.config.MaxAttempts), nil
}

// Clear implements syncqueue.Service.
func (s *syncQueueServiceImpl) Clear(ctx context.Context, employeeID, id string) error {
	item, err := s.owned(ctx, employeeID, id)
	if err != nil {
		return err
	}
	if item.Status == syncqueue.StatusSynced {
		return syncqueue.ErrAlreadySynced
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete sync item: %w", err)
	}

	slog.Info("sync item cleared",
		"employee_id", item.EmployeeID,
		"item_id", item.ID,
		"operation_type", item.OperationType,
		"attempts", item.Attempts,
	)
	return nil
}

func (s *syncQueueServiceImpl) owned(ctx context.Context, employeeID, id string) (syncqueue.Item, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, syncqueue.ErrItemNotFound) {
			return syncqueue.Item{}, err
		}
		return syncqueue.Item{}, fmt.Errorf("failed to get sync item: %w", err)
	}
	if employeeID != "" && item.EmployeeID != employeeID {
		return syncqueue.Item{}, syncqueue.ErrUnauthorized
	}
	return item, nil
}

// PendingCount implements syncqueue.Service.
func (s *syncQueueServiceImpl) PendingCount(ctx context.Context, employeeID string) (int, error) {
	count, err := s.repo.CountUnsynced(ctx, employeeID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsynced items: %w", err)
	}
	return count, nil
}

// List implements syncqueue.Service.
func (s *syncQueueServiceImpl) List(ctx context.Context, filter syncqueue.Filter) (syncqueue.ListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return syncqueue.ListResponse{}, fmt.Errorf("failed to list sync items: %w", err)
	}

	resp := syncqueue.ListResponse{
		Items:      make([]syncqueue.ItemResponse, len(items)),
		TotalCount: total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	}
	for i, it := range items {
		resp.Items[i] = syncqueue.ToItemResponse(it, s.config.MaxAttempts)
	}

	if filter.EmployeeID != nil {
		resp.PendingCount, err = s.PendingCount(ctx, *filter.EmployeeID)
		if err != nil {
			return syncqueue.ListResponse{}, err
		}
	}
	return resp, nil
}

// PurgeSynced implements syncqueue.Service.
func (s *syncQueueServiceImpl) PurgeSynced(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.repo.PurgeSynced(ctx, s.config.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to purge synced items: %w", err)
	}
	return n, nil
}
