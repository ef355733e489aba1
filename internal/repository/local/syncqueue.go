package local

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/syncqueue"
	"go.etcd.io/bbolt"
)

type itemRecord struct {
	ID              string          `json:"id"`
	Seq             int64           `json:"seq"`
	EmployeeID      string          `json:"employee_id"`
	CompanyID       string          `json:"company_id"`
	OperationType   string          `json:"operation_type"`
	Payload         json.RawMessage `json:"payload"`
	DeviceTimestamp time.Time       `json:"device_timestamp"`
	IdempotencyKey  string          `json:"idempotency_key"`
	Status          string          `json:"sync_status"`
	Attempts        int             `json:"sync_attempts"`
	LastAttemptAt   *time.Time      `json:"last_sync_attempt,omitempty"`
	Error           *string         `json:"sync_error,omitempty"`
	SyncedAt        *time.Time      `json:"synced_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toRecord(i syncqueue.Item) itemRecord {
	return itemRecord{
		ID:              i.ID,
		Seq:             i.Seq,
		EmployeeID:      i.EmployeeID,
		CompanyID:       i.CompanyID,
		OperationType:   string(i.OperationType),
		Payload:         i.Payload,
		DeviceTimestamp: i.DeviceTimestamp,
		IdempotencyKey:  i.IdempotencyKey,
		Status:          string(i.Status),
		Attempts:        i.Attempts,
		LastAttemptAt:   i.LastAttemptAt,
		Error:           i.Error,
		SyncedAt:        i.SyncedAt,
		CreatedAt:       i.CreatedAt,
	}
}

func (r itemRecord) toItem() syncqueue.Item {
	return syncqueue.Item{
		ID:              r.ID,
		Seq:             r.Seq,
		EmployeeID:      r.EmployeeID,
		CompanyID:       r.CompanyID,
		OperationType:   syncqueue.OperationType(r.OperationType),
		Payload:         r.Payload,
		DeviceTimestamp: r.DeviceTimestamp,
		IdempotencyKey:  r.IdempotencyKey,
		Status:          syncqueue.Status(r.Status),
		Attempts:        r.Attempts,
		LastAttemptAt:   r.LastAttemptAt,
		Error:           r.Error,
		SyncedAt:        r.SyncedAt,
		CreatedAt:       r.CreatedAt,
	}
}

type syncQueueRepository struct {
	store *Store
}

// NewSyncQueueRepository keeps the queue in the sync_queue bucket keyed by
// ULID, so cursor order is creation order.
func NewSyncQueueRepository(store *Store) syncqueue.Repository {
	return &syncQueueRepository{store: store}
}

func getItem(b *bbolt.Bucket, id string) (syncqueue.Item, error) {
	raw := b.Get([]byte(id))
	if raw == nil {
		return syncqueue.Item{}, syncqueue.ErrItemNotFound
	}
	var rec itemRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return syncqueue.Item{}, fmt.Errorf("decode sync item %s: %w", id, err)
	}
	return rec.toItem(), nil
}

func putItem(b *bbolt.Bucket, item syncqueue.Item) error {
	raw, err := json.Marshal(toRecord(item))
	if err != nil {
		return fmt.Errorf("encode sync item %s: %w", item.ID, err)
	}
	return b.Put([]byte(item.ID), raw)
}

// each walks items oldest first until fn returns false.
func each(b *bbolt.Bucket, fn func(syncqueue.Item) bool) error {
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var rec itemRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("decode sync item %s: %w", k, err)
		}
		if !fn(rec.toItem()) {
			return nil
		}
	}
	return nil
}

func (r *syncQueueRepository) Enqueue(ctx context.Context, item syncqueue.Item) (syncqueue.Item, bool, error) {
	var (
		stored  syncqueue.Item
		created bool
	)

	err := r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSyncQueue)
		keys := tx.Bucket(bucketSyncKeys)

		if existing := keys.Get([]byte(item.IdempotencyKey)); existing != nil {
			var err error
			stored, err = getItem(b, string(existing))
			return err
		}

		id, err := r.store.nextKey(b, item.CreatedAt)
		if err != nil {
			return fmt.Errorf("generate item key: %w", err)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		item.ID = id.String()
		item.Seq = int64(seq)
		if item.Status == "" {
			item.Status = syncqueue.StatusPending
		}
		if err := putItem(b, item); err != nil {
			return err
		}
		if err := keys.Put([]byte(item.IdempotencyKey), []byte(item.ID)); err != nil {
			return err
		}

		stored, created = item, true
		return nil
	})
	if err != nil {
		return syncqueue.Item{}, false, err
	}
	return stored, created, nil
}

func (r *syncQueueRepository) GetByID(ctx context.Context, id string) (syncqueue.Item, error) {
	var item syncqueue.Item
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		var err error
		item, err = getItem(tx.Bucket(bucketSyncQueue), id)
		return err
	})
	return item, err
}

func (r *syncQueueRepository) ListUnsynced(ctx context.Context, employeeID string) ([]syncqueue.Item, error) {
	var items []syncqueue.Item
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		return each(tx.Bucket(bucketSyncQueue), func(it syncqueue.Item) bool {
			if it.EmployeeID == employeeID && it.Status != syncqueue.StatusSynced {
				items = append(items, it)
			}
			return true
		})
	})
	return items, err
}

func (r *syncQueueRepository) List(ctx context.Context, filter syncqueue.Filter) ([]syncqueue.Item, int64, error) {
	var matched []syncqueue.Item
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		return each(tx.Bucket(bucketSyncQueue), func(it syncqueue.Item) bool {
			if filter.CompanyID != "" && it.CompanyID != filter.CompanyID {
				return true
			}
			if filter.EmployeeID != nil && it.EmployeeID != *filter.EmployeeID {
				return true
			}
			if filter.Status != nil && it.Status != *filter.Status {
				return true
			}
			matched = append(matched, it)
			return true
		})
	})
	if err != nil {
		return nil, 0, err
	}

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.PageSize
	if filter.PageSize <= 0 || start < 0 {
		return matched, total, nil
	}
	if start >= len(matched) {
		return []syncqueue.Item{}, total, nil
	}
	end := min(start+filter.PageSize, len(matched))
	return matched[start:end], total, nil
}

func (r *syncQueueRepository) CountUnsynced(ctx context.Context, employeeID string) (int, error) {
	items, err := r.ListUnsynced(ctx, employeeID)
	return len(items), err
}

func (r *syncQueueRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	return r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSyncQueue)
		item, err := getItem(b, id)
		if err != nil {
			return err
		}
		if item.Status == syncqueue.StatusSynced {
			return syncqueue.ErrAlreadySynced
		}
		item.Status = syncqueue.StatusSynced
		item.SyncedAt = &at
		item.LastAttemptAt = &at
		item.Error = nil
		return putItem(b, item)
	})
}

func (r *syncQueueRepository) MarkFailed(ctx context.Context, id string, at time.Time, reason string) (syncqueue.Item, error) {
	var updated syncqueue.Item
	err := r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSyncQueue)
		item, err := getItem(b, id)
		if err != nil {
			return err
		}
		if item.Status == syncqueue.StatusSynced {
			return syncqueue.ErrAlreadySynced
		}
		item.Status = syncqueue.StatusFailed
		item.Attempts++
		item.LastAttemptAt = &at
		item.Error = &reason
		updated = item
		return putItem(b, item)
	})
	return updated, err
}

func (r *syncQueueRepository) Delete(ctx context.Context, id string) error {
	return r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSyncQueue)
		item, err := getItem(b, id)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketSyncKeys).Delete([]byte(item.IdempotencyKey)); err != nil {
			return err
		}
		return b.Delete([]byte(id))
	})
}

func (r *syncQueueRepository) PurgeSynced(ctx context.Context, before time.Time) (int64, error) {
	var purged int64
	err := r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSyncQueue)
		keys := tx.Bucket(bucketSyncKeys)

		var doomed []syncqueue.Item
		if err := each(b, func(it syncqueue.Item) bool {
			if it.Status == syncqueue.StatusSynced && it.SyncedAt != nil && it.SyncedAt.Before(before) {
				doomed = append(doomed, it)
			}
			return true
		}); err != nil {
			return err
		}

		// Deleting while iterating a bbolt cursor skips keys.
		for _, it := range doomed {
			if err := keys.Delete([]byte(it.IdempotencyKey)); err != nil {
				return err
			}
			if err := b.Delete([]byte(it.ID)); err != nil {
				return err
			}
			purged++
		}
		return nil
	})
	return purged, err
}

func (r *syncQueueRepository) OwnersWithUnsynced(ctx context.Context) ([]syncqueue.Owner, error) {
	seen := make(map[string]syncqueue.Owner)
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		return each(tx.Bucket(bucketSyncQueue), func(it syncqueue.Item) bool {
			if it.Status != syncqueue.StatusSynced {
				seen[it.EmployeeID] = syncqueue.Owner{EmployeeID: it.EmployeeID, CompanyID: it.CompanyID}
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}

	owners := make([]syncqueue.Owner, 0, len(seen))
	for _, o := range seen {
		owners = append(owners, o)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].EmployeeID < owners[j].EmployeeID })
	return owners, nil
}
