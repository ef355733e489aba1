package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/syncqueue"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
)

type syncQueueRepository struct {
	db *database.DB
}

func NewSyncQueueRepository(db *database.DB) syncqueue.Repository {
	return &syncQueueRepository{db: db}
}

const syncItemColumns = `
	id, seq, employee_id, company_id, operation_type, payload, device_timestamp,
	idempotency_key, sync_status, sync_attempts, last_sync_attempt, sync_error, synced_at, created_at`

func scanSyncItem(row pgx.Row) (syncqueue.Item, error) {
	var (
		it      syncqueue.Item
		payload []byte
	)
	err := row.Scan(&it.ID, &it.Seq, &it.EmployeeID, &it.CompanyID, &it.OperationType, &payload, &it.DeviceTimestamp,
		&it.IdempotencyKey, &it.Status, &it.Attempts, &it.LastAttemptAt, &it.Error, &it.SyncedAt, &it.CreatedAt)
	it.Payload = payload
	return it, err
}

func (r *syncQueueRepository) listItems(ctx context.Context, query string, args ...any) ([]syncqueue.Item, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []syncqueue.Item
	for rows.Next() {
		it, err := scanSyncItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Enqueue implements syncqueue.Repository.
func (r *syncQueueRepository) Enqueue(ctx context.Context, item syncqueue.Item) (syncqueue.Item, bool, error) {
	q := GetQuerier(ctx, r.db)

	if len(item.Payload) == 0 {
		item.Payload = []byte("{}")
	}

	query := `
		INSERT INTO sync_queue_items (employee_id, company_id, operation_type, payload, device_timestamp, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING ` + syncItemColumns

	stored, err := scanSyncItem(q.QueryRow(ctx, query,
		item.EmployeeID, item.CompanyID, item.OperationType, []byte(item.Payload), item.DeviceTimestamp, item.IdempotencyKey))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return syncqueue.Item{}, false, fmt.Errorf("failed to enqueue sync item: %w", err)
	}

	existing, err := scanSyncItem(q.QueryRow(ctx,
		`SELECT `+syncItemColumns+` FROM sync_queue_items WHERE idempotency_key = $1`, item.IdempotencyKey))
	if err != nil {
		return syncqueue.Item{}, false, fmt.Errorf("failed to load existing sync item: %w", err)
	}
	return existing, false, nil
}

// GetByID implements syncqueue.Repository.
func (r *syncQueueRepository) GetByID(ctx context.Context, id string) (syncqueue.Item, error) {
	q := GetQuerier(ctx, r.db)

	it, err := scanSyncItem(q.QueryRow(ctx, `SELECT `+syncItemColumns+` FROM sync_queue_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return syncqueue.Item{}, syncqueue.ErrItemNotFound
		}
		return syncqueue.Item{}, fmt.Errorf("failed to get sync item: %w", err)
	}
	return it, nil
}

// ListUnsynced implements syncqueue.Repository.
func (r *syncQueueRepository) ListUnsynced(ctx context.Context, employeeID string) ([]syncqueue.Item, error) {
	items, err := r.listItems(ctx, `SELECT `+syncItemColumns+` FROM sync_queue_items
		WHERE employee_id = $1 AND sync_status <> $2
		ORDER BY seq`, employeeID, syncqueue.StatusSynced)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced items: %w", err)
	}
	return items, nil
}

// List implements syncqueue.Repository.
func (r *syncQueueRepository) List(ctx context.Context, filter syncqueue.Filter) ([]syncqueue.Item, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := "company_id = $1"
	args := []interface{}{filter.CompanyID}
	argIdx := 2

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		where += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.Status != nil {
		where += fmt.Sprintf(" AND sync_status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM sync_queue_items WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sync items: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM sync_queue_items WHERE %s ORDER BY seq DESC LIMIT $%d OFFSET $%d`,
		syncItemColumns, where, argIdx, argIdx+1)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	items, err := r.listItems(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sync items: %w", err)
	}
	return items, total, nil
}

// CountUnsynced implements syncqueue.Repository.
func (r *syncQueueRepository) CountUnsynced(ctx context.Context, employeeID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var count int
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM sync_queue_items WHERE employee_id = $1 AND sync_status <> $2`,
		employeeID, syncqueue.StatusSynced).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unsynced items: %w", err)
	}
	return count, nil
}

// MarkSynced implements syncqueue.Repository.
func (r *syncQueueRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE sync_queue_items SET
			sync_status = $2,
			last_sync_attempt = $3,
			synced_at = $3,
			sync_error = NULL
		WHERE id = $1 AND sync_status <> $2`, id, syncqueue.StatusSynced, at)
	if err != nil {
		return fmt.Errorf("failed to mark sync item synced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return syncqueue.ErrAlreadySynced
	}
	return nil
}

// MarkFailed implements syncqueue.Repository.
func (r *syncQueueRepository) MarkFailed(ctx context.Context, id string, at time.Time, reason string) (syncqueue.Item, error) {
	q := GetQuerier(ctx, r.db)

	it, err := scanSyncItem(q.QueryRow(ctx, `
		UPDATE sync_queue_items SET
			sync_status = $2,
			last_sync_attempt = $3,
			sync_error = $4
		WHERE id = $1 AND sync_status <> $5
		RETURNING `+syncItemColumns,
		id, syncqueue.StatusFailed, at, reason, syncqueue.StatusSynced))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return syncqueue.Item{}, syncqueue.ErrAlreadySynced
		}
		return syncqueue.Item{}, fmt.Errorf("failed to mark sync item failed: %w", err)
	}
	return it, nil
}

// Delete implements syncqueue.Repository.
func (r *syncQueueRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM sync_queue_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sync item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return syncqueue.ErrItemNotFound
	}
	return nil
}

// PurgeSynced implements syncqueue.Repository.
func (r *syncQueueRepository) PurgeSynced(ctx context.Context, before time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`DELETE FROM sync_queue_items WHERE sync_status = $1 AND synced_at < $2`, syncqueue.StatusSynced, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge synced items: %w", err)
	}
	return tag.RowsAffected(), nil
}

// OwnersWithUnsynced implements syncqueue.Repository.
func (r *syncQueueRepository) OwnersWithUnsynced(ctx context.Context) ([]syncqueue.Owner, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT employee_id, company_id FROM sync_queue_items
		WHERE sync_status <> $1
		GROUP BY employee_id, company_id
		ORDER BY MIN(seq)`, syncqueue.StatusSynced)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue owners: %w", err)
	}
	defer rows.Close()

	var owners []syncqueue.Owner
	for rows.Next() {
		var o syncqueue.Owner
		if err := rows.Scan(&o.EmployeeID, &o.CompanyID); err != nil {
			return nil, fmt.Errorf("failed to scan queue owner: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}
