package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/overtime"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/syncqueue"
)

// AttendanceJobsConfig sets the job intervals and thresholds.
type AttendanceJobsConfig struct {
	OvertimeInterval  time.Duration
	SyncRetryInterval time.Duration
	SyncPurgeAfter    time.Duration
	StaleSessionAfter time.Duration
	Now               func() time.Time
}

type AttendanceJobs struct {
	attendanceService attendance.AttendanceService
	overtimeService   overtime.Service
	syncService       syncqueue.Service
	config            AttendanceJobsConfig
}

func NewAttendanceJobs(
	attendanceService attendance.AttendanceService,
	overtimeService overtime.Service,
	syncService syncqueue.Service,
	config AttendanceJobsConfig,
) *AttendanceJobs {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &AttendanceJobs{
		attendanceService: attendanceService,
		overtimeService:   overtimeService,
		syncService:       syncService,
		config:            config,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("overtime_prompt", j.config.OvertimeInterval, j.OvertimePrompt)
	scheduler.AddJob("sync_retry_failed", j.config.SyncRetryInterval, j.SyncRetryFailed)
	scheduler.AddJob("sync_purge", 24*time.Hour, j.SyncPurge)
	scheduler.AddJob("auto_close_stale_attendances", 1*time.Hour, j.AutoCloseStaleAttendances)
}

// OvertimePrompt prompts sessions that reached the prompt time and declines
// prompts left unanswered past the deadline.
func (j *AttendanceJobs) OvertimePrompt(ctx context.Context) error {
	res, err := j.overtimeService.Tick(ctx, j.config.Now())
	if err != nil {
		return fmt.Errorf("overtime tick: %w", err)
	}
	if res.Prompted > 0 || res.AutoDeclined > 0 || res.Failed > 0 {
		slog.Info("Cron: Overtime tick",
			"prompted", res.Prompted,
			"auto_declined", res.AutoDeclined,
			"failed", res.Failed,
		)
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d overtime transitions failed", res.Failed)
	}
	return nil
}

// SyncRetryFailed flushes every queue that still holds pending or failed items.
func (j *AttendanceJobs) SyncRetryFailed(ctx context.Context) error {
	res, err := j.syncService.FlushAll(ctx)
	if err != nil {
		return fmt.Errorf("flush sync queues: %w", err)
	}
	if res.Processed > 0 {
		slog.Info("Cron: Sync retry",
			"processed", res.Processed,
			"synced", res.Synced,
			"failed", res.Failed,
			"skipped", res.Skipped,
		)
	}
	return nil
}

// SyncPurge removes synced items older than the retention window.
func (j *AttendanceJobs) SyncPurge(ctx context.Context) error {
	if j.config.SyncPurgeAfter <= 0 {
		return nil
	}
	n, err := j.syncService.PurgeSynced(ctx, j.config.SyncPurgeAfter)
	if err != nil {
		return fmt.Errorf("purge synced items: %w", err)
	}
	if n > 0 {
		slog.Info("Cron: Purged synced items", "count", n)
	}
	return nil
}

// AutoCloseStaleAttendances closes sessions left open past the threshold.
func (j *AttendanceJobs) AutoCloseStaleAttendances(ctx context.Context) error {
	if j.config.StaleSessionAfter <= 0 {
		return nil
	}

	slog.Info("Cron: Starting auto-close stale attendances job")

	closed, err := j.attendanceService.CloseStaleSessions(ctx, j.config.StaleSessionAfter)
	if err != nil {
		return fmt.Errorf("failed to close stale sessions: %w", err)
	}

	slog.Info("Cron: Auto-closed stale attendances", "count", closed)
	return nil
}
