package overtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/master/branch"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/notification"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/overtime"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
	notificationService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/notification"
)

type overtimeServiceImpl struct {
	tx                database.Transactor
	attendanceRepo    attendance.AttendanceRepository
	branchRepo        branch.BranchRepository
	attendanceService attendance.AttendanceService
	notifier          *notificationService.Notifier

	schedule overtime.Schedule
	location *time.Location
	now      func() time.Time
}

// NewOvertimeService drives the prompt flow of open sessions. Sessions without
// a branch use defaultLocation for the prompt time.
func NewOvertimeService(
	tx database.Transactor,
	attendanceRepo attendance.AttendanceRepository,
	branchRepo branch.BranchRepository,
	attendanceService attendance.AttendanceService,
	notifier *notificationService.Notifier,
	schedule overtime.Schedule,
	defaultLocation *time.Location,
	now func() time.Time,
) overtime.Service {
	if defaultLocation == nil {
		defaultLocation = time.UTC
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &overtimeServiceImpl{
		tx:                tx,
		attendanceRepo:    attendanceRepo,
		branchRepo:        branchRepo,
		attendanceService: attendanceService,
		notifier:          notifier,
		schedule:          schedule,
		location:          defaultLocation,
		now:               now,
	}
}

// Respond implements overtime.Service.
func (s *overtimeServiceImpl) Respond(ctx context.Context, req overtime.RespondRequest) (overtime.StatusResponse, error) {
	if err := req.Validate(); err != nil {
		return overtime.StatusResponse{}, err
	}

	rec, err := s.attendanceRepo.GetByID(ctx, req.AttendanceID, req.CompanyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, attendance.ErrAttendanceNotFound) {
			return overtime.StatusResponse{}, attendance.ErrAttendanceNotFound
		}
		return overtime.StatusResponse{}, fmt.Errorf("failed to get attendance: %w", err)
	}
	if rec.EmployeeID != req.EmployeeID {
		return overtime.StatusResponse{}, attendance.ErrUnauthorized
	}
	if !rec.IsOpen() {
		return overtime.StatusResponse{}, attendance.ErrAlreadyClockedOut
	}

	event := overtime.EventDecline
	if *req.Approve {
		event = overtime.EventApprove
	}
	next, err := rec.OvertimeState.Next(event)
	if err != nil {
		return overtime.StatusResponse{}, err
	}

	now := s.now()
	// A late answer loses to the timeout even if the scheduler has not run yet.
	if rec.OvertimePromptedAt != nil && !now.Before(s.schedule.Deadline(*rec.OvertimePromptedAt)) {
		return overtime.StatusResponse{}, fmt.Errorf("%w: response window closed", overtime.ErrAlreadyResponded)
	}

	approved := *req.Approve
	t := attendance.OvertimeTransition{
		AttendanceID: rec.ID,
		From:         rec.OvertimeState,
		To:           next,
		PromptedAt:   rec.OvertimePromptedAt,
		RespondedAt:  &now,
		Approved:     &approved,
	}
	if approved {
		t.StartTime = rec.OvertimePromptedAt
	}

	if err := s.attendanceRepo.UpdateOvertime(ctx, t); err != nil {
		if errors.Is(err, overtime.ErrStateConflict) {
			return overtime.StatusResponse{}, overtime.ErrAlreadyResponded
		}
		return overtime.StatusResponse{}, fmt.Errorf("failed to record overtime response: %w", err)
	}

	apply(&rec, t)
	slog.Info("overtime answered", "attendance_id", rec.ID, "employee_id", rec.EmployeeID, "approved", approved)

	verb := "declined"
	if approved {
		verb = "approved"
	}
	s.notifier.Managers(ctx, rec.CompanyID, rec.EmployeeID, notificationService.Message{
		Type:    notification.TypeOvertimeResponded,
		Title:   "Overtime " + verb,
		Message: fmt.Sprintf("%s %s overtime", name(rec), verb),
		Data: map[string]interface{}{
			"attendance_id": rec.ID,
			"employee_id":   rec.EmployeeID,
			"approved":      approved,
		},
	})

	return s.status(rec), nil
}

// GetStatus implements overtime.Service.
func (s *overtimeServiceImpl) GetStatus(ctx context.Context, employeeID, companyID string) (overtime.StatusResponse, error) {
	open, err := s.attendanceRepo.GetOpenSession(ctx, employeeID)
	if err != nil {
		return overtime.StatusResponse{}, fmt.Errorf("failed to get open session: %w", err)
	}
	if open == nil || open.CompanyID != companyID {
		return overtime.StatusResponse{}, overtime.ErrNoOpenSession
	}
	return s.status(*open), nil
}

func (s *overtimeServiceImpl) status(rec attendance.Attendance) overtime.StatusResponse {
	resp := overtime.StatusResponse{
		AttendanceID: rec.ID,
		State:        rec.OvertimeState,
		PromptedAt:   rec.OvertimePromptedAt,
		RespondedAt:  rec.OvertimeRespondedAt,
		Approved:     rec.OvertimeApproved,
		StartTime:    rec.OvertimeStartTime,
	}
	if rec.OvertimeState == overtime.StatePrompted && rec.OvertimePromptedAt != nil {
		deadline := s.schedule.Deadline(*rec.OvertimePromptedAt)
		resp.Deadline = &deadline
	}
	return resp
}

// Tick implements overtime.Service. Every step is a compare-and-set on the
// stored state, so overlapping ticks apply each transition once.
func (s *overtimeServiceImpl) Tick(ctx context.Context, now time.Time) (overtime.TickResult, error) {
	sessions, err := s.attendanceRepo.ListOpenInOvertimeFlow(ctx)
	if err != nil {
		return overtime.TickResult{}, fmt.Errorf("failed to list open sessions: %w", err)
	}

	locations := make(map[string]*time.Location)
	var result overtime.TickResult
	for _, rec := range sessions {
		loc := s.locationFor(ctx, rec, locations)
		action := s.schedule.Decide(overtime.Prompt{
			State:      rec.OvertimeState,
			ClockIn:    rec.ClockInTime,
			PromptedAt: rec.OvertimePromptedAt,
		}, loc, now)

		switch action {
		case overtime.ActionPrompt:
			if err := s.prompt(ctx, rec, now); err != nil {
				if !errors.Is(err, overtime.ErrStateConflict) {
					result.Failed++
					slog.Error("failed to prompt overtime", "attendance_id", rec.ID, "error", err)
				}
				continue
			}
			result.Prompted++
		case overtime.ActionAutoDecline:
			if err := s.autoDecline(ctx, rec); err != nil {
				if !errors.Is(err, overtime.ErrStateConflict) {
					result.Failed++
					slog.Error("failed to auto-decline overtime", "attendance_id", rec.ID, "error", err)
				}
				continue
			}
			result.AutoDeclined++
		}
	}
	return result, nil
}

func (s *overtimeServiceImpl) prompt(ctx context.Context, rec attendance.Attendance, now time.Time) error {
	next, err := rec.OvertimeState.Next(overtime.EventPrompt)
	if err != nil {
		return err
	}

	if err := s.attendanceRepo.UpdateOvertime(ctx, attendance.OvertimeTransition{
		AttendanceID: rec.ID,
		From:         rec.OvertimeState,
		To:           next,
		PromptedAt:   &now,
	}); err != nil {
		return err
	}

	deadline := s.schedule.Deadline(now)
	s.notifier.Employee(ctx, rec.CompanyID, rec.EmployeeID, notificationService.Message{
		Type:    notification.TypeOvertimePrompt,
		Title:   "Are you working overtime?",
		Message: fmt.Sprintf("Reply before %s or your session will be closed automatically", deadline.Format("15:04 MST")),
		Data: map[string]interface{}{
			"attendance_id": rec.ID,
			"deadline":      deadline,
		},
	})
	return nil
}

// autoDecline closes an unanswered prompt. The state change and the system
// clock-out commit together; on failure the session stays prompted and the next
// tick retries.
func (s *overtimeServiceImpl) autoDecline(ctx context.Context, rec attendance.Attendance) error {
	next, err := rec.OvertimeState.Next(overtime.EventTimeout)
	if err != nil {
		return err
	}
	deadline := s.schedule.Deadline(*rec.OvertimePromptedAt)
	approved := false
	ref := "overtime-auto-decline:" + rec.ID
	id := rec.ID

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.attendanceRepo.UpdateOvertime(ctx, attendance.OvertimeTransition{
			AttendanceID: rec.ID,
			From:         rec.OvertimeState,
			To:           next,
			PromptedAt:   rec.OvertimePromptedAt,
			RespondedAt:  &deadline,
			Approved:     &approved,
		}); err != nil {
			return err
		}

		_, err := s.attendanceService.ClockOut(ctx, attendance.ClockOutRequest{
			EmployeeID:   rec.EmployeeID,
			CompanyID:    rec.CompanyID,
			AttendanceID: &id,
			Timestamp:    deadline,
			ClientRef:    &ref,
			Source:       attendance.SourceSystem,
		})
		return err
	})
	if err != nil {
		return err
	}

	slog.Info("overtime auto-declined", "attendance_id", rec.ID, "employee_id", rec.EmployeeID, "clock_out", deadline)

	s.notifier.Employee(ctx, rec.CompanyID, rec.EmployeeID, notificationService.Message{
		Type:    notification.TypeOvertimeAutoDeclined,
		Title:   "Clocked out automatically",
		Message: "No overtime response was received, so your session was closed",
		Data: map[string]interface{}{
			"attendance_id": rec.ID,
			"clock_out":     deadline,
		},
	})
	return nil
}

func (s *overtimeServiceImpl) locationFor(ctx context.Context, rec attendance.Attendance, cache map[string]*time.Location) *time.Location {
	if rec.BranchID == nil {
		return s.location
	}
	if loc, ok := cache[*rec.BranchID]; ok {
		return loc
	}

	loc := s.location
	if b, err := s.branchRepo.GetByID(ctx, *rec.BranchID, rec.CompanyID); err == nil {
		loc = b.Location()
	} else {
		slog.Warn("failed to load branch timezone", "branch_id", *rec.BranchID, "error", err)
	}
	cache[*rec.BranchID] = loc
	return loc
}

func apply(rec *attendance.Attendance, t attendance.OvertimeTransition) {
	rec.OvertimeState = t.To
	rec.OvertimePromptedAt = t.PromptedAt
	rec.OvertimeRespondedAt = t.RespondedAt
	rec.OvertimeApproved = t.Approved
	rec.OvertimeStartTime = t.StartTime
}

func name(rec attendance.Attendance) string {
	if rec.EmployeeName != nil {
		return *rec.EmployeeName
	}
	return "An employee"
}
