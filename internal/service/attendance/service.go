package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/device"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/employee"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/escalation"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/geofence"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/master/branch"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/notification"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/overtime"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/database"
	notificationService "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/service/notification"
)

// Config holds the attendance rules that are not stored per branch.
type Config struct {
	NightShiftStartHour int
	NightShiftEndHour   int
	DefaultTimezone     string

	Now func() time.Time
}

type AttendanceServiceImpl struct {
	tx             database.Transactor
	attendanceRepo attendance.AttendanceRepository
	breakRepo      attendance.BreakRepository
	weekendRepo    attendance.WeekendConfirmationRepository
	rateRepo       attendance.OvertimeRateRepository
	branchRepo     branch.BranchRepository
	employeeRepo   employee.EmployeeRepository

	geofenceService   geofence.Service
	deviceService     device.Service
	escalationService escalation.Service
	notifier          *notificationService.Notifier

	config   Config
	location *time.Location
}

// Repositories groups the stores the pipeline writes to.
type Repositories struct {
	Attendance          attendance.AttendanceRepository
	Break               attendance.BreakRepository
	WeekendConfirmation attendance.WeekendConfirmationRepository
	OvertimeRate        attendance.OvertimeRateRepository
	Branch              branch.BranchRepository
	Employee            employee.EmployeeRepository
}

func NewAttendanceService(
	tx database.Transactor,
	repos Repositories,
	geofenceService geofence.Service,
	deviceService device.Service,
	escalationService escalation.Service,
	notifier *notificationService.Notifier,
	cfg Config,
) *AttendanceServiceImpl {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil || cfg.DefaultTimezone == "" {
		loc = time.UTC
	}

	return &AttendanceServiceImpl{
		tx:                tx,
		attendanceRepo:    repos.Attendance,
		breakRepo:         repos.Break,
		weekendRepo:       repos.WeekendConfirmation,
		rateRepo:          repos.OvertimeRate,
		branchRepo:        repos.Branch,
		employeeRepo:      repos.Employee,
		geofenceService:   geofenceService,
		deviceService:     deviceService,
		escalationService: escalationService,
		notifier:          notifier,
		config:            cfg,
		location:          loc,
	}
}

var _ attendance.AttendanceService = (*AttendanceServiceImpl)(nil)

// ClockIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ClockIn(ctx context.Context, req attendance.ClockInRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if req.Source == "" {
		req.Source = attendance.SourceOnline
	}

	if req.ClientRef != nil {
		if existing, err := s.attendanceRepo.GetByClientRef(ctx, req.EmployeeID, *req.ClientRef); err != nil {
			return attendance.AttendanceResponse{}, fmt.Errorf("failed to look up client reference: %w", err)
		} else if existing != nil {
			return attendance.ToResponse(*existing), nil
		}
	}

	emp, err := s.activeEmployee(ctx, req.EmployeeID, req.CompanyID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	open, err := s.attendanceRepo.GetOpenSession(ctx, req.EmployeeID)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to check open session: %w", err)
	}
	if open != nil {
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyClockedIn
	}

	record := attendance.Attendance{
		EmployeeID:        req.EmployeeID,
		CompanyID:         req.CompanyID,
		ClockInTime:       req.Timestamp.UTC(),
		ClockInLatitude:   req.Latitude,
		ClockInLongitude:  req.Longitude,
		LocationType:      req.LocationType,
		FieldReason:       req.FieldReason,
		FieldDescription:  req.FieldDescription,
		DeviceFingerprint: req.DeviceFingerprint,
		OvertimeState:     overtime.StateAwaitingPrompt,
		ClientRef:         req.ClientRef,
		Source:            req.Source,
		EmployeeName:      &emp.FullName,
	}

	// Field work still inherits the home branch for timezone and rules.
	branchID := req.BranchID
	if branchID == nil && emp.BranchID != nil {
		branchID = emp.BranchID
	}

	loc := s.location
	var br *branch.Branch
	if branchID != nil {
		b, err := s.getBranch(ctx, *branchID, req.CompanyID)
		if err != nil {
			return attendance.AttendanceResponse{}, err
		}
		br = &b
		loc = b.Location()
		record.BranchID = &b.ID
	}

	var outside *geofence.Evaluation
	if req.LocationType == attendance.LocationOffice {
		if br == nil {
			return attendance.AttendanceResponse{}, attendance.ErrBranchRequired
		}
		ev, err := s.geofenceService.Evaluate(*br, *req.Latitude, *req.Longitude)
		if err != nil {
			return attendance.AttendanceResponse{}, err
		}
		record.IsWithinGeofence = &ev.Within
		record.DistanceFromOffice = &ev.Distance
		if !ev.Within {
			outside = &ev
		}
	}

	record.IsNightShift = attendance.IsNightShift(record.ClockInTime, loc, s.config.NightShiftStartHour, s.config.NightShiftEndHour)

	if req.DeviceFingerprint != nil || req.DeviceAttributes != nil {
		check, err := s.deviceService.Check(ctx, device.CheckRequest{
			EmployeeID:  req.EmployeeID,
			CompanyID:   req.CompanyID,
			Fingerprint: deref(req.DeviceFingerprint),
			Attributes:  req.DeviceAttributes,
		})
		if err != nil {
			// Device identity is advisory and never blocks a clock-in.
			slog.Warn("device check failed", "employee_id", req.EmployeeID, "error", err)
		} else {
			record.DeviceFingerprint = &check.Fingerprint
			record.DeviceChanged = check.Changed
		}
	}

	var (
		created attendance.Attendance
		alert   *geofence.Alert
		charge  *escalation.ChargeResponse
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.attendanceRepo.Create(ctx, record)
		if err != nil {
			return err
		}

		if outside != nil {
			stored, err := s.geofenceService.RecordAlert(ctx, geofence.Alert{
				CompanyID:      created.CompanyID,
				EmployeeID:     created.EmployeeID,
				BranchID:       br.ID,
				AttendanceID:   &created.ID,
				Latitude:       *req.Latitude,
				Longitude:      *req.Longitude,
				DistanceMeters: outside.Distance,
				RadiusMeters:   outside.Radius,
			})
			if err != nil {
				return fmt.Errorf("failed to raise geofence alert: %w", err)
			}
			alert = &stored
		}

		charge, err = s.assessLateArrival(ctx, br, created)
		return err
	})
	if err != nil {
		if errors.Is(err, attendance.ErrDuplicateClientRef) && req.ClientRef != nil {
			existing, lookupErr := s.attendanceRepo.GetByClientRef(ctx, req.EmployeeID, *req.ClientRef)
			if lookupErr == nil && existing != nil {
				return attendance.ToResponse(*existing), nil
			}
		}
		if errors.Is(err, attendance.ErrAlreadyClockedIn) {
			return attendance.AttendanceResponse{}, err
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to clock in: %w", err)
	}
	created.EmployeeName = &emp.FullName

	slog.Info("clocked in",
		"employee_id", created.EmployeeID,
		"attendance_id", created.ID,
		"location_type", created.LocationType,
		"source", created.Source,
		"night_shift", created.IsNightShift,
	)

	s.notifyClockIn(ctx, created, emp)
	if alert != nil {
		s.geofenceService.NotifyAlert(ctx, *alert)
	}
	if charge != nil {
		s.notifyCharge(ctx, created.CompanyID, *charge)
	}

	return attendance.ToResponse(created), nil
}

func (s *AttendanceServiceImpl) assessLateArrival(ctx context.Context, br *branch.Branch, a attendance.Attendance) (*escalation.ChargeResponse, error) {
	if br == nil || br.LateChargeAmount <= 0 {
		return nil, nil
	}
	start, ok := br.WorkStartOn(a.ClockInTime)
	if !ok || !a.ClockInTime.After(start) {
		return nil, nil
	}

	return s.assess(ctx, escalation.AssessRequest{
		CompanyID:     a.CompanyID,
		EmployeeID:    a.EmployeeID,
		ViolationType: escalation.ViolationLateArrival,
		BaseAmount:    br.LateChargeAmount,
		OccurredAt:    a.ClockInTime,
		AttendanceID:  &a.ID,
	})
}

func (s *AttendanceServiceImpl) assessEarlyDeparture(ctx context.Context, a attendance.Attendance) (*escalation.ChargeResponse, error) {
	if a.BranchID == nil || a.ClockOutTime == nil {
		return nil, nil
	}
	br, err := s.getBranch(ctx, *a.BranchID, a.CompanyID)
	if err != nil {
		if errors.Is(err, branch.ErrBranchNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if br.EarlyDepartureChargeAmount <= 0 {
		return nil, nil
	}

	end, ok := br.WorkEndOn(a.ClockInTime)
	if !ok {
		return nil, nil
	}
	// Night shifts end on the following day.
	if !end.After(a.ClockInTime) {
		end = end.AddDate(0, 0, 1)
	}
	if !a.ClockOutTime.Before(end) {
		return nil, nil
	}

	return s.assess(ctx, escalation.AssessRequest{
		CompanyID:     a.CompanyID,
		EmployeeID:    a.EmployeeID,
		ViolationType: escalation.ViolationEarlyDeparture,
		BaseAmount:    br.EarlyDepartureChargeAmount,
		OccurredAt:    *a.ClockOutTime,
		AttendanceID:  &a.ID,
	})
}

func (s *AttendanceServiceImpl) assess(ctx context.Context, req escalation.AssessRequest) (*escalation.ChargeResponse, error) {
	charge, err := s.escalationService.AssessViolation(ctx, req)
	if err != nil {
		if errors.Is(err, escalation.ErrChargeAlreadyAssessed) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to assess %s: %w", req.ViolationType, err)
	}
	return &charge, nil
}

// ClockOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ClockOut(ctx context.Context, req attendance.ClockOutRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if req.Source == "" {
		req.Source = attendance.SourceOnline
	}

	if req.ClientRef != nil {
		if existing, err := s.attendanceRepo.GetByClockOutClientRef(ctx, req.EmployeeID, *req.ClientRef); err != nil {
			return attendance.AttendanceResponse{}, fmt.Errorf("failed to look up client reference: %w", err)
		} else if existing != nil {
			return attendance.ToResponse(*existing), nil
		}
	}

	var (
		closed attendance.Attendance
		charge *escalation.ChargeResponse
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		rec, err := s.resolveSession(ctx, req.EmployeeID, req.CompanyID, req.AttendanceID)
		if err != nil {
			return err
		}
		if !rec.IsOpen() {
			return attendance.ErrAlreadyClockedOut
		}

		out := req.Timestamp.UTC()
		if out.Before(rec.ClockInTime) {
			return attendance.ErrClockOutBeforeIn
		}

		breaks, err := s.breakRepo.ListByAttendance(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("failed to list breaks: %w", err)
		}

		total := attendance.WorkedHours(rec.ClockInTime, out, breaks)
		rec.ClockOutTime = &out
		rec.ClockOutLatitude = req.Latitude
		rec.ClockOutLongitude = req.Longitude
		rec.TotalHours = &total
		rec.ClockOutClientRef = req.ClientRef

		if err := s.applyOvertime(ctx, &rec, out); err != nil {
			return err
		}

		if err := s.attendanceRepo.Close(ctx, rec); err != nil {
			return err
		}
		closed = rec

		// A system close is not the employee leaving early.
		if req.Source == attendance.SourceSystem {
			return nil
		}
		charge, err = s.assessEarlyDeparture(ctx, rec)
		return err
	})
	if err != nil {
		if errors.Is(err, attendance.ErrDuplicateClientRef) && req.ClientRef != nil {
			existing, lookupErr := s.attendanceRepo.GetByClockOutClientRef(ctx, req.EmployeeID, *req.ClientRef)
			if lookupErr == nil && existing != nil {
				return attendance.ToResponse(*existing), nil
			}
		}
		switch {
		case errors.Is(err, attendance.ErrNotClockedIn),
			errors.Is(err, attendance.ErrAlreadyClockedOut),
			errors.Is(err, attendance.ErrClockOutBeforeIn),
			errors.Is(err, attendance.ErrAttendanceNotFound),
			errors.Is(err, attendance.ErrUnauthorized):
			return attendance.AttendanceResponse{}, err
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to clock out: %w", err)
	}

	slog.Info("clocked out",
		"employee_id", closed.EmployeeID,
		"attendance_id", closed.ID,
		"total_hours", deref(closed.TotalHours),
		"overtime_state", closed.OvertimeState,
		"source", req.Source,
	)

	s.notifier.Managers(ctx, closed.CompanyID, closed.EmployeeID, notificationService.Message{
		Type:    notification.TypeAttendanceClockOut,
		Title:   "Clock-out",
		Message: fmt.Sprintf("%s clocked out after %.2f hours", employeeName(closed), deref(closed.TotalHours)),
		Data: map[string]interface{}{
			"attendance_id": closed.ID,
			"employee_id":   closed.EmployeeID,
			"source":        string(req.Source),
		},
	})
	if charge != nil {
		s.notifyCharge(ctx, closed.CompanyID, *charge)
	}

	return attendance.ToResponse(closed), nil
}

// applyOvertime derives overtime hours and pay for an approved session.
func (s *AttendanceServiceImpl) applyOvertime(ctx context.Context, rec *attendance.Attendance, out time.Time) error {
	if rec.OvertimeState != overtime.StateApproved || rec.OvertimeStartTime == nil {
		return nil
	}

	hours := attendance.OvertimeHours(*rec.OvertimeStartTime, out)
	amount := 0.0
	rate, err := s.rateRepo.Get(ctx, rec.CompanyID, rec.IsNightShift)
	if err != nil {
		return fmt.Errorf("failed to get overtime rate: %w", err)
	}
	if rate != nil {
		amount = math.Round(hours*rate.HourlyRate*100) / 100
	} else {
		slog.Warn("no overtime rate configured", "company_id", rec.CompanyID, "night_shift", rec.IsNightShift)
	}

	rec.OvertimeHours = &hours
	rec.OvertimeAmount = &amount
	return nil
}

// resolveSession returns the referenced session, or the open one when id is nil.
func (s *AttendanceServiceImpl) resolveSession(ctx context.Context, employeeID, companyID string, id *string) (attendance.Attendance, error) {
	if id == nil {
		open, err := s.attendanceRepo.GetOpenSession(ctx, employeeID)
		if err != nil {
			return attendance.Attendance{}, fmt.Errorf("failed to get open session: %w", err)
		}
		if open == nil {
			return attendance.Attendance{}, attendance.ErrNotClockedIn
		}
		return *open, nil
	}

	rec, err := s.attendanceRepo.GetByID(ctx, *id, companyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.Attendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance: %w", err)
	}
	if rec.EmployeeID != employeeID {
		return attendance.Attendance{}, attendance.ErrUnauthorized
	}
	return rec, nil
}

// StartBreak implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) StartBreak(ctx context.Context, req attendance.BreakRequest) (attendance.BreakResponse, error) {
	return s.recordBreak(ctx, req, func(b *attendance.Break, at time.Time) { b.BreakStart = &at })
}

// EndBreak implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) EndBreak(ctx context.Context, req attendance.BreakRequest) (attendance.BreakResponse, error) {
	return s.recordBreak(ctx, req, func(b *attendance.Break, at time.Time) { b.BreakEnd = &at })
}

// recordBreak upserts one end of a break. Start and end may arrive in either
// order, so both create the row when it is missing.
func (s *AttendanceServiceImpl) recordBreak(ctx context.Context, req attendance.BreakRequest, set func(*attendance.Break, time.Time)) (attendance.BreakResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.BreakResponse{}, err
	}

	companyID := req.CompanyID
	if companyID == "" {
		emp, err := s.employeeRepo.GetByID(ctx, req.EmployeeID)
		if err != nil {
			return attendance.BreakResponse{}, employeeLookupError(err)
		}
		companyID = emp.CompanyID
	}

	session, err := s.resolveSession(ctx, req.EmployeeID, companyID, req.AttendanceID)
	if err != nil {
		return attendance.BreakResponse{}, err
	}

	existing, err := s.breakRepo.GetByID(ctx, req.BreakID)
	if err != nil {
		return attendance.BreakResponse{}, fmt.Errorf("failed to get break: %w", err)
	}

	b := attendance.Break{
		ID:           req.BreakID,
		AttendanceID: session.ID,
		EmployeeID:   session.EmployeeID,
		CompanyID:    session.CompanyID,
	}
	if existing != nil {
		if existing.AttendanceID != session.ID {
			return attendance.BreakResponse{}, attendance.ErrBreakBelongsToOther
		}
		b = *existing
	}

	set(&b, req.Timestamp.UTC())
	b.ComputeDuration()

	saved, err := s.breakRepo.Upsert(ctx, b)
	if err != nil {
		return attendance.BreakResponse{}, fmt.Errorf("failed to save break: %w", err)
	}
	return attendance.ToBreakResponse(saved), nil
}

// ConfirmWeekendWork implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ConfirmWeekendWork(ctx context.Context, req attendance.WeekendConfirmationRequest) (attendance.WeekendConfirmationResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.WeekendConfirmationResponse{}, err
	}
	weekStart, _ := time.Parse("2006-01-02", req.WeekStart)

	saved, err := s.weekendRepo.Upsert(ctx, attendance.WeekendConfirmation{
		EmployeeID:  req.EmployeeID,
		CompanyID:   req.CompanyID,
		WeekStart:   weekStart,
		Saturday:    req.Saturday,
		Sunday:      req.Sunday,
		ConfirmedAt: s.config.Now(),
	})
	if err != nil {
		return attendance.WeekendConfirmationResponse{}, fmt.Errorf("failed to save weekend confirmation: %w", err)
	}

	s.notifier.Managers(ctx, req.CompanyID, req.EmployeeID, notificationService.Message{
		Type:    notification.TypeWeekendWorkConfirmed,
		Title:   "Weekend work confirmed",
		Message: fmt.Sprintf("Weekend of %s: Saturday %s, Sunday %s", req.WeekStart, yesNo(req.Saturday), yesNo(req.Sunday)),
		Data: map[string]interface{}{
			"employee_id": req.EmployeeID,
			"week_start":  req.WeekStart,
			"saturday":    req.Saturday,
			"sunday":      req.Sunday,
		},
	})

	return toWeekendResponse(saved), nil
}

// ListWeekendConfirmations implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListWeekendConfirmations(ctx context.Context, employeeID string) ([]attendance.WeekendConfirmationResponse, error) {
	confirmations, err := s.weekendRepo.ListByEmployee(ctx, employeeID, 12)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekend confirmations: %w", err)
	}

	responses := make([]attendance.WeekendConfirmationResponse, len(confirmations))
	for i, c := range confirmations {
		responses[i] = toWeekendResponse(c)
	}
	return responses, nil
}

// GetOpenSession implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetOpenSession(ctx context.Context, employeeID string) (*attendance.AttendanceResponse, error) {
	open, err := s.attendanceRepo.GetOpenSession(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}
	if open == nil {
		return nil, nil
	}

	resp, err := s.withBreaks(ctx, *open)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetAttendance(ctx context.Context, id string, companyID string) (attendance.AttendanceResponse, error) {
	rec, err := s.attendanceRepo.GetByID(ctx, id, companyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.AttendanceResponse{}, attendance.ErrAttendanceNotFound
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get attendance: %w", err)
	}
	return s.withBreaks(ctx, rec)
}

func (s *AttendanceServiceImpl) withBreaks(ctx context.Context, rec attendance.Attendance) (attendance.AttendanceResponse, error) {
	breaks, err := s.breakRepo.ListByAttendance(ctx, rec.ID)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to list breaks: %w", err)
	}

	resp := attendance.ToResponse(rec)
	for _, b := range breaks {
		resp.Breaks = append(resp.Breaks, attendance.ToBreakResponse(b))
	}
	return resp, nil
}

// ListAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListAttendance(ctx context.Context, filter attendance.Filter) (attendance.ListAttendanceResponse, error) {
	filter.Normalize()

	records, total, err := s.attendanceRepo.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, len(records))
	for i, r := range records {
		responses[i] = attendance.ToResponse(r)
	}

	return attendance.ListAttendanceResponse{
		Attendances: responses,
		TotalCount:  total,
		Page:        filter.Page,
		PageSize:    filter.PageSize,
	}, nil
}

// SetOvertimeRate implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) SetOvertimeRate(ctx context.Context, req attendance.SetOvertimeRateRequest) (attendance.OvertimeRateResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.OvertimeRateResponse{}, err
	}

	saved, err := s.rateRepo.Upsert(ctx, attendance.OvertimeRate{
		CompanyID:    req.CompanyID,
		IsNightShift: req.IsNightShift,
		HourlyRate:   req.HourlyRate,
	})
	if err != nil {
		return attendance.OvertimeRateResponse{}, fmt.Errorf("failed to save overtime rate: %w", err)
	}
	return attendance.OvertimeRateResponse{IsNightShift: saved.IsNightShift, HourlyRate: saved.HourlyRate}, nil
}

// ListOvertimeRates implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListOvertimeRates(ctx context.Context, companyID string) ([]attendance.OvertimeRateResponse, error) {
	rates, err := s.rateRepo.List(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list overtime rates: %w", err)
	}

	responses := make([]attendance.OvertimeRateResponse, len(rates))
	for i, r := range rates {
		responses[i] = attendance.OvertimeRateResponse{IsNightShift: r.IsNightShift, HourlyRate: r.HourlyRate}
	}
	return responses, nil
}

// CloseStaleSessions implements attendance.AttendanceService. Each session is
// closed at clock-in plus maxOpen so forgotten clock-outs do not accrue hours.
func (s *AttendanceServiceImpl) CloseStaleSessions(ctx context.Context, maxOpen time.Duration) (int, error) {
	stale, err := s.attendanceRepo.ListStaleOpen(ctx, s.config.Now().Add(-maxOpen))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale sessions: %w", err)
	}

	closed := 0
	for _, rec := range stale {
		id := rec.ID
		ref := "auto-close:" + rec.ID
		_, err := s.ClockOut(ctx, attendance.ClockOutRequest{
			EmployeeID:   rec.EmployeeID,
			CompanyID:    rec.CompanyID,
			AttendanceID: &id,
			Timestamp:    rec.ClockInTime.Add(maxOpen),
			ClientRef:    &ref,
			Source:       attendance.SourceSystem,
		})
		if err != nil {
			if errors.Is(err, attendance.ErrAlreadyClockedOut) {
				continue
			}
			slog.Error("failed to auto-close attendance", "attendance_id", rec.ID, "error", err)
			continue
		}
		closed++

		s.notifier.Employee(ctx, rec.CompanyID, rec.EmployeeID, notificationService.Message{
			Type:    notification.TypeAttendanceAutoClosed,
			Title:   "Attendance closed automatically",
			Message: fmt.Sprintf("Your session from %s was closed because no clock-out was recorded", rec.ClockInTime.Format(time.RFC3339)),
			Data:    map[string]interface{}{"attendance_id": rec.ID},
		})
	}
	return closed, nil
}

func (s *AttendanceServiceImpl) activeEmployee(ctx context.Context, employeeID, companyID string) (employee.Employee, error) {
	emp, err := s.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		return employee.Employee{}, employeeLookupError(err)
	}
	if emp.CompanyID != companyID {
		return employee.Employee{}, employee.ErrUnauthorized
	}
	if !emp.IsActive() {
		return employee.Employee{}, employee.ErrEmployeeInactive
	}
	return emp, nil
}

func (s *AttendanceServiceImpl) getBranch(ctx context.Context, id, companyID string) (branch.Branch, error) {
	b, err := s.branchRepo.GetByID(ctx, id, companyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, branch.ErrBranchNotFound) {
			return branch.Branch{}, branch.ErrBranchNotFound
		}
		return branch.Branch{}, fmt.Errorf("failed to get branch: %w", err)
	}
	return b, nil
}

func (s *AttendanceServiceImpl) notifyClockIn(ctx context.Context, a attendance.Attendance, emp employee.Employee) {
	data := map[string]interface{}{
		"attendance_id": a.ID,
		"employee_id":   a.EmployeeID,
		"location_type": string(a.LocationType),
	}
	if a.IsWithinGeofence != nil {
		data["is_within_geofence"] = *a.IsWithinGeofence
	}

	s.notifier.Managers(ctx, a.CompanyID, a.EmployeeID, notificationService.Message{
		Type:    notification.TypeAttendanceClockIn,
		Title:   "Clock-in",
		Message: fmt.Sprintf("%s clocked in (%s)", emp.FullName, a.LocationType),
		Data:    data,
	})

	if a.DeviceChanged {
		s.notifier.Managers(ctx, a.CompanyID, a.EmployeeID, notificationService.Message{
			Type:    notification.TypeDeviceChanged,
			Title:   "New device detected",
			Message: fmt.Sprintf("%s clocked in from a different device", emp.FullName),
			Data: map[string]interface{}{
				"attendance_id": a.ID,
				"employee_id":   a.EmployeeID,
			},
		})
	}
}

func (s *AttendanceServiceImpl) notifyCharge(ctx context.Context, companyID string, c escalation.ChargeResponse) {
	s.notifier.Employee(ctx, companyID, c.EmployeeID, notificationService.Message{
		Type:    notification.TypeChargeApplied,
		Title:   "Attendance charge applied",
		Message: fmt.Sprintf("A %s charge of %.2f (x%.1f) was recorded", c.ViolationType, c.Amount, c.Multiplier),
		Data: map[string]interface{}{
			"charge_id":      c.ID,
			"violation_type": string(c.ViolationType),
			"amount":         c.Amount,
			"multiplier":     c.Multiplier,
		},
	})
}

func employeeLookupError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, employee.ErrEmployeeNotFound) {
		return employee.ErrEmployeeNotFound
	}
	return fmt.Errorf("failed to get employee: %w", err)
}

func toWeekendResponse(c attendance.WeekendConfirmation) attendance.WeekendConfirmationResponse {
	return attendance.WeekendConfirmationResponse{
		WeekStart:   c.WeekStart.Format("2006-01-02"),
		Saturday:    c.Saturday,
		Sunday:      c.Sunday,
		ConfirmedAt: c.ConfirmedAt,
	}
}

func employeeName(a attendance.Attendance) string {
	if a.EmployeeName != nil {
		return *a.EmployeeName
	}
	return "An employee"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
