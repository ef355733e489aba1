package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/device"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/employee"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/escalation"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/geofence"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/master/branch"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/notification"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/overtime"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/sse"
)

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ===== ATTENDANCE =====

type memAttendanceRepo struct {
	mu      sync.Mutex
	records map[string]attendance.Attendance
	order   []string
}

func newMemAttendanceRepo() *memAttendanceRepo {
	return &memAttendanceRepo{records: make(map[string]attendance.Attendance)}
}

func (r *memAttendanceRepo) Create(_ context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		existing := r.records[id]
		if existing.EmployeeID != a.EmployeeID {
			continue
		}
		if a.ClientRef != nil && existing.ClientRef != nil && *existing.ClientRef == *a.ClientRef {
			return attendance.Attendance{}, attendance.ErrDuplicateClientRef
		}
		if existing.IsOpen() {
			return attendance.Attendance{}, attendance.ErrAlreadyClockedIn
		}
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.records[a.ID] = a
	r.order = append(r.order, a.ID)
	return a, nil
}

func (r *memAttendanceRepo) GetByID(_ context.Context, id string, companyID string) (attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.records[id]
	if !ok || a.CompanyID != companyID {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	return a, nil
}

func (r *memAttendanceRepo) find(match func(attendance.Attendance) bool) *attendance.Attendance {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if a := r.records[id]; match(a) {
			return &a
		}
	}
	return nil
}

func (r *memAttendanceRepo) GetByClientRef(_ context.Context, employeeID string, clientRef string) (*attendance.Attendance, error) {
	return r.find(func(a attendance.Attendance) bool {
		return a.EmployeeID == employeeID && a.ClientRef != nil && *a.ClientRef == clientRef
	}), nil
}

func (r *memAttendanceRepo) GetByClockOutClientRef(_ context.Context, employeeID string, clientRef string) (*attendance.Attendance, error) {
	return r.find(func(a attendance.Attendance) bool {
		return a.EmployeeID == employeeID && a.ClockOutClientRef != nil && *a.ClockOutClientRef == clientRef
	}), nil
}

func (r *memAttendanceRepo) GetOpenSession(_ context.Context, employeeID string) (*attendance.Attendance, error) {
	return r.find(func(a attendance.Attendance) bool {
		return a.EmployeeID == employeeID && a.IsOpen()
	}), nil
}

func (r *memAttendanceRepo) Close(_ context.Context, a attendance.Attendance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[a.ID]
	if !ok {
		return attendance.ErrAttendanceNotFound
	}
	if !stored.IsOpen() {
		return attendance.ErrAlreadyClockedOut
	}
	r.records[a.ID] = a
	return nil
}

func (r *memAttendanceRepo) UpdateOvertime(_ context.Context, t attendance.OvertimeTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.records[t.AttendanceID]
	if !ok || !a.IsOpen() || a.OvertimeState != t.From {
		return overtime.ErrStateConflict
	}
	a.OvertimeState = t.To
	a.OvertimePromptedAt = t.PromptedAt
	a.OvertimeStartTime = t.StartTime
	a.OvertimeRespondedAt = t.RespondedAt
	a.OvertimeApproved = t.Approved
	r.records[a.ID] = a
	return nil
}

func (r *memAttendanceRepo) all(match func(attendance.Attendance) bool) []attendance.Attendance {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []attendance.Attendance
	for _, id := range r.order {
		if a := r.records[id]; match(a) {
			out = append(out, a)
		}
	}
	return out
}

func (r *memAttendanceRepo) ListOpenInOvertimeFlow(_ context.Context) ([]attendance.Attendance, error) {
	return r.all(func(a attendance.Attendance) bool {
		return a.IsOpen() && !a.OvertimeState.IsTerminal()
	}), nil
}

func (r *memAttendanceRepo) ListStaleOpen(_ context.Context, before time.Time) ([]attendance.Attendance, error) {
	return r.all(func(a attendance.Attendance) bool {
		return a.IsOpen() && a.ClockInTime.Before(before)
	}), nil
}

func (r *memAttendanceRepo) List(_ context.Context, filter attendance.Filter) ([]attendance.Attendance, int64, error) {
	out := r.all(func(a attendance.Attendance) bool {
		if a.CompanyID != filter.CompanyID {
			return false
		}
		if filter.EmployeeID != nil && a.EmployeeID != *filter.EmployeeID {
			return false
		}
		return !filter.OpenOnly || a.IsOpen()
	})
	return out, int64(len(out)), nil
}

type memBreakRepo struct {
	mu     sync.Mutex
	breaks map[string]attendance.Break
}

func newMemBreakRepo() *memBreakRepo {
	return &memBreakRepo{breaks: make(map[string]attendance.Break)}
}

func (r *memBreakRepo) GetByID(_ context.Context, id string) (*attendance.Break, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breaks[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *memBreakRepo) Upsert(_ context.Context, b attendance.Break) (attendance.Break, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breaks[b.ID] = b
	return b, nil
}

func (r *memBreakRepo) ListByAttendance(_ context.Context, attendanceID string) ([]attendance.Break, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []attendance.Break
	for _, b := range r.breaks {
		if b.AttendanceID == attendanceID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memWeekendRepo struct {
	confirmations []attendance.WeekendConfirmation
}

func (r *memWeekendRepo) Upsert(_ context.Context, c attendance.WeekendConfirmation) (attendance.WeekendConfirmation, error) {
	for i, existing := range r.confirmations {
		if existing.EmployeeID == c.EmployeeID && existing.WeekStart.Equal(c.WeekStart) {
			c.ID = existing.ID
			r.confirmations[i] = c
			return c, nil
		}
	}
	c.ID = uuid.NewString()
	r.confirmations = append(r.confirmations, c)
	return c, nil
}

func (r *memWeekendRepo) ListByEmployee(_ context.Context, employeeID string, limit int) ([]attendance.WeekendConfirmation, error) {
	var out []attendance.WeekendConfirmation
	for i := len(r.confirmations) - 1; i >= 0 && len(out) < limit; i-- {
		if r.confirmations[i].EmployeeID == employeeID {
			out = append(out, r.confirmations[i])
		}
	}
	return out, nil
}

type memRateRepo struct {
	rates []attendance.OvertimeRate
}

func (r *memRateRepo) Get(_ context.Context, companyID string, isNightShift bool) (*attendance.OvertimeRate, error) {
	for _, rate := range r.rates {
		if rate.CompanyID == companyID && rate.IsNightShift == isNightShift {
			return &rate, nil
		}
	}
	return nil, nil
}

func (r *memRateRepo) Upsert(_ context.Context, rate attendance.OvertimeRate) (attendance.OvertimeRate, error) {
	for i, existing := range r.rates {
		if existing.CompanyID == rate.CompanyID && existing.IsNightShift == rate.IsNightShift {
			rate.ID = existing.ID
			r.rates[i] = rate
			return rate, nil
		}
	}
	rate.ID = uuid.NewString()
	r.rates = append(r.rates, rate)
	return rate, nil
}

func (r *memRateRepo) List(_ context.Context, companyID string) ([]attendance.OvertimeRate, error) {
	var out []attendance.OvertimeRate
	for _, rate := range r.rates {
		if rate.CompanyID == companyID {
			out = append(out, rate)
		}
	}
	return out, nil
}

// ===== MASTER DATA =====

type memBranchRepo struct {
	branches map[string]branch.Branch
}

func (r *memBranchRepo) Create(_ context.Context, b branch.Branch) (branch.Branch, error) {
	r.branches[b.ID] = b
	return b, nil
}

func (r *memBranchRepo) GetByID(_ context.Context, id string, companyID string) (branch.Branch, error) {
	b, ok := r.branches[id]
	if !ok || b.CompanyID != companyID {
		return branch.Branch{}, branch.ErrBranchNotFound
	}
	return b, nil
}

func (r *memBranchRepo) GetByCompanyID(_ context.Context, companyID string) ([]branch.Branch, error) {
	var out []branch.Branch
	for _, b := range r.branches {
		if b.CompanyID == companyID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBranchRepo) Update(_ context.Context, b branch.Branch) error {
	r.branches[b.ID] = b
	return nil
}

func (r *memBranchRepo) Delete(_ context.Context, id string, _ string) error {
	delete(r.branches, id)
	return nil
}

type memEmployeeRepo struct {
	employees map[string]employee.Employee
}

func (r *memEmployeeRepo) GetByID(_ context.Context, id string) (employee.Employee, error) {
	e, ok := r.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r *memEmployeeRepo) GetManagersByCompanyID(_ context.Context, companyID string) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, e := range r.employees {
		if e.CompanyID == companyID && e.IsManager {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memEmployeeRepo) GetActiveByCompanyID(_ context.Context, companyID string) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, e := range r.employees {
		if e.CompanyID == companyID && e.IsActive() {
			out = append(out, e)
		}
	}
	return out, nil
}

// ===== COLLABORATORS =====

type memAlertRepo struct {
	mu     sync.Mutex
	alerts []geofence.Alert
}

func (r *memAlertRepo) Create(_ context.Context, a geofence.Alert) (geofence.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = uuid.NewString()
	r.alerts = append(r.alerts, a)
	return a, nil
}

func (r *memAlertRepo) List(_ context.Context, _ geofence.AlertFilter) ([]geofence.Alert, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alerts, int64(len(r.alerts)), nil
}

type memDeviceRepo struct {
	devices []device.Device
}

func (r *memDeviceRepo) GetLatest(_ context.Context, employeeID string) (*device.Device, error) {
	var latest *device.Device
	for i := range r.devices {
		d := r.devices[i]
		if d.EmployeeID == employeeID && (latest == nil || !d.LastSeenAt.Before(latest.LastSeenAt)) {
			latest = &d
		}
	}
	return latest, nil
}

func (r *memDeviceRepo) Touch(_ context.Context, d device.Device) (device.Device, error) {
	now := time.Now()
	for i, existing := range r.devices {
		if existing.EmployeeID == d.EmployeeID && existing.Fingerprint == d.Fingerprint {
			r.devices[i].LastSeenAt = now
			return r.devices[i], nil
		}
	}
	d.ID = uuid.NewString()
	d.FirstSeenAt = now
	d.LastSeenAt = now
	r.devices = append(r.devices, d)
	return d, nil
}

func (r *memDeviceRepo) ListByEmployee(_ context.Context, employeeID string) ([]device.Device, error) {
	var out []device.Device
	for _, d := range r.devices {
		if d.EmployeeID == employeeID {
			out = append(out, d)
		}
	}
	return out, nil
}

// fakeEscalation records assessments and charges the base amount.
type fakeEscalation struct {
	escalation.Service

	mu       sync.Mutex
	assessed []escalation.AssessRequest
	err      error
}

func (f *fakeEscalation) AssessViolation(_ context.Context, req escalation.AssessRequest) (escalation.ChargeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assessed = append(f.assessed, req)
	if f.err != nil {
		return escalation.ChargeResponse{}, f.err
	}
	return escalation.ChargeResponse{
		ID:            uuid.NewString(),
		EmployeeID:    req.EmployeeID,
		ViolationType: req.ViolationType,
		BaseAmount:    req.BaseAmount,
		Multiplier:    1,
		Amount:        req.BaseAmount,
		OccurredAt:    req.OccurredAt,
		AttendanceID:  req.AttendanceID,
	}, nil
}

func (f *fakeEscalation) calls() []escalation.AssessRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]escalation.AssessRequest(nil), f.assessed...)
}

// recordingNotifications captures queued notifications.
type recordingNotifications struct {
	notification.Service

	mu   sync.Mutex
	sent []notification.CreateNotificationRequest
}

func (r *recordingNotifications) QueueNotification(_ context.Context, req notification.CreateNotificationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, req)
	return nil
}

func (r *recordingNotifications) QueueBulkNotification(_ context.Context, reqs []notification.CreateNotificationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, reqs...)
	return nil
}

func (r *recordingNotifications) Subscribe(_ context.Context, _ string) (<-chan sse.Event, func()) {
	ch := make(chan sse.Event)
	return ch, func() {}
}

func (r *recordingNotifications) ofType(t notification.NotificationType) []notification.CreateNotificationRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.CreateNotificationRequest
	for _, n := range r.sent {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}
