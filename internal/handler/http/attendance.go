package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/user"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/handler/http/response"
)

type AttendanceHandler interface {
	ClockIn(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	StartBreak(w http.ResponseWriter, r *http.Request)
	EndBreak(w http.ResponseWriter, r *http.Request)
	GetOpenSession(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	GetMyAttendance(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)

	ConfirmWeekend(w http.ResponseWriter, r *http.Request)
	ListWeekendConfirmations(w http.ResponseWriter, r *http.Request)

	SetOvertimeRate(w http.ResponseWriter, r *http.Request)
	ListOvertimeRates(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// ClockIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req attendance.ClockInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EmployeeID = identity.EmployeeID
	req.CompanyID = identity.CompanyID
	req.Source = attendance.SourceOnline

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.ClockIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Clock in successful", result)
}

// ClockOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req attendance.ClockOutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EmployeeID = identity.EmployeeID
	req.CompanyID = identity.CompanyID
	req.Source = attendance.SourceOnline

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.ClockOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// StartBreak implements AttendanceHandler.
func (h *attendanceHandlerImpl) StartBreak(w http.ResponseWriter, r *http.Request) {
	h.recordBreak(w, r, h.attendanceService.StartBreak, "Break started")
}

// EndBreak implements AttendanceHandler.
func (h *attendanceHandlerImpl) EndBreak(w http.ResponseWriter, r *http.Request) {
	h.recordBreak(w, r, h.attendanceService.EndBreak, "Break ended")
}

func (h *attendanceHandlerImpl) recordBreak(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, req attendance.BreakRequest) (attendance.BreakResponse, error),
	message string,
) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req attendance.BreakRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EmployeeID = identity.EmployeeID
	req.CompanyID = identity.CompanyID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := apply(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, result)
}

// GetOpenSession implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetOpenSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	result, err := h.attendanceService.GetOpenSession(r.Context(), identity.EmployeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if result == nil {
		response.SuccessWithMessage(w, "No open attendance session", nil)
		return
	}

	response.Success(w, result)
}

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	filter, ok := parseAttendanceFilter(w, r)
	if !ok {
		return
	}
	filter.CompanyID = identity.CompanyID
	filter.EmployeeID = getStringQueryParam(r, "employee_id")

	h.list(w, r, filter)
}

// GetMyAttendance implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetMyAttendance(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	filter, ok := parseAttendanceFilter(w, r)
	if !ok {
		return
	}
	filter.CompanyID = identity.CompanyID
	filter.EmployeeID = &identity.EmployeeID

	h.list(w, r, filter)
}

func (h *attendanceHandlerImpl) list(w http.ResponseWriter, r *http.Request, filter attendance.Filter) {
	results, err := h.attendanceService.ListAttendance(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, results.Attendances, meta(results.Page, results.PageSize, results.TotalCount))
}

func parseAttendanceFilter(w http.ResponseWriter, r *http.Request) (attendance.Filter, bool) {
	from, ok := getTimeQueryParam(r, "from")
	if !ok {
		response.BadRequest(w, "from must be RFC 3339 or YYYY-MM-DD", nil)
		return attendance.Filter{}, false
	}
	to, ok := getTimeQueryParam(r, "to")
	if !ok {
		response.BadRequest(w, "to must be RFC 3339 or YYYY-MM-DD", nil)
		return attendance.Filter{}, false
	}

	return attendance.Filter{
		From:     from,
		To:       to,
		OpenOnly: getBoolQueryParam(r, "open_only", false),
		Page:     getIntQueryParam(r, "page", 1),
		PageSize: getIntQueryParam(r, "page_size", 20),
	}, true
}

// Get implements AttendanceHandler. Employees may only read their own rows.
func (h *attendanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	result, err := h.attendanceService.GetAttendance(r.Context(), id, identity.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if !user.HasPermission(identity.Role, user.PermissionAttendanceViewAll) && result.EmployeeID != identity.EmployeeID {
		response.HandleError(w, attendance.ErrUnauthorized)
		return
	}

	response.Success(w, result)
}

// ConfirmWeekend implements AttendanceHandler.
func (h *attendanceHandlerImpl) ConfirmWeekend(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req attendance.WeekendConfirmationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EmployeeID = identity.EmployeeID
	req.CompanyID = identity.CompanyID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.ConfirmWeekendWork(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Weekend work confirmed", result)
}

// ListWeekendConfirmations implements AttendanceHandler.
func (h *attendanceHandlerImpl) ListWeekendConfirmations(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	results, err := h.attendanceService.ListWeekendConfirmations(r.Context(), identity.EmployeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

// SetOvertimeRate implements AttendanceHandler.
func (h *attendanceHandlerImpl) SetOvertimeRate(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req attendance.SetOvertimeRateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = identity.CompanyID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.SetOvertimeRate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Overtime rate saved", result)
}

// ListOvertimeRates implements AttendanceHandler.
func (h *attendanceHandlerImpl) ListOvertimeRates(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	results, err := h.attendanceService.ListOvertimeRates(r.Context(), identity.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}
