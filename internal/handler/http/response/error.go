package response

import (
	"errors"
	"net/http"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/attendance"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/auth"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/employee"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/escalation"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/geofence"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/master/branch"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/notification"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/overtime"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/syncqueue"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/user"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth and role errors
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, user.ErrOwnerAccessRequired),
		errors.Is(err, user.ErrManagerAccessRequired),
		errors.Is(err, user.ErrEmployeeProfileRequired),
		errors.Is(err, user.ErrCompanyRequired):
		Forbidden(w, err.Error())

	// Attendance domain errors
	case errors.Is(err, attendance.ErrAlreadyClockedIn),
		errors.Is(err, attendance.ErrAlreadyClockedOut),
		errors.Is(err, attendance.ErrDuplicateClientRef):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrNotClockedIn),
		errors.Is(err, attendance.ErrClockOutBeforeIn),
		errors.Is(err, attendance.ErrBranchRequired),
		errors.Is(err, attendance.ErrBreakBelongsToOther),
		errors.Is(err, attendance.ErrInvalidWeekStart):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrBreakNotFound):
		NotFound(w, "Break record not found")
	case errors.Is(err, attendance.ErrRateNotFound):
		NotFound(w, "Overtime rate not found")
	case errors.Is(err, attendance.ErrUnauthorized):
		Forbidden(w, err.Error())

	// Overtime state machine
	case errors.Is(err, overtime.ErrNoOpenSession):
		NotFound(w, err.Error())
	case errors.Is(err, overtime.ErrInvalidTransition),
		errors.Is(err, overtime.ErrNotPrompted),
		errors.Is(err, overtime.ErrAlreadyResponded),
		errors.Is(err, overtime.ErrStateConflict):
		Conflict(w, err.Error())

	// Sync queue
	case errors.Is(err, syncqueue.ErrItemNotFound):
		NotFound(w, "Sync item not found")
	case errors.Is(err, syncqueue.ErrAlreadySynced),
		errors.Is(err, syncqueue.ErrFlushInProgress):
		Conflict(w, err.Error())
	case errors.Is(err, syncqueue.ErrInvalidPayload),
		errors.Is(err, syncqueue.ErrUnsupportedOp):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, syncqueue.ErrUnauthorized):
		Forbidden(w, err.Error())

	// Escalation
	case errors.Is(err, escalation.ErrRuleNotFound):
		NotFound(w, "Escalation rule not found")
	case errors.Is(err, escalation.ErrActiveRuleExists),
		errors.Is(err, escalation.ErrChargeAlreadyAssessed):
		Conflict(w, err.Error())

	// Geofence
	case errors.Is(err, geofence.ErrOutsideAllowedRadius):
		UnprocessableEntity(w, "OUTSIDE_GEOFENCE", err.Error())

	// Branch
	case errors.Is(err, branch.ErrBranchNotFound):
		NotFound(w, "Branch not found")
	case errors.Is(err, branch.ErrBranchNameExists):
		Conflict(w, "Branch with this name already exists")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeInactive):
		Forbidden(w, err.Error())
	case errors.Is(err, employee.ErrUnauthorized):
		Forbidden(w, err.Error())

	// Notification
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")
	case errors.Is(err, notification.ErrInvalidNotificationType):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, notification.ErrQueueFull),
		errors.Is(err, notification.ErrServiceStopped):
		ServiceUnavailable(w, err.Error())

	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
