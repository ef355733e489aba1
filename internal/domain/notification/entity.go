package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypeAttendanceClockIn    NotificationType = "attendance_clock_in"
	TypeAttendanceClockOut   NotificationType = "attendance_clock_out"
	TypeAttendanceAutoClosed NotificationType = "attendance_auto_closed"
	TypeOvertimePrompt       NotificationType = "overtime_prompt"
	TypeOvertimeResponded    NotificationType = "overtime_responded"
	TypeOvertimeAutoDeclined NotificationType = "overtime_auto_declined"
	TypeGeofenceViolation    NotificationType = "geofence_violation"
	TypeDeviceChanged        NotificationType = "device_changed"
	TypeChargeApplied        NotificationType = "charge_applied"
	TypeSyncFailed           NotificationType = "sync_failed"
	TypeWeekendWorkConfirmed NotificationType = "weekend_work_confirmed"
)

// AllNotificationTypes returns all available notification types
func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		TypeAttendanceClockIn,
		TypeAttendanceClockOut,
		TypeAttendanceAutoClosed,
		TypeOvertimePrompt,
		TypeOvertimeResponded,
		TypeOvertimeAutoDeclined,
		TypeGeofenceViolation,
		TypeDeviceChanged,
		TypeChargeApplied,
		TypeSyncFailed,
		TypeWeekendWorkConfirmed,
	}
}

func (t NotificationType) IsValid() bool {
	for _, known := range AllNotificationTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Notification represents a notification entity
type Notification struct {
	ID          string
	CompanyID   string
	RecipientID string
	SenderID    *string
	Type        NotificationType
	Title       string
	Message     string
	Data        map[string]interface{}
	IsRead      bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}

// NotificationPreference controls push delivery per notification type.
// In-app notifications are always stored.
type NotificationPreference struct {
	ID               string
	UserID           string
	NotificationType NotificationType
	PushEnabled      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
