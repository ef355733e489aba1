package user

type Permission string

const (
	// Attendance
	PermissionAttendanceViewOwn Permission = "attendance.view_own"
	PermissionAttendanceCreate  Permission = "attendance.create"
	PermissionAttendanceViewAll Permission = "attendance.view_all"

	// Offline sync queue
	PermissionSyncManageOwn Permission = "sync.manage_own"
	PermissionSyncManageAll Permission = "sync.manage_all"

	// Escalation rules and charges
	PermissionChargeViewOwn    Permission = "charge.view_own"
	PermissionEscalationView   Permission = "escalation.view"
	PermissionEscalationManage Permission = "escalation.manage"

	// Branches, geofences and rates
	PermissionBranchView   Permission = "branch.view"
	PermissionBranchManage Permission = "branch.manage"
	PermissionRateManage   Permission = "rate.manage"

	// Geofence alerts
	PermissionGeofenceAlertView Permission = "geofence_alert.view"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermissionAttendanceViewOwn,
		PermissionAttendanceCreate,
		PermissionAttendanceViewAll,
		PermissionSyncManageOwn,
		PermissionSyncManageAll,
		PermissionChargeViewOwn,
		PermissionEscalationView,
		PermissionEscalationManage,
		PermissionBranchView,
		PermissionBranchManage,
		PermissionRateManage,
		PermissionGeofenceAlertView,
	},
	RoleManager: {
		PermissionAttendanceViewOwn,
		PermissionAttendanceCreate,
		PermissionAttendanceViewAll,
		PermissionSyncManageOwn,
		PermissionSyncManageAll,
		PermissionChargeViewOwn,
		PermissionEscalationView,
		PermissionBranchView,
		PermissionGeofenceAlertView,
	},
	RoleEmployee: {
		PermissionAttendanceViewOwn,
		PermissionAttendanceCreate,
		PermissionSyncManageOwn,
		PermissionChargeViewOwn,
		PermissionBranchView,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
