package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleOwner, PermissionEscalationManage))
	assert.False(t, HasPermission(RoleManager, PermissionEscalationManage))
	assert.True(t, HasPermission(RoleManager, PermissionSyncManageAll))
	assert.True(t, HasPermission(RoleEmployee, PermissionAttendanceCreate))
	assert.False(t, HasPermission(RoleEmployee, PermissionAttendanceViewAll))
	assert.False(t, HasPermission(Role("pending"), PermissionAttendanceCreate))
}

func TestRole(t *testing.T) {
	assert.True(t, RoleManager.IsManager())
	assert.True(t, RoleOwner.IsManager())
	assert.False(t, RoleEmployee.IsManager())
	assert.False(t, Role("admin").IsValid())
}
