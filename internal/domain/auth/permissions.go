package auth

import "context"

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleHR       = "hr"
)

const (
	PermEligibilityEvaluate = "eligibility.evaluate"
	PermCyclesRead          = "cycles.read"
	PermCyclesManage        = "cycles.manage"
	PermGoalsRead           = "goals.read"
	PermGoalsWrite          = "goals.write"
	PermGoalsApprove        = "goals.approve"
	PermAppraisalsRead      = "appraisals.read"
	PermAppraisalsWrite     = "appraisals.write"
	PermAppraisalsAdmin     = "appraisals.admin"
	PermNotificationsRead   = "notifications.read"
)

var Roles = []string{RoleEmployee, RoleManager, RoleHR}

var DefaultPermissions = []string{
	PermEligibilityEvaluate,
	PermCyclesRead,
	PermCyclesManage,
	PermGoalsRead,
	PermGoalsWrite,
	PermGoalsApprove,
	PermAppraisalsRead,
	PermAppraisalsWrite,
	PermAppraisalsAdmin,
	PermNotificationsRead,
}

// Employees hold PermGoalsApprove so they can decide on goals others set
// for them; the goals service narrows who may decide on each goal.
var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermCyclesRead,
		PermGoalsRead,
		PermGoalsWrite,
		PermGoalsApprove,
		PermAppraisalsRead,
		PermAppraisalsWrite,
		PermNotificationsRead,
	},
	RoleManager: {
		PermEligibilityEvaluate,
		PermCyclesRead,
		PermGoalsRead,
		PermGoalsWrite,
		PermGoalsApprove,
		PermAppraisalsRead,
		PermAppraisalsWrite,
		PermNotificationsRead,
	},
	RoleHR: {
		PermEligibilityEvaluate,
		PermCyclesRead,
		PermCyclesManage,
		PermGoalsRead,
		PermGoalsWrite,
		PermGoalsApprove,
		PermAppraisalsRead,
		PermAppraisalsWrite,
		PermAppraisalsAdmin,
		PermNotificationsRead,
	},
}

// UserContext is the authenticated caller attached to a request.
type UserContext struct {
	UserID   string
	RoleName string
}

func (u UserContext) IsHR() bool {
	return u.RoleName == RoleHR
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	for _, perm := range RolePermissions[role] {
		if perm == permission {
			return true, nil
		}
	}
	return false, nil
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
