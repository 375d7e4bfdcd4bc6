package workflow

import "strings"

// Role identifies the kind of actor invoking an engine operation.
type Role string

// Roles recognised by the engine.
const (
	RoleStudent     Role = "student"
	RoleEmployer    Role = "employer"
	RoleCoordinator Role = "coordinator"
	RoleHead        Role = "head"
	RoleSupervisor  Role = "supervisor"
	RoleSuperadmin  Role = "superadmin"
)

// Actor is the explicit actor context passed into every engine call,
// replacing ambient session lookups.
type Actor struct {
	ID   uint
	Role Role
}

// ParseRole normalises a role tag supplied by the auth collaborator.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	switch role {
	case RoleStudent, RoleEmployer, RoleCoordinator, RoleHead, RoleSupervisor, RoleSuperadmin:
		return role, true
	default:
		return "", false
	}
}

func roleIn(role Role, allowed ...Role) bool {
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
	}
	return false
}
