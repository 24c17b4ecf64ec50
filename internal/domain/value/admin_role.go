package value

import "fmt"

type AdminRole string

const (
	AdminRoleDisputeAgent AdminRole = "dispute_agent"
	AdminRoleSuperAdmin   AdminRole = "super_admin"
)

//nolint:gochecknoglobals
var adminRoleRank = map[AdminRole]int{
	AdminRoleDisputeAgent: 1,
	AdminRoleSuperAdmin:   2, //nolint:mnd
}

func ParseAdminRole(s string) (AdminRole, error) {
	role := AdminRole(s)
	if _, ok := adminRoleRank[role]; !ok {
		return "", fmt.Errorf("unknown admin role %q", s)
	}

	return role, nil
}

func (r AdminRole) String() string {
	return string(r)
}

// Satisfies проверяет, что роль не ниже требуемой. Супер-админ проходит любую проверку.
func (r AdminRole) Satisfies(required AdminRole) bool {
	if r == AdminRoleSuperAdmin {
		return true
	}

	rank, ok := adminRoleRank[r]
	if !ok {
		return false
	}

	return rank >= adminRoleRank[required]
}
