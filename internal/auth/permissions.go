package auth

import (
	"fmt"
	"strings"

	"github.com/amaxoft/portal-gateway/internal/domain"
)

// Resource is a capability target.
type Resource string

const (
	ResourceAny        Resource = "*"
	ResourceUsers      Resource = "users"
	ResourceProfile    Resource = "profile"
	ResourcePayments   Resource = "payments"
	ResourceAnalytics  Resource = "analytics"
	ResourceReports    Resource = "reports"
	ResourceQuotations Resource = "quotations"
	ResourceProjects   Resource = "projects"
	ResourceClients    Resource = "clients"
)

// Action is an operation on a Resource.
type Action string

const (
	ActionAny    Action = "*"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionAssign Action = "assign"
)

var knownResources = map[Resource]struct{}{
	ResourceAny: {}, ResourceUsers: {}, ResourceProfile: {}, ResourcePayments: {},
	ResourceAnalytics: {}, ResourceReports: {}, ResourceQuotations: {}, ResourceProjects: {},
	ResourceClients: {},
}

var knownActions = map[Action]struct{}{
	ActionAny: {}, ActionRead: {}, ActionCreate: {}, ActionUpdate: {}, ActionDelete: {}, ActionAssign: {},
}

// Permission grants Action on Resource; either side may be a wildcard.
type Permission struct {
	Resource Resource
	Action   Action
}

// Perm is shorthand for building a Permission.
func Perm(resource Resource, action Action) Permission {
	return Permission{Resource: resource, Action: action}
}

func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action)
}

// Grants reports whether p covers the requested resource and action.
func (p Permission) Grants(resource Resource, action Action) bool {
	if p.Resource != ResourceAny && p.Resource != resource {
		return false
	}
	return p.Action == ActionAny || p.Action == action
}

// ParsePermission parses "resource:action" against the closed capability set.
func ParsePermission(s string) (Permission, error) {
	resource, action, ok := strings.Cut(s, ":")
	if !ok {
		return Permission{}, fmt.Errorf("permission %q: expected resource:action", s)
	}
	p := Perm(Resource(resource), Action(action))
	if err := p.validate(); err != nil {
		return Permission{}, err
	}
	return p, nil
}

func (p Permission) validate() error {
	if _, ok := knownResources[p.Resource]; !ok {
		return fmt.Errorf("permission %s: unknown resource", p)
	}
	if _, ok := knownActions[p.Action]; !ok {
		return fmt.Errorf("permission %s: unknown action", p)
	}
	return nil
}

var rolePermissions = map[domain.Role][]Permission{
	domain.RoleDiscipulador: {
		Perm(ResourceProfile, ActionRead),
		Perm(ResourceProfile, ActionUpdate),
	},
	domain.RoleSupervisor: {
		Perm(ResourceUsers, ActionRead),
		Perm(ResourceProfile, ActionRead),
		Perm(ResourceProfile, ActionUpdate),
	},
	domain.RoleTesorero: {
		Perm(ResourceUsers, ActionRead),
		Perm(ResourcePayments, ActionRead),
		Perm(ResourcePayments, ActionUpdate),
		Perm(ResourceAnalytics, ActionRead),
		Perm(ResourceReports, ActionRead),
	},
	domain.RoleAdministrativo: {
		Perm(ResourceUsers, ActionRead),
		Perm(ResourceUsers, ActionUpdate),
		Perm(ResourceProfile, ActionRead),
		Perm(ResourceProfile, ActionUpdate),
		Perm(ResourceAnalytics, ActionRead),
		Perm(ResourceReports, ActionRead),
	},
	domain.RolePastor: {
		Perm(ResourceUsers, ActionAny),
		Perm(ResourceProfile, ActionAny),
		Perm(ResourceAnalytics, ActionAny),
		Perm(ResourceReports, ActionAny),
	},
	domain.RoleSuperAdmin: {
		Perm(ResourceAny, ActionAny),
	},
}

// PermissionsFor returns a copy of the permissions granted to role.
func PermissionsFor(role domain.Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether role may perform action on resource.
func HasPermission(role domain.Role, resource Resource, action Action) bool {
	for _, p := range rolePermissions[role] {
		if p.Grants(resource, action) {
			return true
		}
	}
	return false
}

// ValidatePermissionTable ensures every role has an entry and every entry
// names a known capability. It runs once at startup.
func ValidatePermissionTable() error {
	for _, role := range domain.AllRoles {
		perms, ok := rolePermissions[role]
		if !ok || len(perms) == 0 {
			return fmt.Errorf("role %s has no permissions", role)
		}
		for _, p := range perms {
			if err := p.validate(); err != nil {
				return fmt.Errorf("role %s: %w", role, err)
			}
		}
	}
	for role := range rolePermissions {
		if !role.Valid() {
			return fmt.Errorf("permission table names unknown role %s", role)
		}
	}
	return nil
}
