package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of user roles carried in access tokens.
type Role string

const (
	RoleSuperAdmin     Role = "SUPERADMIN"
	RolePastor         Role = "PASTOR"
	RoleSupervisor     Role = "SUPERVISOR"
	RoleDiscipulador   Role = "DISCIPULADOR"
	RoleTesorero       Role = "TESORERO"
	RoleAdministrativo Role = "ADMINISTRATIVO"
)

// AllRoles lists every role the system knows about.
var AllRoles = []Role{
	RoleSuperAdmin,
	RolePastor,
	RoleSupervisor,
	RoleDiscipulador,
	RoleTesorero,
	RoleAdministrativo,
}

// AdministrativeRoles always have dashboard access regardless of purchases.
var AdministrativeRoles = []Role{
	RoleAdministrativo,
	RoleTesorero,
	RolePastor,
	RoleSuperAdmin,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// User is the domain model for portal accounts.
type User struct {
	ID                   string
	CustomID             string
	Email                string
	Name                 *string
	PasswordHash         *string
	Role                 Role
	IsActive             bool
	HasCompletedPurchase bool
	CurrentMembershipID  *string
	CompanyName          *string
	ProfilePhoto         *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

var customIDPrefixes = map[Role]string{
	RoleSuperAdmin:     "SA",
	RolePastor:         "PA",
	RoleSupervisor:     "SU",
	RoleDiscipulador:   "DI",
	RoleTesorero:       "TE",
	RoleAdministrativo: "AD",
}

// CustomIDPrefix is the short code that starts every custom id for r.
func (r Role) CustomIDPrefix() string {
	if p, ok := customIDPrefixes[r]; ok {
		return p
	}
	return "US"
}

// FormatCustomID renders the n-th custom id issued under prefix, e.g. DI-007.
func FormatCustomID(prefix string, n int) string {
	return fmt.Sprintf("%s-%03d", prefix, n)
}

// NewUser is an account about to be registered.
type NewUser struct {
	Email              string
	Name               string
	Phone              string
	PasswordHash       string
	Role               Role
	AcceptedDataPolicy bool
	AcceptedTerms      bool
	AcceptedMarketing  bool
}
