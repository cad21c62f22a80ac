package model

import (
	"fmt"
	"time"
)

type Provider string

const (
	ProviderUsers     Provider = "users"
	ProviderEmployees Provider = "employees"
	ProviderManagers  Provider = "managers"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderUsers, ProviderEmployees, ProviderManagers:
		return true
	}
	return false
}

// PrincipalType selects one of the disjoint identity spaces. Every per-type
// difference in the auth pipeline hangs off this value.
type PrincipalType int

const (
	PrincipalUser PrincipalType = iota + 1
	PrincipalEmployee
	PrincipalManager
)

type principalDescriptor struct {
	name        string
	table       string
	provider    Provider
	group       string
	profilePath string
}

var principalDescriptors = map[PrincipalType]principalDescriptor{
	PrincipalUser:     {name: "user", table: "users", provider: ProviderUsers, group: "auth", profilePath: "user"},
	PrincipalEmployee: {name: "employee", table: "employees", provider: ProviderEmployees, group: "employee", profilePath: "info"},
	PrincipalManager:  {name: "manager", table: "managers", provider: ProviderManagers, group: "manager", profilePath: "info"},
}

func PrincipalTypes() []PrincipalType {
	return []PrincipalType{PrincipalUser, PrincipalEmployee, PrincipalManager}
}

func PrincipalTypeForProvider(p Provider) (PrincipalType, bool) {
	for _, t := range PrincipalTypes() {
		if t.Provider() == p {
			return t, true
		}
	}
	return 0, false
}

func (t PrincipalType) Valid() bool {
	_, ok := principalDescriptors[t]
	return ok
}

func (t PrincipalType) String() string {
	if d, ok := principalDescriptors[t]; ok {
		return d.name
	}
	return fmt.Sprintf("PrincipalType(%d)", int(t))
}

func (t PrincipalType) Table() string       { return principalDescriptors[t].table }
func (t PrincipalType) Provider() Provider  { return principalDescriptors[t].provider }
func (t PrincipalType) RouteGroup() string  { return principalDescriptors[t].group }
func (t PrincipalType) ProfilePath() string { return principalDescriptors[t].profilePath }

type Principal struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Avatar       string     `json:"avatar"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

func (p Principal) Trashed() bool {
	return p.DeletedAt != nil
}

type Ability struct {
	Action  string `json:"action"`
	Subject string `json:"subject"`
}

// Profile is the public projection returned by register, login and info endpoints.
type Profile struct {
	ID       int64     `json:"id"`
	FullName string    `json:"fullName"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
	Email    string    `json:"email"`
	Status   string    `json:"status"`
	Role     string    `json:"role,omitempty"`
	Ability  []Ability `json:"ability,omitempty"`
}
