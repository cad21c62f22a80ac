package service

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"go-multi-auth/internal/model"
)

// RolePolicy is the role and ability set attached to manager profiles.
type RolePolicy struct {
	Role      string
	Abilities []model.Ability
}

type ProfileProjector struct {
	manager RolePolicy
}

func NewProfileProjector(manager RolePolicy) *ProfileProjector {
	return &ProfileProjector{manager: manager}
}

// Project builds the public view of p. An unmapped status is an error.
func (pp *ProfileProjector) Project(t model.PrincipalType, p model.Principal) (model.Profile, error) {
	status, err := p.Status.Label()
	if err != nil {
		return model.Profile{}, fmt.Errorf("project %s %d: %w", t, p.ID, err)
	}

	profile := model.Profile{
		ID:       p.ID,
		FullName: fullName(p.Name),
		Username: p.Name,
		Avatar:   p.Avatar,
		Email:    p.Email,
		Status:   status,
	}

	if t == model.PrincipalManager {
		profile.Role = pp.manager.Role
		profile.Ability = append([]model.Ability(nil), pp.manager.Abilities...)
	}
	return profile, nil
}

// fullName upper-cases the first letter of each word and leaves the rest
// untouched, so "mcDonald" stays "McDonald".
func fullName(name string) string {
	return cases.Title(language.Und, cases.NoLower).String(name)
}
