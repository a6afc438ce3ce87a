package domain

import (
	"errors"
	"slices"
)

// Role is an authorization tag carried by a principal.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Principal is the authenticated user's identity record.
// Its JSON form is what gets mirrored into durable storage.
type Principal struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"fullName,omitempty"`
	Role         Role   `json:"role,omitempty"`
	Capabilities []Role `json:"capabilities,omitempty"`
	Bio          string `json:"bio,omitempty"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
}

// ErrIncompletePrincipal is returned for a principal record without id or email.
var ErrIncompletePrincipal = errors.New("incomplete principal")

// Validate rejects a principal that cannot identify anybody.
func (p Principal) Validate() error {
	if p.ID == "" || p.Email == "" {
		return ErrIncompletePrincipal
	}

	return nil
}

// EffectiveRole returns the principal's role, defaulting to RoleUser when unset.
func (p Principal) EffectiveRole() Role {
	if p.Role == "" {
		return RoleUser
	}

	return p.Role
}

// HasAnyRole reports whether the principal's role or one of its capability tags
// is among roles.
func (p Principal) HasAnyRole(roles ...Role) bool {
	for _, role := range roles {
		if role == p.EffectiveRole() || slices.Contains(p.Capabilities, role) {
			return true
		}
	}

	return false
}

// ProfilePatch is a partial update of the mutable principal fields.
// Nil fields are left untouched.
type ProfilePatch struct {
	FullName  *string `json:"full_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (pp ProfilePatch) IsEmpty() bool {
	return pp.FullName == nil && pp.Email == nil && pp.Bio == nil && pp.AvatarURL == nil
}

// Apply returns a copy of p with the patch merged in.
func (pp ProfilePatch) Apply(p Principal) Principal {
	if pp.FullName != nil {
		p.FullName = *pp.FullName
	}
	if pp.Email != nil {
		p.Email = *pp.Email
	}
	if pp.Bio != nil {
		p.Bio = *pp.Bio
	}
	if pp.AvatarURL != nil {
		p.AvatarURL = *pp.AvatarURL
	}

	return p
}
