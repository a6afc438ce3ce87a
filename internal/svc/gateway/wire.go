package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
)

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse is the gateway's user record.
type userResponse struct {
	ID          flexibleID    `json:"id"`
	Email       string        `json:"email"`
	FullName    string        `json:"full_name"`
	Role        domain.Role   `json:"role"`
	Roles       []domain.Role `json:"roles"`
	IsSuperuser bool          `json:"is_superuser"`
	Bio         string        `json:"bio"`
	AvatarURL   string        `json:"avatar_url"`
}

func (u userResponse) principal() domain.Principal {
	role := u.Role
	if role == "" {
		role = domain.RoleUser
		if u.IsSuperuser {
			role = domain.RoleAdmin
		}
	}

	return domain.Principal{
		ID:           string(u.ID),
		Email:        u.Email,
		FullName:     u.FullName,
		Role:         role,
		Capabilities: u.Roles,
		Bio:          u.Bio,
		AvatarURL:    u.AvatarURL,
	}
}

// flexibleID accepts both numeric and string identifiers.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*id = ""

		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("unmarshal id: %w", err)
		}

		*id = flexibleID(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unmarshal id: %w", err)
	}

	*id = flexibleID(n.String())

	return nil
}
