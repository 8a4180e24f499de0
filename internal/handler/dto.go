package handler

import (
	"time"

	"github.com/msomdec/userdesk/internal/domain"
)

// UserDTO is the JSON representation of a user. The password hash never
// leaves the server.
type UserDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Photo     string `json:"photo,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Photo:     u.Photo,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// project keeps only the named fields. The id is always kept.
func (d UserDTO) project(fields []string) map[string]any {
	out := map[string]any{"id": d.ID}
	for _, f := range fields {
		switch f {
		case "name":
			out["name"] = d.Name
		case "email":
			out["email"] = d.Email
		case "role":
			out["role"] = d.Role
		case "photo":
			if d.Photo != "" {
				out["photo"] = d.Photo
			}
		case "createdAt":
			out["createdAt"] = d.CreatedAt
		}
	}
	return out
}
