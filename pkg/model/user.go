package model

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// DefaultRoles seeds the role registry of a fresh board.
var DefaultRoles = []string{"admin", "manager", "developer", "designer", "tester"}

var (
	ErrEmptyName    = errors.New("name must not be empty")
	ErrInvalidEmail = errors.New("invalid email")
	ErrUnknownRole  = errors.New("unknown role")
)

// User is a team member tasks can be assigned to.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	// ExternalIdentity is the user's login on the issue tracker.
	ExternalIdentity string `json:"externalIdentity,omitempty"`
}

// Validate checks required fields and that the role is registered.
func (u *User) Validate(roles []string) error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, u.Email)
	}
	for _, r := range roles {
		if strings.EqualFold(r, u.Role) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownRole, u.Role)
}
