package model

import (
	"fmt"
	"time"
)

// Role is a user's access level. The empty role marks a user who interacted
// with the bot but has not been assigned anything yet.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMaster  Role = "master"
	RoleNone    Role = ""
)

// ParseRole maps a raw token to an assignable Role. The empty role cannot
// be assigned explicitly.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin, RoleManager, RoleMaster:
		return Role(raw), nil
	}
	return RoleNone, fmt.Errorf("unknown role %q", raw)
}

// User is created lazily on first interaction and mutated by admin commands
// or allowlist self-registration.
type User struct {
	ID         int64     `db:"id"`
	TelegramID int64     `db:"telegram_id"`
	Role       Role      `db:"role"`
	City       string    `db:"city"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
}

// HasRole reports whether the user carries the expected role.
func (u User) HasRole(role Role) bool {
	return u.Role == role
}
