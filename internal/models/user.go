// Package models holds the persisted data structures shared by the
// repositories and services.
package models

import "time"

// Role is the CMS role stored on the user row. Roles form a strict
// hierarchy for the *OrHigher predicates.
type Role string

const (
	RoleSubscriber Role = "subscriber"
	RoleAuthor     Role = "author"
	RoleEditor     Role = "editor"
	RoleAdmin      Role = "admin"
)

// roleRank orders roles for the hierarchy checks. Unknown roles rank
// below subscriber so a corrupted row never gains privileges.
var roleRank = map[Role]int{
	RoleSubscriber: 1,
	RoleAuthor:     2,
	RoleEditor:     3,
	RoleAdmin:      4,
}

// Status is the account lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// User is the security-relevant view of a CMS account. The row is owned
// by the user repository; the services only read it and mutate the
// security fields (attempt counters, lock, remember hash, last login).
type User struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	Role                Role
	Status              Status
	EmailVerified       bool
	FailedLoginAttempts uint
	LockedUntil         *time.Time
	RememberTokenHash   *string
	LastLoginAt         *time.Time
	CreatedAt           time.Time
}

// IsLocked reports whether the account is currently locked out.
// A past lockedUntil counts as unlocked; expiry is evaluated lazily.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// IsActive reports whether the account may authenticate at all.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// HasRole reports whether the user holds exactly the given role.
func (u *User) HasRole(role Role) bool {
	return u.Role == role
}

// HasRoleOrHigher reports whether the user's role ranks at or above the
// given role in the subscriber < author < editor < admin hierarchy.
func (u *User) HasRoleOrHigher(role Role) bool {
	return roleRank[u.Role] >= roleRank[role] && roleRank[u.Role] > 0
}

// IsAdmin reports whether the user is an administrator.
func (u *User) IsAdmin() bool { return u.HasRole(RoleAdmin) }

// IsEditorOrHigher reports whether the user is an editor or an admin.
func (u *User) IsEditorOrHigher() bool { return u.HasRoleOrHigher(RoleEditor) }

// IsAuthorOrHigher reports whether the user is an author, editor or admin.
func (u *User) IsAuthorOrHigher() bool { return u.HasRoleOrHigher(RoleAuthor) }
