package models

import (
	"strings"
	"time"
)

const (
	DefaultRole = "user"
	RoleAdmin   = "admin"
)

type User struct {
	ID            int64
	FullName      string
	Email         string
	Username      string
	PasswordHash  string
	IsActive      bool
	EmailVerified bool
	Role          string   // e.g., "user", "admin"
	Permissions   []string // ordered, as granted
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Identity returns the claims carried by tokens issued for this user
func (u *User) Identity() Identity {
	permissions := u.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	return Identity{
		UserID:      u.ID,
		Username:    u.Username,
		Role:        u.Role,
		Permissions: permissions,
	}
}

// ProfileUpdate enumerates the only fields a user may change on their own profile.
// A nil field is left untouched.
type ProfileUpdate struct {
	FullName *string
	Email    *string
	Username *string
}

// IsEmpty reports whether the update carries no fields
func (p ProfileUpdate) IsEmpty() bool {
	return p.FullName == nil && p.Email == nil && p.Username == nil
}

// Normalized returns a copy with every present field trimmed
func (p ProfileUpdate) Normalized() ProfileUpdate {
	return ProfileUpdate{
		FullName: trimPtr(p.FullName),
		Email:    trimPtr(p.Email),
		Username: trimPtr(p.Username),
	}
}

// BlankField names the first present field that is empty, or "" when none is
func (p ProfileUpdate) BlankField() string {
	switch {
	case p.FullName != nil && *p.FullName == "":
		return "full_name"
	case p.Email != nil && *p.Email == "":
		return "email"
	case p.Username != nil && *p.Username == "":
		return "username"
	}
	return ""
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// UserResponse is the outward view of a user; it never carries the password hash
type UserResponse struct {
	ID            int64    `json:"id"`
	FullName      string   `json:"full_name"`
	Email         string   `json:"email"`
	Username      string   `json:"username"`
	IsActive      bool     `json:"is_active"`
	EmailVerified bool     `json:"email_verified"`
	Role          string   `json:"role"`
	Permissions   []string `json:"permissions"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

// ToResponse strips the password hash and formats timestamps
func (u *User) ToResponse() *UserResponse {
	permissions := u.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	return &UserResponse{
		ID:            u.ID,
		FullName:      u.FullName,
		Email:         u.Email,
		Username:      u.Username,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		Role:          u.Role,
		Permissions:   permissions,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     u.UpdatedAt.Format(time.RFC3339),
	}
}

// NewUser carries the fields accepted when creating an account.
// Password is plaintext and is hashed before it reaches storage.
type NewUser struct {
	FullName    string
	Email       string
	Username    string
	Password    string
	Role        string
	Permissions []string
}

// Normalized returns a copy with the identity fields trimmed. The password is kept verbatim.
func (n NewUser) Normalized() NewUser {
	n.FullName = strings.TrimSpace(n.FullName)
	n.Email = strings.TrimSpace(n.Email)
	n.Username = strings.TrimSpace(n.Username)
	return n
}

// BlankField names the first identity field that is empty, or "" when none is
func (n NewUser) BlankField() string {
	switch {
	case n.FullName == "":
		return "full_name"
	case n.Email == "":
		return "email"
	case n.Username == "":
		return "username"
	}
	return ""
}
