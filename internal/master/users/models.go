package users

import (
	"errors"
	"time"

	"helpdesk/internal/auditlog"
	"helpdesk/pkg/roles"

	"github.com/doug-martin/goqu/v9"
)

var (
	ErrNotFound      = errors.New("profile not found")
	ErrInvalidRole   = errors.New("invalid role")
	ErrWeakPassword  = errors.New("password must be at least 6 characters long")
	ErrWrongPassword = errors.New("current password is incorrect")
	ErrSelfDelete    = errors.New("cannot delete your own profile")
)

const minPasswordLength = 6

type Profile struct {
	ID           int        `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	FullName     string     `json:"full_name" db:"full_name"`
	Email        *string    `json:"email,omitempty" db:"email"`
	Phone        *string    `json:"phone,omitempty" db:"phone"`
	Role         roles.Role `json:"role" db:"role"`
	Department   *string    `json:"department,omitempty" db:"department"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	PasswordHash string     `json:"-" db:"password_hash"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

func (p *Profile) CreateLogView() auditlog.Entry {
	return auditlog.Entry{ResourceID: p.ID, ResourceType: "profile"}
}

func (p *Profile) PhoneNumber() string {
	if p.Phone == nil {
		return ""
	}
	return *p.Phone
}

type CreateProfileRequest struct {
	Username   string     `json:"username" binding:"required,min=3"`
	Password   string     `json:"password" binding:"required"`
	FullName   string     `json:"full_name" binding:"required"`
	Email      *string    `json:"email" binding:"omitempty,email"`
	Phone      *string    `json:"phone"`
	Role       roles.Role `json:"role" binding:"required"`
	Department *string    `json:"department"`
}

type UpdateProfileRequest struct {
	FullName   *string     `json:"full_name"`
	Email      *string     `json:"email" binding:"omitempty,email"`
	Phone      *string     `json:"phone"`
	Role       *roles.Role `json:"role"`
	Department *string     `json:"department"`
	IsActive   *bool       `json:"is_active"`
	Password   *string     `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type ProfileFilter struct {
	Role   string
	Active *bool
	Search string
}

// ProfileChanges holds only the columns that are actually modified.
type ProfileChanges struct {
	FullName     *string
	Email        *string
	Phone        *string
	Role         *roles.Role
	Department   *string
	IsActive     *bool
	PasswordHash *string
}

func (c *ProfileChanges) HasChanges() bool {
	return c.FullName != nil || c.Email != nil || c.Phone != nil || c.Role != nil ||
		c.Department != nil || c.IsActive != nil || c.PasswordHash != nil
}

func (c *ProfileChanges) Record(now time.Time) goqu.Record {
	record := goqu.Record{"updated_at": now}
	if c.FullName != nil {
		record["full_name"] = *c.FullName
	}
	if c.Email != nil {
		record["email"] = *c.Email
	}
	if c.Phone != nil {
		record["phone"] = *c.Phone
	}
	if c.Role != nil {
		record["role"] = string(*c.Role)
	}
	if c.Department != nil {
		record["department"] = *c.Department
	}
	if c.IsActive != nil {
		record["is_active"] = *c.IsActive
	}
	if c.PasswordHash != nil {
		record["password_hash"] = *c.PasswordHash
	}
	return record
}
