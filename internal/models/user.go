package models

import "time"

// Role controls what a user may touch beyond their own accounts.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents application user.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:64;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	DisplayName  string `gorm:"size:64"`
	Role         Role   `gorm:"size:16;not null;default:USER"`

	// PreferredCurrency is the reporting currency every dashboard figure
	// is converted into.
	PreferredCurrency string `gorm:"size:8;not null;default:KRW"`

	CreatedAt time.Time
	UpdatedAt time.Time

	LastLoginAt *time.Time
	LastLoginIP string     `gorm:"size:64"`
	DeletedAt   *time.Time `gorm:"index"`
}

// IsAdmin reports whether the user may act on accounts they do not own.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
