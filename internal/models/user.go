// Package models defines the persistent records and error types of the application.
package models

import (
	"strings"
	"time"
)

// User is an account. Name is the public handle; until it is claimed it holds
// a provisional email-like identity containing '@'.
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"uniqueIndex;size:255;not null" json:"name"`
	Email     string     `gorm:"size:255" json:"email,omitempty"`
	Password  string     `gorm:"not null" json:"-"`
	Posted    *time.Time `json:"posted,omitempty"`
	Republish bool       `gorm:"not null;default:false" json:"republish"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsProvisional reports whether the user has not chosen a handle yet.
func (u *User) IsProvisional() bool {
	return IsProvisionalHandle(u.Name)
}

// IsProvisionalHandle reports whether name is a provisional (email-like) identity.
func IsProvisionalHandle(name string) bool {
	return strings.Contains(name, "@")
}

// HasPosted reports whether the user currently has a published batch.
func (u *User) HasPosted() bool {
	return u.Posted != nil
}
