package models

import (
	"time"
)

// Role represents a user's system-wide role
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ReservedUsername cannot be registered because it collides with /users/me
const ReservedUsername = "me"

// User represents a registered account
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"type:varchar(150);uniqueIndex;not null;check:chk_users_username_reserved,username <> 'me'" json:"username"`
	FirstName    string    `gorm:"type:varchar(150);not null" json:"first_name"`
	LastName     string    `gorm:"type:varchar(150);not null" json:"last_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Avatar       *string   `json:"avatar"` // storage key
	Role         Role      `gorm:"type:varchar(20);default:'user'" json:"role"`
}

// Follow records that Subscriber follows Author
type Follow struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	SubscriberID uint      `gorm:"not null;uniqueIndex:idx_follow_pair" json:"subscriber_id"`
	AuthorID     uint      `gorm:"not null;uniqueIndex:idx_follow_pair;index;check:chk_follows_not_self,subscriber_id <> author_id" json:"author_id"`

	// Relationships
	Subscriber User `gorm:"foreignKey:SubscriberID;constraint:OnDelete:CASCADE" json:"-"`
	Author     User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}
