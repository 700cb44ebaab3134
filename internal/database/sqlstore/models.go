package sqlstore

import "time"

// UserRecord is the persistence model for auth.User.
// Table name: users
type UserRecord struct {
	ID           string    `gorm:"primaryKey;type:text;not null"`
	Email        string    `gorm:"uniqueIndex;type:text;not null"`
	Username     string    `gorm:"type:text;not null"`
	PasswordHash string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (UserRecord) TableName() string { return "users" }

// SessionRecord persistence model
type SessionRecord struct {
	ID        string    `gorm:"primaryKey;type:text;not null"`
	UserID    string    `gorm:"index;type:text;not null"` // references User
	Email     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

func (SessionRecord) TableName() string { return "sessions" }

// RateLimitRecord persistence model
type RateLimitRecord struct {
	Key       string    `gorm:"column:rate_key;primaryKey;type:text;not null"`
	Count     int       `gorm:"not null"`
	WindowEnd time.Time `gorm:"not null"`
}

func (RateLimitRecord) TableName() string { return "rate_limits" }
