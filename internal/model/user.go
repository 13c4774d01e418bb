package model

import "time"

// UserID uniquely identifies a user across the system
type UserID string

// ConnectionID identifies a single live real-time connection
type ConnectionID string

// User is the locally cached view of an externally owned identity
type User struct {
	ID          UserID
	DisplayName string
	IsOnline    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
