package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the kind of audited event.
type EventType string

const (
	// EventLoginSuccess is recorded when a session was created.
	EventLoginSuccess EventType = "login_success"
	// EventLoginFailure is recorded for every failed callback.
	EventLoginFailure EventType = "login_failure"
	// EventLogout is recorded when a session was ended.
	EventLogout EventType = "logout"
)

// Event is one audit record.
type Event struct {
	// ID is a random uuid.
	ID uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	// Type is the event type.
	Type EventType `gorm:"type:varchar(20);index;not null"`
	// Subject is the sub claim of the user, empty when the sign in failed before validation.
	Subject string `gorm:"size:255;index"`
	// Kind is the failure kind of a login_failure.
	Kind string `gorm:"size:32"`
	// Reason is the failure reason of a login_failure.
	Reason string `gorm:"size:64"`
	// RemoteAddr is the client address of the request.
	RemoteAddr string `gorm:"size:64"`
	// UserAgent is the User-Agent header of the request.
	UserAgent string `gorm:"size:255"`
	// CreatedAt is set by gorm.
	CreatedAt time.Time `gorm:"index"`
}

// TableName of Event.
func (Event) TableName() string {
	return "audit_events"
}
