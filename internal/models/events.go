package models

import (
	"fmt"
	"strings"
	"time"
)

// Unknown is stored for any identity field the source did not provide.
const Unknown = "unknown"

// UnknownLocation is recorded when an address could not be resolved.
const UnknownLocation = "unknown/localhost"

type EventType string

const (
	EventLogin          EventType = "LOGIN"
	EventLoginError     EventType = "LOGIN_ERROR"
	EventLogout         EventType = "LOGOUT"
	EventRegister       EventType = "REGISTER"
	EventCodeToToken    EventType = "CODE_TO_TOKEN"
	EventRefreshToken   EventType = "REFRESH_TOKEN"
	EventUpdatePassword EventType = "UPDATE_PASSWORD"
)

// ParseEventType normalises an event type name. The identity provider
// defines many more types than the ones named here, so any non-empty name
// is accepted.
func ParseEventType(s string) EventType {
	return EventType(strings.ToUpper(strings.TrimSpace(s)))
}

func (t EventType) String() string { return string(t) }

type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
	OperationAction OperationType = "ACTION"
)

func ParseOperationType(s string) (OperationType, error) {
	op := OperationType(strings.ToUpper(strings.TrimSpace(s)))
	switch op {
	case OperationCreate, OperationUpdate, OperationDelete, OperationAction:
		return op, nil
	}
	return "", fmt.Errorf("unknown operation type %q", s)
}

func (o OperationType) String() string { return string(o) }

// AuthEvent is a user-facing authentication event. Optional string fields
// use "" for absent.
type AuthEvent struct {
	Type      EventType `json:"type" validate:"required"`
	RealmID   string    `json:"realmId" validate:"required"`
	ClientID  string    `json:"clientId,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	Time      int64     `json:"time" validate:"gte=0"`
	Error     string    `json:"error,omitempty"`
	Details   Details   `json:"details,omitempty"`

	// ResolvedLocation is filled once by the recorder from IPAddress.
	ResolvedLocation string `json:"-"`
}

// Username is the login name carried in the event details, if any.
func (e *AuthEvent) Username() string {
	return e.Details.Get("username")
}

// OccurredAt converts the epoch-millisecond timestamp. A zero timestamp
// means the source did not set one and the current time is used.
func (e *AuthEvent) OccurredAt() time.Time {
	return millisOrNow(e.Time)
}

// AuthDetails identifies the principal that performed an admin operation.
type AuthDetails struct {
	RealmID   string `json:"realmId,omitempty"`
	ClientID  string `json:"clientId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
}

type AdminEvent struct {
	OperationType  OperationType `json:"operationType" validate:"required,oneof=CREATE UPDATE DELETE ACTION"`
	ResourceType   string        `json:"resourceType,omitempty"`
	RealmID        string        `json:"realmId" validate:"required"`
	AuthDetails    AuthDetails   `json:"authDetails"`
	ResourcePath   string        `json:"resourcePath,omitempty"`
	Representation string        `json:"representation,omitempty"`
	Time           int64         `json:"time" validate:"gte=0"`
	Error          string        `json:"error,omitempty"`
}

func (e *AdminEvent) OccurredAt() time.Time {
	return millisOrNow(e.Time)
}

func millisOrNow(ms int64) time.Time {
	if ms <= 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(ms).UTC()
}
