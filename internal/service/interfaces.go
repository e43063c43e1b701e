package service

import (
	"context"

	"login-guard/internal/models"
)

// LocationResolver maps an IP address to a location. Any error means the
// address is unresolved.
type LocationResolver interface {
	Resolve(ctx context.Context, ip string) (string, error)
}

// EventStore is the append-only time-series store behind the pipeline.
type EventStore interface {
	WriteAuthRecord(ctx context.Context, rec models.AuthRecord) error
	WriteAdminRecord(ctx context.Context, rec models.AdminRecord) error
	QueryRecentLogins(ctx context.Context, userID string, limit int) ([]models.LocationHistoryEntry, error)
}

// UserDirectory looks up who to alert and how.
type UserDirectory interface {
	GetUserProfile(ctx context.Context, realmID, userID string) (*models.UserProfile, error)
	GetRealmMailSettings(ctx context.Context, realmID string) (models.RealmMailSettings, error)
}

// MailTransport delivers a rendered email. Empty fields in settings fall
// back to the transport's defaults.
type MailTransport interface {
	Send(ctx context.Context, email models.Email, settings models.RealmMailSettings) error
}

// AlertSink keeps a copy of each anomaly alert.
type AlertSink interface {
	Name() string
	Archive(ctx context.Context, alert models.LoginAlert) error
}
