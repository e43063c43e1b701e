package scylla

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"login-guard/internal/models"
)

// UserDirectory reads user profiles and per-realm mail settings that the
// identity provider synchronises into ScyllaDB.
type UserDirectory struct {
	client *ScyllaClient
	logger *zap.Logger
}

func NewUserDirectory(client *ScyllaClient, logger *zap.Logger) *UserDirectory {
	return &UserDirectory{client: client, logger: logger.Named("user_directory")}
}

// GetUserProfile returns models.ErrUserNotFound when the user is unknown.
func (d *UserDirectory) GetUserProfile(ctx context.Context, realmID, userID string) (*models.UserProfile, error) {
	p := &models.UserProfile{}
	query := d.client.Query(stmtGetUserProfile, realmID, userID)

	err := d.client.ScanWithRetry(ctx, query,
		&p.UserID, &p.RealmID, &p.Username, &p.Email, &p.FirstName, &p.LastName)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		d.logger.Error("Failed to load user profile",
			zap.String("realm_id", realmID),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}
	return p, nil
}

// GetRealmMailSettings returns zero settings when the realm has no override.
func (d *UserDirectory) GetRealmMailSettings(ctx context.Context, realmID string) (models.RealmMailSettings, error) {
	var s models.RealmMailSettings
	query := d.client.Query(stmtGetRealmMailSettings, realmID)

	err := d.client.ScanWithRetry(ctx, query, &s.RealmID, &s.From, &s.FromDisplayName, &s.ReplyTo)
	if errors.Is(err, gocql.ErrNotFound) {
		return models.RealmMailSettings{RealmID: realmID}, nil
	}
	if err != nil {
		return models.RealmMailSettings{RealmID: realmID}, fmt.Errorf("failed to load mail settings: %w", err)
	}
	return s, nil
}
