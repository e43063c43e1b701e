package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"login-guard/internal/metrics"
	"login-guard/internal/models"
	"login-guard/internal/util"
)

// AlertNotifier emails a user about a login from a new location.
type AlertNotifier struct {
	transport MailTransport
	directory UserDirectory
	logger    *zap.Logger
}

func NewAlertNotifier(transport MailTransport, directory UserDirectory, logger *zap.Logger) *AlertNotifier {
	return &AlertNotifier{transport: transport, directory: directory, logger: logger.Named("notifier")}
}

// Notify sends the suspicious sign in email. A nil profile or a profile
// without an email address is skipped silently. Delivery failures wrap
// models.ErrNotification.
func (n *AlertNotifier) Notify(ctx context.Context, user *models.UserProfile, event *models.AuthEvent, previousLocation string) error {
	if user == nil || user.Email == "" {
		metrics.NotificationsSent.WithLabelValues("skipped").Inc()
		n.logger.Debug("No recipient for login alert", zap.String("user_id", event.UserID))
		return nil
	}

	email, err := BuildAlertEmail(user, event, previousLocation)
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("%w: render: %v", models.ErrNotification, err)
	}

	settings := models.RealmMailSettings{RealmID: event.RealmID}
	if n.directory != nil {
		s, err := n.directory.GetRealmMailSettings(ctx, event.RealmID)
		if err != nil {
			n.logger.Warn("Using default mail settings",
				zap.String("realm_id", event.RealmID),
				zap.Error(err))
		} else {
			settings = s
		}
	}

	if err := n.transport.Send(ctx, email, settings); err != nil {
		metrics.NotificationsSent.WithLabelValues("failed").Inc()
		n.logger.Error("Failed to send login alert",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return fmt.Errorf("%w: %v", models.ErrNotification, err)
	}

	metrics.NotificationsSent.WithLabelValues("sent").Inc()
	n.logger.Info("Login alert sent",
		zap.String("user_id", user.UserID),
		zap.String("realm_id", event.RealmID))
	return nil
}

// BuildAlertEmail renders both bodies for one alert.
func BuildAlertEmail(user *models.UserProfile, event *models.AuthEvent, previousLocation string) (models.Email, error) {
	username := util.ValueOr(user.Username, event.Username())
	data := alertEmailData{
		Name:             util.ValueOr(user.DisplayName(), username),
		Email:            user.Email,
		Username:         username,
		ClientID:         util.ValueOr(event.ClientID, models.Unknown),
		PreviousLocation: previousLocation,
		CurrentLocation:  util.ValueOr(event.ResolvedLocation, models.UnknownLocation),
		IPAddress:        util.ValueOr(event.IPAddress, models.Unknown),
		Time:             event.OccurredAt().Format(time.RFC1123),
	}

	html, err := buildAlertHTML(data)
	if err != nil {
		return models.Email{}, err
	}
	return models.Email{
		To:       user.Email,
		ToName:   util.SanitizeHeader(data.Name),
		Subject:  alertSubject,
		TextBody: buildAlertText(data),
		HTMLBody: html,
	}, nil
}
