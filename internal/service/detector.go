package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"login-guard/internal/metrics"
	"login-guard/internal/models"
)

// AnomalyDetector compares a user's newest login location with the one
// before it. It keeps no state between calls.
type AnomalyDetector struct {
	store  EventStore
	logger *zap.Logger
}

func NewAnomalyDetector(store EventStore, logger *zap.Logger) *AnomalyDetector {
	return &AnomalyDetector{store: store, logger: logger.Named("detector")}
}

// CheckUser must run after the current login was written, so that entry 0
// of the history is that login. On a query failure the decision is
// NoHistory and the error is returned for reporting only.
func (d *AnomalyDetector) CheckUser(ctx context.Context, userID, currentIP string) (models.Decision, error) {
	history, err := d.store.QueryRecentLogins(ctx, userID, models.HistoryWindow)
	if err != nil {
		d.logger.Warn("Login history unavailable, skipping check",
			zap.String("user_id", userID),
			zap.Error(err))
		metrics.AnomalyDecisions.WithLabelValues(models.NoHistory.String()).Inc()
		return models.Decision{Kind: models.NoHistory}, fmt.Errorf("check user %s: %w", userID, err)
	}

	decision := Decide(history)
	metrics.AnomalyDecisions.WithLabelValues(decision.Kind.String()).Inc()

	if decision.IsAnomalous() {
		d.logger.Info("Login location changed",
			zap.String("user_id", userID),
			zap.String("ip", currentIP),
			zap.String("previous_location", decision.PreviousLocation),
			zap.String("current_location", decision.CurrentLocation))
	}
	return decision, nil
}

// Decide applies the rule to a newest-first history. Locations are compared
// case-insensitively; the unknown marker is compared like any other value.
func Decide(history []models.LocationHistoryEntry) models.Decision {
	if len(history) < 2 {
		return models.Decision{Kind: models.NoHistory}
	}
	current, previous := history[0].Location, history[1].Location
	if strings.EqualFold(current, previous) {
		return models.Decision{Kind: models.Consistent}
	}
	return models.AnomalousDecision(previous, current)
}
