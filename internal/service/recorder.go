package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"login-guard/internal/metrics"
	"login-guard/internal/models"
	"login-guard/internal/util"
)

// EventRecorder turns events into store rows and writes each one exactly
// once.
type EventRecorder struct {
	store    EventStore
	resolver LocationResolver
	logger   *zap.Logger
}

func NewEventRecorder(store EventStore, resolver LocationResolver, logger *zap.Logger) *EventRecorder {
	return &EventRecorder{store: store, resolver: resolver, logger: logger.Named("recorder")}
}

// RecordAuthEvent resolves the event's location, sets ResolvedLocation and
// writes the row. A resolution failure is not an error: the row is stored
// with models.UnknownLocation.
func (r *EventRecorder) RecordAuthEvent(ctx context.Context, event *models.AuthEvent) error {
	event.ResolvedLocation = r.resolve(ctx, event.IPAddress)

	details, err := event.Details.Encode()
	if err != nil {
		// the event is still worth keeping without its details
		r.logger.Warn("Dropping unencodable event details",
			zap.String("user_id", event.UserID),
			zap.Error(err))
		details = ""
	}

	rec := models.AuthRecord{
		Time:      event.OccurredAt(),
		Type:      event.Type,
		RealmID:   event.RealmID,
		ClientID:  util.ValueOr(event.ClientID, models.Unknown),
		UserID:    util.ValueOr(event.UserID, models.Unknown),
		IPAddress: util.ValueOr(event.IPAddress, models.Unknown),
		Location:  event.ResolvedLocation,
		Error:     event.Error,
		Username:  event.Username(),
		Details:   details,
	}

	if err := r.store.WriteAuthRecord(ctx, rec); err != nil {
		r.logger.Error("Failed to record event",
			zap.String("type", event.Type.String()),
			zap.String("realm_id", event.RealmID),
			zap.String("user_id", rec.UserID),
			zap.Error(err))
		return fmt.Errorf("record %s event: %w", event.Type, err)
	}

	r.logger.Debug("Event recorded",
		zap.String("type", event.Type.String()),
		zap.String("user_id", rec.UserID),
		zap.String("location", rec.Location))
	return nil
}

// RecordAdminEvent writes an admin operation. The representation is kept
// only when includeRepresentation is set.
func (r *EventRecorder) RecordAdminEvent(ctx context.Context, event *models.AdminEvent, includeRepresentation bool) error {
	representation := models.Unknown
	if includeRepresentation && event.Representation != "" {
		representation = event.Representation
	}

	rec := models.AdminRecord{
		Time:           event.OccurredAt(),
		OperationType:  event.OperationType,
		ResourceType:   util.ValueOr(event.ResourceType, models.Unknown),
		RealmID:        event.RealmID,
		ClientID:       util.ValueOr(event.AuthDetails.ClientID, models.Unknown),
		UserID:         util.ValueOr(event.AuthDetails.UserID, models.Unknown),
		IPAddress:      util.ValueOr(event.AuthDetails.IPAddress, models.Unknown),
		ResourcePath:   util.ValueOr(event.ResourcePath, models.Unknown),
		Representation: representation,
		Error:          event.Error,
	}

	if err := r.store.WriteAdminRecord(ctx, rec); err != nil {
		r.logger.Error("Failed to record admin event",
			zap.String("operation", event.OperationType.String()),
			zap.String("realm_id", event.RealmID),
			zap.Error(err))
		return fmt.Errorf("record %s admin event: %w", event.OperationType, err)
	}
	return nil
}

func (r *EventRecorder) resolve(ctx context.Context, ip string) string {
	location, err := r.resolver.Resolve(ctx, ip)
	if err != nil {
		metrics.PipelineFailures.WithLabelValues("resolution").Inc()
		r.logger.Debug("Location unresolved", zap.String("ip", ip), zap.Error(err))
		return models.UnknownLocation
	}
	return location
}
