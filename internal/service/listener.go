package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"login-guard/internal/metrics"
	"login-guard/internal/models"
)

// Listener runs every incoming event through exclusion, recording and, for
// logins, the location check and alerting.
type Listener struct {
	recorder       *EventRecorder
	detector       *AnomalyDetector
	notifier       *AlertNotifier
	directory      UserDirectory
	sinks          []AlertSink
	excludedEvents map[models.EventType]struct{}
	excludedOps    map[models.OperationType]struct{}
	eventTimeout   time.Duration
	logger         *zap.Logger
}

type ListenerConfig struct {
	ExcludedEvents     []models.EventType
	ExcludedOperations []models.OperationType
	EventTimeout       time.Duration
}

func NewListener(
	cfg ListenerConfig,
	recorder *EventRecorder,
	detector *AnomalyDetector,
	notifier *AlertNotifier,
	directory UserDirectory,
	sinks []AlertSink,
	logger *zap.Logger,
) *Listener {
	l := &Listener{
		recorder:       recorder,
		detector:       detector,
		notifier:       notifier,
		directory:      directory,
		sinks:          sinks,
		excludedEvents: make(map[models.EventType]struct{}, len(cfg.ExcludedEvents)),
		excludedOps:    make(map[models.OperationType]struct{}, len(cfg.ExcludedOperations)),
		eventTimeout:   cfg.EventTimeout,
		logger:         logger.Named("listener"),
	}
	for _, t := range cfg.ExcludedEvents {
		l.excludedEvents[t] = struct{}{}
	}
	for _, op := range cfg.ExcludedOperations {
		l.excludedOps[op] = struct{}{}
	}
	if l.eventTimeout <= 0 {
		l.eventTimeout = 30 * time.Second
	}
	return l
}

// OnEvent processes one auth event. It never fails; problems are reported
// in the returned Outcome.
func (l *Listener) OnEvent(ctx context.Context, event *models.AuthEvent) Outcome {
	var out Outcome

	if _, ok := l.excludedEvents[event.Type]; ok {
		out.Excluded = true
		metrics.EventsExcluded.WithLabelValues("event", event.Type.String()).Inc()
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, l.eventTimeout)
	defer cancel()

	if err := l.recorder.RecordAuthEvent(ctx, event); err != nil {
		// without the write the newest history row is not this login
		l.fail(&out, "store_write", err)
		return out
	}
	out.Recorded = true

	if event.Type != models.EventLogin {
		return out
	}
	if event.UserID == "" {
		l.logger.Debug("Login without user id, skipping check", zap.String("realm_id", event.RealmID))
		return out
	}

	decision, err := l.detector.CheckUser(ctx, event.UserID, event.IPAddress)
	out.Checked = true
	out.Decision = decision
	if err != nil {
		l.fail(&out, "store_query", err)
	}

	if decision.IsAnomalous() {
		l.raiseAlert(ctx, event, decision, &out)
	}
	return out
}

// OnAdminEvent records an admin operation unless its type is excluded.
func (l *Listener) OnAdminEvent(ctx context.Context, event *models.AdminEvent, includeRepresentation bool) Outcome {
	var out Outcome

	if _, ok := l.excludedOps[event.OperationType]; ok {
		out.Excluded = true
		metrics.EventsExcluded.WithLabelValues("admin_event", event.OperationType.String()).Inc()
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, l.eventTimeout)
	defer cancel()

	if err := l.recorder.RecordAdminEvent(ctx, event, includeRepresentation); err != nil {
		l.fail(&out, "store_write", err)
		return out
	}
	out.Recorded = true
	return out
}

func (l *Listener) raiseAlert(ctx context.Context, event *models.AuthEvent, decision models.Decision, out *Outcome) {
	var profile *models.UserProfile
	if l.directory != nil {
		p, err := l.directory.GetUserProfile(ctx, event.RealmID, event.UserID)
		switch {
		case errors.Is(err, models.ErrUserNotFound):
		case err != nil:
			l.fail(out, "directory", err)
		default:
			profile = p
		}
	}

	if err := l.notifier.Notify(ctx, profile, event, decision.PreviousLocation); err != nil {
		l.fail(out, "notification", err)
	} else {
		out.Notified = profile != nil && profile.Email != ""
	}

	alert := models.LoginAlert{
		ID:               alertID(event),
		RealmID:          event.RealmID,
		UserID:           event.UserID,
		Username:         event.Username(),
		IPAddress:        event.IPAddress,
		PreviousLocation: decision.PreviousLocation,
		CurrentLocation:  decision.CurrentLocation,
		EventTime:        event.OccurredAt(),
		DetectedAt:       time.Now().UTC(),
		Notified:         out.Notified,
	}
	for _, sink := range l.sinks {
		if err := sink.Archive(ctx, alert); err != nil {
			metrics.AlertsArchived.WithLabelValues(sink.Name(), "failed").Inc()
			l.fail(out, "archive", err)
			continue
		}
		metrics.AlertsArchived.WithLabelValues(sink.Name(), "ok").Inc()
	}
}

func (l *Listener) fail(out *Outcome, stage string, err error) {
	metrics.PipelineFailures.WithLabelValues(stage).Inc()
	l.logger.Warn("Event processing degraded", zap.String("stage", stage), zap.Error(err))
	out.addFailure(err)
}

// alertID is stable for a given login, so a redelivered event archives
// under the same id.
func alertID(event *models.AuthEvent) string {
	name := fmt.Sprintf("%s|%s|%s|%s|%d", event.RealmID, event.UserID, event.SessionID, event.IPAddress, event.Time)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
