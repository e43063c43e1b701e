package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"login-guard/internal/models"
)

type memoryStore struct {
	mu         sync.Mutex
	auth       []models.AuthRecord
	admin      []models.AdminRecord
	writeErr   error
	queryErr   error
	queryCalls int
}

func (s *memoryStore) WriteAuthRecord(_ context.Context, rec models.AuthRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return &models.StoreError{Op: models.OpWrite, Table: "event_14d", Err: s.writeErr}
	}
	s.auth = append(s.auth, rec)
	return nil
}

func (s *memoryStore) WriteAdminRecord(_ context.Context, rec models.AdminRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return &models.StoreError{Op: models.OpWrite, Table: "admin_event_14d", Err: s.writeErr}
	}
	s.admin = append(s.admin, rec)
	return nil
}

// rows are returned in reverse write order, matching the store's ingestion-time ordering
func (s *memoryStore) QueryRecentLogins(_ context.Context, userID string, limit int) ([]models.LocationHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryCalls++
	if s.queryErr != nil {
		return nil, &models.StoreError{Op: models.OpQuery, Table: "event_14d", Err: s.queryErr}
	}
	var out []models.LocationHistoryEntry
	for i := len(s.auth) - 1; i >= 0 && len(out) < limit; i-- {
		rec := s.auth[i]
		if rec.Type != models.EventLogin || rec.UserID != userID {
			continue
		}
		out = append(out, models.LocationHistoryEntry{
			Timestamp: rec.Time,
			IPAddress: rec.IPAddress,
			UserID:    rec.UserID,
			Location:  rec.Location,
		})
	}
	return out, nil
}

type mapResolver struct {
	locations map[string]string
	calls     int
}

func (r *mapResolver) Resolve(_ context.Context, ip string) (string, error) {
	r.calls++
	if loc, ok := r.locations[ip]; ok {
		return loc, nil
	}
	return "", fmt.Errorf("%w: %s", models.ErrResolution, ip)
}

type fakeDirectory struct {
	profiles map[string]*models.UserProfile
	settings map[string]models.RealmMailSettings
	err      error
}

func (d *fakeDirectory) GetUserProfile(_ context.Context, _, userID string) (*models.UserProfile, error) {
	if d.err != nil {
		return nil, d.err
	}
	if p, ok := d.profiles[userID]; ok {
		return p, nil
	}
	return nil, models.ErrUserNotFound
}

func (d *fakeDirectory) GetRealmMailSettings(_ context.Context, realmID string) (models.RealmMailSettings, error) {
	if s, ok := d.settings[realmID]; ok {
		return s, nil
	}
	return models.RealmMailSettings{RealmID: realmID}, nil
}

type recordingTransport struct {
	sent     []models.Email
	settings []models.RealmMailSettings
	err      error
}

func (t *recordingTransport) Send(_ context.Context, email models.Email, settings models.RealmMailSettings) error {
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, email)
	t.settings = append(t.settings, settings)
	return nil
}

type recordingSink struct {
	alerts []models.LoginAlert
	err    error
}

func (s *recordingSink) Name() string { return "memory" }

func (s *recordingSink) Archive(_ context.Context, alert models.LoginAlert) error {
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

type pipeline struct {
	listener  *Listener
	store     *memoryStore
	resolver  *mapResolver
	directory *fakeDirectory
	transport *recordingTransport
	sink      *recordingSink
}

func newPipeline(t *testing.T, cfg ListenerConfig) *pipeline {
	t.Helper()
	logger := zaptest.NewLogger(t)

	p := &pipeline{
		store: &memoryStore{},
		resolver: &mapResolver{locations: map[string]string{
			"81.2.69.160": "Paris",
			"81.2.69.161": "paris",
			"1.0.16.1":    "Tokyo",
		}},
		directory: &fakeDirectory{profiles: map[string]*models.UserProfile{
			"u-alice":  {UserID: "u-alice", RealmID: "acme", Username: "alice", Email: "alice@example.com", FirstName: "Alice"},
			"u-nomail": {UserID: "u-nomail", RealmID: "acme", Username: "nomail"},
		}},
		transport: &recordingTransport{},
		sink:      &recordingSink{},
	}

	recorder := NewEventRecorder(p.store, p.resolver, logger)
	detector := NewAnomalyDetector(p.store, logger)
	notifier := NewAlertNotifier(p.transport, p.directory, logger)
	p.listener = NewListener(cfg, recorder, detector, notifier, p.directory, []AlertSink{p.sink}, logger)
	return p
}

var clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func login(userID, ip string) *models.AuthEvent {
	clock = clock.Add(time.Minute)
	return &models.AuthEvent{
		Type:      models.EventLogin,
		RealmID:   "acme",
		ClientID:  "account-console",
		UserID:    userID,
		IPAddress: ip,
		Time:      clock.UnixMilli(),
		Details:   models.NewDetails("username", "alice", "auth_method", "openid-connect"),
	}
}

var errBoom = errors.New("boom")
