package service

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"login-guard/internal/models"
)

func TestRecordAuthEventFields(t *testing.T) {
	store := &memoryStore{}
	resolver := &mapResolver{locations: map[string]string{"81.2.69.160": "Paris"}}
	r := NewEventRecorder(store, resolver, zaptest.NewLogger(t))

	ev := login("u-alice", "81.2.69.160")
	if err := r.RecordAuthEvent(context.Background(), ev); err != nil {
		t.Fatalf("RecordAuthEvent() error = %v", err)
	}

	if ev.ResolvedLocation != "Paris" {
		t.Errorf("ResolvedLocation = %q, want Paris", ev.ResolvedLocation)
	}
	rec := store.auth[0]
	if rec.Username != "alice" {
		t.Errorf("Username = %q, want alice", rec.Username)
	}
	if rec.Details != `{"username":"alice","auth_method":"openid-connect"}` {
		t.Errorf("Details = %s", rec.Details)
	}
	if rec.Time.UnixMilli() != ev.Time {
		t.Errorf("Time = %v, want %d ms", rec.Time, ev.Time)
	}
}

func TestRecordAuthEventMissingFields(t *testing.T) {
	store := &memoryStore{}
	r := NewEventRecorder(store, &mapResolver{}, zaptest.NewLogger(t))

	ev := &models.AuthEvent{Type: models.EventLogout, RealmID: "acme"}
	if err := r.RecordAuthEvent(context.Background(), ev); err != nil {
		t.Fatalf("RecordAuthEvent() error = %v", err)
	}

	rec := store.auth[0]
	if rec.ClientID != models.Unknown || rec.UserID != models.Unknown || rec.IPAddress != models.Unknown {
		t.Errorf("record = %+v, want unknown identity fields", rec)
	}
	if rec.Location != models.UnknownLocation {
		t.Errorf("Location = %q, want %q", rec.Location, models.UnknownLocation)
	}
	if rec.Details != "" || rec.Username != "" || rec.Error != "" {
		t.Errorf("optional fields should be empty: %+v", rec)
	}
	if rec.Time.IsZero() {
		t.Error("missing timestamp should default to now")
	}
}
