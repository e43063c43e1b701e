package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"login-guard/internal/models"
)

func TestNotifySkipsWithoutRecipient(t *testing.T) {
	transport := &recordingTransport{}
	n := NewAlertNotifier(transport, nil, zaptest.NewLogger(t))
	ev := login("u-1", "1.0.16.1")

	for _, profile := range []*models.UserProfile{nil, {UserID: "u-1", Username: "bob"}} {
		if err := n.Notify(context.Background(), profile, ev, "Paris"); err != nil {
			t.Errorf("Notify() error = %v, want nil", err)
		}
	}
	if len(transport.sent) != 0 {
		t.Errorf("sent %d emails, want 0", len(transport.sent))
	}
}

func TestNotifyUsesRealmMailSettings(t *testing.T) {
	transport := &recordingTransport{}
	dir := &fakeDirectory{settings: map[string]models.RealmMailSettings{
		"acme": {RealmID: "acme", From: "security@acme.test", FromDisplayName: "Acme Security"},
	}}
	n := NewAlertNotifier(transport, dir, zaptest.NewLogger(t))

	user := &models.UserProfile{UserID: "u-1", Username: "bob", Email: "bob@acme.test"}
	if err := n.Notify(context.Background(), user, login("u-1", "1.0.16.1"), "Paris"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if got := transport.settings[0].From; got != "security@acme.test" {
		t.Errorf("From = %q, want realm override", got)
	}
}

func TestNotifyWrapsTransportError(t *testing.T) {
	transport := &recordingTransport{err: errBoom}
	n := NewAlertNotifier(transport, nil, zaptest.NewLogger(t))

	user := &models.UserProfile{UserID: "u-1", Email: "bob@acme.test"}
	err := n.Notify(context.Background(), user, login("u-1", "1.0.16.1"), "Paris")
	if !errors.Is(err, models.ErrNotification) {
		t.Errorf("Notify() error = %v, want ErrNotification", err)
	}
}

func TestBuildAlertEmailEscapesHTML(t *testing.T) {
	user := &models.UserProfile{Username: "bob", Email: "bob@acme.test", FirstName: "<b>Bob</b>"}
	ev := login("u-1", "1.0.16.1")
	ev.ResolvedLocation = "Tokyo"

	email, err := BuildAlertEmail(user, ev, `<script>alert(1)</script>`)
	if err != nil {
		t.Fatalf("BuildAlertEmail() error = %v", err)
	}
	if strings.Contains(email.HTMLBody, "<script>") || strings.Contains(email.HTMLBody, "<b>Bob</b>") {
		t.Error("HTML body contains unescaped input")
	}
	if !strings.Contains(email.HTMLBody, "&lt;script&gt;") {
		t.Error("HTML body does not contain the escaped previous location")
	}
	for _, want := range []string{"Email: bob@acme.test", "Username: bob", "Client: account-console", "IP address: 1.0.16.1", "New location: Tokyo"} {
		if !strings.Contains(email.TextBody, want) {
			t.Errorf("text body missing %q", want)
		}
	}
	if email.Subject != "Suspicious sign in detected" {
		t.Errorf("Subject = %q", email.Subject)
	}
}
