package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/goccy/go-json"
)

func TestDetailsKeepInsertionOrder(t *testing.T) {
	d := NewDetails("username", "alice", "auth_method", "openid-connect", "redirect_uri", "https://app/cb")

	got, err := d.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := `{"username":"alice","auth_method":"openid-connect","redirect_uri":"https://app/cb"}`
	if got != want {
		t.Errorf("Encode() = %s, want %s", got, want)
	}
}

func TestDetailsEncodeEmpty(t *testing.T) {
	for _, d := range []Details{nil, {}} {
		got, err := d.Encode()
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if got != "" {
			t.Errorf("Encode() = %q, want empty", got)
		}
	}
}

func TestDetailsUnmarshalKeepsDocumentOrder(t *testing.T) {
	var ev AuthEvent
	payload := `{"type":"LOGIN","realmId":"r1","details":{"z":"1","a":"2","remember_me":true,"attempts":3}}`
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	wantKeys := []string{"z", "a", "remember_me", "attempts"}
	if ev.Details.Len() != len(wantKeys) {
		t.Fatalf("Len() = %d, want %d", ev.Details.Len(), len(wantKeys))
	}
	for i, k := range wantKeys {
		if ev.Details[i].Key != k {
			t.Errorf("Details[%d].Key = %q, want %q", i, ev.Details[i].Key, k)
		}
	}
	if ev.Details.Get("remember_me") != "true" || ev.Details.Get("attempts") != "3" {
		t.Errorf("scalar values not kept as text: %+v", ev.Details)
	}
}

func TestDetailsUnmarshalRejectsNested(t *testing.T) {
	var d Details
	if err := json.Unmarshal([]byte(`{"a":{"b":"c"}}`), &d); err == nil {
		t.Error("expected error for nested object")
	}
}

func TestAuthEventUsername(t *testing.T) {
	ev := &AuthEvent{Details: NewDetails("username", "bob")}
	if ev.Username() != "bob" {
		t.Errorf("Username() = %q, want bob", ev.Username())
	}
	if (&AuthEvent{}).Username() != "" {
		t.Error("Username() without details should be empty")
	}
}

func TestParseOperationType(t *testing.T) {
	tests := []struct {
		in      string
		want    OperationType
		wantErr bool
	}{
		{"CREATE", OperationCreate, false},
		{"delete", OperationDelete, false},
		{" action ", OperationAction, false},
		{"PURGE", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOperationType(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOperationType(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestEventTypeValueEquality(t *testing.T) {
	// types built at runtime must compare equal to the constants
	if ParseEventType("login") != EventLogin {
		t.Error("ParseEventType(login) != EventLogin")
	}
}

func TestStoreErrorMatchesTaxonomy(t *testing.T) {
	cause := errors.New("connection refused")
	write := fmt.Errorf("recording: %w", &StoreError{Op: OpWrite, Table: "event_14d", Err: cause})
	query := &StoreError{Op: OpQuery, Table: "event_14d", Err: cause}

	if !errors.Is(write, ErrStoreWrite) || errors.Is(write, ErrStoreQuery) {
		t.Error("write error should match ErrStoreWrite only")
	}
	if !errors.Is(query, ErrStoreQuery) || errors.Is(query, ErrStoreWrite) {
		t.Error("query error should match ErrStoreQuery only")
	}
	if !errors.Is(write, cause) {
		t.Error("StoreError should unwrap to its cause")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		profile UserProfile
		want    string
	}{
		{UserProfile{Username: "alice", FirstName: "Alice", LastName: "Liddell"}, "Alice Liddell"},
		{UserProfile{Username: "alice", FirstName: "Alice"}, "Alice"},
		{UserProfile{Username: "alice"}, "alice"},
	}
	for _, tt := range tests {
		if got := tt.profile.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}

func TestDecisionJSON(t *testing.T) {
	b, err := json.Marshal(AnomalousDecision("Paris", "Tokyo"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"kind":"anomalous","previousLocation":"Paris","currentLocation":"Tokyo"}`
	if string(b) != want {
		t.Errorf("Marshal() = %s, want %s", b, want)
	}
}

func TestDecodeAuthEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"type":"login","realmId":"acme","userId":"u-1","ipAddress":"8.8.8.8","time":1700000000000}`, false},
		{"missing type", `{"realmId":"acme"}`, true},
		{"missing realm", `{"type":"LOGIN"}`, true},
		{"negative time", `{"type":"LOGIN","realmId":"acme","time":-5}`, true},
		{"not json", `{"type":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeAuthEvent([]byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEvent) {
					t.Errorf("error = %v, want ErrInvalidEvent", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeAuthEvent() error = %v", err)
			}
			if ev.Type != EventLogin {
				t.Errorf("Type = %q, want LOGIN", ev.Type)
			}
		})
	}
}

func TestDecodeAuthEventIgnoresResolvedLocation(t *testing.T) {
	ev, err := DecodeAuthEvent([]byte(`{"type":"LOGIN","realmId":"acme","ResolvedLocation":"Paris"}`))
	if err != nil {
		t.Fatalf("DecodeAuthEvent() error = %v", err)
	}
	if ev.ResolvedLocation != "" {
		t.Errorf("ResolvedLocation = %q, must never come from the payload", ev.ResolvedLocation)
	}
}

func TestDecodeAdminEvent(t *testing.T) {
	ev, err := DecodeAdminEvent([]byte(`{"operationType":"update","realmId":"acme","authDetails":{"userId":"admin"}}`))
	if err != nil {
		t.Fatalf("DecodeAdminEvent() error = %v", err)
	}
	if ev.OperationType != OperationUpdate || ev.AuthDetails.UserID != "admin" {
		t.Errorf("event = %+v", ev)
	}

	if _, err := DecodeAdminEvent([]byte(`{"operationType":"PURGE","realmId":"acme"}`)); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("unknown operation error = %v, want ErrInvalidEvent", err)
	}
}
