package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"login-guard/internal/models"
)

type capturePublisher struct {
	key     []byte
	value   []byte
	headers map[string]string
	err     error
}

func (p *capturePublisher) Publish(_ context.Context, key, value []byte, headers map[string]string) error {
	p.key, p.value, p.headers = key, value, headers
	return p.err
}

type captureIndexer struct {
	index string
	id    string
	body  []byte
}

func (i *captureIndexer) IndexDocument(_ context.Context, index, id string, body []byte) error {
	i.index, i.id, i.body = index, id, body
	return nil
}

var sample = models.LoginAlert{
	ID:               "a1b2",
	RealmID:          "acme",
	UserID:           "u-alice",
	IPAddress:        "1.0.16.1",
	PreviousLocation: "Paris",
	CurrentLocation:  "Tokyo",
	EventTime:        time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	DetectedAt:       time.Date(2026, 3, 1, 9, 0, 1, 0, time.UTC),
}

func TestKafkaSinkKeysByUser(t *testing.T) {
	pub := &capturePublisher{}
	if err := NewKafkaSink(pub).Archive(context.Background(), sample); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if string(pub.key) != "u-alice" {
		t.Errorf("key = %q, want u-alice", pub.key)
	}
	if pub.headers["alert-id"] != "a1b2" {
		t.Errorf("headers = %v", pub.headers)
	}

	var got models.LoginAlert
	if err := json.Unmarshal(pub.value, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.PreviousLocation != "Paris" || got.CurrentLocation != "Tokyo" {
		t.Errorf("payload = %+v", got)
	}
}

func TestKafkaSinkWrapsError(t *testing.T) {
	cause := errors.New("broker down")
	err := NewKafkaSink(&capturePublisher{err: cause}).Archive(context.Background(), sample)
	if !errors.Is(err, cause) {
		t.Errorf("Archive() error = %v, want wrapped cause", err)
	}
}

func TestElasticsearchSinkIndexesByID(t *testing.T) {
	idx := &captureIndexer{}
	if err := NewElasticsearchSink(idx, "login-alerts").Archive(context.Background(), sample); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if idx.index != "login-alerts" || idx.id != "a1b2" || len(idx.body) == 0 {
		t.Errorf("indexed %s/%s (%d bytes)", idx.index, idx.id, len(idx.body))
	}
}
