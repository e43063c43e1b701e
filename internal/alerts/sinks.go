package alerts

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"login-guard/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers map[string]string) error
}

type Indexer interface {
	IndexDocument(ctx context.Context, index, id string, body []byte) error
}

// KafkaSink publishes each alert as JSON keyed by user id.
type KafkaSink struct {
	publisher Publisher
}

func NewKafkaSink(publisher Publisher) *KafkaSink {
	return &KafkaSink{publisher: publisher}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Archive(ctx context.Context, alert models.LoginAlert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	headers := map[string]string{
		"alert-id": alert.ID,
		"realm-id": alert.RealmID,
	}
	if err := s.publisher.Publish(ctx, []byte(alert.UserID), body, headers); err != nil {
		return fmt.Errorf("publish alert %s: %w", alert.ID, err)
	}
	return nil
}

// ElasticsearchSink indexes alerts by id. Alert ids are derived from the
// login, so a redelivered event overwrites its earlier document.
type ElasticsearchSink struct {
	indexer Indexer
	index   string
}

func NewElasticsearchSink(indexer Indexer, index string) *ElasticsearchSink {
	return &ElasticsearchSink{indexer: indexer, index: index}
}

func (s *ElasticsearchSink) Name() string { return "elasticsearch" }

func (s *ElasticsearchSink) Archive(ctx context.Context, alert models.LoginAlert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	if err := s.indexer.IndexDocument(ctx, s.index, alert.ID, body); err != nil {
		return fmt.Errorf("index alert %s: %w", alert.ID, err)
	}
	return nil
}
