package clickhouse

import (
	"context"
	"fmt"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"login-guard/internal/config"
	"login-guard/internal/metrics"
	"login-guard/internal/models"
)

// Conn is the part of client.ClickHouseClient the store uses.
type Conn interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
	QueryRows(ctx context.Context, query string, args ...interface{}) (driver.Rows, error)
	InsertRow(ctx context.Context, query string, row ...interface{}) error
}

// EventStore appends auth and admin events and reads back login history.
// It is safe for concurrent use; the connection pool serialises nothing.
type EventStore struct {
	conn            Conn
	database        string
	authTable       string
	adminTable      string
	retention       time.Duration
	sequentialReads bool
	logger          *zap.Logger
}

func NewEventStore(conn Conn, cfg config.EventStoreConfig, logger *zap.Logger) (*EventStore, error) {
	retention, err := config.ParseRetention(cfg.RetentionPolicy)
	if err != nil {
		return nil, err
	}
	return &EventStore{
		conn:            conn,
		database:        cfg.Database,
		authTable:       authTable(cfg.Database, cfg.RetentionPolicy),
		adminTable:      adminTable(cfg.Database, cfg.RetentionPolicy),
		retention:       retention,
		sequentialReads: cfg.SequentialReads,
		logger:          logger.Named("event_store"),
	}, nil
}

// EnsureSchema creates the database and both tables if they are missing.
func (s *EventStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		createDatabaseDDL(s.database),
		createAuthTableDDL(s.authTable, s.retention),
		addInsertedAtDDL(s.authTable),
		createAdminTableDDL(s.adminTable, s.retention),
	}
	for _, stmt := range statements {
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply event store schema: %w", err)
		}
	}
	s.logger.Info("Event store schema ready",
		zap.String("auth_table", s.authTable),
		zap.String("admin_table", s.adminTable),
		zap.Duration("retention", s.retention))
	return nil
}

func (s *EventStore) WriteAuthRecord(ctx context.Context, rec models.AuthRecord) error {
	query := fmt.Sprintf("INSERT INTO %s (time, type, realm_id, client_id, user_id, ip_address, location, error, username, details)", s.authTable)

	start := time.Now()
	err := s.conn.InsertRow(ctx, query,
		rec.Time,
		string(rec.Type),
		rec.RealmID,
		rec.ClientID,
		rec.UserID,
		rec.IPAddress,
		rec.Location,
		nullable(rec.Error),
		nullable(rec.Username),
		nullable(rec.Details),
	)
	metrics.ObserveStore(models.OpWrite, "event", start, err)
	if err != nil {
		return &models.StoreError{Op: models.OpWrite, Table: s.authTable, Err: err}
	}
	return nil
}

func (s *EventStore) WriteAdminRecord(ctx context.Context, rec models.AdminRecord) error {
	query := fmt.Sprintf("INSERT INTO %s (time, operation_type, resource_type, realm_id, client_id, user_id, ip_address, resource_path, representation, error)", s.adminTable)

	start := time.Now()
	err := s.conn.InsertRow(ctx, query,
		rec.Time,
		string(rec.OperationType),
		rec.ResourceType,
		rec.RealmID,
		rec.ClientID,
		rec.UserID,
		rec.IPAddress,
		rec.ResourcePath,
		rec.Representation,
		nullable(rec.Error),
	)
	metrics.ObserveStore(models.OpWrite, "admin_event", start, err)
	if err != nil {
		return &models.StoreError{Op: models.OpWrite, Table: s.adminTable, Err: err}
	}
	return nil
}

// QueryRecentLogins returns up to limit LOGIN rows for userID, newest first.
// Rows are ordered by server ingestion time, so the row written last comes
// first even when IdP timestamps tie or arrive out of order.
func (s *EventStore) QueryRecentLogins(ctx context.Context, userID string, limit int) ([]models.LocationHistoryEntry, error) {
	if limit <= 0 {
		limit = models.HistoryWindow
	}
	query := fmt.Sprintf(
		"SELECT time, ip_address, user_id, location FROM %s WHERE type = ? AND user_id = ? ORDER BY inserted_at DESC, time DESC LIMIT %d",
		s.authTable, limit)

	if s.sequentialReads {
		ctx = ch.Context(ctx, ch.WithSettings(ch.Settings{
			"select_sequential_consistency": 1,
		}))
	}

	start := time.Now()
	entries, err := s.queryHistory(ctx, query, string(models.EventLogin), userID)
	metrics.ObserveStore(models.OpQuery, "event", start, err)
	if err != nil {
		return nil, &models.StoreError{Op: models.OpQuery, Table: s.authTable, Err: err}
	}
	return entries, nil
}

func (s *EventStore) queryHistory(ctx context.Context, query string, args ...interface{}) ([]models.LocationHistoryEntry, error) {
	rows, err := s.conn.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LocationHistoryEntry
	for rows.Next() {
		var entry models.LocationHistoryEntry
		if err := rows.ScanStruct(&entry); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
