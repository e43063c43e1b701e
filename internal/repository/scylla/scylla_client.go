package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"login-guard/internal/config"
	"login-guard/internal/util"
)

// CQL the directory reads with. gocql prepares and caches each statement on
// first use, so a fresh *gocql.Query is built per call.
const (
	stmtGetUserProfile = `
        SELECT user_id, realm_id, username, email, first_name, last_name
        FROM user_profiles WHERE realm_id = ? AND user_id = ?`

	stmtGetRealmMailSettings = `
        SELECT realm_id, from_address, from_display_name, reply_to
        FROM realm_mail_settings WHERE realm_id = ?`
)

type ScyllaClient struct {
	Session *gocql.Session
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaCfg := cfg.Scylla

	cluster := gocql.NewCluster(scyllaCfg.Nodes...)
	cluster.Keyspace = scyllaCfg.Keyspace
	cluster.Consistency = gocql.LocalOne
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 2
	cluster.SocketKeepalive = 30 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        100 * time.Millisecond,
		Max:        time.Second,
		NumRetries: 2,
	}

	if cfg.IsProduction() {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 config.GetEnv("SCYLLA_CA_FILE", "/app/certs/ca.pem"),
			CertPath:               config.GetEnv("SCYLLA_CERT_FILE", "/app/certs/scylla.pem"),
			KeyPath:                config.GetEnv("SCYLLA_KEY_FILE", "/app/certs/scylla.key"),
			EnableHostVerification: true,
		}
	}

	if scyllaCfg.Username != "" && scyllaCfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaCfg.Username,
			Password: scyllaCfg.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{Session: session}

	logger.Info("ScyllaDB client initialized",
		zap.Strings("nodes", scyllaCfg.Nodes),
		zap.String("keyspace", scyllaCfg.Keyspace))

	return client, nil
}

func (s *ScyllaClient) Query(stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...)
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) HealthCheck(ctx context.Context) error {
	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}
	return nil
}

// ScanWithRetry retries transient failures twice. A missing row is returned
// straight away as gocql.ErrNotFound.
func (s *ScyllaClient) ScanWithRetry(ctx context.Context, query *gocql.Query, dest ...interface{}) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		lastErr = query.WithContext(ctx).Scan(dest...)
		if lastErr == nil || errors.Is(lastErr, gocql.ErrNotFound) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
		}
	}
	return lastErr
}
