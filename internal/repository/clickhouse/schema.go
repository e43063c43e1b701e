package clickhouse

import (
	"fmt"
	"time"
)

// Tables are named after the retention policy, so changing the policy starts
// fresh tables rather than altering the TTL of existing rows.
func authTable(database, policy string) string {
	return fmt.Sprintf("%s.event_%s", database, policy)
}

func adminTable(database, policy string) string {
	return fmt.Sprintf("%s.admin_event_%s", database, policy)
}

func ttlClause(retention time.Duration) string {
	return fmt.Sprintf("TTL toDateTime(time) + INTERVAL %d HOUR", int64(retention/time.Hour))
}

func createDatabaseDDL(database string) string {
	return fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database)
}

func createAuthTableDDL(table string, retention time.Duration) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    time        DateTime64(3, 'UTC'),
    type        LowCardinality(String),
    realm_id    LowCardinality(String),
    client_id   LowCardinality(String),
    user_id     String,
    ip_address  String,
    location    String,
    error       Nullable(String),
    username    Nullable(String),
    details     Nullable(String),
    inserted_at DateTime64(9, 'UTC') DEFAULT now64(9)
) ENGINE = MergeTree
ORDER BY (type, user_id, time)
%s`, table, ttlClause(retention))
}

// Tables created before inserted_at existed get the column on startup.
func addInsertedAtDDL(table string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS inserted_at DateTime64(9, 'UTC') DEFAULT now64(9)", table)
}

func createAdminTableDDL(table string, retention time.Duration) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    time           DateTime64(3, 'UTC'),
    operation_type LowCardinality(String),
    resource_type  LowCardinality(String),
    realm_id       LowCardinality(String),
    client_id      LowCardinality(String),
    user_id        String,
    ip_address     String,
    resource_path  String,
    representation String,
    error          Nullable(String)
) ENGINE = MergeTree
ORDER BY (realm_id, operation_type, time)
%s`, table, ttlClause(retention))
}
