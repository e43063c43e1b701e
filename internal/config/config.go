package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the process-wide settings. It is built once at startup and
// treated as read-only afterwards.
type Config struct {
	Environment   string
	Logging       LoggingConfig
	Server        ServerConfig
	Clickhouse    ClickhouseConfig
	EventStore    EventStoreConfig
	Exclusions    ExclusionConfig
	Geo           GeoConfig
	Kafka         KafkaConfig
	Redis         RedisConfig
	Scylla        ScyllaConfig
	Elasticsearch ElasticsearchConfig
	SMTP          SMTPConfig
	Pipeline      PipelineConfig
	KMS           KMSConfig
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	EnableTLS    bool
	TLSPort      int
	AutoCert     bool
	Domain       string
	CertFile     string
	KeyFile      string
	AutoCertDir  string
	Email        string
}

type ClickhouseConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Secure   bool
}

// EventStoreConfig names where events land. RetentionPolicy doubles as the
// table suffix and the TTL of the stored rows.
type EventStoreConfig struct {
	Database        string
	RetentionPolicy string
	SequentialReads bool
}

type ExclusionConfig struct {
	Events          []string
	AdminOperations []string
}

type GeoConfig struct {
	BaseURL         string
	Timeout         time.Duration
	RatePerSecond   float64
	Burst           int
	CacheTTL        time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	EventsTopic string
	GroupID     string
	AlertsTopic string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type ElasticsearchConfig struct {
	URL        string
	Username   string
	Password   string
	AlertIndex string
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	FromName  string
	TLSPolicy string
	Timeout   time.Duration
}

type PipelineConfig struct {
	Workers      int
	EventTimeout time.Duration
}

type KMSConfig struct {
	Enabled bool
	Region  string
}

var (
	current   *Config
	currentMu sync.RWMutex

	retentionPattern = regexp.MustCompile(`^([1-9][0-9]*)([hdw])$`)
)

// LoadConfig reads an optional .env file and then the process environment.
// The result is also stored for Get.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: GetEnv("APP_ENV", EnvDevelopment),
		Logging: LoggingConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Format: GetEnv("LOG_FORMAT", "console"),
		},
		Server: ServerConfig{
			Port:         GetEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  GetEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: GetEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  GetEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			EnableTLS:    GetEnvBool("SERVER_ENABLE_TLS", false),
			TLSPort:      GetEnvInt("SERVER_TLS_PORT", 8443),
			AutoCert:     GetEnvBool("SERVER_AUTO_CERT", false),
			Domain:       GetEnv("SERVER_DOMAIN", ""),
			CertFile:     GetEnv("SERVER_CERT_FILE", ""),
			KeyFile:      GetEnv("SERVER_KEY_FILE", ""),
			AutoCertDir:  GetEnv("SERVER_AUTOCERT_DIR", "./certs"),
			Email:        GetEnv("SERVER_ACME_EMAIL", ""),
		},
		Clickhouse: ClickhouseConfig{
			Host:     GetEnv("CLICKHOUSE_HOST", "localhost"),
			Port:     GetEnvInt("CLICKHOUSE_PORT", 9000),
			Username: GetEnv("CLICKHOUSE_USER", "default"),
			Password: GetEnv("CLICKHOUSE_PASSWORD", ""),
			Secure:   GetEnvBool("CLICKHOUSE_SECURE", false),
		},
		EventStore: EventStoreConfig{
			Database:        GetEnv("EVENT_STORE_DB", "keycloak"),
			RetentionPolicy: GetEnv("EVENT_STORE_RETENTION_POLICY", "14d"),
			SequentialReads: GetEnvBool("EVENT_STORE_SEQUENTIAL_READS", false),
		},
		Exclusions: ExclusionConfig{
			Events:          upper(GetEnvList("EXCLUDE_EVENTS", nil)),
			AdminOperations: upper(GetEnvList("EXCLUDE_ADMIN_OPERATIONS", nil)),
		},
		Geo: GeoConfig{
			BaseURL:         strings.TrimRight(GetEnv("GEO_BASE_URL", "https://ipapi.co"), "/"),
			Timeout:         GetEnvDuration("GEO_TIMEOUT", 5*time.Second),
			RatePerSecond:   GetEnvFloat("GEO_RATE_PER_SECOND", 0),
			Burst:           GetEnvInt("GEO_BURST", 5),
			CacheTTL:        GetEnvDuration("GEO_CACHE_TTL", time.Hour),
			BreakerFailures: uint32(GetEnvInt("GEO_BREAKER_FAILURES", 5)),
			BreakerCooldown: GetEnvDuration("GEO_BREAKER_COOLDOWN", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:     GetEnvBool("KAFKA_ENABLED", false),
			Brokers:     GetEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			EventsTopic: GetEnv("KAFKA_EVENTS_TOPIC", "idp-events"),
			GroupID:     GetEnv("KAFKA_GROUP_ID", "login-guard"),
			AlertsTopic: GetEnv("KAFKA_ALERTS_TOPIC", "login-alerts"),
		},
		Redis: RedisConfig{
			URL:      GetEnv("REDIS_URL", ""),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvInt("REDIS_DB", 0),
			PoolSize: GetEnvInt("REDIS_POOL_SIZE", 20),
		},
		Scylla: ScyllaConfig{
			Nodes:    GetEnvList("SCYLLA_NODES", []string{"localhost"}),
			Keyspace: GetEnv("SCYLLA_KEYSPACE", "identity"),
			Username: GetEnv("SCYLLA_USERNAME", ""),
			Password: GetEnv("SCYLLA_PASSWORD", ""),
		},
		Elasticsearch: ElasticsearchConfig{
			URL:        GetEnv("ELASTICSEARCH_URL", ""),
			Username:   GetEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   GetEnv("ELASTICSEARCH_PASSWORD", ""),
			AlertIndex: GetEnv("ELASTICSEARCH_ALERT_INDEX", "login-alerts"),
		},
		SMTP: SMTPConfig{
			Host:      GetEnv("SMTP_HOST", "localhost"),
			Port:      GetEnvInt("SMTP_PORT", 25),
			Username:  GetEnv("SMTP_USERNAME", ""),
			Password:  GetEnv("SMTP_PASSWORD", ""),
			From:      GetEnv("SMTP_FROM", "no-reply@localhost"),
			FromName:  GetEnv("SMTP_FROM_NAME", "Login Guard"),
			TLSPolicy: strings.ToLower(GetEnv("SMTP_TLS", "opportunistic")),
			Timeout:   GetEnvDuration("SMTP_TIMEOUT", 15*time.Second),
		},
		Pipeline: PipelineConfig{
			Workers:      GetEnvInt("PIPELINE_WORKERS", 8),
			EventTimeout: GetEnvDuration("PIPELINE_EVENT_TIMEOUT", 30*time.Second),
		},
		KMS: KMSConfig{
			Enabled: GetEnvBool("KMS_ENABLED", false),
			Region:  GetEnv("KMS_REGION", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentMu.Lock()
	current = cfg
	currentMu.Unlock()

	return cfg, nil
}

// Get returns the configuration loaded by LoadConfig, or nil before that.
func Get() *Config {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// Validate checks values that would otherwise fail late, mid-event.
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseRetention(c.EventStore.RetentionPolicy); err != nil {
		errs = append(errs, err)
	}
	if !identifierPattern.MatchString(c.EventStore.Database) {
		errs = append(errs, fmt.Errorf("invalid event store database name %q", c.EventStore.Database))
	}
	for _, op := range c.Exclusions.AdminOperations {
		switch op {
		case "CREATE", "UPDATE", "DELETE", "ACTION":
		default:
			errs = append(errs, fmt.Errorf("unknown admin operation %q in EXCLUDE_ADMIN_OPERATIONS", op))
		}
	}
	if c.Geo.Timeout <= 0 {
		errs = append(errs, errors.New("GEO_TIMEOUT must be positive"))
	}
	if c.Geo.RatePerSecond < 0 {
		errs = append(errs, errors.New("GEO_RATE_PER_SECOND must not be negative"))
	}
	if c.Geo.RatePerSecond > 0 && c.Geo.Burst <= 0 {
		errs = append(errs, errors.New("GEO_BURST must be positive when GEO_RATE_PER_SECOND is set"))
	}
	if c.Pipeline.Workers <= 0 {
		errs = append(errs, errors.New("PIPELINE_WORKERS must be positive"))
	}
	if c.SMTP.Timeout <= 0 {
		errs = append(errs, errors.New("SMTP_TIMEOUT must be positive"))
	}
	if c.Pipeline.EventTimeout <= 0 {
		errs = append(errs, errors.New("PIPELINE_EVENT_TIMEOUT must be positive"))
	}
	switch c.SMTP.TLSPolicy {
	case "opportunistic", "mandatory", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown SMTP_TLS policy %q", c.SMTP.TLSPolicy))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseRetention turns a retention policy name such as "14d", "12h" or "2w"
// into its duration.
func ParseRetention(policy string) (time.Duration, error) {
	m := retentionPattern.FindStringSubmatch(policy)
	if m == nil {
		return 0, fmt.Errorf("invalid retention policy %q: want <n>h, <n>d or <n>w", policy)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid retention policy %q: %w", policy, err)
	}
	unit := time.Hour
	switch m[2] {
	case "d":
		unit = 24 * time.Hour
	case "w":
		unit = 7 * 24 * time.Hour
	}
	return time.Duration(n) * unit, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// ClickhouseAddr is the native protocol address of the event store.
func (c *Config) ClickhouseAddr() string {
	return fmt.Sprintf("%s:%d", c.Clickhouse.Host, c.Clickhouse.Port)
}

func GetEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(GetEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func GetEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(GetEnv(key, ""), 64); err == nil {
		return v
	}
	return defaultValue
}

func GetEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(GetEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(GetEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

// GetEnvList splits a comma separated variable and drops blank entries.
func GetEnvList(key string, defaultValue []string) []string {
	raw := GetEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// event and operation names are matched upper-case
func upper(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToUpper(v)
	}
	return values
}
