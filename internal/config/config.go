// Package config provides hierarchical configuration loading for invoiceflow.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the invoiceflow service.
type Config struct {
	Server    Server    `yaml:"server"`
	Postgres  Postgres  `yaml:"postgres"`
	NATS      NATS      `yaml:"nats"`
	Logging   Logging   `yaml:"logging"`
	Breaker   Breaker   `yaml:"breaker"`
	Pipeline  Pipeline  `yaml:"pipeline"`
	Matching  Matching  `yaml:"matching"`
	Risk      Risk      `yaml:"risk"`
	Approval  Approval  `yaml:"approval"`
	Payment   Payment   `yaml:"payment"`
	Cache     Cache     `yaml:"cache"`
	Notify    Notify    `yaml:"notify"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port               string        `yaml:"port"`
	CORSOrigin         string        `yaml:"cors_origin"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`
	RateLimit          float64       `yaml:"rate_limit"` // requests per second per client on document endpoints; 0 disables
	RateBurst          int           `yaml:"rate_burst"`
	IdempotencyTTL     time.Duration `yaml:"idempotency_ttl"`
}

// Postgres holds PostgreSQL connection configuration.
// An empty DSN runs the service on in-memory stores.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds NATS JetStream configuration. An empty URL disables event publishing and intake.
type NATS struct {
	URL string `yaml:"url"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
	File    string `yaml:"file"` // optional JSON log file, written alongside stdout
}

// Breaker holds the per-stage circuit breaker configuration.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Pipeline holds orchestrator execution configuration.
type Pipeline struct {
	PlanFile        string        `yaml:"plan_file"`         // optional YAML plan; empty = built-in plan
	FixturesFile    string        `yaml:"fixtures_file"`     // optional YAML vendors and purchase orders to seed
	StageTimeout    time.Duration `yaml:"stage_timeout"`     // per-stage invocation timeout
	RunDeadline     time.Duration `yaml:"run_deadline"`      // deadline for one full document run
	MaxParallel     int           `yaml:"max_parallel"`      // max concurrent stages in a parallel group
	RetryAttempts   int           `yaml:"retry_attempts"`    // attempts for transient stage failures (1 = no retry)
	RetryBackoff    time.Duration `yaml:"retry_backoff"`     // initial backoff between attempts
	NotifyOnFailure bool          `yaml:"notify_on_failure"` // run Communication when a required stage fails
	SimulationSeed  uint64        `yaml:"simulation_seed"`   // >0 enables seeded random confidence scoring
}

// Matching holds purchase-order reconciliation configuration.
type Matching struct {
	TolerancePercent float64 `yaml:"tolerance_percent"`
}

// Risk holds risk signal thresholds.
type Risk struct {
	LargeAmount      float64       `yaml:"large_amount"`
	VelocityWindow   time.Duration `yaml:"velocity_window"`
	DuplicateWindow  time.Duration `yaml:"duplicate_window"`
	VelocityMedium   int           `yaml:"velocity_medium"`
	VelocityHigh     int           `yaml:"velocity_high"`
	DuplicateBucket  string        `yaml:"duplicate_bucket"`
}

// Approval holds the approval amount bands (inclusive upper bounds) and
// policy rules switched off by id.
type Approval struct {
	AutoLimit     float64  `yaml:"auto_limit"`
	ManagerLimit  float64  `yaml:"manager_limit"`
	DirectorLimit float64  `yaml:"director_limit"`
	VPLimit       float64  `yaml:"vp_limit"`
	DisabledRules []string `yaml:"disabled_rules"`
}

// Payment holds payment scheduling configuration.
type Payment struct {
	CardLimit      float64 `yaml:"card_limit"`
	CardRebatePct  float64 `yaml:"card_rebate_pct"`
	DefaultNetDays int     `yaml:"default_net_days"`
}

// Cache holds the tiered cache configuration.
type Cache struct {
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"`
	L2Bucket    string        `yaml:"l2_bucket"`
	L2TTL       time.Duration `yaml:"l2_ttl"`
	VendorTTL   time.Duration `yaml:"vendor_ttl"`
}

// Notify holds outbound notification configuration. Secrets (webhook URL,
// SMTP password) are normally supplied through the environment instead.
type Notify struct {
	Channels      []string `yaml:"channels"` // registered notifier names, e.g. slack, email
	Events        []string `yaml:"events"`   // enabled sources; empty = all
	SlackWebhook  string   `yaml:"slack_webhook_url"`
	SMTPHost      string   `yaml:"smtp_host"`
	SMTPPort      string   `yaml:"smtp_port"`
	SMTPFrom      string   `yaml:"smtp_from"`
	OpsRecipients []string `yaml:"ops_recipients"`
}

// Telemetry holds OpenTelemetry exporter configuration.
type Telemetry struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"` // empty = no exporters
	Insecure     bool   `yaml:"insecure"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:               "8080",
			CORSOrigin:         "http://localhost:3000",
			MaxRequestBodySize: 1 << 20,
			RateLimit:          20,
			RateBurst:          40,
			IdempotencyTTL:     24 * time.Hour,
		},
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "invoiceflow",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Pipeline: Pipeline{
			StageTimeout:  10 * time.Second,
			RunDeadline:   60 * time.Second,
			MaxParallel:   4,
			RetryAttempts: 3,
			RetryBackoff:  100 * time.Millisecond,
		},
		Matching: Matching{
			TolerancePercent: 2.0,
		},
		Risk: Risk{
			LargeAmount:      100_000,
			VelocityWindow:   24 * time.Hour,
			DuplicateWindow:  90 * 24 * time.Hour,
			VelocityMedium:   5,
			VelocityHigh:     10,
			DuplicateBucket:  "INVOICEFLOW_FINGERPRINTS",
		},
		Approval: Approval{
			AutoLimit:     1_000,
			ManagerLimit:  10_000,
			DirectorLimit: 50_000,
			VPLimit:       250_000,
		},
		Payment: Payment{
			CardLimit:      25_000,
			CardRebatePct:  1.5,
			DefaultNetDays: 30,
		},
		Cache: Cache{
			L1MaxSizeMB: 32,
			L2Bucket:    "INVOICEFLOW_CACHE",
			L2TTL:       24 * time.Hour,
			VendorTTL:   10 * time.Minute,
		},
	}
}
