package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "invoiceflow.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("INVOICEFLOW_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "INVOICEFLOW_PORT")
	setString(&cfg.Server.CORSOrigin, "INVOICEFLOW_CORS_ORIGIN")
	setInt64(&cfg.Server.MaxRequestBodySize, "INVOICEFLOW_MAX_BODY_SIZE")
	setFloat64(&cfg.Server.RateLimit, "INVOICEFLOW_RATE_LIMIT")
	setInt(&cfg.Server.RateBurst, "INVOICEFLOW_RATE_BURST")
	setDuration(&cfg.Server.IdempotencyTTL, "INVOICEFLOW_IDEMPOTENCY_TTL")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "INVOICEFLOW_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "INVOICEFLOW_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "INVOICEFLOW_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "INVOICEFLOW_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "INVOICEFLOW_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")

	setString(&cfg.Logging.Level, "INVOICEFLOW_LOG_LEVEL")
	setString(&cfg.Logging.Service, "INVOICEFLOW_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "INVOICEFLOW_LOG_ASYNC")
	setString(&cfg.Logging.File, "INVOICEFLOW_LOG_FILE")

	setInt(&cfg.Breaker.MaxFailures, "INVOICEFLOW_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "INVOICEFLOW_BREAKER_TIMEOUT")

	// Pipeline
	setString(&cfg.Pipeline.PlanFile, "INVOICEFLOW_PLAN_FILE")
	setString(&cfg.Pipeline.FixturesFile, "INVOICEFLOW_FIXTURES_FILE")
	setDuration(&cfg.Pipeline.StageTimeout, "INVOICEFLOW_STAGE_TIMEOUT")
	setDuration(&cfg.Pipeline.RunDeadline, "INVOICEFLOW_RUN_DEADLINE")
	setInt(&cfg.Pipeline.MaxParallel, "INVOICEFLOW_MAX_PARALLEL")
	setInt(&cfg.Pipeline.RetryAttempts, "INVOICEFLOW_RETRY_ATTEMPTS")
	setDuration(&cfg.Pipeline.RetryBackoff, "INVOICEFLOW_RETRY_BACKOFF")
	setBool(&cfg.Pipeline.NotifyOnFailure, "INVOICEFLOW_NOTIFY_ON_FAILURE")
	setUint64(&cfg.Pipeline.SimulationSeed, "INVOICEFLOW_SIMULATION_SEED")

	// Stages
	setFloat64(&cfg.Matching.TolerancePercent, "INVOICEFLOW_MATCH_TOLERANCE")
	setFloat64(&cfg.Risk.LargeAmount, "INVOICEFLOW_RISK_LARGE_AMOUNT")
	setDuration(&cfg.Risk.VelocityWindow, "INVOICEFLOW_RISK_VELOCITY_WINDOW")
	setDuration(&cfg.Risk.DuplicateWindow, "INVOICEFLOW_RISK_DUPLICATE_WINDOW")
	setString(&cfg.Risk.DuplicateBucket, "INVOICEFLOW_RISK_DUPLICATE_BUCKET")
	setFloat64(&cfg.Approval.AutoLimit, "INVOICEFLOW_APPROVAL_AUTO_LIMIT")
	setFloat64(&cfg.Approval.ManagerLimit, "INVOICEFLOW_APPROVAL_MANAGER_LIMIT")
	setFloat64(&cfg.Approval.DirectorLimit, "INVOICEFLOW_APPROVAL_DIRECTOR_LIMIT")
	setFloat64(&cfg.Approval.VPLimit, "INVOICEFLOW_APPROVAL_VP_LIMIT")
	setFloat64(&cfg.Payment.CardLimit, "INVOICEFLOW_PAYMENT_CARD_LIMIT")
	setFloat64(&cfg.Payment.CardRebatePct, "INVOICEFLOW_PAYMENT_CARD_REBATE")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "INVOICEFLOW_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "INVOICEFLOW_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "INVOICEFLOW_CACHE_L2_TTL")
	setDuration(&cfg.Cache.VendorTTL, "INVOICEFLOW_CACHE_VENDOR_TTL")

	// Notify
	setStringList(&cfg.Notify.Channels, "INVOICEFLOW_NOTIFY_CHANNELS")
	setString(&cfg.Notify.SMTPHost, "INVOICEFLOW_SMTP_HOST")
	setString(&cfg.Notify.SMTPPort, "INVOICEFLOW_SMTP_PORT")
	setString(&cfg.Notify.SMTPFrom, "INVOICEFLOW_SMTP_FROM")
	setStringList(&cfg.Notify.OpsRecipients, "INVOICEFLOW_OPS_RECIPIENTS")

	// Telemetry
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
}

// validate checks that required fields are set and ranges are sane.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst < 1 {
		return errors.New("server.rate_burst must be >= 1 when rate limiting")
	}
	if cfg.Postgres.DSN != "" && cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Pipeline.MaxParallel < 1 {
		return errors.New("pipeline.max_parallel must be >= 1")
	}
	if cfg.Pipeline.RetryAttempts < 1 {
		return errors.New("pipeline.retry_attempts must be >= 1")
	}
	if cfg.Pipeline.StageTimeout <= 0 {
		return errors.New("pipeline.stage_timeout must be > 0")
	}
	if cfg.Matching.TolerancePercent < 0 {
		return errors.New("matching.tolerance_percent must be >= 0")
	}
	a := cfg.Approval
	if a.AutoLimit <= 0 || a.ManagerLimit <= a.AutoLimit || a.DirectorLimit <= a.ManagerLimit || a.VPLimit <= a.DirectorLimit {
		return errors.New("approval limits must be positive and increasing")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStringList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
