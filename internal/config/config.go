package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Smartlead     SmartleadConfig     `yaml:"smartlead"`
	EmailBison    EmailBisonConfig    `yaml:"emailbison"`
	HeyReach      HeyReachConfig      `yaml:"heyreach"`
	Lob           LobConfig           `yaml:"lob"`
	Replay        ReplayConfig        `yaml:"replay"`
	SLO           SLOConfig           `yaml:"slo"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GetHost returns the server host with environment override.
func (c ServerConfig) GetHost() string {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the PostgreSQL connection string.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the optional Redis connection string. When empty the
// scheduled-reconciliation lock falls back to PostgreSQL advisory locks.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// SmartleadConfig holds Smartlead API and webhook trust configuration.
type SmartleadConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	WebhookSecret  string `yaml:"webhook_secret"`
}

// Timeout returns the configured timeout as a duration.
func (c SmartleadConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EmailBisonConfig holds EmailBison webhook trust configuration. EmailBison
// deployments are per-tenant, so the API base URL comes from the tenant's
// provider config, not from here.
type EmailBisonConfig struct {
	TimeoutSeconds   int      `yaml:"timeout_seconds"`
	WebhookPathToken string   `yaml:"webhook_path_token"`
	AllowedOrigins   []string `yaml:"allowed_origins"`
}

// Timeout returns the configured timeout as a duration.
func (c EmailBisonConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HeyReachConfig holds HeyReach API and webhook trust configuration.
type HeyReachConfig struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	WebhookSecret   string `yaml:"webhook_secret"`
	MessageSyncMode string `yaml:"message_sync_mode"` // webhook_only | pull_best_effort
}

// Timeout returns the configured timeout as a duration.
func (c HeyReachConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LobConfig holds Lob API, webhook signature, and schema validation
// configuration.
type LobConfig struct {
	BaseURL                   string   `yaml:"base_url"`
	TimeoutSeconds            int      `yaml:"timeout_seconds"`
	WebhookSecret             string   `yaml:"webhook_secret"`
	SignatureMode             string   `yaml:"signature_mode"` // permissive_audit | enforce
	SignatureToleranceSeconds int      `yaml:"signature_tolerance_seconds"`
	SchemaVersions            []string `yaml:"schema_versions"`
}

// Timeout returns the configured timeout as a duration.
func (c LobConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SignatureTolerance returns the replay-window tolerance as a duration.
func (c LobConfig) SignatureTolerance() time.Duration {
	return time.Duration(c.SignatureToleranceSeconds) * time.Second
}

// ReplayConfig bounds bulk dead-letter replay runs.
type ReplayConfig struct {
	BatchSize            int     `yaml:"batch_size"`
	SleepMS              int     `yaml:"sleep_ms"`
	MaxSleepMS           int     `yaml:"max_sleep_ms"`
	BackoffMultiplier    float64 `yaml:"backoff_multiplier"`
	MaxEventsPerRun      int     `yaml:"max_events_per_run"`
	MaxConcurrentWorkers int     `yaml:"max_concurrent_workers"`
	QueueSize            int     `yaml:"queue_size"`
}

// Sleep returns the initial inter-batch sleep as a duration.
func (c ReplayConfig) Sleep() time.Duration {
	return time.Duration(c.SleepMS) * time.Millisecond
}

// MaxSleep returns the inter-batch sleep ceiling as a duration.
func (c ReplayConfig) MaxSleep() time.Duration {
	return time.Duration(c.MaxSleepMS) * time.Millisecond
}

// SLOConfig holds reliability-rate thresholds checked after every metrics
// persist. Negative values disable a check.
type SLOConfig struct {
	SignatureRejectRateThreshold   float64 `yaml:"signature_reject_rate_threshold"`
	DeadLetterRateThreshold        float64 `yaml:"dead_letter_rate_threshold"`
	ProjectionFailureRateThreshold float64 `yaml:"projection_failure_rate_threshold"`
	ReplayFailureRateThreshold     float64 `yaml:"replay_failure_rate_threshold"`
	DuplicateIgnoreRateThreshold   float64 `yaml:"duplicate_ignore_rate_threshold"`
}

// SchedulerConfig holds the shared secret for externally scheduled runs.
type SchedulerConfig struct {
	InternalSecret string `yaml:"internal_secret"`
}

// ObservabilityConfig holds the optional metrics export sink.
type ObservabilityConfig struct {
	ExportURL            string `yaml:"export_url"`
	ExportBearerToken    string `yaml:"export_bearer_token"`
	ExportTimeoutSeconds int    `yaml:"export_timeout_seconds"`
}

// ExportTimeout returns the export call timeout as a duration.
func (c ObservabilityConfig) ExportTimeout() time.Duration {
	return time.Duration(c.ExportTimeoutSeconds) * time.Second
}

// Load reads and parses the configuration file, then applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Smartlead.BaseURL == "" {
		cfg.Smartlead.BaseURL = "https://server.smartlead.ai/api/v1"
	}
	if cfg.Smartlead.TimeoutSeconds == 0 {
		cfg.Smartlead.TimeoutSeconds = 30
	}
	if cfg.EmailBison.TimeoutSeconds == 0 {
		cfg.EmailBison.TimeoutSeconds = 30
	}
	if cfg.HeyReach.BaseURL == "" {
		cfg.HeyReach.BaseURL = "https://api.heyreach.io"
	}
	if cfg.HeyReach.TimeoutSeconds == 0 {
		cfg.HeyReach.TimeoutSeconds = 30
	}
	if cfg.HeyReach.MessageSyncMode == "" {
		cfg.HeyReach.MessageSyncMode = "webhook_only"
	}
	if cfg.Lob.BaseURL == "" {
		cfg.Lob.BaseURL = "https://api.lob.com/v1"
	}
	if cfg.Lob.TimeoutSeconds == 0 {
		cfg.Lob.TimeoutSeconds = 30
	}
	if cfg.Lob.SignatureMode == "" {
		cfg.Lob.SignatureMode = "permissive_audit"
	}
	if cfg.Lob.SignatureToleranceSeconds == 0 {
		cfg.Lob.SignatureToleranceSeconds = 300
	}
	if len(cfg.Lob.SchemaVersions) == 0 {
		cfg.Lob.SchemaVersions = []string{"v1"}
	}
	if cfg.Replay.BatchSize == 0 {
		cfg.Replay.BatchSize = 50
	}
	if cfg.Replay.SleepMS == 0 {
		cfg.Replay.SleepMS = 200
	}
	if cfg.Replay.MaxSleepMS == 0 {
		cfg.Replay.MaxSleepMS = 5000
	}
	if cfg.Replay.BackoffMultiplier == 0 {
		cfg.Replay.BackoffMultiplier = 2.0
	}
	if cfg.Replay.MaxEventsPerRun == 0 {
		cfg.Replay.MaxEventsPerRun = 500
	}
	if cfg.Replay.MaxConcurrentWorkers == 0 {
		cfg.Replay.MaxConcurrentWorkers = 4
	}
	if cfg.Replay.QueueSize == 0 {
		cfg.Replay.QueueSize = 8
	}
	// A zero threshold is treated as unset; checks enable only on explicit
	// positive values.
	if cfg.SLO.SignatureRejectRateThreshold == 0 {
		cfg.SLO.SignatureRejectRateThreshold = -1
	}
	if cfg.SLO.DeadLetterRateThreshold == 0 {
		cfg.SLO.DeadLetterRateThreshold = -1
	}
	if cfg.SLO.ProjectionFailureRateThreshold == 0 {
		cfg.SLO.ProjectionFailureRateThreshold = -1
	}
	if cfg.SLO.ReplayFailureRateThreshold == 0 {
		cfg.SLO.ReplayFailureRateThreshold = -1
	}
	if cfg.SLO.DuplicateIgnoreRateThreshold == 0 {
		cfg.SLO.DuplicateIgnoreRateThreshold = -1
	}
	if cfg.Observability.ExportTimeoutSeconds == 0 {
		cfg.Observability.ExportTimeoutSeconds = 5
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets can
// live in .env locally and in real env vars in deployment. A missing config
// file is tolerated; defaults plus env vars then carry the whole config.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		cfg.applyDefaults()
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SMARTLEAD_BASE_URL"); v != "" {
		cfg.Smartlead.BaseURL = v
	}
	if v := os.Getenv("SMARTLEAD_WEBHOOK_SECRET"); v != "" {
		cfg.Smartlead.WebhookSecret = v
	}
	if v := os.Getenv("SMARTLEAD_TIMEOUT_SECONDS"); v != "" {
		cfg.Smartlead.TimeoutSeconds = envInt(v, cfg.Smartlead.TimeoutSeconds)
	}

	if v := os.Getenv("EMAILBISON_WEBHOOK_PATH_TOKEN"); v != "" {
		cfg.EmailBison.WebhookPathToken = v
	}
	if v := os.Getenv("EMAILBISON_WEBHOOK_ALLOWED_ORIGINS"); v != "" {
		cfg.EmailBison.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("EMAILBISON_TIMEOUT_SECONDS"); v != "" {
		cfg.EmailBison.TimeoutSeconds = envInt(v, cfg.EmailBison.TimeoutSeconds)
	}

	if v := os.Getenv("HEYREACH_BASE_URL"); v != "" {
		cfg.HeyReach.BaseURL = v
	}
	if v := os.Getenv("HEYREACH_WEBHOOK_SECRET"); v != "" {
		cfg.HeyReach.WebhookSecret = v
	}
	if v := os.Getenv("HEYREACH_MESSAGE_SYNC_MODE"); v != "" {
		cfg.HeyReach.MessageSyncMode = v
	}
	if v := os.Getenv("HEYREACH_TIMEOUT_SECONDS"); v != "" {
		cfg.HeyReach.TimeoutSeconds = envInt(v, cfg.HeyReach.TimeoutSeconds)
	}

	if v := os.Getenv("LOB_BASE_URL"); v != "" {
		cfg.Lob.BaseURL = v
	}
	if v := os.Getenv("LOB_WEBHOOK_SECRET"); v != "" {
		cfg.Lob.WebhookSecret = v
	}
	if v := os.Getenv("LOB_WEBHOOK_SIGNATURE_MODE"); v != "" {
		cfg.Lob.SignatureMode = v
	}
	if v := os.Getenv("LOB_WEBHOOK_SIGNATURE_TOLERANCE_SECONDS"); v != "" {
		cfg.Lob.SignatureToleranceSeconds = envInt(v, cfg.Lob.SignatureToleranceSeconds)
	}
	if v := os.Getenv("LOB_WEBHOOK_SCHEMA_VERSIONS"); v != "" {
		cfg.Lob.SchemaVersions = splitCSV(v)
	}
	if v := os.Getenv("LOB_TIMEOUT_SECONDS"); v != "" {
		cfg.Lob.TimeoutSeconds = envInt(v, cfg.Lob.TimeoutSeconds)
	}

	if v := os.Getenv("LOB_WEBHOOK_REPLAY_BATCH_SIZE"); v != "" {
		cfg.Replay.BatchSize = envInt(v, cfg.Replay.BatchSize)
	}
	if v := os.Getenv("LOB_WEBHOOK_REPLAY_SLEEP_MS"); v != "" {
		cfg.Replay.SleepMS = envInt(v, cfg.Replay.SleepMS)
	}
	if v := os.Getenv("LOB_WEBHOOK_REPLAY_MAX_SLEEP_MS"); v != "" {
		cfg.Replay.MaxSleepMS = envInt(v, cfg.Replay.MaxSleepMS)
	}
	if v := os.Getenv("LOB_WEBHOOK_REPLAY_BACKOFF_MULTIPLIER"); v != "" {
		cfg.Replay.BackoffMultiplier = envFloat(v, cfg.Replay.BackoffMultiplier)
	}
	if v := os.Getenv("LOB_WEBHOOK_REPLAY_MAX_EVENTS_PER_RUN"); v != "" {
		cfg.Replay.MaxEventsPerRun = envInt(v, cfg.Replay.MaxEventsPerRun)
	}
	if v := os.Getenv("LOB_WEBHOOK_REPLAY_MAX_CONCURRENT_WORKERS"); v != "" {
		cfg.Replay.MaxConcurrentWorkers = envInt(v, cfg.Replay.MaxConcurrentWorkers)
	}
	if v := os.Getenv("LOB_WEBHOOK_REPLAY_QUEUE_SIZE"); v != "" {
		cfg.Replay.QueueSize = envInt(v, cfg.Replay.QueueSize)
	}

	if v := os.Getenv("LOB_SLO_SIGNATURE_REJECT_RATE_THRESHOLD"); v != "" {
		cfg.SLO.SignatureRejectRateThreshold = envFloat(v, cfg.SLO.SignatureRejectRateThreshold)
	}
	if v := os.Getenv("LOB_SLO_DEAD_LETTER_RATE_THRESHOLD"); v != "" {
		cfg.SLO.DeadLetterRateThreshold = envFloat(v, cfg.SLO.DeadLetterRateThreshold)
	}
	if v := os.Getenv("LOB_SLO_PROJECTION_FAILURE_RATE_THRESHOLD"); v != "" {
		cfg.SLO.ProjectionFailureRateThreshold = envFloat(v, cfg.SLO.ProjectionFailureRateThreshold)
	}
	if v := os.Getenv("LOB_SLO_REPLAY_FAILURE_RATE_THRESHOLD"); v != "" {
		cfg.SLO.ReplayFailureRateThreshold = envFloat(v, cfg.SLO.ReplayFailureRateThreshold)
	}
	if v := os.Getenv("LOB_SLO_DUPLICATE_IGNORE_RATE_THRESHOLD"); v != "" {
		cfg.SLO.DuplicateIgnoreRateThreshold = envFloat(v, cfg.SLO.DuplicateIgnoreRateThreshold)
	}

	if v := os.Getenv("INTERNAL_SCHEDULER_SECRET"); v != "" {
		cfg.Scheduler.InternalSecret = v
	}

	if v := os.Getenv("OBSERVABILITY_EXPORT_URL"); v != "" {
		cfg.Observability.ExportURL = v
	}
	if v := os.Getenv("OBSERVABILITY_EXPORT_BEARER_TOKEN"); v != "" {
		cfg.Observability.ExportBearerToken = v
	}
	if v := os.Getenv("OBSERVABILITY_EXPORT_TIMEOUT_SECONDS"); v != "" {
		cfg.Observability.ExportTimeoutSeconds = envInt(v, cfg.Observability.ExportTimeoutSeconds)
	}

	return cfg, nil
}

func envInt(v string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(v string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
