package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all runtime settings.
// Load order: defaults -> YAML (optional) -> env overrides.
type Config struct {
	ListenAddr    string `yaml:"listen_addr"`
	PublicBaseURL string `yaml:"public_base_url"`

	StorageDir string `yaml:"storage_dir"`
	DBPath     string `yaml:"db_path"`

	AdminKey    string `yaml:"admin_key"`
	OperatorKey string `yaml:"operator_key"`

	MaxUploadMB int64 `yaml:"max_upload_mb"`

	// Logging configuration
	Logging struct {
		Level      string `yaml:"level"`       // trace, debug, info, warn, error, fatal, panic
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file, syslog, multi
		FilePath   string `yaml:"file_path"`   // path to log file (if output=file or multi)
		MaxSizeMB  int    `yaml:"max_size_mb"` // max size before rotation
		MaxBackups int    `yaml:"max_backups"` // max number of old log files
		MaxAgeDays int    `yaml:"max_age_days"` // max age in days
		Compress   bool   `yaml:"compress"`    // compress rotated files
		SyslogAddr string `yaml:"syslog_addr"` // syslog server address (if output=syslog or multi)
		SyslogNet  string `yaml:"syslog_net"`  // tcp, udp, or empty for local
	} `yaml:"logging"`

	// OIDC/Keycloak extension point. Off by default.
	OIDC struct {
		Enabled      bool   `yaml:"enabled"`
		IssuerURL    string `yaml:"issuer_url"`
		ClientID     string `yaml:"client_id"`
		Audience     string `yaml:"audience"`
		AdminRole    string `yaml:"admin_role"`
		OperatorRole string `yaml:"operator_role"`
		JWKSCacheSec int    `yaml:"jwks_cache_sec"`
	} `yaml:"oidc"`

	Notifications struct {
		Secret     string `yaml:"secret"`
		TimeoutSec int    `yaml:"timeout_sec"`
		Retries    int    `yaml:"retries"`
	} `yaml:"notifications"`

	// Device gateway: the HTTP bridge that reaches the fleet. Commands,
	// status polling, health probes and device selection all go through it.
	Gateway struct {
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		PollIntervalSec int    `yaml:"poll_interval_sec"`
	} `yaml:"gateway"`

	// Rollout execution tuning. Zero values are replaced by defaults so a
	// partial YAML block cannot produce a rollout that never times out.
	Rollout struct {
		MaxAttempts          int     `yaml:"max_attempts"`
		BackoffBaseMs        int     `yaml:"backoff_base_ms"`
		BackoffMaxMs         int     `yaml:"backoff_max_ms"`
		DispatchTimeoutSec   int     `yaml:"dispatch_timeout_sec"`
		DownloadTimeoutSec   int     `yaml:"download_timeout_sec"`
		FlashTimeoutSec      int     `yaml:"flash_timeout_sec"`
		VerifyTimeoutSec     int     `yaml:"verify_timeout_sec"`
		FailureRateThreshold float64 `yaml:"failure_rate_threshold"`
		AutoRollback         bool    `yaml:"auto_rollback"`
	} `yaml:"rollout"`
}

// Load reads YAML if path is non-empty, then applies env overrides.
func Load(path string) (Config, error) {
	cfg := defaults()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)
	cfg.fillRolloutDefaults()
	return cfg, nil
}

func defaults() Config {
	var c Config
	c.ListenAddr = ":8080"
	c.PublicBaseURL = ""
	c.StorageDir = "/data/firmware"
	c.DBPath = "/data/db/fleet-rollout.db"
	c.MaxUploadMB = 50

	// Logging defaults
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"
	c.Logging.FilePath = "/var/log/fleet-rollout/app.log"
	c.Logging.MaxSizeMB = 100
	c.Logging.MaxBackups = 3
	c.Logging.MaxAgeDays = 28
	c.Logging.Compress = true
	c.Logging.SyslogAddr = ""
	c.Logging.SyslogNet = "udp"

	c.Notifications.TimeoutSec = 5
	c.Notifications.Retries = 3

	c.Gateway.BaseURL = "http://localhost:8090"
	c.Gateway.PollIntervalSec = 5

	c.OIDC.Enabled = false
	c.OIDC.JWKSCacheSec = 300

	c.Rollout.MaxAttempts = 3
	c.Rollout.BackoffBaseMs = 500
	c.Rollout.BackoffMaxMs = 30000
	c.Rollout.DispatchTimeoutSec = 30
	c.Rollout.DownloadTimeoutSec = 120
	c.Rollout.FlashTimeoutSec = 180
	c.Rollout.VerifyTimeoutSec = 60
	c.Rollout.FailureRateThreshold = 0.1
	c.Rollout.AutoRollback = true
	return c
}

func (c *Config) fillRolloutDefaults() {
	d := defaults()
	if c.Rollout.MaxAttempts <= 0 {
		c.Rollout.MaxAttempts = d.Rollout.MaxAttempts
	}
	if c.Rollout.BackoffBaseMs <= 0 {
		c.Rollout.BackoffBaseMs = d.Rollout.BackoffBaseMs
	}
	if c.Rollout.BackoffMaxMs <= 0 {
		c.Rollout.BackoffMaxMs = d.Rollout.BackoffMaxMs
	}
	if c.Rollout.DispatchTimeoutSec <= 0 {
		c.Rollout.DispatchTimeoutSec = d.Rollout.DispatchTimeoutSec
	}
	if c.Rollout.DownloadTimeoutSec <= 0 {
		c.Rollout.DownloadTimeoutSec = d.Rollout.DownloadTimeoutSec
	}
	if c.Rollout.FlashTimeoutSec <= 0 {
		c.Rollout.FlashTimeoutSec = d.Rollout.FlashTimeoutSec
	}
	if c.Rollout.VerifyTimeoutSec <= 0 {
		c.Rollout.VerifyTimeoutSec = d.Rollout.VerifyTimeoutSec
	}
	if c.Rollout.FailureRateThreshold <= 0 || c.Rollout.FailureRateThreshold > 1 {
		c.Rollout.FailureRateThreshold = d.Rollout.FailureRateThreshold
	}
}

// DispatchTimeout returns the transport ack timeout as a duration.
func (c Config) DispatchTimeout() time.Duration {
	return time.Duration(c.Rollout.DispatchTimeoutSec) * time.Second
}

func applyEnv(cfg *Config) {
	setStr(&cfg.ListenAddr, "RO_LISTEN_ADDR")
	setStr(&cfg.PublicBaseURL, "RO_PUBLIC_BASE_URL")
	setStr(&cfg.StorageDir, "RO_STORAGE_DIR")
	setStr(&cfg.DBPath, "RO_DB_PATH")
	setStr(&cfg.AdminKey, "RO_ADMIN_KEY")
	setStr(&cfg.OperatorKey, "RO_OPERATOR_KEY")

	if v := os.Getenv("RO_MAX_UPLOAD_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxUploadMB = n
		}
	}

	setStr(&cfg.Gateway.BaseURL, "RO_GATEWAY_BASE_URL")
	setStr(&cfg.Gateway.APIKey, "RO_GATEWAY_API_KEY")
	if v := os.Getenv("RO_GATEWAY_POLL_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Gateway.PollIntervalSec = n
		}
	}

	setStr(&cfg.Notifications.Secret, "RO_NOTIFY_SECRET")
	if v := os.Getenv("RO_NOTIFY_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Notifications.TimeoutSec = n
		}
	}
	if v := os.Getenv("RO_NOTIFY_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Notifications.Retries = n
		}
	}

	if v := os.Getenv("RO_OIDC_ENABLED"); v != "" {
		cfg.OIDC.Enabled = v == "1" || strings.ToLower(v) == "true"
	}
	setStr(&cfg.OIDC.IssuerURL, "RO_OIDC_ISSUER_URL")
	setStr(&cfg.OIDC.ClientID, "RO_OIDC_CLIENT_ID")
	setStr(&cfg.OIDC.Audience, "RO_OIDC_AUDIENCE")
	setStr(&cfg.OIDC.AdminRole, "RO_OIDC_ADMIN_ROLE")
	setStr(&cfg.OIDC.OperatorRole, "RO_OIDC_OPERATOR_ROLE")

	// Logging configuration
	setStr(&cfg.Logging.Level, "RO_LOG_LEVEL")
	setStr(&cfg.Logging.Format, "RO_LOG_FORMAT")
	setStr(&cfg.Logging.Output, "RO_LOG_OUTPUT")
	setStr(&cfg.Logging.FilePath, "RO_LOG_FILE_PATH")
	setStr(&cfg.Logging.SyslogAddr, "RO_LOG_SYSLOG_ADDR")
	setStr(&cfg.Logging.SyslogNet, "RO_LOG_SYSLOG_NET")

	if v := os.Getenv("RO_LOG_MAX_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Logging.MaxSizeMB = n
		}
	}
	if v := os.Getenv("RO_LOG_MAX_BACKUPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Logging.MaxBackups = n
		}
	}
	if v := os.Getenv("RO_LOG_MAX_AGE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Logging.MaxAgeDays = n
		}
	}
	if v := os.Getenv("RO_LOG_COMPRESS"); v != "" {
		cfg.Logging.Compress = v == "1" || strings.ToLower(v) == "true"
	}

	if v := os.Getenv("RO_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Rollout.MaxAttempts = n
		}
	}
	if v := os.Getenv("RO_FAILURE_RATE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			cfg.Rollout.FailureRateThreshold = f
		}
	}
	if v := os.Getenv("RO_AUTO_ROLLBACK"); v != "" {
		cfg.Rollout.AutoRollback = v == "1" || strings.ToLower(v) == "true"
	}
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
