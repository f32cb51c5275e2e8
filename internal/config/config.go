// Package config loads collector configuration from the environment (and an
// optional config file) and validates it before any network activity.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nucleus/di-collector/internal/archive"
	"github.com/nucleus/di-collector/internal/core"
	"github.com/nucleus/di-collector/internal/insights"
	"github.com/nucleus/di-collector/internal/objectstore"
	"github.com/nucleus/di-collector/internal/schedule"
	"github.com/nucleus/di-collector/internal/watermark"
)

// Mode selects how a run derives its bounds.
type Mode string

const (
	// ModeScheduled resolves the start from storage and snaps the end to
	// the cron schedule.
	ModeScheduled Mode = "scheduled"
	// ModeOnDemand takes explicit start and end bounds.
	ModeOnDemand Mode = "on_demand"
)

// ParseMode accepts "scheduled", "on_demand" or "ondemand".
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(ModeScheduled):
		return ModeScheduled, nil
	case string(ModeOnDemand), "ondemand", "on-demand":
		return ModeOnDemand, nil
	}
	return "", core.ConfigurationError("unknown mode %q", raw)
}

// Config holds all configuration for the collector.
type Config struct {
	Mode Mode

	// Upstream API
	APIKey    string
	OrgID     string
	APIURL    string
	Services  insights.Selector
	RateLimit float64
	RateBurst int

	// Storage
	Bucket       string
	ObjectPrefix string
	Storage      objectstore.Config
	ArchiveKeep  int

	// Scheduling
	CronSchedule string
	Schedule     *schedule.Schedule

	// On-demand overrides for local testing (start_date / end_date)
	StartOverride string
	EndOverride   string

	// Server
	Port int

	// Temporal
	TemporalAddress   string
	TemporalNamespace string
	TemporalTaskQueue string
	// TemporalRunTimeout bounds one collection activity.
	TemporalRunTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// bindings maps each key to the environment names it is read from. The
// lower-case names are the collector's historical variables.
var bindings = map[string][]string{
	"api_key":            {"jc_api_key", "JC_API_KEY"},
	"org_id":             {"jc_org_id", "JC_ORG_ID"},
	"service":            {"service", "SERVICE"},
	"bucket_name":        {"bucket_name", "BUCKET_NAME"},
	"cron_schedule":      {"cron_schedule", "CRON_SCHEDULE"},
	"start_date":         {"start_date", "START_DATE"},
	"end_date":           {"end_date", "END_DATE"},
	"api_url":            {"JC_API_URL"},
	"rate_limit":         {"JC_RATE_LIMIT"},
	"rate_burst":         {"JC_RATE_BURST"},
	"object_prefix":      {"OBJECT_PREFIX"},
	"storage_endpoint":   {"STORAGE_ENDPOINT"},
	"storage_access_key": {"STORAGE_ACCESS_KEY"},
	"storage_secret_key": {"STORAGE_SECRET_KEY"},
	"storage_region":     {"STORAGE_REGION"},
	"storage_use_ssl":    {"STORAGE_USE_SSL"},
	"storage_root":       {"STORAGE_ROOT"},
	"archive_keep":       {"ARCHIVE_KEEP"},
	"mode":               {"DI_MODE"},
	"port":               {"DI_PORT", "PORT"},
	"temporal_address":   {"TEMPORAL_ADDRESS"},
	"temporal_namespace": {"TEMPORAL_NAMESPACE"},
	"temporal_queue":     {"TEMPORAL_TASK_QUEUE"},
	"temporal_timeout":   {"TEMPORAL_RUN_TIMEOUT"},
	"log_level":          {"LOG_LEVEL"},
	"log_format":         {"LOG_FORMAT"},
}

// NewViper returns a viper instance with defaults and environment bindings
// applied. Callers may bind flags or set a config file before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		_ = v.BindEnv(args...)
	}
	v.SetDefault("api_url", insights.DefaultBaseURL)
	v.SetDefault("rate_limit", 10.0)
	v.SetDefault("rate_burst", 5)
	v.SetDefault("object_prefix", watermark.DefaultPrefix)
	v.SetDefault("archive_keep", archive.DefaultKeep)
	v.SetDefault("port", 8080)
	v.SetDefault("temporal_address", "localhost:7233")
	v.SetDefault("temporal_namespace", "default")
	v.SetDefault("temporal_queue", "directory-insights")
	v.SetDefault("temporal_timeout", "24h")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	return v
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	return FromViper(NewViper())
}

// FromViper builds and validates a Config. The API key, org id (which may
// be empty), service list and bucket are always required; the cron schedule
// is required in scheduled mode.
func FromViper(v *viper.Viper) (*Config, error) {
	mode, err := ParseMode(v.GetString("mode"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Mode:          mode,
		APIKey:        strings.TrimSpace(v.GetString("api_key")),
		OrgID:         strings.TrimSpace(v.GetString("org_id")),
		APIURL:        v.GetString("api_url"),
		RateLimit:     v.GetFloat64("rate_limit"),
		RateBurst:     v.GetInt("rate_burst"),
		Bucket:        strings.TrimSpace(v.GetString("bucket_name")),
		ObjectPrefix:  v.GetString("object_prefix"),
		ArchiveKeep:   v.GetInt("archive_keep"),
		CronSchedule:  strings.TrimSpace(v.GetString("cron_schedule")),
		StartOverride: strings.TrimSpace(v.GetString("start_date")),
		EndOverride:   strings.TrimSpace(v.GetString("end_date")),
		Port:          v.GetInt("port"),
		Storage: objectstore.Config{
			EndpointURL:     v.GetString("storage_endpoint"),
			Region:          v.GetString("storage_region"),
			UseSSL:          v.GetBool("storage_use_ssl"),
			AccessKeyID:     v.GetString("storage_access_key"),
			SecretAccessKey: v.GetString("storage_secret_key"),
			RootPath:        v.GetString("storage_root"),
		},
		TemporalAddress:    v.GetString("temporal_address"),
		TemporalNamespace:  v.GetString("temporal_namespace"),
		TemporalTaskQueue:  v.GetString("temporal_queue"),
		TemporalRunTimeout: v.GetDuration("temporal_timeout"),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
	}

	if cfg.APIKey == "" {
		return nil, missing("api_key")
	}
	if !v.IsSet("org_id") && !envPresent(bindings["org_id"]) {
		return nil, missing("org_id")
	}
	if cfg.Bucket == "" {
		return nil, missing("bucket_name")
	}
	if err := cfg.Storage.Validate(); err != nil {
		return nil, core.ConfigurationError("storage_endpoint: %v", err)
	}
	rawServices := v.GetString("service")
	if strings.TrimSpace(rawServices) == "" {
		return nil, missing("service")
	}
	if cfg.Services, err = insights.ParseSelector(rawServices); err != nil {
		return nil, err
	}
	if cfg.ArchiveKeep <= 0 {
		return nil, core.ConfigurationError("archive_keep must be positive, got %d", cfg.ArchiveKeep)
	}
	if cfg.RateLimit <= 0 || cfg.RateBurst <= 0 {
		return nil, core.ConfigurationError("rate limit and burst must be positive")
	}
	if cfg.TemporalRunTimeout <= 0 {
		return nil, core.ConfigurationError("temporal run timeout must be a positive duration, got %q", v.GetString("temporal_timeout"))
	}

	if cfg.CronSchedule != "" {
		if cfg.Schedule, err = schedule.Parse(cfg.CronSchedule); err != nil {
			return nil, err
		}
	}
	if cfg.Mode == ModeScheduled && cfg.Schedule == nil {
		return nil, missing("cron_schedule")
	}
	return cfg, nil
}

// envPresent reports whether any of names is set, even to "". Viper treats
// empty variables as unset.
func envPresent(names []string) bool {
	for _, name := range names {
		if _, ok := os.LookupEnv(name); ok {
			return true
		}
	}
	return false
}

func missing(key string) error {
	return core.ConfigurationError("missing required configuration %s (env %s)", key, strings.Join(bindings[key], " or "))
}

// String renders the config without secrets.
func (c *Config) String() string {
	return fmt.Sprintf("mode=%s services=%s bucket=%s prefix=%s cron=%q api=%s org_set=%t",
		c.Mode, c.Services, c.Bucket, c.ObjectPrefix, c.CronSchedule, c.APIURL, c.OrgID != "")
}
