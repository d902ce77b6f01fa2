package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/AngelCh415/studio-insights/internal/validation"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Sources SourcesConfig `koanf:"sources"`
	Sink    SinkConfig    `koanf:"sink"`
	Logging LoggingConfig `koanf:"logging"`
	Reports ReportsConfig `koanf:"reports"`
}

type ServerConfig struct {
	Port                int           `koanf:"port" validate:"min=1,max=65535"`
	ReadHeaderTimeout   time.Duration `koanf:"read_header_timeout" validate:"gt=0"`
	CORSOrigins         []string      `koanf:"cors_origins"`
	IngestRatePerMinute int           `koanf:"ingest_rate_per_minute" validate:"min=1"`
}

// SourcesConfig points at the JSON endpoints of each dataset. Token is sent
// as a bearer credential on every fetch.
type SourcesConfig struct {
	ClientsURL  string        `koanf:"clients_url" validate:"omitempty,url"`
	LeadsURL    string        `koanf:"leads_url" validate:"omitempty,url"`
	SessionsURL string        `koanf:"sessions_url" validate:"omitempty,url"`
	SalesURL    string        `koanf:"sales_url" validate:"omitempty,url"`
	Token       string        `koanf:"token"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	Retries     int           `koanf:"retries" validate:"min=0,max=10"`
	RetryBase   time.Duration `koanf:"retry_base" validate:"gte=0"`
	LoadOnStart bool          `koanf:"load_on_start"`
	// Schedule is a cron expression for periodic refresh; empty disables it.
	Schedule string `koanf:"schedule"`
}

type SinkConfig struct {
	URL    string `koanf:"url" validate:"omitempty,url"`
	Secret string `koanf:"secret" validate:"required_with=URL"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

type ReportsConfig struct {
	// ReferenceYear anchors year-on-year views; 0 uses the current year.
	ReferenceYear int `koanf:"reference_year" validate:"min=0,max=9999"`
}

// Datasets maps each configured dataset name to its URL.
func (s SourcesConfig) Datasets() map[string]string {
	out := map[string]string{}
	for name, url := range map[string]string{
		"clients":  s.ClientsURL,
		"leads":    s.LeadsURL,
		"sessions": s.SessionsURL,
		"sales":    s.SalesURL,
	} {
		if url != "" {
			out[name] = url
		}
	}
	return out
}

// Validate checks field ranges and formats.
func (c *Config) Validate() error {
	for _, part := range []any{&c.Server, &c.Sources, &c.Sink, &c.Logging, &c.Reports} {
		if err := validation.Struct(part); err != nil {
			return err
		}
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                8080,
			ReadHeaderTimeout:   10 * time.Second,
			CORSOrigins:         []string{"*"},
			IngestRatePerMinute: 6,
		},
		Sources: SourcesConfig{
			Timeout:     15 * time.Second,
			Retries:     2,
			RetryBase:   100 * time.Millisecond,
			LoadOnStart: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// ConfigPathEnvVar names the variable holding an explicit config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// Load layers defaults, an optional YAML file and environment variables, in
// that order of increasing priority.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitCSV(k, "server.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// splitCSV turns a comma-separated env value into a list; YAML lists pass
// through untouched.
func splitCSV(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if err := k.Set(path, parts); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

var envMappings = map[string]string{
	"port":                   "server.port",
	"read_header_timeout":    "server.read_header_timeout",
	"cors_origins":           "server.cors_origins",
	"ingest_rate_per_minute": "server.ingest_rate_per_minute",

	"clients_api_url":       "sources.clients_url",
	"leads_api_url":         "sources.leads_url",
	"sessions_api_url":      "sources.sessions_url",
	"sales_api_url":         "sources.sales_url",
	"sources_token":         "sources.token",
	"http_timeout":          "sources.timeout",
	"sources_retries":       "sources.retries",
	"sources_retry_base":    "sources.retry_base",
	"sources_load_on_start": "sources.load_on_start",
	"sources_schedule":      "sources.schedule",

	"sink_url":    "sink.url",
	"sink_secret": "sink.secret",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"reference_year": "reports.reference_year",
}

// envTransformFunc maps known environment variables to config paths and
// drops everything else.
//
//	PORT          -> server.port
//	LEADS_API_URL -> sources.leads_url
//	SINK_SECRET   -> sink.secret
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
