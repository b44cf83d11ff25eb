package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath       = "config.toml"
	DefaultHTTPAddr         = ":8080"
	DefaultLineAPIBase      = "https://api.line.me"
	DefaultLineDataAPIBase  = "https://api-data.line.me"
	DefaultMediaServiceBase = "https://mcs.us1.twilio.com"
	DefaultOutgoingPath     = "api/line/outgoing"
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultDedupeTTL        = 10 * time.Minute
	DefaultDedupeSize       = 10000

	// DomainOverridePlaceholder is the template value shipped in sample env files.
	// An override equal to it is treated as unset.
	DomainOverridePlaceholder = "<YOUR_DOMAIN_NAME_OVERRIDE>"
)

type Config struct {
	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`
	Line   LineConfig   `toml:"line"`
	Twilio TwilioConfig `toml:"twilio"`
	Menu   MenuConfig   `toml:"menu"`
	HTTP   HTTPConfig   `toml:"http"`
	Dedupe DedupeConfig `toml:"dedupe"`
}

type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LineConfig struct {
	ChannelSecret      string `toml:"channel_secret" validate:"required"`
	ChannelAccessToken string `toml:"channel_access_token" validate:"required"`
	APIBase            string `toml:"api_base" validate:"omitempty,url"`
	DataAPIBase        string `toml:"data_api_base" validate:"omitempty,url"`
}

type TwilioConfig struct {
	AccountSID         string `toml:"account_sid" validate:"required"`
	AuthToken          string `toml:"auth_token" validate:"required"`
	StudioFlowSID      string `toml:"studio_flow_sid" validate:"required"`
	DomainName         string `toml:"domain_name" validate:"required_without=DomainNameOverride"`
	DomainNameOverride string `toml:"domain_name_override"`
	OutgoingPath       string `toml:"outgoing_path"`
	MediaServiceBase   string `toml:"media_service_base" validate:"omitempty,url"`
}

// WebhookDomain returns the host that conversation-scoped callbacks should target.
// A non-empty override wins unless it still holds the sample placeholder.
func (c TwilioConfig) WebhookDomain() string {
	override := strings.TrimSpace(c.DomainNameOverride)
	if override != "" && override != DomainOverridePlaceholder {
		return override
	}
	return strings.TrimSpace(c.DomainName)
}

type MenuConfig struct {
	// Path is an optional YAML menu file; the embedded default menu is used when empty.
	Path        string `toml:"path"`
	CampaignURL string `toml:"campaign_url"`
}

// Vars returns the placeholder values substituted into menu payloads.
func (c MenuConfig) Vars() map[string]string {
	return map[string]string{"CAMPAIGN_URL": c.CampaignURL}
}

type HTTPConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds" validate:"gte=0"`
}

// Timeout returns the outbound HTTP client timeout.
func (c HTTPConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultHTTPTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type DedupeConfig struct {
	TTLSeconds int `toml:"ttl_seconds" validate:"gte=0"`
	MaxEntries int `toml:"max_entries" validate:"gte=0"`
}

// TTL returns how long a handled webhook event id is remembered.
func (c DedupeConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return DefaultDedupeTTL
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// Size returns the dedupe cache capacity.
func (c DedupeConfig) Size() int {
	if c.MaxEntries <= 0 {
		return DefaultDedupeSize
	}
	return c.MaxEntries
}

// envBindings maps deployment environment variables onto config fields.
// Names follow the serverless deployment the adapter was first shipped with.
func envBindings(cfg *Config) map[string]*string {
	return map[string]*string{
		"LINE_CHANNEL_SECRET":       &cfg.Line.ChannelSecret,
		"LINE_CHANNEL_ACCESS_TOKEN": &cfg.Line.ChannelAccessToken,
		"ACCOUNT_SID":               &cfg.Twilio.AccountSID,
		"AUTH_TOKEN":                &cfg.Twilio.AuthToken,
		"LINE_STUDIO_FLOW_SID":      &cfg.Twilio.StudioFlowSID,
		"DOMAIN_NAME":               &cfg.Twilio.DomainName,
		"DOMAIN_NAME_OVERRIDE":      &cfg.Twilio.DomainNameOverride,
		"CAMPAIGN_URL":              &cfg.Menu.CampaignURL,
	}
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Line: LineConfig{
			APIBase:     DefaultLineAPIBase,
			DataAPIBase: DefaultLineDataAPIBase,
		},
		Twilio: TwilioConfig{
			OutgoingPath:     DefaultOutgoingPath,
			MediaServiceBase: DefaultMediaServiceBase,
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: int(DefaultHTTPTimeout / time.Second),
		},
		Dedupe: DedupeConfig{
			TTLSeconds: int(DefaultDedupeTTL / time.Second),
			MaxEntries: DefaultDedupeSize,
		},
	}
}

// Load reads the TOML file at path over the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}

	applyEnv(&cfg, os.LookupEnv)
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	for key, field := range envBindings(cfg) {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			*field = strings.TrimSpace(value)
		}
	}
}

// Validate checks that every credential the adapter needs at request time is present.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Twilio.WebhookDomain() == "" {
		return fmt.Errorf("invalid config: twilio domain_name is required")
	}
	return nil
}
