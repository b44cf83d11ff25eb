package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.Line.ChannelSecret = "secret"
	cfg.Line.ChannelAccessToken = "token"
	cfg.Twilio.AccountSID = "AC123"
	cfg.Twilio.AuthToken = "auth"
	cfg.Twilio.StudioFlowSID = "FW123"
	cfg.Twilio.DomainName = "adapter.example.com"
	return cfg
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultLineAPIBase, cfg.Line.APIBase)
	assert.Equal(t, DefaultOutgoingPath, cfg.Twilio.OutgoingPath)
}

func TestLoadDecodesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
addr = ":9000"

[line]
channel_secret = "file-secret"

[twilio]
domain_name = "file.example.com"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "file-secret", cfg.Line.ChannelSecret)
	assert.Equal(t, "file.example.com", cfg.Twilio.DomainName)
	assert.Equal(t, DefaultMediaServiceBase, cfg.Twilio.MediaServiceBase)
}

func TestApplyEnvOverridesFileValues(t *testing.T) {
	cfg := Default()
	cfg.Line.ChannelSecret = "file-secret"
	env := map[string]string{
		"LINE_CHANNEL_SECRET": " env-secret ",
		"CAMPAIGN_URL":        "https://example.com/campaign",
		"DOMAIN_NAME":         "",
	}
	applyEnv(&cfg, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	assert.Equal(t, "env-secret", cfg.Line.ChannelSecret)
	assert.Equal(t, "https://example.com/campaign", cfg.Menu.CampaignURL)
	assert.Equal(t, "", cfg.Twilio.DomainName)
}

func TestWebhookDomain(t *testing.T) {
	cases := []struct {
		name     string
		domain   string
		override string
		want     string
	}{
		{name: "no override", domain: "a.example.com", want: "a.example.com"},
		{name: "override wins", domain: "a.example.com", override: "b.example.com", want: "b.example.com"},
		{name: "placeholder ignored", domain: "a.example.com", override: DomainOverridePlaceholder, want: "a.example.com"},
		{name: "blank override ignored", domain: "a.example.com", override: "  ", want: "a.example.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := TwilioConfig{DomainName: tc.domain, DomainNameOverride: tc.override}
			assert.Equal(t, tc.want, cfg.WebhookDomain())
		})
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	missingSecret := validConfig()
	missingSecret.Line.ChannelSecret = ""
	assert.Error(t, missingSecret.Validate())

	badFormat := validConfig()
	badFormat.Log.Format = "xml"
	assert.Error(t, badFormat.Validate())

	overrideOnly := validConfig()
	overrideOnly.Twilio.DomainName = ""
	overrideOnly.Twilio.DomainNameOverride = "override.example.com"
	assert.NoError(t, overrideOnly.Validate())

	placeholderOnly := validConfig()
	placeholderOnly.Twilio.DomainName = ""
	placeholderOnly.Twilio.DomainNameOverride = DomainOverridePlaceholder
	assert.Error(t, placeholderOnly.Validate())
}

func TestTimeoutsFallBackToDefaults(t *testing.T) {
	assert.Equal(t, DefaultHTTPTimeout, HTTPConfig{}.Timeout())
	assert.Equal(t, 5*time.Second, HTTPConfig{TimeoutSeconds: 5}.Timeout())
	assert.Equal(t, DefaultDedupeTTL, DedupeConfig{}.TTL())
	assert.Equal(t, DefaultDedupeSize, DedupeConfig{}.Size())
}
