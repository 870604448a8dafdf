package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadAgent_Defaults(t *testing.T) {
	uk, err := LoadAgent("uk", nil)
	require.NoError(t, err)
	assert.Equal(t, "UK", uk.Entity)
	assert.Equal(t, 4000, uk.Port)
	assert.Equal(t, "US", uk.Partner())
	assert.Equal(t, "GBP", uk.Currency())
	assert.Equal(t, "uk-treasury-agent", uk.AgentID())
	assert.Equal(t, 500, uk.MaxEvents)
	assert.Equal(t, 50, uk.BootstrapLimit)
	assert.Equal(t, 25*time.Second, uk.KeepAlive)

	us, err := LoadAgent("US", nil)
	require.NoError(t, err)
	assert.Equal(t, 5001, us.Port)
	assert.Equal(t, ":5001", us.Addr())
	assert.Equal(t, "http://localhost:4000", us.PartnerURL)
	assert.Equal(t, "USD", us.Currency())
}

func TestLoadAgent_Env(t *testing.T) {
	cfg, err := LoadAgent("US", envMap(map[string]string{
		"US_A2A_PORT":          "6001",
		"UK_A2A_PORT":          "9999",
		"US_PARTNER_AGENT_URL": "http://uk:4000",
		"US_HEDERA_ACCOUNT_ID": "0.0.42",
		"HEDERA_NETWORK":       "mainnet",
		"EVENT_DEBUG":          "1",
		"KEEP_ALIVE":           "10s",
	}))
	require.NoError(t, err)

	assert.Equal(t, 6001, cfg.Port)
	assert.Equal(t, "http://uk:4000", cfg.PartnerURL)
	assert.Equal(t, "0.0.42", cfg.AccountID)
	assert.Equal(t, "mainnet", cfg.Network)
	assert.True(t, cfg.EventDebug)
	assert.Equal(t, 10*time.Second, cfg.KeepAlive)
}

func TestLoadAgent_InvalidEnv(t *testing.T) {
	_, err := LoadAgent("UK", envMap(map[string]string{
		"UK_A2A_PORT": "four-thousand",
		"KEEP_ALIVE":  "soon",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UK_A2A_PORT")
	assert.Contains(t, err.Error(), "KEEP_ALIVE")
}

func TestParseAgent_FlagsOverrideEnv(t *testing.T) {
	env := envMap(map[string]string{
		"AGENT_ENTITY":   "US",
		"US_A2A_PORT":    "6001",
		"MODEL_PROVIDER": "openai",
	})

	cfg, err := ParseAgent("treasury-agent", []string{"--port", "7001", "--provider=mock"}, env)
	require.NoError(t, err)
	assert.Equal(t, "US", cfg.Entity)
	assert.Equal(t, 7001, cfg.Port)
	assert.Equal(t, ProviderMock, cfg.Provider)

	cfg, err = ParseAgent("treasury-agent", []string{"--entity", "UK"}, env)
	require.NoError(t, err)
	assert.Equal(t, "UK", cfg.Entity)
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)

	_, err = ParseAgent("treasury-agent", []string{"--bogus"}, env)
	assert.Error(t, err)
}

func TestAgentValidate(t *testing.T) {
	cfg := DefaultAgent("UK")
	cfg.Provider = ProviderMock
	require.NoError(t, cfg.Validate())

	cfg = DefaultAgent("FR")
	cfg.Port = 0
	cfg.Network = "devnet"
	cfg.MaxEvents = 0

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "entity must be UK or US")
	assert.Contains(t, msg, "port out of range")
	assert.Contains(t, msg, "network must be testnet or mainnet")
	assert.Contains(t, msg, "ANTHROPIC_API_KEY is required")
	assert.Contains(t, msg, "max events must be positive")
}

func TestParseDashboard(t *testing.T) {
	cfg, err := ParseDashboard("treasury-dashboard", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDashboard(), cfg)
	require.NoError(t, cfg.Validate())

	cfg, err = ParseDashboard("treasury-dashboard",
		[]string{"--us-url", "http://us.internal:5001", "--terminal"},
		envMap(map[string]string{"UK_AGENT_URL": "http://uk.internal:4000", "POLL_INTERVAL": "2s"}))
	require.NoError(t, err)
	assert.Equal(t, "http://uk.internal:4000", cfg.UKURL)
	assert.Equal(t, "http://us.internal:5001", cfg.USURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.True(t, cfg.Terminal)
}

func TestDashboardValidate(t *testing.T) {
	cfg := DefaultDashboard()
	cfg.UKURL = "localhost"
	cfg.PollInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UK agent URL must be an absolute URL")
	assert.Contains(t, err.Error(), "poll interval must be positive")
}
