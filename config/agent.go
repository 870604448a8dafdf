package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Entities served by treasury agents.
const (
	EntityUK = "UK"
	EntityUS = "US"
)

// Model providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderMock      = "mock"
)

// Agent configures one treasury agent process.
type Agent struct {
	Entity           string
	Port             int
	PartnerURL       string
	AccountID        string
	PartnerAccountID string
	Network          string

	Provider        string
	Model           string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	MaxTurns        int

	LogLevel   string
	LogFormat  string
	EventDebug bool

	MaxEvents      int
	BootstrapLimit int
	KeepAlive      time.Duration
	SinkBuffer     int
}

// Partner returns the counterpart entity.
func (a Agent) Partner() string {
	if a.Entity == EntityUK {
		return EntityUS
	}

	return EntityUK
}

// Currency returns the entity's reporting currency.
func (a Agent) Currency() string {
	if a.Entity == EntityUK {
		return "GBP"
	}

	return "USD"
}

// Addr returns the listen address.
func (a Agent) Addr() string {
	return fmt.Sprintf(":%d", a.Port)
}

// AgentID is the sender id used toward the partner, e.g. "uk-treasury-agent".
func (a Agent) AgentID() string {
	return strings.ToLower(a.Entity) + "-treasury-agent"
}

// DefaultAgent returns the built-in settings for entity.
func DefaultAgent(entity string) Agent {
	cfg := Agent{
		Entity:         strings.ToUpper(entity),
		Network:        "testnet",
		Provider:       ProviderAnthropic,
		MaxTurns:       8,
		LogLevel:       "info",
		LogFormat:      "text",
		MaxEvents:      500,
		BootstrapLimit: 50,
		KeepAlive:      25 * time.Second,
		SinkBuffer:     256,
	}

	if cfg.Entity == EntityUK {
		cfg.Port = 4000
		cfg.PartnerURL = "http://localhost:5001"
	} else {
		cfg.Port = 5001
		cfg.PartnerURL = "http://localhost:4000"
	}

	return cfg
}

// LoadAgent reads the configuration of entity from the environment.
// Entity-specific keys carry the entity prefix (UK_A2A_PORT, US_PARTNER_AGENT_URL).
func LoadAgent(entity string, getenv func(string) string) (Agent, error) {
	if entity == "" {
		entity = EntityUK
	}

	cfg := DefaultAgent(entity)
	env := newEnvReader(getenv)
	prefix := cfg.Entity + "_"

	cfg.Port = env.int(prefix+"A2A_PORT", cfg.Port)
	cfg.PartnerURL = env.string(prefix+"PARTNER_AGENT_URL", cfg.PartnerURL)
	cfg.AccountID = env.string(prefix+"HEDERA_ACCOUNT_ID", cfg.AccountID)
	cfg.PartnerAccountID = env.string(prefix+"PARTNER_HEDERA_ACCOUNT_ID", cfg.PartnerAccountID)
	cfg.Network = env.string("HEDERA_NETWORK", cfg.Network)

	cfg.Provider = env.string("MODEL_PROVIDER", cfg.Provider)
	cfg.Model = env.string("MODEL_NAME", cfg.Model)
	cfg.AnthropicAPIKey = env.string("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.OpenAIAPIKey = env.string("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.MaxTurns = env.int("MAX_TURNS", cfg.MaxTurns)

	cfg.LogLevel = env.string("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = env.string("LOG_FORMAT", cfg.LogFormat)
	cfg.EventDebug = env.bool("EVENT_DEBUG", cfg.EventDebug)

	cfg.MaxEvents = env.int("MAX_EVENTS", cfg.MaxEvents)
	cfg.BootstrapLimit = env.int("BOOTSTRAP_LIMIT", cfg.BootstrapLimit)
	cfg.KeepAlive = env.duration("KEEP_ALIVE", cfg.KeepAlive)
	cfg.SinkBuffer = env.int("SUBSCRIBER_BUFFER", cfg.SinkBuffer)

	if err := env.err(); err != nil {
		return Agent{}, err
	}

	return cfg, nil
}

// ParseAgent resolves the entity (--entity, else AGENT_ENTITY, else UK),
// loads its environment and applies explicitly set flags on top.
func ParseAgent(name string, args []string, getenv func(string) string) (Agent, error) {
	var flags Agent

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVar(&flags.Entity, "entity", "", "entity served by this agent: UK or US (env AGENT_ENTITY)")
	fs.IntVar(&flags.Port, "port", 0, "listen port (env <ENTITY>_A2A_PORT)")
	fs.StringVar(&flags.PartnerURL, "partner-url", "", "partner agent base URL (env <ENTITY>_PARTNER_AGENT_URL)")
	fs.StringVar(&flags.AccountID, "account-id", "", "ledger account id (env <ENTITY>_HEDERA_ACCOUNT_ID)")
	fs.StringVar(&flags.Network, "network", "", "ledger network: testnet or mainnet (env HEDERA_NETWORK)")
	fs.StringVar(&flags.Provider, "provider", "", "model provider: anthropic, openai or mock (env MODEL_PROVIDER)")
	fs.StringVar(&flags.Model, "model", "", "model name, provider default when empty (env MODEL_NAME)")
	fs.IntVar(&flags.MaxTurns, "max-turns", 0, "model round trips per message (env MAX_TURNS)")
	fs.StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	fs.StringVar(&flags.LogFormat, "log-format", "", "text or json (env LOG_FORMAT)")
	fs.BoolVar(&flags.EventDebug, "event-debug", false, "log every append and subscriber change (env EVENT_DEBUG=1)")
	fs.IntVar(&flags.MaxEvents, "max-events", 0, "records retained in memory (env MAX_EVENTS)")
	fs.IntVar(&flags.BootstrapLimit, "bootstrap-limit", 0, "records sent on stream connect (env BOOTSTRAP_LIMIT)")
	fs.DurationVar(&flags.KeepAlive, "keep-alive", 0, "stream keep-alive interval (env KEEP_ALIVE)")

	if err := fs.Parse(args); err != nil {
		return Agent{}, err
	}

	entity := newEnvReader(getenv).string("AGENT_ENTITY", EntityUK)
	if fs.Changed("entity") {
		entity = flags.Entity
	}

	cfg, err := LoadAgent(entity, getenv)
	if err != nil {
		return Agent{}, err
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = flags.Port
		case "partner-url":
			cfg.PartnerURL = flags.PartnerURL
		case "account-id":
			cfg.AccountID = flags.AccountID
		case "network":
			cfg.Network = flags.Network
		case "provider":
			cfg.Provider = flags.Provider
		case "model":
			cfg.Model = flags.Model
		case "max-turns":
			cfg.MaxTurns = flags.MaxTurns
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "log-format":
			cfg.LogFormat = flags.LogFormat
		case "event-debug":
			cfg.EventDebug = flags.EventDebug
		case "max-events":
			cfg.MaxEvents = flags.MaxEvents
		case "bootstrap-limit":
			cfg.BootstrapLimit = flags.BootstrapLimit
		case "keep-alive":
			cfg.KeepAlive = flags.KeepAlive
		}
	})

	return cfg, nil
}

// Validate reports every invalid or missing setting at once.
func (a Agent) Validate() error {
	var errs []error

	if a.Entity != EntityUK && a.Entity != EntityUS {
		errs = append(errs, fmt.Errorf("entity must be UK or US, got %q", a.Entity))
	}

	if a.Port < 1 || a.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", a.Port))
	}

	if a.PartnerURL == "" {
		errs = append(errs, errors.New("partner URL is required"))
	}

	if !slices.Contains([]string{"testnet", "mainnet"}, a.Network) {
		errs = append(errs, fmt.Errorf("network must be testnet or mainnet, got %q", a.Network))
	}

	switch a.Provider {
	case ProviderAnthropic:
		if a.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for provider anthropic"))
		}
	case ProviderOpenAI:
		if a.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for provider openai"))
		}
	case ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown model provider %q", a.Provider))
	}

	if !slices.Contains([]string{"text", "json"}, a.LogFormat) {
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", a.LogFormat))
	}

	if a.MaxEvents < 1 {
		errs = append(errs, fmt.Errorf("max events must be positive, got %d", a.MaxEvents))
	}

	if a.KeepAlive <= 0 {
		errs = append(errs, fmt.Errorf("keep-alive must be positive, got %s", a.KeepAlive))
	}

	return errors.Join(errs...)
}
