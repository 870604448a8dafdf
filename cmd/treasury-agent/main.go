// Command treasury-agent runs one treasury agent (UK or US). It serves the
// agent's event stream, the a2a trigger endpoint and /health.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentfeed"
	"github.com/hupe1980/agentfeed/a2a"
	"github.com/hupe1980/agentfeed/agent"
	"github.com/hupe1980/agentfeed/config"
	"github.com/hupe1980/agentfeed/logging"
	"github.com/hupe1980/agentfeed/model"
	anthropicmodel "github.com/hupe1980/agentfeed/model/anthropic"
	openaimodel "github.com/hupe1980/agentfeed/model/openai"
	"github.com/hupe1980/agentfeed/tool"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "treasury-agent: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.ParseAgent(os.Args[0], os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Output:    os.Stderr,
		Component: "treasury-agent",
		Agent:     cfg.Entity,
	})

	llm, err := newModel(cfg)
	if err != nil {
		return err
	}

	policy := tool.DefaultPolicy(cfg.Entity)
	partner := a2a.NewClient(cfg.PartnerURL, func(o *a2a.ClientOptions) {
		o.Sender = cfg.AgentID()
	})

	exec := agent.NewExecutor(cfg.Entity, llm, func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromTemplate(agent.TreasuryInstruction, map[string]any{
			"entity":                 cfg.Entity,
			"currency":               cfg.Currency(),
			"partner":                cfg.Partner(),
			"accountId":              cfg.AccountID,
			"network":                cfg.Network,
			"documentationThreshold": policy.DocumentationThreshold,
			"approvalThreshold":      policy.ApprovalThreshold,
		})
		o.Tools = []tool.Tool{
			tool.NewComplianceTool(policy),
			tool.NewPartnerMessageTool(cfg.Partner(), partner),
		}
		o.MaxTurns = cfg.MaxTurns
		o.Logger = logger.WithComponent("executor")
	})

	node := agentfeed.New(cfg.Entity, exec, func(o *agentfeed.Options) {
		o.Network = cfg.Network
		o.AccountID = cfg.AccountID
		o.MaxEvents = cfg.MaxEvents
		o.BootstrapLimit = cfg.BootstrapLimit
		o.SinkBuffer = cfg.SinkBuffer
		o.KeepAlive = cfg.KeepAlive
		o.EventDebug = cfg.EventDebug
		o.Card = a2a.AgentCard{
			Name:        cfg.Entity + " Treasury Agent",
			Description: fmt.Sprintf("Treasury operations for the %s entity (%s).", cfg.Entity, cfg.Currency()),
			Version:     "1.0.0",
		}
		o.Logger = logger
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		"addr", cfg.Addr(),
		"partner", cfg.PartnerURL,
		"provider", cfg.Provider,
		"network", cfg.Network,
	)

	if err := node.ListenAndServe(ctx, cfg.Addr()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("stopped")

	return nil
}

func newModel(cfg config.Agent) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.APIKey = cfg.AnthropicAPIKey
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
		}), nil
	case config.ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			o.APIKey = cfg.OpenAIAPIKey
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil
	case config.ProviderMock:
		// echoes every message; runs the event pipeline without a provider key
		return model.NewMockModel("mock", "mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
