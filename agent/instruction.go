package agent

import (
	"maps"

	"github.com/hupe1980/agentfeed/core"
	"github.com/hupe1980/agentfeed/internal/util"
)

// Provider supplies instruction text per session.
type Provider interface {
	Instruction(session core.Session) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(core.Session) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(s core.Session) (string, error) { return f(s) }

// Instruction is either a text/template rendered against fixed variables or
// a dynamic provider.
type Instruction struct {
	text     string
	vars     map[string]any
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromTemplate creates an Instruction rendered with vars plus
// the session under the "session" key.
func NewInstructionFromTemplate(text string, vars map[string]any) Instruction {
	return Instruction{text: text, vars: maps.Clone(vars)}
}

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(core.Session) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by text.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text for session.
func (i Instruction) Resolve(session core.Session) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(session)
	}

	if i.vars == nil {
		return i.text, nil
	}

	data := maps.Clone(i.vars)
	data["session"] = session

	return util.RenderTemplate(i.text, data)
}

// TreasuryInstruction is the default system prompt of a treasury agent. It
// expects the variables entity, currency, partner, accountId, network,
// documentationThreshold and approvalThreshold.
const TreasuryInstruction = `You are the {{.entity}} treasury agent of a multinational company.
Your reporting currency is {{.currency}} and you operate ledger account {{.accountId}} on {{.network}}.
Your counterpart is the {{.partner}} treasury agent; talk to it only through send_partner_message.

Rules:
- Call check_compliance before you agree to or request any transfer.
- Transfers of {{money .documentationThreshold .currency}} or more need documentation.
- Transfers of {{money .approvalThreshold .currency}} or more need human approval; do not execute them.
- Keep answers short and state amounts with their currency.`
