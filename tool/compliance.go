package tool

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentfeed/core"
)

// Policy holds an entity's transfer compliance thresholds, expressed in the
// entity's reporting currency.
type Policy struct {
	Entity                 string
	Currency               string
	DocumentationThreshold float64
	ApprovalThreshold      float64
}

// DefaultPolicy returns the built-in thresholds for "UK" or "US". Unknown
// entities get the US thresholds.
func DefaultPolicy(entity string) Policy {
	if strings.EqualFold(entity, "UK") {
		return Policy{Entity: "UK", Currency: "GBP", DocumentationThreshold: 10_000, ApprovalThreshold: 250_000}
	}

	return Policy{Entity: "US", Currency: "USD", DocumentationThreshold: 10_000, ApprovalThreshold: 1_000_000}
}

// Thresholds is the threshold block of a ComplianceCheck.
type Thresholds struct {
	DocumentationRequired float64 `json:"documentationRequired"`
	ApprovalRequired      float64 `json:"approvalRequired"`
}

// ComplianceCheck is the result of check_compliance.
type ComplianceCheck struct {
	Entity                string     `json:"entity"`
	TransferAmount        float64    `json:"transferAmount"`
	Currency              string     `json:"currency"`
	RequiresApproval      bool       `json:"requiresApproval"`
	RequiresDocumentation bool       `json:"requiresDocumentation"`
	Thresholds            Thresholds `json:"thresholds"`
}

// Evaluate applies the policy to an amount.
func (p Policy) Evaluate(amount float64, currency string) ComplianceCheck {
	return ComplianceCheck{
		Entity:                p.Entity,
		TransferAmount:        amount,
		Currency:              strings.ToUpper(currency),
		RequiresApproval:      amount >= p.ApprovalThreshold,
		RequiresDocumentation: amount >= p.DocumentationThreshold,
		Thresholds: Thresholds{
			DocumentationRequired: p.DocumentationThreshold,
			ApprovalRequired:      p.ApprovalThreshold,
		},
	}
}

type complianceArgs struct {
	Amount   float64 `json:"amount" description:"Transfer amount"`
	Currency string  `json:"currency" enum:"HBAR|USD|GBP" description:"Transfer currency"`
	Purpose  string  `json:"purpose,omitempty" description:"Business justification"`
}

// NewComplianceTool returns the check_compliance tool for policy.
func NewComplianceTool(policy Policy) *FunctionTool {
	return NewFunctionToolFromStruct(
		"check_compliance",
		fmt.Sprintf("Check a proposed transfer against %s treasury compliance thresholds.", policy.Entity),
		complianceArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			amount, _ := args["amount"].(float64)
			if amount <= 0 {
				return nil, NewToolError("check_compliance", "amount must be positive", CodeValidation)
			}

			currency, _ := args["currency"].(string)
			check := policy.Evaluate(amount, currency)

			tc.Logger().Info("compliance checked",
				"amount", amount,
				"currency", check.Currency,
				"requires_approval", check.RequiresApproval,
			)

			return check, nil
		},
	)
}
