package dashboard

// Preset is a canned trigger scenario.
type Preset struct {
	Title   string `json:"title"`
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Target  string `json:"target"`
}

// Presets are the scenarios offered on the board.
var Presets = []Preset{
	{
		Title:   "Invoice due: 50 HBAR",
		Detail:  "Software license payment",
		Message: "AP INVOICE: 50 HBAR due for software license",
		Target:  "UK",
	},
	{
		Title:   "Invoice due: 1000 HBAR",
		Detail:  "Large vendor invoice due ASAP",
		Message: "NEW AP INVOICE: 1000 HBAR due for hardware supplier ASAP. Account ID to transfer to: 0.0.5115129",
		Target:  "US",
	},
	{
		Title:   "Cash surplus: 5000 HBAR",
		Detail:  "Evaluate yield-bearing options",
		Message: "CASH SURPLUS: 5000 HBAR above target threshold",
		Target:  "US",
	},
	{
		Title:   "Payroll run: 12000 HBAR",
		Detail:  "Upcoming payroll cycle",
		Message: "PAYROLL RUN: 12000 HBAR scheduled next week",
		Target:  "UK",
	},
}
