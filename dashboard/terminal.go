package dashboard

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hupe1980/agentfeed/core"
	"github.com/hupe1980/agentfeed/reconciler"
	"github.com/hupe1980/agentfeed/render"
)

// Theme holds the terminal colors of a Printer.
type Theme struct {
	Heading lipgloss.Color
	Faint   lipgloss.Color
	Open    lipgloss.Color
	Pending lipgloss.Color
	Failed  lipgloss.Color
	Kinds   map[core.Kind]lipgloss.Color
}

// DefaultTheme is a 256-color theme for dark terminals.
var DefaultTheme = Theme{
	Heading: lipgloss.Color("15"),
	Faint:   lipgloss.Color("245"),
	Open:    lipgloss.Color("42"),
	Pending: lipgloss.Color("214"),
	Failed:  lipgloss.Color("196"),
	Kinds: map[core.Kind]lipgloss.Color{
		core.KindAssistantUpdate: lipgloss.Color("69"),
		core.KindResult:          lipgloss.Color("42"),
		core.KindToolUse:         lipgloss.Color("214"),
		core.KindPartnerMessage:  lipgloss.Color("170"),
	},
}

// Printer writes board snapshots as styled plain text.
type Printer struct {
	theme Theme
	width int
}

// NewPrinter creates a printer wrapping record text at width columns.
func NewPrinter(theme Theme, width int) *Printer {
	if width < 20 {
		width = 20
	}

	return &Printer{theme: theme, width: width}
}

// Print writes snap to w.
func (p *Printer) Print(w io.Writer, snap Snapshot) error {
	var b strings.Builder

	heading := lipgloss.NewStyle().Bold(true).Foreground(p.theme.Heading)
	faint := lipgloss.NewStyle().Foreground(p.theme.Faint)

	b.WriteString(heading.Render(fmt.Sprintf("Treasury agents  (events tracked %d)", snap.Tracked)))
	b.WriteString("\n")

	for _, col := range snap.Columns {
		b.WriteString("\n")
		b.WriteString(heading.Render(col.Agent+" Treasury Agent"))
		b.WriteString("  ")
		b.WriteString(p.status(col.Status))
		b.WriteString(faint.Render(fmt.Sprintf("  %d events", col.Total)))
		b.WriteString("\n")

		if len(col.Recent) == 0 {
			b.WriteString(faint.Render("  waiting for activity"))
			b.WriteString("\n")
		}

		for _, rec := range col.Recent {
			b.WriteString(p.line(rec, ""))
		}
	}

	b.WriteString("\n")
	b.WriteString(heading.Render("A2A Communication"))
	b.WriteString("\n")

	if len(snap.Flow) == 0 {
		b.WriteString(faint.Render("  no partner messages yet"))
		b.WriteString("\n")
	}

	for _, rec := range snap.Flow {
		b.WriteString(p.line(rec, rec.Agent+" "))
	}

	_, err := io.WriteString(w, b.String())

	return err
}

func (p *Printer) status(s reconciler.Status) string {
	color := p.theme.Pending

	switch s {
	case reconciler.StatusOpen:
		color = p.theme.Open
	case reconciler.StatusError:
		color = p.theme.Failed
	}

	return lipgloss.NewStyle().Foreground(color).Render(string(s))
}

func (p *Printer) line(rec core.Record, prefix string) string {
	label := lipgloss.NewStyle().Foreground(p.theme.Kinds[rec.Kind]).Render(fmt.Sprintf("%-12s", KindLabel(rec.Kind)))
	clock := lipgloss.NewStyle().Foreground(p.theme.Faint).Render(Clock(rec.Timestamp))
	text := render.Summary(bodyText(rec), p.width)

	return fmt.Sprintf("  %s %s%s %s\n", clock, prefix, label, text)
}
