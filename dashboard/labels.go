package dashboard

import (
	"time"

	"github.com/hupe1980/agentfeed/core"
)

var kindLabels = map[core.Kind]string{
	core.KindMessageReceived: "Inbound",
	core.KindAssistantUpdate: "Thinking",
	core.KindToolUse:         "Tool",
	core.KindResult:          "Result",
	core.KindPartnerMessage:  "A2A Message",
	core.KindResponseSent:    "Reply",
	core.KindError:           "Error",
	core.KindLog:             "Log",
}

// KindLabel returns the display label of k.
func KindLabel(k core.Kind) string {
	if l, ok := kindLabels[k]; ok {
		return l
	}

	return string(k)
}

// Clock formats t as local wall time, or "--:--:--" for the zero time.
func Clock(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}

	return t.Local().Format("15:04:05")
}

// bodyText is the text shown for a record. Tool records fall back to a
// generic label.
func bodyText(rec core.Record) string {
	if rec.Text != "" {
		return rec.Text
	}

	if rec.Kind == core.KindToolUse {
		return "Tool call"
	}

	return KindLabel(rec.Kind)
}
