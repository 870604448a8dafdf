package eventlog

import (
	"strings"
	"unicode"

	"github.com/hupe1980/agentfeed/core"
)

const (
	// MaxText bounds single-line record text, in characters.
	MaxText = 240
	// MaxMultilineText bounds text of kinds that keep newlines.
	MaxMultilineText = 8000
	// TruncationMarker terminates text cut at its limit.
	TruncationMarker = "..."
)

// isSpace reports Unicode White_Space characters and the byte order mark.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// NormalizeText prepares producer text for storage. Multi-line kinds keep
// their line structure (CRLF folded to LF); every other kind has whitespace
// runs collapsed to one space. The result is trimmed and cut to the kind's
// limit with TruncationMarker appended. Whitespace-only input yields "".
func NormalizeText(kind core.Kind, text string) string {
	if !kind.Multiline() {
		return truncate(strings.Join(strings.FieldsFunc(text, isSpace), " "), MaxText)
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")

	return truncate(strings.TrimFunc(text, isSpace), MaxMultilineText)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	keep := limit - len([]rune(TruncationMarker))
	if keep < 0 {
		keep = 0
	}

	return string(runes[:keep]) + TruncationMarker
}
