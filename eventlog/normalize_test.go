package eventlog

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hupe1980/agentfeed/core"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		kind core.Kind
		in   string
		want string
	}{
		{"collapse single-line", core.KindLog, "  a   b  \n\n c ", "a b c"},
		{"keep newlines", core.KindAssistantUpdate, "  a   b  \n\n c ", "a   b  \n\n c"},
		{"fold crlf", core.KindResult, "x\r\ny\r\n", "x\ny"},
		{"whitespace only", core.KindToolUse, " \t\n ", ""},
		{"empty", core.KindError, "", ""},
		{"tabs collapse", core.KindMessageReceived, "pay\tinvoice\t 42", "pay invoice 42"},
		{"unicode whitespace collapse", core.KindLog, "a\u00a0\u00a0\u00a0b\u3000\u3000c\u2028d", "a b c d"},
		{"unicode whitespace trim", core.KindLog, "\ufeff\u00a0pay\u2029", "pay"},
		{"multiline unicode trim", core.KindResult, "\u3000done\u00a0", "done"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.kind, tt.in))
		})
	}
}

func TestNormalizeText_Truncation(t *testing.T) {
	long := strings.Repeat("x", 300)

	got := NormalizeText(core.KindLog, long)
	assert.Equal(t, MaxText, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, TruncationMarker))

	assert.Equal(t, long, NormalizeText(core.KindResult, long))

	huge := strings.Repeat("y", MaxMultilineText+10)
	got = NormalizeText(core.KindPartnerMessage, huge)
	assert.Equal(t, MaxMultilineText, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, TruncationMarker))
}

func TestNormalizeText_CountsCharactersNotBytes(t *testing.T) {
	in := strings.Repeat("€", MaxText)
	assert.Equal(t, in, NormalizeText(core.KindLog, in))

	got := NormalizeText(core.KindLog, in+"€")
	assert.Equal(t, MaxText, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}
