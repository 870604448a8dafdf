package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestKind_Valid(t *testing.T) {
	for _, k := range Kinds {
		if !k.Valid() {
			t.Fatalf("expected %q to be valid", k)
		}
	}

	if Kind("").Valid() || Kind("thinking").Valid() {
		t.Fatal("unexpected kind accepted")
	}
}

func TestKind_Multiline(t *testing.T) {
	multi := map[Kind]bool{KindAssistantUpdate: true, KindResult: true, KindPartnerMessage: true}
	for _, k := range Kinds {
		if k.Multiline() != multi[k] {
			t.Errorf("Multiline(%q) = %v", k, k.Multiline())
		}
	}
}

func TestRecord_WireShape(t *testing.T) {
	rec := Record{
		ID:        "r-1",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Agent:     "UK",
		Kind:      KindToolUse,
		TaskID:    "task-9",
		Data:      map[string]any{"tool": "check_compliance"},
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{"id", "timestamp", "agent", "kind", "taskId", "data"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing field %q in %s", key, raw)
		}
	}
	for _, key := range []string{"contextId", "sender", "text"} {
		if _, ok := fields[key]; ok {
			t.Errorf("empty optional field %q should be omitted: %s", key, raw)
		}
	}
	if fields["timestamp"] != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected timestamp encoding %v", fields["timestamp"])
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if id == "" || seen[id] {
			t.Fatalf("duplicate or empty id %q", id)
		}
		seen[id] = true
	}
}

func TestTurnLimiter(t *testing.T) {
	tl := NewTurnLimiter(2)
	if err := tl.Next(); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if err := tl.Next(); err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if tl.Remaining() != 0 {
		t.Fatalf("expected 0 remaining, got %d", tl.Remaining())
	}
	if err := tl.Next(); err == nil {
		t.Fatal("expected limit error")
	}
	if tl.Used() != 3 {
		t.Fatalf("expected 3 used, got %d", tl.Used())
	}

	if NewTurnLimiter(0).Remaining() != -1 {
		t.Fatal("unlimited limiter should report -1")
	}
}

func TestContent_Helpers(t *testing.T) {
	c := Content{Role: RoleAssistant, Parts: []Part{
		TextPart{Text: "a"},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "check_compliance"}},
		TextPart{Text: "b"},
	}}

	if c.Text() != "ab" {
		t.Fatalf("unexpected text %q", c.Text())
	}
	calls := c.FunctionCalls()
	if len(calls) != 1 || calls[0].Name != "check_compliance" {
		t.Fatalf("unexpected calls %+v", calls)
	}
}
