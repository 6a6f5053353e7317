package dispatch

import (
	"fmt"
	"testing"

	"mercator-hq/pulse/pkg/backends"
)

func makeHistory(n int) []backends.Turn {
	turns := make([]backends.Turn, 0, n)
	for i := 0; i < n; i++ {
		role := backends.RoleUser
		if i%2 == 1 {
			role = backends.RoleAssistant
		}
		turns = append(turns, backends.Turn{Role: role, Text: fmt.Sprintf("turn-%d", i)})
	}
	return turns
}

func TestBuildContext(t *testing.T) {
	tests := []struct {
		name      string
		history   int
		maxTurns  int
		wantTurns int
		wantFirst string
	}{
		{"empty history", 0, 10, 1, "hello"},
		{"short history", 3, 10, 4, "turn-0"},
		{"exact bound", 10, 10, 11, "turn-0"},
		{"truncated", 25, 10, 11, "turn-15"},
		{"no history allowed", 5, 0, 1, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := BuildContext("be brief", makeHistory(tt.history), "hello", tt.maxTurns)

			if len(req.Turns) != tt.wantTurns {
				t.Fatalf("expected %d turns, got %d", tt.wantTurns, len(req.Turns))
			}
			if req.Turns[0].Text != tt.wantFirst {
				t.Errorf("expected first turn %q, got %q", tt.wantFirst, req.Turns[0].Text)
			}
			last := req.Turns[len(req.Turns)-1]
			if last.Role != backends.RoleUser || last.Text != "hello" {
				t.Errorf("expected trailing user turn, got %+v", last)
			}
			if req.System != "be brief" {
				t.Errorf("expected system prompt, got %q", req.System)
			}
		})
	}
}

func TestBuildContext_SkipsSystemTurns(t *testing.T) {
	history := []backends.Turn{
		{Role: backends.RoleSystem, Text: "old instruction"},
		{Role: backends.RoleUser, Text: "hi"},
		{Role: backends.RoleAssistant, Text: ""},
		{Role: backends.RoleAssistant, Text: "hello"},
	}

	req := BuildContext("", history, "how are you", 10)

	if len(req.Turns) != 3 {
		t.Fatalf("expected 3 turns, got %+v", req.Turns)
	}
	for _, turn := range req.Turns {
		if turn.Role == backends.RoleSystem {
			t.Errorf("system turn leaked into context: %+v", turn)
		}
	}
}

func TestBuildContext_DoesNotAliasHistory(t *testing.T) {
	history := makeHistory(2)
	req := BuildContext("", history, "next", 10)

	history[0].Text = "mutated"
	if req.Turns[0].Text != "turn-0" {
		t.Errorf("request shares storage with history")
	}
}
