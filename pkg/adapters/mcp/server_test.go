package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/caseflow/playbook"
	"github.com/caseflow/playbook/pkg/adapters/memory"
	"github.com/caseflow/playbook/pkg/dsl"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	b := dsl.New("intake").Root("scope")
	b.Node("scope").
		Question("Is the matter within firm practice areas?").
		Option("yes", "conflict").
		Option("no", "")
	b.Node("conflict").
		Question("Does a conflict check come back clean?").
		Option("yes", "").
		Option("no", "")
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	provider := memory.NewProvider(g)
	engine, err := playbook.New(memory.NewStore(), provider)
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(engine, provider)
}

func TestHandleSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	started, err := s.handleStartSession(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"case_id":     "case-11",
		"playbook_id": "intake",
	})
	if err != nil {
		t.Fatalf("start_session: %v", err)
	}
	if started.Session.CurrentNodeID != "scope" || started.Terminal {
		t.Fatalf("unexpected start state: node=%q terminal=%v", started.Session.CurrentNodeID, started.Terminal)
	}

	advanced, err := s.handleSubmitDecision(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id":       started.Session.SessionID,
		"selected_option":  "yes",
		"rationale":        "Employment matter, firm specialty.",
		"confidence":       0.9,
		"expected_version": float64(started.Session.Version),
	})
	if err != nil {
		t.Fatalf("submit_decision: %v", err)
	}
	if advanced.Session.CurrentNodeID != "conflict" {
		t.Errorf("expected conflict node, got %q", advanced.Session.CurrentNodeID)
	}

	finished, err := s.handleSubmitDecision(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id":      started.Session.SessionID,
		"selected_option": "yes",
		"rationale":       "No conflicts found.",
		"confidence":      0.8,
	})
	if err != nil {
		t.Fatalf("final submit_decision: %v", err)
	}
	if !finished.Terminal || finished.Session.FinalRecommendations == nil {
		t.Error("expected terminal response with recommendations")
	}

	fetched, err := s.handleGetSession(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": started.Session.SessionID,
	})
	if err != nil {
		t.Fatalf("get_session: %v", err)
	}
	if len(fetched.Session.History) != 2 {
		t.Errorf("expected 2 history records, got %d", len(fetched.Session.History))
	}

	reset, err := s.handleResetSession(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": started.Session.SessionID,
	})
	if err != nil {
		t.Fatalf("reset_session: %v", err)
	}
	if reset.Terminal || reset.Session.CurrentNodeID != "scope" {
		t.Errorf("reset did not return session to root: node=%q", reset.Session.CurrentNodeID)
	}
}

func TestHandleSubmitDecisionRejectsBadInput(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	started, err := s.handleStartSession(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"case_id":     "case-12",
		"playbook_id": "intake",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.handleSubmitDecision(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id":      started.Session.SessionID,
		"selected_option": "maybe",
		"rationale":       "Hedging.",
		"confidence":      0.5,
	})
	if err == nil || !strings.Contains(err.Error(), "maybe") {
		t.Errorf("expected invalid option error, got %v", err)
	}

	_, err = s.handleStartSession(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"case_id":     "case-12",
		"playbook_id": "intake",
	})
	if err == nil {
		t.Error("expected duplicate active session error")
	}
}
