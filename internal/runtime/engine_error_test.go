package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/caseflow/playbook/internal/runtime"
	"github.com/caseflow/playbook/pkg/adapters/memory"
	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports"
)

func TestEngine_StartValidation(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	tests := []struct {
		name       string
		caseID     string
		playbookID string
	}{
		{"empty case id", "", "contract-dispute"},
		{"blank case id", "   ", "contract-dispute"},
		{"empty playbook id", "case-001", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.StartSession(ctx, tt.caseID, tt.playbookID)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
		})
	}
}

func TestEngine_StartUnknownPlaybook(t *testing.T) {
	engine, _ := newTestEngine()

	_, err := engine.StartSession(context.Background(), "case-001", "no-such-playbook")
	if !errors.Is(err, domain.ErrPlaybookNotFound) {
		t.Errorf("Expected ErrPlaybookNotFound, got %v", err)
	}
}

func TestEngine_StartRejectsBrokenGraph(t *testing.T) {
	ctx := context.Background()

	t.Run("dangling option target", func(t *testing.T) {
		provider := memory.NewProvider(&domain.DecisionGraph{
			PlaybookID: "broken",
			RootNodeID: "start",
			Nodes: map[string]*domain.DecisionNode{
				"start": {
					ID:      "start",
					Options: []domain.Option{{Label: "Go", Next: "missing"}},
				},
			},
		})
		engine := runtime.NewEngine(memory.NewStore(), provider)

		_, err := engine.StartSession(ctx, "case-001", "broken")
		var gerr *domain.GraphIntegrityError
		if !errors.As(err, &gerr) {
			t.Fatalf("Expected GraphIntegrityError, got %v", err)
		}
	})

	t.Run("cycle reachable from root", func(t *testing.T) {
		provider := memory.NewProvider(&domain.DecisionGraph{
			PlaybookID: "cyclic",
			RootNodeID: "a",
			Nodes: map[string]*domain.DecisionNode{
				"a": {ID: "a", Options: []domain.Option{{Label: "Go", Next: "b"}}},
				"b": {ID: "b", Options: []domain.Option{{Label: "Back", Next: "a"}}},
			},
		})
		engine := runtime.NewEngine(memory.NewStore(), provider)

		_, err := engine.StartSession(ctx, "case-001", "cyclic")
		var gerr *domain.GraphIntegrityError
		if !errors.As(err, &gerr) {
			t.Fatalf("Expected GraphIntegrityError, got %v", err)
		}
	})
}

func TestEngine_SubmitUnknownSession(t *testing.T) {
	engine, _ := newTestEngine()

	_, err := engine.SubmitDecision(context.Background(), "session-ghost", ports.SubmitDecisionCommand{
		SelectedOption: "Contract Breach",
		Rationale:      "irrelevant",
		Confidence:     0.5,
	})
	var nferr *domain.SessionNotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("Expected SessionNotFoundError, got %v", err)
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Error("SessionNotFoundError should unwrap to ErrSessionNotFound")
	}
}

func TestEngine_InvalidOptionLeavesSessionUntouched(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	sess, err := engine.StartSession(ctx, "case-001", "contract-dispute")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	_, err = engine.SubmitDecision(ctx, sess.SessionID, ports.SubmitDecisionCommand{
		SelectedOption:  "Nonexistent",
		Rationale:       "typo in the client",
		Confidence:      0.5,
		ExpectedVersion: sess.Version,
	})
	var oerr *domain.InvalidOptionError
	if !errors.As(err, &oerr) {
		t.Fatalf("Expected InvalidOptionError, got %v", err)
	}
	if oerr.NodeID != "start" {
		t.Errorf("Expected error anchored at 'start', got %q", oerr.NodeID)
	}
	if len(oerr.Valid) != 2 || oerr.Valid[0] != "Contract Breach" || oerr.Valid[1] != "Tort Claim" {
		t.Errorf("Expected valid options in authoring order, got %v", oerr.Valid)
	}

	// The failed call must not have mutated the stored session.
	reread, err := engine.GetSession(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(reread.History) != 0 {
		t.Errorf("Expected history unchanged, got %d records", len(reread.History))
	}
	if reread.Version != 1 {
		t.Errorf("Expected version unchanged at 1, got %d", reread.Version)
	}
	if reread.Status != domain.StatusActive {
		t.Errorf("Expected status unchanged, got %s", reread.Status)
	}
}

func TestEngine_SubmitInputValidation(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	sess, err := engine.StartSession(ctx, "case-001", "contract-dispute")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	tests := []struct {
		name string
		cmd  ports.SubmitDecisionCommand
	}{
		{"confidence above one", ports.SubmitDecisionCommand{
			SelectedOption: "Contract Breach", Rationale: "fine", Confidence: 1.5,
		}},
		{"confidence below zero", ports.SubmitDecisionCommand{
			SelectedOption: "Contract Breach", Rationale: "fine", Confidence: -0.1,
		}},
		{"empty rationale", ports.SubmitDecisionCommand{
			SelectedOption: "Contract Breach", Rationale: "", Confidence: 0.5,
		}},
		{"whitespace rationale", ports.SubmitDecisionCommand{
			SelectedOption: "Contract Breach", Rationale: "   \n\t ", Confidence: 0.5,
		}},
		{"empty option", ports.SubmitDecisionCommand{
			SelectedOption: "", Rationale: "fine", Confidence: 0.5,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.SubmitDecision(ctx, sess.SessionID, tt.cmd)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
		})
	}

	// None of the rejected calls may leave a mark.
	reread, _ := engine.GetSession(ctx, sess.SessionID)
	if len(reread.History) != 0 || reread.Version != 1 {
		t.Errorf("Expected untouched session, got %d records at version %d",
			len(reread.History), reread.Version)
	}
}

func TestEngine_SingleCompletion(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	sess, err := engine.StartSession(ctx, "case-001", "contract-dispute")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	sess, err = engine.SubmitDecision(ctx, sess.SessionID, ports.SubmitDecisionCommand{
		SelectedOption: "Tort Claim",
		Rationale:      "No contract on file",
		Confidence:     0.9,
	})
	if err != nil {
		t.Fatalf("SubmitDecision failed: %v", err)
	}
	if sess.Status != domain.StatusCompleted {
		t.Fatalf("Expected Completed, got %s", sess.Status)
	}

	// A second submission must fail and must not touch the record.
	_, err = engine.SubmitDecision(ctx, sess.SessionID, ports.SubmitDecisionCommand{
		SelectedOption: "Tort Claim",
		Rationale:      "retry after completion",
		Confidence:     0.9,
	})
	var naerr *domain.SessionNotActiveError
	if !errors.As(err, &naerr) {
		t.Fatalf("Expected SessionNotActiveError, got %v", err)
	}
	if naerr.Status != domain.StatusCompleted {
		t.Errorf("Expected Completed in error, got %s", naerr.Status)
	}

	reread, _ := engine.GetSession(ctx, sess.SessionID)
	if len(reread.History) != 1 {
		t.Errorf("History grew after completion: %d records", len(reread.History))
	}
	if reread.Version != sess.Version {
		t.Errorf("Version moved after completion: %d vs %d", reread.Version, sess.Version)
	}
	if reread.FinalRecommendations == nil {
		t.Error("Final recommendations lost after failed submit")
	}
}

func TestEngine_GraphSwapIntegrity(t *testing.T) {
	ctx := context.Background()

	t.Run("current node removed", func(t *testing.T) {
		engine, provider := newTestEngine()
		sess, err := engine.StartSession(ctx, "case-001", "contract-dispute")
		if err != nil {
			t.Fatalf("StartSession failed: %v", err)
		}
		sess, err = engine.SubmitDecision(ctx, sess.SessionID, ports.SubmitDecisionCommand{
			SelectedOption: "Contract Breach", Rationale: "move once", Confidence: 0.8,
		})
		if err != nil {
			t.Fatalf("SubmitDecision failed: %v", err)
		}

		// Re-supply the playbook without the node the session sits on.
		swapped := intakeGraph()
		delete(swapped.Nodes, "contract_analysis")
		swapped.Nodes["start"].Options = []domain.Option{{Label: "Tort Claim", Next: "tort_analysis"}}
		provider.Register(swapped)

		_, err = engine.SubmitDecision(ctx, sess.SessionID, ports.SubmitDecisionCommand{
			SelectedOption: "Breach confirmed", Rationale: "node is gone", Confidence: 0.8,
		})
		var gerr *domain.GraphIntegrityError
		if !errors.As(err, &gerr) {
			t.Fatalf("Expected GraphIntegrityError, got %v", err)
		}
		if gerr.NodeID != "contract_analysis" {
			t.Errorf("Expected error anchored at contract_analysis, got %q", gerr.NodeID)
		}
	})

	t.Run("option re-targeted at visited node", func(t *testing.T) {
		engine, provider := newTestEngine()
		sess, err := engine.StartSession(ctx, "case-002", "contract-dispute")
		if err != nil {
			t.Fatalf("StartSession failed: %v", err)
		}
		sess, err = engine.SubmitDecision(ctx, sess.SessionID, ports.SubmitDecisionCommand{
			SelectedOption: "Contract Breach", Rationale: "move once", Confidence: 0.8,
		})
		if err != nil {
			t.Fatalf("SubmitDecision failed: %v", err)
		}

		swapped := intakeGraph()
		swapped.Nodes["contract_analysis"].Options = []domain.Option{
			{Label: "Breach confirmed", Next: "start"},
		}
		provider.Register(swapped)

		_, err = engine.SubmitDecision(ctx, sess.SessionID, ports.SubmitDecisionCommand{
			SelectedOption: "Breach confirmed", Rationale: "would loop", Confidence: 0.8,
		})
		var gerr *domain.GraphIntegrityError
		if !errors.As(err, &gerr) {
			t.Fatalf("Expected GraphIntegrityError, got %v", err)
		}
		if gerr.NodeID != "start" {
			t.Errorf("Expected error anchored at revisited node, got %q", gerr.NodeID)
		}
	})
}

func TestEngine_StaleVersionRejected(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	sess, err := engine.StartSession(ctx, "case-001", "contract-dispute")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	_, err = engine.SubmitDecision(ctx, sess.SessionID, ports.SubmitDecisionCommand{
		SelectedOption:  "Contract Breach",
		Rationale:       "stale client",
		Confidence:      0.8,
		ExpectedVersion: 99,
	})
	var serr *domain.StaleSessionError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected StaleSessionError, got %v", err)
	}
	if serr.Expected != 99 || serr.Actual != 1 {
		t.Errorf("Expected expected=99 actual=1, got %+v", serr)
	}
	if !errors.Is(err, domain.ErrVersionMismatch) {
		t.Error("StaleSessionError should unwrap to ErrVersionMismatch")
	}
}
