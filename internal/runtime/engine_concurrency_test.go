package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports"
)

func TestEngine_ConcurrentSubmitsSingleWinner(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	sess, err := engine.StartSession(ctx, "case-001", "contract-dispute")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	// Two clients race with the same snapshot of the session.
	const writers = 2
	var wg sync.WaitGroup
	var mu sync.Mutex
	var wins, stales int

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.SubmitDecision(ctx, sess.SessionID, ports.SubmitDecisionCommand{
				SelectedOption:  "Contract Breach",
				Rationale:       "racing client",
				Confidence:      0.8,
				ExpectedVersion: sess.Version,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrVersionMismatch):
				stales++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Expected exactly 1 winner, got %d", wins)
	}
	if stales != writers-1 {
		t.Errorf("Expected %d stale rejections, got %d", writers-1, stales)
	}

	// Exactly one history entry landed.
	final, err := engine.GetSession(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(final.History) != 1 {
		t.Errorf("Expected 1 history record after the race, got %d", len(final.History))
	}
	if final.Version != 2 {
		t.Errorf("Expected version 2 after the race, got %d", final.Version)
	}
}

func TestEngine_DuplicateActiveSessionRejected(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	first, err := engine.StartSession(ctx, "case-001", "contract-dispute")
	if err != nil {
		t.Fatalf("First StartSession failed: %v", err)
	}

	_, err = engine.StartSession(ctx, "case-001", "contract-dispute")
	var derr *domain.DuplicateActiveSessionError
	if !errors.As(err, &derr) {
		t.Fatalf("Expected DuplicateActiveSessionError, got %v", err)
	}
	if derr.SessionID != first.SessionID {
		t.Errorf("Expected error to name the existing session %s, got %s", first.SessionID, derr.SessionID)
	}

	// A different case for the same playbook is independent.
	if _, err := engine.StartSession(ctx, "case-002", "contract-dispute"); err != nil {
		t.Errorf("Different case should start cleanly, got %v", err)
	}
}

func TestEngine_ConcurrentStartsSingleWinner(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	const starters = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	var wins, dups int

	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.StartSession(ctx, "case-001", "contract-dispute")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrDuplicateActiveSession):
				dups++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Expected exactly 1 started session, got %d", wins)
	}
	if dups != starters-1 {
		t.Errorf("Expected %d duplicate rejections, got %d", starters-1, dups)
	}
}

func TestEngine_IndependentSessionsProceedConcurrently(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	const sessions = 8
	ids := make([]string, sessions)
	for i := 0; i < sessions; i++ {
		sess, err := engine.StartSession(ctx, "case-"+string(rune('a'+i)), "contract-dispute")
		if err != nil {
			t.Fatalf("StartSession %d failed: %v", i, err)
		}
		ids[i] = sess.SessionID
	}

	var wg sync.WaitGroup
	errs := make(chan error, sessions)
	for _, id := range ids {
		wg.Add(1)
		go func(sessionID string) {
			defer wg.Done()
			_, err := engine.SubmitDecision(ctx, sessionID, ports.SubmitDecisionCommand{
				SelectedOption: "Contract Breach",
				Rationale:      "parallel intake",
				Confidence:     0.8,
			})
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Independent session submit failed: %v", err)
		}
	}
}
