package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/caseflow/playbook/pkg/adapters/sqlite"
	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports"
)

var _ ports.SessionStore = (*sqlite.Store)(nil)

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := sqlite.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	ports.RunSessionStoreContract(t, store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	store, err := sqlite.NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	sess := domain.NewSession("session-1", "case-001", "contract-dispute", "start", time.Now().UTC())
	sess.History = append(sess.History, domain.DecisionRecord{
		NodeID:         "start",
		SelectedOption: "Contract Breach",
		Rationale:      "Signed agreement exists",
		Confidence:     0.85,
		DecidedAt:      time.Now().UTC(),
	})
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := sqlite.NewStore(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.Get(ctx, "session-1")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if loaded.CaseID != "case-001" || len(loaded.History) != 1 {
		t.Errorf("Session lost across reopen: %+v", loaded)
	}
	if loaded.History[0].Confidence != 0.85 {
		t.Errorf("History record corrupted: %+v", loaded.History[0])
	}
}

func TestSQLiteStore_ActivePairIndexBlocksResurrection(t *testing.T) {
	store, err := sqlite.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	// First session completes, a successor takes over the pair.
	first := domain.NewSession("session-1", "case-001", "contract-dispute", "start", time.Now().UTC())
	if err := store.Create(ctx, first); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	done := first.Clone()
	done.Status = domain.StatusCompleted
	done.CurrentNodeID = ""
	if _, err := store.Put(ctx, done, 1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	second := domain.NewSession("session-2", "case-001", "contract-dispute", "start", time.Now().UTC())
	if err := store.Create(ctx, second); err != nil {
		t.Fatalf("Successor Create failed: %v", err)
	}

	// Reviving the completed session would put two Active rows on the pair;
	// the partial unique index must refuse it.
	revived := done.Clone()
	revived.Status = domain.StatusActive
	revived.CurrentNodeID = "start"
	_, err = store.Put(ctx, revived, 2)
	if !errors.Is(err, domain.ErrDuplicateActiveSession) {
		t.Errorf("Expected ErrDuplicateActiveSession, got %v", err)
	}
}
