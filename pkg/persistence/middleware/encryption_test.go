package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/caseflow/playbook/pkg/adapters/memory"
	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/persistence/middleware"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func sessionWithHistory(id string) *domain.DecisionSession {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	session := domain.NewSession(id, "case-001", "contract-dispute", "start", now)
	session.History = append(session.History, domain.DecisionRecord{
		NodeID:                   "start",
		Question:                 "What is the primary claim type?",
		SelectedOption:           "Contract Breach",
		Rationale:                "Client produced a signed agreement.",
		Confidence:               0.85,
		ResearchContextConsulted: []string{"UCC 2-601"},
		DecidedAt:                now,
	})
	session.CurrentNodeID = "contract_analysis"
	return session
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := memory.NewStore()
	key := generateKey(t)
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	original := sessionWithHistory("enc-session")

	// 1. Create
	if err := secureStore.Create(ctx, original); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// The caller's session must be untouched.
	if original.History[0].Rationale != "Client produced a signed agreement." {
		t.Fatal("middleware mutated the caller's session")
	}

	// 2. Verify the underlying store holds ciphertext
	stored, err := underlyingStore.Get(ctx, "enc-session")
	if err != nil {
		t.Fatalf("Underlying Get failed: %v", err)
	}
	rec := stored.History[0]
	if !strings.HasPrefix(rec.Rationale, "enc:v1:") {
		t.Errorf("Expected encrypted rationale, got: %q", rec.Rationale)
	}
	if !strings.HasPrefix(rec.Question, "enc:v1:") {
		t.Errorf("Expected encrypted question, got: %q", rec.Question)
	}
	if !strings.HasPrefix(rec.ResearchContextConsulted[0], "enc:v1:") {
		t.Errorf("Expected encrypted research reference, got: %q", rec.ResearchContextConsulted[0])
	}
	if rec.SelectedOption != "Contract Breach" {
		t.Errorf("Option labels should stay in the clear, got: %q", rec.SelectedOption)
	}
	if stored.CaseID != "case-001" || stored.Status != domain.StatusActive {
		t.Error("Identifiers and status must stay in the clear for store indexing")
	}

	// 3. Load via middleware (decrypted)
	loaded, err := secureStore.Get(ctx, "enc-session")
	if err != nil {
		t.Fatalf("Get via middleware failed: %v", err)
	}
	if loaded.History[0].Rationale != "Client produced a signed agreement." {
		t.Errorf("Expected decrypted rationale, got: %q", loaded.History[0].Rationale)
	}
	if loaded.History[0].Question != "What is the primary claim type?" {
		t.Errorf("Expected decrypted question, got: %q", loaded.History[0].Question)
	}
	if loaded.History[0].ResearchContextConsulted[0] != "UCC 2-601" {
		t.Errorf("Expected decrypted research reference, got: %q", loaded.History[0].ResearchContextConsulted[0])
	}
}

func TestEncryptionMiddleware_PutAndFindActive(t *testing.T) {
	underlyingStore := memory.NewStore()
	key := generateKey(t)
	secureStore := middleware.Chain(underlyingStore,
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))

	ctx := context.Background()
	session := sessionWithHistory("enc-put")
	if err := secureStore.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Complete the session with recommendations and Put it back.
	completed := session.Clone()
	completed.Status = domain.StatusCompleted
	completed.CurrentNodeID = ""
	completed.FinalRecommendations = &domain.FinalRecommendations{
		OverallAssessment: "Strong breach position.",
		RiskAssessment:    domain.RiskAssessment{Level: domain.RiskLow},
	}
	newVersion, err := secureStore.Put(ctx, completed, 1)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if newVersion != 2 {
		t.Errorf("Expected version 2, got %d", newVersion)
	}

	stored, err := underlyingStore.Get(ctx, "enc-put")
	if err != nil {
		t.Fatalf("Underlying Get failed: %v", err)
	}
	if !strings.HasPrefix(stored.FinalRecommendations.OverallAssessment, "enc:v1:") {
		t.Errorf("Expected encrypted assessment, got: %q", stored.FinalRecommendations.OverallAssessment)
	}

	loaded, err := secureStore.Get(ctx, "enc-put")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded.FinalRecommendations.OverallAssessment != "Strong breach position." {
		t.Errorf("Expected decrypted assessment, got: %q", loaded.FinalRecommendations.OverallAssessment)
	}

	// FindActive decrypts too.
	active := sessionWithHistory("enc-active")
	active.CaseID = "case-002"
	if err := secureStore.Create(ctx, active); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	found, err := secureStore.FindActive(ctx, "case-002", "contract-dispute")
	if err != nil {
		t.Fatalf("FindActive failed: %v", err)
	}
	if found.History[0].Rationale != "Client produced a signed agreement." {
		t.Errorf("FindActive returned undecrypted rationale: %q", found.History[0].Rationale)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	mwOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})
	secureStoreOld := mwOld(underlyingStore)

	ctx := context.Background()
	session := sessionWithHistory("rotation-session")

	// 1. Save with OLD key
	if err := secureStoreOld.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// 2. Load with NEW key (active) + OLD key (fallback)
	mwNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	secureStoreNew := mwNew(underlyingStore)

	loaded, err := secureStoreNew.Get(ctx, "rotation-session")
	if err != nil {
		t.Fatalf("Get with rotated key failed: %v", err)
	}
	if loaded.History[0].Rationale != "Client produced a signed agreement." {
		t.Error("Decryption with fallback key failed")
	}

	// 3. Put re-encrypts with the NEW key
	if _, err := secureStoreNew.Put(ctx, loaded, loaded.Version); err != nil {
		t.Fatalf("Put with new key failed: %v", err)
	}

	// 4. The old-key-only middleware can no longer read it
	if _, err := secureStoreOld.Get(ctx, "rotation-session"); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_PlaintextReadback(t *testing.T) {
	underlyingStore := memory.NewStore()
	ctx := context.Background()

	// A session persisted before encryption was enabled.
	if err := underlyingStore.Create(ctx, sessionWithHistory("legacy-session")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secureStore := mw(underlyingStore)

	loaded, err := secureStore.Get(ctx, "legacy-session")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded.History[0].Rationale != "Client produced a signed agreement." {
		t.Errorf("Plaintext session should read back unchanged, got: %q", loaded.History[0].Rationale)
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for invalid key size")
		}
	}()
	middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
}
