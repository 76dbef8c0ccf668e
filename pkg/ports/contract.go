package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflow/playbook/pkg/domain"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract. Every adapter
// (memory, file, sqlite, redis) runs this suite against a fresh store.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	stamp := time.Now().Format("20060102150405.000")
	newSession := func(suffix string) *domain.DecisionSession {
		id := fmt.Sprintf("contract-%s-%s", stamp, suffix)
		return domain.NewSession(id, "case-"+suffix+"-"+stamp, "playbook-"+suffix+"-"+stamp, "start", time.Now().UTC())
	}

	t.Run("Create and Get", func(t *testing.T) {
		sess := newSession("roundtrip")
		sess.History = append(sess.History, domain.DecisionRecord{
			NodeID:                   "start",
			Question:                 "What is the primary claim?",
			SelectedOption:           "Contract Breach",
			Rationale:                "Signed agreement exists",
			Confidence:               0.85,
			ResearchContextConsulted: []string{"UCC §2-204"},
			DecidedAt:                time.Now().UTC(),
		})

		require.NoError(t, store.Create(ctx, sess), "Create should not return error")

		loaded, err := store.Get(ctx, sess.SessionID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, sess.SessionID, loaded.SessionID)
		assert.Equal(t, sess.CaseID, loaded.CaseID)
		assert.Equal(t, sess.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, domain.StatusActive, loaded.Status)
		assert.Equal(t, int64(1), loaded.Version)
		require.Len(t, loaded.History, 1)
		assert.Equal(t, "Contract Breach", loaded.History[0].SelectedOption)
		assert.InDelta(t, 0.85, loaded.History[0].Confidence, 1e-9)
	})

	t.Run("Get returns a copy", func(t *testing.T) {
		sess := newSession("isolation")
		require.NoError(t, store.Create(ctx, sess))

		first, err := store.Get(ctx, sess.SessionID)
		require.NoError(t, err)
		first.CurrentNodeID = "tampered"
		first.History = append(first.History, domain.DecisionRecord{NodeID: "tampered"})

		second, err := store.Get(ctx, sess.SessionID)
		require.NoError(t, err)
		assert.Equal(t, "start", second.CurrentNodeID, "mutating a loaded session must not affect the store")
		assert.Empty(t, second.History)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+stamp)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Create duplicate id", func(t *testing.T) {
		sess := newSession("dup-id")
		require.NoError(t, store.Create(ctx, sess))

		again := sess.Clone()
		again.CaseID = "another-case-" + stamp
		err := store.Create(ctx, again)
		assert.ErrorIs(t, err, domain.ErrSessionExists)
	})

	t.Run("Create duplicate active pair", func(t *testing.T) {
		sess := newSession("dup-pair")
		require.NoError(t, store.Create(ctx, sess))

		rival := sess.Clone()
		rival.SessionID = sess.SessionID + "-rival"
		err := store.Create(ctx, rival)
		assert.ErrorIs(t, err, domain.ErrDuplicateActiveSession,
			"a second Active session for the same (case, playbook) must be rejected")
	})

	t.Run("Put advances the version", func(t *testing.T) {
		sess := newSession("cas")
		require.NoError(t, store.Create(ctx, sess))

		updated := sess.Clone()
		updated.CurrentNodeID = "contract_analysis"
		newVersion, err := store.Put(ctx, updated, 1)
		require.NoError(t, err, "Put with the correct expected version should succeed")
		assert.Equal(t, int64(2), newVersion)

		loaded, err := store.Get(ctx, sess.SessionID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), loaded.Version)
		assert.Equal(t, "contract_analysis", loaded.CurrentNodeID)
	})

	t.Run("Put detects a stale version", func(t *testing.T) {
		sess := newSession("stale")
		require.NoError(t, store.Create(ctx, sess))

		winner := sess.Clone()
		winner.CurrentNodeID = "a"
		_, err := store.Put(ctx, winner, 1)
		require.NoError(t, err)

		loser := sess.Clone()
		loser.CurrentNodeID = "b"
		_, err = store.Put(ctx, loser, 1)
		assert.ErrorIs(t, err, domain.ErrVersionMismatch)

		loaded, err := store.Get(ctx, sess.SessionID)
		require.NoError(t, err)
		assert.Equal(t, "a", loaded.CurrentNodeID, "the losing write must not be visible")
	})

	t.Run("Put Non-Existent", func(t *testing.T) {
		ghost := newSession("ghost")
		_, err := store.Put(ctx, ghost, 1)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("FindActive", func(t *testing.T) {
		sess := newSession("findactive")
		require.NoError(t, store.Create(ctx, sess))

		found, err := store.FindActive(ctx, sess.CaseID, sess.PlaybookID)
		require.NoError(t, err)
		assert.Equal(t, sess.SessionID, found.SessionID)

		_, err = store.FindActive(ctx, "no-such-case-"+stamp, sess.PlaybookID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("FindActive ignores completed sessions", func(t *testing.T) {
		sess := newSession("findcompleted")
		require.NoError(t, store.Create(ctx, sess))

		done := sess.Clone()
		done.Status = domain.StatusCompleted
		done.CurrentNodeID = ""
		_, err := store.Put(ctx, done, 1)
		require.NoError(t, err)

		_, err = store.FindActive(ctx, sess.CaseID, sess.PlaybookID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		// Completing the old session frees the pair for a fresh start.
		successor := sess.Clone()
		successor.SessionID = sess.SessionID + "-second"
		assert.NoError(t, store.Create(ctx, successor))
	})

	t.Run("Delete", func(t *testing.T) {
		sess := newSession("delete")
		require.NoError(t, store.Create(ctx, sess))

		require.NoError(t, store.Delete(ctx, sess.SessionID), "Delete should not return error")

		_, err := store.Get(ctx, sess.SessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Get after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		a := newSession("list-a")
		b := newSession("list-b")
		require.NoError(t, store.Create(ctx, a))
		require.NoError(t, store.Create(ctx, b))

		defer func() {
			_ = store.Delete(ctx, a.SessionID)
			_ = store.Delete(ctx, b.SessionID)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, a.SessionID)
		assert.Contains(t, ids, b.SessionID)
	})
}
