package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflow/playbook/pkg/adapters/redis"
	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports"
)

func newTestStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return redis.NewFromClient(client, opts...), mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := newTestStore(t)
	ports.RunSessionStoreContract(t, store)
}

func TestRedisStore_TTLExpiration(t *testing.T) {
	store, mr := newTestStore(t, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	sess := domain.NewSession("session-ttl", "case-001", "contract-dispute", "start", time.Now().UTC())
	require.NoError(t, store.Create(ctx, sess))

	// Visible before expiry.
	_, err := store.Get(ctx, "session-ttl")
	assert.NoError(t, err)

	// miniredis advances time manually.
	mr.FastForward(2 * time.Second)

	_, err = store.Get(ctx, "session-ttl")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The expired claim no longer blocks a fresh session for the pair.
	successor := domain.NewSession("session-ttl-2", "case-001", "contract-dispute", "start", time.Now().UTC())
	assert.NoError(t, store.Create(ctx, successor))
}

func TestRedisStore_ClaimFollowsLifecycle(t *testing.T) {
	store, mr := newTestStore(t, redis.WithPrefix("pb:"))
	ctx := context.Background()

	sess := domain.NewSession("session-1", "case-001", "contract-dispute", "start", time.Now().UTC())
	require.NoError(t, store.Create(ctx, sess))
	assert.True(t, mr.Exists("pb:active:case-001:contract-dispute"),
		"active claim should be set on create")

	// Completion releases the claim.
	done := sess.Clone()
	done.Status = domain.StatusCompleted
	done.CurrentNodeID = ""
	_, err := store.Put(ctx, done, 1)
	require.NoError(t, err)
	assert.False(t, mr.Exists("pb:active:case-001:contract-dispute"),
		"claim should be released on completion")

	// A reset reclaims the pair.
	revived := done.Clone()
	revived.Status = domain.StatusActive
	revived.CurrentNodeID = "start"
	_, err = store.Put(ctx, revived, 2)
	require.NoError(t, err)
	assert.True(t, mr.Exists("pb:active:case-001:contract-dispute"))
}

func TestRedisStore_PutRefusesToStealClaim(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// First session completes; second takes the pair.
	first := domain.NewSession("session-1", "case-001", "contract-dispute", "start", time.Now().UTC())
	require.NoError(t, store.Create(ctx, first))
	done := first.Clone()
	done.Status = domain.StatusCompleted
	_, err := store.Put(ctx, done, 1)
	require.NoError(t, err)

	second := domain.NewSession("session-2", "case-001", "contract-dispute", "start", time.Now().UTC())
	require.NoError(t, store.Create(ctx, second))

	// Reviving the first must not override the second's claim.
	revived := done.Clone()
	revived.Status = domain.StatusActive
	_, err = store.Put(ctx, revived, 2)
	assert.ErrorIs(t, err, domain.ErrDuplicateActiveSession)
}
