package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/caseflow/playbook/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Session writes must be atomic across the body, the version counter, the id
// index and the active-pair claim, so every mutation runs as a Lua script.
// Script results are status strings mapped to domain sentinels in Go.
var (
	createScript = backend.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return "exists"
end
if ARGV[3] == "1" and redis.call("EXISTS", KEYS[4]) == 1 then
	return "duplicate"
end
if ARGV[5] == "0" then
	redis.call("SET", KEYS[1], ARGV[1])
	redis.call("SET", KEYS[2], ARGV[2])
else
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[5])
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[5])
end
redis.call("ZADD", KEYS[3], ARGV[6], ARGV[4])
if ARGV[3] == "1" then
	if ARGV[5] == "0" then
		redis.call("SET", KEYS[4], ARGV[4])
	else
		redis.call("SET", KEYS[4], ARGV[4], "PX", ARGV[5])
	end
end
return "ok"`)

	putScript = backend.NewScript(`
local cur = redis.call("GET", KEYS[2])
if not cur then
	return "missing"
end
if cur ~= ARGV[1] then
	return "stale"
end
if ARGV[4] == "1" then
	local owner = redis.call("GET", KEYS[4])
	if owner and owner ~= ARGV[5] then
		return "duplicate"
	end
end
if ARGV[6] == "0" then
	redis.call("SET", KEYS[1], ARGV[2])
	redis.call("SET", KEYS[2], ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[6])
	redis.call("SET", KEYS[2], ARGV[3], "PX", ARGV[6])
end
redis.call("ZADD", KEYS[3], ARGV[7], ARGV[5])
if ARGV[4] == "1" then
	if ARGV[6] == "0" then
		redis.call("SET", KEYS[4], ARGV[5])
	else
		redis.call("SET", KEYS[4], ARGV[5], "PX", ARGV[6])
	end
else
	local owner = redis.call("GET", KEYS[4])
	if owner == ARGV[5] then
		redis.call("DEL", KEYS[4])
	end
end
return "ok"`)

	deleteScript = backend.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return "missing"
end
redis.call("DEL", KEYS[1])
redis.call("DEL", KEYS[2])
redis.call("ZREM", KEYS[3], ARGV[1])
local owner = redis.call("GET", KEYS[4])
if owner == ARGV[1] then
	redis.call("DEL", KEYS[4])
end
return "ok"`)
)

// farFuture scores index members that never expire.
const farFuture = 4102444800 // 2100-01-01

// Store implements ports.SessionStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions. Zero means no expiration.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for all session keys.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "playbook:",
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

func (s *Store) versionKey(sessionID string) string {
	return s.prefix + "version:" + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) claimKey(caseID, playbookID string) string {
	return s.prefix + "active:" + caseID + ":" + playbookID
}

// score places an index member at its expiry time, or far in the future
// when sessions never expire.
func (s *Store) score() float64 {
	if s.ttl == 0 {
		return farFuture
	}
	return float64(time.Now().Add(s.ttl).Unix())
}

func (s *Store) ttlMillis() string {
	return strconv.FormatInt(s.ttl.Milliseconds(), 10)
}

func activeFlag(sess *domain.DecisionSession) string {
	if sess.Active() {
		return "1"
	}
	return "0"
}

// Create persists a brand-new session.
func (s *Store) Create(ctx context.Context, sess *domain.DecisionSession) error {
	body, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	res, err := createScript.Run(ctx, s.client,
		[]string{
			s.key(sess.SessionID),
			s.versionKey(sess.SessionID),
			s.indexKey(),
			s.claimKey(sess.CaseID, sess.PlaybookID),
		},
		string(body),
		strconv.FormatInt(sess.Version, 10),
		activeFlag(sess),
		sess.SessionID,
		s.ttlMillis(),
		s.score(),
	).Result()
	if err != nil {
		return fmt.Errorf("failed to create session in redis: %w", err)
	}

	switch res {
	case "ok":
		return nil
	case "exists":
		return domain.ErrSessionExists
	case "duplicate":
		return domain.ErrDuplicateActiveSession
	default:
		return fmt.Errorf("unexpected create result: %v", res)
	}
}

// Get retrieves the session body.
func (s *Store) Get(ctx context.Context, sessionID string) (*domain.DecisionSession, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var sess domain.DecisionSession
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// Put performs the compare-and-swap against the version counter.
func (s *Store) Put(ctx context.Context, sess *domain.DecisionSession, expectedVersion int64) (int64, error) {
	updated := sess.Clone()
	updated.Version = expectedVersion + 1

	body, err := json.Marshal(updated)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal session: %w", err)
	}

	res, err := putScript.Run(ctx, s.client,
		[]string{
			s.key(updated.SessionID),
			s.versionKey(updated.SessionID),
			s.indexKey(),
			s.claimKey(updated.CaseID, updated.PlaybookID),
		},
		strconv.FormatInt(expectedVersion, 10),
		string(body),
		strconv.FormatInt(updated.Version, 10),
		activeFlag(updated),
		updated.SessionID,
		s.ttlMillis(),
		s.score(),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to put session in redis: %w", err)
	}

	switch res {
	case "ok":
		return updated.Version, nil
	case "missing":
		return 0, domain.ErrSessionNotFound
	case "stale":
		return 0, domain.ErrVersionMismatch
	case "duplicate":
		return 0, domain.ErrDuplicateActiveSession
	default:
		return 0, fmt.Errorf("unexpected put result: %v", res)
	}
}

// FindActive resolves the pair's claim key to its session.
func (s *Store) FindActive(ctx context.Context, caseID, playbookID string) (*domain.DecisionSession, error) {
	sessionID, err := s.client.Get(ctx, s.claimKey(caseID, playbookID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to resolve active claim: %w", err)
	}

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// The claim and the body expire together, but they can drift when a
	// claim outlives a deleted session.
	if !sess.Active() || sess.CaseID != caseID || sess.PlaybookID != playbookID {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// Delete removes the session, its version counter, its index entry and its
// claim if it holds one.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	res, err := deleteScript.Run(ctx, s.client,
		[]string{
			s.key(sessionID),
			s.versionKey(sessionID),
			s.indexKey(),
			s.claimKey(sess.CaseID, sess.PlaybookID),
		},
		sessionID,
	).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session in redis: %w", err)
	}
	if res == "missing" {
		return domain.ErrSessionNotFound
	}
	return nil
}

// List returns session ids from the ZSET index, pruning expired members
// lazily the way the index is maintained on write.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
