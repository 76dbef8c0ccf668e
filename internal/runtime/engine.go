package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/caseflow/playbook/internal/logging"
	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports"
	"github.com/caseflow/playbook/pkg/session"
)

// Engine owns the session lifecycle: it validates transitions, appends
// history, detects terminal states, and synthesizes final recommendations.
// All mutation is clone-then-swap: the stored session is replaced atomically
// via versioned Put, so a failed call never leaves partial state behind.
type Engine struct {
	sessions   *session.Manager
	provider   ports.GraphProvider
	synth      *Synthesizer
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	clock      func() time.Time
	newID      func() string
	lockerOpts []session.Option
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithSynthesizer replaces the default recommendation synthesizer.
func WithSynthesizer(s *Synthesizer) EngineOption {
	return func(e *Engine) {
		if s != nil {
			e.synth = s
		}
	}
}

// WithLocker enables distributed per-session locking.
func WithLocker(locker ports.DistributedLocker) EngineOption {
	return func(e *Engine) {
		e.lockerOpts = append(e.lockerOpts, session.WithLocker(locker))
	}
}

// WithClock overrides the engine's time source. Timestamps on records and
// sessions come from here; tests pin it for reproducible output.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(gen func() string) EngineOption {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// NewEngine creates the engine over a session store and a graph provider.
func NewEngine(store ports.SessionStore, provider ports.GraphProvider, opts ...EngineOption) *Engine {
	e := &Engine{
		provider: provider,
		synth:    NewSynthesizer(DefaultRiskPolicy(), ActionCatalog{}),
		logger:   logging.NewNop(),
		clock:    func() time.Time { return time.Now().UTC() },
		newID:    func() string { return "session-" + uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sessions = session.NewManager(store, append(e.lockerOpts, session.WithLogger(e.logger))...)
	return e
}

// StartSession creates a new Active session for the (case, playbook) pair,
// parked at the graph root. The graph is validated up front to fail fast.
func (e *Engine) StartSession(ctx context.Context, caseID, playbookID string) (*domain.DecisionSession, error) {
	caseID = strings.TrimSpace(caseID)
	playbookID = strings.TrimSpace(playbookID)
	if caseID == "" {
		return nil, &domain.ValidationError{Field: "caseId", Reason: "must not be empty"}
	}
	if playbookID == "" {
		return nil, &domain.ValidationError{Field: "playbookId", Reason: "must not be empty"}
	}

	graph, err := e.provider.Graph(ctx, playbookID)
	if err != nil {
		return nil, err
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	var created *domain.DecisionSession
	pairKey := fmt.Sprintf("start:%s|%s", caseID, playbookID)
	err = e.sessions.WithLock(ctx, pairKey, func(ctx context.Context) error {
		existing, err := e.sessions.FindActive(ctx, caseID, playbookID)
		if err == nil {
			return &domain.DuplicateActiveSessionError{
				CaseID:     caseID,
				PlaybookID: playbookID,
				SessionID:  existing.SessionID,
			}
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("check active session: %w", err)
		}

		sess := domain.NewSession(e.newID(), caseID, playbookID, graph.RootNodeID, e.clock())
		if err := e.sessions.Store().Create(ctx, sess); err != nil {
			if errors.Is(err, domain.ErrDuplicateActiveSession) {
				dup := &domain.DuplicateActiveSessionError{CaseID: caseID, PlaybookID: playbookID}
				if winner, ferr := e.sessions.FindActive(ctx, caseID, playbookID); ferr == nil {
					dup.SessionID = winner.SessionID
				}
				return dup
			}
			return fmt.Errorf("create session: %w", err)
		}
		created = sess
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("session started",
		"session_id", created.SessionID,
		"case_id", caseID,
		"playbook_id", playbookID,
		"root", graph.RootNodeID,
	)
	e.emit(ctx, e.hooks.OnSessionStart, &domain.SessionEvent{
		Type:       domain.EventSessionStart,
		SessionID:  created.SessionID,
		CaseID:     caseID,
		PlaybookID: playbookID,
		NodeID:     graph.RootNodeID,
		Version:    created.Version,
	})
	return created, nil
}

// SubmitDecision records one decision against an Active session and advances
// the traversal. Reaching a terminal point freezes the session: status flips
// to Completed and the recommendations are synthesized exactly once.
func (e *Engine) SubmitDecision(ctx context.Context, sessionID string, cmd ports.SubmitDecisionCommand) (*domain.DecisionSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, &domain.ValidationError{Field: "sessionId", Reason: "must not be empty"}
	}

	var (
		updated      *domain.DecisionSession
		before       *domain.DecisionSession
		decidedNode  string
		terminalNode string
	)
	err := e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		stored, err := e.loadSession(ctx, sessionID)
		if err != nil {
			return err
		}
		before = stored
		if !stored.Active() {
			return &domain.SessionNotActiveError{SessionID: sessionID, Status: stored.Status}
		}
		if cmd.ExpectedVersion != 0 && cmd.ExpectedVersion != stored.Version {
			return &domain.StaleSessionError{
				SessionID: sessionID,
				Expected:  cmd.ExpectedVersion,
				Actual:    stored.Version,
			}
		}
		if cmd.Confidence < 0 || cmd.Confidence > 1 {
			return &domain.ValidationError{
				Field:  "confidence",
				Reason: fmt.Sprintf("%g is outside [0, 1]", cmd.Confidence),
			}
		}
		rationale, err := domain.SanitizeRationale(cmd.Rationale)
		if err != nil {
			return &domain.ValidationError{Field: "rationale", Reason: err.Error()}
		}
		option, err := domain.SanitizeLabel(cmd.SelectedOption)
		if err != nil {
			return &domain.ValidationError{Field: "selectedOption", Reason: err.Error()}
		}

		graph, err := e.provider.Graph(ctx, stored.PlaybookID)
		if err != nil {
			return err
		}
		node, ok := graph.Node(stored.CurrentNodeID)
		if !ok {
			// Graphs may be re-supplied between steps, so start-time
			// validation does not guarantee the node still exists.
			return &domain.GraphIntegrityError{
				PlaybookID: stored.PlaybookID,
				NodeID:     stored.CurrentNodeID,
				Reason:     "current node missing from graph",
			}
		}
		if node.Terminal() {
			// The engine never parks a session on an unanswerable node;
			// seeing one here means the graph changed under the session.
			return &domain.SessionNotActiveError{SessionID: sessionID, Status: stored.Status}
		}
		next, ok := node.OptionNext(option)
		if !ok {
			return &domain.InvalidOptionError{NodeID: node.ID, Option: option, Valid: node.Labels()}
		}

		now := e.clock()
		working := stored.Clone()
		working.History = append(working.History, domain.DecisionRecord{
			NodeID:                   node.ID,
			Question:                 node.Question,
			SelectedOption:           option,
			Rationale:                rationale,
			Confidence:               cmd.Confidence,
			ResearchContextConsulted: append([]string(nil), node.ResearchContext...),
			DecidedAt:                now,
		})
		working.UpdatedAt = now

		terminal := node
		completed := false
		switch {
		case next == "":
			// The chosen option has no mapped next node: the path ends at
			// the node just answered.
			completed = true
		default:
			nextNode, ok := graph.Node(next)
			if !ok {
				return &domain.GraphIntegrityError{
					PlaybookID: stored.PlaybookID,
					NodeID:     next,
					Reason:     fmt.Sprintf("option %q references missing node", option),
				}
			}
			visited := stored.VisitedNodeIDs()
			visited[node.ID] = struct{}{}
			if _, seen := visited[next]; seen {
				// Start-time validation rejects cycles, so this only fires
				// when the graph was re-supplied mid-session.
				return &domain.GraphIntegrityError{
					PlaybookID: stored.PlaybookID,
					NodeID:     next,
					Reason:     "cycle detected at traversal time",
				}
			}
			if nextNode.Terminal() {
				// Arriving on a node with no options completes the session
				// immediately; it would never be able to accept a decision.
				completed = true
				terminal = nextNode
			} else {
				working.CurrentNodeID = next
			}
		}

		if completed {
			working.CurrentNodeID = ""
			working.Status = domain.StatusCompleted
			completedAt := now
			working.CompletedAt = &completedAt
			recs := e.synth.Synthesize(working.History, terminal.ID, terminal.Tags)
			working.FinalRecommendations = &recs
			terminalNode = terminal.ID
		}

		newVersion, err := e.sessions.Store().Put(ctx, working, stored.Version)
		if err != nil {
			if errors.Is(err, domain.ErrVersionMismatch) {
				stale := &domain.StaleSessionError{SessionID: sessionID, Expected: stored.Version}
				if current, gerr := e.sessions.Store().Get(ctx, sessionID); gerr == nil {
					stale.Actual = current.Version
				}
				return stale
			}
			return fmt.Errorf("persist session: %w", err)
		}
		working.Version = newVersion
		updated = working
		decidedNode = node.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	last := updated.History[len(updated.History)-1]
	e.logger.Info("decision recorded",
		"session_id", sessionID,
		"node", decidedNode,
		"option", last.SelectedOption,
		"confidence", last.Confidence,
		"version", updated.Version,
	)
	if delta := domain.Diff(before, updated); delta != nil {
		e.logger.Debug("session delta", "session_id", sessionID, "delta", delta)
	}
	e.emit(ctx, e.hooks.OnDecision, &domain.SessionEvent{
		Type:           domain.EventDecisionRecorded,
		SessionID:      sessionID,
		CaseID:         updated.CaseID,
		PlaybookID:     updated.PlaybookID,
		NodeID:         decidedNode,
		SelectedOption: last.SelectedOption,
		Confidence:     last.Confidence,
		Version:        updated.Version,
	})

	if updated.Completed() {
		e.logger.Info("session completed",
			"session_id", sessionID,
			"terminal", terminalNode,
			"steps", len(updated.History),
			"risk", updated.FinalRecommendations.RiskAssessment.Level,
		)
		e.emit(ctx, e.hooks.OnComplete, &domain.SessionEvent{
			Type:       domain.EventSessionCompleted,
			SessionID:  sessionID,
			CaseID:     updated.CaseID,
			PlaybookID: updated.PlaybookID,
			NodeID:     terminalNode,
			RiskLevel:  updated.FinalRecommendations.RiskAssessment.Level,
			Version:    updated.Version,
			Steps:      len(updated.History),
		})
	}
	return updated, nil
}

// GetSession is a read-only fetch; stores hand back copies, so callers can
// hold the result without touching shared state.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*domain.DecisionSession, error) {
	return e.loadSession(ctx, sessionID)
}

// ResetSession discards history and recommendations and returns the session
// to Active at the current graph root, keeping its id and bumping its
// version like any other write.
func (e *Engine) ResetSession(ctx context.Context, sessionID string) (*domain.DecisionSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, &domain.ValidationError{Field: "sessionId", Reason: "must not be empty"}
	}

	var (
		updated   *domain.DecisionSession
		resetFrom *domain.DecisionSession
	)
	err := e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		stored, err := e.loadSession(ctx, sessionID)
		if err != nil {
			return err
		}
		resetFrom = stored

		graph, err := e.provider.Graph(ctx, stored.PlaybookID)
		if err != nil {
			return err
		}
		if err := graph.Validate(); err != nil {
			return err
		}

		// A completed session going back to Active must not collide with a
		// newer Active session for the same pair.
		if !stored.Active() {
			if rival, ferr := e.sessions.FindActive(ctx, stored.CaseID, stored.PlaybookID); ferr == nil && rival.SessionID != sessionID {
				return &domain.DuplicateActiveSessionError{
					CaseID:     stored.CaseID,
					PlaybookID: stored.PlaybookID,
					SessionID:  rival.SessionID,
				}
			}
		}

		now := e.clock()
		working := stored.Clone()
		working.CurrentNodeID = graph.RootNodeID
		working.History = []domain.DecisionRecord{}
		working.Status = domain.StatusActive
		working.FinalRecommendations = nil
		working.CompletedAt = nil
		working.UpdatedAt = now

		newVersion, err := e.sessions.Store().Put(ctx, working, stored.Version)
		if err != nil {
			if errors.Is(err, domain.ErrVersionMismatch) {
				return &domain.StaleSessionError{SessionID: sessionID, Expected: stored.Version}
			}
			return fmt.Errorf("persist session: %w", err)
		}
		working.Version = newVersion
		updated = working
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("session reset",
		"session_id", sessionID,
		"playbook_id", updated.PlaybookID,
		"version", updated.Version,
	)
	if delta := domain.Diff(resetFrom, updated); delta != nil {
		e.logger.Debug("session delta", "session_id", sessionID, "delta", delta)
	}
	e.emit(ctx, e.hooks.OnReset, &domain.SessionEvent{
		Type:       domain.EventSessionReset,
		SessionID:  sessionID,
		CaseID:     updated.CaseID,
		PlaybookID: updated.PlaybookID,
		NodeID:     updated.CurrentNodeID,
		Version:    updated.Version,
	})
	return updated, nil
}

func (e *Engine) loadSession(ctx context.Context, sessionID string) (*domain.DecisionSession, error) {
	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, &domain.SessionNotFoundError{SessionID: sessionID}
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

func (e *Engine) emit(ctx context.Context, fn func(context.Context, *domain.SessionEvent), event *domain.SessionEvent) {
	if fn == nil {
		return
	}
	event.Timestamp = e.clock()
	fn(ctx, event)
}
