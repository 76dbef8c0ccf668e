package playbook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/caseflow/playbook/internal/runtime"
	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports"
	"github.com/caseflow/playbook/pkg/schema"
)

// Version is the library version. Release builds override it via ldflags.
var Version = "0.3.0-dev"

// Aliases for the synthesis configuration types, so consumers tune risk
// grading and terminal guidance without importing internal packages.
type (
	RiskPolicy    = runtime.RiskPolicy
	ActionSet     = runtime.ActionSet
	ActionCatalog = runtime.ActionCatalog
	Synthesizer   = runtime.Synthesizer
)

// DefaultRiskPolicy returns the standard confidence thresholds.
func DefaultRiskPolicy() RiskPolicy {
	return runtime.DefaultRiskPolicy()
}

// NewSynthesizer builds a recommendation synthesizer from a policy and an
// action catalog.
func NewSynthesizer(policy RiskPolicy, catalog ActionCatalog) *Synthesizer {
	return runtime.NewSynthesizer(policy, catalog)
}

// CatalogFromDocument converts an authored catalog document into the
// runtime form. A nil document yields an empty catalog.
func CatalogFromDocument(doc *schema.CatalogDocument) ActionCatalog {
	catalog := ActionCatalog{
		Nodes: map[string]ActionSet{},
		Tags:  map[string]ActionSet{},
	}
	if doc == nil {
		return catalog
	}
	for id, set := range doc.Nodes {
		catalog.Nodes[id] = actionSetFromDocument(set)
	}
	for tag, set := range doc.Tags {
		catalog.Tags[tag] = actionSetFromDocument(set)
	}
	if doc.Default != nil {
		def := actionSetFromDocument(*doc.Default)
		catalog.Default = &def
	}
	return catalog
}

func actionSetFromDocument(doc schema.ActionSetDocument) ActionSet {
	return ActionSet{
		Assessment:      doc.Assessment,
		Recommendations: append([]string(nil), doc.Recommendations...),
		NextSteps:       append([]string(nil), doc.NextSteps...),
	}
}

// Engine is the high-level entry point for the playbook library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime  *runtime.Engine
	store    ports.SessionStore
	provider ports.GraphProvider
	policy   RiskPolicy
	catalog  ActionCatalog
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	runtimeOpts []runtime.EngineOption
}

var _ ports.DecisionEngine = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRiskPolicy overrides the confidence thresholds used to grade
// completed paths.
func WithRiskPolicy(policy RiskPolicy) Option {
	return func(e *Engine) {
		e.policy = policy
	}
}

// WithActionCatalog supplies terminal guidance keyed by node id or tag.
func WithActionCatalog(catalog ActionCatalog) Option {
	return func(e *Engine) {
		e.catalog = catalog
	}
}

// WithLocker enables distributed locking so multiple engine replicas can
// safely serve the same session store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithLocker(locker))
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithClock(clock))
	}
}

// WithIDGenerator overrides session id generation, e.g. for reproducible
// output in tests and examples.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithIDGenerator(gen))
	}
}

// New initializes a playbook Engine over a session store and a graph
// provider. Both are required; the adapters under pkg/adapters cover the
// common backends, and any implementation of the ports works.
func New(store ports.SessionStore, provider ports.GraphProvider, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("a session store is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("a graph provider is required")
	}

	eng := &Engine{
		store:    store,
		provider: provider,
		policy:   DefaultRiskPolicy(),
	}
	for _, opt := range opts {
		opt(eng)
	}

	// A nil logger would overwrite the runtime's default, so make sure it
	// is initialized before wiring.
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
		runtime.WithSynthesizer(runtime.NewSynthesizer(eng.policy, eng.catalog)),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	eng.runtime = runtime.NewEngine(store, provider, runtimeOpts...)
	return eng, nil
}

// StartSession creates a new Active session for the (case, playbook) pair,
// parked at the root of the playbook's decision graph.
func (e *Engine) StartSession(ctx context.Context, caseID, playbookID string) (*domain.DecisionSession, error) {
	return e.runtime.StartSession(ctx, caseID, playbookID)
}

// SubmitDecision records one decision against an active session and
// advances the traversal. Reaching a terminal point completes the session
// and synthesizes its final recommendations.
func (e *Engine) SubmitDecision(ctx context.Context, sessionID string, cmd ports.SubmitDecisionCommand) (*domain.DecisionSession, error) {
	return e.runtime.SubmitDecision(ctx, sessionID, cmd)
}

// GetSession retrieves a session by id without modifying it.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*domain.DecisionSession, error) {
	return e.runtime.GetSession(ctx, sessionID)
}

// ResetSession discards history and recommendations and returns the
// session to Active at the graph root, keeping its id.
func (e *Engine) ResetSession(ctx context.Context, sessionID string) (*domain.DecisionSession, error) {
	return e.runtime.ResetSession(ctx, sessionID)
}

// Provider returns the graph provider the engine reads from.
func (e *Engine) Provider() ports.GraphProvider {
	return e.provider
}

// Store returns the session store the engine writes to. Retention tooling
// uses it for listing and deleting sessions; the engine itself never
// deletes.
func (e *Engine) Store() ports.SessionStore {
	return e.store
}
