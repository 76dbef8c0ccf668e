package domain

import "time"

// Status describes the lifecycle phase of a decision session.
type Status string

const (
	// StatusNotStarted is the implicit phase before the first persist.
	// Sessions in this phase never reach a store.
	StatusNotStarted Status = "NotStarted"
	// StatusActive means the session is parked on a question node awaiting
	// a decision.
	StatusActive Status = "Active"
	// StatusCompleted means traversal reached a terminal point and the
	// final recommendations are frozen. Absorbing except for a reset.
	StatusCompleted Status = "Completed"
)

// DecisionSession is one traversal of a decision graph for a specific case.
// It is the only mutable shared resource in the system; the engine owns all
// mutation and stores enforce versioned compare-and-swap on writes.
type DecisionSession struct {
	SessionID  string `json:"sessionId"`
	CaseID     string `json:"caseId"`
	PlaybookID string `json:"playbookId"`

	// CurrentNodeID is empty once the session is terminal.
	CurrentNodeID string `json:"currentNodeId,omitempty"`

	// History is append-only; ordering is traversal order.
	History []DecisionRecord `json:"history"`

	Status Status `json:"status"`

	// FinalRecommendations is non-nil only when Status is Completed.
	FinalRecommendations *FinalRecommendations `json:"finalRecommendations,omitempty"`

	// Version is the optimistic-concurrency token. It starts at 1 on create
	// and advances by one on every successful store write.
	Version int64 `json:"version"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// NewSession creates an Active session parked at the graph root.
func NewSession(sessionID, caseID, playbookID, rootNodeID string, now time.Time) *DecisionSession {
	return &DecisionSession{
		SessionID:     sessionID,
		CaseID:        caseID,
		PlaybookID:    playbookID,
		CurrentNodeID: rootNodeID,
		History:       []DecisionRecord{},
		Status:        StatusActive,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Active reports whether the session can accept a decision.
func (s *DecisionSession) Active() bool {
	return s.Status == StatusActive && s.CurrentNodeID != ""
}

// Completed reports whether the session reached a terminal point.
func (s *DecisionSession) Completed() bool {
	return s.Status == StatusCompleted
}

// VisitedNodeIDs returns the set of node ids on the session's path so far,
// including the current node. Used for traversal-time loop protection.
func (s *DecisionSession) VisitedNodeIDs() map[string]struct{} {
	visited := make(map[string]struct{}, len(s.History)+1)
	for _, rec := range s.History {
		visited[rec.NodeID] = struct{}{}
	}
	if s.CurrentNodeID != "" {
		visited[s.CurrentNodeID] = struct{}{}
	}
	return visited
}

// Clone returns a deep copy. The engine mutates clones and persists them via
// compare-and-swap so a failed call never leaks partial state; stores clone
// on both read and write so callers never alias stored memory.
func (s *DecisionSession) Clone() *DecisionSession {
	if s == nil {
		return nil
	}
	out := *s
	out.History = make([]DecisionRecord, len(s.History))
	for i := range s.History {
		out.History[i] = s.History[i].Clone()
	}
	out.FinalRecommendations = s.FinalRecommendations.Clone()
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
