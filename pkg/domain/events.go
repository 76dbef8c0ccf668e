package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart     EventType = "session_start"
	EventDecisionRecorded EventType = "decision_recorded"
	EventSessionCompleted EventType = "session_completed"
	EventSessionReset     EventType = "session_reset"
)

// SessionEvent describes one lifecycle transition of a session. Fields that
// do not apply to the event type are left zero.
type SessionEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	SessionID  string    `json:"sessionId"`
	CaseID     string    `json:"caseId,omitempty"`
	PlaybookID string    `json:"playbookId,omitempty"`

	// NodeID is the node the event concerns: the node answered for
	// decision events, the root for start and reset events.
	NodeID         string    `json:"nodeId,omitempty"`
	SelectedOption string    `json:"selectedOption,omitempty"`
	Confidence     float64   `json:"confidence,omitempty"`
	RiskLevel      RiskLevel `json:"riskLevel,omitempty"`
	Version        int64     `json:"version,omitempty"`

	// Steps is the history length at completion, zero for other events.
	Steps int `json:"steps,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability. All fields are
// optional; the engine invokes them after the corresponding state has been
// durably persisted, never before.
type LifecycleHooks struct {
	OnSessionStart func(context.Context, *SessionEvent)
	OnDecision     func(context.Context, *SessionEvent)
	OnComplete     func(context.Context, *SessionEvent)
	OnReset        func(context.Context, *SessionEvent)
}

// Merge returns hooks that invoke h's callbacks first and next's after, so
// several consumers (metrics, event streams, audit logs) can observe the
// same engine.
func (h LifecycleHooks) Merge(next LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnSessionStart: mergeHook(h.OnSessionStart, next.OnSessionStart),
		OnDecision:     mergeHook(h.OnDecision, next.OnDecision),
		OnComplete:     mergeHook(h.OnComplete, next.OnComplete),
		OnReset:        mergeHook(h.OnReset, next.OnReset),
	}
}

func mergeHook(first, second func(context.Context, *SessionEvent)) func(context.Context, *SessionEvent) {
	if first == nil {
		return second
	}
	if second == nil {
		return first
	}
	return func(ctx context.Context, event *SessionEvent) {
		first(ctx, event)
		second(ctx, event)
	}
}
