package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/caseflow/playbook/pkg/domain"
)

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	logger      *slog.Logger
	subscribers map[string]map[chan<- string]struct{} // SessionID -> Set of Channels
}

// NewStreamManager creates an empty subscription registry.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		logger:      slog.Default(),
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe registers a listener for one session's events. The returned
// cancel function removes the subscription and closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Broadcast delivers a message to every subscriber of the session. Slow
// subscribers whose buffers are full miss the message rather than block
// the engine.
func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if subs, ok := sm.subscribers[sessionID]; ok {
		for ch := range subs {
			select {
			case ch <- msg:
			default:
				sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
			}
		}
	}
}

// Hooks returns lifecycle hooks that broadcast every session event to its
// subscribers as a JSON frame. Merge them into the engine's hooks to feed
// the /sessions/{id}/events stream.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	broadcast := func(_ context.Context, event *domain.SessionEvent) {
		payload, err := json.Marshal(event)
		if err != nil {
			sm.logger.Error("SSE: Event marshal failed", "error", err)
			return
		}
		sm.Broadcast(event.SessionID, string(payload))
	}
	return domain.LifecycleHooks{
		OnSessionStart: broadcast,
		OnDecision:     broadcast,
		OnComplete:     broadcast,
		OnReset:        broadcast,
	}
}
